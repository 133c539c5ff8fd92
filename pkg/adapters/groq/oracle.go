package groq

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// DefaultModel is a small, fast model suited to a yes/no policy decision.
const DefaultModel = "llama-3.1-8b-instant"

// Oracle implements ports.Oracle over Groq's chat-completions API.
// Any OpenAI-compatible endpoint works via WithBaseURL.
type Oracle struct {
	client    *openai.Client
	model     string
	maxTokens int
}

type Option func(*config)

type config struct {
	baseURL   string
	model     string
	maxTokens int
}

// WithBaseURL points the oracle at a different OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithModel overrides the completion model.
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// New creates an Oracle authenticated with the given API key.
func New(apiKey string, opts ...Option) *Oracle {
	c := &config{
		baseURL:   DefaultBaseURL,
		model:     DefaultModel,
		maxTokens: 200,
	}
	for _, opt := range opts {
		opt(c)
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = c.baseURL

	return &Oracle{
		client:    openai.NewClientWithConfig(cfg),
		model:     c.model,
		maxTokens: c.maxTokens,
	}
}

// Complete sends the prompt and returns the raw completion text. The caller
// owns the deadline; this function does not retry.
func (o *Oracle) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.model,
		MaxTokens: o.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
