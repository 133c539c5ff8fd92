package twilio

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/vigil/pkg/domain"
	twilio "github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Gateway implements ports.Telephony against the Twilio REST API.
// It performs no decisioning; it only translates to the carrier protocol and
// maps carrier failures onto the domain error taxonomy.
type Gateway struct {
	client    *twilio.RestClient
	from      string
	statusURL string
}

type Option func(*Gateway)

// WithStatusCallback registers a URL for call-lifecycle webhooks.
func WithStatusCallback(url string) Option {
	return func(g *Gateway) {
		g.statusURL = url
	}
}

// New creates a Gateway authenticated with the given account credentials.
// Calls and messages originate from the `from` number.
func New(accountSID, authToken, from string, opts ...Option) *Gateway {
	g := &Gateway{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		from: from,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// PlaceCall initiates an outbound call. Twilio will POST to voiceURL for
// instructions once the call connects.
func (g *Gateway) PlaceCall(ctx context.Context, destination, voiceURL string) (string, error) {
	params := &openapi.CreateCallParams{}
	params.SetTo(destination)
	params.SetFrom(g.from)
	params.SetUrl(voiceURL)
	params.SetMethod("POST")
	if g.statusURL != "" {
		params.SetStatusCallback(g.statusURL)
		params.SetStatusCallbackEvent([]string{"completed"})
		params.SetStatusCallbackMethod("POST")
	}

	call, err := g.client.Api.CreateCall(params)
	if err != nil {
		return "", mapError(err)
	}
	if call.Sid == nil {
		return "", fmt.Errorf("%w: carrier accepted call without a sid", domain.ErrProvider)
	}
	return *call.Sid, nil
}

// SendNotification delivers an SMS to the destination.
func (g *Gateway) SendNotification(ctx context.Context, destination, message string) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(destination)
	params.SetFrom(g.from)
	params.SetBody(message)

	if _, err := g.client.Api.CreateMessage(params); err != nil {
		return mapError(err)
	}
	return nil
}

// Twilio error codes for undeliverable destinations.
// 21211: invalid 'To' number. 21214: 'To' number cannot be reached.
// 21610: recipient has opted out.
var unreachableCodes = map[int]bool{
	21211: true,
	21214: true,
	21610: true,
}

// mapError translates a Twilio REST error into the domain taxonomy.
func mapError(err error) error {
	var restErr *twilioclient.TwilioRestError
	if !errors.As(err, &restErr) {
		return fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}

	switch {
	case unreachableCodes[restErr.Code]:
		return fmt.Errorf("%w: %s (code %d)", domain.ErrUnreachableDestination, restErr.Message, restErr.Code)
	case restErr.Status == 429 || restErr.Code == 20429:
		return fmt.Errorf("%w: %s (code %d)", domain.ErrRateLimited, restErr.Message, restErr.Code)
	default:
		return fmt.Errorf("%w: %s (code %d)", domain.ErrProvider, restErr.Message, restErr.Code)
	}
}
