package ports

import "context"

// Oracle is the policy-decision collaborator: given an instruction prompt it
// returns free-form text that is expected, but not trusted, to contain a JSON
// policy decision. Parsing and fallback live in pkg/decision.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
