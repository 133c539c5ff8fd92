package ports

import "context"

// Telephony is the boundary to the external carrier. It performs no
// decisioning; implementations translate to the carrier wire protocol and map
// failures onto the domain error taxonomy (ErrUnreachableDestination,
// ErrRateLimited, ErrProvider) so the orchestrator can decide whether to retry.
type Telephony interface {
	// PlaceCall initiates an outbound call. The carrier will request voice
	// instructions from voiceURL. Returns the carrier-assigned call ID.
	PlaceCall(ctx context.Context, destination, voiceURL string) (string, error)

	// SendNotification delivers a text message to the destination.
	SendNotification(ctx context.Context, destination, message string) error
}
