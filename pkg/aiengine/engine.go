package aiengine

import (
	"context"
	"fmt"
)

// Engine is the provider-neutral generation contract. Implementations wrap
// one provider SDK each.
//
// GenerateResponse never returns a Go error: provider and configuration
// failures come back as a readable "Error: ..." string so the transcript
// records the failure instead of the caller crashing on an outage.
type Engine interface {
	// GenerateResponse produces the next reply for the bot identified by
	// roleName, given the full room history. Messages whose sender equals
	// roleName are presented to the provider as assistant turns.
	GenerateResponse(ctx context.Context, roleName, systemPrompt string, history []Message) string

	// RequiresAPIKey reports whether the provider needs a credential.
	RequiresAPIKey() bool

	// Type returns the registry identifier of the engine variant.
	Type() string

	// Model returns the provider model name this engine targets.
	Model() string
}

// Unconfigured is the degraded engine used when construction could not
// produce a working client (missing key, bad endpoint). It keeps the owning
// bot alive; every call yields the construction failure as transcript text.
type Unconfigured struct {
	engineType string
	model      string
	reason     string
}

// NewUnconfigured wraps a construction failure in a stub engine.
func NewUnconfigured(engineType, model, reason string) *Unconfigured {
	return &Unconfigured{engineType: engineType, model: model, reason: reason}
}

func (u *Unconfigured) GenerateResponse(ctx context.Context, roleName, systemPrompt string, history []Message) string {
	return fmt.Sprintf("Error: %s", u.reason)
}

func (u *Unconfigured) RequiresAPIKey() bool { return true }
func (u *Unconfigured) Type() string         { return u.engineType }
func (u *Unconfigured) Model() string        { return u.model }
