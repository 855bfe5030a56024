package gateway

import (
	"context"
	"errors"
	"fmt"
)

// Turn roles used in a GenerationRequest.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Sampling defaults for support replies.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
)

// FallbackReply substitutes for a successful upstream response that carries
// no text. Transport and status failures are never substituted.
const FallbackReply = "I apologize, but I'm having trouble processing your request."

// ErrInvalidResponse marks a successful upstream status whose body could not
// be decoded. It is never retried.
var ErrInvalidResponse = errors.New("invalid response")

// Message is one role-tagged turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationRequest is the ordered turn sequence plus sampling parameters.
type GenerationRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Generator produces text for a GenerationRequest. Implementations return
// *Error for upstream failures.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	Backend() string
}

// Error is the typed failure surfaced by every Generator. Status is 0 for
// transport errors.
type Error struct {
	Backend string
	Status  int
	Body    string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Body != "":
		return fmt.Sprintf("%s: unexpected status %d: %s", e.Backend, e.Status, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("%s: unexpected status %d", e.Backend, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Backend, e.Err)
	default:
		return e.Backend + ": generation failed"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether a second attempt may succeed: transport errors,
// rate limiting and server-side failures.
func (e *Error) Retryable() bool {
	if e.Invalid() {
		return false
	}
	return e.Status == 0 || e.Status == 429 || e.Status >= 500
}

// Invalid reports whether the upstream answered successfully with an
// undecodable body.
func (e *Error) Invalid() bool { return errors.Is(e.Err, ErrInvalidResponse) }
