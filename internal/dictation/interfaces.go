package dictation

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrCapabilityUnavailable is returned by Session.Start when no speech
// recognizer is available. It is not fatal: dictation is simply disabled.
var ErrCapabilityUnavailable = errors.New("speech recognition is not supported")

// Segment is one recognition result inside an event.
type Segment struct {
	Text    string
	IsFinal bool
}

// Event is one delivery from a recognizer. An event with Err set reports a
// capability failure and carries no segments.
type Event struct {
	Segments []Segment
	Err      error
}

// Final concatenates the final segments in arrival order.
func (e Event) Final() string {
	var b strings.Builder
	for _, s := range e.Segments {
		if s.IsFinal {
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

// Interim concatenates the non-final segments in arrival order.
func (e Event) Interim() string {
	var b strings.Builder
	for _, s := range e.Segments {
		if !s.IsFinal {
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

// CapabilityError is reported by a recognizer mid-session.
type CapabilityError struct {
	Provider string
	Code     string
	Detail   string
}

func (e *CapabilityError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s recognition error: %s", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s recognition error: %s: %s", e.Provider, e.Code, e.Detail)
}

// Recognition is a running recognizer stream.
type Recognition interface {
	// Stop ends recognition. The event channel is closed once the
	// recognizer has shut down.
	Stop() error
}

// Recognizer is a speech capability provider.
type Recognizer interface {
	Supported() bool
	Start(ctx context.Context, sessionID string) (Recognition, <-chan Event, error)
}
