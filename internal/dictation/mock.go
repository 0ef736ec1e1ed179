package dictation

import (
	"context"
	"sync"
	"time"
)

// Unsupported is the recognizer used when no speech capability exists.
type Unsupported struct{}

func (Unsupported) Supported() bool { return false }

func (Unsupported) Start(context.Context, string) (Recognition, <-chan Event, error) {
	return nil, nil, ErrCapabilityUnavailable
}

// DefaultMockScript is replayed by a MockRecognizer without a script.
var DefaultMockScript = []Event{
	{Segments: []Segment{{Text: "simulated"}}},
	{Segments: []Segment{{Text: "simulated voice input", IsFinal: true}}},
}

// MockRecognizer replays a fixed event script and then ends, like a
// recognizer that hears one utterance. Used when no real provider is
// configured.
type MockRecognizer struct {
	Script   []Event
	Interval time.Duration
}

func NewMockRecognizer(script ...Event) *MockRecognizer {
	if len(script) == 0 {
		script = DefaultMockScript
	}
	return &MockRecognizer{Script: script}
}

func (m *MockRecognizer) Supported() bool { return true }

func (m *MockRecognizer) Start(ctx context.Context, _ string) (Recognition, <-chan Event, error) {
	events := make(chan Event, 64)
	r := &mockRecognition{stop: make(chan struct{})}
	script := append([]Event(nil), m.Script...)
	interval := m.Interval

	go func() {
		defer close(events)
		for _, ev := range script {
			if interval > 0 {
				select {
				case <-time.After(interval):
				case <-r.stop:
					return
				case <-ctx.Done():
					return
				}
			}
			select {
			case events <- ev:
			case <-r.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return r, events, nil
}

type mockRecognition struct {
	once sync.Once
	stop chan struct{}
}

func (r *mockRecognition) Stop() error {
	r.once.Do(func() { close(r.stop) })
	return nil
}
