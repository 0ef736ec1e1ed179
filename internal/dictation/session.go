package dictation

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/ent0n29/promptcrafter/internal/observability"
)

type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
)

// Update is pushed to subscribers for every handled event and once when a
// recognition stream ends.
type Update struct {
	SessionID string
	// Final is the text committed by this event, if any.
	Final string
	// Interim is live-preview text; it is never committed.
	Interim string
	// Text is the commit buffer after the event.
	Text  string
	Ended bool
	// Err is set on the ended update when a capability error stopped
	// recording.
	Err error
}

// Session owns a dictation commit buffer and the recognizer feeding it.
type Session struct {
	recognizer Recognizer
	metrics    *observability.Metrics

	mu          sync.Mutex
	id          string
	state       State
	buffer      Buffer
	recognition Recognition
	gen         uint64
	done        chan struct{}
	subscribers []func(Update)

	// starting is set while the recognizer is connecting; Stop during that
	// window sets abortStart.
	starting   bool
	abortStart bool
}

func NewSession(recognizer Recognizer, metrics *observability.Metrics) *Session {
	if recognizer == nil {
		recognizer = Unsupported{}
	}
	done := make(chan struct{})
	close(done)
	return &Session{
		recognizer: recognizer,
		metrics:    metrics,
		state:      StateIdle,
		done:       done,
	}
}

// Supported reports whether Start can succeed at all.
func (s *Session) Supported() bool { return s.recognizer.Supported() }

// Subscribe registers fn for updates. Updates are delivered from a single
// goroutine in arrival order.
func (s *Session) Subscribe(fn func(Update)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Start begins recording. Starting a session that is already recording or
// connecting is a no-op. The session lock is not held while the recognizer
// connects, so Text, State and Stop stay responsive.
func (s *Session) Start(ctx context.Context) error {
	if !s.recognizer.Supported() {
		s.metrics.DictationSession("unsupported")
		return ErrCapabilityUnavailable
	}

	s.mu.Lock()
	if s.state == StateRecording || s.starting {
		s.mu.Unlock()
		return nil
	}
	s.starting = true
	s.abortStart = false
	s.mu.Unlock()

	id := uuid.NewString()
	recognition, events, err := s.recognizer.Start(ctx, id)

	s.mu.Lock()
	s.starting = false
	if err != nil {
		s.mu.Unlock()
		s.metrics.DictationSession("start_failed")
		return fmt.Errorf("start recognition: %w", err)
	}
	if s.abortStart {
		s.mu.Unlock()
		s.metrics.DictationSession("stopped")
		go drain(events)
		if err := recognition.Stop(); err != nil {
			return fmt.Errorf("stop recognition: %w", err)
		}
		return nil
	}

	s.gen++
	s.id = id
	s.state = StateRecording
	s.recognition = recognition
	s.done = make(chan struct{})
	gen, done := s.gen, s.done
	s.mu.Unlock()

	s.metrics.DictationSession("started")
	go s.consume(gen, id, recognition, events, done)
	return nil
}

// Stop ends recording immediately. Events delivered after Stop returns are
// discarded.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.starting {
		s.abortStart = true
		s.mu.Unlock()
		return nil
	}
	if s.state != StateRecording {
		s.mu.Unlock()
		return nil
	}
	recognition := s.recognition
	s.state = StateIdle
	s.recognition = nil
	s.gen++
	s.mu.Unlock()

	s.metrics.DictationSession("stopped")
	if err := recognition.Stop(); err != nil {
		return fmt.Errorf("stop recognition: %w", err)
	}
	return nil
}

// Wait blocks until the current recognition stream has been fully drained.
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	<-done
}

func (s *Session) IsActive() bool { return s.State() == StateRecording }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID is the identifier of the most recent recording, empty before the first.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer.String()
}

// SetText replaces the commit buffer, e.g. after the user edited the field.
func (s *Session) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer.Set(text)
}

// consume applies events of one recording. Its ended update is sent once:
// right away on a capability error, otherwise when the stream closes, unless
// a newer recording has started by then.
func (s *Session) consume(gen uint64, id string, recognition Recognition, events <-chan Event, done chan struct{}) {
	defer close(done)

	reported := false
	for ev := range events {
		if ev.Err != nil {
			if s.fail(gen, recognition, ev.Err) {
				s.notifyEnded(id, ev.Err)
				reported = true
			}
			continue
		}
		s.handle(gen, id, ev)
	}

	s.mu.Lock()
	if s.gen == gen && s.state == StateRecording {
		// The recognizer ended on its own.
		s.state = StateIdle
		s.recognition = nil
		s.gen++
		s.metrics.DictationSession("ended")
	}
	superseded := s.id != id
	s.mu.Unlock()

	if !reported && !superseded {
		s.notifyEnded(id, nil)
	}
}

func (s *Session) notifyEnded(id string, err error) {
	s.mu.Lock()
	text := s.buffer.String()
	subs := s.subscribersLocked()
	s.mu.Unlock()
	notify(subs, Update{SessionID: id, Text: text, Ended: true, Err: err})
}

func (s *Session) handle(gen uint64, id string, ev Event) {
	s.mu.Lock()
	if s.gen != gen || s.state != StateRecording {
		s.mu.Unlock()
		return
	}
	final, committed := s.buffer.Apply(ev)
	interim := ev.Interim()
	text := s.buffer.String()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	if committed {
		s.metrics.DictationEvent("final")
	}
	if interim != "" {
		s.metrics.DictationEvent("interim")
	}
	notify(subs, Update{SessionID: id, Final: final, Interim: interim, Text: text})
}

// fail moves the session to idle after a capability error. Committed text is
// kept. It reports whether the error belonged to the live recording.
func (s *Session) fail(gen uint64, recognition Recognition, err error) bool {
	s.mu.Lock()
	if s.gen != gen || s.state != StateRecording {
		s.mu.Unlock()
		return false
	}
	s.state = StateIdle
	s.recognition = nil
	s.gen++
	s.mu.Unlock()

	log.Printf("dictation: speech recognition error: %v", err)
	s.metrics.DictationEvent("error")
	s.metrics.DictationSession("failed")
	if stopErr := recognition.Stop(); stopErr != nil {
		log.Printf("dictation: stop after error failed: %v", stopErr)
	}
	return true
}

// subscribersLocked copies the subscriber list; s.mu must be held.
func (s *Session) subscribersLocked() []func(Update) {
	subs := make([]func(Update), len(s.subscribers))
	copy(subs, s.subscribers)
	return subs
}

func drain(events <-chan Event) {
	for range events {
	}
}

func notify(subs []func(Update), u Update) {
	for _, fn := range subs {
		fn(u)
	}
}
