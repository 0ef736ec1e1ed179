package dictation

import (
	"context"
	"errors"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

type WhisperConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
	// FilePath is a recorded audio file in a format the API accepts.
	FilePath string
}

// WhisperRecognizer transcribes a recorded file through the OpenAI audio
// API. The whole transcript arrives as a single final event.
type WhisperRecognizer struct {
	cfg    WhisperConfig
	client *openai.Client
}

func NewWhisperRecognizer(cfg WhisperConfig) *WhisperRecognizer {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = openai.Whisper1
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	return &WhisperRecognizer{cfg: cfg, client: openai.NewClientWithConfig(clientCfg)}
}

func (p *WhisperRecognizer) Supported() bool {
	return strings.TrimSpace(p.cfg.APIKey) != "" && strings.TrimSpace(p.cfg.FilePath) != ""
}

func (p *WhisperRecognizer) Start(ctx context.Context, _ string) (Recognition, <-chan Event, error) {
	if !p.Supported() {
		return nil, nil, ErrCapabilityUnavailable
	}
	runCtx, cancel := context.WithCancel(ctx)
	events := make(chan Event, 1)
	r := &whisperRecognition{cancel: cancel}

	go func() {
		defer close(events)
		defer cancel()
		resp, err := p.client.CreateTranscription(runCtx, openai.AudioRequest{
			Model:    p.cfg.Model,
			FilePath: p.cfg.FilePath,
			Language: whisperLanguage(p.cfg.Language),
		})
		if err != nil {
			if r.isStopped() || errors.Is(err, context.Canceled) {
				return
			}
			events <- Event{Err: whisperError(err)}
			return
		}
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			return
		}
		events <- Event{Segments: []Segment{{Text: text, IsFinal: true}}}
	}()
	return r, events, nil
}

// whisperLanguage reduces a BCP 47 tag such as en-US to the ISO-639-1 code
// the transcription endpoint expects.
func whisperLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

func whisperError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := "api_error"
		if apiErr.Type != "" {
			code = apiErr.Type
		}
		return &CapabilityError{Provider: "whisper", Code: code, Detail: apiErr.Message}
	}
	return &CapabilityError{Provider: "whisper", Code: "transcription_failed", Detail: err.Error()}
}

type whisperRecognition struct {
	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
}

func (r *whisperRecognition) Stop() error {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	r.cancel()
	return nil
}

func (r *whisperRecognition) isStopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}
