package dictation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

type DeepgramConfig struct {
	APIKey     string
	WSBaseURL  string
	Model      string
	Language   string
	SampleRate int
	// ChunkBytes is the size of each binary audio frame.
	ChunkBytes int
	// Audio supplies raw mono linear16 PCM. Recognition ends when it
	// returns io.EOF.
	Audio io.Reader
}

// DeepgramRecognizer streams audio to Deepgram's live transcription
// websocket and turns Results messages into transcript events.
type DeepgramRecognizer struct {
	cfg DeepgramConfig
}

func NewDeepgramRecognizer(cfg DeepgramConfig) *DeepgramRecognizer {
	if strings.TrimSpace(cfg.WSBaseURL) == "" {
		cfg.WSBaseURL = "wss://api.deepgram.com"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "nova-2"
	}
	if strings.TrimSpace(cfg.Language) == "" {
		cfg.Language = "en-US"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.ChunkBytes <= 0 {
		cfg.ChunkBytes = 3200
	}
	return &DeepgramRecognizer{cfg: cfg}
}

func (p *DeepgramRecognizer) Supported() bool {
	return strings.TrimSpace(p.cfg.APIKey) != "" && p.cfg.Audio != nil
}

func (p *DeepgramRecognizer) Start(ctx context.Context, sessionID string) (Recognition, <-chan Event, error) {
	if !p.Supported() {
		return nil, nil, ErrCapabilityUnavailable
	}
	u, err := url.Parse(strings.TrimRight(p.cfg.WSBaseURL, "/") + "/v1/listen")
	if err != nil {
		return nil, nil, err
	}
	q := u.Query()
	q.Set("model", p.cfg.Model)
	q.Set("language", p.cfg.Language)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(p.cfg.SampleRate))
	q.Set("channels", "1")
	q.Set("interim_results", "true")
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	q.Set("tag", sessionID)
	u.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		return nil, nil, fmt.Errorf("dial deepgram websocket: %w", err)
	}

	events := make(chan Event, 256)
	r := &deepgramRecognition{conn: conn, events: events}
	go r.readLoop()
	go r.pumpAudio(p.cfg.Audio, p.cfg.ChunkBytes)
	return r, events, nil
}

type deepgramMessage struct {
	Type        string `json:"type"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// parseDeepgramMessage maps one server message to an event. ok is false for
// control messages and empty transcripts.
func parseDeepgramMessage(data []byte) (Event, bool, error) {
	var msg deepgramMessage
	if err := sonic.ConfigStd.Unmarshal(data, &msg); err != nil {
		return Event{}, false, err
	}
	if msg.Type != "Results" || len(msg.Channel.Alternatives) == 0 {
		return Event{}, false, nil
	}
	text := msg.Channel.Alternatives[0].Transcript
	if strings.TrimSpace(text) == "" {
		return Event{}, false, nil
	}
	return Event{Segments: []Segment{{Text: text, IsFinal: msg.IsFinal}}}, true, nil
}

type deepgramRecognition struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	stopped   atomic.Bool
	events    chan Event
}

func (r *deepgramRecognition) readLoop() {
	defer close(r.events)
	defer r.closeConn()
	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			if r.stopped.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return
			}
			r.events <- Event{Err: deepgramError(err)}
			return
		}
		ev, ok, err := parseDeepgramMessage(data)
		if err != nil {
			log.Printf("dictation: ignoring undecodable deepgram message: %v", err)
			continue
		}
		if ok {
			r.events <- ev
		}
	}
}

func (r *deepgramRecognition) pumpAudio(audio io.Reader, chunkBytes int) {
	buf := make([]byte, chunkBytes)
	for !r.stopped.Load() {
		n, err := audio.Read(buf)
		if n > 0 {
			if werr := r.write(websocket.BinaryMessage, buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("dictation: audio source read failed: %v", err)
			}
			_ = r.write(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
			return
		}
	}
}

func (r *deepgramRecognition) write(messageType int, data []byte) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.conn.WriteMessage(messageType, data)
}

func (r *deepgramRecognition) Stop() error {
	if r.stopped.Swap(true) {
		return nil
	}
	_ = r.write(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
	return r.closeConn()
}

func (r *deepgramRecognition) closeConn() error {
	var err error
	r.closeOnce.Do(func() {
		err = r.conn.Close()
	})
	return err
}

func deepgramError(err error) error {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return &CapabilityError{Provider: "deepgram", Code: strconv.Itoa(ce.Code), Detail: ce.Text}
	}
	return &CapabilityError{Provider: "deepgram", Code: "connection_lost", Detail: err.Error()}
}
