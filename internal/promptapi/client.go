package promptapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/ent0n29/promptcrafter/internal/observability"
)

const (
	generatePath       = "/prompts/generate"
	healthPath         = "/prompts/health"
	tonesPath          = "/tones"
	toneCategoriesPath = "/tones/categories"

	maxResponseBytes = 4 << 20
)

// Client talks to the PromptCrafter HTTP API. Every call is a single
// exchange: nothing is cached and nothing is retried.
type Client struct {
	baseURL string
	client  *http.Client
	metrics *observability.Metrics
}

func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Generate validates the input, sends one generation request and renders the
// response for display.
func (c *Client) Generate(ctx context.Context, inputText string, selectedTones []string, isVoiceInput bool) (string, error) {
	resp, err := c.Send(ctx, NewGenerationRequest(inputText, selectedTones, isVoiceInput))
	if err != nil {
		return "", err
	}
	return Render(resp), nil
}

// Send performs the raw request/response exchange for req.
func (c *Client) Send(ctx context.Context, req GenerationRequest) (GenerationResponse, error) {
	if err := req.Validate(); err != nil {
		c.metrics.ObserveGeneration("validation_error", 0)
		return GenerationResponse{}, err
	}
	if req.SelectedTones == nil {
		req.SelectedTones = []string{}
	}

	start := time.Now()
	var out GenerationResponse
	if err := c.doJSON(ctx, http.MethodPost, generatePath, req, &out); err != nil {
		c.metrics.ObserveGeneration("request_error", time.Since(start))
		return GenerationResponse{}, err
	}
	c.metrics.ObserveGeneration("ok", time.Since(start))
	return out, nil
}

// Tones lists every tone the service knows, flattened.
func (c *Client) Tones(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.doJSON(ctx, http.MethodGet, tonesPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToneCategories returns the service's tone taxonomy.
func (c *Client) ToneCategories(ctx context.Context) (map[string][]string, error) {
	var out map[string][]string
	if err := c.doJSON(ctx, http.MethodGet, toneCategoriesPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health returns the plain-text status reported by the service.
func (c *Client) Health(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodGet, healthPath, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = sonic.ConfigStd.Marshal(in)
		if err != nil {
			return &RequestError{Method: method, Path: path, Reason: "marshal request", Err: err}
		}
	}

	body, err := c.do(ctx, method, path, payload)
	if err != nil {
		return err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return &RequestError{Method: method, Path: path, Reason: "decode response: empty body"}
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return &RequestError{Method: method, Path: path, Reason: "decode response: null body"}
	}
	if err := sonic.ConfigStd.Unmarshal(trimmed, out); err != nil {
		return &RequestError{Method: method, Path: path, Reason: fmt.Sprintf("decode response: %v", err), Err: err}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &RequestError{Method: method, Path: path, Reason: "create request", Err: err}
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	res, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &RequestError{Method: method, Path: path, Reason: fmt.Sprintf("send request: %v", err), Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		reason := strings.TrimSpace(string(snippet))
		if reason == "" {
			reason = http.StatusText(res.StatusCode)
		}
		return nil, &RequestError{Method: method, Path: path, StatusCode: res.StatusCode, Reason: reason}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes+1))
	if err != nil {
		return nil, &RequestError{Method: method, Path: path, StatusCode: res.StatusCode, Reason: fmt.Sprintf("read response: %v", err), Err: err}
	}
	if len(body) > maxResponseBytes {
		return nil, &RequestError{Method: method, Path: path, StatusCode: res.StatusCode, Reason: "response too large", Err: errors.New("response exceeds limit")}
	}
	return body, nil
}
