package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

type recordedRequest struct {
	InputText     string   `json:"inputText"`
	SelectedTones []string `json:"selectedTones"`
	IsVoiceInput  bool     `json:"isVoiceInput"`
}

type fakeService struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (f *fakeService) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func startService(t *testing.T) *fakeService {
	t.Helper()
	f := &fakeService{}
	r := chi.NewRouter()
	r.Post("/api/prompts/generate", func(w http.ResponseWriter, req *http.Request) {
		var in recordedRequest
		body, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(body, &in); err != nil {
			t.Errorf("decode request: %v", err)
		}
		f.mu.Lock()
		f.requests = append(f.requests, in)
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"generatedPrompt":  "Crafted: " + in.InputText,
			"contentType":      "general",
			"tonesApplied":     len(in.SelectedTones) > 0,
			"appliedTones":     in.SelectedTones,
			"processingTimeMs": 7,
		})
	})
	r.Get("/api/tones/categories", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Technical":["Precise"],"Creative":["Witty","Playful"]}`))
	})
	r.Get("/api/prompts/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("PromptCrafter API is running"))
	})
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	for _, key := range []string{
		"PROMPTCRAFTER_TONES_FILE", "PROMPTCRAFTER_METRICS_FILE", "PROMPTCRAFTER_REQUEST_TIMEOUT",
		"DEEPGRAM_API_KEY", "OPENAI_API_KEY", "DICTATION_SAMPLE_RATE", "DEEPGRAM_CHUNK_BYTES",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("PROMPTCRAFTER_API_BASE_URL", ts.URL+"/api/")
	t.Setenv("PROMPTCRAFTER_METRICS_NAMESPACE", "test_cli")
	t.Setenv("DICTATION_PROVIDER", "mock")
	return f
}

func runCLI(stdin string, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	c := cli{stdin: strings.NewReader(stdin), stdout: &stdout, stderr: &stderr}
	code := c.run(args)
	return code, stdout.String(), stderr.String()
}

func TestGenerateFromFlag(t *testing.T) {
	svc := startService(t)
	code, out, errOut := runCLI("", "generate", "-text", "  draft a tweet ", "-tones", "Witty, Bogus,Witty")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	want := "Crafted:   draft a tweet \n\n/* PromptCrafter Metadata:\n" +
		" * Content Type: general\n * Tones Applied: Yes\n * Applied Tones: Witty, Bogus\n" +
		" * Processing Time: 7ms\n */\n"
	if out != want {
		t.Fatalf("stdout = %q, want %q", out, want)
	}
	reqs := svc.recorded()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	if reqs[0].InputText != "  draft a tweet " || reqs[0].IsVoiceInput {
		t.Fatalf("request = %+v", reqs[0])
	}
	if strings.Join(reqs[0].SelectedTones, ",") != "Witty,Bogus" {
		t.Fatalf("selectedTones = %v, want [Witty Bogus]", reqs[0].SelectedTones)
	}
}

func TestGenerateFromStdinToFile(t *testing.T) {
	svc := startService(t)
	metricsFile := filepath.Join(t.TempDir(), "metrics.prom")
	t.Setenv("PROMPTCRAFTER_METRICS_FILE", metricsFile)
	outFile := filepath.Join(t.TempDir(), "prompt.txt")

	code, out, errOut := runCLI("summarize this", "generate", "-voice", "-out", outFile)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	if out != "" {
		t.Fatalf("stdout = %q, want empty when -out is set", out)
	}
	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.HasPrefix(string(data), "Crafted: summarize this\n\n/* PromptCrafter Metadata:") {
		t.Fatalf("output file = %q", data)
	}
	if reqs := svc.recorded(); len(reqs) != 1 || !reqs[0].IsVoiceInput {
		t.Fatalf("requests = %+v, want one voice request", reqs)
	}
	metrics, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("read metrics file: %v", err)
	}
	if !strings.Contains(string(metrics), `test_cli_generation_requests_total{outcome="ok"} 1`) {
		t.Fatalf("metrics file missing ok outcome:\n%s", metrics)
	}
}

func TestGenerateBlankInputIsValidationError(t *testing.T) {
	svc := startService(t)
	code, out, errOut := runCLI("", "generate", "-text", " \n\t")
	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if out != "" || !strings.Contains(errOut, "input text is empty") {
		t.Fatalf("stdout = %q, stderr = %q", out, errOut)
	}
	if n := len(svc.recorded()); n != 0 {
		t.Fatalf("requests = %d, want 0", n)
	}
}

func TestGenerateServiceDownExitsOne(t *testing.T) {
	startService(t)
	t.Setenv("PROMPTCRAFTER_API_BASE_URL", "http://127.0.0.1:1/api")
	code, out, _ := runCLI("", "generate", "-text", "hello")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if out != "" {
		t.Fatalf("stdout = %q, want nothing on failure", out)
	}
}

func TestDictateWithMockRecognizer(t *testing.T) {
	svc := startService(t)

	code, out, errOut := runCLI("", "dictate", "-text", "Note:")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	if out != "Note: simulated voice input\n" {
		t.Fatalf("stdout = %q", out)
	}
	if !strings.Contains(errOut, "> simulated voice input") {
		t.Fatalf("stderr = %q, want committed fragment echoed", errOut)
	}
	if n := len(svc.recorded()); n != 0 {
		t.Fatalf("requests = %d, want 0 without -generate", n)
	}

	code, out, errOut = runCLI("", "dictate", "-generate", "-tones", "Precise")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	if !strings.HasPrefix(out, "Crafted: simulated voice input\n") {
		t.Fatalf("stdout = %q", out)
	}
	reqs := svc.recorded()
	if len(reqs) != 1 || !reqs[0].IsVoiceInput || reqs[0].InputText != "simulated voice input" {
		t.Fatalf("requests = %+v", reqs)
	}
}

func TestDictateUnavailable(t *testing.T) {
	startService(t)
	t.Setenv("DICTATION_PROVIDER", "none")
	code, out, errOut := runCLI("", "dictate")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if out != "" || !strings.Contains(errOut, "speech recognition is not available") {
		t.Fatalf("stdout = %q, stderr = %q", out, errOut)
	}
}

func TestTonesLocalAndRemote(t *testing.T) {
	startService(t)

	code, out, _ := runCLI("", "tones")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 10 || !strings.HasPrefix(lines[0], "Professional: ") {
		t.Fatalf("local tones output = %q", out)
	}

	code, out, _ = runCLI("", "tones", "-remote")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if out != "Creative: Witty, Playful\nTechnical: Precise\n" {
		t.Fatalf("remote tones output = %q", out)
	}
}

func TestHealth(t *testing.T) {
	startService(t)
	code, out, _ := runCLI("", "health")
	if code != 0 || out != "PromptCrafter API is running\n" {
		t.Fatalf("health = %d %q", code, out)
	}
}

func TestUsageErrors(t *testing.T) {
	startService(t)
	cases := [][]string{
		nil,
		{"frobnicate"},
		{"generate", "-nope"},
		{"health", "extra"},
	}
	for _, args := range cases {
		if code, _, _ := runCLI("", args...); code != 2 {
			t.Fatalf("run(%q) exit code = %d, want 2", args, code)
		}
	}
}
