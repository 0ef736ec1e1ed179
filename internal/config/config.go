package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the PromptCrafter client.
type Config struct {
	APIBaseURL     string
	RequestTimeout time.Duration

	TonesFile string

	MetricsNamespace string
	MetricsFile      string

	DictationProvider   string
	DictationLanguage   string
	// DictationSampleRate applies to raw PCM audio; WAV input carries its own.
	DictationSampleRate int

	DeepgramAPIKey     string
	DeepgramWSBaseURL  string
	DeepgramModel      string
	DeepgramChunkBytes int

	OpenAIAPIKey             string
	OpenAIBaseURL            string
	OpenAITranscriptionModel string
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		APIBaseURL:       envOrDefault("PROMPTCRAFTER_API_BASE_URL", "http://localhost:8080/api"),
		RequestTimeout:   60 * time.Second,
		TonesFile:        stringsTrimSpace("PROMPTCRAFTER_TONES_FILE"),
		MetricsNamespace: envOrDefault("PROMPTCRAFTER_METRICS_NAMESPACE", "promptcrafter"),
		MetricsFile:      stringsTrimSpace("PROMPTCRAFTER_METRICS_FILE"),

		DictationProvider:   envOrDefault("DICTATION_PROVIDER", "auto"),
		DictationLanguage:   envOrDefault("DICTATION_LANGUAGE", "en-US"),
		DictationSampleRate: 16000,

		DeepgramAPIKey:     stringsTrimSpace("DEEPGRAM_API_KEY"),
		DeepgramWSBaseURL:  envOrDefault("DEEPGRAM_WS_BASE_URL", "wss://api.deepgram.com"),
		DeepgramModel:      envOrDefault("DEEPGRAM_MODEL", "nova-2"),
		// 100ms of 16kHz mono PCM16.
		DeepgramChunkBytes: 3200,

		OpenAIAPIKey:             stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIBaseURL:            stringsTrimSpace("OPENAI_BASE_URL"),
		OpenAITranscriptionModel: envOrDefault("OPENAI_TRANSCRIPTION_MODEL", "whisper-1"),
	}

	var err error
	cfg.RequestTimeout, err = durationFromEnv("PROMPTCRAFTER_REQUEST_TIMEOUT", cfg.RequestTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.DictationSampleRate, err = intFromEnv("DICTATION_SAMPLE_RATE", cfg.DictationSampleRate)
	if err != nil {
		return Config{}, err
	}
	cfg.DeepgramChunkBytes, err = intFromEnv("DEEPGRAM_CHUNK_BYTES", cfg.DeepgramChunkBytes)
	if err != nil {
		return Config{}, err
	}

	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.APIBaseURL == "" {
		return Config{}, fmt.Errorf("PROMPTCRAFTER_API_BASE_URL must not be empty")
	}
	if !strings.HasPrefix(cfg.APIBaseURL, "http://") && !strings.HasPrefix(cfg.APIBaseURL, "https://") {
		return Config{}, fmt.Errorf("PROMPTCRAFTER_API_BASE_URL must be an http(s) URL, got %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout <= 0 {
		return Config{}, fmt.Errorf("PROMPTCRAFTER_REQUEST_TIMEOUT must be positive")
	}
	if cfg.DictationSampleRate <= 0 {
		return Config{}, fmt.Errorf("DICTATION_SAMPLE_RATE must be positive")
	}
	if cfg.DeepgramChunkBytes <= 0 {
		return Config{}, fmt.Errorf("DEEPGRAM_CHUNK_BYTES must be positive")
	}

	cfg.DictationProvider = strings.ToLower(strings.TrimSpace(cfg.DictationProvider))
	switch cfg.DictationProvider {
	case "auto", "deepgram", "whisper", "mock", "none":
	default:
		return Config{}, fmt.Errorf("invalid DICTATION_PROVIDER: %q (expected auto|deepgram|whisper|mock|none)", cfg.DictationProvider)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}
