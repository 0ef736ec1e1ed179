package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/ent0n29/promptcrafter/internal/config"
	"github.com/ent0n29/promptcrafter/internal/dictation"
	"github.com/ent0n29/promptcrafter/internal/observability"
	"github.com/ent0n29/promptcrafter/internal/promptapi"
	"github.com/ent0n29/promptcrafter/internal/tones"
)

type DictationInfo struct {
	Provider string
	Detail   string
}

// Options carries the per-invocation inputs that do not come from the
// environment.
type Options struct {
	// AudioPath is a recorded audio file, or "-" for raw PCM on Stdin.
	// Empty means no audio source.
	AudioPath string
	Stdin     io.Reader
}

type BuildResult struct {
	Config     config.Config
	Client     *promptapi.Client
	Recognizer dictation.Recognizer
	Dictation  DictationInfo
	Catalog    *tones.Catalog
	Metrics    *observability.Metrics

	// Cleanup releases audio files and temp files opened for dictation.
	Cleanup func() error
}

func Build(cfg config.Config, opts Options) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	catalog := tones.Default()
	if strings.TrimSpace(cfg.TonesFile) != "" {
		loaded, err := tones.Load(cfg.TonesFile)
		if err != nil {
			return nil, fmt.Errorf("tone catalogue init failed: %w", err)
		}
		catalog = loaded
	}

	setup, err := resolveDictation(cfg, opts)
	if err != nil {
		return nil, err
	}

	client := promptapi.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, metrics)

	cleanup := func() error {
		if setup.cleanup == nil {
			return nil
		}
		return setup.cleanup()
	}

	return &BuildResult{
		Config:     cfg,
		Client:     client,
		Recognizer: setup.recognizer,
		Dictation: DictationInfo{
			Provider: setup.resolvedProvider,
			Detail:   setup.detail,
		},
		Catalog: catalog,
		Metrics: metrics,
		Cleanup: cleanup,
	}, nil
}

// NewSession returns an idle dictation session on the resolved recognizer.
func (b *BuildResult) NewSession() *dictation.Session {
	return dictation.NewSession(b.Recognizer, b.Metrics)
}
