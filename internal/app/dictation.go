package app

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ent0n29/promptcrafter/internal/audio"
	"github.com/ent0n29/promptcrafter/internal/config"
	"github.com/ent0n29/promptcrafter/internal/dictation"
)

const stdinAudio = "-"

type dictationSetup struct {
	recognizer       dictation.Recognizer
	resolvedProvider string
	detail           string
	cleanup          func() error
}

func unsupportedSetup(detail string) dictationSetup {
	return dictationSetup{
		recognizer:       dictation.Unsupported{},
		resolvedProvider: "none",
		detail:           detail,
	}
}

func resolveDictation(cfg config.Config, opts Options) (dictationSetup, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.DictationProvider))
	if mode == "" {
		mode = "auto"
	}
	audioPath := strings.TrimSpace(opts.AudioPath)

	tryDeepgram := func(fatal bool) (dictationSetup, bool, error) {
		if strings.TrimSpace(cfg.DeepgramAPIKey) == "" {
			if fatal {
				return dictationSetup{}, false, fmt.Errorf("DICTATION_PROVIDER=deepgram but DEEPGRAM_API_KEY is not set")
			}
			return dictationSetup{}, false, nil
		}
		if audioPath == "" {
			if fatal {
				return dictationSetup{}, false, fmt.Errorf("deepgram dictation needs an audio source")
			}
			return dictationSetup{}, false, nil
		}
		src, err := openPCMSource(audioPath, opts.Stdin, cfg.DictationSampleRate)
		if err != nil {
			return dictationSetup{}, false, err
		}
		rec := dictation.NewDeepgramRecognizer(dictation.DeepgramConfig{
			APIKey:     cfg.DeepgramAPIKey,
			WSBaseURL:  cfg.DeepgramWSBaseURL,
			Model:      cfg.DeepgramModel,
			Language:   cfg.DictationLanguage,
			SampleRate: src.sampleRate,
			ChunkBytes: cfg.DeepgramChunkBytes,
			Audio:      src.reader,
		})
		return dictationSetup{
			recognizer:       rec,
			resolvedProvider: "deepgram",
			detail:           fmt.Sprintf("deepgram %s (%s)", cfg.DeepgramModel, src.detail),
			cleanup:          src.cleanup,
		}, true, nil
	}

	tryWhisper := func(fatal bool) (dictationSetup, bool, error) {
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			if fatal {
				return dictationSetup{}, false, fmt.Errorf("DICTATION_PROVIDER=whisper but OPENAI_API_KEY is not set")
			}
			return dictationSetup{}, false, nil
		}
		if audioPath == "" {
			if fatal {
				return dictationSetup{}, false, fmt.Errorf("whisper dictation needs an audio source")
			}
			return dictationSetup{}, false, nil
		}
		// Only buffer stdin into a file when whisper was asked for explicitly.
		if audioPath == stdinAudio && !fatal {
			return dictationSetup{}, false, nil
		}
		path, cleanup, err := whisperFile(audioPath, opts.Stdin, cfg.DictationSampleRate)
		if err != nil {
			return dictationSetup{}, false, err
		}
		rec := dictation.NewWhisperRecognizer(dictation.WhisperConfig{
			APIKey:   cfg.OpenAIAPIKey,
			BaseURL:  cfg.OpenAIBaseURL,
			Model:    cfg.OpenAITranscriptionModel,
			Language: cfg.DictationLanguage,
			FilePath: path,
		})
		return dictationSetup{
			recognizer:       rec,
			resolvedProvider: "whisper",
			detail:           fmt.Sprintf("openai %s", cfg.OpenAITranscriptionModel),
			cleanup:          cleanup,
		}, true, nil
	}

	switch mode {
	case "none":
		return unsupportedSetup("dictation disabled"), nil
	case "mock":
		return dictationSetup{
			recognizer:       dictation.NewMockRecognizer(),
			resolvedProvider: "mock",
			detail:           "mock",
		}, nil
	case "deepgram":
		setup, _, err := tryDeepgram(true)
		return setup, err
	case "whisper":
		setup, _, err := tryWhisper(true)
		return setup, err
	case "auto":
		if setup, ok, err := tryDeepgram(false); err != nil || ok {
			return setup, err
		}
		if setup, ok, err := tryWhisper(false); err != nil || ok {
			return setup, err
		}
		log.Printf("dictation: no speech provider available (no api key or audio source)")
		return unsupportedSetup("unavailable (no api key or audio source)"), nil
	default:
		return dictationSetup{}, fmt.Errorf("invalid DICTATION_PROVIDER: %q (expected auto|deepgram|whisper|mock|none)", cfg.DictationProvider)
	}
}

type pcmSource struct {
	reader     io.Reader
	sampleRate int
	detail     string
	cleanup    func() error
}

// openPCMSource prepares linear16 audio for streaming. Stdin is streamed as
// raw PCM as it arrives; files are decoded up front so WAV headers never
// reach the recognizer.
func openPCMSource(path string, stdin io.Reader, sampleRate int) (pcmSource, error) {
	if path == stdinAudio {
		if stdin == nil {
			stdin = os.Stdin
		}
		return pcmSource{
			reader:     stdin,
			sampleRate: sampleRate,
			detail:     fmt.Sprintf("stdin pcm %dHz", sampleRate),
		}, nil
	}
	clip, err := audio.ReadClipFile(path, sampleRate)
	if err != nil {
		return pcmSource{}, fmt.Errorf("audio source %s: %w", path, err)
	}
	return pcmSource{
		reader:     bytes.NewReader(clip.PCM),
		sampleRate: clip.SampleRate,
		detail:     fmt.Sprintf("%s, %dms @ %dHz", filepath.Base(path), clip.DurationMS(), clip.SampleRate),
	}, nil
}

// whisperFile returns a file the transcription API can upload. Raw PCM on
// stdin is wrapped into a temporary WAV file removed by cleanup.
func whisperFile(path string, stdin io.Reader, sampleRate int) (string, func() error, error) {
	if path != stdinAudio {
		if _, err := os.Stat(path); err != nil {
			return "", nil, fmt.Errorf("audio source %s: %w", path, err)
		}
		return path, nil, nil
	}
	if stdin == nil {
		stdin = os.Stdin
	}
	clip, err := audio.ReadClip(stdin, sampleRate)
	if err != nil {
		return "", nil, err
	}
	tmpDir, err := os.MkdirTemp("", "promptcrafter-dictation-*")
	if err != nil {
		return "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	wavPath := filepath.Join(tmpDir, "dictation.wav")
	if err := audio.WriteWAVFile(wavPath, clip); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", nil, fmt.Errorf("write temp wav: %w", err)
	}
	return wavPath, func() error { return os.RemoveAll(tmpDir) }, nil
}
