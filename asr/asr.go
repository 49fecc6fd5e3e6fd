// Package asr turns an audio file into text. Several interchangeable
// backends implement Transcriber; the Chain composes them with
// confidence-based fallback tuned for wayuunaiki, a low-resource
// language with no single reliable model.
package asr

import (
	"context"
	"fmt"
)

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// TranscriptionError means no usable text could be produced for the
// file: it is missing, unreadable, or every strategy failed.
type TranscriptionError struct {
	Path string
	Err  error
}

func (e *TranscriptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcription failed for %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("transcription failed for %s", e.Path)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// Config selects and parameterizes a provider at construction time.
type Config struct {
	Provider            string // "stub", "whisper", "openai", "wayuu"
	OpenAIAPIKey        string
	WhisperModel        string
	ConfidenceThreshold float64
}

// FromConfig builds the transcriber named by cfg.Provider. The "wayuu"
// provider assembles the dialect-optimized chain from whichever
// backends the configuration makes possible; a chain with no usable
// backend is a configuration error surfaced here, not at runtime.
func FromConfig(cfg Config) (Transcriber, error) {
	switch cfg.Provider {
	case "", "stub":
		return &Stub{}, nil

	case "whisper", "whisper-local":
		return NewLocalWhisper(cfg.WhisperModel, "es"), nil

	case "openai", "openai-api":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("asr provider %q requires OPENAI_API_KEY", cfg.Provider)
		}
		return NewCloudWhisper(cfg.OpenAIAPIKey, "", wayuuPrompt()), nil

	case "wayuu", "wayuu-optimized":
		var strategies []Transcriber
		if cfg.OpenAIAPIKey != "" {
			// auto-detected language handles wayuunaiki better
			// than forcing Spanish up front
			strategies = append(strategies, NewCloudWhisper(cfg.OpenAIAPIKey, "", wayuuPrompt()))
		}
		if cfg.WhisperModel != "" {
			strategies = append(strategies, NewLocalWhisper(cfg.WhisperModel, ""))
		}
		if cfg.OpenAIAPIKey != "" && len(strategies) < 2 {
			strategies = append(strategies, NewCloudWhisper(cfg.OpenAIAPIKey, "es", wayuuPrompt()))
		}
		return NewChain(cfg.ConfidenceThreshold, strategies...)

	default:
		return nil, fmt.Errorf("unknown asr provider: %q", cfg.Provider)
	}
}

func wayuuPrompt() string {
	return "Audio en idioma wayuunaiki (guajiro), idioma indígena de la familia arawak " +
		"hablado por el pueblo wayuu en Colombia y Venezuela. Palabras comunes incluyen: " +
		joinFirst(WayuuVocabulary, 10) + "."
}

func joinFirst(words []string, n int) string {
	if len(words) < n {
		n = len(words)
	}
	out := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ", "
		}
		out += words[i]
	}
	return out
}
