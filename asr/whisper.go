package asr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// LocalWhisper shells out to a locally installed whisper CLI. Network
// is not involved, but model loading can still fail transiently under
// memory pressure, so it retries with exponential backoff within its
// own attempt budget.
type LocalWhisper struct {
	model       string
	language    string // empty means auto-detect
	maxAttempts int
	baseDelay   time.Duration

	run func(args ...string) ([]byte, []byte, error)
}

func NewLocalWhisper(model, language string) *LocalWhisper {
	if model == "" {
		model = "small"
	}
	return &LocalWhisper{
		model:       model,
		language:    language,
		maxAttempts: 3,
		baseDelay:   time.Second,
		run:         runWhisper,
	}
}

func runWhisper(args ...string) ([]byte, []byte, error) {
	whisper := "whisper"
	log.Infoln(whisper, strings.Join(args, " "))
	cmd := exec.Command(whisper, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	if err != nil {
		log.Errorf("whisper error: %v", err)
		log.Errorln("stderr:", stderr.String())
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

// Available reports whether the whisper binary is on PATH.
func (w *LocalWhisper) Available() bool {
	_, err := exec.LookPath("whisper")
	return err == nil
}

func (w *LocalWhisper) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return "", &TranscriptionError{Path: audioPath, Err: err}
	}

	outDir, err := os.MkdirTemp("", "wayuu-whisper-*")
	if err != nil {
		return "", fmt.Errorf("create whisper workspace: %w", err)
	}
	defer os.RemoveAll(outDir)

	args := []string{audioPath,
		"--model", w.model,
		"--task", "transcribe",
		"--output_format", "txt",
		"--output_dir", outDir,
	}
	if w.language != "" {
		args = append(args, "--language", w.language)
	}

	var lastErr error
	for attempt := 0; attempt < w.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := w.baseDelay << (attempt - 1)
			log.Warnf("whisper attempt %d failed, retrying in %s", attempt, delay)
			if err := sleepCtx(ctx, delay); err != nil {
				return "", err
			}
		}

		_, _, lastErr = w.run(args...)
		if lastErr != nil {
			continue
		}

		text, err := readTranscript(outDir, audioPath)
		if err != nil {
			lastErr = err
			continue
		}
		return text, nil
	}

	return "", fmt.Errorf("local whisper failed after %d attempts: %w", w.maxAttempts, lastErr)
}

// readTranscript finds the .txt file whisper writes next to the input
// base name.
func readTranscript(outDir, audioPath string) (string, error) {
	base := filepath.Base(audioPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	textPath := filepath.Join(outDir, base+".txt")

	content, err := os.ReadFile(textPath)
	if err != nil {
		return "", fmt.Errorf("whisper completed but transcript is missing: %w", err)
	}
	return strings.TrimSpace(string(content)), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
