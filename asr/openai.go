package asr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const openaiMaxUploadSize = 25 * 1024 * 1024 // API hard limit

// CloudWhisper calls the OpenAI audio transcription endpoint. Rate
// limiting and server errors are retried with exponential backoff
// within the strategy's own attempt budget.
type CloudWhisper struct {
	apiKey   string
	language string // empty means auto-detect
	prompt   string
	model    string

	baseURL     string
	client      *http.Client
	maxAttempts int
	baseDelay   time.Duration
}

func NewCloudWhisper(apiKey, language, prompt string) *CloudWhisper {
	return &CloudWhisper{
		apiKey:      apiKey,
		language:    language,
		prompt:      prompt,
		model:       "whisper-1",
		baseURL:     "https://api.openai.com",
		client:      &http.Client{Timeout: 120 * time.Second},
		maxAttempts: 3,
		baseDelay:   2 * time.Second,
	}
}

func (c *CloudWhisper) Transcribe(ctx context.Context, audioPath string) (string, error) {
	stat, err := os.Stat(audioPath)
	if err != nil {
		return "", &TranscriptionError{Path: audioPath, Err: err}
	}
	if stat.Size() > openaiMaxUploadSize {
		return "", fmt.Errorf("file %s exceeds the 25MB API limit (%d bytes)", audioPath, stat.Size())
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay << (attempt - 1)
			log.Warnf("openai transcription attempt %d failed, retrying in %s", attempt, delay)
			if err := sleepCtx(ctx, delay); err != nil {
				return "", err
			}
		}

		text, retryable, err := c.request(ctx, audioPath)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}

	return "", fmt.Errorf("openai transcription failed after %d attempts: %w", c.maxAttempts, lastErr)
}

// request performs one upload. The multipart body is rebuilt per call
// so each retry re-reads the file.
func (c *CloudWhisper) request(ctx context.Context, audioPath string) (text string, retryable bool, err error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", false, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", false, err
	}

	fields := map[string]string{
		"model":           c.model,
		"response_format": "text",
		"temperature":     "0",
	}
	if c.language != "" {
		fields["language"] = c.language
	}
	if c.prompt != "" {
		fields["prompt"] = c.prompt
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return "", false, err
		}
	}
	if err := writer.Close(); err != nil {
		return "", false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return strings.TrimSpace(string(payload)), false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", true, fmt.Errorf("openai api status %d: %s", resp.StatusCode, excerpt(payload))
	default:
		return "", false, fmt.Errorf("openai api status %d: %s", resp.StatusCode, excerpt(payload))
	}
}

func excerpt(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
