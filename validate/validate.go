// Package validate gates entry into the pipeline: it is cheaper to
// reject unusable media here than after a transcription attempt.
package validate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"wayuu-ingest/ffmpeg"
)

const (
	minFileSize   = 1024              // reject below this
	largeFileSize = 100 * 1024 * 1024 // warn above this
)

var supportedExtensions = []string{
	".mp3", ".wav", ".mp4", ".m4a", ".ogg", ".avi", ".mov", ".mkv", ".webm",
}

type FileInfo struct {
	Size       int64   `json:"size"`
	Duration   float64 `json:"duration,omitempty"`
	Format     string  `json:"format,omitempty"`
	SampleRate int     `json:"sampleRate,omitempty"`
	Bitrate    int     `json:"bitrate,omitempty"`
}

type Result struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	FileInfo FileInfo `json:"fileInfo"`
}

// Summary renders a one-line report for logging.
func (r Result) Summary() string {
	status := "VALID"
	if !r.IsValid {
		status = "INVALID"
	}
	duration := "unknown"
	if r.FileInfo.Duration > 0 {
		duration = fmt.Sprintf("%.1fs", r.FileInfo.Duration)
	}
	format := r.FileInfo.Format
	if format == "" {
		format = "unknown"
	}
	summary := fmt.Sprintf("%s - %.2fMB, %s, %s",
		status, float64(r.FileInfo.Size)/1024/1024, duration, format)
	if len(r.Errors) > 0 {
		summary += fmt.Sprintf(" - errors: %d", len(r.Errors))
	}
	if len(r.Warnings) > 0 {
		summary += fmt.Sprintf(" - warnings: %d", len(r.Warnings))
	}
	return summary
}

type Validator struct {
	probe          func(path string) (ffmpeg.ProbeInfo, error)
	probeAvailable func() bool
}

func New() *Validator {
	return &Validator{
		probe:          ffmpeg.Probe,
		probeAvailable: ffmpeg.Available,
	}
}

// NewForTests builds a validator with an injected probe.
func NewForTests(probe func(path string) (ffmpeg.ProbeInfo, error), available func() bool) *Validator {
	return &Validator{probe: probe, probeAvailable: available}
}

// Validate checks existence, size bounds, media streams, and a
// best-effort corruption heuristic. If ffprobe is unavailable the
// format check falls back to the file extension with a warning rather
// than hard-failing.
func (v *Validator) Validate(path string) Result {
	result := Result{
		IsValid:  true,
		Errors:   []string{},
		Warnings: []string{},
	}

	stat, err := os.Stat(path)
	if err != nil {
		result.Errors = append(result.Errors, "file does not exist")
		result.IsValid = false
		return result
	}
	result.FileInfo.Size = stat.Size()

	if stat.Size() < minFileSize {
		result.Errors = append(result.Errors, "file is too small (less than 1KB)")
		result.IsValid = false
	}
	if stat.Size() > largeFileSize {
		result.Warnings = append(result.Warnings, "file is very large (>100MB), processing may be slow")
	}

	v.validateMedia(path, &result)
	v.checkIntegrity(path, &result)

	log.Infoln("validated", path, "-", result.Summary())
	return result
}

func (v *Validator) validateMedia(path string, result *Result) {
	if !v.probeAvailable() {
		result.Warnings = append(result.Warnings, "could not validate file format with ffprobe")
		v.validateByExtension(path, result)
		return
	}

	info, err := v.probe(path)
	if err != nil {
		result.Errors = append(result.Errors, "invalid file format - cannot read media information")
		result.IsValid = false
		return
	}

	result.FileInfo.Duration = info.Duration
	result.FileInfo.Format = info.FormatName
	result.FileInfo.Bitrate = info.BitRate
	result.FileInfo.SampleRate = info.SampleRate

	switch {
	case info.Duration == 0:
		result.Errors = append(result.Errors, "file has zero duration")
		result.IsValid = false
	case info.Duration < 1:
		result.Warnings = append(result.Warnings, "file is very short (less than 1 second)")
	case info.Duration > 3600:
		result.Warnings = append(result.Warnings, "file is very long (>1 hour), processing may take significant time")
	}

	if !info.HasAudio {
		result.Errors = append(result.Errors, "no audio stream found in file")
		result.IsValid = false
	}
}

func (v *Validator) validateByExtension(path string, result *Result) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range supportedExtensions {
		if ext == supported {
			result.FileInfo.Format = strings.TrimPrefix(ext, ".")
			return
		}
	}
	result.Errors = append(result.Errors, fmt.Sprintf("unsupported file format: %s", ext))
	result.IsValid = false
}

// checkIntegrity samples the head and tail of the file; a file that is
// all zero bytes in both samples is likely a truncated download.
func (v *Validator) checkIntegrity(path string, result *Result) {
	f, err := os.Open(path)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("could not verify file integrity: %v", err))
		return
	}
	defer f.Close()

	head := make([]byte, 1024)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		result.Warnings = append(result.Warnings, fmt.Sprintf("could not verify file integrity: %v", err))
		return
	}
	zeros := allZero(head[:n])

	if result.FileInfo.Size > 2048 {
		tail := make([]byte, 1024)
		if m, err := f.ReadAt(tail, result.FileInfo.Size-1024); err == nil || err == io.EOF {
			zeros = zeros && allZero(tail[:m])
		}
	}

	if zeros && result.FileInfo.Size > minFileSize {
		result.Warnings = append(result.Warnings, "file appears to contain only zero bytes - may be corrupted")
	}
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
