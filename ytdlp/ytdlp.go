package ytdlp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// runs yt-dlp with the provided args and returns (stdout, stderr, error)
func Run(args ...string) ([]byte, []byte, error) {
	ytdlp := "yt-dlp"
	log.Infoln(ytdlp, strings.Join(args, " "))
	cmd := exec.Command(ytdlp, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	if err != nil {
		log.Errorf("yt-dlp error: %v", err)
		log.Errorln("stderr:", stderr.String())
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

func Version() (string, error) {
	stdout, _, err := Run("--version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(stdout)), nil
}

type Metadata struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

// FetchMetadata asks yt-dlp for the video id and title without
// downloading anything.
func FetchMetadata(url string) (Metadata, error) {
	stdout, _, err := Run("--dump-single-json", "--no-playlist", url)
	if err != nil {
		return Metadata{}, err
	}

	var meta Metadata
	if err := json.Unmarshal(stdout, &meta); err != nil {
		return Metadata{}, fmt.Errorf("parse yt-dlp metadata: %w", err)
	}
	if meta.ID == "" {
		return Metadata{}, fmt.Errorf("yt-dlp returned no video id for %s", url)
	}
	return meta, nil
}

// DownloadAudio extracts the best audio track to mp3 at dst.
func DownloadAudio(url, dst string) error {
	_, _, err := Run("--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "0",
		"--no-playlist",
		"-o", dst,
		url)
	return err
}
