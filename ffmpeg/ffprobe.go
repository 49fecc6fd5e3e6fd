package ffmpeg

import (
	"bytes"
	"encoding/json"
	"os/exec"
	"strconv"
	"strings"
)

// runs ffprobe with the provided args and returns (stdout, stderr, error)
func Ffprobe(args ...string) ([]byte, []byte, error) {
	ffprobe := "ffprobe"
	log.Debugln(ffprobe, strings.Join(args, " "))
	cmd := exec.Command(ffprobe, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	if err != nil {
		log.Errorf("ffprobe error: %v", err)
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

// Available reports whether the ffprobe binary can be run at all.
func Available() bool {
	_, _, err := Ffprobe("-version")
	return err == nil
}

type probeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		BitRate    string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		SampleRate string `json:"sample_rate"`
	} `json:"streams"`
}

type ProbeInfo struct {
	FormatName string
	Duration   float64
	BitRate    int
	SampleRate int
	HasAudio   bool
}

// Probe reads container and stream information for a media file.
func Probe(path string) (ProbeInfo, error) {
	stdout, _, err := Ffprobe("-v", "quiet", "-print_format", "json",
		"-show_format", "-show_streams", path)
	if err != nil {
		return ProbeInfo{}, err
	}
	return parseProbe(stdout)
}

func parseProbe(data []byte) (ProbeInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		log.Errorln("failed to parse ffprobe output:", err)
		return ProbeInfo{}, err
	}

	info := ProbeInfo{FormatName: out.Format.FormatName}
	info.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)
	info.BitRate, _ = strconv.Atoi(out.Format.BitRate)

	for _, stream := range out.Streams {
		if stream.CodecType == "audio" {
			info.HasAudio = true
			if info.SampleRate == 0 {
				info.SampleRate, _ = strconv.Atoi(stream.SampleRate)
			}
		}
	}
	return info, nil
}
