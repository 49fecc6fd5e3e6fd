package asr

import (
	"context"
	"fmt"
)

// Stub returns a fixed transcription without touching the audio. Used
// for development and tests where no ASR hardware or credentials are
// available.
type Stub struct{}

func (s *Stub) Transcribe(ctx context.Context, audioPath string) (string, error) {
	log.Infoln("[stub] transcribing audio from:", audioPath)
	return fmt.Sprintf("This is a mock transcription for the audio file at %s. "+
		"The real transcription would be generated here.", audioPath), nil
}
