package pipeline

import (
	"time"

	"wayuu-ingest/asr"
)

type AsrCapabilities struct {
	MaxFileSize            string   `json:"maxFileSize"`
	SupportedFormats       []string `json:"supportedFormats"`
	EstimatedCostPerMinute string   `json:"estimatedCostPerMinute"`
}

type AsrStatus struct {
	Available bool      `json:"available"`
	LastCheck time.Time `json:"lastCheck"`
	Message   string    `json:"message"`
}

type AsrInfo struct {
	Provider     string          `json:"provider"`
	Capabilities AsrCapabilities `json:"capabilities"`
	Status       AsrStatus       `json:"status"`
}

// AsrConfiguration reports which transcription backend is active and
// what it can handle.
func (s *Service) AsrConfiguration() AsrInfo {
	info := AsrInfo{
		Provider: s.asrProvider,
		Capabilities: AsrCapabilities{
			MaxFileSize:            "Unlimited",
			SupportedFormats:       []string{"mp3", "wav", "mp4", "m4a", "ogg"},
			EstimatedCostPerMinute: "$0.00",
		},
		Status: AsrStatus{
			Available: true,
			LastCheck: time.Now(),
			Message:   "ASR service is operational",
		},
	}

	switch s.asrProvider {
	case "openai", "openai-api":
		info.Capabilities.MaxFileSize = "25MB"
		info.Capabilities.EstimatedCostPerMinute = "$0.006"
		info.Status.Message = "OpenAI Whisper API configured and ready"

	case "whisper", "whisper-local":
		info.Capabilities.MaxFileSize = "Unlimited (local processing)"
		info.Capabilities.EstimatedCostPerMinute = "$0.00 (local processing)"
		if lw, ok := s.transcriber.(*asr.LocalWhisper); ok && !lw.Available() {
			info.Status.Available = false
			info.Status.Message = "Local Whisper not found, install with: pip install openai-whisper"
		} else {
			info.Status.Message = "Local Whisper ready"
		}

	case "wayuu", "wayuu-optimized":
		if chain, ok := s.transcriber.(*asr.Chain); ok {
			info.Status.Message = "Wayuu-optimized chain ready"
			info.Capabilities.EstimatedCostPerMinute = "varies by strategy"
			if chain.StrategyCount() == 0 {
				info.Status.Available = false
			}
		}

	default:
		info.Capabilities.EstimatedCostPerMinute = "$0.00 (development mode)"
		info.Status.Message = "Using stub ASR for development - no real transcription"
	}

	return info
}
