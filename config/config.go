package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var gitSHA string
var buildDate string

func GetDataDir() string {
	value, exists := os.LookupEnv("WAYUU_INGEST_DATA_DIR")
	if exists {
		return value
	}
	return "data"
}

// defaults to GetDataDir() / youtube-audio
func GetAudioDir() string {
	value, exists := os.LookupEnv("WAYUU_INGEST_AUDIO_DIR")
	if exists {
		return value
	}
	return filepath.Join(GetDataDir(), "youtube-audio")
}

// defaults to GetDataDir() / config
func GetConfigDir() string {
	value, exists := os.LookupEnv("WAYUU_INGEST_CONFIG_DIR")
	if exists {
		return value
	}
	return filepath.Join(GetDataDir(), "config")
}

// path of the JSON ingestion record store
func GetRecordStorePath() string {
	value, exists := os.LookupEnv("WAYUU_INGEST_DB_PATH")
	if exists {
		return value
	}
	return filepath.Join(GetAudioDir(), "ingestion-db.json")
}

// one of "stub", "whisper", "openai", "wayuu"
func GetAsrProvider() string {
	value, exists := os.LookupEnv("ASR_PROVIDER")
	if exists {
		return value
	}
	return "stub"
}

func GetOpenAIAPIKey() string {
	value, _ := os.LookupEnv("OPENAI_API_KEY")
	return value
}

func GetWhisperModel() string {
	value, exists := os.LookupEnv("WHISPER_MODEL")
	if exists {
		return value
	}
	return "small"
}

func GetAsrConfidenceThreshold() float64 {
	return envFloat("ASR_CONFIDENCE_THRESHOLD", 0.6)
}

func GetMaxConcurrentJobs() int {
	return envInt("WAYUU_INGEST_MAX_CONCURRENT_JOBS", 2)
}

func GetJobTimeout() time.Duration {
	return envSeconds("WAYUU_INGEST_JOB_TIMEOUT_SECONDS", 300*time.Second)
}

func GetRateLimitMinDelay() time.Duration {
	return envSeconds("WAYUU_INGEST_RATE_LIMIT_MIN_SECONDS", 30*time.Second)
}

func GetRateLimitMaxDelay() time.Duration {
	return envSeconds("WAYUU_INGEST_RATE_LIMIT_MAX_SECONDS", 90*time.Second)
}

func GetHealthCheckInterval() time.Duration {
	return envSeconds("WAYUU_INGEST_HEALTH_INTERVAL_SECONDS", 60*time.Second)
}

func GetListenAddr() string {
	value, exists := os.LookupEnv("WAYUU_INGEST_LISTEN_ADDR")
	if exists {
		return value
	}
	return ":8080"
}

func GetGitSHA() string {
	if gitSHA == "" {
		return "<not provided>"
	} else {
		return gitSHA
	}
}

func GetBuildDate() string {
	if buildDate == "" {
		return "<not provided>"
	} else {
		return buildDate
	}
}

func envInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}
