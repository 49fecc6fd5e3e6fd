package records

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusDownloading          Status = "downloading"
	StatusPendingTranscription Status = "pending_transcription"
	StatusPendingTranslation   Status = "pending_translation"
	StatusCompleted            Status = "completed"
	StatusFailed               Status = "failed"
)

// Record is the persisted state of one ingested media source.
// The JSON field names match the on-disk store format.
type Record struct {
	ID            string    `json:"videoId"`
	Title         string    `json:"title"`
	URL           string    `json:"url"`
	Status        Status    `json:"status"`
	AudioPath     string    `json:"audioPath"`
	Transcription string    `json:"transcription,omitempty"`
	Translation   string    `json:"translation,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Valid reports whether a loaded record carries the required fields.
func (r *Record) Valid() bool {
	return r != nil && r.ID != "" && r.Status != ""
}

// allowedTransition enforces the record state machine edges. A record
// may keep its status across retries, and any non-terminal state may
// drop to failed. Failed and completed are terminal for automatic
// processing; completed -> pending_translation is the manual
// re-translation path handled by Store.ResetForRetranslation.
func allowedTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusDownloading:
		return to == StatusPendingTranscription || to == StatusFailed
	case StatusPendingTranscription:
		return to == StatusPendingTranslation || to == StatusFailed
	case StatusPendingTranslation:
		return to == StatusCompleted || to == StatusFailed
	case StatusCompleted, StatusFailed:
		return false
	default:
		return false
	}
}

type TransitionError struct {
	ID   string
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("record %s: invalid transition %s -> %s", e.ID, e.From, e.To)
}
