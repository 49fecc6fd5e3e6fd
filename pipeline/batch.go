package pipeline

import (
	"context"
	"fmt"

	"wayuu-ingest/records"
	"wayuu-ingest/translation"
)

type ItemResult struct {
	RecordID    string `json:"videoId"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	Translation string `json:"translation,omitempty"`
	Error       string `json:"error,omitempty"`
}

// BatchResult reports partial success: one item failing never fails
// the whole batch.
type BatchResult struct {
	Message    string       `json:"message"`
	Processed  int          `json:"processed"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Results    []ItemResult `json:"results"`
}

// ProcessPendingTranscriptions synchronously transcribes every record
// stuck at pending_transcription. Records with a queued or in-flight
// job are skipped to keep the one-job-per-record invariant.
func (s *Service) ProcessPendingTranscriptions(ctx context.Context) BatchResult {
	log.Infoln("processing pending transcriptions...")
	result := BatchResult{Results: []ItemResult{}}

	for _, rec := range s.store.ByStatus(records.StatusPendingTranscription) {
		if s.queue.HasJobFor(rec.ID) {
			continue
		}
		result.Processed++

		text, err := s.transcriber.Transcribe(ctx, rec.AudioPath)
		if err != nil {
			s.failItem(&result, rec, err)
			continue
		}

		_, err = s.store.Advance(rec.ID, records.StatusPendingTranslation, func(r *records.Record) {
			r.Transcription = text
		})
		if err != nil {
			s.failItem(&result, rec, err)
			continue
		}

		result.Successful++
		result.Results = append(result.Results, ItemResult{
			RecordID: rec.ID,
			Title:    rec.Title,
			Status:   string(records.StatusPendingTranslation),
		})
	}

	result.Message = batchMessage("transcription", result)
	log.Infoln(result.Message)
	return result
}

// ProcessPendingTranslations synchronously translates every record
// stuck at pending_translation.
func (s *Service) ProcessPendingTranslations(ctx context.Context) BatchResult {
	log.Infoln("processing pending translations...")
	result := BatchResult{Results: []ItemResult{}}

	for _, rec := range s.store.ByStatus(records.StatusPendingTranslation) {
		if s.queue.HasJobFor(rec.ID) {
			continue
		}
		result.Processed++

		translated, err := s.translator.Translate(ctx, rec.Transcription, translation.WayuuToSpanish)
		if err != nil {
			s.failItem(&result, rec, err)
			continue
		}

		_, err = s.store.Advance(rec.ID, records.StatusCompleted, func(r *records.Record) {
			r.Translation = translated.TranslatedText
		})
		if err != nil {
			s.failItem(&result, rec, err)
			continue
		}

		result.Successful++
		result.Results = append(result.Results, ItemResult{
			RecordID:    rec.ID,
			Title:       rec.Title,
			Status:      string(records.StatusCompleted),
			Translation: translated.TranslatedText,
		})
	}

	result.Message = batchMessage("translation", result)
	log.Infoln(result.Message)
	return result
}

// ProcessAllPending drives both stuck stages, transcriptions first so
// newly translatable records are picked up in the same pass.
func (s *Service) ProcessAllPending(ctx context.Context) BatchResult {
	transcriptions := s.ProcessPendingTranscriptions(ctx)
	translations := s.ProcessPendingTranslations(ctx)

	combined := BatchResult{
		Processed:  transcriptions.Processed + translations.Processed,
		Successful: transcriptions.Successful + translations.Successful,
		Failed:     transcriptions.Failed + translations.Failed,
		Results:    append(transcriptions.Results, translations.Results...),
	}
	combined.Message = batchMessage("pending", combined)
	return combined
}

// failItem marks the record failed and records the per-item error.
func (s *Service) failItem(result *BatchResult, rec records.Record, err error) {
	log.Errorf("failed to process record %s: %v", rec.ID, err)
	if failErr := s.store.Fail(rec.ID); failErr != nil {
		log.Errorf("could not mark record %s failed: %v", rec.ID, failErr)
	}

	result.Failed++
	result.Results = append(result.Results, ItemResult{
		RecordID: rec.ID,
		Title:    rec.Title,
		Status:   string(records.StatusFailed),
		Error:    err.Error(),
	})
}

func batchMessage(stage string, result BatchResult) string {
	if result.Processed == 0 {
		return fmt.Sprintf("No records pending %s.", stage)
	}
	return fmt.Sprintf("Processed %d records: %d successful, %d failed.",
		result.Processed, result.Successful, result.Failed)
}
