package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"wayuu-ingest/queue"
	"wayuu-ingest/records"
	"wayuu-ingest/translation"
)

// execute runs one queued job. Errors returned here feed the queue's
// retry policy; wrapping with queue.Permanent skips retries. Terminal
// failures surface through onJobFailed, which marks the record.
func (s *Service) execute(ctx context.Context, job queue.Job) error {
	switch job.Type {
	case queue.JobDownload:
		return s.runDownload(ctx, job)
	case queue.JobTranscription:
		return s.runTranscription(ctx, job)
	case queue.JobTranslation:
		return s.runTranslation(ctx, job)
	default:
		return queue.Permanent(fmt.Errorf("unknown job type: %s", job.Type))
	}
}

func (s *Service) runDownload(ctx context.Context, job queue.Job) error {
	rec, ok := s.store.Get(job.RecordID)
	if !ok {
		return queue.Permanent(records.ErrNotFound)
	}
	if rec.Status != records.StatusDownloading {
		return queue.Permanent(fmt.Errorf("record %s is %s, not downloading", rec.ID, rec.Status))
	}

	if err := s.limiter.AwaitSlot(ctx); err != nil {
		return err
	}

	dst := filepath.Join(s.audioDir, rec.ID+".mp3")
	if err := s.downloader.DownloadAudio(rec.URL, dst); err != nil {
		return fmt.Errorf("download %s: %w", rec.URL, err)
	}

	result := s.validator.Validate(dst)
	if !result.IsValid {
		// bad media will not improve on retry
		return queue.Permanent(fmt.Errorf("invalid media: %s", strings.Join(result.Errors, "; ")))
	}

	_, err := s.store.Advance(rec.ID, records.StatusPendingTranscription, func(r *records.Record) {
		r.AudioPath = dst
	})
	if err != nil {
		return queue.Permanent(err)
	}

	s.queue.Add(queue.JobTranscription, rec.ID, priorityTranscode, 0)
	return nil
}

func (s *Service) runTranscription(ctx context.Context, job queue.Job) error {
	rec, ok := s.store.Get(job.RecordID)
	if !ok {
		return queue.Permanent(records.ErrNotFound)
	}
	if rec.Status != records.StatusPendingTranscription {
		return queue.Permanent(fmt.Errorf("record %s is %s, not pending_transcription", rec.ID, rec.Status))
	}

	text, err := s.transcriber.Transcribe(ctx, rec.AudioPath)
	if err != nil {
		return fmt.Errorf("transcribe %s: %w", rec.ID, err)
	}
	log.Infof("transcription for %s: %q", rec.ID, truncate(text, 50))

	_, err = s.store.Advance(rec.ID, records.StatusPendingTranslation, func(r *records.Record) {
		r.Transcription = text
	})
	if err != nil {
		return queue.Permanent(err)
	}

	s.queue.Add(queue.JobTranslation, rec.ID, priorityTranslate, 0)
	return nil
}

func (s *Service) runTranslation(ctx context.Context, job queue.Job) error {
	rec, ok := s.store.Get(job.RecordID)
	if !ok {
		return queue.Permanent(records.ErrNotFound)
	}
	if rec.Status != records.StatusPendingTranslation {
		return queue.Permanent(fmt.Errorf("record %s is %s, not pending_translation", rec.ID, rec.Status))
	}

	result, err := s.translator.Translate(ctx, rec.Transcription, translation.WayuuToSpanish)
	if err != nil {
		return fmt.Errorf("translate %s: %w", rec.ID, err)
	}

	_, err = s.store.Advance(rec.ID, records.StatusCompleted, func(r *records.Record) {
		r.Translation = result.TranslatedText
	})
	if err != nil {
		return queue.Permanent(err)
	}

	log.Infof("record %s completed (translation confidence %.2f)", rec.ID, result.Confidence)
	return nil
}

func (s *Service) onJobCompleted(job queue.Job) {
	log.Debugf("job %s completed for record %s", job.ID, job.RecordID)
}

// onJobFailed marks the record terminally failed once the queue has
// exhausted retries. The failure is preserved for operator inspection.
func (s *Service) onJobFailed(job queue.Job) {
	log.Errorf("record %s failed at %s stage: %s", job.RecordID, job.Type, job.Error)
	if err := s.store.Fail(job.RecordID); err != nil {
		log.Errorf("could not mark record %s failed: %v", job.RecordID, err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
