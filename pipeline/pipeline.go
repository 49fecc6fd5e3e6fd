// Package pipeline drives a media source through download,
// transcription, and translation, persisting per-record state at every
// step. The queue owns retry and concurrency; this package owns the
// record state machine and the work each job type performs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"wayuu-ingest/asr"
	"wayuu-ingest/health"
	"wayuu-ingest/queue"
	"wayuu-ingest/ratelimit"
	"wayuu-ingest/records"
	"wayuu-ingest/translation"
	"wayuu-ingest/validate"
	"wayuu-ingest/ytdlp"
)

// Job priorities: downloads ahead of everything so new sources enter
// the pipeline promptly; later stages share a level.
const (
	priorityDownload  = 10
	priorityTranscode = 5
	priorityTranslate = 5
)

// Downloader fetches source metadata and media. The default
// implementation shells out to yt-dlp.
type Downloader interface {
	FetchMetadata(url string) (ytdlp.Metadata, error)
	DownloadAudio(url, dst string) error
}

type YtdlpDownloader struct{}

func (YtdlpDownloader) FetchMetadata(url string) (ytdlp.Metadata, error) {
	return ytdlp.FetchMetadata(url)
}

func (YtdlpDownloader) DownloadAudio(url, dst string) error {
	return ytdlp.DownloadAudio(url, dst)
}

type Config struct {
	Store       *records.Store
	Limiter     *ratelimit.Limiter
	Validator   *validate.Validator
	Transcriber asr.Transcriber
	Translator  translation.Translator
	Downloader  Downloader
	Monitor     *health.Monitor
	AudioDir    string
	AsrProvider string

	Queue queue.Options
}

type Service struct {
	store       *records.Store
	limiter     *ratelimit.Limiter
	validator   *validate.Validator
	transcriber asr.Transcriber
	translator  translation.Translator
	downloader  Downloader
	monitor     *health.Monitor
	queue       *queue.Queue
	audioDir    string
	asrProvider string
}

func New(cfg Config) (*Service, error) {
	switch {
	case cfg.Store == nil:
		return nil, errors.New("pipeline: record store is required")
	case cfg.Transcriber == nil:
		return nil, errors.New("pipeline: transcriber is required")
	case cfg.Translator == nil:
		return nil, errors.New("pipeline: translator is required")
	case cfg.AudioDir == "":
		return nil, errors.New("pipeline: audio dir is required")
	}

	if cfg.Downloader == nil {
		cfg.Downloader = YtdlpDownloader{}
	}
	if cfg.Validator == nil {
		cfg.Validator = validate.New()
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.New(30*time.Second, 90*time.Second)
	}

	s := &Service{
		store:       cfg.Store,
		limiter:     cfg.Limiter,
		validator:   cfg.Validator,
		transcriber: cfg.Transcriber,
		translator:  cfg.Translator,
		downloader:  cfg.Downloader,
		monitor:     cfg.Monitor,
		audioDir:    cfg.AudioDir,
		asrProvider: cfg.AsrProvider,
	}

	opts := cfg.Queue
	opts.OnCompleted = s.onJobCompleted
	opts.OnFailed = s.onJobFailed
	s.queue = queue.New(s.execute, opts)

	if err := os.MkdirAll(cfg.AudioDir, 0700); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	return s, nil
}

func (s *Service) Start() {
	s.queue.Start()
	if s.monitor != nil {
		s.monitor.Start()
	}
}

func (s *Service) Stop() {
	s.queue.Stop()
	if s.monitor != nil {
		s.monitor.Stop()
	}
}

// Ingest resolves a source URL to a record and enqueues its download.
// The metadata fetch is an outbound call to the source, so it waits
// for a rate-limiter slot like the download itself.
func (s *Service) Ingest(ctx context.Context, url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", errors.New("url is required")
	}

	if err := s.limiter.AwaitSlot(ctx); err != nil {
		return "", err
	}
	meta, err := s.downloader.FetchMetadata(url)
	if err != nil {
		return "", fmt.Errorf("fetch metadata: %w", err)
	}

	if existing, ok := s.store.Get(meta.ID); ok && s.queue.HasJobFor(meta.ID) {
		log.Infoln("record", meta.ID, "already in flight, status:", existing.Status)
		return meta.ID, nil
	}

	_, err = s.store.Create(records.Record{
		ID:     meta.ID,
		Title:  meta.Title,
		URL:    url,
		Status: records.StatusDownloading,
	})
	if err != nil {
		return "", err
	}

	s.queue.Add(queue.JobDownload, meta.ID, priorityDownload, 0)
	return meta.ID, nil
}

// UploadMetadata describes a directly uploaded file.
type UploadMetadata struct {
	Title string
}

// UploadFile validates an uploaded media file, takes ownership of a
// copy under the audio dir, and creates the record directly in
// pending_transcription (no download stage).
func (s *Service) UploadFile(path string, meta UploadMetadata) (string, error) {
	result := s.validator.Validate(path)
	if !result.IsValid {
		return "", fmt.Errorf("invalid media: %s", strings.Join(result.Errors, "; "))
	}

	id := "upload_" + uuid.Must(uuid.NewV7()).String()
	dst := filepath.Join(s.audioDir, id+filepath.Ext(path))
	if err := copyFile(path, dst); err != nil {
		return "", fmt.Errorf("store uploaded file: %w", err)
	}

	title := meta.Title
	if title == "" {
		title = filepath.Base(path)
	}

	_, err := s.store.Create(records.Record{
		ID:        id,
		Title:     title,
		Status:    records.StatusPendingTranscription,
		AudioPath: dst,
	})
	if err != nil {
		_ = os.Remove(dst)
		return "", err
	}

	s.queue.Add(queue.JobTranscription, id, priorityTranscode, 0)
	return id, nil
}

// DeleteRecord removes the record and the media file it owns.
func (s *Service) DeleteRecord(id string) error {
	rec, ok := s.store.Get(id)
	if !ok {
		return records.ErrNotFound
	}

	if rec.AudioPath != "" {
		if err := os.Remove(rec.AudioPath); err != nil && !os.IsNotExist(err) {
			log.Warnf("could not remove %s: %v", rec.AudioPath, err)
		}
	}
	return s.store.Delete(id)
}

// ResetForRetranslation moves a completed record back to
// pending_translation so the translation stage can be re-run.
func (s *Service) ResetForRetranslation(id string) (records.Record, error) {
	return s.store.ResetForRetranslation(id)
}

type RecordSummary struct {
	ID        string         `json:"videoId"`
	Title     string         `json:"title"`
	Status    records.Status `json:"status"`
	CreatedAt string         `json:"createdAt"`
	UpdatedAt string         `json:"updatedAt"`
}

type DatabaseStatus struct {
	Total    int                    `json:"total"`
	ByStatus map[records.Status]int `json:"byStatus"`
	Records  []RecordSummary        `json:"videos"`
}

func (s *Service) Status() DatabaseStatus {
	all := s.store.List()
	status := DatabaseStatus{
		Total:    len(all),
		ByStatus: s.store.CountByStatus(),
		Records:  make([]RecordSummary, 0, len(all)),
	}
	for _, rec := range all {
		status.Records = append(status.Records, RecordSummary{
			ID:        rec.ID,
			Title:     rec.Title,
			Status:    rec.Status,
			CreatedAt: rec.CreatedAt.Format(time.RFC3339),
			UpdatedAt: rec.UpdatedAt.Format(time.RFC3339),
		})
	}
	return status
}

func (s *Service) QueueStats() queue.Stats {
	return s.queue.Stats()
}

func (s *Service) Health() health.SystemHealth {
	return s.monitor.SystemHealth()
}

func (s *Service) ForceHealthCheck() health.SystemHealth {
	return s.monitor.ForceCheck()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
