package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

var ErrNotFound = errors.New("record not found")

// Store keeps the full record map in memory and rewrites the backing
// JSON file on every mutation, so the pipeline survives restarts. All
// access goes through a single mutex; the pipeline additionally
// guarantees at most one in-flight job per record.
type Store struct {
	mu      sync.Mutex
	path    string
	records map[string]*Record
	now     func() time.Time
}

func Open(path string) (*Store, error) {
	s := &Store{
		path:    path,
		records: make(map[string]*Record),
		now:     time.Now,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read record store %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &s.records); err != nil {
		return nil, fmt.Errorf("record store %s is corrupted: %w", path, err)
	}

	corrupted := 0
	for id, rec := range s.records {
		if !rec.Valid() {
			corrupted++
			log.Errorf("record %q is missing required fields", id)
		}
	}
	if corrupted > 0 {
		log.Errorf("record store loaded with %d corrupted records", corrupted)
	} else {
		log.Infof("record store loaded (%d records)", len(s.records))
	}
	return s, nil
}

// flush rewrites the whole map. Caller must hold s.mu.
func (s *Store) flush() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

// Create inserts a new record. Ingested videos start in downloading;
// direct uploads start in pending_transcription.
func (s *Store) Create(rec Record) (Record, error) {
	if rec.ID == "" {
		return Record{}, errors.New("record id is required")
	}
	if rec.Status != StatusDownloading && rec.Status != StatusPendingTranscription {
		return Record{}, fmt.Errorf("record %s: cannot be created in status %s", rec.ID, rec.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if existing, ok := s.records[rec.ID]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	s.records[rec.ID] = &rec

	if err := s.flush(); err != nil {
		return Record{}, err
	}
	log.Debugln("record", rec.ID, "created in status", rec.Status)
	return rec, nil
}

// Advance moves a record to a new status, applying mutate under the
// same write so the transition and its payload land together.
func (s *Store) Advance(id string, to Status, mutate func(*Record)) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if !allowedTransition(rec.Status, to) {
		return Record{}, &TransitionError{ID: id, From: rec.Status, To: to}
	}

	if mutate != nil {
		mutate(rec)
	}
	if rec.Translation != "" && rec.Transcription == "" {
		return Record{}, fmt.Errorf("record %s: translation without transcription", id)
	}
	if to == StatusCompleted && (rec.Transcription == "" || rec.Translation == "") {
		return Record{}, fmt.Errorf("record %s: cannot complete without transcription and translation", id)
	}

	log.Debugln("record", id, "status", rec.Status, "->", to)
	rec.Status = to
	rec.UpdatedAt = s.now()

	if err := s.flush(); err != nil {
		return Record{}, err
	}
	return *rec, nil
}

// Fail marks a record terminally failed. Failing an already-failed
// record is a no-op; completed records cannot fail.
func (s *Store) Fail(id string) error {
	_, err := s.Advance(id, StatusFailed, nil)
	return err
}

// ResetForRetranslation is the administrative recovery path that moves
// a completed record back to pending_translation, keeping its
// transcription so translation can be re-run.
func (s *Store) ResetForRetranslation(id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if rec.Status != StatusCompleted {
		return Record{}, &TransitionError{ID: id, From: rec.Status, To: StatusPendingTranslation}
	}

	rec.Status = StatusPendingTranslation
	rec.Translation = ""
	rec.UpdatedAt = s.now()

	if err := s.flush(); err != nil {
		return Record{}, err
	}
	log.Infoln("record", id, "reset for re-translation")
	return *rec, nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	delete(s.records, id)
	return s.flush()
}

func (s *Store) Get(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// List returns all records ordered by creation time.
func (s *Store) List() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Store) ByStatus(status Status) []Record {
	var out []Record
	for _, rec := range s.List() {
		if rec.Status == status {
			out = append(out, rec)
		}
	}
	return out
}

func (s *Store) CountByStatus() map[Status]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[Status]int)
	for _, rec := range s.records {
		counts[rec.Status]++
	}
	return counts
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) Path() string {
	return s.path
}

// Verify re-reads the backing file and reports how many records are
// missing required fields. Used by the health monitor.
func Verify(path string) (total int, corrupted int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}

	var loaded map[string]*Record
	if err := json.Unmarshal(data, &loaded); err != nil {
		return 0, 0, fmt.Errorf("record store is corrupted: %w", err)
	}

	for _, rec := range loaded {
		if !rec.Valid() {
			corrupted++
		}
	}
	return len(loaded), corrupted, nil
}
