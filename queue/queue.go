package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type JobType string

const (
	JobDownload      JobType = "download"
	JobTranscription JobType = "transcription"
	JobTranslation   JobType = "translation"
)

// Job is one unit of queued work tied to a record.
type Job struct {
	ID          string
	Type        JobType
	RecordID    string
	Priority    int
	Attempts    int
	MaxAttempts int
	CreatedAt   time.Time
	ScheduledAt time.Time // zero means ready now
	StartedAt   time.Time
	CompletedAt time.Time
	Error       string
}

type Stats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Retrying   int `json:"retrying"`
}

// Executor runs one job. The context carries the per-job timeout.
type Executor func(ctx context.Context, job Job) error

// PermanentError marks a failure that must not be retried, such as
// invalid media. The queue moves the job straight to the failed list.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

type Options struct {
	MaxConcurrent int
	MaxAttempts   int
	JobTimeout    time.Duration
	RetryDelays   []time.Duration
	PollInterval  time.Duration

	// Terminal outcomes only; retries are internal to the queue.
	OnCompleted func(Job)
	OnFailed    func(Job)
}

var defaultRetryDelays = []time.Duration{5 * time.Second, 15 * time.Second, 60 * time.Second}

// Queue runs at most MaxConcurrent jobs at a time. A dispatcher
// goroutine polls the pending list for ready jobs and hands them to a
// fixed pool of workers over a channel; failed jobs are rescheduled
// with increasing delay until their attempts run out.
type Queue struct {
	mu         sync.Mutex
	pending    []*Job // priority order, retries pushed to the front
	processing map[string]*Job
	completed  []*Job
	failed     []*Job

	opts     Options
	executor Executor
	ready    chan *Job
	done     chan struct{}
	wg       sync.WaitGroup
	started  bool
}

func New(executor Executor, opts Options) *Queue {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 300 * time.Second
	}
	if len(opts.RetryDelays) == 0 {
		opts.RetryDelays = defaultRetryDelays
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}

	return &Queue{
		processing: make(map[string]*Job),
		opts:       opts,
		executor:   executor,
		ready:      make(chan *Job),
		done:       make(chan struct{}),
	}
}

func (q *Queue) Start() {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	for i := 0; i < q.opts.MaxConcurrent; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.wg.Add(1)
	go q.dispatch()
}

// Stop halts dispatching and waits for the workers to drain. In-flight
// executors run to completion; their timeout is the only forced stop.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	q.mu.Unlock()

	close(q.done)
	q.wg.Wait()
}

// Add inserts a job in priority order (higher first, stable for equal
// priority) and returns its id.
func (q *Queue) Add(t JobType, recordID string, priority int, maxAttempts int) string {
	if maxAttempts <= 0 {
		maxAttempts = q.opts.MaxAttempts
	}
	job := &Job{
		ID:          fmt.Sprintf("%s_%s_%s", t, recordID, uuid.Must(uuid.NewV7()).String()),
		Type:        t,
		RecordID:    recordID,
		Priority:    priority,
		MaxAttempts: maxAttempts,
		CreatedAt:   time.Now(),
	}

	q.mu.Lock()
	idx := len(q.pending)
	for i, queued := range q.pending {
		if queued.Priority < job.Priority {
			idx = i
			break
		}
	}
	q.pending = append(q.pending, nil)
	copy(q.pending[idx+1:], q.pending[idx:])
	q.pending[idx] = job
	q.mu.Unlock()

	log.Infof("job added: %s", job.ID)
	return job.ID
}

// HasJobFor reports whether a record already has a pending or
// in-flight job. The pipeline consults this before enqueueing so a
// record never has two jobs at once.
func (q *Queue) HasJobFor(recordID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, job := range q.pending {
		if job.RecordID == recordID {
			return true
		}
	}
	for _, job := range q.processing {
		if job.RecordID == recordID {
			return true
		}
	}
	return false
}

func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	retrying := 0
	for _, job := range q.pending {
		if job.Attempts > 0 {
			retrying++
		}
	}
	return Stats{
		Pending:    len(q.pending) - retrying,
		Processing: len(q.processing),
		Completed:  len(q.completed),
		Failed:     len(q.failed),
		Retrying:   retrying,
	}
}

// FailedJobs returns terminally failed jobs for operator inspection.
func (q *Queue) FailedJobs() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Job, 0, len(q.failed))
	for _, job := range q.failed {
		out = append(out, *job)
	}
	return out
}

// dispatch is a cooperative polling loop: job volume is low and the
// work is I/O-bound, so there is no need for an event-driven wakeup.
func (q *Queue) dispatch() {
	defer q.wg.Done()

	for {
		job := q.takeReady()
		if job == nil {
			select {
			case <-q.done:
				close(q.ready)
				return
			case <-time.After(q.opts.PollInterval):
			}
			continue
		}

		select {
		case <-q.done:
			// put it back; a restart will pick it up
			q.mu.Lock()
			delete(q.processing, job.ID)
			q.pending = append([]*Job{job}, q.pending...)
			q.mu.Unlock()
			close(q.ready)
			return
		case q.ready <- job:
		}
	}
}

// takeReady pops the first job whose schedule has arrived, provided
// the concurrency budget allows it, and marks it started.
func (q *Queue) takeReady() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.processing) >= q.opts.MaxConcurrent {
		return nil
	}

	now := time.Now()
	for i, job := range q.pending {
		if !job.ScheduledAt.IsZero() && job.ScheduledAt.After(now) {
			continue
		}
		q.pending = append(q.pending[:i], q.pending[i+1:]...)
		job.Attempts++
		job.StartedAt = now
		q.processing[job.ID] = job
		log.Infof("starting job %s (attempt %d/%d)", job.ID, job.Attempts, job.MaxAttempts)
		return job
	}
	return nil
}

func (q *Queue) worker() {
	defer q.wg.Done()

	for job := range q.ready {
		q.run(job)
	}
}

func (q *Queue) run(job *Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.opts.JobTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- q.executor(ctx, *job)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			q.handleError(job, err)
		} else {
			q.complete(job)
		}
	case <-ctx.Done():
		q.handleError(job, fmt.Errorf("timeout after %s", q.opts.JobTimeout))
	}
}

func (q *Queue) complete(job *Job) {
	q.mu.Lock()
	job.CompletedAt = time.Now()
	delete(q.processing, job.ID)
	q.completed = append(q.completed, job)
	q.mu.Unlock()

	log.Infof("job completed: %s", job.ID)
	if q.opts.OnCompleted != nil {
		q.opts.OnCompleted(*job)
	}
}

func (q *Queue) handleError(job *Job, err error) {
	job.Error = err.Error()

	var perm *PermanentError
	permanent := errors.As(err, &perm)

	q.mu.Lock()
	delete(q.processing, job.ID)

	if !permanent && job.Attempts < job.MaxAttempts {
		delay := q.retryDelay(job.Attempts)
		job.ScheduledAt = time.Now().Add(delay)
		// retries go to the front so they are inspected before
		// older fresh jobs of the same priority
		q.pending = append([]*Job{job}, q.pending...)
		q.mu.Unlock()

		log.Warnf("job failed: %s - %s; retry in %s", job.ID, job.Error, delay)
		return
	}

	job.CompletedAt = time.Now()
	q.failed = append(q.failed, job)
	q.mu.Unlock()

	log.Errorf("job terminally failed: %s - %s", job.ID, job.Error)
	if q.opts.OnFailed != nil {
		q.opts.OnFailed(*job)
	}
}

// retryDelay indexes the backoff table by the attempt just made,
// clamped to the last entry.
func (q *Queue) retryDelay(attempt int) time.Duration {
	delays := q.opts.RetryDelays
	if attempt-1 < len(delays) {
		return delays[attempt-1]
	}
	return delays[len(delays)-1]
}
