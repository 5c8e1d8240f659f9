package queue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Dispatcher executes one job to completion and returns its result. The
// queue guarantees Dispatch is never invoked concurrently.
type Dispatcher interface {
	Dispatch(ctx context.Context, job *Job) (*Result, error)
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, job *Job) (*Result, error)

func (f DispatcherFunc) Dispatch(ctx context.Context, job *Job) (*Result, error) {
	return f(ctx, job)
}

// Options configures a Queue.
type Options struct {
	// Cooldown is the pause between two consecutive jobs, so back-to-back
	// jobs do not hammer the rate-limited LLM endpoint.
	Cooldown time.Duration
}

// Queue is an in-process, single-consumer, multi-producer FIFO work queue.
// Jobs are appended by Add and consumed by one background goroutine that
// runs while pending work exists. State is memory-resident: a restart loses
// all jobs, by design.
type Queue struct {
	dispatcher Dispatcher
	logger     *slog.Logger
	cooldown   time.Duration

	mu         sync.Mutex
	jobs       []*Job
	processing bool
	current    *Job
}

// New creates an idle queue. Processing starts with the first Add.
func New(dispatcher Dispatcher, logger *slog.Logger, opts Options) *Queue {
	return &Queue{
		dispatcher: dispatcher,
		logger:     logger,
		cooldown:   opts.Cooldown,
	}
}

// Add admits a job and returns its id. Admission always succeeds and returns
// before any processing happens: when the consumer is idle it is started as a
// separate goroutine, never run in the caller's stack.
func (q *Queue) Add(jobType JobType, payload Payload) string {
	return q.AddWithID("", jobType, payload)
}

// AddWithID admits a job under a caller-supplied id, generating one when empty.
func (q *Queue) AddWithID(id string, jobType JobType, payload Payload) string {
	if strings.TrimSpace(id) == "" {
		id = newJobID()
	}

	job := &Job{
		ID:        id,
		Type:      jobType,
		Payload:   payload,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}

	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	startConsumer := !q.processing
	if startConsumer {
		q.processing = true
	}
	q.mu.Unlock()

	q.logger.Info("Job added to queue",
		slog.String("job_id", job.ID),
		slog.String("job_type", string(jobType)),
	)

	if startConsumer {
		go q.consume()
	}

	return id
}

// consume drains pending jobs in admission order, then goes idle. The
// processing flag is owned by exactly one goroutine at a time: it is set by
// the Add that observed it false and cleared here under the same mutex that
// checked for remaining work, so a job admitted concurrently either sees the
// flag still set or starts a fresh consumer.
func (q *Queue) consume() {
	for {
		q.mu.Lock()
		job := q.firstPendingLocked()
		if job == nil {
			q.processing = false
			q.mu.Unlock()
			return
		}
		job.Status = StatusProcessing
		job.StartedAt = time.Now()
		q.current = job
		q.mu.Unlock()

		q.logger.Info("Job started",
			slog.String("job_id", job.ID),
			slog.String("job_type", string(job.Type)),
		)

		result, err := q.dispatcher.Dispatch(context.Background(), job)

		q.mu.Lock()
		job.CompletedAt = time.Now()
		if err != nil {
			job.Status = StatusError
			job.Error = err.Error()
		} else {
			job.Status = StatusCompleted
			job.Result = result
		}
		q.current = nil
		q.mu.Unlock()

		if err != nil {
			q.logger.Error("Job failed",
				slog.String("job_id", job.ID),
				slog.String("job_type", string(job.Type)),
				slog.String("error", err.Error()),
			)
		} else {
			q.logger.Info("Job completed",
				slog.String("job_id", job.ID),
				slog.String("job_type", string(job.Type)),
				slog.Duration("duration", job.CompletedAt.Sub(job.StartedAt)),
			)
		}

		if q.cooldown > 0 {
			time.Sleep(q.cooldown)
		}
	}
}

func (q *Queue) firstPendingLocked() *Job {
	for _, j := range q.jobs {
		if j.Status == StatusPending {
			return j
		}
	}
	return nil
}

// Status returns a read-only projection of one job, or nil when unknown.
func (q *Queue) Status(jobID string) *JobView {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, j := range q.jobs {
		if j.ID == jobID {
			v := j.view()
			return &v
		}
	}
	return nil
}

// AllStatuses returns projections for every job ever admitted, in admission
// order. Nothing is pruned unless Cleanup runs.
func (q *Queue) AllStatuses() []JobView {
	q.mu.Lock()
	defer q.mu.Unlock()

	views := make([]JobView, 0, len(q.jobs))
	for _, j := range q.jobs {
		views = append(views, j.view())
	}
	return views
}

// InfoSnapshot returns point-in-time counts by status plus the in-flight job.
func (q *Queue) InfoSnapshot() Info {
	q.mu.Lock()
	defer q.mu.Unlock()

	info := Info{Total: len(q.jobs)}
	for _, j := range q.jobs {
		switch j.Status {
		case StatusPending:
			info.Pending++
		case StatusProcessing:
			info.Processing++
		case StatusCompleted:
			info.Completed++
		case StatusError:
			info.Error++
		}
	}
	if q.current != nil {
		info.CurrentJob = &CurrentJobView{
			ID:        q.current.ID,
			Type:      q.current.Type,
			StartedAt: q.current.StartedAt,
		}
	}
	return info
}

// Cleanup removes terminal jobs whose CompletedAt predates the cutoff and
// returns how many were removed. Pending and processing jobs are never
// removed. The queue does not schedule this itself; cadence belongs to the
// caller.
func (q *Queue) Cleanup(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)

	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.jobs[:0]
	removed := 0
	for _, j := range q.jobs {
		terminal := j.Status == StatusCompleted || j.Status == StatusError
		if terminal && !j.CompletedAt.IsZero() && j.CompletedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, j)
	}
	q.jobs = kept
	return removed
}

func newJobID() string {
	return fmt.Sprintf("job-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
