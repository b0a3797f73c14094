package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/metrics"
	"github.com/dom/empire-backend/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Queue is the durable job store. Rows live in the jobs table; the queue adds
// payload encoding, metrics and a single-shot shutdown broadcast.
type Queue struct {
	jobs repository.JobRepository
	now  func() time.Time

	shutdownOnce sync.Once
	shutdown     chan struct{}
}

func NewQueue(jobs repository.JobRepository) *Queue {
	return &Queue{
		jobs:     jobs,
		now:      func() time.Time { return time.Now().UTC() },
		shutdown: make(chan struct{}),
	}
}

// WithClock replaces the time source used for claims and reaping.
func (q *Queue) WithClock(now func() time.Time) *Queue {
	q.now = now
	return q
}

func (q *Queue) Enqueue(ctx context.Context, jobType domain.JobType, payload any, priority domain.JobPriority, runAt time.Time) (uuid.UUID, error) {
	job, err := domain.NewJob(jobType, payload, priority, runAt)
	if err != nil {
		return uuid.Nil, err
	}
	if err := q.jobs.Create(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("enqueue %s job: %w", jobType, err)
	}
	metrics.RecordJobEnqueued(string(jobType))
	return job.ID, nil
}

// EnqueueBatch inserts every request atomically.
func (q *Queue) EnqueueBatch(ctx context.Context, reqs []domain.EnqueueRequest) ([]uuid.UUID, error) {
	jobs := make([]*domain.Job, 0, len(reqs))
	for _, req := range reqs {
		job, err := domain.NewJob(req.Type, req.Payload, req.Priority, req.RunAt)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := q.jobs.CreateBatch(ctx, jobs); err != nil {
		return nil, fmt.Errorf("enqueue batch of %d: %w", len(jobs), err)
	}

	ids := make([]uuid.UUID, len(jobs))
	for i, job := range jobs {
		ids[i] = job.ID
		metrics.RecordJobEnqueued(string(job.Type))
	}
	return ids, nil
}

// ClaimNext locks the next due job, optionally restricted to one type.
// It returns nil when nothing is due.
func (q *Queue) ClaimNext(ctx context.Context, workerID string, jobType *domain.JobType) (*domain.Job, error) {
	return q.jobs.ClaimNext(ctx, workerID, jobType, q.now())
}

func (q *Queue) Complete(ctx context.Context, id uuid.UUID) error {
	return q.jobs.Complete(ctx, id)
}

// Fail marks the job failed. Retries are not scheduled.
func (q *Queue) Fail(ctx context.Context, id uuid.UUID, message string) error {
	return q.jobs.Fail(ctx, id, message)
}

// Cancel reports false when the job is no longer pending.
func (q *Queue) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := q.jobs.Cancel(ctx, id)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	return ok, nil
}

// ReapStale returns jobs whose lock outlived their timeout to pending.
func (q *Queue) ReapStale(ctx context.Context) (int64, error) {
	n, err := q.jobs.ReapStale(ctx, q.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("WARN [jobs.ReapStale] returned %d stale jobs to pending", n)
	}
	metrics.RecordJobsReaped(n)
	return n, nil
}

// Done is closed once Shutdown is called.
func (q *Queue) Done() <-chan struct{} {
	return q.shutdown
}

// Shutdown broadcasts the stop signal to every subscriber. Safe to call more than once.
func (q *Queue) Shutdown() {
	q.shutdownOnce.Do(func() {
		close(q.shutdown)
	})
}
