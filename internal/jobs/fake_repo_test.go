package jobs_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memoryJobRepository mirrors the claim semantics of the postgres repository.
type memoryJobRepository struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*domain.Job
}

func newMemoryJobRepository() *memoryJobRepository {
	return &memoryJobRepository{jobs: make(map[uuid.UUID]*domain.Job)}
}

func (r *memoryJobRepository) Create(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *memoryJobRepository) CreateBatch(ctx context.Context, jobs []*domain.Job) error {
	for _, j := range jobs {
		if err := r.Create(ctx, j); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *memoryJobRepository) ClaimNext(ctx context.Context, workerID string, jobType *domain.JobType, now time.Time) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []*domain.Job
	for _, j := range r.jobs {
		if j.Status != domain.JobPending || j.LockedAt != nil || j.RunAt.After(now.Add(time.Second)) {
			continue
		}
		if jobType != nil && j.Type != *jobType {
			continue
		}
		due = append(due, j)
	}
	if len(due) == 0 {
		return nil, nil
	}
	sort.Slice(due, func(a, b int) bool {
		if due[a].Priority != due[b].Priority {
			return due[a].Priority < due[b].Priority
		}
		return due[a].RunAt.Before(due[b].RunAt)
	})

	j := due[0]
	j.Status = domain.JobInProgress
	lockedAt := now
	j.LockedAt = &lockedAt
	j.LockedBy = &workerID
	cp := *j
	return &cp, nil
}

func (r *memoryJobRepository) Complete(ctx context.Context, id uuid.UUID) error {
	return r.update(id, func(j *domain.Job) {
		j.Status = domain.JobCompleted
		j.LockedAt, j.LockedBy = nil, nil
	})
}

func (r *memoryJobRepository) Fail(ctx context.Context, id uuid.UUID, message string) error {
	return r.update(id, func(j *domain.Job) {
		j.Status = domain.JobFailed
		j.LastError = &message
		j.LockedAt, j.LockedBy = nil, nil
	})
}

func (r *memoryJobRepository) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || j.Status != domain.JobPending {
		return false, nil
	}
	j.Status = domain.JobCancelled
	return true, nil
}

func (r *memoryJobRepository) ReapStale(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, j := range r.jobs {
		if j.IsStale(now) {
			j.Status = domain.JobPending
			j.LockedAt, j.LockedBy = nil, nil
			n++
		}
	}
	return n, nil
}

func (r *memoryJobRepository) PlayersWithPendingProduction(ctx context.Context) ([]uuid.UUID, error) {
	return nil, nil
}

func (r *memoryJobRepository) update(id uuid.UUID, fn func(*domain.Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	fn(j)
	return nil
}

func (r *memoryJobRepository) status(id uuid.UUID) domain.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id].Status
}
