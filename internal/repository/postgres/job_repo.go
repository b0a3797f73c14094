package postgres

import (
	"context"
	"time"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *jobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(ctx context.Context, job *domain.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *jobRepository) CreateBatch(ctx context.Context, jobs []*domain.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(jobs, 100).Error
	})
}

func (r *jobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	var job domain.Job
	err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) ClaimNext(ctx context.Context, workerID string, jobType *domain.JobType, now time.Time) (*domain.Job, error) {
	var claimed *domain.Job

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND locked_at IS NULL AND run_at <= ?", domain.JobPending, now.Add(domain.ClaimSlack))
		if jobType != nil {
			q = q.Where("job_type = ?", *jobType)
		}

		var jobs []domain.Job
		if err := q.Order("priority ASC, run_at ASC").Limit(1).Find(&jobs).Error; err != nil {
			return err
		}
		if len(jobs) == 0 {
			return nil
		}

		job := jobs[0]
		err := tx.Model(&domain.Job{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":    domain.JobInProgress,
				"locked_at": now,
				"locked_by": workerID,
			}).Error
		if err != nil {
			return err
		}

		job.Status = domain.JobInProgress
		job.LockedAt = &now
		job.LockedBy = &workerID
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRepository) Complete(ctx context.Context, id uuid.UUID) error {
	return r.finish(ctx, id, map[string]interface{}{
		"status":    domain.JobCompleted,
		"locked_at": nil,
		"locked_by": nil,
	})
}

func (r *jobRepository) Fail(ctx context.Context, id uuid.UUID, message string) error {
	return r.finish(ctx, id, map[string]interface{}{
		"status":     domain.JobFailed,
		"last_error": message,
		"locked_at":  nil,
		"locked_by":  nil,
	})
}

func (r *jobRepository) finish(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Job{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *jobRepository) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Job{}).
		Where("id = ? AND status = ?", id, domain.JobPending).
		Update("status", domain.JobCancelled)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *jobRepository) ReapStale(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Job{}).
		Where("status = ? AND locked_at IS NOT NULL", domain.JobInProgress).
		Where("locked_at + make_interval(secs => timeout_seconds) < ?", now).
		Updates(map[string]interface{}{
			"status":    domain.JobPending,
			"locked_at": nil,
			"locked_by": nil,
		})
	return result.RowsAffected, result.Error
}

func (r *jobRepository) PlayersWithPendingProduction(ctx context.Context) ([]uuid.UUID, error) {
	var raw []string
	err := r.db.WithContext(ctx).
		Model(&domain.Job{}).
		Where("job_type = ? AND status IN ?", domain.JobTypeResource, []domain.JobStatus{domain.JobPending, domain.JobInProgress}).
		Where(datatypes.JSONQuery("payload").Equals(string(domain.ActionProduceResources), "action")).
		Distinct().
		Pluck("payload->>'player_id'", &raw).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
