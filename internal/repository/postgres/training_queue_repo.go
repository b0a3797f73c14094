package postgres

import (
	"context"
	"time"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type trainingQueueRepository struct {
	db *gorm.DB
}

func NewTrainingQueueRepository(db *gorm.DB) *trainingQueueRepository {
	return &trainingQueueRepository{db: db}
}

func (r *trainingQueueRepository) Create(ctx context.Context, entry *domain.TrainingQueueEntry) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(entry).Error
}

func (r *trainingQueueRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.TrainingQueueEntry, error) {
	var entry domain.TrainingQueueEntry
	err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *trainingQueueRepository) GetByJobID(ctx context.Context, jobID uuid.UUID) (*domain.TrainingQueueEntry, error) {
	var entry domain.TrainingQueueEntry
	err := r.db.WithContext(ctx).First(&entry, "job_id = ?", jobID).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *trainingQueueRepository) ActiveCountLocked(ctx context.Context, playerBuildingID uuid.UUID) (int64, error) {
	db := r.db.WithContext(ctx)

	var pb domain.PlayerBuilding
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&pb, "id = ?", playerBuildingID).Error
	if err != nil {
		return 0, err
	}

	var count int64
	err = db.Model(&domain.TrainingQueueEntry{}).
		Where("building_id = ? AND status IN ?", playerBuildingID, domain.ActiveTrainingStatuses).
		Count(&count).Error
	return count, err
}

func (r *trainingQueueRepository) ListActiveByPlayer(ctx context.Context, playerID uuid.UUID) ([]*domain.TrainingQueueEntry, error) {
	var entries []*domain.TrainingQueueEntry
	err := r.db.WithContext(ctx).
		Preload("Unit").
		Where("player_id = ? AND status IN ?", playerID, domain.ActiveTrainingStatuses).
		Order("started_at").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *trainingQueueRepository) SetJobID(ctx context.Context, id, jobID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&domain.TrainingQueueEntry{}).
		Where("id = ?", id).
		Update("job_id", jobID).Error
}

func (r *trainingQueueRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&domain.TrainingQueueEntry{}).
		Where("id = ? AND status IN ?", id, domain.ActiveTrainingStatuses).
		Update("status", domain.TrainingCancelled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *trainingQueueRepository) Complete(ctx context.Context, id uuid.UUID, now time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&domain.TrainingQueueEntry{}).
		Where("id = ? AND status IN ?", id, domain.ActiveTrainingStatuses).
		Updates(map[string]interface{}{
			"status":       domain.TrainingCompleted,
			"completed_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
