package postgres

import (
	"context"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type playerRepository struct {
	db *gorm.DB
}

func NewPlayerRepository(db *gorm.DB) *playerRepository {
	return &playerRepository{db: db}
}

func (r *playerRepository) Create(ctx context.Context, player *domain.Player) error {
	return r.db.WithContext(ctx).Create(player).Error
}

func (r *playerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Player, error) {
	var player domain.Player
	err := r.db.WithContext(ctx).First(&player, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &player, nil
}

func (r *playerRepository) GetByName(ctx context.Context, name string) (*domain.Player, error) {
	var player domain.Player
	err := r.db.WithContext(ctx).First(&player, "name = ?", name).Error
	if err != nil {
		return nil, err
	}
	return &player, nil
}

func (r *playerRepository) Update(ctx context.Context, player *domain.Player) error {
	return r.db.WithContext(ctx).Save(player).Error
}

func (r *playerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&domain.Player{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *playerRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&domain.Player{}).
		Order("created_at").
		Pluck("id", &ids).Error
	return ids, err
}
