package postgres

import (
	"context"
	"fmt"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type resourceRepository struct {
	db *gorm.DB
}

func NewResourceRepository(db *gorm.DB) *resourceRepository {
	return &resourceRepository{db: db}
}

func (r *resourceRepository) Create(ctx context.Context, res *domain.PlayerResource) error {
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *resourceRepository) GetByPlayerID(ctx context.Context, playerID uuid.UUID) (*domain.PlayerResource, error) {
	var res domain.PlayerResource
	err := r.db.WithContext(ctx).First(&res, "player_id = ?", playerID).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *resourceRepository) GetForUpdate(ctx context.Context, playerID uuid.UUID) (*domain.PlayerResource, error) {
	var res domain.PlayerResource
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&res, "player_id = ?", playerID).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *resourceRepository) Update(ctx context.Context, res *domain.PlayerResource) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(res).Error
}

func (r *resourceRepository) Deduct(ctx context.Context, playerID uuid.UUID, cost domain.Amounts) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var res domain.PlayerResource
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&res, "player_id = ?", playerID).Error
		if err != nil {
			return err
		}
		if !res.Stored().Covers(cost) {
			return fmt.Errorf("%w: have %+v, need %+v", domain.ErrInsufficientResources, res.Stored(), cost)
		}
		return tx.Model(&domain.PlayerResource{}).
			Where("player_id = ?", playerID).
			Updates(map[string]interface{}{
				"food":  gorm.Expr("food - ?", cost.Food),
				"wood":  gorm.Expr("wood - ?", cost.Wood),
				"stone": gorm.Expr("stone - ?", cost.Stone),
				"gold":  gorm.Expr("gold - ?", cost.Gold),
			}).Error
	})
}

func (r *resourceRepository) Add(ctx context.Context, playerID uuid.UUID, amounts domain.Amounts) error {
	result := r.db.WithContext(ctx).
		Model(&domain.PlayerResource{}).
		Where("player_id = ?", playerID).
		Updates(map[string]interface{}{
			"food":  gorm.Expr("GREATEST(food, LEAST(food + ?, food_cap))", amounts.Food),
			"wood":  gorm.Expr("GREATEST(wood, LEAST(wood + ?, wood_cap))", amounts.Wood),
			"stone": gorm.Expr("GREATEST(stone, LEAST(stone + ?, stone_cap))", amounts.Stone),
			"gold":  gorm.Expr("GREATEST(gold, LEAST(gold + ?, gold_cap))", amounts.Gold),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type accumulatorRepository struct {
	db *gorm.DB
}

func NewAccumulatorRepository(db *gorm.DB) *accumulatorRepository {
	return &accumulatorRepository{db: db}
}

func (r *accumulatorRepository) Create(ctx context.Context, acc *domain.PlayerAccumulator) error {
	return r.db.WithContext(ctx).Create(acc).Error
}

func (r *accumulatorRepository) GetByPlayerID(ctx context.Context, playerID uuid.UUID) (*domain.PlayerAccumulator, error) {
	var acc domain.PlayerAccumulator
	err := r.db.WithContext(ctx).First(&acc, "player_id = ?", playerID).Error
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (r *accumulatorRepository) GetForUpdate(ctx context.Context, playerID uuid.UUID) (*domain.PlayerAccumulator, error) {
	var acc domain.PlayerAccumulator
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&acc, "player_id = ?", playerID).Error
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (r *accumulatorRepository) Update(ctx context.Context, acc *domain.PlayerAccumulator) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(acc).Error
}
