package postgres

import (
	"context"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type buildingRepository struct {
	db *gorm.DB
}

func NewBuildingRepository(db *gorm.DB) *buildingRepository {
	return &buildingRepository{db: db}
}

func (r *buildingRepository) Create(ctx context.Context, building *domain.Building) error {
	return r.db.WithContext(ctx).Create(building).Error
}

func (r *buildingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Building, error) {
	var building domain.Building
	err := r.db.WithContext(ctx).First(&building, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &building, nil
}

// ListForFaction returns buildings of the faction plus the neutral ones.
func (r *buildingRepository) ListForFaction(ctx context.Context, faction domain.Faction) ([]*domain.Building, error) {
	var buildings []*domain.Building
	err := r.db.WithContext(ctx).
		Where("faction IN ?", []domain.Faction{faction, domain.FactionNeutral}).
		Order("name").
		Find(&buildings).Error
	if err != nil {
		return nil, err
	}
	return buildings, nil
}

func (r *buildingRepository) ListStarters(ctx context.Context, faction domain.Faction) ([]*domain.Building, error) {
	var buildings []*domain.Building
	err := r.db.WithContext(ctx).
		Where("starter = ? AND faction IN ?", true, []domain.Faction{faction, domain.FactionNeutral}).
		Order("name").
		Find(&buildings).Error
	if err != nil {
		return nil, err
	}
	return buildings, nil
}

func (r *buildingRepository) CreateLevel(ctx context.Context, level *domain.BuildingLevel) error {
	return r.db.WithContext(ctx).Create(level).Error
}

func (r *buildingRepository) GetLevel(ctx context.Context, buildingID uuid.UUID, level int) (*domain.BuildingLevel, error) {
	var lvl domain.BuildingLevel
	err := r.db.WithContext(ctx).
		Preload("Requirements").
		First(&lvl, "building_id = ? AND level = ?", buildingID, level).Error
	if err != nil {
		return nil, err
	}
	return &lvl, nil
}

func (r *buildingRepository) CreateRequirement(ctx context.Context, req *domain.BuildingRequirement) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *buildingRepository) CreateResource(ctx context.Context, res *domain.BuildingResource) error {
	return r.db.WithContext(ctx).Create(res).Error
}
