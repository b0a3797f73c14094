package postgres

import (
	"context"
	"time"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type unitRepository struct {
	db *gorm.DB
}

func NewUnitRepository(db *gorm.DB) *unitRepository {
	return &unitRepository{db: db}
}

func (r *unitRepository) Create(ctx context.Context, unit *domain.Unit) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(unit).Error
}

func (r *unitRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Unit, error) {
	var unit domain.Unit
	err := r.db.WithContext(ctx).
		Preload("Costs").
		First(&unit, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *unitRepository) ListByTypes(ctx context.Context, types []domain.UnitType) ([]*domain.Unit, error) {
	var units []*domain.Unit
	if len(types) == 0 {
		return units, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Costs").
		Where("unit_type IN ?", types).
		Order("name").
		Find(&units).Error
	if err != nil {
		return nil, err
	}
	return units, nil
}

func (r *unitRepository) CreateCost(ctx context.Context, cost *domain.UnitCost) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(cost).Error
}

func (r *unitRepository) AddBuildingUnitType(ctx context.Context, but *domain.BuildingUnitType) error {
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "building_id"}, {Name: "unit_type"}},
			DoNothing: true,
		}).
		Create(but).Error
}

func (r *unitRepository) UnitTypesForBuilding(ctx context.Context, buildingID uuid.UUID) ([]domain.UnitType, error) {
	var types []domain.UnitType
	err := r.db.WithContext(ctx).
		Model(&domain.BuildingUnitType{}).
		Where("building_id = ?", buildingID).
		Order("unit_type").
		Pluck("unit_type", &types).Error
	return types, err
}

func (r *unitRepository) CanTrain(ctx context.Context, buildingID uuid.UUID, unitType domain.UnitType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.BuildingUnitType{}).
		Where("building_id = ? AND unit_type = ?", buildingID, unitType).
		Count(&count).Error
	return count > 0, err
}

type playerUnitRepository struct {
	db *gorm.DB
}

func NewPlayerUnitRepository(db *gorm.DB) *playerUnitRepository {
	return &playerUnitRepository{db: db}
}

func (r *playerUnitRepository) AddUnits(ctx context.Context, playerID, unitID uuid.UUID, quantity int64) error {
	now := time.Now().UTC()
	pu := &domain.PlayerUnit{
		ID:        uuid.New(),
		PlayerID:  playerID,
		UnitID:    unitID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "player_id"}, {Name: "unit_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("player_units.quantity + EXCLUDED.quantity"),
				"updated_at": now,
			}),
		}).
		Create(pu).Error
}

func (r *playerUnitRepository) Get(ctx context.Context, playerID, unitID uuid.UUID) (*domain.PlayerUnit, error) {
	var pu domain.PlayerUnit
	err := r.db.WithContext(ctx).First(&pu, "player_id = ? AND unit_id = ?", playerID, unitID).Error
	if err != nil {
		return nil, err
	}
	return &pu, nil
}

func (r *playerUnitRepository) ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]*domain.PlayerUnit, error) {
	var units []*domain.PlayerUnit
	err := r.db.WithContext(ctx).
		Preload("Unit").
		Where("player_id = ?", playerID).
		Find(&units).Error
	if err != nil {
		return nil, err
	}
	return units, nil
}
