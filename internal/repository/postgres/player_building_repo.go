package postgres

import (
	"context"
	"time"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type playerBuildingRepository struct {
	db *gorm.DB
}

func NewPlayerBuildingRepository(db *gorm.DB) *playerBuildingRepository {
	return &playerBuildingRepository{db: db}
}

func (r *playerBuildingRepository) Create(ctx context.Context, pb *domain.PlayerBuilding) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(pb).Error
}

func (r *playerBuildingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PlayerBuilding, error) {
	var pb domain.PlayerBuilding
	err := r.db.WithContext(ctx).
		Preload("Building").
		First(&pb, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &pb, nil
}

func (r *playerBuildingRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.PlayerBuilding, error) {
	var pb domain.PlayerBuilding
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&pb, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &pb, nil
}

func (r *playerBuildingRepository) ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]*domain.PlayerBuilding, error) {
	var buildings []*domain.PlayerBuilding
	err := r.db.WithContext(ctx).
		Preload("Building").
		Where("player_id = ?", playerID).
		Order("created_at").
		Find(&buildings).Error
	if err != nil {
		return nil, err
	}
	return buildings, nil
}

func (r *playerBuildingRepository) CountByBuilding(ctx context.Context, playerID, buildingID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.PlayerBuilding{}).
		Where("player_id = ? AND building_id = ?", playerID, buildingID).
		Count(&count).Error
	return count, err
}

func (r *playerBuildingRepository) Update(ctx context.Context, pb *domain.PlayerBuilding) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(pb).Error
}

func (r *playerBuildingRepository) ConfirmUpgrade(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.PlayerBuilding{}).
		Where("id = ? AND upgrade_finishes_at IS NOT NULL AND upgrade_finishes_at <= ?", id, now).
		Updates(map[string]interface{}{
			"level":               gorm.Expr("level + 1"),
			"upgrade_finishes_at": nil,
			"updated_at":          now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

type buildingTotalsRow struct {
	Population  int64
	Food        int64
	Wood        int64
	Stone       int64
	Gold        int64
	FoodCap     int64
	WoodCap     int64
	StoneCap    int64
	GoldCap     int64
	FoodAccCap  int64
	WoodAccCap  int64
	StoneAccCap int64
	GoldAccCap  int64
}

func (r *playerBuildingRepository) Totals(ctx context.Context, playerID uuid.UUID) (*domain.BuildingTotals, error) {
	var row buildingTotalsRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(br.population), 0) AS population,
			COALESCE(SUM(br.food), 0) AS food,
			COALESCE(SUM(br.wood), 0) AS wood,
			COALESCE(SUM(br.stone), 0) AS stone,
			COALESCE(SUM(br.gold), 0) AS gold,
			COALESCE(SUM(br.food_cap), 0) AS food_cap,
			COALESCE(SUM(br.wood_cap), 0) AS wood_cap,
			COALESCE(SUM(br.stone_cap), 0) AS stone_cap,
			COALESCE(SUM(br.gold_cap), 0) AS gold_cap,
			COALESCE(SUM(br.food_acc_cap), 0) AS food_acc_cap,
			COALESCE(SUM(br.wood_acc_cap), 0) AS wood_acc_cap,
			COALESCE(SUM(br.stone_acc_cap), 0) AS stone_acc_cap,
			COALESCE(SUM(br.gold_acc_cap), 0) AS gold_acc_cap
		FROM player_buildings pb
		JOIN building_resources br ON br.building_id = pb.building_id AND br.level = pb.level
		WHERE pb.player_id = ?`, playerID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	return &domain.BuildingTotals{
		Population: row.Population,
		BaseRates:  domain.Amounts{Food: row.Food, Wood: row.Wood, Stone: row.Stone, Gold: row.Gold},
		StorageCap: domain.Amounts{Food: row.FoodCap, Wood: row.WoodCap, Stone: row.StoneCap, Gold: row.GoldCap},
		AccCap:     domain.Amounts{Food: row.FoodAccCap, Wood: row.WoodAccCap, Stone: row.StoneAccCap, Gold: row.GoldAccCap},
	}, nil
}
