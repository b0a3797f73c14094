package postgres

import (
	"context"
	"time"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type modifierRepository struct {
	db *gorm.DB
}

func NewModifierRepository(db *gorm.DB) *modifierRepository {
	return &modifierRepository{db: db}
}

func (r *modifierRepository) Create(ctx context.Context, mod *domain.Modifier) error {
	return r.db.WithContext(ctx).Create(mod).Error
}

func (r *modifierRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Modifier, error) {
	var mod domain.Modifier
	err := r.db.WithContext(ctx).First(&mod, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &mod, nil
}

func (r *modifierRepository) GetByName(ctx context.Context, name string) (*domain.Modifier, error) {
	var mod domain.Modifier
	err := r.db.WithContext(ctx).First(&mod, "name = ?", name).Error
	if err != nil {
		return nil, err
	}
	return &mod, nil
}

func (r *modifierRepository) AddFactionModifier(ctx context.Context, fm *domain.FactionModifier) error {
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "faction"}, {Name: "modifier_id"}},
			DoNothing: true,
		}).
		Create(fm).Error
}

func (r *modifierRepository) ListFactionModifiers(ctx context.Context, faction domain.Faction) ([]*domain.FactionModifier, error) {
	var mods []*domain.FactionModifier
	err := r.db.WithContext(ctx).
		Preload("Modifier").
		Where("faction = ?", faction).
		Find(&mods).Error
	if err != nil {
		return nil, err
	}
	return mods, nil
}

type activeModifierRepository struct {
	db *gorm.DB
}

func NewActiveModifierRepository(db *gorm.DB) *activeModifierRepository {
	return &activeModifierRepository{db: db}
}

func (r *activeModifierRepository) Create(ctx context.Context, am *domain.ActiveModifier) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(am).Error
}

func (r *activeModifierRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ActiveModifier, error) {
	var am domain.ActiveModifier
	err := r.db.WithContext(ctx).
		Preload("Modifier").
		First(&am, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &am, nil
}

func (r *activeModifierRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&domain.ActiveModifier{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *activeModifierRepository) ListBySource(ctx context.Context, playerID uuid.UUID, source domain.ModifierSource) ([]*domain.ActiveModifier, error) {
	var mods []*domain.ActiveModifier
	err := r.db.WithContext(ctx).
		Where("player_id = ? AND source_type = ?", playerID, source).
		Find(&mods).Error
	if err != nil {
		return nil, err
	}
	return mods, nil
}

const fullModifierColumns = `am.id AS active_id, m.id AS modifier_id, am.player_id, m.name,
	m.magnitude, m.magnitude_kind, m.target_type, m.target_resource,
	m.stacking_behaviour, m.stacking_group, am.source_type, am.source_id,
	am.started_at, am.expires_at`

func (r *activeModifierRepository) fullQuery(ctx context.Context, playerID uuid.UUID, now time.Time) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("active_modifiers AS am").
		Select(fullModifierColumns).
		Joins("JOIN modifiers m ON m.id = am.modifier_id").
		Where("am.player_id = ?", playerID).
		Where("am.expires_at IS NULL OR am.expires_at > ?", now)
}

func (r *activeModifierRepository) ListFull(ctx context.Context, playerID uuid.UUID, now time.Time) ([]domain.FullModifier, error) {
	var mods []domain.FullModifier
	err := r.fullQuery(ctx, playerID, now).
		Order("am.started_at").
		Scan(&mods).Error
	if err != nil {
		return nil, err
	}
	return mods, nil
}

func (r *activeModifierRepository) ListFullForTarget(ctx context.Context, playerID uuid.UUID, target domain.ModifierTarget, resource *domain.ResourceType, now time.Time) ([]domain.FullModifier, error) {
	q := r.fullQuery(ctx, playerID, now).Where("m.target_type = ?", target)
	if resource == nil {
		q = q.Where("m.target_resource IS NULL")
	} else {
		q = q.Where("m.target_resource = ?", *resource)
	}

	var mods []domain.FullModifier
	if err := q.Order("am.started_at").Scan(&mods).Error; err != nil {
		return nil, err
	}
	return mods, nil
}

type modifierHistoryRepository struct {
	db *gorm.DB
}

func NewModifierHistoryRepository(db *gorm.DB) *modifierHistoryRepository {
	return &modifierHistoryRepository{db: db}
}

func (r *modifierHistoryRepository) Create(ctx context.Context, h *domain.ModifierHistory) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(h).Error
}

func (r *modifierHistoryRepository) ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]*domain.ModifierHistory, error) {
	var history []*domain.ModifierHistory
	err := r.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("created_at, id").
		Find(&history).Error
	if err != nil {
		return nil, err
	}
	return history, nil
}
