package repository

import (
	"context"
	"time"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/google/uuid"
)

type PlayerRepository interface {
	Create(ctx context.Context, player *domain.Player) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Player, error)
	GetByName(ctx context.Context, name string) (*domain.Player, error)
	Update(ctx context.Context, player *domain.Player) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

type ResourceRepository interface {
	Create(ctx context.Context, res *domain.PlayerResource) error
	GetByPlayerID(ctx context.Context, playerID uuid.UUID) (*domain.PlayerResource, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, playerID uuid.UUID) (*domain.PlayerResource, error)
	Update(ctx context.Context, res *domain.PlayerResource) error
	// Deduct locks the row, rechecks the balance and debits cost.
	Deduct(ctx context.Context, playerID uuid.UUID, cost domain.Amounts) error
	// Add credits storage, dropping whatever would exceed the cap.
	Add(ctx context.Context, playerID uuid.UUID, amounts domain.Amounts) error
}

type AccumulatorRepository interface {
	Create(ctx context.Context, acc *domain.PlayerAccumulator) error
	GetByPlayerID(ctx context.Context, playerID uuid.UUID) (*domain.PlayerAccumulator, error)
	GetForUpdate(ctx context.Context, playerID uuid.UUID) (*domain.PlayerAccumulator, error)
	Update(ctx context.Context, acc *domain.PlayerAccumulator) error
}

type BuildingRepository interface {
	Create(ctx context.Context, building *domain.Building) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Building, error)
	ListForFaction(ctx context.Context, faction domain.Faction) ([]*domain.Building, error)
	ListStarters(ctx context.Context, faction domain.Faction) ([]*domain.Building, error)
	CreateLevel(ctx context.Context, level *domain.BuildingLevel) error
	// GetLevel returns the level row with its requirements preloaded.
	GetLevel(ctx context.Context, buildingID uuid.UUID, level int) (*domain.BuildingLevel, error)
	CreateRequirement(ctx context.Context, req *domain.BuildingRequirement) error
	CreateResource(ctx context.Context, res *domain.BuildingResource) error
}

type PlayerBuildingRepository interface {
	Create(ctx context.Context, pb *domain.PlayerBuilding) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PlayerBuilding, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.PlayerBuilding, error)
	ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]*domain.PlayerBuilding, error)
	CountByBuilding(ctx context.Context, playerID, buildingID uuid.UUID) (int64, error)
	Update(ctx context.Context, pb *domain.PlayerBuilding) error
	// ConfirmUpgrade increments the level and clears the timer in one statement.
	// It reports false when no upgrade was due at now.
	ConfirmUpgrade(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	// Totals sums BuildingResource rows over the player's buildings at their current level.
	Totals(ctx context.Context, playerID uuid.UUID) (*domain.BuildingTotals, error)
}

type ModifierRepository interface {
	Create(ctx context.Context, mod *domain.Modifier) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Modifier, error)
	GetByName(ctx context.Context, name string) (*domain.Modifier, error)
	AddFactionModifier(ctx context.Context, fm *domain.FactionModifier) error
	ListFactionModifiers(ctx context.Context, faction domain.Faction) ([]*domain.FactionModifier, error)
}

type ActiveModifierRepository interface {
	Create(ctx context.Context, am *domain.ActiveModifier) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ActiveModifier, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListBySource(ctx context.Context, playerID uuid.UUID, source domain.ModifierSource) ([]*domain.ActiveModifier, error)
	// ListFull joins active rows with their definitions, skipping expired rows.
	ListFull(ctx context.Context, playerID uuid.UUID, now time.Time) ([]domain.FullModifier, error)
	ListFullForTarget(ctx context.Context, playerID uuid.UUID, target domain.ModifierTarget, resource *domain.ResourceType, now time.Time) ([]domain.FullModifier, error)
}

type ModifierHistoryRepository interface {
	Create(ctx context.Context, h *domain.ModifierHistory) error
	ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]*domain.ModifierHistory, error)
}

type UnitRepository interface {
	Create(ctx context.Context, unit *domain.Unit) error
	// GetByID returns the unit with its costs preloaded.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Unit, error)
	ListByTypes(ctx context.Context, types []domain.UnitType) ([]*domain.Unit, error)
	CreateCost(ctx context.Context, cost *domain.UnitCost) error
	AddBuildingUnitType(ctx context.Context, but *domain.BuildingUnitType) error
	UnitTypesForBuilding(ctx context.Context, buildingID uuid.UUID) ([]domain.UnitType, error)
	CanTrain(ctx context.Context, buildingID uuid.UUID, unitType domain.UnitType) (bool, error)
}

type PlayerUnitRepository interface {
	// AddUnits upserts the (player, unit) row, incrementing its quantity.
	AddUnits(ctx context.Context, playerID, unitID uuid.UUID, quantity int64) error
	Get(ctx context.Context, playerID, unitID uuid.UUID) (*domain.PlayerUnit, error)
	ListByPlayer(ctx context.Context, playerID uuid.UUID) ([]*domain.PlayerUnit, error)
}

type TrainingQueueRepository interface {
	Create(ctx context.Context, entry *domain.TrainingQueueEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TrainingQueueEntry, error)
	GetByJobID(ctx context.Context, jobID uuid.UUID) (*domain.TrainingQueueEntry, error)
	// ActiveCountLocked locks the player building row, then counts its active entries.
	ActiveCountLocked(ctx context.Context, playerBuildingID uuid.UUID) (int64, error)
	ListActiveByPlayer(ctx context.Context, playerID uuid.UUID) ([]*domain.TrainingQueueEntry, error)
	SetJobID(ctx context.Context, id, jobID uuid.UUID) error
	Cancel(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, now time.Time) error
}

type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	CreateBatch(ctx context.Context, jobs []*domain.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	// ClaimNext returns nil when nothing is claimable.
	ClaimNext(ctx context.Context, workerID string, jobType *domain.JobType, now time.Time) (*domain.Job, error)
	Complete(ctx context.Context, id uuid.UUID) error
	Fail(ctx context.Context, id uuid.UUID, message string) error
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
	ReapStale(ctx context.Context, now time.Time) (int64, error)
	// PlayersWithPendingProduction lists players that already have a pending produce job.
	PlayersWithPendingProduction(ctx context.Context) ([]uuid.UUID, error)
}

// Transactor runs fn with repositories bound to a single database transaction.
type Transactor interface {
	Transaction(ctx context.Context, fn func(repos *Repositories) error) error
}

type Repositories struct {
	Player          PlayerRepository
	Resource        ResourceRepository
	Accumulator     AccumulatorRepository
	Building        BuildingRepository
	PlayerBuilding  PlayerBuildingRepository
	Modifier        ModifierRepository
	ActiveModifier  ActiveModifierRepository
	ModifierHistory ModifierHistoryRepository
	Unit            UnitRepository
	PlayerUnit      PlayerUnitRepository
	TrainingQueue   TrainingQueueRepository
	Job             JobRepository
	Tx              Transactor
}
