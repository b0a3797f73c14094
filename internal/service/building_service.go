package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BuildingService struct {
	repos     *repository.Repositories
	resources *ResourceService
	queue     Enqueuer
	now       Clock
}

func NewBuildingService(repos *repository.Repositories, resources *ResourceService, queue Enqueuer, now Clock) *BuildingService {
	return &BuildingService{repos: repos, resources: resources, queue: queue, now: now}
}

func (s *BuildingService) ListOwned(ctx context.Context, playerID uuid.UUID) ([]*domain.PlayerBuilding, error) {
	return s.repos.PlayerBuilding.ListByPlayer(ctx, playerID)
}

func (s *BuildingService) Get(ctx context.Context, playerID, playerBuildingID uuid.UUID) (*domain.PlayerBuilding, error) {
	return s.owned(ctx, playerID, playerBuildingID)
}

// Construct places a new building at level 0 and starts the timer towards level 1.
func (s *BuildingService) Construct(ctx context.Context, playerID, buildingID uuid.UUID) (*domain.PlayerBuilding, error) {
	player, err := s.repos.Player.GetByID(ctx, playerID)
	if err != nil {
		return nil, notFound(err, "player %s", playerID)
	}
	building, err := s.repos.Building.GetByID(ctx, buildingID)
	if err != nil {
		return nil, notFound(err, "building %s", buildingID)
	}
	if building.Faction != domain.FactionNeutral && building.Faction != player.Faction {
		return nil, fmt.Errorf("%w: %s is a %s building", domain.ErrConstructBuilding, building.Name, building.Faction)
	}

	level, err := s.repos.Building.GetLevel(ctx, buildingID, 1)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s has no level 1", domain.ErrConstructBuilding, building.Name)
	}
	if err != nil {
		return nil, err
	}

	avail, err := s.availability(ctx, playerID, building, level, true)
	if err != nil {
		return nil, err
	}
	if !avail.Buildable {
		return nil, fmt.Errorf("%w: %s is locked (%s)", domain.ErrConstructBuilding, building.Name, avail.Locks[0].Kind)
	}
	if err := s.checkFunds(ctx, playerID, level.Cost()); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConstructBuilding, err)
	}

	finishesAt := s.now().Add(level.Duration())
	pb := &domain.PlayerBuilding{
		ID:                uuid.New(),
		PlayerID:          playerID,
		BuildingID:        buildingID,
		Level:             0,
		UpgradeFinishesAt: &finishesAt,
	}

	err = s.repos.Tx.Transaction(ctx, func(repos *repository.Repositories) error {
		// Deduct holds the player's resource row lock until commit, which
		// serialises concurrent constructions before the recount.
		if err := repos.Resource.Deduct(ctx, playerID, level.Cost()); err != nil {
			return err
		}
		count, err := repos.PlayerBuilding.CountByBuilding(ctx, playerID, buildingID)
		if err != nil {
			return err
		}
		if count >= int64(building.MaxCount) {
			return fmt.Errorf("%w: %s is locked (%s)", domain.ErrConstructBuilding, building.Name, domain.LockMaxCountReached)
		}
		return repos.PlayerBuilding.Create(ctx, pb)
	})
	if errors.Is(err, domain.ErrInsufficientResources) {
		return nil, fmt.Errorf("%w: %w", domain.ErrConstructBuilding, err)
	}
	if err != nil {
		return nil, err
	}

	log.Printf("INFO [BuildingService.Construct] player %s started %s, finishes at %s", playerID, building.Name, finishesAt.Format("15:04:05"))
	s.scheduleConfirm(ctx, pb, *pb.UpgradeFinishesAt)

	pb.Building = building
	return pb, nil
}

// Upgrade starts the timer towards the next level of an owned building.
func (s *BuildingService) Upgrade(ctx context.Context, playerID, playerBuildingID uuid.UUID) (*domain.PlayerBuilding, error) {
	pb, err := s.owned(ctx, playerID, playerBuildingID)
	if err != nil {
		return nil, err
	}
	if pb.IsUpgrading() {
		return nil, fmt.Errorf("%w: upgrade already in progress", domain.ErrUpgradeBuilding)
	}
	if pb.Level >= pb.Building.MaxLevel {
		return nil, fmt.Errorf("%w: %s is at max level %d", domain.ErrUpgradeBuilding, pb.Building.Name, pb.Building.MaxLevel)
	}

	level, err := s.repos.Building.GetLevel(ctx, pb.BuildingID, pb.Level+1)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s has no level %d", domain.ErrUpgradeBuilding, pb.Building.Name, pb.Level+1)
	}
	if err != nil {
		return nil, err
	}

	avail, err := s.availability(ctx, playerID, pb.Building, level, false)
	if err != nil {
		return nil, err
	}
	if !avail.Buildable {
		return nil, fmt.Errorf("%w: level %d is locked (%s)", domain.ErrUpgradeBuilding, level.Level, avail.Locks[0].Kind)
	}
	if err := s.checkFunds(ctx, playerID, level.Cost()); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpgradeBuilding, err)
	}

	err = s.repos.Tx.Transaction(ctx, func(repos *repository.Repositories) error {
		locked, err := repos.PlayerBuilding.GetForUpdate(ctx, pb.ID)
		if err != nil {
			return err
		}
		if locked.IsUpgrading() || locked.Level != pb.Level {
			return fmt.Errorf("%w: upgrade already in progress", domain.ErrUpgradeBuilding)
		}
		if err := repos.Resource.Deduct(ctx, playerID, level.Cost()); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrUpgradeBuilding, err)
		}

		finishesAt := s.now().Add(level.Duration())
		locked.UpgradeFinishesAt = &finishesAt
		if err := repos.PlayerBuilding.Update(ctx, locked); err != nil {
			return err
		}
		pb.UpgradeFinishesAt = locked.UpgradeFinishesAt
		pb.UpdatedAt = locked.UpdatedAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.scheduleConfirm(ctx, pb, *pb.UpgradeFinishesAt)
	return pb, nil
}

// ConfirmUpgrade raises the level once the timer has elapsed.
func (s *BuildingService) ConfirmUpgrade(ctx context.Context, playerID, playerBuildingID uuid.UUID) (*domain.PlayerBuilding, error) {
	pb, err := s.owned(ctx, playerID, playerBuildingID)
	if err != nil {
		return nil, err
	}
	if !pb.IsUpgrading() {
		return nil, fmt.Errorf("%w: building is not upgrading", domain.ErrConfirmUpgrade)
	}

	now := s.now()
	if now.Before(*pb.UpgradeFinishesAt) {
		return nil, fmt.Errorf("%w: upgrade finishes in %s", domain.ErrConfirmUpgrade, untilFinished(*pb.UpgradeFinishesAt, now))
	}

	ok, err := s.repos.PlayerBuilding.ConfirmUpgrade(ctx, pb.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: building is not upgrading", domain.ErrConfirmUpgrade)
	}

	if err := s.resources.SyncStorageCaps(ctx, playerID); err != nil {
		log.Printf("ERROR [BuildingService.ConfirmUpgrade] syncing storage caps for player %s: %v", playerID, err)
	}

	confirmed, err := s.repos.PlayerBuilding.GetByID(ctx, pb.ID)
	if err != nil {
		return nil, err
	}
	log.Printf("INFO [BuildingService.ConfirmUpgrade] %s of player %s reached level %d", confirmed.Building.Name, playerID, confirmed.Level)
	return confirmed, nil
}

// ConfirmScheduled confirms an upgrade on behalf of its scheduled job. A
// building that is no longer upgrading counts as confirmed. A job claimed
// before the timer elapsed is pushed back past the claim slack instead of
// failing.
func (s *BuildingService) ConfirmScheduled(ctx context.Context, playerID, playerBuildingID uuid.UUID) error {
	pb, err := s.owned(ctx, playerID, playerBuildingID)
	if err != nil {
		return err
	}
	if !pb.IsUpgrading() {
		log.Printf("INFO [BuildingService.ConfirmScheduled] building %s already confirmed", pb.ID)
		return nil
	}

	if s.now().Before(*pb.UpgradeFinishesAt) {
		runAt := pb.UpgradeFinishesAt.Add(domain.ClaimSlack)
		log.Printf("INFO [BuildingService.ConfirmScheduled] building %s not finished, retrying at %s", pb.ID, runAt.Format("15:04:05"))
		return s.scheduleConfirm(ctx, pb, runAt)
	}

	_, err = s.ConfirmUpgrade(ctx, playerID, playerBuildingID)
	if errors.Is(err, domain.ErrConfirmUpgrade) {
		// Lost the race against a client confirmation
		current, getErr := s.owned(ctx, playerID, playerBuildingID)
		if getErr == nil && !current.IsUpgrading() {
			return nil
		}
	}
	return err
}

// Availability reports the locks on constructing another copy of a building.
func (s *BuildingService) Availability(ctx context.Context, playerID, buildingID uuid.UUID) (*domain.BuildingAvailability, error) {
	building, err := s.repos.Building.GetByID(ctx, buildingID)
	if err != nil {
		return nil, notFound(err, "building %s", buildingID)
	}
	level, err := s.repos.Building.GetLevel(ctx, buildingID, 1)
	if err != nil {
		return nil, notFound(err, "level 1 of building %s", buildingID)
	}
	return s.availability(ctx, playerID, building, level, true)
}

// AvailabilityList evaluates construction for every building open to the player's faction.
func (s *BuildingService) AvailabilityList(ctx context.Context, playerID uuid.UUID) ([]*domain.BuildingAvailability, error) {
	player, err := s.repos.Player.GetByID(ctx, playerID)
	if err != nil {
		return nil, notFound(err, "player %s", playerID)
	}
	buildings, err := s.repos.Building.ListForFaction(ctx, player.Faction)
	if err != nil {
		return nil, err
	}
	owned, err := s.repos.PlayerBuilding.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.BuildingAvailability, 0, len(buildings))
	for _, b := range buildings {
		level, err := s.repos.Building.GetLevel(ctx, b.ID, 1)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		avail := domain.ComputeAvailability(availabilityInput(b, level, owned, true))
		out = append(out, &avail)
	}
	return out, nil
}

func (s *BuildingService) availability(ctx context.Context, playerID uuid.UUID, building *domain.Building, level *domain.BuildingLevel, checkCount bool) (*domain.BuildingAvailability, error) {
	owned, err := s.repos.PlayerBuilding.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	avail := domain.ComputeAvailability(availabilityInput(building, level, owned, checkCount))
	return &avail, nil
}

func availabilityInput(building *domain.Building, level *domain.BuildingLevel, owned []*domain.PlayerBuilding, checkCount bool) domain.AvailabilityInput {
	var count int64
	levels := make(map[uuid.UUID]int)
	for _, pb := range owned {
		if pb.BuildingID == building.ID {
			count++
		}
		if pb.Level > levels[pb.BuildingID] {
			levels[pb.BuildingID] = pb.Level
		}
	}

	return domain.AvailabilityInput{
		Building:     *building,
		TargetLevel:  level.Level,
		OwnedCount:   count,
		CheckCount:   checkCount,
		Requirements: level.Requirements,
		OwnedLevels:  levels,
		// No research tree is tracked yet, so tech prerequisites stay locked.
		Techs: map[uuid.UUID]int{},
		Construction: domain.ConstructionInfo{
			Cost:        level.Cost(),
			TimeSeconds: level.UpgradeSeconds,
		},
	}
}

func (s *BuildingService) owned(ctx context.Context, playerID, playerBuildingID uuid.UUID) (*domain.PlayerBuilding, error) {
	pb, err := s.repos.PlayerBuilding.GetByID(ctx, playerBuildingID)
	if err != nil {
		return nil, notFound(err, "player building %s", playerBuildingID)
	}
	if pb.PlayerID != playerID {
		return nil, fmt.Errorf("%w: player building %s", domain.ErrNotFound, playerBuildingID)
	}
	return pb, nil
}

func (s *BuildingService) checkFunds(ctx context.Context, playerID uuid.UUID, cost domain.Amounts) error {
	res, err := s.repos.Resource.GetByPlayerID(ctx, playerID)
	if err != nil {
		return notFound(err, "resources for player %s", playerID)
	}
	if !res.Stored().Covers(cost) {
		return fmt.Errorf("%w: have %+v, need %+v", domain.ErrInsufficientResources, res.Stored(), cost)
	}
	return nil
}

func (s *BuildingService) scheduleConfirm(ctx context.Context, pb *domain.PlayerBuilding, runAt time.Time) error {
	payload := domain.BuildingJobPayload{
		Action:           domain.ActionConfirmUpgrade,
		PlayerID:         pb.PlayerID,
		PlayerBuildingID: pb.ID,
	}
	if _, err := s.queue.Enqueue(ctx, domain.JobTypeBuilding, payload, domain.PriorityNormal, runAt); err != nil {
		log.Printf("ERROR [BuildingService.scheduleConfirm] player building %s: %v", pb.ID, err)
		return err
	}
	return nil
}

// untilFinished rounds the remaining time up to whole seconds so an unfinished
// upgrade never reports 0s.
func untilFinished(finishesAt, now time.Time) time.Duration {
	return time.Duration(math.Ceil(finishesAt.Sub(now).Seconds())) * time.Second
}
