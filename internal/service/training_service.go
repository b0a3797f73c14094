package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TrainingService struct {
	repos     *repository.Repositories
	modifiers *ModifierService
	queue     Enqueuer
	now       Clock
}

func NewTrainingService(repos *repository.Repositories, modifiers *ModifierService, queue Enqueuer, now Clock) *TrainingService {
	return &TrainingService{repos: repos, modifiers: modifiers, queue: queue, now: now}
}

type StartTrainingInput struct {
	PlayerID         uuid.UUID
	PlayerBuildingID uuid.UUID
	UnitID           uuid.UUID
	Quantity         int64
}

// StartTraining debits the cost of a batch and schedules its completion.
func (s *TrainingService) StartTraining(ctx context.Context, input StartTrainingInput) (*domain.TrainingQueueEntry, error) {
	if input.Quantity <= 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidQuantity, input.Quantity)
	}

	pb, err := s.repos.PlayerBuilding.GetByID(ctx, input.PlayerBuildingID)
	if err != nil {
		return nil, notFound(err, "player building %s", input.PlayerBuildingID)
	}
	if pb.PlayerID != input.PlayerID {
		return nil, fmt.Errorf("%w: building %s does not belong to player %s", domain.ErrStartTraining, pb.ID, input.PlayerID)
	}
	if pb.Level == 0 {
		return nil, fmt.Errorf("%w: building %s is still under construction", domain.ErrStartTraining, pb.ID)
	}

	unit, err := s.repos.Unit.GetByID(ctx, input.UnitID)
	if err != nil {
		return nil, notFound(err, "unit %s", input.UnitID)
	}
	ok, err := s.repos.Unit.CanTrain(ctx, pb.BuildingID, unit.UnitType)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s cannot be trained here", domain.ErrInvalidBuildingType, unit.UnitType)
	}

	cost := domain.UnitCostTotal(unit.Costs).Scale(input.Quantity)
	res, err := s.repos.Resource.GetByPlayerID(ctx, input.PlayerID)
	if err != nil {
		return nil, notFound(err, "resources for player %s", input.PlayerID)
	}
	if !res.Stored().Covers(cost) {
		return nil, fmt.Errorf("%w: have %+v, need %+v", domain.ErrInsufficientResources, res.Stored(), cost)
	}

	multiplier, err := s.modifiers.Multiplier(ctx, input.PlayerID, domain.TargetTraining, nil)
	if err != nil {
		return nil, err
	}
	_, total := domain.TrainingDuration(unit.BaseTrainingSeconds, multiplier, input.Quantity)

	now := s.now()
	entry := &domain.TrainingQueueEntry{
		ID:         uuid.New(),
		PlayerID:   input.PlayerID,
		BuildingID: pb.ID,
		UnitID:     unit.ID,
		Quantity:   input.Quantity,
		StartedAt:  now,
		Status:     domain.TrainingInProgress,
	}

	err = s.repos.Tx.Transaction(ctx, func(repos *repository.Repositories) error {
		active, err := repos.TrainingQueue.ActiveCountLocked(ctx, pb.ID)
		if err != nil {
			return err
		}
		if active >= domain.MaxQueuePerBuilding {
			return fmt.Errorf("%w: %w", domain.ErrStartTraining, domain.ErrTrainingQueueFull)
		}
		if err := repos.Resource.Deduct(ctx, input.PlayerID, cost); err != nil {
			return err
		}
		return repos.TrainingQueue.Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	payload := domain.TrainingJobPayload{
		TrainingQueueEntryID: entry.ID,
		PlayerID:             entry.PlayerID,
		UnitID:               entry.UnitID,
		Quantity:             entry.Quantity,
	}
	jobID, err := s.queue.Enqueue(ctx, domain.JobTypeTraining, payload, domain.PriorityNormal, now.Add(total))
	if err != nil {
		log.Printf("ERROR [TrainingService.StartTraining] scheduling completion of entry %s: %v", entry.ID, err)
		s.abandon(ctx, entry, cost)
		return nil, fmt.Errorf("%w: scheduling completion: %v", domain.ErrStartTraining, err)
	}
	if err := s.repos.TrainingQueue.SetJobID(ctx, entry.ID, jobID); err != nil {
		return nil, err
	}
	entry.JobID = &jobID
	entry.Unit = unit

	log.Printf("INFO [TrainingService.StartTraining] player %s training %d x %s, done in %s", input.PlayerID, input.Quantity, unit.Name, total)
	return entry, nil
}

// abandon releases the queue slot and the full cost of an entry that never got
// a completion job.
func (s *TrainingService) abandon(ctx context.Context, entry *domain.TrainingQueueEntry, cost domain.Amounts) {
	err := s.repos.Tx.Transaction(ctx, func(repos *repository.Repositories) error {
		if err := repos.TrainingQueue.Cancel(ctx, entry.ID); err != nil {
			return err
		}
		return repos.Resource.Add(ctx, entry.PlayerID, cost)
	})
	if err != nil {
		log.Printf("ERROR [TrainingService.abandon] releasing entry %s: %v", entry.ID, err)
	}
}

// CancelTraining refunds the unelapsed share of an active entry and returns the refund.
func (s *TrainingService) CancelTraining(ctx context.Context, playerID, entryID uuid.UUID) (domain.Amounts, error) {
	var refund domain.Amounts

	entry, err := s.repos.TrainingQueue.GetByID(ctx, entryID)
	if err != nil {
		return refund, notFound(err, "training entry %s", entryID)
	}
	if entry.PlayerID != playerID {
		return refund, fmt.Errorf("%w: entry %s belongs to another player", domain.ErrCancelTraining, entryID)
	}
	if !entry.Status.IsActive() {
		return refund, fmt.Errorf("%w: entry is %s", domain.ErrCancelTraining, entry.Status)
	}

	unit, err := s.repos.Unit.GetByID(ctx, entry.UnitID)
	if err != nil {
		return refund, notFound(err, "unit %s", entry.UnitID)
	}
	multiplier, err := s.modifiers.Multiplier(ctx, playerID, domain.TargetTraining, nil)
	if err != nil {
		return refund, err
	}

	totalCost := domain.UnitCostTotal(unit.Costs).Scale(entry.Quantity)
	ratio := domain.RemainingRatio(entry.Status, unit.BaseTrainingSeconds, multiplier, entry.Quantity, s.now().Sub(entry.StartedAt))
	refund = domain.ComputeRefund(totalCost, ratio)

	err = s.repos.Tx.Transaction(ctx, func(repos *repository.Repositories) error {
		if err := repos.TrainingQueue.Cancel(ctx, entry.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: entry is no longer active", domain.ErrCancelTraining)
			}
			return err
		}
		if refund.IsZero() {
			return nil
		}
		return repos.Resource.Add(ctx, playerID, refund)
	})
	if err != nil {
		return domain.Amounts{}, err
	}

	if entry.JobID != nil {
		if _, err := s.queue.Cancel(ctx, *entry.JobID); err != nil {
			log.Printf("WARN [TrainingService.CancelTraining] cancelling job %s: %v", *entry.JobID, err)
		}
	}
	return refund, nil
}

// CompleteTraining materialises the units of the entry scheduled under jobID.
// Completed and cancelled entries are left untouched.
func (s *TrainingService) CompleteTraining(ctx context.Context, jobID uuid.UUID) error {
	entry, err := s.repos.TrainingQueue.GetByJobID(ctx, jobID)
	if err != nil {
		return notFound(err, "training entry for job %s", jobID)
	}
	return s.complete(ctx, entry)
}

// CompleteEntry is CompleteTraining keyed by entry id, for jobs that ran
// before their id was recorded on the entry.
func (s *TrainingService) CompleteEntry(ctx context.Context, entryID uuid.UUID) error {
	entry, err := s.repos.TrainingQueue.GetByID(ctx, entryID)
	if err != nil {
		return notFound(err, "training entry %s", entryID)
	}
	return s.complete(ctx, entry)
}

func (s *TrainingService) complete(ctx context.Context, entry *domain.TrainingQueueEntry) error {
	switch entry.Status {
	case domain.TrainingCompleted:
		return nil
	case domain.TrainingCancelled:
		log.Printf("INFO [TrainingService.complete] entry %s was cancelled, skipping", entry.ID)
		return nil
	}

	err := s.repos.Tx.Transaction(ctx, func(repos *repository.Repositories) error {
		if err := repos.TrainingQueue.Complete(ctx, entry.ID, s.now()); err != nil {
			return err
		}
		return repos.PlayerUnit.AddUnits(ctx, entry.PlayerID, entry.UnitID, entry.Quantity)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: entry %s: %v", domain.ErrCompleteTraining, entry.ID, err)
	}
	return nil
}

// TrainingQueue lists the player's pending and in-progress entries.
func (s *TrainingService) TrainingQueue(ctx context.Context, playerID uuid.UUID) ([]*domain.TrainingQueueEntry, error) {
	return s.repos.TrainingQueue.ListActiveByPlayer(ctx, playerID)
}

// AvailableUnits lists the units an owned building can train.
func (s *TrainingService) AvailableUnits(ctx context.Context, playerID, playerBuildingID uuid.UUID) ([]*domain.Unit, error) {
	pb, err := s.repos.PlayerBuilding.GetByID(ctx, playerBuildingID)
	if err != nil {
		return nil, notFound(err, "player building %s", playerBuildingID)
	}
	if pb.PlayerID != playerID {
		return nil, fmt.Errorf("%w: player building %s", domain.ErrNotFound, playerBuildingID)
	}

	types, err := s.repos.Unit.UnitTypesForBuilding(ctx, pb.BuildingID)
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		return []*domain.Unit{}, nil
	}
	return s.repos.Unit.ListByTypes(ctx, types)
}

func (s *TrainingService) Units(ctx context.Context, playerID uuid.UUID) ([]*domain.PlayerUnit, error) {
	return s.repos.PlayerUnit.ListByPlayer(ctx, playerID)
}
