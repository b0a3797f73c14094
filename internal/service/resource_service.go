package service

import (
	"context"
	"log"
	"time"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/repository"
	"github.com/google/uuid"
)

type ResourceService struct {
	repos     *repository.Repositories
	modifiers *ModifierService
	queue     Enqueuer
	interval  time.Duration
	now       Clock
}

func NewResourceService(repos *repository.Repositories, modifiers *ModifierService, queue Enqueuer, interval time.Duration, now Clock) *ResourceService {
	return &ResourceService{
		repos:     repos,
		modifiers: modifiers,
		queue:     queue,
		interval:  interval,
		now:       now,
	}
}

// Interval is the delay between two production ticks of a player.
func (s *ResourceService) Interval() time.Duration {
	return s.interval
}

// BaseRates sums the building contributions at their current level.
func (s *ResourceService) BaseRates(ctx context.Context, playerID uuid.UUID) (*domain.BuildingTotals, error) {
	return s.repos.PlayerBuilding.Totals(ctx, playerID)
}

// Rates returns the per-hour production after modifiers.
func (s *ResourceService) Rates(ctx context.Context, playerID uuid.UUID) (domain.Rates, error) {
	totals, err := s.BaseRates(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return s.effectiveRates(ctx, playerID, totals)
}

func (s *ResourceService) effectiveRates(ctx context.Context, playerID uuid.UUID, totals *domain.BuildingTotals) (domain.Rates, error) {
	multipliers, err := s.modifiers.ResourceMultipliers(ctx, playerID)
	if err != nil {
		return nil, err
	}

	rates := domain.Rates{
		domain.ResourcePopulation: float64(totals.Population) * multipliers[domain.ResourcePopulation],
	}
	for _, r := range domain.StoredResourceTypes {
		rates[r] = float64(totals.BaseRates.Get(r)) * multipliers[r]
	}
	return rates, nil
}

// Produce moves production since the last watermark into the accumulator,
// dropping whatever exceeds the accumulator caps. upTo defaults to now.
func (s *ResourceService) Produce(ctx context.Context, playerID uuid.UUID, upTo *time.Time) (*domain.PlayerAccumulator, error) {
	totals, err := s.BaseRates(ctx, playerID)
	if err != nil {
		return nil, err
	}
	rates, err := s.effectiveRates(ctx, playerID, totals)
	if err != nil {
		return nil, err
	}

	t := s.now()
	if upTo != nil {
		t = upTo.UTC()
	}

	var acc *domain.PlayerAccumulator
	err = s.repos.Tx.Transaction(ctx, func(repos *repository.Repositories) error {
		var err error
		acc, err = repos.Accumulator.GetForUpdate(ctx, playerID)
		if err != nil {
			return notFound(err, "accumulator for player %s", playerID)
		}
		res, err := repos.Resource.GetForUpdate(ctx, playerID)
		if err != nil {
			return notFound(err, "resources for player %s", playerID)
		}

		elapsed := t.Sub(res.ProducedAt)
		if elapsed <= 0 {
			return nil
		}

		delta := domain.ProductionDelta(rates, elapsed)
		acc.SetAmounts(domain.Accumulate(acc.Amounts(), delta, totals.AccCap))
		if err := repos.Accumulator.Update(ctx, acc); err != nil {
			return err
		}

		res.ProducedAt = t
		return repos.Resource.Update(ctx, res)
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// ProduceTick runs one scheduled production step. The modifier cache is
// refreshed at every tick boundary.
func (s *ResourceService) ProduceTick(ctx context.Context, playerID uuid.UUID) error {
	s.modifiers.InvalidateCache(playerID)
	_, err := s.Produce(ctx, playerID, nil)
	return err
}

// Collect drains the accumulator into storage up to the storage caps.
func (s *ResourceService) Collect(ctx context.Context, playerID uuid.UUID) (*domain.PlayerResource, error) {
	var res *domain.PlayerResource

	err := s.repos.Tx.Transaction(ctx, func(repos *repository.Repositories) error {
		acc, err := repos.Accumulator.GetForUpdate(ctx, playerID)
		if err != nil {
			return notFound(err, "accumulator for player %s", playerID)
		}
		res, err = repos.Resource.GetForUpdate(ctx, playerID)
		if err != nil {
			return notFound(err, "resources for player %s", playerID)
		}

		stored := res.Stored()
		pending := acc.Amounts()
		movable := domain.Movable(pending, stored, res.Caps())

		for _, r := range domain.StoredResourceTypes {
			stored.Set(r, stored.Get(r)+movable.Get(r))
			pending.Set(r, pending.Get(r)-movable.Get(r))
		}
		acc.SetAmounts(pending)
		res.SetStored(stored)
		res.CollectedAt = s.now()

		if err := repos.Accumulator.Update(ctx, acc); err != nil {
			return err
		}
		return repos.Resource.Update(ctx, res)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ProduceAndCollect brings the accumulator up to date before collecting.
func (s *ResourceService) ProduceAndCollect(ctx context.Context, playerID uuid.UUID) (*domain.PlayerResource, error) {
	if _, err := s.Produce(ctx, playerID, nil); err != nil {
		return nil, err
	}
	return s.Collect(ctx, playerID)
}

func (s *ResourceService) Snapshot(ctx context.Context, playerID uuid.UUID) (*domain.ResourceSnapshot, error) {
	res, err := s.repos.Resource.GetByPlayerID(ctx, playerID)
	if err != nil {
		return nil, notFound(err, "resources for player %s", playerID)
	}
	acc, err := s.repos.Accumulator.GetByPlayerID(ctx, playerID)
	if err != nil {
		return nil, notFound(err, "accumulator for player %s", playerID)
	}
	totals, err := s.BaseRates(ctx, playerID)
	if err != nil {
		return nil, err
	}
	rates, err := s.effectiveRates(ctx, playerID, totals)
	if err != nil {
		return nil, err
	}

	return &domain.ResourceSnapshot{
		Storage:     res.Stored(),
		StorageCap:  res.Caps(),
		Accumulator: acc.Amounts(),
		AccCap:      totals.AccCap,
		Rates:       rates,
		Population:  totals.Population,
		ProducedAt:  res.ProducedAt,
		CollectedAt: res.CollectedAt,
	}, nil
}

// SyncStorageCaps raises storage caps to the building-derived totals when those are larger.
func (s *ResourceService) SyncStorageCaps(ctx context.Context, playerID uuid.UUID) error {
	totals, err := s.BaseRates(ctx, playerID)
	if err != nil {
		return err
	}

	return s.repos.Tx.Transaction(ctx, func(repos *repository.Repositories) error {
		res, err := repos.Resource.GetForUpdate(ctx, playerID)
		if err != nil {
			return notFound(err, "resources for player %s", playerID)
		}

		caps := res.Caps()
		changed := false
		for _, r := range domain.StoredResourceTypes {
			if v := totals.StorageCap.Get(r); v > caps.Get(r) {
				caps.Set(r, v)
				changed = true
			}
		}
		if !changed {
			return nil
		}
		res.SetCaps(caps)
		return repos.Resource.Update(ctx, res)
	})
}

func (s *ResourceService) ScheduleProduction(ctx context.Context, playerID uuid.UUID, at time.Time) (uuid.UUID, error) {
	payload := domain.ResourceJobPayload{Action: domain.ActionProduceResources, PlayerID: playerID}
	return s.queue.Enqueue(ctx, domain.JobTypeResource, payload, domain.PriorityNormal, at)
}

// ScheduleNextTick enqueues the following production tick one interval from now.
func (s *ResourceService) ScheduleNextTick(ctx context.Context, playerID uuid.UUID) (uuid.UUID, error) {
	return s.ScheduleProduction(ctx, playerID, s.now().Add(s.interval))
}

// ScheduleRecalculation enqueues a one-off production run that does not reschedule itself.
func (s *ResourceService) ScheduleRecalculation(ctx context.Context, playerID uuid.UUID) (uuid.UUID, error) {
	payload := domain.ResourceJobPayload{Action: domain.ActionProduceResources, PlayerID: playerID, OneShot: true}
	return s.queue.Enqueue(ctx, domain.JobTypeResource, payload, domain.PriorityHigh, s.now())
}

// ScheduleCollection enqueues a collect job for the player.
func (s *ResourceService) ScheduleCollection(ctx context.Context, playerID uuid.UUID, at time.Time) (uuid.UUID, error) {
	payload := domain.ResourceJobPayload{Action: domain.ActionCollectResources, PlayerID: playerID}
	return s.queue.Enqueue(ctx, domain.JobTypeResource, payload, domain.PriorityNormal, at)
}

// ScheduleProductionForAll starts the production clock for every player
// that has no pending produce job.
func (s *ResourceService) ScheduleProductionForAll(ctx context.Context) ([]uuid.UUID, error) {
	players, err := s.repos.Player.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	scheduled, err := s.repos.Job.PlayersWithPendingProduction(ctx)
	if err != nil {
		return nil, err
	}

	skip := make(map[uuid.UUID]struct{}, len(scheduled))
	for _, id := range scheduled {
		skip[id] = struct{}{}
	}

	now := s.now()
	var reqs []domain.EnqueueRequest
	for _, id := range players {
		if _, ok := skip[id]; ok {
			continue
		}
		reqs = append(reqs, domain.EnqueueRequest{
			Type:     domain.JobTypeResource,
			Payload:  domain.ResourceJobPayload{Action: domain.ActionProduceResources, PlayerID: id},
			Priority: domain.PriorityNormal,
			RunAt:    now,
		})
	}
	if len(reqs) == 0 {
		return nil, nil
	}

	ids, err := s.queue.EnqueueBatch(ctx, reqs)
	if err != nil {
		return nil, err
	}
	log.Printf("INFO [ResourceService.ScheduleProductionForAll] scheduled production for %d players", len(ids))
	return ids, nil
}
