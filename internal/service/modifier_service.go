package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dom/empire-backend/internal/cache"
	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ModifierService struct {
	repos *repository.Repositories
	queue Enqueuer
	cache *cache.ModifierCache
	now   Clock
}

func NewModifierService(repos *repository.Repositories, queue Enqueuer, modCache *cache.ModifierCache, now Clock) *ModifierService {
	return &ModifierService{repos: repos, queue: queue, cache: modCache, now: now}
}

// Multiplier aggregates the player's active modifiers for a target into a value in [0.5, 3.0].
func (s *ModifierService) Multiplier(ctx context.Context, playerID uuid.UUID, target domain.ModifierTarget, resource *domain.ResourceType) (float64, error) {
	key := cache.NewKey(playerID, target, resource)
	var version uint64
	if s.cache != nil {
		if v, err := s.cache.Get(key); err == nil {
			return v, nil
		}
		version = s.cache.Version(playerID)
	}

	mods, err := s.repos.ActiveModifier.ListFullForTarget(ctx, playerID, target, resource, s.now())
	if err != nil {
		return 0, err
	}
	value := domain.AggregateMultiplier(mods)

	if s.cache != nil {
		if err := s.cache.Set(key, value, version); err != nil && !errors.Is(err, domain.ErrCacheWrite) {
			log.Printf("WARN [ModifierService.Multiplier] caching multiplier for player %s: %v", playerID, err)
		}
	}
	return value, nil
}

// ResourceMultipliers returns the multiplier for every resource type.
func (s *ModifierService) ResourceMultipliers(ctx context.Context, playerID uuid.UUID) (map[domain.ResourceType]float64, error) {
	out := make(map[domain.ResourceType]float64, len(domain.AllResourceTypes))
	for _, r := range domain.AllResourceTypes {
		r := r
		m, err := s.Multiplier(ctx, playerID, domain.TargetResource, &r)
		if err != nil {
			return nil, err
		}
		out[r] = m
	}
	return out, nil
}

func (s *ModifierService) ListActive(ctx context.Context, playerID uuid.UUID) ([]domain.FullModifier, error) {
	return s.repos.ActiveModifier.ListFull(ctx, playerID, s.now())
}

func (s *ModifierService) History(ctx context.Context, playerID uuid.UUID) ([]*domain.ModifierHistory, error) {
	return s.repos.ModifierHistory.ListByPlayer(ctx, playerID)
}

type ApplyModifierInput struct {
	PlayerID   uuid.UUID
	ModifierID uuid.UUID
	Source     domain.ModifierSource
	SourceID   *uuid.UUID
	ExpiresAt  *time.Time
}

// Apply attaches a modifier to a player. Timed modifiers get an expiry job.
func (s *ModifierService) Apply(ctx context.Context, input ApplyModifierInput) (*domain.ActiveModifier, error) {
	var (
		am  *domain.ActiveModifier
		mod *domain.Modifier
	)

	err := s.repos.Tx.Transaction(ctx, func(repos *repository.Repositories) error {
		if _, err := repos.Player.GetByID(ctx, input.PlayerID); err != nil {
			return notFound(err, "player %s", input.PlayerID)
		}

		var err error
		mod, err = repos.Modifier.GetByID(ctx, input.ModifierID)
		if err != nil {
			return notFound(err, "modifier %s", input.ModifierID)
		}

		am, err = s.applyInTx(ctx, repos, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.InvalidateCache(input.PlayerID)

	if am.ExpiresAt != nil {
		if _, err := s.ScheduleExpiry(ctx, am); err != nil {
			log.Printf("ERROR [ModifierService.Apply] scheduling expiry of %s: %v", am.ID, err)
		}
	}
	if mod.TargetType == domain.TargetResource && mod.TargetResource != nil {
		if _, err := s.ScheduleRecalculate(ctx, input.PlayerID, []domain.ResourceType{*mod.TargetResource}); err != nil {
			log.Printf("ERROR [ModifierService.Apply] scheduling recalculation for player %s: %v", input.PlayerID, err)
		}
	}

	am.Modifier = mod
	return am, nil
}

func (s *ModifierService) applyInTx(ctx context.Context, repos *repository.Repositories, input ApplyModifierInput) (*domain.ActiveModifier, error) {
	am := &domain.ActiveModifier{
		ID:         uuid.New(),
		PlayerID:   input.PlayerID,
		ModifierID: input.ModifierID,
		StartedAt:  s.now(),
		ExpiresAt:  input.ExpiresAt,
		SourceType: input.Source,
		SourceID:   input.SourceID,
	}
	if err := am.Validate(); err != nil {
		return nil, err
	}
	if err := repos.ActiveModifier.Create(ctx, am); err != nil {
		return nil, err
	}
	if err := repos.ModifierHistory.Create(ctx, domain.NewModifierHistory(am, domain.ActionApplied)); err != nil {
		return nil, err
	}
	return am, nil
}

// removeInTx deletes an active modifier and records the action in history.
func (s *ModifierService) removeInTx(ctx context.Context, repos *repository.Repositories, am *domain.ActiveModifier, action domain.ModifierAction) error {
	if err := repos.ActiveModifier.Delete(ctx, am.ID); err != nil {
		return err
	}
	return repos.ModifierHistory.Create(ctx, domain.NewModifierHistory(am, action))
}

// Expire removes an active modifier. A modifier that is already gone is not an error.
func (s *ModifierService) Expire(ctx context.Context, activeID uuid.UUID) error {
	var playerID uuid.UUID

	err := s.repos.Tx.Transaction(ctx, func(repos *repository.Repositories) error {
		am, err := repos.ActiveModifier.GetByID(ctx, activeID)
		if err != nil {
			return err
		}
		playerID = am.PlayerID
		return s.removeInTx(ctx, repos, am, domain.ActionExpired)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("INFO [ModifierService.Expire] active modifier %s already removed", activeID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("expire modifier %s: %w", activeID, err)
	}

	s.InvalidateCache(playerID)
	return nil
}

func (s *ModifierService) InvalidateCache(playerID uuid.UUID) {
	if s.cache != nil {
		s.cache.Invalidate(playerID)
	}
}

// WarmCache precomputes the multipliers most often read by production and training.
func (s *ModifierService) WarmCache(ctx context.Context, playerID uuid.UUID) error {
	if _, err := s.ResourceMultipliers(ctx, playerID); err != nil {
		return err
	}
	_, err := s.Multiplier(ctx, playerID, domain.TargetTraining, nil)
	return err
}

func (s *ModifierService) ScheduleExpiry(ctx context.Context, am *domain.ActiveModifier) (uuid.UUID, error) {
	id := am.ID
	payload := domain.ModifierJobPayload{
		Action:     domain.ActionExpireModifier,
		PlayerID:   am.PlayerID,
		ModifierID: &id,
	}
	return s.queue.Enqueue(ctx, domain.JobTypeModifier, payload, domain.PriorityNormal, *am.ExpiresAt)
}

func (s *ModifierService) ScheduleRecalculate(ctx context.Context, playerID uuid.UUID, resources []domain.ResourceType) (uuid.UUID, error) {
	payload := domain.ModifierJobPayload{
		Action:        domain.ActionRecalculateResources,
		PlayerID:      playerID,
		ResourceTypes: resources,
	}
	return s.queue.Enqueue(ctx, domain.JobTypeModifier, payload, domain.PriorityHigh, s.now())
}

func (s *ModifierService) ScheduleCacheRefresh(ctx context.Context, playerID uuid.UUID) (uuid.UUID, error) {
	payload := domain.ModifierJobPayload{
		Action:   domain.ActionUpdateModifierCache,
		PlayerID: playerID,
	}
	return s.queue.Enqueue(ctx, domain.JobTypeModifier, payload, domain.PriorityLow, s.now())
}
