package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dom/empire-backend/internal/cache"
	"github.com/dom/empire-backend/internal/config"
	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Enqueuer schedules deferred work on the durable job queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType domain.JobType, payload any, priority domain.JobPriority, runAt time.Time) (uuid.UUID, error)
	EnqueueBatch(ctx context.Context, reqs []domain.EnqueueRequest) ([]uuid.UUID, error)
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
}

// Clock returns the current UTC time.
type Clock func() time.Time

// SystemClock is the production Clock.
func SystemClock() time.Time {
	return time.Now().UTC()
}

type Services struct {
	Modifier *ModifierService
	Resource *ResourceService
	Building *BuildingService
	Training *TrainingService
	Player   *PlayerService
}

// NewServices wires every service. modCache may be nil to disable memoisation.
func NewServices(repos *repository.Repositories, queue Enqueuer, modCache *cache.ModifierCache, cfg *config.Config) *Services {
	return NewServicesWithClock(repos, queue, modCache, cfg, SystemClock)
}

func NewServicesWithClock(repos *repository.Repositories, queue Enqueuer, modCache *cache.ModifierCache, cfg *config.Config, now Clock) *Services {
	interval := 2 * time.Minute
	if cfg != nil && cfg.Production.Interval > 0 {
		interval = cfg.Production.Interval
	}

	modifiers := NewModifierService(repos, queue, modCache, now)
	resources := NewResourceService(repos, modifiers, queue, interval, now)

	return &Services{
		Modifier: modifiers,
		Resource: resources,
		Building: NewBuildingService(repos, resources, queue, now),
		Training: NewTrainingService(repos, modifiers, queue, now),
		Player:   NewPlayerService(repos, modifiers, resources, now),
	}
}

// notFound translates a missing row into domain.ErrNotFound.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, fmt.Sprintf(format, args...))
	}
	return err
}
