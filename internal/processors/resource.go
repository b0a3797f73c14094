package processors

import (
	"context"
	"fmt"
	"log"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/service"
)

// ResourceProcessor runs production ticks. Every successful produce job
// schedules the next one, so the queue itself is the game clock.
type ResourceProcessor struct {
	resources *service.ResourceService
}

func NewResourceProcessor(resources *service.ResourceService) *ResourceProcessor {
	return &ResourceProcessor{resources: resources}
}

func (p *ResourceProcessor) JobType() domain.JobType {
	return domain.JobTypeResource
}

func (p *ResourceProcessor) Process(ctx context.Context, job *domain.Job) error {
	var payload domain.ResourceJobPayload
	if err := job.DecodePayload(&payload); err != nil {
		return err
	}

	switch payload.Action {
	case domain.ActionProduceResources:
		if err := p.resources.ProduceTick(ctx, payload.PlayerID); err != nil {
			return fmt.Errorf("produce for player %s: %w", payload.PlayerID, err)
		}
		if payload.OneShot {
			return nil
		}
		if _, err := p.resources.ScheduleNextTick(ctx, payload.PlayerID); err != nil {
			return fmt.Errorf("schedule next tick for player %s: %w", payload.PlayerID, err)
		}
		return nil

	case domain.ActionCollectResources:
		if _, err := p.resources.Collect(ctx, payload.PlayerID); err != nil {
			return fmt.Errorf("collect for player %s: %w", payload.PlayerID, err)
		}
		return nil

	default:
		log.Printf("WARN [ResourceProcessor.Process] job %s has unknown action %q", job.ID, payload.Action)
		return fmt.Errorf("%w: unknown resource action %q", domain.ErrInvalidPayload, payload.Action)
	}
}
