package processors

import (
	"context"
	"fmt"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/service"
)

type ModifierProcessor struct {
	modifiers *service.ModifierService
	resources *service.ResourceService
}

func NewModifierProcessor(modifiers *service.ModifierService, resources *service.ResourceService) *ModifierProcessor {
	return &ModifierProcessor{modifiers: modifiers, resources: resources}
}

func (p *ModifierProcessor) JobType() domain.JobType {
	return domain.JobTypeModifier
}

func (p *ModifierProcessor) Process(ctx context.Context, job *domain.Job) error {
	var payload domain.ModifierJobPayload
	if err := job.DecodePayload(&payload); err != nil {
		return err
	}

	switch payload.Action {
	case domain.ActionExpireModifier:
		if payload.ModifierID == nil {
			return fmt.Errorf("%w: expire job %s has no modifier_id", domain.ErrInvalidPayload, job.ID)
		}
		return p.modifiers.Expire(ctx, *payload.ModifierID)

	case domain.ActionRecalculateResources:
		p.modifiers.InvalidateCache(payload.PlayerID)
		_, err := p.resources.ScheduleRecalculation(ctx, payload.PlayerID)
		return err

	case domain.ActionUpdateModifierCache:
		p.modifiers.InvalidateCache(payload.PlayerID)
		return p.modifiers.WarmCache(ctx, payload.PlayerID)

	default:
		return fmt.Errorf("%w: unknown modifier action %q", domain.ErrInvalidPayload, payload.Action)
	}
}
