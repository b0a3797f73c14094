package processors

import (
	"context"
	"fmt"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/service"
)

// BuildingProcessor confirms upgrades whose timer has elapsed. A building the
// client already confirmed is not an error, and a job claimed early is
// rescheduled.
type BuildingProcessor struct {
	buildings *service.BuildingService
}

func NewBuildingProcessor(buildings *service.BuildingService) *BuildingProcessor {
	return &BuildingProcessor{buildings: buildings}
}

func (p *BuildingProcessor) JobType() domain.JobType {
	return domain.JobTypeBuilding
}

func (p *BuildingProcessor) Process(ctx context.Context, job *domain.Job) error {
	var payload domain.BuildingJobPayload
	if err := job.DecodePayload(&payload); err != nil {
		return err
	}
	if payload.Action != domain.ActionConfirmUpgrade {
		return fmt.Errorf("%w: unknown building action %q", domain.ErrInvalidPayload, payload.Action)
	}

	return p.buildings.ConfirmScheduled(ctx, payload.PlayerID, payload.PlayerBuildingID)
}
