package processors

import (
	"github.com/dom/empire-backend/internal/jobs"
	"github.com/dom/empire-backend/internal/service"
)

// All returns one processor per job type.
func All(svc *service.Services) []jobs.Processor {
	return []jobs.Processor{
		NewResourceProcessor(svc.Resource),
		NewModifierProcessor(svc.Modifier, svc.Resource),
		NewTrainingProcessor(svc.Training),
		NewBuildingProcessor(svc.Building),
	}
}
