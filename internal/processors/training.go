package processors

import (
	"context"
	"errors"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/service"
)

type TrainingProcessor struct {
	training *service.TrainingService
}

func NewTrainingProcessor(training *service.TrainingService) *TrainingProcessor {
	return &TrainingProcessor{training: training}
}

func (p *TrainingProcessor) JobType() domain.JobType {
	return domain.JobTypeTraining
}

func (p *TrainingProcessor) Process(ctx context.Context, job *domain.Job) error {
	var payload domain.TrainingJobPayload
	if err := job.DecodePayload(&payload); err != nil {
		return err
	}

	err := p.training.CompleteTraining(ctx, job.ID)
	if errors.Is(err, domain.ErrNotFound) {
		// The job can fire before its id is stored on the entry.
		return p.training.CompleteEntry(ctx, payload.TrainingQueueEntryID)
	}
	return err
}
