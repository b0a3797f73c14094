package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/metrics"
	"github.com/google/uuid"
)

var ErrShutdownTimeout = errors.New("worker pool did not stop in time")

// Processor handles jobs of one type.
type Processor interface {
	JobType() domain.JobType
	Process(ctx context.Context, job *domain.Job) error
}

type PoolConfig struct {
	PollInterval    time.Duration
	IdleSleep       time.Duration
	ErrorSleep      time.Duration
	ShutdownTimeout time.Duration
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		PollInterval:    time.Second,
		IdleSleep:       time.Second,
		ErrorSleep:      5 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// WorkerPool runs long-lived workers that claim jobs from a Queue.
type WorkerPool struct {
	queue *Queue
	cfg   PoolConfig
	wg    sync.WaitGroup
}

func NewWorkerPool(queue *Queue, cfg PoolConfig) *WorkerPool {
	return &WorkerPool{queue: queue, cfg: cfg}
}

// Spawn starts one worker per processor.
func (p *WorkerPool) Spawn(ctx context.Context, processors ...Processor) {
	for _, proc := range processors {
		p.SpawnN(ctx, proc, 1)
	}
}

// SpawnN starts n workers sharing a processor.
func (p *WorkerPool) SpawnN(ctx context.Context, proc Processor, n int) {
	for i := 0; i < n; i++ {
		workerID := fmt.Sprintf("%s-%s", proc.JobType(), uuid.New().String()[:8])
		p.wg.Add(1)
		go p.run(ctx, workerID, proc)
	}
}

// Shutdown broadcasts the stop signal and waits for workers to finish their current job.
func (p *WorkerPool) Shutdown() error {
	p.queue.Shutdown()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Printf("INFO [jobs.WorkerPool] all workers stopped")
		return nil
	case <-time.After(p.cfg.ShutdownTimeout):
		log.Printf("ERROR [jobs.WorkerPool] workers still running after %s", p.cfg.ShutdownTimeout)
		return ErrShutdownTimeout
	}
}

func (p *WorkerPool) run(ctx context.Context, workerID string, proc Processor) {
	defer p.wg.Done()

	jobType := proc.JobType()
	metrics.WorkerStarted(string(jobType))
	defer metrics.WorkerStopped(string(jobType))

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.queue.Done():
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		job, err := p.queue.ClaimNext(ctx, workerID, &jobType)
		if err != nil {
			log.Printf("ERROR [jobs.Worker] %s: claim failed: %v", workerID, err)
			if !p.sleep(ctx, p.cfg.ErrorSleep) {
				return
			}
			continue
		}
		if job == nil {
			if !p.sleep(ctx, p.cfg.IdleSleep) {
				return
			}
			continue
		}

		p.execute(ctx, workerID, proc, job)
	}
}

func (p *WorkerPool) execute(ctx context.Context, workerID string, proc Processor, job *domain.Job) {
	start := time.Now()
	err := safeProcess(ctx, proc, job)
	elapsed := time.Since(start)

	// Outcome is recorded even when shutdown cancelled ctx mid-job.
	recordCtx := context.WithoutCancel(ctx)

	if err != nil {
		log.Printf("ERROR [jobs.Worker] %s: job %s (%s) failed: %v", workerID, job.ID, job.Type, err)
		if ferr := p.queue.Fail(recordCtx, job.ID, err.Error()); ferr != nil {
			log.Printf("ERROR [jobs.Worker] %s: marking job %s failed: %v", workerID, job.ID, ferr)
		}
		metrics.RecordJobProcessed(string(job.Type), metrics.OutcomeFailed, elapsed)
		return
	}

	if cerr := p.queue.Complete(recordCtx, job.ID); cerr != nil {
		log.Printf("ERROR [jobs.Worker] %s: marking job %s completed: %v", workerID, job.ID, cerr)
	}
	metrics.RecordJobProcessed(string(job.Type), metrics.OutcomeCompleted, elapsed)
}

func safeProcess(ctx context.Context, proc Processor, job *domain.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return proc.Process(ctx, job)
}

// sleep waits for d and reports false if the pool is stopping.
func (p *WorkerPool) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-p.queue.Done():
		return false
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
