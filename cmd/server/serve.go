package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/empire-backend/internal/api"
	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/jobs"
	"github.com/dom/empire-backend/internal/metrics"
	"github.com/dom/empire-backend/internal/processors"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var noWorkers bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the job workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(noWorkers)
		},
	}

	cmd.Flags().BoolVar(&noWorkers, "no-workers", false, "Serve the API without starting job workers")
	return cmd
}

func runServe(noWorkers bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	if cfg.Metrics.Enabled {
		if _, err := metrics.InitRegistry(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pool *jobs.WorkerPool
	if !noWorkers {
		if _, err := a.queue.ReapStale(ctx); err != nil {
			log.Printf("ERROR [serve] reaping stale jobs: %v", err)
		}

		poolCfg := jobs.DefaultPoolConfig()
		poolCfg.PollInterval = cfg.Workers.PollInterval
		poolCfg.ShutdownTimeout = cfg.Workers.ShutdownTimeout
		pool = jobs.NewWorkerPool(a.queue, poolCfg)

		counts := map[domain.JobType]int{
			domain.JobTypeResource: cfg.Workers.Resource,
			domain.JobTypeModifier: cfg.Workers.Modifier,
			domain.JobTypeTraining: cfg.Workers.Training,
			domain.JobTypeBuilding: cfg.Workers.Building,
		}
		for _, proc := range processors.All(a.services) {
			pool.SpawnN(ctx, proc, counts[proc.JobType()])
		}
	}

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      api.NewRouter(a.services, cfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR [serve] server forced to shutdown: %v", err)
	}

	if pool != nil {
		// Workers finish their current job before observing the broadcast.
		if err := pool.Shutdown(); err != nil {
			log.Printf("ERROR [serve] %v", err)
			cancel()
		}
	}

	log.Println("Server stopped")
	return nil
}
