package main

import (
	"fmt"
	"log"

	"github.com/dom/empire-backend/internal/cache"
	"github.com/dom/empire-backend/internal/config"
	"github.com/dom/empire-backend/internal/jobs"
	"github.com/dom/empire-backend/internal/repository"
	"github.com/dom/empire-backend/internal/repository/postgres"
	"github.com/dom/empire-backend/internal/service"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// app is the runtime state built at boot and torn down after the worker pool has joined.
type app struct {
	cfg      *config.Config
	db       *gorm.DB
	repos    *repository.Repositories
	queue    *jobs.Queue
	modCache *cache.ModifierCache
	services *service.Services
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewConnection(cfg.Database.URL, postgres.ConnectionOptions{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        gormLogLevel(cfg.Database.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repos := postgres.NewRepositories(db)
	queue := jobs.NewQueue(repos.Job).WithClock(service.SystemClock)

	var modCache *cache.ModifierCache
	if cfg.ModifierCache.Enabled {
		modCache = cache.NewModifierCache(cfg.ModifierCache.TTL, cfg.ModifierCache.MaxEntriesPerPlayer).WithClock(service.SystemClock)
	}

	return &app{
		cfg:      cfg,
		db:       db,
		repos:    repos,
		queue:    queue,
		modCache: modCache,
		services: service.NewServicesWithClock(repos, queue, modCache, cfg, service.SystemClock),
	}, nil
}

func (a *app) close() {
	if a.modCache != nil {
		a.modCache.Clear()
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Printf("WARN [app.close] closing database: %v", err)
	}
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
