package postgres

import (
	"context"
	"time"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type ConnectionOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

func NewConnection(databaseURL string, opts ConnectionOptions) (*gorm.DB, error) {
	logLevel := opts.LogLevel
	if logLevel == 0 {
		logLevel = logger.Warn
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Models lists every table in dependency order.
func Models() []interface{} {
	return []interface{}{
		&domain.Player{},
		&domain.Modifier{},
		&domain.FactionModifier{},
		&domain.ActiveModifier{},
		&domain.ModifierHistory{},
		&domain.PlayerResource{},
		&domain.PlayerAccumulator{},
		&domain.Building{},
		&domain.BuildingLevel{},
		&domain.BuildingRequirement{},
		&domain.BuildingResource{},
		&domain.PlayerBuilding{},
		&domain.Unit{},
		&domain.UnitCost{},
		&domain.BuildingUnitType{},
		&domain.PlayerUnit{},
		&domain.TrainingQueueEntry{},
		&domain.Job{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		Player:          NewPlayerRepository(db),
		Resource:        NewResourceRepository(db),
		Accumulator:     NewAccumulatorRepository(db),
		Building:        NewBuildingRepository(db),
		PlayerBuilding:  NewPlayerBuildingRepository(db),
		Modifier:        NewModifierRepository(db),
		ActiveModifier:  NewActiveModifierRepository(db),
		ModifierHistory: NewModifierHistoryRepository(db),
		Unit:            NewUnitRepository(db),
		PlayerUnit:      NewPlayerUnitRepository(db),
		TrainingQueue:   NewTrainingQueueRepository(db),
		Job:             NewJobRepository(db),
		Tx:              &transactor{db: db},
	}
}

type transactor struct {
	db *gorm.DB
}

func (t *transactor) Transaction(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
