package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrNameTaken    = errors.New("player name already taken")
	ErrPlayerExists = errors.New("player already exists")
)

// Validation errors
var (
	ErrInvalidQuantity     = errors.New("quantity must be positive")
	ErrInvalidBuildingType = errors.New("building cannot train this unit type")
	ErrInvalidFaction      = errors.New("invalid faction")
	ErrInvalidRequirement  = errors.New("requirement must name exactly one building or tech prerequisite")
	ErrInvalidModifier     = errors.New("invalid modifier")
	ErrInvalidPayload      = errors.New("invalid job payload")
)

// Resource and building lifecycle errors
var (
	ErrInsufficientResources = errors.New("insufficient resources")
	ErrConstructBuilding     = errors.New("cannot construct building")
	ErrUpgradeBuilding       = errors.New("cannot upgrade building")
	ErrConfirmUpgrade        = errors.New("cannot confirm upgrade")
)

// Training queue errors
var (
	ErrTrainingQueueFull = errors.New("training queue is full")
	ErrStartTraining     = errors.New("cannot start training")
	ErrCancelTraining    = errors.New("cannot cancel training")
	ErrCompleteTraining  = errors.New("cannot complete training")
)

// Modifier cache errors
var (
	ErrCacheMiss  = errors.New("modifier cache miss")
	ErrCacheWrite = errors.New("modifier cache write conflict")
	ErrCacheLimit = errors.New("modifier cache entry limit reached")
)
