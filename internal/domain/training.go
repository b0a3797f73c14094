package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxQueuePerBuilding bounds active entries per owned building.
	MaxQueuePerBuilding = 5
	// CancelRefundRate is the share of the remaining cost returned on cancel.
	CancelRefundRate = 0.80
)

type TrainingStatus string

const (
	TrainingPending    TrainingStatus = "pending"
	TrainingInProgress TrainingStatus = "in_progress"
	TrainingCompleted  TrainingStatus = "completed"
	TrainingCancelled  TrainingStatus = "cancelled"
)

// ActiveTrainingStatuses are the statuses that occupy a queue slot.
var ActiveTrainingStatuses = []TrainingStatus{TrainingPending, TrainingInProgress}

func (s TrainingStatus) IsActive() bool {
	return s == TrainingPending || s == TrainingInProgress
}

// TrainingQueueEntry is a batch of units being trained at a player-owned building.
// BuildingID refers to a PlayerBuilding.
type TrainingQueueEntry struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	PlayerID    uuid.UUID      `json:"playerId" gorm:"type:uuid;not null;index"`
	BuildingID  uuid.UUID      `json:"buildingId" gorm:"type:uuid;not null;index"`
	UnitID      uuid.UUID      `json:"unitId" gorm:"type:uuid;not null"`
	Quantity    int64          `json:"quantity" gorm:"not null;check:chk_training_queue_quantity,quantity > 0"`
	StartedAt   time.Time      `json:"startedAt" gorm:"not null"`
	CompletedAt *time.Time     `json:"completedAt"`
	Status      TrainingStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	JobID       *uuid.UUID     `json:"jobId" gorm:"type:uuid;index"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`

	Player   *Player         `json:"-" gorm:"foreignKey:PlayerID;constraint:OnDelete:CASCADE"`
	Building *PlayerBuilding `json:"-" gorm:"foreignKey:BuildingID;constraint:OnDelete:CASCADE"`
	Unit     *Unit           `json:"unit,omitempty" gorm:"foreignKey:UnitID"`
}

func (TrainingQueueEntry) TableName() string {
	return "training_queue"
}

// TrainingDuration returns the per-unit and total training time.
// The per-unit time is rounded to whole seconds before scaling by quantity.
func TrainingDuration(baseSeconds int64, multiplier float64, quantity int64) (perUnit, total time.Duration) {
	seconds := int64(math.Round(float64(baseSeconds) * multiplier))
	return time.Duration(seconds) * time.Second, time.Duration(seconds*quantity) * time.Second
}

// RemainingRatio is 1 for pending entries, otherwise the unelapsed share of
// baseSeconds*multiplier*quantity, never negative.
func RemainingRatio(status TrainingStatus, baseSeconds int64, multiplier float64, quantity int64, elapsed time.Duration) float64 {
	if status == TrainingPending {
		return 1
	}
	expected := float64(baseSeconds) * multiplier * float64(quantity)
	if expected <= 0 {
		return 0
	}
	return math.Max(0, 1-elapsed.Seconds()/expected)
}

// ComputeRefund returns floor(cost * CancelRefundRate * ratio) per channel.
func ComputeRefund(totalCost Amounts, ratio float64) Amounts {
	rate := CancelRefundRate * ratio
	var out Amounts
	for _, r := range StoredResourceTypes {
		out.Set(r, int64(math.Floor(float64(totalCost.Get(r))*rate)))
	}
	return out
}
