package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type JobType string

const (
	JobTypeModifier JobType = "modifier"
	JobTypeResource JobType = "resource"
	JobTypeTraining JobType = "training"
	JobTypeBuilding JobType = "building"
)

var AllJobTypes = []JobType{JobTypeModifier, JobTypeResource, JobTypeTraining, JobTypeBuilding}

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

// JobPriority orders claims; lower runs first.
type JobPriority int

const (
	PriorityHigh   JobPriority = 0
	PriorityNormal JobPriority = 50
	PriorityLow    JobPriority = 100
)

const (
	DefaultMaxRetries     = 3
	DefaultTimeoutSeconds = 300
)

// ClaimSlack lets jobs due within the current tick be claimed early. A job
// can therefore run up to ClaimSlack before its RunAt.
const ClaimSlack = time.Second

type Job struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Type           JobType        `json:"type" gorm:"column:job_type;type:varchar(20);not null;index:idx_jobs_claim,priority:1"`
	Status         JobStatus      `json:"status" gorm:"type:varchar(20);not null;default:'pending';index:idx_jobs_claim,priority:2"`
	Payload        datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	RunAt          time.Time      `json:"runAt" gorm:"not null;index:idx_jobs_claim,priority:4"`
	Priority       JobPriority    `json:"priority" gorm:"not null;index:idx_jobs_claim,priority:3"`
	MaxRetries     int            `json:"maxRetries" gorm:"not null;default:3"`
	Retries        int            `json:"retries" gorm:"not null;default:0"`
	LastError      *string        `json:"lastError"`
	LockedAt       *time.Time     `json:"lockedAt"`
	LockedBy       *string        `json:"lockedBy" gorm:"type:varchar(100)"`
	TimeoutSeconds int            `json:"timeoutSeconds" gorm:"not null;default:300"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

func (Job) TableName() string {
	return "jobs"
}

// NewJob builds a pending job with the default retry and timeout settings.
func NewJob(jobType JobType, payload any, priority JobPriority, runAt time.Time) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &Job{
		ID:             uuid.New(),
		Type:           jobType,
		Status:         JobPending,
		Payload:        datatypes.JSON(raw),
		RunAt:          runAt.UTC(),
		Priority:       priority,
		MaxRetries:     DefaultMaxRetries,
		TimeoutSeconds: DefaultTimeoutSeconds,
	}, nil
}

// DecodePayload unmarshals the job payload into v.
func (j *Job) DecodePayload(v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("%w: job %s: %v", ErrInvalidPayload, j.ID, err)
	}
	return nil
}

// IsStale reports whether a claimed job has held its lock past its timeout.
func (j *Job) IsStale(now time.Time) bool {
	if j.Status != JobInProgress || j.LockedAt == nil {
		return false
	}
	return j.LockedAt.Add(time.Duration(j.TimeoutSeconds) * time.Second).Before(now)
}

type ResourceAction string

const (
	ActionProduceResources ResourceAction = "produce_resources"
	ActionCollectResources ResourceAction = "collect_resources"
)

// ResourceJobPayload drives production. A one-shot produce job does not
// schedule the next tick.
type ResourceJobPayload struct {
	Action   ResourceAction `json:"action"`
	PlayerID uuid.UUID      `json:"player_id"`
	OneShot  bool           `json:"one_shot,omitempty"`
}

type ModifierJobAction string

const (
	ActionExpireModifier       ModifierJobAction = "expire_modifier"
	ActionRecalculateResources ModifierJobAction = "recalculate_resources"
	ActionUpdateModifierCache  ModifierJobAction = "update_modifier_cache"
)

// ModifierJobPayload carries one of the modifier job variants.
// ModifierID names the ActiveModifier to expire.
type ModifierJobPayload struct {
	Action        ModifierJobAction `json:"action"`
	PlayerID      uuid.UUID         `json:"player_id"`
	ModifierID    *uuid.UUID        `json:"modifier_id,omitempty"`
	ResourceTypes []ResourceType    `json:"resource_types,omitempty"`
}

type TrainingJobPayload struct {
	TrainingQueueEntryID uuid.UUID `json:"training_queue_entry_id"`
	PlayerID             uuid.UUID `json:"player_id"`
	UnitID               uuid.UUID `json:"unit_id"`
	Quantity             int64     `json:"quantity"`
}

type BuildingJobAction string

const ActionConfirmUpgrade BuildingJobAction = "confirm_upgrade"

type BuildingJobPayload struct {
	Action           BuildingJobAction `json:"action"`
	PlayerID         uuid.UUID         `json:"player_id"`
	PlayerBuildingID uuid.UUID         `json:"player_building_id"`
}

// EnqueueRequest is one entry of a batch enqueue.
type EnqueueRequest struct {
	Type     JobType
	Payload  any
	Priority JobPriority
	RunAt    time.Time
}
