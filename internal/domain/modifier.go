package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MagnitudeKind string

const (
	MagnitudePercentage MagnitudeKind = "percentage"
	MagnitudeFlat       MagnitudeKind = "flat"
	MagnitudeMultiplier MagnitudeKind = "multiplier"
)

type ModifierTarget string

const (
	TargetResource ModifierTarget = "resource"
	TargetCombat   ModifierTarget = "combat"
	TargetTraining ModifierTarget = "training"
	TargetResearch ModifierTarget = "research"
)

func (t ModifierTarget) IsValid() bool {
	switch t {
	case TargetResource, TargetCombat, TargetTraining, TargetResearch:
		return true
	}
	return false
}

type StackingBehaviour string

const (
	StackingAdditive       StackingBehaviour = "additive"
	StackingMultiplicative StackingBehaviour = "multiplicative"
	StackingHighestOnly    StackingBehaviour = "highest_only"
)

type ModifierSource string

const (
	SourceFaction  ModifierSource = "faction"
	SourceItem     ModifierSource = "item"
	SourceSkill    ModifierSource = "skill"
	SourceResearch ModifierSource = "research"
	SourceEvent    ModifierSource = "event"
)

type ModifierAction string

const (
	ActionApplied ModifierAction = "applied"
	ActionExpired ModifierAction = "expired"
	ActionRemoved ModifierAction = "removed"
	ActionUpdated ModifierAction = "updated"
)

// Global bounds on any aggregated multiplier.
const (
	MinMultiplier = 0.5
	MaxMultiplier = 3.0
)

type Modifier struct {
	ID                uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name              string            `json:"name" gorm:"uniqueIndex;not null"`
	Description       string            `json:"description"`
	Magnitude         float64           `json:"magnitude" gorm:"type:numeric(10,4);not null"`
	MagnitudeKind     MagnitudeKind     `json:"magnitudeKind" gorm:"type:varchar(20);not null;default:'percentage'"`
	TargetType        ModifierTarget    `json:"targetType" gorm:"type:varchar(20);not null"`
	TargetResource    *ResourceType     `json:"targetResource" gorm:"type:varchar(20)"`
	StackingBehaviour StackingBehaviour `json:"stackingBehaviour" gorm:"type:varchar(20);not null;default:'additive'"`
	StackingGroup     *string           `json:"stackingGroup" gorm:"type:varchar(50)"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

func (Modifier) TableName() string {
	return "modifiers"
}

// Validate enforces that exactly the resource-targeted modifiers carry a target resource.
func (m *Modifier) Validate() error {
	if m.TargetType == TargetResource && m.TargetResource == nil {
		return fmt.Errorf("%w: resource modifier %q needs a target resource", ErrInvalidModifier, m.Name)
	}
	if m.TargetType != TargetResource && m.TargetResource != nil {
		return fmt.Errorf("%w: %s modifier %q cannot target a resource", ErrInvalidModifier, m.TargetType, m.Name)
	}
	return nil
}

func (m *Modifier) BeforeSave(tx *gorm.DB) error {
	return m.Validate()
}

type ActiveModifier struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	PlayerID   uuid.UUID      `json:"playerId" gorm:"type:uuid;not null;index"`
	ModifierID uuid.UUID      `json:"modifierId" gorm:"type:uuid;not null;index"`
	StartedAt  time.Time      `json:"startedAt" gorm:"not null"`
	ExpiresAt  *time.Time     `json:"expiresAt"`
	SourceType ModifierSource `json:"sourceType" gorm:"type:varchar(20);not null"`
	SourceID   *uuid.UUID     `json:"sourceId" gorm:"type:uuid"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`

	Player   *Player   `json:"-" gorm:"foreignKey:PlayerID;constraint:OnDelete:CASCADE"`
	Modifier *Modifier `json:"modifier,omitempty" gorm:"foreignKey:ModifierID;constraint:OnDelete:CASCADE"`
}

func (ActiveModifier) TableName() string {
	return "active_modifiers"
}

func (a *ActiveModifier) Validate() error {
	if a.ExpiresAt != nil && !a.ExpiresAt.After(a.StartedAt) {
		return fmt.Errorf("%w: expiry must be after start", ErrInvalidModifier)
	}
	return nil
}

func (a *ActiveModifier) BeforeSave(tx *gorm.DB) error {
	return a.Validate()
}

// ModifierHistory is an append-only ledger of ActiveModifier lifecycle events.
type ModifierHistory struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	PlayerID         uuid.UUID      `json:"playerId" gorm:"type:uuid;not null;index"`
	ModifierID       uuid.UUID      `json:"modifierId" gorm:"type:uuid;not null"`
	ActiveModifierID uuid.UUID      `json:"activeModifierId" gorm:"type:uuid;not null"`
	Action           ModifierAction `json:"action" gorm:"type:varchar(20);not null"`
	SourceType       ModifierSource `json:"sourceType" gorm:"type:varchar(20);not null"`
	SourceID         *uuid.UUID     `json:"sourceId" gorm:"type:uuid"`
	CreatedAt        time.Time      `json:"createdAt"`

	Player *Player `json:"-" gorm:"foreignKey:PlayerID;constraint:OnDelete:CASCADE"`
}

func (ModifierHistory) TableName() string {
	return "modifier_history"
}

func NewModifierHistory(am *ActiveModifier, action ModifierAction) *ModifierHistory {
	return &ModifierHistory{
		ID:               uuid.New(),
		PlayerID:         am.PlayerID,
		ModifierID:       am.ModifierID,
		ActiveModifierID: am.ID,
		Action:           action,
		SourceType:       am.SourceType,
		SourceID:         am.SourceID,
		CreatedAt:        time.Now().UTC(),
	}
}

// FullModifier is an ActiveModifier joined with its definition.
type FullModifier struct {
	ActiveID          uuid.UUID         `json:"activeId"`
	ModifierID        uuid.UUID         `json:"modifierId"`
	PlayerID          uuid.UUID         `json:"playerId"`
	Name              string            `json:"name"`
	Magnitude         float64           `json:"magnitude"`
	MagnitudeKind     MagnitudeKind     `json:"magnitudeKind"`
	TargetType        ModifierTarget    `json:"targetType"`
	TargetResource    *ResourceType     `json:"targetResource"`
	StackingBehaviour StackingBehaviour `json:"stackingBehaviour"`
	StackingGroup     *string           `json:"stackingGroup"`
	SourceType        ModifierSource    `json:"sourceType"`
	SourceID          *uuid.UUID        `json:"sourceId"`
	StartedAt         time.Time         `json:"startedAt"`
	ExpiresAt         *time.Time        `json:"expiresAt"`
}

func NewFullModifier(am *ActiveModifier, m *Modifier) FullModifier {
	return FullModifier{
		ActiveID:          am.ID,
		ModifierID:        m.ID,
		PlayerID:          am.PlayerID,
		Name:              m.Name,
		Magnitude:         m.Magnitude,
		MagnitudeKind:     m.MagnitudeKind,
		TargetType:        m.TargetType,
		TargetResource:    m.TargetResource,
		StackingBehaviour: m.StackingBehaviour,
		StackingGroup:     m.StackingGroup,
		SourceType:        am.SourceType,
		SourceID:          am.SourceID,
		StartedAt:         am.StartedAt,
		ExpiresAt:         am.ExpiresAt,
	}
}

// Group returns the stacking group, falling back to "{source}_{target}".
func (f FullModifier) Group() string {
	if f.StackingGroup != nil && *f.StackingGroup != "" {
		return *f.StackingGroup
	}
	return strings.ToLower(fmt.Sprintf("%s_%s", f.SourceType, f.TargetType))
}

// Matches reports whether the modifier applies to the given target and resource.
func (f FullModifier) Matches(target ModifierTarget, resource *ResourceType) bool {
	if f.TargetType != target {
		return false
	}
	if f.TargetResource == nil || resource == nil {
		return f.TargetResource == nil && resource == nil
	}
	return *f.TargetResource == *resource
}

// AggregateMultiplier folds modifiers into a single multiplier:
//
//	clamp((1 + sum(additive)) * prod(1 + m for m in multiplicative and per-group highest), 0.5, 3.0)
//
// The caller is expected to pass only modifiers matching one target.
func AggregateMultiplier(mods []FullModifier) float64 {
	if len(mods) == 0 {
		return 1
	}

	additive := 0.0
	var factors []float64
	highest := map[string]float64{}

	for _, m := range mods {
		switch m.StackingBehaviour {
		case StackingAdditive:
			additive += m.Magnitude
		case StackingMultiplicative:
			factors = append(factors, m.Magnitude)
		case StackingHighestOnly:
			g := m.Group()
			if cur, ok := highest[g]; !ok || m.Magnitude > cur {
				highest[g] = m.Magnitude
			}
		}
	}
	for _, v := range highest {
		factors = append(factors, v)
	}

	multiplicative := 1.0
	for _, f := range factors {
		multiplicative *= 1 + f
	}

	return ClampMultiplier((1 + additive) * multiplicative)
}

func ClampMultiplier(v float64) float64 {
	if v < MinMultiplier {
		return MinMultiplier
	}
	if v > MaxMultiplier {
		return MaxMultiplier
	}
	return v
}

// FilterModifiers keeps the modifiers that match target and resource.
func FilterModifiers(mods []FullModifier, target ModifierTarget, resource *ResourceType) []FullModifier {
	out := make([]FullModifier, 0, len(mods))
	for _, m := range mods {
		if m.Matches(target, resource) {
			out = append(out, m)
		}
	}
	return out
}
