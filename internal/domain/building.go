package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Building struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	Faction   Faction   `json:"faction" gorm:"type:varchar(10);not null;default:'neutral';index"`
	MaxLevel  int       `json:"maxLevel" gorm:"not null;default:1"`
	MaxCount  int       `json:"maxCount" gorm:"not null;default:1"`
	Starter   bool      `json:"starter" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Building) TableName() string {
	return "buildings"
}

// BuildingLevel row for level L holds the cost and duration of going from L-1 to L.
type BuildingLevel struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	BuildingID     uuid.UUID `json:"buildingId" gorm:"type:uuid;not null;uniqueIndex:idx_building_levels_building_level"`
	Level          int       `json:"level" gorm:"not null;uniqueIndex:idx_building_levels_building_level"`
	UpgradeSeconds int64     `json:"upgradeSeconds" gorm:"not null;default:0"`
	ReqFood        *int64    `json:"reqFood"`
	ReqWood        *int64    `json:"reqWood"`
	ReqStone       *int64    `json:"reqStone"`
	ReqGold        *int64    `json:"reqGold"`

	Building     *Building             `json:"-" gorm:"foreignKey:BuildingID;constraint:OnDelete:CASCADE"`
	Requirements []BuildingRequirement `json:"requirements,omitempty" gorm:"foreignKey:BuildingLevelID"`
}

func (BuildingLevel) TableName() string {
	return "building_levels"
}

// Cost treats a missing requirement as zero.
func (l *BuildingLevel) Cost() Amounts {
	return Amounts{
		Food:  valueOrZero(l.ReqFood),
		Wood:  valueOrZero(l.ReqWood),
		Stone: valueOrZero(l.ReqStone),
		Gold:  valueOrZero(l.ReqGold),
	}
}

func (l *BuildingLevel) Duration() time.Duration {
	return time.Duration(l.UpgradeSeconds) * time.Second
}

func valueOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// BuildingRequirement is either a building prerequisite or a tech prerequisite, never both.
type BuildingRequirement struct {
	ID                    uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	BuildingLevelID       uuid.UUID  `json:"buildingLevelId" gorm:"type:uuid;not null;index"`
	RequiredBuildingID    *uuid.UUID `json:"requiredBuildingId" gorm:"type:uuid"`
	RequiredBuildingLevel *int       `json:"requiredBuildingLevel"`
	RequiredTechID        *uuid.UUID `json:"requiredTechId" gorm:"type:uuid"`
	RequiredTechLevel     *int       `json:"requiredTechLevel"`

	BuildingLevel *BuildingLevel `json:"-" gorm:"foreignKey:BuildingLevelID;constraint:OnDelete:CASCADE"`
}

func (BuildingRequirement) TableName() string {
	return "building_requirements"
}

func (r *BuildingRequirement) Validate() error {
	hasBuilding := r.RequiredBuildingID != nil && r.RequiredBuildingLevel != nil
	hasTech := r.RequiredTechID != nil && r.RequiredTechLevel != nil
	if hasBuilding == hasTech {
		return ErrInvalidRequirement
	}
	return nil
}

func (r *BuildingRequirement) BeforeSave(tx *gorm.DB) error {
	return r.Validate()
}

// BuildingResource is the production and capacity contribution of a building at a level.
type BuildingResource struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	BuildingID  uuid.UUID `json:"buildingId" gorm:"type:uuid;not null;uniqueIndex:idx_building_resources_building_level"`
	Level       int       `json:"level" gorm:"not null;uniqueIndex:idx_building_resources_building_level"`
	Population  int64     `json:"population" gorm:"not null;default:0"`
	Food        int64     `json:"food" gorm:"not null;default:0"`
	Wood        int64     `json:"wood" gorm:"not null;default:0"`
	Stone       int64     `json:"stone" gorm:"not null;default:0"`
	Gold        int64     `json:"gold" gorm:"not null;default:0"`
	FoodCap     int64     `json:"foodCap" gorm:"not null;default:0"`
	WoodCap     int64     `json:"woodCap" gorm:"not null;default:0"`
	StoneCap    int64     `json:"stoneCap" gorm:"not null;default:0"`
	GoldCap     int64     `json:"goldCap" gorm:"not null;default:0"`
	FoodAccCap  int64     `json:"foodAccCap" gorm:"not null;default:0"`
	WoodAccCap  int64     `json:"woodAccCap" gorm:"not null;default:0"`
	StoneAccCap int64     `json:"stoneAccCap" gorm:"not null;default:0"`
	GoldAccCap  int64     `json:"goldAccCap" gorm:"not null;default:0"`

	Building *Building `json:"-" gorm:"foreignKey:BuildingID;constraint:OnDelete:CASCADE"`
}

func (BuildingResource) TableName() string {
	return "building_resources"
}

type PlayerBuilding struct {
	ID                uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	PlayerID          uuid.UUID  `json:"playerId" gorm:"type:uuid;not null;index"`
	BuildingID        uuid.UUID  `json:"buildingId" gorm:"type:uuid;not null;index"`
	Level             int        `json:"level" gorm:"not null;default:0;check:chk_player_buildings_level,level >= 0"`
	UpgradeFinishesAt *time.Time `json:"upgradeFinishesAt"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`

	Player   *Player   `json:"-" gorm:"foreignKey:PlayerID;constraint:OnDelete:CASCADE"`
	Building *Building `json:"building,omitempty" gorm:"foreignKey:BuildingID"`
}

func (PlayerBuilding) TableName() string {
	return "player_buildings"
}

func (b *PlayerBuilding) IsUpgrading() bool {
	return b.UpgradeFinishesAt != nil
}

type BuildingLockKind string

const (
	LockMaxCountReached       BuildingLockKind = "max_count_reached"
	LockBuildingLevelRequired BuildingLockKind = "building_level_required"
	LockTechNodeRequired      BuildingLockKind = "tech_node_required"
)

type BuildingLock struct {
	Kind     BuildingLockKind `json:"kind"`
	Building *uuid.UUID       `json:"building,omitempty"`
	Current  int              `json:"current,omitempty"`
	Required int              `json:"required,omitempty"`
	Node     *uuid.UUID       `json:"node,omitempty"`
}

type ConstructionInfo struct {
	Cost        Amounts `json:"cost"`
	TimeSeconds int64   `json:"timeSeconds"`
}

type BuildingAvailability struct {
	Building     Building         `json:"building"`
	TargetLevel  int              `json:"targetLevel"`
	Buildable    bool             `json:"buildable"`
	CurrentCount int64            `json:"currentCount"`
	MaxCount     int              `json:"maxCount"`
	Locks        []BuildingLock   `json:"locks"`
	Construction ConstructionInfo `json:"construction"`
}

// AvailabilityInput gathers everything needed to evaluate locks for one
// (building, target level) pair.
type AvailabilityInput struct {
	Building     Building
	TargetLevel  int
	OwnedCount   int64
	CheckCount   bool
	Requirements []BuildingRequirement
	// OwnedLevels maps building id to the highest level the player owns.
	OwnedLevels map[uuid.UUID]int
	// Techs maps tech node id to the level the player has researched.
	Techs        map[uuid.UUID]int
	Construction ConstructionInfo
}

// ComputeAvailability collects the locks that block construction or upgrade.
func ComputeAvailability(in AvailabilityInput) BuildingAvailability {
	locks := []BuildingLock{}

	if in.CheckCount && in.OwnedCount >= int64(in.Building.MaxCount) {
		locks = append(locks, BuildingLock{Kind: LockMaxCountReached})
	}

	for _, req := range in.Requirements {
		switch {
		case req.RequiredBuildingID != nil && req.RequiredBuildingLevel != nil:
			current := in.OwnedLevels[*req.RequiredBuildingID]
			if current < *req.RequiredBuildingLevel {
				id := *req.RequiredBuildingID
				locks = append(locks, BuildingLock{
					Kind:     LockBuildingLevelRequired,
					Building: &id,
					Current:  current,
					Required: *req.RequiredBuildingLevel,
				})
			}
		case req.RequiredTechID != nil:
			required := 0
			if req.RequiredTechLevel != nil {
				required = *req.RequiredTechLevel
			}
			if level, ok := in.Techs[*req.RequiredTechID]; !ok || level < required {
				id := *req.RequiredTechID
				locks = append(locks, BuildingLock{Kind: LockTechNodeRequired, Node: &id})
			}
		}
	}

	return BuildingAvailability{
		Building:     in.Building,
		TargetLevel:  in.TargetLevel,
		Buildable:    len(locks) == 0,
		CurrentCount: in.OwnedCount,
		MaxCount:     in.Building.MaxCount,
		Locks:        locks,
		Construction: in.Construction,
	}
}
