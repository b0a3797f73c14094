package domain

import (
	"time"

	"github.com/google/uuid"
)

type UnitType string

const (
	UnitInfantry  UnitType = "infantry"
	UnitRanged    UnitType = "ranged"
	UnitCavalry   UnitType = "cavalry"
	UnitArtillery UnitType = "artillery"
	UnitMagical   UnitType = "magical"
)

var AllUnitTypes = []UnitType{UnitInfantry, UnitRanged, UnitCavalry, UnitArtillery, UnitMagical}

func (u UnitType) IsValid() bool {
	for _, v := range AllUnitTypes {
		if u == v {
			return true
		}
	}
	return false
}

type Unit struct {
	ID                  uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name                string    `json:"name" gorm:"uniqueIndex;not null"`
	UnitType            UnitType  `json:"unitType" gorm:"type:varchar(20);not null;index"`
	BaseAtk             int       `json:"baseAtk" gorm:"not null;default:0"`
	BaseDef             int       `json:"baseDef" gorm:"not null;default:0"`
	BaseTrainingSeconds int64     `json:"baseTrainingSeconds" gorm:"not null"`
	Description         *string   `json:"description"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`

	Costs []UnitCost `json:"costs,omitempty" gorm:"foreignKey:UnitID"`
}

func (Unit) TableName() string {
	return "units"
}

// UnitCost is the per-unit price in one resource.
type UnitCost struct {
	ID       uuid.UUID    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UnitID   uuid.UUID    `json:"unitId" gorm:"type:uuid;not null;uniqueIndex:idx_unit_costs_unit_resource"`
	Resource ResourceType `json:"resource" gorm:"type:varchar(20);not null;uniqueIndex:idx_unit_costs_unit_resource"`
	Amount   int64        `json:"amount" gorm:"not null;check:chk_unit_costs_amount,amount >= 0"`

	Unit *Unit `json:"-" gorm:"foreignKey:UnitID;constraint:OnDelete:CASCADE"`
}

func (UnitCost) TableName() string {
	return "unit_costs"
}

// UnitCostTotal sums cost rows into a single per-unit price.
func UnitCostTotal(costs []UnitCost) Amounts {
	var total Amounts
	for _, c := range costs {
		total.Set(c.Resource, total.Get(c.Resource)+c.Amount)
	}
	return total
}

// BuildingUnitType declares that a building can train units of a type.
type BuildingUnitType struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	BuildingID uuid.UUID `json:"buildingId" gorm:"type:uuid;not null;uniqueIndex:idx_building_unit_types_pair"`
	UnitType   UnitType  `json:"unitType" gorm:"type:varchar(20);not null;uniqueIndex:idx_building_unit_types_pair"`

	Building *Building `json:"-" gorm:"foreignKey:BuildingID;constraint:OnDelete:CASCADE"`
}

func (BuildingUnitType) TableName() string {
	return "building_unit_types"
}

type PlayerUnit struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	PlayerID  uuid.UUID `json:"playerId" gorm:"type:uuid;not null;uniqueIndex:idx_player_units_player_unit"`
	UnitID    uuid.UUID `json:"unitId" gorm:"type:uuid;not null;uniqueIndex:idx_player_units_player_unit"`
	Quantity  int64     `json:"quantity" gorm:"not null;default:0;check:chk_player_units_quantity,quantity >= 0"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Player *Player `json:"-" gorm:"foreignKey:PlayerID;constraint:OnDelete:CASCADE"`
	Unit   *Unit   `json:"unit,omitempty" gorm:"foreignKey:UnitID;constraint:OnDelete:CASCADE"`
}

func (PlayerUnit) TableName() string {
	return "player_units"
}
