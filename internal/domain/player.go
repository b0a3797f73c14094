package domain

import (
	"time"

	"github.com/google/uuid"
)

type Faction string

const (
	FactionNeutral Faction = "neutral"
	FactionHuman   Faction = "human"
	FactionOrc     Faction = "orc"
	FactionElf     Faction = "elf"
	FactionDwarf   Faction = "dwarf"
	FactionGoblin  Faction = "goblin"
)

var AllFactions = []Faction{FactionNeutral, FactionHuman, FactionOrc, FactionElf, FactionDwarf, FactionGoblin}

func (f Faction) IsValid() bool {
	for _, v := range AllFactions {
		if f == v {
			return true
		}
	}
	return false
}

type Player struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	Faction   Faction   `json:"faction" gorm:"type:varchar(10);not null;default:'neutral'"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Player) TableName() string {
	return "players"
}

// FactionModifier lists the modifiers granted to every member of a faction.
type FactionModifier struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Faction    Faction   `json:"faction" gorm:"type:varchar(10);not null;uniqueIndex:idx_faction_modifiers_faction_modifier"`
	ModifierID uuid.UUID `json:"modifierId" gorm:"type:uuid;not null;uniqueIndex:idx_faction_modifiers_faction_modifier"`

	Modifier *Modifier `json:"modifier,omitempty" gorm:"foreignKey:ModifierID;constraint:OnDelete:CASCADE"`
}

func (FactionModifier) TableName() string {
	return "faction_modifiers"
}
