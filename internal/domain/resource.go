package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type ResourceType string

const (
	ResourcePopulation ResourceType = "population"
	ResourceFood       ResourceType = "food"
	ResourceWood       ResourceType = "wood"
	ResourceStone      ResourceType = "stone"
	ResourceGold       ResourceType = "gold"
)

// AllResourceTypes includes population, which is produced but never stored.
var AllResourceTypes = []ResourceType{ResourcePopulation, ResourceFood, ResourceWood, ResourceStone, ResourceGold}

// StoredResourceTypes are the resources held in storage and accumulators.
var StoredResourceTypes = []ResourceType{ResourceFood, ResourceWood, ResourceStone, ResourceGold}

func (r ResourceType) IsValid() bool {
	for _, v := range AllResourceTypes {
		if r == v {
			return true
		}
	}
	return false
}

// Default storage caps for a freshly created player.
const (
	DefaultStorageCap = 1000
	StarterFood       = 500
	StarterWood       = 500
	StarterStone      = 250
	StarterGold       = 100
)

// Amounts is a (food, wood, stone, gold) tuple used for costs, refunds and deltas.
type Amounts struct {
	Food  int64 `json:"food"`
	Wood  int64 `json:"wood"`
	Stone int64 `json:"stone"`
	Gold  int64 `json:"gold"`
}

func (a Amounts) Get(r ResourceType) int64 {
	switch r {
	case ResourceFood:
		return a.Food
	case ResourceWood:
		return a.Wood
	case ResourceStone:
		return a.Stone
	case ResourceGold:
		return a.Gold
	}
	return 0
}

func (a *Amounts) Set(r ResourceType, v int64) {
	switch r {
	case ResourceFood:
		a.Food = v
	case ResourceWood:
		a.Wood = v
	case ResourceStone:
		a.Stone = v
	case ResourceGold:
		a.Gold = v
	}
}

func (a Amounts) Scale(n int64) Amounts {
	return Amounts{Food: a.Food * n, Wood: a.Wood * n, Stone: a.Stone * n, Gold: a.Gold * n}
}

func (a Amounts) IsZero() bool {
	return a.Food == 0 && a.Wood == 0 && a.Stone == 0 && a.Gold == 0
}

// Covers reports whether a holds at least cost in every channel.
func (a Amounts) Covers(cost Amounts) bool {
	return a.Food >= cost.Food && a.Wood >= cost.Wood && a.Stone >= cost.Stone && a.Gold >= cost.Gold
}

type PlayerResource struct {
	PlayerID    uuid.UUID `json:"playerId" gorm:"type:uuid;primary_key"`
	Food        int64     `json:"food" gorm:"not null;default:0;check:chk_player_resources_food,food >= 0"`
	Wood        int64     `json:"wood" gorm:"not null;default:0;check:chk_player_resources_wood,wood >= 0"`
	Stone       int64     `json:"stone" gorm:"not null;default:0;check:chk_player_resources_stone,stone >= 0"`
	Gold        int64     `json:"gold" gorm:"not null;default:0;check:chk_player_resources_gold,gold >= 0"`
	FoodCap     int64     `json:"foodCap" gorm:"not null"`
	WoodCap     int64     `json:"woodCap" gorm:"not null"`
	StoneCap    int64     `json:"stoneCap" gorm:"not null"`
	GoldCap     int64     `json:"goldCap" gorm:"not null"`
	ProducedAt  time.Time `json:"producedAt" gorm:"not null"`
	CollectedAt time.Time `json:"collectedAt" gorm:"not null"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Player *Player `json:"-" gorm:"foreignKey:PlayerID;constraint:OnDelete:CASCADE"`
}

func (PlayerResource) TableName() string {
	return "player_resources"
}

func (r *PlayerResource) Stored() Amounts {
	return Amounts{Food: r.Food, Wood: r.Wood, Stone: r.Stone, Gold: r.Gold}
}

func (r *PlayerResource) Caps() Amounts {
	return Amounts{Food: r.FoodCap, Wood: r.WoodCap, Stone: r.StoneCap, Gold: r.GoldCap}
}

func (r *PlayerResource) SetStored(a Amounts) {
	r.Food, r.Wood, r.Stone, r.Gold = a.Food, a.Wood, a.Stone, a.Gold
}

func (r *PlayerResource) SetCaps(a Amounts) {
	r.FoodCap, r.WoodCap, r.StoneCap, r.GoldCap = a.Food, a.Wood, a.Stone, a.Gold
}

type PlayerAccumulator struct {
	PlayerID  uuid.UUID `json:"playerId" gorm:"type:uuid;primary_key"`
	Food      int64     `json:"food" gorm:"not null;default:0;check:chk_player_accumulators_food,food >= 0"`
	Wood      int64     `json:"wood" gorm:"not null;default:0;check:chk_player_accumulators_wood,wood >= 0"`
	Stone     int64     `json:"stone" gorm:"not null;default:0;check:chk_player_accumulators_stone,stone >= 0"`
	Gold      int64     `json:"gold" gorm:"not null;default:0;check:chk_player_accumulators_gold,gold >= 0"`
	UpdatedAt time.Time `json:"updatedAt"`

	Player *Player `json:"-" gorm:"foreignKey:PlayerID;constraint:OnDelete:CASCADE"`
}

func (PlayerAccumulator) TableName() string {
	return "player_accumulators"
}

func (a *PlayerAccumulator) Amounts() Amounts {
	return Amounts{Food: a.Food, Wood: a.Wood, Stone: a.Stone, Gold: a.Gold}
}

func (a *PlayerAccumulator) SetAmounts(v Amounts) {
	a.Food, a.Wood, a.Stone, a.Gold = v.Food, v.Wood, v.Stone, v.Gold
}

// Rates holds per-hour production for every resource type.
type Rates map[ResourceType]float64

// BuildingTotals is the sum of BuildingResource rows over a player's owned buildings.
type BuildingTotals struct {
	Population int64   `json:"population"`
	BaseRates  Amounts `json:"baseRates"`
	StorageCap Amounts `json:"storageCap"`
	AccCap     Amounts `json:"accCap"`
}

// ProductionDelta returns floor(rate * elapsed hours) per stored resource.
// Negative elapsed time produces nothing.
func ProductionDelta(rates Rates, elapsed time.Duration) Amounts {
	var out Amounts
	if elapsed <= 0 {
		return out
	}
	hours := elapsed.Seconds() / 3600
	for _, r := range StoredResourceTypes {
		delta := int64(math.Floor(rates[r] * hours))
		if delta < 0 {
			delta = 0
		}
		out.Set(r, delta)
	}
	return out
}

// Accumulate adds delta to current, clamping each channel at its accumulator cap.
// Whatever exceeds the cap is dropped.
func Accumulate(current, delta, caps Amounts) Amounts {
	var out Amounts
	for _, r := range StoredResourceTypes {
		v := current.Get(r) + delta.Get(r)
		if c := caps.Get(r); v > c {
			v = c
		}
		out.Set(r, v)
	}
	return out
}

// Movable returns min(accumulator, cap - storage) per channel, never negative.
func Movable(acc, storage, caps Amounts) Amounts {
	var out Amounts
	for _, r := range StoredResourceTypes {
		room := caps.Get(r) - storage.Get(r)
		if room < 0 {
			room = 0
		}
		v := acc.Get(r)
		if room < v {
			v = room
		}
		out.Set(r, v)
	}
	return out
}

// ResourceSnapshot combines storage, accumulator, caps, effective rates and timestamps.
type ResourceSnapshot struct {
	Storage     Amounts   `json:"storage"`
	StorageCap  Amounts   `json:"storageCap"`
	Accumulator Amounts   `json:"accumulator"`
	AccCap      Amounts   `json:"accumulatorCap"`
	Rates       Rates     `json:"rates"`
	Population  int64     `json:"population"`
	ProducedAt  time.Time `json:"producedAt"`
	CollectedAt time.Time `json:"collectedAt"`
}
