package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlayerBuilder creates a player with its resource and accumulator rows
type PlayerBuilder struct {
	name        string
	faction     domain.Faction
	stored      domain.Amounts
	caps        domain.Amounts
	accumulator domain.Amounts
	producedAt  time.Time
}

// NewPlayerBuilder creates a new PlayerBuilder with starter values
func NewPlayerBuilder() *PlayerBuilder {
	return &PlayerBuilder{
		name:    fmt.Sprintf("player_%s", uuid.New().String()[:8]),
		faction: domain.FactionNeutral,
		stored: domain.Amounts{
			Food:  domain.StarterFood,
			Wood:  domain.StarterWood,
			Stone: domain.StarterStone,
			Gold:  domain.StarterGold,
		},
		caps: domain.Amounts{
			Food:  domain.DefaultStorageCap,
			Wood:  domain.DefaultStorageCap,
			Stone: domain.DefaultStorageCap,
			Gold:  domain.DefaultStorageCap,
		},
	}
}

func (b *PlayerBuilder) WithName(name string) *PlayerBuilder {
	b.name = name
	return b
}

func (b *PlayerBuilder) WithFaction(faction domain.Faction) *PlayerBuilder {
	b.faction = faction
	return b
}

// WithStored sets the storage balance
func (b *PlayerBuilder) WithStored(a domain.Amounts) *PlayerBuilder {
	b.stored = a
	return b
}

// WithCaps sets the storage caps
func (b *PlayerBuilder) WithCaps(a domain.Amounts) *PlayerBuilder {
	b.caps = a
	return b
}

func (b *PlayerBuilder) WithAccumulator(a domain.Amounts) *PlayerBuilder {
	b.accumulator = a
	return b
}

// ProducedAt sets the production watermark; it defaults to the creation time
func (b *PlayerBuilder) ProducedAt(t time.Time) *PlayerBuilder {
	b.producedAt = t
	return b
}

// Build creates the player in the database
func (b *PlayerBuilder) Build(t *testing.T, db *gorm.DB) *domain.Player {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	producedAt := b.producedAt
	if producedAt.IsZero() {
		producedAt = now
	}

	player := &domain.Player{
		ID:      uuid.New(),
		Name:    b.name,
		Faction: b.faction,
	}
	if err := db.Create(player).Error; err != nil {
		t.Fatalf("failed to create player: %v", err)
	}

	res := &domain.PlayerResource{
		PlayerID:    player.ID,
		ProducedAt:  producedAt,
		CollectedAt: producedAt,
	}
	res.SetStored(b.stored)
	res.SetCaps(b.caps)
	if err := db.Create(res).Error; err != nil {
		t.Fatalf("failed to create player resources: %v", err)
	}

	acc := &domain.PlayerAccumulator{PlayerID: player.ID}
	acc.SetAmounts(b.accumulator)
	if err := db.Create(acc).Error; err != nil {
		t.Fatalf("failed to create player accumulator: %v", err)
	}

	return player
}

type levelSpec struct {
	level   int
	cost    domain.Amounts
	seconds int64
}

// BuildingBuilder creates a building definition with levels and per-level output
type BuildingBuilder struct {
	name      string
	faction   domain.Faction
	maxLevel  int
	maxCount  int
	starter   bool
	levels    []levelSpec
	resources []domain.BuildingResource
	unitTypes []domain.UnitType
}

// NewBuildingBuilder creates a neutral single-level building with a free level 1
func NewBuildingBuilder() *BuildingBuilder {
	return &BuildingBuilder{
		name:     fmt.Sprintf("building_%s", uuid.New().String()[:8]),
		faction:  domain.FactionNeutral,
		maxLevel: 1,
		maxCount: 1,
	}
}

func (b *BuildingBuilder) WithName(name string) *BuildingBuilder {
	b.name = name
	return b
}

func (b *BuildingBuilder) WithFaction(faction domain.Faction) *BuildingBuilder {
	b.faction = faction
	return b
}

func (b *BuildingBuilder) WithMaxLevel(n int) *BuildingBuilder {
	b.maxLevel = n
	return b
}

func (b *BuildingBuilder) WithMaxCount(n int) *BuildingBuilder {
	b.maxCount = n
	return b
}

func (b *BuildingBuilder) Starter() *BuildingBuilder {
	b.starter = true
	return b
}

// WithLevel adds the cost and duration of reaching level
func (b *BuildingBuilder) WithLevel(level int, cost domain.Amounts, seconds int64) *BuildingBuilder {
	b.levels = append(b.levels, levelSpec{level: level, cost: cost, seconds: seconds})
	return b
}

// WithOutput adds the production and capacity of the building at res.Level
func (b *BuildingBuilder) WithOutput(res domain.BuildingResource) *BuildingBuilder {
	b.resources = append(b.resources, res)
	return b
}

// Trains lets the building train units of the given types
func (b *BuildingBuilder) Trains(types ...domain.UnitType) *BuildingBuilder {
	b.unitTypes = append(b.unitTypes, types...)
	return b
}

// Build creates the building in the database
func (b *BuildingBuilder) Build(t *testing.T, db *gorm.DB) *domain.Building {
	t.Helper()

	building := &domain.Building{
		ID:       uuid.New(),
		Name:     b.name,
		Faction:  b.faction,
		MaxLevel: b.maxLevel,
		MaxCount: b.maxCount,
		Starter:  b.starter,
	}
	if err := db.Create(building).Error; err != nil {
		t.Fatalf("failed to create building: %v", err)
	}

	levels := b.levels
	if len(levels) == 0 {
		levels = []levelSpec{{level: 1}}
	}
	for _, l := range levels {
		food, wood, stone, gold := l.cost.Food, l.cost.Wood, l.cost.Stone, l.cost.Gold
		lvl := &domain.BuildingLevel{
			ID:             uuid.New(),
			BuildingID:     building.ID,
			Level:          l.level,
			UpgradeSeconds: l.seconds,
			ReqFood:        &food,
			ReqWood:        &wood,
			ReqStone:       &stone,
			ReqGold:        &gold,
		}
		if err := db.Create(lvl).Error; err != nil {
			t.Fatalf("failed to create building level: %v", err)
		}
	}

	for _, res := range b.resources {
		res.ID = uuid.New()
		res.BuildingID = building.ID
		if err := db.Create(&res).Error; err != nil {
			t.Fatalf("failed to create building resource: %v", err)
		}
	}

	for _, ut := range b.unitTypes {
		but := &domain.BuildingUnitType{ID: uuid.New(), BuildingID: building.ID, UnitType: ut}
		if err := db.Create(but).Error; err != nil {
			t.Fatalf("failed to create building unit type: %v", err)
		}
	}

	return building
}

// RequireBuilding adds a building-level prerequisite to a level of building
func RequireBuilding(t *testing.T, db *gorm.DB, building *domain.Building, level int, required *domain.Building, requiredLevel int) {
	t.Helper()

	var lvl domain.BuildingLevel
	if err := db.First(&lvl, "building_id = ? AND level = ?", building.ID, level).Error; err != nil {
		t.Fatalf("failed to find building level: %v", err)
	}
	req := &domain.BuildingRequirement{
		ID:                    uuid.New(),
		BuildingLevelID:       lvl.ID,
		RequiredBuildingID:    &required.ID,
		RequiredBuildingLevel: &requiredLevel,
	}
	if err := db.Create(req).Error; err != nil {
		t.Fatalf("failed to create requirement: %v", err)
	}
}

// OwnBuilding gives the player a building at level
func OwnBuilding(t *testing.T, db *gorm.DB, playerID uuid.UUID, building *domain.Building, level int) *domain.PlayerBuilding {
	t.Helper()

	pb := &domain.PlayerBuilding{
		ID:         uuid.New(),
		PlayerID:   playerID,
		BuildingID: building.ID,
		Level:      level,
	}
	if err := db.Omit("Player", "Building").Create(pb).Error; err != nil {
		t.Fatalf("failed to create player building: %v", err)
	}
	return pb
}

// UnitBuilder creates a unit with a per-unit cost
type UnitBuilder struct {
	name     string
	unitType domain.UnitType
	seconds  int64
	cost     domain.Amounts
}

func NewUnitBuilder() *UnitBuilder {
	return &UnitBuilder{
		name:     fmt.Sprintf("unit_%s", uuid.New().String()[:8]),
		unitType: domain.UnitInfantry,
		seconds:  60,
	}
}

func (b *UnitBuilder) WithType(ut domain.UnitType) *UnitBuilder {
	b.unitType = ut
	return b
}

func (b *UnitBuilder) WithTrainingSeconds(s int64) *UnitBuilder {
	b.seconds = s
	return b
}

func (b *UnitBuilder) WithCost(cost domain.Amounts) *UnitBuilder {
	b.cost = cost
	return b
}

// Build creates the unit in the database
func (b *UnitBuilder) Build(t *testing.T, db *gorm.DB) *domain.Unit {
	t.Helper()

	unit := &domain.Unit{
		ID:                  uuid.New(),
		Name:                b.name,
		UnitType:            b.unitType,
		BaseTrainingSeconds: b.seconds,
	}
	if err := db.Omit("Costs").Create(unit).Error; err != nil {
		t.Fatalf("failed to create unit: %v", err)
	}

	for _, r := range domain.StoredResourceTypes {
		amount := b.cost.Get(r)
		if amount == 0 {
			continue
		}
		cost := domain.UnitCost{ID: uuid.New(), UnitID: unit.ID, Resource: r, Amount: amount}
		if err := db.Create(&cost).Error; err != nil {
			t.Fatalf("failed to create unit cost: %v", err)
		}
		unit.Costs = append(unit.Costs, cost)
	}

	return unit
}

// ModifierBuilder creates a modifier definition
type ModifierBuilder struct {
	name      string
	magnitude float64
	target    domain.ModifierTarget
	resource  *domain.ResourceType
	stacking  domain.StackingBehaviour
	group     *string
}

// NewModifierBuilder creates an additive +10% training modifier
func NewModifierBuilder() *ModifierBuilder {
	return &ModifierBuilder{
		name:      fmt.Sprintf("modifier_%s", uuid.New().String()[:8]),
		magnitude: 0.10,
		target:    domain.TargetTraining,
		stacking:  domain.StackingAdditive,
	}
}

func (b *ModifierBuilder) WithMagnitude(m float64) *ModifierBuilder {
	b.magnitude = m
	return b
}

// ForResource targets production of r
func (b *ModifierBuilder) ForResource(r domain.ResourceType) *ModifierBuilder {
	b.target = domain.TargetResource
	b.resource = &r
	return b
}

func (b *ModifierBuilder) ForTraining() *ModifierBuilder {
	b.target = domain.TargetTraining
	b.resource = nil
	return b
}

func (b *ModifierBuilder) WithStacking(s domain.StackingBehaviour) *ModifierBuilder {
	b.stacking = s
	return b
}

func (b *ModifierBuilder) WithGroup(group string) *ModifierBuilder {
	b.group = &group
	return b
}

// Build creates the modifier in the database
func (b *ModifierBuilder) Build(t *testing.T, db *gorm.DB) *domain.Modifier {
	t.Helper()

	mod := &domain.Modifier{
		ID:                uuid.New(),
		Name:              b.name,
		Magnitude:         b.magnitude,
		MagnitudeKind:     domain.MagnitudePercentage,
		TargetType:        b.target,
		TargetResource:    b.resource,
		StackingBehaviour: b.stacking,
		StackingGroup:     b.group,
	}
	if err := db.Create(mod).Error; err != nil {
		t.Fatalf("failed to create modifier: %v", err)
	}
	return mod
}

// Activate attaches mod to the player without an expiry
func Activate(t *testing.T, db *gorm.DB, playerID uuid.UUID, mod *domain.Modifier, source domain.ModifierSource) *domain.ActiveModifier {
	t.Helper()

	am := &domain.ActiveModifier{
		ID:         uuid.New(),
		PlayerID:   playerID,
		ModifierID: mod.ID,
		StartedAt:  time.Now().UTC().Add(-time.Minute),
		SourceType: source,
	}
	if err := db.Omit("Player", "Modifier").Create(am).Error; err != nil {
		t.Fatalf("failed to activate modifier: %v", err)
	}
	return am
}

// CreateAuthenticatedRequest creates an HTTP request with auth token
func CreateAuthenticatedRequest(t *testing.T, method, url string, body interface{}, token string) *http.Request {
	t.Helper()

	var bodyReader *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	} else {
		bodyReader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// Do sends an authenticated request to the test server and fails the test on transport errors
func (ts *TestServer) Do(t *testing.T, method, path string, body interface{}, token string) *http.Response {
	t.Helper()

	resp, err := http.DefaultClient.Do(CreateAuthenticatedRequest(t, method, ts.APIURL(path), body, token))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
