package domain_test

import (
	"testing"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestComputeAvailability(t *testing.T) {
	barracks := domain.Building{ID: uuid.New(), Name: "barracks", MaxCount: 2}
	townHall := uuid.New()
	library := uuid.New()

	needsTownHall := domain.BuildingRequirement{RequiredBuildingID: &townHall, RequiredBuildingLevel: intPtr(3)}
	needsTech := domain.BuildingRequirement{RequiredTechID: &library, RequiredTechLevel: intPtr(1)}

	tests := []struct {
		name      string
		input     domain.AvailabilityInput
		buildable bool
		locks     []domain.BuildingLockKind
	}{
		{
			name:      "no requirements",
			input:     domain.AvailabilityInput{Building: barracks, TargetLevel: 1, CheckCount: true},
			buildable: true,
		},
		{
			name:      "max count reached",
			input:     domain.AvailabilityInput{Building: barracks, TargetLevel: 1, OwnedCount: 2, CheckCount: true},
			buildable: false,
			locks:     []domain.BuildingLockKind{domain.LockMaxCountReached},
		},
		{
			name:      "count ignored for upgrades",
			input:     domain.AvailabilityInput{Building: barracks, TargetLevel: 2, OwnedCount: 2},
			buildable: true,
		},
		{
			name: "building level too low",
			input: domain.AvailabilityInput{
				Building:     barracks,
				TargetLevel:  1,
				CheckCount:   true,
				Requirements: []domain.BuildingRequirement{needsTownHall},
				OwnedLevels:  map[uuid.UUID]int{townHall: 2},
			},
			buildable: false,
			locks:     []domain.BuildingLockKind{domain.LockBuildingLevelRequired},
		},
		{
			name: "building level met",
			input: domain.AvailabilityInput{
				Building:     barracks,
				TargetLevel:  1,
				Requirements: []domain.BuildingRequirement{needsTownHall},
				OwnedLevels:  map[uuid.UUID]int{townHall: 3},
			},
			buildable: true,
		},
		{
			name: "tech missing and count reached",
			input: domain.AvailabilityInput{
				Building:     barracks,
				TargetLevel:  1,
				OwnedCount:   5,
				CheckCount:   true,
				Requirements: []domain.BuildingRequirement{needsTech},
			},
			buildable: false,
			locks:     []domain.BuildingLockKind{domain.LockMaxCountReached, domain.LockTechNodeRequired},
		},
		{
			name: "tech researched",
			input: domain.AvailabilityInput{
				Building:     barracks,
				TargetLevel:  1,
				Requirements: []domain.BuildingRequirement{needsTech},
				Techs:        map[uuid.UUID]int{library: 1},
			},
			buildable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.ComputeAvailability(tt.input)
			assert.Equal(t, tt.buildable, got.Buildable)

			kinds := make([]domain.BuildingLockKind, 0, len(got.Locks))
			for _, l := range got.Locks {
				kinds = append(kinds, l.Kind)
			}
			assert.ElementsMatch(t, tt.locks, kinds)
		})
	}
}

func TestComputeAvailability_LockDetails(t *testing.T) {
	townHall := uuid.New()
	got := domain.ComputeAvailability(domain.AvailabilityInput{
		Building:     domain.Building{MaxCount: 1},
		TargetLevel:  1,
		Requirements: []domain.BuildingRequirement{{RequiredBuildingID: &townHall, RequiredBuildingLevel: intPtr(4)}},
		OwnedLevels:  map[uuid.UUID]int{townHall: 1},
	})

	require.Len(t, got.Locks, 1)
	lock := got.Locks[0]
	assert.Equal(t, townHall, *lock.Building)
	assert.Equal(t, 1, lock.Current)
	assert.Equal(t, 4, lock.Required)
}

func TestBuildingRequirement_Validate(t *testing.T) {
	id := uuid.New()

	assert.NoError(t, (&domain.BuildingRequirement{RequiredBuildingID: &id, RequiredBuildingLevel: intPtr(1)}).Validate())
	assert.NoError(t, (&domain.BuildingRequirement{RequiredTechID: &id, RequiredTechLevel: intPtr(1)}).Validate())
	assert.ErrorIs(t, (&domain.BuildingRequirement{}).Validate(), domain.ErrInvalidRequirement)
	assert.ErrorIs(t, (&domain.BuildingRequirement{
		RequiredBuildingID: &id, RequiredBuildingLevel: intPtr(1),
		RequiredTechID: &id, RequiredTechLevel: intPtr(1),
	}).Validate(), domain.ErrInvalidRequirement)
}

func TestBuildingLevel_Cost(t *testing.T) {
	food := int64(100)
	lvl := domain.BuildingLevel{ReqFood: &food}
	assert.Equal(t, domain.Amounts{Food: 100}, lvl.Cost())
}
