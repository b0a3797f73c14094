package domain_test

import (
	"testing"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mod(stacking domain.StackingBehaviour, magnitude float64, group string) domain.FullModifier {
	wood := domain.ResourceWood
	m := domain.FullModifier{
		Magnitude:         magnitude,
		TargetType:        domain.TargetResource,
		TargetResource:    &wood,
		StackingBehaviour: stacking,
		SourceType:        domain.SourceItem,
	}
	if group != "" {
		m.StackingGroup = &group
	}
	return m
}

func TestAggregateMultiplier(t *testing.T) {
	tests := []struct {
		name     string
		mods     []domain.FullModifier
		expected float64
	}{
		{
			name:     "no modifiers",
			expected: 1.0,
		},
		{
			name: "additive magnitudes are summed",
			mods: []domain.FullModifier{
				mod(domain.StackingAdditive, 0.10, ""),
				mod(domain.StackingAdditive, 0.15, ""),
			},
			expected: 1.25,
		},
		{
			name: "multiplicative magnitudes compound",
			mods: []domain.FullModifier{
				mod(domain.StackingMultiplicative, 0.10, ""),
				mod(domain.StackingMultiplicative, 0.10, ""),
			},
			expected: 1.21,
		},
		{
			name: "mixed stacking",
			mods: []domain.FullModifier{
				mod(domain.StackingAdditive, 0.10, ""),
				mod(domain.StackingMultiplicative, 0.20, ""),
				mod(domain.StackingHighestOnly, 0.15, "banner"),
				mod(domain.StackingHighestOnly, 0.25, "banner"),
			},
			expected: 1.65,
		},
		{
			name: "highest only per group",
			mods: []domain.FullModifier{
				mod(domain.StackingHighestOnly, 0.10, "a"),
				mod(domain.StackingHighestOnly, 0.30, "a"),
				mod(domain.StackingHighestOnly, 0.20, "b"),
			},
			expected: 1.3 * 1.2,
		},
		{
			name: "highest only without a group shares the source and target group",
			mods: []domain.FullModifier{
				mod(domain.StackingHighestOnly, 0.10, ""),
				mod(domain.StackingHighestOnly, 0.40, ""),
			},
			expected: 1.4,
		},
		{
			name: "clamped at the upper bound",
			mods: []domain.FullModifier{
				mod(domain.StackingAdditive, 5.0, ""),
			},
			expected: domain.MaxMultiplier,
		},
		{
			name: "clamped at the lower bound",
			mods: []domain.FullModifier{
				mod(domain.StackingAdditive, -0.9, ""),
			},
			expected: domain.MinMultiplier,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.AggregateMultiplier(tt.mods)
			assert.InDelta(t, tt.expected, got, 1e-9)
			assert.GreaterOrEqual(t, got, domain.MinMultiplier)
			assert.LessOrEqual(t, got, domain.MaxMultiplier)
		})
	}
}

func TestFullModifier_Group(t *testing.T) {
	m := mod(domain.StackingHighestOnly, 0.1, "")
	assert.Equal(t, "item_resource", m.Group())

	m = mod(domain.StackingHighestOnly, 0.1, "Banner")
	assert.Equal(t, "Banner", m.Group())
}

func TestFilterModifiers(t *testing.T) {
	wood := domain.ResourceWood
	food := domain.ResourceFood
	training := domain.FullModifier{TargetType: domain.TargetTraining}

	mods := []domain.FullModifier{mod(domain.StackingAdditive, 0.1, ""), training}

	assert.Len(t, domain.FilterModifiers(mods, domain.TargetResource, &wood), 1)
	assert.Empty(t, domain.FilterModifiers(mods, domain.TargetResource, &food))
	assert.Len(t, domain.FilterModifiers(mods, domain.TargetTraining, nil), 1)
	assert.Empty(t, domain.FilterModifiers(mods, domain.TargetResource, nil))
}

func TestModifier_Validate(t *testing.T) {
	wood := domain.ResourceWood

	ok := domain.Modifier{Name: "lumber", TargetType: domain.TargetResource, TargetResource: &wood}
	require.NoError(t, ok.Validate())

	missing := domain.Modifier{Name: "lumber", TargetType: domain.TargetResource}
	assert.ErrorIs(t, missing.Validate(), domain.ErrInvalidModifier)

	extra := domain.Modifier{Name: "drill", TargetType: domain.TargetTraining, TargetResource: &wood}
	assert.ErrorIs(t, extra.Validate(), domain.ErrInvalidModifier)
}
