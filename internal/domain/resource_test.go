package domain_test

import (
	"testing"
	"time"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestProductionDelta(t *testing.T) {
	rates := domain.Rates{
		domain.ResourceFood:  60,
		domain.ResourceWood:  45,
		domain.ResourceStone: 10.5,
		domain.ResourceGold:  0,
	}

	tests := []struct {
		name     string
		elapsed  time.Duration
		expected domain.Amounts
	}{
		{
			name:     "one hour",
			elapsed:  time.Hour,
			expected: domain.Amounts{Food: 60, Wood: 45, Stone: 10},
		},
		{
			name:     "fractions are floored",
			elapsed:  2 * time.Minute,
			expected: domain.Amounts{Food: 2, Wood: 1, Stone: 0},
		},
		{
			name:     "no time elapsed",
			elapsed:  0,
			expected: domain.Amounts{},
		},
		{
			name:     "clock went backwards",
			elapsed:  -time.Hour,
			expected: domain.Amounts{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, domain.ProductionDelta(rates, tt.elapsed))
		})
	}
}

func TestAccumulate(t *testing.T) {
	caps := domain.Amounts{Food: 50, Wood: 1000, Stone: 1000, Gold: 0}
	got := domain.Accumulate(domain.Amounts{Wood: 10}, domain.Amounts{Food: 60, Wood: 5, Gold: 3}, caps)

	assert.Equal(t, domain.Amounts{Food: 50, Wood: 15, Stone: 0, Gold: 0}, got)
}

func TestMovable(t *testing.T) {
	tests := []struct {
		name     string
		acc      domain.Amounts
		storage  domain.Amounts
		caps     domain.Amounts
		expected domain.Amounts
	}{
		{
			name:     "limited by room",
			acc:      domain.Amounts{Food: 300},
			storage:  domain.Amounts{Food: 450},
			caps:     domain.Amounts{Food: 500},
			expected: domain.Amounts{Food: 50},
		},
		{
			name:     "limited by accumulator",
			acc:      domain.Amounts{Wood: 20},
			storage:  domain.Amounts{Wood: 0},
			caps:     domain.Amounts{Wood: 500},
			expected: domain.Amounts{Wood: 20},
		},
		{
			name:     "storage already over cap",
			acc:      domain.Amounts{Gold: 20},
			storage:  domain.Amounts{Gold: 600},
			caps:     domain.Amounts{Gold: 500},
			expected: domain.Amounts{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, domain.Movable(tt.acc, tt.storage, tt.caps))
		})
	}
}

func TestAmounts_Covers(t *testing.T) {
	have := domain.Amounts{Food: 100, Wood: 50}

	assert.True(t, have.Covers(domain.Amounts{Food: 100}))
	assert.True(t, have.Covers(domain.Amounts{}))
	assert.False(t, have.Covers(domain.Amounts{Wood: 51}))
	assert.False(t, have.Covers(domain.Amounts{Gold: 1}))
}

func TestAmounts_Scale(t *testing.T) {
	cost := domain.Amounts{Food: 10, Wood: 5, Stone: 1}
	assert.Equal(t, domain.Amounts{Food: 30, Wood: 15, Stone: 3}, cost.Scale(3))
}
