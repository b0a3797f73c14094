package postgres_test

import (
	"context"
	"testing"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/repository/postgres"
	"github.com/dom/empire-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerBuildingRepository_Totals(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewPlayerBuildingRepository(testDB.DB)
	ctx := context.Background()

	farm := testutil.NewBuildingBuilder().
		WithMaxLevel(2).
		WithOutput(domain.BuildingResource{Level: 1, Food: 60, FoodAccCap: 100, Population: 5}).
		WithOutput(domain.BuildingResource{Level: 2, Food: 120, FoodAccCap: 200, Population: 8}).
		Build(t, testDB.DB)
	warehouse := testutil.NewBuildingBuilder().
		WithOutput(domain.BuildingResource{Level: 1, FoodCap: 1000, WoodCap: 1000}).
		Build(t, testDB.DB)

	player := testutil.NewPlayerBuilder().Build(t, testDB.DB)
	testutil.OwnBuilding(t, testDB.DB, player.ID, farm, 2)
	testutil.OwnBuilding(t, testDB.DB, player.ID, warehouse, 1)
	// Level 0 sites have no output row
	testutil.OwnBuilding(t, testDB.DB, player.ID, farm, 0)

	totals, err := repo.Totals(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), totals.Population)
	assert.Equal(t, domain.Amounts{Food: 120}, totals.BaseRates)
	assert.Equal(t, domain.Amounts{Food: 1000, Wood: 1000}, totals.StorageCap)
	assert.Equal(t, domain.Amounts{Food: 200}, totals.AccCap)

	count, err := repo.CountByBuilding(ctx, player.ID, farm.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	empty, err := repo.Totals(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, domain.BuildingTotals{}, *empty)
}
