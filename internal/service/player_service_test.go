package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerService_CreatePlayer(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	player, err := env.Services.Player.CreatePlayer(ctx, uuid.Nil, "aldric")
	require.NoError(t, err)
	assert.Equal(t, "aldric", player.Name)
	assert.Equal(t, domain.FactionNeutral, player.Faction)

	testutil.AssertStored(t, env.DB.DB, player.ID, starterStorage())
	testutil.AssertAccumulator(t, env.DB.DB, player.ID, domain.Amounts{})

	snap, err := env.Services.Resource.Snapshot(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Amounts{
		Food:  domain.DefaultStorageCap,
		Wood:  domain.DefaultStorageCap,
		Stone: domain.DefaultStorageCap,
		Gold:  domain.DefaultStorageCap,
	}, snap.StorageCap)

	pending := testutil.PendingJobs(t, env.DB.DB, domain.JobTypeResource)
	require.Len(t, pending, 1)
	assert.WithinDuration(t, env.Clock.Now().Add(env.Config.Production.Interval), pending[0].RunAt, time.Millisecond)

	_, err = env.Services.Player.CreatePlayer(ctx, uuid.Nil, "aldric")
	assert.ErrorIs(t, err, domain.ErrNameTaken)
}

func TestPlayerService_DeletePlayer(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	player, err := env.Services.Player.CreatePlayer(ctx, uuid.Nil, "brann")
	require.NoError(t, err)

	require.NoError(t, env.Services.Player.DeletePlayer(ctx, player.ID))

	_, err = env.Services.Player.GetPlayer(ctx, player.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.Repos.Resource.GetByPlayerID(ctx, player.ID)
	assert.Error(t, err)

	_, err = env.Services.Resource.Produce(ctx, player.ID, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlayerService_ChangeFaction(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	humanBonus := testutil.NewModifierBuilder().ForResource(domain.ResourceGold).WithMagnitude(0.2).Build(t, env.DB.DB)
	orcBonus := testutil.NewModifierBuilder().ForTraining().WithMagnitude(-0.1).Build(t, env.DB.DB)
	require.NoError(t, env.Repos.Modifier.AddFactionModifier(ctx, &domain.FactionModifier{
		ID: uuid.New(), Faction: domain.FactionHuman, ModifierID: humanBonus.ID,
	}))
	require.NoError(t, env.Repos.Modifier.AddFactionModifier(ctx, &domain.FactionModifier{
		ID: uuid.New(), Faction: domain.FactionOrc, ModifierID: orcBonus.ID,
	}))

	keep := testutil.NewBuildingBuilder().
		WithFaction(domain.FactionHuman).
		Starter().
		WithOutput(domain.BuildingResource{Level: 1, FoodCap: 2500}).
		Build(t, env.DB.DB)
	hall := testutil.NewBuildingBuilder().Starter().Build(t, env.DB.DB)
	testutil.NewBuildingBuilder().WithFaction(domain.FactionOrc).Starter().Build(t, env.DB.DB)

	player, err := env.Services.Player.CreatePlayer(ctx, uuid.Nil, "cedric")
	require.NoError(t, err)

	// Warm the cache so the swap has something to invalidate
	before, err := env.Services.Modifier.Multiplier(ctx, player.ID, domain.TargetResource, resourcePtr(domain.ResourceGold))
	require.NoError(t, err)
	assert.Equal(t, 1.0, before)

	changed, err := env.Services.Player.ChangeFaction(ctx, player.ID, domain.FactionHuman)
	require.NoError(t, err)
	assert.Equal(t, domain.FactionHuman, changed.Faction)

	active, err := env.Services.Modifier.ListActive(ctx, player.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, humanBonus.ID, active[0].ModifierID)
	assert.Equal(t, domain.SourceFaction, active[0].SourceType)

	after, err := env.Services.Modifier.Multiplier(ctx, player.ID, domain.TargetResource, resourcePtr(domain.ResourceGold))
	require.NoError(t, err)
	assert.InDelta(t, 1.2, after, 1e-9)

	owned, err := env.Services.Building.ListOwned(ctx, player.ID)
	require.NoError(t, err)
	ownedIDs := make([]uuid.UUID, 0, len(owned))
	for _, pb := range owned {
		assert.Equal(t, 1, pb.Level)
		ownedIDs = append(ownedIDs, pb.BuildingID)
	}
	assert.ElementsMatch(t, []uuid.UUID{keep.ID, hall.ID}, ownedIDs)

	snap, err := env.Services.Resource.Snapshot(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), snap.StorageCap.Food)

	// Leaving a non-neutral faction swaps modifiers but grants no starters
	_, err = env.Services.Player.ChangeFaction(ctx, player.ID, domain.FactionOrc)
	require.NoError(t, err)

	active, err = env.Services.Modifier.ListActive(ctx, player.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, orcBonus.ID, active[0].ModifierID)

	owned, err = env.Services.Building.ListOwned(ctx, player.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	history, err := env.Services.Modifier.History(ctx, player.ID)
	require.NoError(t, err)
	actions := make(map[domain.ModifierAction]int)
	for _, h := range history {
		actions[h.Action]++
	}
	assert.Equal(t, 2, actions[domain.ActionApplied])
	assert.Equal(t, 1, actions[domain.ActionRemoved])
}

func TestPlayerService_ChangeFaction_Invalid(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	player, err := env.Services.Player.CreatePlayer(ctx, uuid.Nil, "dagny")
	require.NoError(t, err)

	_, err = env.Services.Player.ChangeFaction(ctx, player.ID, domain.Faction("pirate"))
	assert.ErrorIs(t, err, domain.ErrInvalidFaction)

	_, err = env.Services.Player.ChangeFaction(ctx, uuid.New(), domain.FactionElf)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlayerService_ChangeFaction_SettlesProduction(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	b := testutil.NewBuildingBuilder().
		WithOutput(domain.BuildingResource{Level: 1, Gold: 100, GoldAccCap: 1000}).
		Build(t, env.DB.DB)
	player := testutil.NewPlayerBuilder().ProducedAt(env.Clock.Now().Add(-time.Hour)).Build(t, env.DB.DB)
	testutil.OwnBuilding(t, env.DB.DB, player.ID, b, 1)

	bonus := testutil.NewModifierBuilder().ForResource(domain.ResourceGold).WithMagnitude(1.0).Build(t, env.DB.DB)
	require.NoError(t, env.Repos.Modifier.AddFactionModifier(ctx, &domain.FactionModifier{
		ID: uuid.New(), Faction: domain.FactionDwarf, ModifierID: bonus.ID,
	}))

	_, err := env.Services.Player.ChangeFaction(ctx, player.ID, domain.FactionDwarf)
	require.NoError(t, err)

	// The elapsed hour is paid at the pre-change rate
	testutil.AssertAccumulator(t, env.DB.DB, player.ID, domain.Amounts{Gold: 100})
}

func resourcePtr(r domain.ResourceType) *domain.ResourceType {
	return &r
}
