package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/empire-backend/internal/domain"
	"github.com/dom/empire-backend/internal/service"
	"github.com/dom/empire-backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModifierService_Multiplier_Stacking(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	player := testutil.NewPlayerBuilder().Build(t, env.DB.DB)
	for _, m := range []*testutil.ModifierBuilder{
		testutil.NewModifierBuilder().ForResource(domain.ResourceStone).WithMagnitude(0.10),
		testutil.NewModifierBuilder().ForResource(domain.ResourceStone).WithMagnitude(0.20).WithStacking(domain.StackingMultiplicative),
		testutil.NewModifierBuilder().ForResource(domain.ResourceStone).WithMagnitude(0.25).WithStacking(domain.StackingHighestOnly).WithGroup("quarry"),
		testutil.NewModifierBuilder().ForResource(domain.ResourceStone).WithMagnitude(0.15).WithStacking(domain.StackingHighestOnly).WithGroup("quarry"),
		// Targets another resource and must be ignored
		testutil.NewModifierBuilder().ForResource(domain.ResourceGold).WithMagnitude(0.50),
	} {
		testutil.Activate(t, env.DB.DB, player.ID, m.Build(t, env.DB.DB), domain.SourceItem)
	}

	got, err := env.Services.Modifier.Multiplier(ctx, player.ID, domain.TargetResource, resourcePtr(domain.ResourceStone))
	require.NoError(t, err)
	assert.InDelta(t, 1.65, got, 1e-9)

	none, err := env.Services.Modifier.Multiplier(ctx, player.ID, domain.TargetTraining, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, none)
}

func TestModifierService_Multiplier_Clamped(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	player := testutil.NewPlayerBuilder().Build(t, env.DB.DB)
	testutil.Activate(t, env.DB.DB, player.ID, testutil.NewModifierBuilder().WithMagnitude(4).Build(t, env.DB.DB), domain.SourceEvent)

	got, err := env.Services.Modifier.Multiplier(ctx, player.ID, domain.TargetTraining, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxMultiplier, got)
}

func TestModifierService_Multiplier_Cached(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	player := testutil.NewPlayerBuilder().Build(t, env.DB.DB)

	first, err := env.Services.Modifier.Multiplier(ctx, player.ID, domain.TargetTraining, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, first)

	// Written behind the service's back, so the cached value stays until invalidated
	testutil.Activate(t, env.DB.DB, player.ID, testutil.NewModifierBuilder().WithMagnitude(0.3).Build(t, env.DB.DB), domain.SourceSkill)

	cached, err := env.Services.Modifier.Multiplier(ctx, player.ID, domain.TargetTraining, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, cached)

	env.Services.Modifier.InvalidateCache(player.ID)

	fresh, err := env.Services.Modifier.Multiplier(ctx, player.ID, domain.TargetTraining, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.3, fresh, 1e-9)
}

func TestModifierService_Multiplier_CacheExpiresOnServiceClock(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	player := testutil.NewPlayerBuilder().Build(t, env.DB.DB)

	_, err := env.Services.Modifier.Multiplier(ctx, player.ID, domain.TargetTraining, nil)
	require.NoError(t, err)
	testutil.Activate(t, env.DB.DB, player.ID, testutil.NewModifierBuilder().WithMagnitude(0.2).Build(t, env.DB.DB), domain.SourceSkill)

	env.Clock.Advance(env.Config.ModifierCache.TTL - time.Second)
	cached, err := env.Services.Modifier.Multiplier(ctx, player.ID, domain.TargetTraining, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, cached)

	// No wall-clock time passes, only the shared test clock
	env.Clock.Advance(time.Second)
	fresh, err := env.Services.Modifier.Multiplier(ctx, player.ID, domain.TargetTraining, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.2, fresh, 1e-9)
}

func TestModifierService_ApplyAndExpire(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	player := testutil.NewPlayerBuilder().Build(t, env.DB.DB)
	mod := testutil.NewModifierBuilder().WithMagnitude(0.25).Build(t, env.DB.DB)
	expiresAt := env.Clock.Now().Add(time.Hour)

	am, err := env.Services.Modifier.Apply(ctx, service.ApplyModifierInput{
		PlayerID:   player.ID,
		ModifierID: mod.ID,
		Source:     domain.SourceItem,
		ExpiresAt:  &expiresAt,
	})
	require.NoError(t, err)
	assert.Equal(t, mod.ID, am.Modifier.ID)

	pending := testutil.PendingJobs(t, env.DB.DB, domain.JobTypeModifier)
	require.Len(t, pending, 1)
	assert.WithinDuration(t, expiresAt, pending[0].RunAt, time.Millisecond)
	var payload domain.ModifierJobPayload
	require.NoError(t, pending[0].DecodePayload(&payload))
	assert.Equal(t, domain.ActionExpireModifier, payload.Action)
	require.NotNil(t, payload.ModifierID)
	assert.Equal(t, am.ID, *payload.ModifierID)

	got, err := env.Services.Modifier.Multiplier(ctx, player.ID, domain.TargetTraining, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.25, got, 1e-9)

	require.NoError(t, env.Services.Modifier.Expire(ctx, am.ID))
	require.NoError(t, env.Services.Modifier.Expire(ctx, am.ID))

	got, err = env.Services.Modifier.Multiplier(ctx, player.ID, domain.TargetTraining, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)

	history, err := env.Services.Modifier.History(ctx, player.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	actions := []domain.ModifierAction{history[0].Action, history[1].Action}
	assert.ElementsMatch(t, []domain.ModifierAction{domain.ActionApplied, domain.ActionExpired}, actions)
}

func TestModifierService_Apply_ResourceSchedulesRecalculation(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	player := testutil.NewPlayerBuilder().Build(t, env.DB.DB)
	mod := testutil.NewModifierBuilder().ForResource(domain.ResourceWood).Build(t, env.DB.DB)

	_, err := env.Services.Modifier.Apply(ctx, service.ApplyModifierInput{
		PlayerID:   player.ID,
		ModifierID: mod.ID,
		Source:     domain.SourceResearch,
	})
	require.NoError(t, err)

	pending := testutil.PendingJobs(t, env.DB.DB, domain.JobTypeModifier)
	require.Len(t, pending, 1)
	assert.Equal(t, domain.PriorityHigh, pending[0].Priority)

	var payload domain.ModifierJobPayload
	require.NoError(t, pending[0].DecodePayload(&payload))
	assert.Equal(t, domain.ActionRecalculateResources, payload.Action)
	assert.Equal(t, []domain.ResourceType{domain.ResourceWood}, payload.ResourceTypes)
}

func TestModifierService_Apply_Rejections(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	player := testutil.NewPlayerBuilder().Build(t, env.DB.DB)
	mod := testutil.NewModifierBuilder().Build(t, env.DB.DB)

	_, err := env.Services.Modifier.Apply(ctx, service.ApplyModifierInput{
		PlayerID:   uuid.New(),
		ModifierID: mod.ID,
		Source:     domain.SourceItem,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.Services.Modifier.Apply(ctx, service.ApplyModifierInput{
		PlayerID:   player.ID,
		ModifierID: uuid.New(),
		Source:     domain.SourceItem,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	past := env.Clock.Now().Add(-time.Minute)
	_, err = env.Services.Modifier.Apply(ctx, service.ApplyModifierInput{
		PlayerID:   player.ID,
		ModifierID: mod.ID,
		Source:     domain.SourceItem,
		ExpiresAt:  &past,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidModifier)
}

func TestModifierService_ListActive_SkipsExpired(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	player := testutil.NewPlayerBuilder().Build(t, env.DB.DB)
	mod := testutil.NewModifierBuilder().Build(t, env.DB.DB)
	expiresAt := env.Clock.Now().Add(10 * time.Minute)

	_, err := env.Services.Modifier.Apply(ctx, service.ApplyModifierInput{
		PlayerID:   player.ID,
		ModifierID: mod.ID,
		Source:     domain.SourceEvent,
		ExpiresAt:  &expiresAt,
	})
	require.NoError(t, err)

	active, err := env.Services.Modifier.ListActive(ctx, player.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	// Past its expiry the row no longer counts even before the expire job runs
	env.Clock.Advance(11 * time.Minute)
	active, err = env.Services.Modifier.ListActive(ctx, player.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
}
