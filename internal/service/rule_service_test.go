package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/models"
	"github.com/noah-isme/competition-approval-api/internal/repository"
	appErrors "github.com/noah-isme/competition-approval-api/pkg/errors"
	"github.com/noah-isme/competition-approval-api/pkg/events"
)

func TestDefaultRulesParse(t *testing.T) {
	tables, err := DefaultRules()
	require.NoError(t, err)
	assert.NotEmpty(t, tables.Performance)
	assert.Len(t, tables.Reward, len(tables.Performance))

	found := false
	for _, r := range tables.Performance {
		if r.CompetitionLevel == models.LevelB && r.AwardLevel == models.AwardFirstPrize {
			found = true
			assert.Equal(t, 15.0, r.Score)
			assert.Equal(t, 30.0, r.Workload)
		}
	}
	assert.True(t, found)
}

func TestSeedDefaultsOnlyFillsEmptyTables(t *testing.T) {
	store := newMemStore()
	svc := NewRuleService(memRules{store}, memTx{store: store}, nil, 0, nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.SeedDefaults(ctx))
	defaults, err := DefaultRules()
	require.NoError(t, err)
	assert.Len(t, store.perf, len(defaults.Performance))
	assert.Len(t, store.reward, len(defaults.Reward))

	key := models.RuleKey{CompetitionLevel: models.LevelB, AwardLevel: models.AwardFirstPrize}
	store.perf[key] = models.PerformanceRule{CompetitionLevel: models.LevelB, AwardLevel: models.AwardFirstPrize, Score: 1, Workload: 1}
	require.NoError(t, svc.SeedDefaults(ctx))
	assert.Equal(t, 1.0, store.perf[key].Score)
}

func TestRuleUpsertGuards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := dto.UpsertPerformanceRulesRequest{Rules: []dto.PerformanceRuleInput{{CompetitionLevel: "C", AwardLevel: "FIRST_PRIZE", Score: 7, Workload: 14}}}

	_, err := h.rules.UpsertPerformance(ctx, schoolAdminActor, req)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = h.rules.UpsertPerformance(ctx, superAdminActor, dto.UpsertPerformanceRulesRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = h.rules.UpsertReward(ctx, superAdminActor, dto.UpsertRewardRulesRequest{Rules: []dto.RewardRuleInput{{CompetitionLevel: "Z", AwardLevel: "FIRST_PRIZE", Amount: 1}}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = h.rules.UpsertReward(ctx, superAdminActor, dto.UpsertRewardRulesRequest{Rules: []dto.RewardRuleInput{{CompetitionLevel: "C", AwardLevel: "FIRST_PRIZE", Amount: -1}}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	tables, err := h.rules.UpsertPerformance(ctx, superAdminActor, req)
	require.NoError(t, err)
	assert.Len(t, tables.Performance, 3)
	assert.Contains(t, h.publisher.types(), events.TypeRulesUpdated)

	snap, err := h.rules.Snapshot(ctx, models.LevelC, models.AwardFirstPrize)
	require.NoError(t, err)
	assert.True(t, snap.PerformanceFound)
	assert.False(t, snap.RewardFound)
	assert.Equal(t, 7.0, snap.Score)
	assert.Zero(t, snap.Reward)
}

func TestRuleTablesCacheIsInvalidatedOnWrite(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newMemStore()
	store.setRule(models.LevelB, models.AwardFirstPrize, 15, 30, 3000)
	metrics := NewMetricsService()
	cache := NewCacheService(repository.NewCacheRepository(client, "competition:"), metrics, time.Minute, nil, true)
	svc := NewRuleService(memRules{store}, memTx{store: store}, cache, time.Minute, nil, nil, nil)
	ctx := context.Background()

	tables, err := svc.Tables(ctx)
	require.NoError(t, err)
	require.Len(t, tables.Performance, 1)
	assert.True(t, srv.Exists("competition:"+cacheKeyRules))

	// A write behind the service's back stays hidden until the cache is invalidated.
	store.setRule(models.LevelA, models.AwardFirstPrize, 20, 40, 5000)
	tables, err = svc.Tables(ctx)
	require.NoError(t, err)
	assert.Len(t, tables.Performance, 1)

	tables, err = svc.UpsertReward(ctx, superAdminActor, dto.UpsertRewardRulesRequest{Rules: []dto.RewardRuleInput{
		{CompetitionLevel: "B", AwardLevel: "SECOND_PRIZE", Amount: 2000},
	}})
	require.NoError(t, err)
	assert.Len(t, tables.Performance, 2)
	assert.Len(t, tables.Reward, 3)
}
