package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*miniredis.Miniredis, *CacheManager) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, NewCacheManager(client)
}

type cachedStats struct {
	ModuleID  uint    `json:"module_id"`
	Completed int     `json:"completed"`
	AvgScore  float64 `json:"avg_score"`
}

func TestCacheHelper_SetGetRoundTrip(t *testing.T) {
	_, cm := newTestManager(t)
	ctx := context.Background()

	in := cachedStats{ModuleID: 3, Completed: 12, AvgScore: 81.5}
	require.NoError(t, cm.Stats.Set(ctx, "module:3:stats", in, time.Minute))

	var out cachedStats
	require.NoError(t, cm.Stats.Get(ctx, "module:3:stats", &out))
	assert.Equal(t, in, out)
}

func TestCacheHelper_MissReturnsNotFound(t *testing.T) {
	_, cm := newTestManager(t)

	var out cachedStats
	err := cm.Stats.Get(context.Background(), "module:99:stats", &out)
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestCacheHelper_PrefixesIsolateDomains(t *testing.T) {
	mr, cm := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, cm.User.Set(ctx, "id:1", "user", time.Minute))
	require.NoError(t, cm.Module.Set(ctx, "id:1", "module", time.Minute))

	assert.True(t, mr.Exists("user:id:1"))
	assert.True(t, mr.Exists("module:id:1"))

	var got string
	require.NoError(t, cm.User.Get(ctx, "id:1", &got))
	assert.Equal(t, "user", got)
}

func TestCacheHelper_TTLExpires(t *testing.T) {
	mr, cm := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, cm.Fast.Set(ctx, "assignment:1:2", "state", time.Minute))
	mr.FastForward(2 * time.Minute)

	var out string
	err := cm.Fast.Get(ctx, "assignment:1:2", &out)
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestCacheOrExecute_FetchesOnceThenServesFromCache(t *testing.T) {
	_, cm := newTestManager(t)
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return &cachedStats{ModuleID: 5, Completed: 7}, nil
	}

	var first cachedStats
	require.NoError(t, cm.Stats.CacheOrExecute(ctx, "module:5:stats", &first, time.Minute, fetch))

	var second cachedStats
	require.NoError(t, cm.Stats.CacheOrExecute(ctx, "module:5:stats", &second, time.Minute, fetch))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

type credentialRecord struct {
	Name string `json:"name"`
	Hash string `json:"-"`
}

func TestCacheOrExecute_KeepsFieldsHiddenFromJSON(t *testing.T) {
	_, cm := newTestManager(t)

	var out credentialRecord
	err := cm.User.CacheOrExecute(context.Background(), "id:1", &out, time.Minute, func() (interface{}, error) {
		return &credentialRecord{Name: "jo", Hash: "$2a$10$stored-bcrypt-hash"}, nil
	})
	require.NoError(t, err)

	assert.Equal(t, "jo", out.Name)
	assert.Equal(t, "$2a$10$stored-bcrypt-hash", out.Hash)
}

func TestCacheOrExecute_KeepsHiddenFieldsWithoutRedis(t *testing.T) {
	cm := NewCacheManager(nil)

	var out credentialRecord
	err := cm.User.CacheOrExecute(context.Background(), "id:1", &out, time.Minute, func() (interface{}, error) {
		return &credentialRecord{Name: "jo", Hash: "$2a$10$stored-bcrypt-hash"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$stored-bcrypt-hash", out.Hash)
}

func TestCacheOrExecute_RejectsMismatchedFetchResult(t *testing.T) {
	cm := NewCacheManager(nil)

	var out credentialRecord
	err := cm.User.CacheOrExecute(context.Background(), "id:1", &out, time.Minute, func() (interface{}, error) {
		return 42, nil
	})
	assert.Error(t, err)
}

func TestCacheOrExecute_FetchErrorPropagates(t *testing.T) {
	_, cm := newTestManager(t)

	wantErr := errors.New("query failed")
	var out cachedStats
	err := cm.Stats.CacheOrExecute(context.Background(), "module:5:stats", &out, time.Minute, func() (interface{}, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestInvalidatePattern_RemovesOnlyMatches(t *testing.T) {
	mr, cm := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, cm.Stats.Set(ctx, "module:3:stats", 1, time.Minute))
	require.NoError(t, cm.Stats.Set(ctx, "module:3:completion", 2, time.Minute))
	require.NoError(t, cm.Stats.Set(ctx, "module:4:stats", 3, time.Minute))

	require.NoError(t, cm.Stats.InvalidatePattern(ctx, "module:3:*"))

	assert.False(t, mr.Exists("stats:module:3:stats"))
	assert.False(t, mr.Exists("stats:module:3:completion"))
	assert.True(t, mr.Exists("stats:module:4:stats"))
}

func TestInvalidateAssignmentCache_DropsDependentViews(t *testing.T) {
	mr, cm := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, cm.Fast.Set(ctx, "assignment:7:3", "state", time.Minute))
	require.NoError(t, cm.Stats.Set(ctx, "module:3:stats", 1, time.Minute))
	require.NoError(t, cm.Stats.Set(ctx, "user:7:progress", 2, time.Minute))
	require.NoError(t, cm.Stats.Set(ctx, "overview:all", 3, time.Minute))
	require.NoError(t, cm.Stats.Set(ctx, "user:8:progress", 4, time.Minute))

	InvalidateAssignmentCache(ctx, cm, 7, 3)

	assert.False(t, mr.Exists("fast:assignment:7:3"))
	assert.False(t, mr.Exists("stats:module:3:stats"))
	assert.False(t, mr.Exists("stats:user:7:progress"))
	assert.False(t, mr.Exists("stats:overview:all"))
	assert.True(t, mr.Exists("stats:user:8:progress"))
}

func TestInvalidateModuleCache_DropsListsAndAggregates(t *testing.T) {
	mr, cm := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, cm.Module.Set(ctx, "id:3", "module", time.Minute))
	require.NoError(t, cm.Module.Set(ctx, "list:published", "page", time.Minute))
	require.NoError(t, cm.Stats.Set(ctx, "overview:modules", "agg", time.Minute))
	require.NoError(t, cm.Module.Set(ctx, "id:4", "other", time.Minute))

	InvalidateModuleCache(ctx, cm, 3)

	assert.False(t, mr.Exists("module:id:3"))
	assert.False(t, mr.Exists("module:list:published"))
	assert.False(t, mr.Exists("stats:overview:modules"))
	assert.True(t, mr.Exists("module:id:4"))
}

func TestNilClientDegradesGracefully(t *testing.T) {
	cm := NewCacheManager(nil)
	ctx := context.Background()

	assert.NoError(t, cm.Stats.Set(ctx, "k", 1, time.Minute))
	assert.ErrorIs(t, cm.Stats.Get(ctx, "k", new(int)), ErrCacheNotAvailable)
	assert.NoError(t, cm.Stats.Delete(ctx, "k"))
	assert.NoError(t, cm.Stats.InvalidatePattern(ctx, "*"))
	assert.NoError(t, cm.HealthCheck(ctx))

	// Cache-aside still works, it just fetches every time.
	calls := 0
	var out int
	for i := 0; i < 2; i++ {
		require.NoError(t, cm.Stats.CacheOrExecute(ctx, "k", &out, time.Minute, func() (interface{}, error) {
			calls++
			return 42, nil
		}))
	}
	assert.Equal(t, 2, calls)
	assert.Equal(t, 42, out)
}
