package cache_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/mathtermind/internal/cache"
	"github.com/vytor/mathtermind/internal/testutil/mocks"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type stats struct {
	Points int `json:"points"`
}

func TestMemory_GetSetAndExpiry(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := cache.NewMemory(cache.WithClock(clk.now))

	var got stats
	hit, err := c.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "user_stats:a", stats{Points: 42}, 0))
	hit, err = c.Get(ctx, "user_stats:a", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 42, got.Points)

	clk.advance(cache.DefaultTTL)
	hit, err = c.Get(ctx, "user_stats:a", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 0, c.Len())

	assert.ErrorIs(t, c.Set(ctx, "", 1, time.Minute), cache.ErrKeyEmpty)
}

func TestMemory_EvictsExpiredThenSoonest(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := cache.NewMemory(cache.WithClock(clk.now), cache.WithMaxEntries(3))

	require.NoError(t, c.Set(ctx, "short", 1, time.Minute))
	require.NoError(t, c.Set(ctx, "medium", 2, 10*time.Minute))
	require.NoError(t, c.Set(ctx, "long", 3, time.Hour))

	require.NoError(t, c.Set(ctx, "new", 4, time.Hour))
	assert.Equal(t, 3, c.Len())
	var v int
	hit, _ := c.Get(ctx, "short", &v)
	assert.False(t, hit, "entry closest to expiry should be evicted")

	clk.advance(15 * time.Minute)
	require.NoError(t, c.Set(ctx, "another", 5, time.Hour))
	hit, _ = c.Get(ctx, "medium", &v)
	assert.False(t, hit)
	hit, _ = c.Get(ctx, "long", &v)
	assert.True(t, hit)
	assert.Equal(t, 3, c.Len())
}

func TestMemory_InvalidatePrefix(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory()
	user := uuid.New()

	require.NoError(t, c.Set(ctx, cache.UserStatsKey(user), stats{Points: 1}, 0))
	require.NoError(t, c.Set(ctx, cache.LeaderboardKey(10), []int{1}, 0))
	require.NoError(t, c.Set(ctx, cache.LeaderboardKey(5), []int{1}, 0))

	require.NoError(t, c.InvalidatePrefix(ctx, cache.PrefixLeaderboard))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, "leaderboard:top:10", cache.LeaderboardKey(10))
}

func TestLoader_CoalescesConcurrentLoads(t *testing.T) {
	ctx := context.Background()
	l := cache.NewLoader(cache.NewMemory())

	var calls int32
	release := make(chan struct{})
	load := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return stats{Points: 7}, nil
	}

	var wg sync.WaitGroup
	results := make([]stats, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, l.GetOrLoad(ctx, "k", time.Minute, &results[i], load))
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(2))
	for _, r := range results {
		assert.Equal(t, 7, r.Points)
	}

	var cached stats
	require.NoError(t, l.GetOrLoad(ctx, "k", time.Minute, &cached, func(context.Context) (any, error) {
		t.Fatal("should be served from cache")
		return nil, nil
	}))
	assert.Equal(t, 7, cached.Points)
}

func TestLoader_CacheFailureFallsThrough(t *testing.T) {
	ctx := context.Background()
	m := new(mocks.MockCache)
	m.On("Get", mock.Anything, "k", mock.Anything).Return(false, errors.New("down"))
	m.On("Set", mock.Anything, "k", mock.Anything, time.Minute).Return(errors.New("down"))
	m.On("InvalidatePrefix", mock.Anything, "user_stats:").Return(errors.New("down"))

	l := cache.NewLoader(m)
	var got stats
	require.NoError(t, l.GetOrLoad(ctx, "k", time.Minute, &got, func(context.Context) (any, error) {
		return stats{Points: 3}, nil
	}))
	assert.Equal(t, 3, got.Points)

	l.Invalidate(ctx, cache.PrefixUserStats)
	m.AssertExpectations(t)
}

func TestLoader_LoadErrorIsReturned(t *testing.T) {
	l := cache.NewLoader(cache.NewMemory())
	boom := errors.New("boom")
	var got stats
	err := l.GetOrLoad(context.Background(), "k", time.Minute, &got, func(context.Context) (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

// Runs only against a live server, e.g. REDIS_TEST_ADDR=localhost:6379.
func TestRedis_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	r, err := cache.NewRedis(ctx, cache.RedisConfig{Addr: addr, Namespace: "mathtermind-test-" + uuid.NewString()}, time.Minute)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Set(ctx, "user_stats:a", stats{Points: 9}, 0))
	require.NoError(t, r.Set(ctx, "leaderboard:top:10", []int{1}, 0))

	var got stats
	hit, err := r.Get(ctx, "user_stats:a", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 9, got.Points)

	require.NoError(t, r.InvalidatePrefix(ctx, "user_stats:"))
	hit, err = r.Get(ctx, "user_stats:a", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	var lb []int
	hit, err = r.Get(ctx, "leaderboard:top:10", &lb)
	require.NoError(t, err)
	assert.True(t, hit)
}
