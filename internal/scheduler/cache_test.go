package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestScheduleCacheMissThenHit(t *testing.T) {
	cache, err := NewScheduleCache(10, nil, time.Hour, zap.NewNop())
	require.NoError(t, err)

	_, ok := cache.Get(context.Background(), "fp1")
	assert.False(t, ok)

	coloring := Coloring{"A": {Weekday: 1, Period: 1}}
	cache.Put(context.Background(), "fp1", coloring)

	got, ok := cache.Get(context.Background(), "fp1")
	require.True(t, ok)
	assert.Equal(t, coloring, got)

	hits, misses := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestScheduleCacheGetReturnsCloneNotAlias(t *testing.T) {
	cache, err := NewScheduleCache(10, nil, time.Hour, zap.NewNop())
	require.NoError(t, err)

	original := Coloring{"A": {Weekday: 1, Period: 1}}
	cache.Put(context.Background(), "fp", original)

	got, ok := cache.Get(context.Background(), "fp")
	require.True(t, ok)
	got["A"] = Slot{Weekday: 5, Period: 8}

	again, ok := cache.Get(context.Background(), "fp")
	require.True(t, ok)
	assert.Equal(t, Slot{Weekday: 1, Period: 1}, again["A"])
}

// §8 invariant 7: capacity-1 cache retains only the most recently stored entry.
func TestScheduleCacheCapacityOneEvictsOldest(t *testing.T) {
	cache, err := NewScheduleCache(1, nil, time.Hour, zap.NewNop())
	require.NoError(t, err)

	cache.Put(context.Background(), "fp1", Coloring{"A": {Weekday: 1, Period: 1}})
	cache.Put(context.Background(), "fp2", Coloring{"B": {Weekday: 2, Period: 2}})

	assert.Equal(t, 1, cache.Len())

	_, ok := cache.Get(context.Background(), "fp1")
	assert.False(t, ok)

	got, ok := cache.Get(context.Background(), "fp2")
	require.True(t, ok)
	assert.Equal(t, Coloring{"B": {Weekday: 2, Period: 2}}, got)
}

func TestScheduleCacheDefaultsCapacity(t *testing.T) {
	cache, err := NewScheduleCache(0, nil, time.Hour, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0, cache.Len())

	// A non-positive capacity falls back to 100 entries.
	for i := 0; i < 101; i++ {
		cache.Put(context.Background(), fmt.Sprintf("fp%d", i), Coloring{"A": {Weekday: 1, Period: 1}})
	}
	assert.Equal(t, 100, cache.Len())
}
