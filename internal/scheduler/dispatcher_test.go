package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatcherPartitionGroupsConnectedComponents(t *testing.T) {
	classes := []ClassItem{
		{ID: "A", Active: true, Forbidden: []Slot{{Weekday: 1, Period: 1}}},
		{ID: "B", Active: true, Forbidden: []Slot{{Weekday: 1, Period: 1}}}, // conflicts with A
		{ID: "C", Active: true, Forbidden: []Slot{{Weekday: 2, Period: 2}}}, // isolated
	}
	graph, err := BuildConflictGraph(classes, PMax)
	require.NoError(t, err)

	d := NewDispatcher(2, zap.NewNop())
	groups := d.Partition(graph)

	total := 0
	for _, g := range groups {
		total += len(g)
	}
	assert.Equal(t, 3, total)
	assert.LessOrEqual(t, len(groups), 2)
}

func TestDispatcherPartitionDefaultsWorkersToOne(t *testing.T) {
	d := NewDispatcher(0, zap.NewNop())
	assert.Equal(t, 1, d.workers)
}

func TestDispatcherDispatchMergesByGroupIndexNotCompletionOrder(t *testing.T) {
	d := NewDispatcher(3, zap.NewNop())
	groups := [][]string{{"A"}, {"B"}, {"C"}}

	worker := func(ctx context.Context, ids []string) (Coloring, error) {
		out := Coloring{}
		for i, id := range ids {
			out[id] = Slot{Weekday: 1, Period: i + 1}
		}
		// Every group also reports a slot for "C", and group "A" finishes
		// last: a completion-order merge would keep A's value, a merge by
		// group index keeps the value from the last group.
		if ids[0] == "A" {
			time.Sleep(20 * time.Millisecond)
		}
		out["C"] = Slot{Weekday: 2, Period: int(ids[0][0]-'A') + 1}
		return out, nil
	}

	merged, err := d.Dispatch(context.Background(), groups, worker)
	require.NoError(t, err)
	assert.Len(t, merged, 3)
	assert.Contains(t, merged, "A")
	assert.Contains(t, merged, "B")
	assert.Contains(t, merged, "C")
	assert.Equal(t, Slot{Weekday: 2, Period: 3}, merged["C"])
}

func TestDispatcherDispatchPropagatesWorkerError(t *testing.T) {
	d := NewDispatcher(2, zap.NewNop())
	groups := [][]string{{"A"}, {"B"}}
	wantErr := errors.New("boom")

	worker := func(ctx context.Context, ids []string) (Coloring, error) {
		if ids[0] == "B" {
			return nil, wantErr
		}
		return Coloring{ids[0]: {Weekday: 1, Period: 1}}, nil
	}

	_, err := d.Dispatch(context.Background(), groups, worker)
	require.Error(t, err)
}

func TestRepairGlobalConstraintsReassignsOverCapacityVertex(t *testing.T) {
	classes := []ClassItem{
		{ID: "A", Active: true},
		{ID: "B", Active: true},
		{ID: "C", Active: true},
	}
	constraints := ScheduleConstraints{MaxPeriodsPerDay: 2, MaxPeriodsPerWeek: 10, MaxConsecutivePeriods: 2}
	co := buildColorer(t, classes, constraints)

	// Simulate an independently-colored merge that over-fills Monday.
	merged := Coloring{
		"A": {Weekday: 1, Period: 1},
		"B": {Weekday: 1, Period: 2},
		"C": {Weekday: 1, Period: 3},
	}

	repaired := RepairGlobalConstraints(co, merged)

	perDay := map[int]int{}
	for _, slot := range repaired {
		perDay[slot.Weekday]++
	}
	for _, count := range perDay {
		assert.LessOrEqual(t, count, 2)
	}
}
