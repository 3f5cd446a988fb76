package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConflictGraphSharedSlotCreatesEdge(t *testing.T) {
	classes := []ClassItem{
		{ID: "A", Active: true, Forbidden: []Slot{{Weekday: 1, Period: 1}}},
		{ID: "B", Active: true, Forbidden: []Slot{{Weekday: 1, Period: 1}, {Weekday: 2, Period: 2}}},
		{ID: "C", Active: true, Forbidden: []Slot{{Weekday: 3, Period: 3}}},
	}

	graph, err := BuildConflictGraph(classes, PMax)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"B"}, graph.Neighbors("A"))
	assert.ElementsMatch(t, []string{"A"}, graph.Neighbors("B"))
	assert.Empty(t, graph.Neighbors("C"))
}

func TestBuildConflictGraphNoSharedSlotNoEdge(t *testing.T) {
	classes := []ClassItem{
		{ID: "A", Active: true, Forbidden: []Slot{{Weekday: 1, Period: 1}}},
		{ID: "B", Active: true, Forbidden: []Slot{{Weekday: 1, Period: 2}}},
	}

	graph, err := BuildConflictGraph(classes, PMax)
	require.NoError(t, err)

	assert.Empty(t, graph.Neighbors("A"))
	assert.Empty(t, graph.Neighbors("B"))
}

func TestBuildConflictGraphSkipsInactive(t *testing.T) {
	classes := []ClassItem{
		{ID: "A", Active: true},
		{ID: "B", Active: false},
	}
	graph, err := BuildConflictGraph(classes, PMax)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, graph.Order())
}

func TestBuildConflictGraphDuplicateIDRejected(t *testing.T) {
	classes := []ClassItem{
		{ID: "A", Active: true},
		{ID: "A", Active: true},
	}
	_, err := BuildConflictGraph(classes, PMax)
	require.Error(t, err)
}

func TestBuildConflictGraphFullyForbiddenLeavesEmptyAvailable(t *testing.T) {
	var forbidden []Slot
	for w := 1; w <= 5; w++ {
		for p := 1; p <= PMax; p++ {
			forbidden = append(forbidden, Slot{Weekday: w, Period: p})
		}
	}
	classes := []ClassItem{{ID: "X", Active: true, Forbidden: forbidden}}

	graph, err := BuildConflictGraph(classes, PMax)
	require.NoError(t, err)
	assert.Empty(t, graph.Available("X"))
}

func TestFingerprintStableAcrossCallsSameInput(t *testing.T) {
	classes := []ClassItem{
		{ID: "A", Active: true, Forbidden: []Slot{{Weekday: 1, Period: 1}}},
		{ID: "B", Active: true, Forbidden: []Slot{{Weekday: 1, Period: 1}}},
	}
	constraints := ScheduleConstraints{MaxPeriodsPerDay: 4, MaxPeriodsPerWeek: 20, MaxConsecutivePeriods: 2}

	g1, err := BuildConflictGraph(classes, PMax)
	require.NoError(t, err)
	g2, err := BuildConflictGraph(classes, PMax)
	require.NoError(t, err)

	assert.Equal(t, g1.Fingerprint(constraints), g2.Fingerprint(constraints))
}

func TestFingerprintDiffersWhenConstraintsDiffer(t *testing.T) {
	classes := []ClassItem{{ID: "A", Active: true}}
	g, err := BuildConflictGraph(classes, PMax)
	require.NoError(t, err)

	a := g.Fingerprint(ScheduleConstraints{MaxPeriodsPerDay: 4, MaxPeriodsPerWeek: 20, MaxConsecutivePeriods: 2})
	b := g.Fingerprint(ScheduleConstraints{MaxPeriodsPerDay: 6, MaxPeriodsPerWeek: 20, MaxConsecutivePeriods: 2})
	assert.NotEqual(t, a, b)
}
