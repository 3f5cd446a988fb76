package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildColorer(t *testing.T, classes []ClassItem, constraints ScheduleConstraints) *Colorer {
	t.Helper()
	graph, err := BuildConflictGraph(classes, PMax)
	require.NoError(t, err)
	cal := NewCalendar(mustDate(t, "2024-01-01"), PMax, constraints.Blackouts)
	return NewColorer(graph, cal, constraints, PMax, 1, 10, classes)
}

func TestColorerProducesFeasibleColoringForSimpleGraph(t *testing.T) {
	classes := []ClassItem{
		{ID: "A", Active: true, Forbidden: []Slot{{Weekday: 1, Period: 1}}},
		{ID: "B", Active: true, Forbidden: []Slot{{Weekday: 1, Period: 1}}}, // conflicts with A
	}
	constraints := ScheduleConstraints{MaxPeriodsPerDay: 6, MaxPeriodsPerWeek: 30, MaxConsecutivePeriods: 4}
	co := buildColorer(t, classes, constraints)

	coloring, failedAt, ok := co.Color()
	require.True(t, ok)
	assert.Empty(t, failedAt)
	assert.NotEqual(t, coloring["A"], coloring["B"])
}

func TestColorerTieBreaksLexicographically(t *testing.T) {
	classes := []ClassItem{
		{ID: "Z", Active: true},
		{ID: "A", Active: true},
	}
	co := buildColorer(t, classes, ScheduleConstraints{MaxPeriodsPerDay: 6, MaxPeriodsPerWeek: 30, MaxConsecutivePeriods: 4})

	uncolored := map[string]struct{}{"Z": {}, "A": {}}
	state := newColorState(co.constraints)
	next := co.pickNext(uncolored, state)
	assert.Equal(t, "A", next)
}

func TestColorerRespectsMaxPeriodsPerDay(t *testing.T) {
	classes := make([]ClassItem, 3)
	for i := range classes {
		classes[i] = ClassItem{ID: string(rune('A' + i)), Active: true}
	}
	constraints := ScheduleConstraints{MaxPeriodsPerDay: 1, MaxPeriodsPerWeek: 5, MaxConsecutivePeriods: 1}
	co := buildColorer(t, classes, constraints)

	coloring, _, ok := co.Color()
	require.True(t, ok)

	perDay := map[int]int{}
	for _, s := range coloring {
		perDay[s.Weekday]++
	}
	for _, count := range perDay {
		assert.LessOrEqual(t, count, 1)
	}
}

func TestSlotFeasibleRejectsOwnForbidden(t *testing.T) {
	classes := []ClassItem{{ID: "A", Active: true, Forbidden: []Slot{{Weekday: 1, Period: 1}}}}
	co := buildColorer(t, classes, ScheduleConstraints{MaxPeriodsPerDay: 6, MaxPeriodsPerWeek: 30, MaxConsecutivePeriods: 4})

	assert.False(t, co.SlotFeasible(Coloring{}, "A", Slot{Weekday: 1, Period: 1}))
	assert.True(t, co.SlotFeasible(Coloring{}, "A", Slot{Weekday: 1, Period: 2}))
}
