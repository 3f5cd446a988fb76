package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classsched/pkg/config"
)

func buildOptimizerFixture(t *testing.T, classes []ClassItem, constraints ScheduleConstraints, cfg config.OptimizerDefaults) (*Optimizer, Coloring) {
	t.Helper()
	co := buildColorer(t, classes, constraints)
	coloring, _, ok := co.Color()
	require.True(t, ok)

	eval := NewEvaluator(
		config.EvaluatorDefaults{MaxGapSize: 2, MaxDailyClasses: constraints.MaxPeriodsPerDay, TargetClassesPerDay: 0},
		cfg, PMax, 1, classes,
	)
	return NewOptimizer(co, eval, cfg, PMax, 42), coloring
}

func smallOptimizerConfig() config.OptimizerDefaults {
	return config.OptimizerDefaults{
		PopulationSize:               8,
		GenerationLimit:              5,
		MutationRate:                 0.3,
		CrossoverRate:                0.8,
		ElitismCount:                 2,
		TournamentSize:               3,
		MaxSeconds:                   2,
		PlateauWindow:                3,
		PlateauPct:                   0.0,
		WeightDayDistribution:        0.3,
		WeightTimeGaps:               0.3,
		WeightPeriodUtilization:      0.2,
		WeightWeekDistribution:       0.1,
		WeightConstraintSatisfaction: 0.1,
	}
}

func TestOptimizerRunNeverReturnsWorseThanSeed(t *testing.T) {
	classes := []ClassItem{
		{ID: "A", Active: true, Forbidden: []Slot{{Weekday: 1, Period: 1}}},
		{ID: "B", Active: true, Forbidden: []Slot{{Weekday: 1, Period: 1}, {Weekday: 2, Period: 2}}},
		{ID: "C", Active: true, Forbidden: []Slot{{Weekday: 3, Period: 3}}},
	}
	constraints := ScheduleConstraints{MaxPeriodsPerDay: 6, MaxPeriodsPerWeek: 30, MaxConsecutivePeriods: 4}
	cfg := smallOptimizerConfig()
	opt, initial := buildOptimizerFixture(t, classes, constraints, cfg)

	eval := NewEvaluator(
		config.EvaluatorDefaults{MaxGapSize: 2, MaxDailyClasses: constraints.MaxPeriodsPerDay},
		cfg, PMax, 1, classes,
	)
	initialScore := eval.Score(initial).Total

	best, metrics := opt.Run(context.Background(), initial)
	bestScore := eval.Score(best).Total

	assert.GreaterOrEqual(t, bestScore, initialScore)
	assert.Len(t, best, len(initial))
	assert.GreaterOrEqual(t, metrics.Generations, 0)
}

func TestOptimizerRunProducesFeasibleColoring(t *testing.T) {
	classes := []ClassItem{
		{ID: "A", Active: true},
		{ID: "B", Active: true},
		{ID: "C", Active: true},
	}
	constraints := ScheduleConstraints{MaxPeriodsPerDay: 2, MaxPeriodsPerWeek: 10, MaxConsecutivePeriods: 2}
	cfg := smallOptimizerConfig()
	opt, initial := buildOptimizerFixture(t, classes, constraints, cfg)

	best, _ := opt.Run(context.Background(), initial)

	for id, slot := range best {
		assert.True(t, opt.colorer.SlotFeasible(best, id, slot), "class %s slot %v should remain feasible after optimization", id, slot)
	}
}

func TestOptimizerRunIsDeterministicForFixedSeed(t *testing.T) {
	classes := []ClassItem{
		{ID: "A", Active: true, Forbidden: []Slot{{Weekday: 1, Period: 1}}},
		{ID: "B", Active: true, Forbidden: []Slot{{Weekday: 2, Period: 2}}},
	}
	constraints := ScheduleConstraints{MaxPeriodsPerDay: 4, MaxPeriodsPerWeek: 20, MaxConsecutivePeriods: 2}
	cfg := smallOptimizerConfig()

	opt1, initial1 := buildOptimizerFixture(t, classes, constraints, cfg)
	opt2, initial2 := buildOptimizerFixture(t, classes, constraints, cfg)

	best1, _ := opt1.Run(context.Background(), initial1)
	best2, _ := opt2.Run(context.Background(), initial2)

	assert.Equal(t, best1, best2)
}

func TestOptimizerRunRespectsContextCancellation(t *testing.T) {
	classes := []ClassItem{{ID: "A", Active: true}, {ID: "B", Active: true}}
	constraints := ScheduleConstraints{MaxPeriodsPerDay: 6, MaxPeriodsPerWeek: 30, MaxConsecutivePeriods: 4}
	cfg := smallOptimizerConfig()
	cfg.GenerationLimit = 1000
	opt, initial := buildOptimizerFixture(t, classes, constraints, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	best, metrics := opt.Run(ctx, initial)
	assert.Equal(t, 0, metrics.Generations)
	assert.Len(t, best, len(initial))
}
