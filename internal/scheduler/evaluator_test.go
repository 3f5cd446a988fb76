package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/classsched/pkg/config"
)

func TestEvaluatorDayDistributionScoreAgainstTarget(t *testing.T) {
	eval := NewEvaluator(
		config.EvaluatorDefaults{TargetClassesPerDay: 2, MaxDailyClasses: 8},
		config.OptimizerDefaults{},
		PMax, 1, nil,
	)
	coloring := Coloring{
		"A": {Weekday: 1, Period: 1},
		"B": {Weekday: 1, Period: 2},
	}
	score := eval.Score(coloring)
	assert.InDelta(t, 0.2, score.DayDistribution, 1e-9)
}

func TestEvaluatorTimeGapsScorePenalizesGapsOverMax(t *testing.T) {
	eval := NewEvaluator(
		config.EvaluatorDefaults{MaxGapSize: 1, MaxDailyClasses: 8},
		config.OptimizerDefaults{},
		PMax, 1, nil,
	)
	coloring := Coloring{
		"A": {Weekday: 1, Period: 1},
		"B": {Weekday: 1, Period: 4},
	}
	score := eval.Score(coloring)
	assert.InDelta(t, 0.5, score.TimeGaps, 1e-9)
	assert.InDelta(t, 2.0, score.Details.AverageGap, 1e-9)
}

func TestEvaluatorPeriodUtilizationScoreMatchesBlockRatio(t *testing.T) {
	eval := NewEvaluator(
		config.EvaluatorDefaults{MaxDailyClasses: 8},
		config.OptimizerDefaults{},
		PMax, 1, nil,
	)
	coloring := Coloring{
		"A": {Weekday: 1, Period: 1},
		"B": {Weekday: 1, Period: 2},
		"C": {Weekday: 1, Period: 4},
	}
	score := eval.Score(coloring)
	// periods 1,2 form a block of 2 (both count), period 4 is isolated:
	// ratioInBlocks = 2/3, expected = 1 - |2/3 - 0.7|.
	assert.InDelta(t, 1-absFloat(2.0/3.0-0.7), score.PeriodUtilization, 1e-9)
	assert.Equal(t, 2, score.Details.ContinuousBlocks)
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestEvaluatorWeekDistributionScoreWithUnevenLoad(t *testing.T) {
	classes := []ClassItem{
		{ID: "A", Active: true}, // active every week
		{ID: "B", Active: true, Weeks: []int{0}},
	}
	eval := NewEvaluator(
		config.EvaluatorDefaults{MaxDailyClasses: 8},
		config.OptimizerDefaults{},
		PMax, 2, classes,
	)
	coloring := Coloring{
		"A": {Weekday: 1, Period: 1},
		"B": {Weekday: 2, Period: 2},
	}
	score := eval.Score(coloring)
	assert.InDelta(t, 0.8889, score.WeekDistribution, 1e-3)
	assert.Equal(t, 2, score.Details.WeeksUsed)
}

func TestEvaluatorConstraintSatisfactionScoreFlagsOverfullDay(t *testing.T) {
	eval := NewEvaluator(
		config.EvaluatorDefaults{MaxDailyClasses: 2},
		config.OptimizerDefaults{},
		PMax, 1, nil,
	)
	coloring := Coloring{
		"A": {Weekday: 1, Period: 1},
		"B": {Weekday: 1, Period: 2},
		"C": {Weekday: 1, Period: 3},
		"D": {Weekday: 2, Period: 1},
	}
	score := eval.Score(coloring)
	assert.InDelta(t, 0.5, score.ConstraintSatisfaction, 1e-9)
}

func TestEvaluatorScoreForcesZeroTotalOnEmptyColoring(t *testing.T) {
	eval := NewEvaluator(
		config.EvaluatorDefaults{MaxDailyClasses: 8},
		config.OptimizerDefaults{
			WeightDayDistribution:        0.3,
			WeightTimeGaps:               0.3,
			WeightPeriodUtilization:      0.2,
			WeightWeekDistribution:       0.1,
			WeightConstraintSatisfaction: 0.1,
		},
		PMax, 1, nil,
	)
	score := eval.Score(Coloring{})
	assert.Equal(t, 0.0, score.Total)
}
