package scheduler

import (
	"math"
	"sort"

	"github.com/noah-isme/classsched/pkg/config"
)

// optimalContinuousRatio is the target fraction of all scheduled classes
// that sit inside a run of two or more adjacent periods on the same day
// (§4.5).
const optimalContinuousRatio = 0.7

// Evaluator scores a Coloring's quality along several independent axes and
// combines them with configurable weights (§4.5).
type Evaluator struct {
	evalCfg   config.EvaluatorDefaults
	weights   config.OptimizerDefaults
	pMax      int
	weekCount int
	classes   map[string]ClassItem
}

func NewEvaluator(evalCfg config.EvaluatorDefaults, weights config.OptimizerDefaults, pMax, weekCount int, classes []ClassItem) *Evaluator {
	byID := make(map[string]ClassItem, len(classes))
	for _, c := range classes {
		byID[c.ID] = c
	}
	return &Evaluator{evalCfg: evalCfg, weights: weights, pMax: pMax, weekCount: weekCount, classes: byID}
}

// Score evaluates a complete Coloring.
func (e *Evaluator) Score(coloring Coloring) QualityScore {
	perDay := e.classesPerWeekday(coloring)

	day := e.dayDistributionScore(perDay)
	gaps, avgGap := e.timeGapsScore(coloring)
	util, blocks := e.periodUtilizationScore(coloring)
	weekDist, weeksUsed := e.weekDistributionScore(coloring)
	weekCnt := e.weekCountScore(weeksUsed)
	constraint := e.constraintSatisfactionScore(coloring)

	weightSum := e.weights.WeightDayDistribution + e.weights.WeightTimeGaps +
		e.weights.WeightPeriodUtilization + e.weights.WeightWeekDistribution +
		e.weights.WeightConstraintSatisfaction
	if weightSum == 0 {
		weightSum = 1
	}
	total := (e.weights.WeightDayDistribution*day +
		e.weights.WeightTimeGaps*gaps +
		e.weights.WeightPeriodUtilization*util +
		e.weights.WeightWeekDistribution*weekDist +
		e.weights.WeightConstraintSatisfaction*constraint) / weightSum

	if len(coloring) == 0 {
		total = 0
	}

	return QualityScore{
		Total:                  total,
		DayDistribution:        day,
		TimeGaps:               gaps,
		PeriodUtilization:      util,
		WeekDistribution:       weekDist,
		ConstraintSatisfaction: constraint,
		WeekCount:              weekCnt,
		Details: QualityDetails{
			ClassesPerDay:    perDay,
			AverageGap:       avgGap,
			ContinuousBlocks: blocks,
			WeeksUsed:        weeksUsed,
			TotalWeeks:       e.weekCount,
		},
	}
}

func (e *Evaluator) classesPerWeekday(coloring Coloring) map[int]int {
	perDay := make(map[int]int, 5)
	for weekday := 1; weekday <= 5; weekday++ {
		perDay[weekday] = 0
	}
	for _, slot := range coloring {
		perDay[slot.Weekday]++
	}
	return perDay
}

// dayDistributionScore measures how closely each weekday's class count
// matches TargetClassesPerDay: perfect when every day matches the target
// (§4.5). Falls back to the coefficient of variation (σ/μ) when no target
// is configured, so a zero-value EvaluatorDefaults still produces a sane
// evenness score.
func (e *Evaluator) dayDistributionScore(perDay map[int]int) float64 {
	if e.evalCfg.TargetClassesPerDay <= 0 {
		values := make([]float64, 0, len(perDay))
		for _, v := range perDay {
			values = append(values, float64(v))
		}
		mean := average(values)
		if mean == 0 {
			return 1
		}
		return clamp01(1 - stdDev(values, mean)/mean)
	}

	target := float64(e.evalCfg.TargetClassesPerDay)
	var deviationSum float64
	for _, v := range perDay {
		deviationSum += math.Abs(float64(v)-target) / target
	}
	avgDeviation := deviationSum / float64(len(perDay))
	return clamp01(1 - avgDeviation)
}

// timeGapsScore applies penalty(g) = max(0, (g-maxGapSize)/g) to every
// intra-day gap and returns 1 minus the mean penalty (§4.5).
func (e *Evaluator) timeGapsScore(coloring Coloring) (float64, float64) {
	byDay := make(map[int][]int)
	for _, slot := range coloring {
		byDay[slot.Weekday] = append(byDay[slot.Weekday], slot.Period)
	}

	var totalGapPeriods, gapCount int
	var penaltySum float64
	for _, periods := range byDay {
		sort.Ints(periods)
		for i := 1; i < len(periods); i++ {
			gap := periods[i] - periods[i-1] - 1
			if gap <= 0 {
				continue
			}
			totalGapPeriods += gap
			gapCount++
			if gap > e.evalCfg.MaxGapSize {
				penaltySum += float64(gap-e.evalCfg.MaxGapSize) / float64(gap)
			}
		}
	}

	if gapCount == 0 {
		return 1, 0
	}
	meanPenalty := penaltySum / float64(gapCount)
	avgGap := float64(totalGapPeriods) / float64(gapCount)
	return clamp01(1 - meanPenalty), avgGap
}

// periodUtilizationScore (a.k.a. continuousBlocks) measures the fraction of
// classes that sit inside a run of 2+ adjacent periods on the same day
// against optimalContinuousRatio (§4.5).
func (e *Evaluator) periodUtilizationScore(coloring Coloring) (float64, int) {
	byDay := make(map[int][]int)
	for _, slot := range coloring {
		byDay[slot.Weekday] = append(byDay[slot.Weekday], slot.Period)
	}

	var inBlocks, total, totalBlocks int
	for _, periods := range byDay {
		sort.Ints(periods)
		total += len(periods)

		blocks := 1
		for i := 1; i < len(periods); i++ {
			if periods[i] != periods[i-1]+1 {
				blocks++
			}
		}
		totalBlocks += blocks

		runLen := 1
		for i := 1; i <= len(periods); i++ {
			adjacent := i < len(periods) && periods[i] == periods[i-1]+1
			if adjacent {
				runLen++
				continue
			}
			if runLen >= 2 {
				inBlocks += runLen
			}
			runLen = 1
		}
	}

	if total == 0 {
		return 1, 0
	}
	ratioInBlocks := float64(inBlocks) / float64(total)
	return clamp01(1 - math.Abs(ratioInBlocks-optimalContinuousRatio)), totalBlocks
}

// weekDistributionScore is only meaningful for multi-week runs:
// 1 - variance(classesPerWeek)/idealPerWeek² (§4.5).
func (e *Evaluator) weekDistributionScore(coloring Coloring) (float64, int) {
	if e.weekCount <= 1 {
		return 1, e.weekCount
	}

	counts := make([]float64, e.weekCount)
	for id := range coloring {
		class := e.classes[id]
		for week := 0; week < e.weekCount; week++ {
			if class.activeInWeek(week) {
				counts[week]++
			}
		}
	}

	used := 0
	for _, c := range counts {
		if c > 0 {
			used++
		}
	}

	ideal := average(counts)
	if ideal == 0 {
		return 1, used
	}
	sigma := stdDev(counts, ideal)
	variance := sigma * sigma
	return clamp01(1 - variance/(ideal*ideal)), used
}

// weekCountScore is informational only (not part of Total):
// 1 - |weeksUsed - targetWeeks| / targetWeeks (§4.5).
func (e *Evaluator) weekCountScore(weeksUsed int) float64 {
	if e.weekCount <= 0 {
		return 1
	}
	return clamp01(1 - math.Abs(float64(weeksUsed-e.weekCount))/float64(e.weekCount))
}

// constraintSatisfactionScore counts the classes on each occupied weekday
// and reports the fraction of occupied weekdays whose count does not exceed
// EvaluatorDefaults.MaxDailyClasses. MinDailyClasses and the
// ScheduleConstraints limits enforced by Colorer/BacktrackingScheduler are
// not checked here.
func (e *Evaluator) constraintSatisfactionScore(coloring Coloring) float64 {
	byDay := make(map[int][]int)
	for _, slot := range coloring {
		byDay[slot.Weekday] = append(byDay[slot.Weekday], slot.Period)
	}
	if len(byDay) == 0 {
		return 1
	}

	satisfied := 0
	for _, periods := range byDay {
		if len(periods) <= e.evalCfg.MaxDailyClasses && len(periods) >= 0 {
			satisfied++
		}
	}
	return float64(satisfied) / float64(len(byDay))
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
