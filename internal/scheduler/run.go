package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/classsched/pkg/config"
	apperrors "github.com/noah-isme/classsched/pkg/errors"
)

// RunState is a node of the Run state machine (§2, §9): Initialized →
// GraphBuilt → ColoringSought → {Feasible, Infeasible} → Optimizing? →
// Completed, with Aborted reachable from any state on cancellation.
type RunState string

const (
	StateInitialized    RunState = "initialized"
	StateGraphBuilt     RunState = "graph_built"
	StateColoringSought RunState = "coloring_sought"
	StateFeasible       RunState = "feasible"
	StateInfeasible     RunState = "infeasible"
	StateOptimizing     RunState = "optimizing"
	StateCompleted      RunState = "completed"
	StateAborted        RunState = "aborted"
)

// RunInput is everything a single Run.Execute call needs (§6 input contract).
type RunInput struct {
	RunID       string
	StartDate   time.Time
	WeekCount   int
	Classes     []ClassItem
	Constraints ScheduleConstraints
	Mode        SolverMode
	Seed        uint64
}

// RunResult is the §6 output contract.
type RunResult struct {
	RunID        string
	State        RunState
	Coloring     Coloring
	Schedule     []ScheduleEntry
	Quality      *QualityScore
	Optimization *OptimizationMetrics
	CacheHit     bool
	Err          *apperrors.Error
}

// Run orchestrates the Calendar, Conflict Graph Builder, Colorer,
// Backtracking Scheduler, Schedule Cache, Genetic Optimizer and Parallel
// Dispatcher into the single pipeline described by SolverMode (§9 Open
// Question, resolved: defaults to graph+optimize). One Colorer is
// constructed per Run so its working state never leaks across requests.
type Run struct {
	cfg        *config.Config
	cache      *ScheduleCache
	dispatcher *Dispatcher
	logger     *zap.Logger
}

func NewRun(cfg *config.Config, cache *ScheduleCache, dispatcher *Dispatcher, logger *zap.Logger) *Run {
	return &Run{cfg: cfg, cache: cache, dispatcher: dispatcher, logger: logger}
}

// Execute runs the full pipeline for input and returns a RunResult. It never
// panics on bad input: validation failures come back as RunResult.Err with
// State left at Initialized.
func (r *Run) Execute(ctx context.Context, input RunInput) RunResult {
	result := RunResult{RunID: input.RunID, State: StateInitialized}

	if err := r.validate(input); err != nil {
		result.Err = apperrors.FromError(err)
		return result
	}
	if input.Mode == "" {
		input.Mode = SolverGraphOptimize
	}

	select {
	case <-ctx.Done():
		result.State = StateAborted
		result.Err = apperrors.Clone(apperrors.ErrCancelled, "run cancelled before graph build")
		return result
	default:
	}

	pMax := r.cfg.Scheduler.PMax
	if pMax <= 0 {
		pMax = PMax
	}
	weekCount := input.WeekCount
	if weekCount < 1 {
		weekCount = 1
	}

	calendar := NewCalendar(input.StartDate, pMax, input.Constraints.Blackouts)
	graph, err := BuildConflictGraph(input.Classes, pMax)
	if err != nil {
		result.Err = apperrors.FromError(err)
		return result
	}
	result.State = StateGraphBuilt

	colorer := NewColorer(graph, calendar, input.Constraints, pMax, weekCount, r.cfg.Scheduler.MaxWeeksLookahead, input.Classes)
	evaluator := NewEvaluator(r.cfg.Evaluator, r.cfg.Optimizer, pMax, weekCount, input.Classes)

	result.State = StateColoringSought
	fingerprint := graph.Fingerprint(input.Constraints)

	var coloring Coloring
	if cached, hit := r.cache.Get(ctx, fingerprint); hit {
		coloring = cached
		result.CacheHit = true
	} else {
		coloring, err = r.solve(ctx, input.Mode, graph, colorer)
		if err != nil {
			wrapped := apperrors.FromError(err)
			result.Err = wrapped
			if wrapped.Code == apperrors.ErrCancelled.Code {
				result.State = StateAborted
			} else {
				result.State = StateInfeasible
			}
			return result
		}
	}

	if len(coloring) != len(graph.Order()) {
		result.State = StateInfeasible
		result.Err = apperrors.Clone(apperrors.ErrInfeasible, "no feasible coloring covers every class")
		return result
	}
	result.State = StateFeasible

	if !result.CacheHit {
		r.cache.Put(ctx, fingerprint, coloring)
	}

	if input.Mode == SolverGraphOptimize && len(graph.Order()) > 0 {
		select {
		case <-ctx.Done():
			result.State = StateAborted
			result.Err = apperrors.Clone(apperrors.ErrCancelled, "run cancelled before optimization")
			return result
		default:
		}

		result.State = StateOptimizing
		optimizer := NewOptimizer(colorer, evaluator, r.cfg.Optimizer, pMax, input.Seed)
		optimized, metrics := optimizer.Run(ctx, coloring)
		coloring = optimized
		result.Optimization = &metrics
	}

	score := evaluator.Score(coloring)
	result.Quality = &score
	result.Coloring = coloring
	result.Schedule = buildScheduleEntries(coloring, input.Classes, calendar, weekCount)
	result.State = StateCompleted

	return result
}

// validate enforces the §6 input contract. An empty class list is valid —
// it produces an empty schedule (§8 scenario S2) — so it is not rejected
// here.
func (r *Run) validate(input RunInput) error {
	if input.StartDate.IsZero() {
		return newInvalidInput("startDate must be set")
	}
	if input.WeekCount < 1 {
		return newInvalidInput("weekCount must be >= 1")
	}
	if err := input.Constraints.Validate(); err != nil {
		return err
	}
	switch input.Mode {
	case SolverBacktracking, SolverGraph, SolverGraphOptimize, "":
	default:
		return newInvalidInput("unknown solverMode: " + string(input.Mode))
	}
	seen := make(map[string]struct{}, len(input.Classes))
	for _, c := range input.Classes {
		if c.ID == "" {
			return newInvalidInput("class id must not be empty")
		}
		if _, dup := seen[c.ID]; dup {
			return newInvalidInput("duplicate class id: " + c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

// solve dispatches to the solver named by mode, defaulting to
// graph+optimize (§9).
func (r *Run) solve(ctx context.Context, mode SolverMode, graph *ConflictGraph, colorer *Colorer) (Coloring, error) {
	if mode == "" {
		mode = SolverGraphOptimize
	}

	if mode == SolverBacktracking {
		bs := NewBacktrackingScheduler(colorer, r.cfg.Scheduler.MaxBacktracks)
		coloring, ok := bs.Solve()
		if !ok {
			if bs.BudgetExceeded() {
				return nil, newBudgetExceeded("backtracking budget exhausted before a feasible coloring was found")
			}
			return nil, newInfeasible("no feasible coloring exists for the given classes and constraints")
		}
		return coloring, nil
	}

	groups := r.dispatcher.Partition(graph)
	merged, err := r.dispatcher.Dispatch(ctx, groups, func(gctx context.Context, ids []string) (Coloring, error) {
		select {
		case <-gctx.Done():
			return nil, newCancelled("run cancelled during parallel coloring")
		default:
		}
		subset := filterClasses(colorer.classes, ids)
		subgraph, err := BuildConflictGraph(subset, colorer.pMax)
		if err != nil {
			return nil, err
		}
		subColorer := NewColorer(subgraph, colorer.calendar, colorer.constraints, colorer.pMax, colorer.weekCount, colorer.maxWeeksLookahead, subset)
		coloring, _, ok := subColorer.Color()
		if !ok {
			bs := NewBacktrackingScheduler(subColorer, r.cfg.Scheduler.MaxBacktracks)
			coloring, ok = bs.Solve()
			if !ok {
				return coloring, nil
			}
		}
		return coloring, nil
	})
	if err != nil {
		return nil, err
	}

	repaired := RepairGlobalConstraints(colorer, merged)
	if len(repaired) == len(graph.Order()) {
		return repaired, nil
	}

	// Parallel coloring left gaps the global repair could not close: fall
	// back to a single whole-graph backtracking pass before giving up.
	bs := NewBacktrackingScheduler(colorer, r.cfg.Scheduler.MaxBacktracks)
	coloring, ok := bs.Solve()
	if !ok {
		if bs.BudgetExceeded() {
			return nil, newBudgetExceeded("backtracking fallback exhausted after parallel coloring left gaps")
		}
		return nil, newInfeasible("backtracking fallback found no feasible coloring after parallel coloring left gaps")
	}
	return coloring, nil
}

func filterClasses(byID map[string]ClassItem, ids []string) []ClassItem {
	out := make([]ClassItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}

// buildScheduleEntries expands a Coloring into concrete (class, date,
// period) entries, one per class per active week.
func buildScheduleEntries(coloring Coloring, classes []ClassItem, calendar *Calendar, weekCount int) []ScheduleEntry {
	entries := make([]ScheduleEntry, 0, len(coloring))
	for _, class := range classes {
		slot, ok := coloring[class.ID]
		if !ok {
			continue
		}
		for week := 0; week < weekCount; week++ {
			if !class.activeInWeek(week) || !calendar.Usable(week, slot.Weekday) {
				continue
			}
			entries = append(entries, ScheduleEntry{
				ClassID:      class.ID,
				AssignedDate: calendar.DateFor(week, slot.Weekday),
				Period:       slot.Period,
			})
		}
	}
	return entries
}
