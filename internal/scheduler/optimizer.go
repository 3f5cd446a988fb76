package scheduler

import (
	"context"
	"sort"
	"time"

	"golang.org/x/exp/rand"

	"github.com/noah-isme/classsched/pkg/config"
)

// Optimizer is a genetic meta-heuristic that refines a feasible Coloring
// towards higher QualityScore (§4.7): tournament selection, single-point
// crossover with conflict repair, bounded mutation, elitism, and early
// stopping on a fitness plateau.
type Optimizer struct {
	colorer   *Colorer
	evaluator *Evaluator
	cfg       config.OptimizerDefaults
	pMax      int
	rng       *rand.Rand
}

// NewOptimizer builds an Optimizer. seed makes runs reproducible in tests;
// production callers should derive it from crypto/rand or a run id.
func NewOptimizer(colorer *Colorer, evaluator *Evaluator, cfg config.OptimizerDefaults, pMax int, seed uint64) *Optimizer {
	return &Optimizer{
		colorer:   colorer,
		evaluator: evaluator,
		cfg:       cfg,
		pMax:      pMax,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

type individual struct {
	coloring Coloring
	fitness  float64
}

// Run evolves a population seeded from initial and returns the best Coloring
// found along with metrics describing the search.
func (o *Optimizer) Run(ctx context.Context, initial Coloring) (Coloring, OptimizationMetrics) {
	start := time.Now()
	deadline := start.Add(time.Duration(o.cfg.MaxSeconds) * time.Second)

	population := o.seedPopulation(initial)
	o.rank(population)

	best := population[0]
	metrics := OptimizationMetrics{FinalAvgFitness: averageFitness(population)}

	plateauWindow := o.cfg.PlateauWindow
	if plateauWindow <= 0 {
		plateauWindow = 10
	}
	plateauCount := 0

	for gen := 0; gen < o.cfg.GenerationLimit; gen++ {
		select {
		case <-ctx.Done():
			metrics.Generations = gen
			metrics.ElapsedMillis = time.Since(start).Milliseconds()
			return best.coloring, metrics
		default:
		}
		if time.Now().After(deadline) {
			metrics.Generations = gen
			break
		}

		next := o.nextGeneration(population)
		o.rank(next)
		population = next

		if population[0].fitness > best.fitness {
			best = population[0]
			metrics.Improvements++
			plateauCount = 0
		} else if best.fitness > 0 && (best.fitness-population[0].fitness)/best.fitness < o.cfg.PlateauPct {
			plateauCount++
		}

		metrics.Generations = gen + 1
		metrics.FinalAvgFitness = averageFitness(population)

		if plateauCount >= plateauWindow {
			break
		}
	}

	metrics.ElapsedMillis = time.Since(start).Milliseconds()
	return best.coloring, metrics
}

// seedPopulation builds an initial population from one deterministic result
// (initial, the caller's DSATUR coloring) and PopulationSize-1 Randomized
// DSATUR results (§4.7). A randomized pass that fails to cover every vertex
// falls back to mutating a clone of initial instead.
func (o *Optimizer) seedPopulation(initial Coloring) []individual {
	size := o.cfg.PopulationSize
	if size <= 0 {
		size = 1
	}
	population := make([]individual, size)
	population[0] = individual{coloring: initial.Clone(), fitness: o.evaluator.Score(initial).Total}
	for i := 1; i < size; i++ {
		seeded, ok := o.colorer.ColorShuffled(o.rng)
		if !ok {
			seeded = o.mutate(initial.Clone())
		}
		population[i] = individual{coloring: seeded, fitness: o.evaluator.Score(seeded).Total}
	}
	return population
}

func (o *Optimizer) rank(population []individual) {
	sort.Slice(population, func(i, j int) bool { return population[i].fitness > population[j].fitness })
}

func (o *Optimizer) nextGeneration(population []individual) []individual {
	next := make([]individual, 0, len(population))

	elitism := o.cfg.ElitismCount
	if elitism > len(population) {
		elitism = len(population)
	}
	for i := 0; i < elitism; i++ {
		next = append(next, population[i])
	}

	for len(next) < len(population) {
		parentA := o.tournamentSelect(population)
		parentB := o.tournamentSelect(population)

		var child Coloring
		if o.rng.Float64() < o.cfg.CrossoverRate {
			child = o.crossover(parentA.coloring, parentB.coloring)
		} else {
			child = parentA.coloring.Clone()
		}
		child = o.mutate(child)

		next = append(next, individual{coloring: child, fitness: o.evaluator.Score(child).Total})
	}

	return next
}

func (o *Optimizer) tournamentSelect(population []individual) individual {
	size := o.cfg.TournamentSize
	if size <= 0 || size > len(population) {
		size = len(population)
	}
	best := population[o.rng.Intn(len(population))]
	for i := 1; i < size; i++ {
		candidate := population[o.rng.Intn(len(population))]
		if candidate.fitness > best.fitness {
			best = candidate
		}
	}
	return best
}

// crossover performs single-point crossover over the conflict graph's fixed
// vertex order and repairs any gene that violates feasibility in its new
// context (§4.7).
func (o *Optimizer) crossover(a, b Coloring) Coloring {
	order := o.colorer.graph.Order()
	if len(order) == 0 {
		return a.Clone()
	}
	point := 1
	if len(order) > 1 {
		point = 1 + o.rng.Intn(len(order)-1)
	}

	child := make(Coloring, len(order))
	for i, id := range order {
		if i < point {
			child[id] = a[id]
		} else {
			child[id] = b[id]
		}
	}

	for _, id := range order {
		if !o.colorer.SlotFeasible(child, id, child[id]) {
			o.repair(child, id, a[id])
		}
	}
	return child
}

// repair finds the nearest feasible replacement slot (by Manhattan distance
// from fallback, the parent's original slot) for id within child, falling
// back to any feasible slot and finally to fallback itself when none exists
// (§4.3's repair routine, reused for genetic offspring).
func (o *Optimizer) repair(child Coloring, id string, fallback Slot) {
	candidates := Palette(o.pMax)
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].manhattan(fallback) < candidates[j].manhattan(fallback)
	})

	for _, slot := range candidates {
		if o.colorer.SlotFeasible(child, id, slot) {
			child[id] = slot
			return
		}
	}

	child[id] = fallback
}

// mutate perturbs each gene's period by at most one step with probability
// MutationRate, clamped to the palette and reverted if infeasible (§4.7).
// Genes are visited in the conflict graph's vertex order so a fixed seed
// reproduces the same mutations.
func (o *Optimizer) mutate(coloring Coloring) Coloring {
	for _, id := range o.colorer.graph.Order() {
		slot, ok := coloring[id]
		if !ok {
			continue
		}
		if o.rng.Float64() >= o.cfg.MutationRate {
			continue
		}
		delta := o.rng.Intn(3) - 1 // -1, 0, 1
		if delta == 0 {
			continue
		}
		candidate := Slot{Weekday: slot.Weekday, Period: clampPeriod(slot.Period+delta, o.pMax)}
		if o.colorer.SlotFeasible(coloring, id, candidate) {
			coloring[id] = candidate
		}
	}
	return coloring
}

func clampPeriod(p, pMax int) int {
	if p < 1 {
		return 1
	}
	if p > pMax {
		return pMax
	}
	return p
}

func averageFitness(population []individual) float64 {
	if len(population) == 0 {
		return 0
	}
	var sum float64
	for _, ind := range population {
		sum += ind.fitness
	}
	return sum / float64(len(population))
}
