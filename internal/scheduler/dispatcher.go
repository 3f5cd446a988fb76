package scheduler

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/graph/topo"
)

// Dispatcher fans work out across connected components of the conflict
// graph (§4.8): components never share an edge, so coloring them
// independently cannot introduce an adjacency conflict, though it can still
// violate the global daily/weekly/consecutive tally — callers must run
// RepairGlobalConstraints over the merged result.
//
// Grounded on the teacher's pkg/jobs worker pool idiom (context-aware
// fan-out, zap logging), rewritten around golang.org/x/sync/errgroup because
// the merge here must be deterministic by worker index, not completion
// order, which a fire-and-forget retry queue cannot guarantee.
type Dispatcher struct {
	workers int
	logger  *zap.Logger
}

func NewDispatcher(workers int, logger *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{workers: workers, logger: logger}
}

// Partition groups a graph's vertices into its connected components via
// gonum's topo.ConnectedComponents, then chunks those components round-robin
// across the Dispatcher's worker count, preserving a deterministic order.
func (d *Dispatcher) Partition(graph *ConflictGraph) [][]string {
	components := topo.ConnectedComponents(graph.Underlying())

	groups := make([][]string, len(components))
	for i, comp := range components {
		ids := make([]string, 0, len(comp))
		for _, node := range comp {
			ids = append(ids, graph.classIDOf(node.ID()))
		}
		sort.Strings(ids)
		groups[i] = ids
	}
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i]) == 0 || len(groups[j]) == 0 {
			return len(groups[i]) > len(groups[j])
		}
		return groups[i][0] < groups[j][0]
	})

	chunks := make([][]string, d.workers)
	for i, group := range groups {
		w := i % d.workers
		chunks[w] = append(chunks[w], group...)
	}

	result := make([][]string, 0, d.workers)
	for _, c := range chunks {
		if len(c) > 0 {
			result = append(result, c)
		}
	}
	return result
}

// WorkerFunc colors the subset of classes named by ids.
type WorkerFunc func(ctx context.Context, ids []string) (Coloring, error)

// Dispatch runs worker over each group concurrently and merges results in
// group order (by worker index), never by completion order, so Dispatch is
// deterministic for a fixed Partition output.
func (d *Dispatcher) Dispatch(ctx context.Context, groups [][]string, worker WorkerFunc) (Coloring, error) {
	results := make([]Coloring, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	for i, group := range groups {
		i, group := i, group
		g.Go(func() error {
			coloring, err := worker(gctx, group)
			if err != nil {
				return err
			}
			results[i] = coloring
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(Coloring)
	for _, r := range results {
		for id, slot := range r {
			merged[id] = slot
		}
	}

	if d.logger != nil {
		d.logger.Debug("dispatcher_merge_complete", zap.Int("groups", len(groups)), zap.Int("classes", len(merged)))
	}

	return merged, nil
}

// RepairGlobalConstraints re-validates a dispatcher-merged Coloring against
// the full conflict graph and hard constraints, reassigning any vertex whose
// slot now violates a global tally bound that its own component could not
// see in isolation.
func RepairGlobalConstraints(colorer *Colorer, merged Coloring) Coloring {
	repaired := merged.Clone()
	order := colorer.graph.Order()

	tally := newDayTally(colorer.constraints)
	for _, id := range order {
		slot, ok := repaired[id]
		if !ok {
			continue
		}
		if tally.allows(slot) && colorer.SlotFeasible(repaired, id, slot) {
			tally.add(slot)
			continue
		}

		fixed := false
		for _, candidate := range Palette(colorer.pMax) {
			if !tally.allows(candidate) {
				continue
			}
			if !colorer.SlotFeasible(repaired, id, candidate) {
				continue
			}
			repaired[id] = candidate
			tally.add(candidate)
			fixed = true
			break
		}
		if !fixed {
			delete(repaired, id)
		}
	}

	return repaired
}
