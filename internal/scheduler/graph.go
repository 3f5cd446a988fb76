package scheduler

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
)

// ConflictGraph is the output of the Conflict Graph Builder (§4.2): vertices
// are class ids, and an edge connects any two classes whose forbidden sets
// share at least one Slot. It wraps a gonum simple.UndirectedGraph so the
// Parallel Dispatcher can reuse gonum's connected-components partitioning.
type ConflictGraph struct {
	order     []string
	adjacency map[string]map[string]struct{}
	available map[string]map[Slot]struct{}
	forbidden map[string]map[Slot]struct{}

	g       *simple.UndirectedGraph
	idOf    map[string]int64
	classOf map[int64]string
}

// BuildConflictGraph constructs the graph from the active classes in order.
// It returns INVALID_INPUT if two active classes share an id. A class whose
// available-slot set is empty is kept, with that empty set.
func BuildConflictGraph(classes []ClassItem, pMax int) (*ConflictGraph, error) {
	cg := &ConflictGraph{
		adjacency: make(map[string]map[string]struct{}),
		available: make(map[string]map[Slot]struct{}),
		forbidden: make(map[string]map[Slot]struct{}),
		g:         simple.NewUndirectedGraph(),
		idOf:      make(map[string]int64),
		classOf:   make(map[int64]string),
	}

	palette := Palette(pMax)

	var nextID int64
	for _, class := range classes {
		if !class.Active {
			continue
		}
		if _, dup := cg.adjacency[class.ID]; dup {
			return nil, newInvalidInput(fmt.Sprintf("duplicate class id %q", class.ID))
		}

		fset := class.forbiddenSet()
		cg.forbidden[class.ID] = fset
		cg.order = append(cg.order, class.ID)
		cg.adjacency[class.ID] = make(map[string]struct{})

		avail := make(map[Slot]struct{})
		for _, s := range palette {
			if _, blocked := fset[s]; !blocked {
				avail[s] = struct{}{}
			}
		}
		// A class whose forbidden set covers the whole palette is left with
		// an empty available set here rather than rejected: §8 scenario S3
		// expects this to surface as Infeasible once the Colorer cannot
		// place it, not as InvalidInput.
		cg.available[class.ID] = avail

		id := nextID
		nextID++
		cg.idOf[class.ID] = id
		cg.classOf[id] = class.ID
		cg.g.AddNode(simple.Node(id))
	}

	for i := 0; i < len(cg.order); i++ {
		for j := i + 1; j < len(cg.order); j++ {
			a, b := cg.order[i], cg.order[j]
			if sharesSlot(cg.forbidden[a], cg.forbidden[b]) {
				cg.adjacency[a][b] = struct{}{}
				cg.adjacency[b][a] = struct{}{}
				cg.g.SetEdge(cg.g.NewEdge(simple.Node(cg.idOf[a]), simple.Node(cg.idOf[b])))
			}
		}
	}

	return cg, nil
}

func sharesSlot(a, b map[Slot]struct{}) bool {
	small, big := a, b
	if len(big) < len(small) {
		small, big = big, small
	}
	for s := range small {
		if _, ok := big[s]; ok {
			return true
		}
	}
	return false
}

// Order returns class ids in insertion order.
func (cg *ConflictGraph) Order() []string {
	return append([]string(nil), cg.order...)
}

// Neighbors returns the class ids adjacent to id.
func (cg *ConflictGraph) Neighbors(id string) []string {
	neighbors := make([]string, 0, len(cg.adjacency[id]))
	for n := range cg.adjacency[id] {
		neighbors = append(neighbors, n)
	}
	sort.Strings(neighbors)
	return neighbors
}

// Degree returns the number of neighbors of id.
func (cg *ConflictGraph) Degree(id string) int {
	return len(cg.adjacency[id])
}

// Available returns the set of slots not excluded by id's forbidden set.
func (cg *ConflictGraph) Available(id string) map[Slot]struct{} {
	return cg.available[id]
}

// Underlying exposes the gonum graph representation, used by the Parallel
// Dispatcher for connected-component partitioning.
func (cg *ConflictGraph) Underlying() *simple.UndirectedGraph {
	return cg.g
}

func (cg *ConflictGraph) classIDOf(nodeID int64) string {
	return cg.classOf[nodeID]
}

// Fingerprint returns a deterministic identity of the graph's structure and
// constraints, used as the Schedule Cache key (§4.6).
func (cg *ConflictGraph) Fingerprint(constraints ScheduleConstraints) string {
	ids := append([]string(nil), cg.order...)
	sort.Strings(ids)

	h := newFNV()
	for _, id := range ids {
		h.writeString(id)
		h.writeByte('|')
		neighbors := cg.Neighbors(id)
		for _, n := range neighbors {
			h.writeString(n)
			h.writeByte(',')
		}
		h.writeByte(';')
	}
	h.writeInt(constraints.MaxPeriodsPerDay)
	h.writeInt(constraints.MaxPeriodsPerWeek)
	h.writeInt(constraints.MaxConsecutivePeriods)
	if constraints.AvoidConsecutive {
		h.writeByte('1')
	} else {
		h.writeByte('0')
	}
	blackouts := append([]BlackoutEntry(nil), constraints.Blackouts...)
	sort.Slice(blackouts, func(i, j int) bool { return blackouts[i].Date.Before(blackouts[j].Date) })
	for _, b := range blackouts {
		h.writeString(b.Date.Format("2006-01-02"))
		if b.AllDay {
			h.writeByte('A')
		} else {
			h.writeByte('P')
		}
		periods := append([]int(nil), b.Periods...)
		sort.Ints(periods)
		h.writeInt(len(periods))
		for _, p := range periods {
			h.writeInt(p)
		}
	}

	return h.sum()
}
