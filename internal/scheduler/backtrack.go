package scheduler

import "sort"

// BacktrackingScheduler wraps a Colorer with chronological backtracking
// (§4.4): classes are visited in a fixed order, sorted by descending
// |forbidden| and broken by ascending id, rather than DSATUR's dynamic
// saturation order. When a vertex has no legal slot, it undoes the most
// recent placement and retries it with a slot it has not yet tried, up to
// MaxBacktracks times before giving up.
type BacktrackingScheduler struct {
	colorer        *Colorer
	maxBacktracks  int
	budgetExceeded bool
}

func NewBacktrackingScheduler(colorer *Colorer, maxBacktracks int) *BacktrackingScheduler {
	if maxBacktracks <= 0 {
		maxBacktracks = 1000
	}
	return &BacktrackingScheduler{colorer: colorer, maxBacktracks: maxBacktracks}
}

// frame records one DFS decision point: the vertex placed at this depth, the
// slot it currently holds, and every slot already ruled out for it.
type frame struct {
	id     string
	slot   Slot
	banned map[Slot]struct{}
}

// Solve runs the bounded DFS and returns the resulting Coloring. ok is false
// when no complete, feasible Coloring was reached, either because the search
// space was exhausted (BudgetExceeded reports false, a true INFEASIBLE) or
// because the MaxBacktracks cap was hit first (BudgetExceeded reports true).
func (bs *BacktrackingScheduler) Solve() (Coloring, bool) {
	co := bs.colorer
	state := newColorState(co.constraints)
	order := backtrackOrder(co.graph)

	var stack []frame
	backtracks := 0
	next := 0

	for next < len(order) {
		id := order[next]
		f := frame{id: id, banned: make(map[Slot]struct{})}

		for {
			slot, found := bs.pickSlotExcluding(id, state, f.banned)
			if found {
				co.place(state, id, slot)
				f.slot = slot
				stack = append(stack, f)
				next++
				break
			}

			// No slot works for id at this depth: backtrack to the parent
			// frame, undo its placement, and forbid the slot that led here.
			if len(stack) == 0 {
				bs.budgetExceeded = false
				return state.coloring, false
			}
			backtracks++
			if backtracks > bs.maxBacktracks {
				bs.budgetExceeded = true
				return state.coloring, false
			}

			parent := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			co.unplace(state, parent.id)
			next--
			parent.banned[parent.slot] = struct{}{}

			id = parent.id
			f = parent
		}
	}

	return state.coloring, true
}

// BudgetExceeded reports whether the last Solve call gave up because
// MaxBacktracks was hit, as opposed to the search space being genuinely
// exhausted. Only meaningful after Solve returns ok=false.
func (bs *BacktrackingScheduler) BudgetExceeded() bool {
	return bs.budgetExceeded
}

// backtrackOrder sorts classes by descending |forbidden|, breaking ties by
// ascending id (§4.4), for the chronological DFS fallback.
func backtrackOrder(g *ConflictGraph) []string {
	order := append([]string(nil), g.order...)
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		fa, fb := len(g.forbidden[a]), len(g.forbidden[b])
		if fa != fb {
			return fa > fb
		}
		return a < b
	})
	return order
}

func (bs *BacktrackingScheduler) pickSlotExcluding(id string, state *colorState, banned map[Slot]struct{}) (Slot, bool) {
	co := bs.colorer
	avail := co.graph.Available(id)
	neighborColors := state.saturation[id]

	for _, slot := range Palette(co.pMax) {
		if _, ok := avail[slot]; !ok {
			continue
		}
		if _, bannedSlot := banned[slot]; bannedSlot {
			continue
		}
		if _, taken := neighborColors[slot]; taken {
			continue
		}
		if !state.tally.allows(slot) {
			continue
		}
		if co.blackedOutAnyWeek(id, slot) {
			continue
		}
		return slot, true
	}
	return Slot{}, false
}
