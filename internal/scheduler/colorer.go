package scheduler

import (
	"sort"

	"golang.org/x/exp/rand"
)

// dayTally tracks the running per-weekday hard-constraint state while the
// Colorer and Backtracking Scheduler build a Coloring (§4.3, §4.4).
type dayTally struct {
	maxPerDay, maxPerWeek, maxConsecutive int
	avoidConsecutive                      bool

	periodsUsed [6]map[int]int // index 1..5; period -> classes holding it
	dayCount    [6]int         // classes placed per weekday
	weeklyCount int
}

func newDayTally(c ScheduleConstraints) *dayTally {
	t := &dayTally{
		maxPerDay:        c.MaxPeriodsPerDay,
		maxPerWeek:       c.MaxPeriodsPerWeek,
		maxConsecutive:   c.MaxConsecutivePeriods,
		avoidConsecutive: c.AvoidConsecutive,
	}
	for i := range t.periodsUsed {
		t.periodsUsed[i] = make(map[int]int)
	}
	return t
}

// allows reports whether adding slot s would keep every hard constraint
// satisfied, without mutating state.
func (t *dayTally) allows(s Slot) bool {
	used := t.periodsUsed[s.Weekday]
	if t.dayCount[s.Weekday] >= t.maxPerDay {
		return false
	}
	if t.weeklyCount >= t.maxPerWeek {
		return false
	}
	if t.avoidConsecutive {
		if _, ok := used[s.Period-1]; ok {
			return false
		}
		if _, ok := used[s.Period+1]; ok {
			return false
		}
	}
	candidate := make(map[int]struct{}, len(used)+1)
	for p := range used {
		candidate[p] = struct{}{}
	}
	candidate[s.Period] = struct{}{}
	if longestRun(candidate) > t.maxConsecutive {
		return false
	}
	return true
}

func (t *dayTally) add(s Slot) {
	t.periodsUsed[s.Weekday][s.Period]++
	t.dayCount[s.Weekday]++
	t.weeklyCount++
}

func (t *dayTally) remove(s Slot) {
	used := t.periodsUsed[s.Weekday]
	used[s.Period]--
	if used[s.Period] <= 0 {
		delete(used, s.Period)
	}
	t.dayCount[s.Weekday]--
	t.weeklyCount--
}

func longestRun(periods map[int]struct{}) int {
	if len(periods) == 0 {
		return 0
	}
	sorted := make([]int, 0, len(periods))
	for p := range periods {
		sorted = append(sorted, p)
	}
	sort.Ints(sorted)

	best, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1]+1 {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}

// Colorer runs DSATUR saturation-degree-ordered slot assignment over a
// ConflictGraph (§4.3). One Colorer is constructed per Run (§9 Open
// Question, resolved) so its calendar and class state never leak between
// runs.
type Colorer struct {
	graph             *ConflictGraph
	calendar          *Calendar
	constraints       ScheduleConstraints
	pMax              int
	weekCount         int
	maxWeeksLookahead int
	classes           map[string]ClassItem
}

// NewColorer builds a Colorer bound to one graph, calendar and constraint
// set. classes supplies each class's active-weeks rotation for multi-week
// blackout checks. maxWeeksLookahead bounds how many of weekCount's weeks
// are actually checked for blackouts, per §4.4's budget.
func NewColorer(graph *ConflictGraph, calendar *Calendar, constraints ScheduleConstraints, pMax, weekCount, maxWeeksLookahead int, classes []ClassItem) *Colorer {
	byID := make(map[string]ClassItem, len(classes))
	for _, c := range classes {
		byID[c.ID] = c
	}
	if maxWeeksLookahead <= 0 {
		maxWeeksLookahead = weekCount
	}
	return &Colorer{
		graph:             graph,
		calendar:          calendar,
		constraints:       constraints,
		pMax:              pMax,
		weekCount:         weekCount,
		maxWeeksLookahead: maxWeeksLookahead,
		classes:           byID,
	}
}

// colorState is the mutable working state of a single Color() attempt,
// reused by the Backtracking Scheduler for snapshot/rollback.
type colorState struct {
	coloring Coloring
	tally    *dayTally
	saturation map[string]map[Slot]int // colors seen among colored neighbors -> neighbors holding each
}

func newColorState(constraints ScheduleConstraints) *colorState {
	return &colorState{
		coloring:   make(Coloring),
		tally:      newDayTally(constraints),
		saturation: make(map[string]map[Slot]int),
	}
}

// Color runs the full DSATUR pass and returns a complete Coloring, or
// reports the first vertex it could not extend.
func (co *Colorer) Color() (Coloring, string, bool) {
	state := newColorState(co.constraints)
	uncolored := make(map[string]struct{}, len(co.graph.order))
	for _, id := range co.graph.order {
		uncolored[id] = struct{}{}
	}

	for len(uncolored) > 0 {
		next := co.pickNext(uncolored, state)
		slot, ok := co.pickSlot(next, state)
		if !ok {
			return state.coloring, next, false
		}
		co.place(state, next, slot)
		delete(uncolored, next)
	}

	return state.coloring, "", true
}

// ColorShuffled runs the Randomized DSATUR variant (§4.3): identical slot
// assignment rules to Color, but vertices are visited in an order shuffled
// by rng rather than by saturation degree. Used to seed a diverse initial
// population for the Genetic Optimizer (§4.7).
func (co *Colorer) ColorShuffled(rng *rand.Rand) (Coloring, bool) {
	state := newColorState(co.constraints)
	order := append([]string(nil), co.graph.order...)
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	for _, id := range order {
		slot, ok := co.pickSlot(id, state)
		if !ok {
			return state.coloring, false
		}
		co.place(state, id, slot)
	}
	return state.coloring, true
}

// pickNext selects the uncolored vertex with highest saturation degree,
// breaking ties by graph degree then lexicographic id (§4.3).
func (co *Colorer) pickNext(uncolored map[string]struct{}, state *colorState) string {
	var best string
	bestSat, bestDeg := -1, -1
	for id := range uncolored {
		sat := len(state.saturation[id])
		deg := co.graph.Degree(id)
		if sat > bestSat ||
			(sat == bestSat && deg > bestDeg) ||
			(sat == bestSat && deg == bestDeg && (best == "" || id < best)) {
			best, bestSat, bestDeg = id, sat, deg
		}
	}
	return best
}

// pickSlot finds the first palette slot (weekday asc, period asc) that is
// available to id, differs from every colored neighbor's slot, respects the
// running hard-constraint tally, and is not blacked out on any of id's
// active weeks.
func (co *Colorer) pickSlot(id string, state *colorState) (Slot, bool) {
	avail := co.graph.Available(id)
	neighborColors := state.saturation[id]

	for _, slot := range Palette(co.pMax) {
		if _, ok := avail[slot]; !ok {
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

func (co *Colorer) blackedOutAnyWeek(id string, slot Slot) bool {
	class := co.classes[id]
	limit := co.weekCount
	if co.maxWeeksLookahead < limit {
		limit = co.maxWeeksLookahead
	}
	for week := 0; week < limit; week++ {
		if !class.activeInWeek(week) {
			continue
		}
		if !co.calendar.Usable(week, slot.Weekday) {
			return true
		}
		date := co.calendar.DateFor(week, slot.Weekday)
		if co.calendar.IsBlackout(date, slot.Period) {
			return true
		}
	}
	return false
}

func (co *Colorer) place(state *colorState, id string, slot Slot) {
	state.coloring[id] = slot
	state.tally.add(slot)
	for _, n := range co.graph.Neighbors(id) {
		if _, colored := state.coloring[n]; colored {
			continue
		}
		if state.saturation[n] == nil {
			state.saturation[n] = make(map[Slot]int)
		}
		state.saturation[n][slot]++
	}
}

// SlotFeasible reports whether id could legally hold slot within the given
// complete coloring (id's own current entry is ignored). The Genetic
// Optimizer's repair routine (§4.3, §4.4) uses this to validate
// crossover/mutation offspring against the same rules the Colorer enforces.
func (co *Colorer) SlotFeasible(coloring Coloring, id string, slot Slot) bool {
	if _, ok := co.graph.Available(id)[slot]; !ok {
		return false
	}
	for _, n := range co.graph.Neighbors(id) {
		if n == id {
			continue
		}
		if s, ok := coloring[n]; ok && s == slot {
			return false
		}
	}
	if co.blackedOutAnyWeek(id, slot) {
		return false
	}

	tally := newDayTally(co.constraints)
	for otherID, s := range coloring {
		if otherID == id {
			continue
		}
		tally.add(s)
	}
	return tally.allows(slot)
}

func (co *Colorer) unplace(state *colorState, id string) {
	slot := state.coloring[id]
	delete(state.coloring, id)
	state.tally.remove(slot)
	for _, n := range co.graph.Neighbors(id) {
		if _, colored := state.coloring[n]; colored {
			continue
		}
		if sat, ok := state.saturation[n]; ok {
			sat[slot]--
			if sat[slot] <= 0 {
				delete(sat, slot)
			}
		}
	}
}
