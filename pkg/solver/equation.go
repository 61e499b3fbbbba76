package solver

// equation.go: backtracking search over per-button press counts for counter machines.
//
// Every counter cell c contributes one equation
//
//	Σ x_b (b affects c) = target_c - initial_c
//
// over non-negative press counts x_b. A button appears in the equation of every
// cell it touches but is counted once in the total Σ x_b, which couples the
// equations.
//
// Search state is a single index-addressable assignment with explicit undo:
//
//	value[b]   press count of button b, or -1 while unknown
//	fixed[c]   sum of the fixed press counts of c's contributors
//	unknown[c] number of c's contributors still unknown
//	total      sum of all fixed press counts
//
// Cells are visited one at a time in heuristic order. Within a cell the unknown
// contributors are assigned left to right: the last unknown contributor is
// forced to the remaining demand, the others branch over 0..slack. Fixing a
// button updates every cell it touches, so values pinned by one equation
// propagate into all later ones. A branch fails as soon as any touched cell
// overshoots its demand or has all contributors fixed without meeting it.

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// SolveCounters returns press counts satisfying every counter equation.
//
// Under PolicyMinimum the reported total is the minimum over all satisfying
// assignments; under PolicyFirstFeasible it is the first assignment found in
// heuristic order. Result.Presses[b] holds the count for button b; buttons that
// touch no cell are never pressed.
//
// When the context or node budget stops the search after an assignment was
// already found, the best assignment so far is returned together with the
// ErrBudgetExhausted error.
func (s *Solver) SolveCounters(ctx context.Context, m *Machine) (Result, error) {
	if m.Kind() != Counter {
		return Result{}, fmt.Errorf("%w: equation search needs counter cells, got %s", ErrWrongKind, m.Kind())
	}

	if s.diag != nil {
		start := time.Now()
		defer func() { s.diag.FinishSearch(Counter, time.Since(start)) }()
	}

	b := newBudget(ctx, s.config.MaxNodes)
	if err := b.check(); err != nil {
		return Result{}, err
	}

	e := newEquationSearch(s, m, b)
	if !e.consistent() {
		return Result{Feasible: false}, nil
	}

	e.cell(0)

	res := Result{Nodes: b.nodes}
	if e.found {
		res.Feasible = true
		res.Steps = e.bestTotal
		res.Presses = e.best
	}
	if e.err != nil {
		return res, e.err
	}
	return res, nil
}

type equationSearch struct {
	solver *Solver
	m      *Machine
	b      *budget
	config *SolverConfig

	// order lists the cells in processing order.
	order []int
	// members[c] lists c's contributing buttons in assignment order.
	members [][]int
	demand  []int

	value   []int
	fixed   []int
	unknown []int
	total   int
	depth   int

	found     bool
	best      []int
	bestTotal int

	stop bool
	err  error
}

func newEquationSearch(s *Solver, m *Machine, b *budget) *equationSearch {
	cells := m.CellCount()
	e := &equationSearch{
		solver:  s,
		m:       m,
		b:       b,
		config:  s.config,
		order:   make([]int, cells),
		members: make([][]int, cells),
		demand:  make([]int, cells),
		value:   make([]int, m.ButtonCount()),
		fixed:   make([]int, cells),
		unknown: make([]int, cells),
	}

	for i := range e.value {
		e.value[i] = -1
	}

	for c := 0; c < cells; c++ {
		e.order[c] = c
		e.demand[c] = m.Demand(c)
		e.unknown[c] = len(m.ButtonsAffecting(c))
		e.members[c] = e.orderButtons(m.ButtonsAffecting(c))
	}

	if e.config.CellOrder == CellOrderFewestButtons {
		sort.SliceStable(e.order, func(i, j int) bool {
			return len(m.ButtonsAffecting(e.order[i])) < len(m.ButtonsAffecting(e.order[j]))
		})
	}

	return e
}

// orderButtons returns a copy of a cell's contributors in assignment order.
func (e *equationSearch) orderButtons(buttons []int) []int {
	out := append([]int(nil), buttons...)
	if e.config.ButtonOrder == ButtonOrderFanOut {
		sort.SliceStable(out, func(i, j int) bool {
			return e.m.FanOut(out[i]) < e.m.FanOut(out[j])
		})
	}
	return out
}

// consistent rejects machines that no assignment can satisfy: a counter above
// its target, or a counter that must move but no button touches.
func (e *equationSearch) consistent() bool {
	for c, d := range e.demand {
		if d < 0 {
			return false
		}
		if d > 0 && e.unknown[c] == 0 {
			return false
		}
	}
	return true
}

// cell solves the equation of e.order[ci] and, on success, everything after it.
func (e *equationSearch) cell(ci int) {
	if e.stop {
		return
	}
	if ci == len(e.order) {
		e.complete()
		return
	}

	c := e.order[ci]
	if e.solver.diag != nil {
		start := time.Now()
		defer func() { e.solver.diag.RecordCellTime(c, time.Since(start)) }()
	}
	e.position(ci, c, 0)
}

// position assigns the first unknown contributor of cell c at or after pos.
func (e *equationSearch) position(ci, c, pos int) {
	members := e.members[c]
	for pos < len(members) && e.value[members[pos]] >= 0 {
		pos++
	}

	if pos == len(members) {
		if e.fixed[c] != e.demand[c] {
			e.backtrack()
			return
		}
		e.cell(ci + 1)
		return
	}

	button := members[pos]
	remaining := e.demand[c] - e.fixed[c]

	if e.unknown[c] == 1 {
		e.try(ci, c, pos, button, remaining)
		return
	}

	hi := e.slack(button)
	if e.config.ValueOrder == ValueOrderDesc {
		for v := hi; v >= 0 && !e.stop; v-- {
			e.try(ci, c, pos, button, v)
		}
		return
	}
	for v := 0; v <= hi && !e.stop; v++ {
		e.try(ci, c, pos, button, v)
	}
}

// try fixes button to v, continues with the rest of cell c, then undoes the fix.
func (e *equationSearch) try(ci, c, pos, button, v int) {
	if err := e.b.spend(); err != nil {
		e.err = err
		e.stop = true
		return
	}
	if e.solver.diag != nil {
		e.solver.diag.RecordNode()
		e.solver.diag.RecordDepth(e.depth + 1)
	}

	ok := e.assign(button, v)
	if ok && e.config.Policy == PolicyMinimum && e.found && e.lowerBound() >= e.bestTotal {
		ok = false
	}

	if ok {
		e.depth++
		e.position(ci, c, pos+1)
		e.depth--
	} else {
		e.backtrack()
	}

	e.unassign(button, v)
}

// assign applies value v to button and reports whether every touched cell is
// still satisfiable. The change is applied even when it is not, so that
// unassign can always undo it.
func (e *equationSearch) assign(button, v int) bool {
	e.value[button] = v
	e.total += v

	ok := true
	for _, c := range e.m.Button(button).Cells {
		e.fixed[c] += v
		e.unknown[c]--
		if e.fixed[c] > e.demand[c] {
			ok = false
		} else if e.unknown[c] == 0 && e.fixed[c] != e.demand[c] {
			ok = false
		}
	}
	return ok
}

func (e *equationSearch) unassign(button, v int) {
	for _, c := range e.m.Button(button).Cells {
		e.fixed[c] -= v
		e.unknown[c]++
	}
	e.total -= v
	e.value[button] = -1
}

// slack is the largest count button can take without overshooting any cell it touches.
func (e *equationSearch) slack(button int) int {
	hi := -1
	for _, c := range e.m.Button(button).Cells {
		r := e.demand[c] - e.fixed[c]
		if hi < 0 || r < hi {
			hi = r
		}
	}
	if hi < 0 {
		return 0
	}
	return hi
}

// lowerBound is a bound on the total of any completion of the current
// assignment: each press raises a given cell by at most one, so the cell with
// the largest remaining demand needs at least that many more presses.
func (e *equationSearch) lowerBound() int {
	most := 0
	for c, d := range e.demand {
		if r := d - e.fixed[c]; r > most {
			most = r
		}
	}
	return e.total + most
}

func (e *equationSearch) complete() {
	if e.solver.diag != nil {
		e.solver.diag.RecordSolution(e.total)
	}

	if !e.found || e.total < e.bestTotal {
		if e.best == nil {
			e.best = make([]int, len(e.value))
		}
		for b, v := range e.value {
			if v < 0 {
				v = 0
			}
			e.best[b] = v
		}
		e.bestTotal = e.total
		e.found = true
	}

	if e.config.Policy == PolicyFirstFeasible {
		e.stop = true
	}
}

func (e *equationSearch) backtrack() {
	if e.solver.diag != nil {
		e.solver.diag.RecordBacktrack()
	}
}
