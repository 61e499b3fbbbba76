package solver

import (
	"context"
	"errors"
	"math/rand"
	"testing"
)

func mustCounters(t testing.TB, target []int, buttons ...[]int) *Machine {
	t.Helper()
	bs := make([]Button, len(buttons))
	for i, cells := range buttons {
		bs[i] = Button{Cells: cells}
	}
	m, err := NewCounterMachine(make([]int, len(target)), target, bs)
	if err != nil {
		t.Fatalf("NewCounterMachine() error = %v", err)
	}
	return m
}

func TestSolver_SolveCounters(t *testing.T) {
	tests := []struct {
		name     string
		machine  func(t *testing.T) *Machine
		want     int
		feasible bool
	}{
		{
			name: "shared button counted once",
			machine: func(t *testing.T) *Machine {
				// a={0}, b={0,1}, c={1}: a+b=3, b+c=5
				return mustCounters(t, []int{3, 5}, []int{0}, []int{0, 1}, []int{1})
			},
			want:     5,
			feasible: true,
		},
		{
			name: "forced by single contributor",
			machine: func(t *testing.T) *Machine {
				// b is the only contributor to cell 0, so b=3 and a=2
				return mustCounters(t, []int{3, 5}, []int{1}, []int{0, 1})
			},
			want:     5,
			feasible: true,
		},
		{
			name: "sample machine one",
			machine: func(t *testing.T) *Machine {
				return mustCounters(t, []int{3, 5, 4, 7},
					[]int{3}, []int{1, 3}, []int{2}, []int{2, 3}, []int{0, 2}, []int{0, 1})
			},
			want:     10,
			feasible: true,
		},
		{
			name: "sample machine two",
			machine: func(t *testing.T) *Machine {
				return mustCounters(t, []int{7, 5, 12, 7, 2},
					[]int{0, 2, 3, 4}, []int{2, 3}, []int{0, 4}, []int{0, 1, 2}, []int{1, 2, 3, 4})
			},
			want:     12,
			feasible: true,
		},
		{
			name: "sample machine three",
			machine: func(t *testing.T) *Machine {
				return mustCounters(t, []int{10, 11, 11, 5, 10, 5},
					[]int{0, 1, 2, 3, 4}, []int{0, 3, 4}, []int{0, 1, 2, 4, 5}, []int{1, 2})
			},
			want:     11,
			feasible: true,
		},
		{
			name: "all zero target",
			machine: func(t *testing.T) *Machine {
				return mustCounters(t, []int{0, 0, 0}, []int{0, 1}, []int{2})
			},
			want:     0,
			feasible: true,
		},
		{
			name: "button affecting nothing",
			machine: func(t *testing.T) *Machine {
				return mustCounters(t, []int{2}, []int{}, []int{0}, []int{})
			},
			want:     2,
			feasible: true,
		},
		{
			name: "forced value would be negative",
			machine: func(t *testing.T) *Machine {
				// cell 1 forces b=5 which overshoots cell 0
				return mustCounters(t, []int{3, 5}, []int{0, 1})
			},
			feasible: false,
		},
		{
			name: "conflicting equations",
			machine: func(t *testing.T) *Machine {
				// a+b=1, a+b=2
				return mustCounters(t, []int{1, 2}, []int{0, 1}, []int{0, 1})
			},
			feasible: false,
		},
		{
			name: "untouched counter with demand",
			machine: func(t *testing.T) *Machine {
				return mustCounters(t, []int{1, 1}, []int{0})
			},
			feasible: false,
		},
		{
			name: "parity conflict",
			machine: func(t *testing.T) *Machine {
				// a+b=1, b+c=1, a+c=1 has no integer solution
				return mustCounters(t, []int{1, 1, 1}, []int{0, 1}, []int{1, 2}, []int{0, 2})
			},
			feasible: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.machine(t)
			res, err := NewSolver().SolveCounters(context.Background(), m)
			if err != nil {
				t.Fatalf("SolveCounters() error = %v", err)
			}
			if res.Feasible != tt.feasible {
				t.Fatalf("SolveCounters().Feasible = %v, want %v", res.Feasible, tt.feasible)
			}
			if !tt.feasible {
				return
			}
			if res.Steps != tt.want {
				t.Errorf("SolveCounters().Steps = %d, want %d", res.Steps, tt.want)
			}
			assertSatisfies(t, m, res)
		})
	}
}

func TestSolver_SolveCounters_EmptyButtonNeverPressed(t *testing.T) {
	m := mustCounters(t, []int{4, 1}, []int{}, []int{0}, []int{0, 1})
	res, err := NewSolver().SolveCounters(context.Background(), m)
	if err != nil {
		t.Fatalf("SolveCounters() error = %v", err)
	}
	if res.Presses[0] != 0 {
		t.Errorf("Presses[0] = %d, want 0 for a button affecting no cell", res.Presses[0])
	}
	if res.Steps != 4 {
		t.Errorf("Steps = %d, want 4", res.Steps)
	}
}

func TestSolver_SolveCounters_InitialCounters(t *testing.T) {
	m, err := NewCounterMachine([]int{2, 1}, []int{5, 1}, []Button{{Cells: []int{0}}, {Cells: []int{0, 1}}})
	if err != nil {
		t.Fatalf("NewCounterMachine() error = %v", err)
	}
	res, err := NewSolver().SolveCounters(context.Background(), m)
	if err != nil {
		t.Fatalf("SolveCounters() error = %v", err)
	}
	if !res.Feasible || res.Steps != 3 {
		t.Fatalf("SolveCounters() = %v, want 3", res)
	}
	assertSatisfies(t, m, res)

	above, err := NewCounterMachine([]int{4}, []int{3}, []Button{{Cells: []int{0}}})
	if err != nil {
		t.Fatalf("NewCounterMachine() error = %v", err)
	}
	res, err = NewSolver().SolveCounters(context.Background(), above)
	if err != nil {
		t.Fatalf("SolveCounters() error = %v", err)
	}
	if res.Feasible {
		t.Errorf("counter above its target should be infeasible, got %v", res)
	}
}

// a={0,1}, b={0}, c={1} with targets 3, 3. The minimum presses a three times;
// assigning the high fan-out button first in index order and taking 0 for it
// leads to b=3, c=3 instead.
func TestSolver_SolveCounters_Policies(t *testing.T) {
	machine := func(t *testing.T) *Machine {
		return mustCounters(t, []int{3, 3}, []int{0, 1}, []int{0}, []int{1})
	}

	tests := []struct {
		name   string
		policy Policy
		order  ButtonOrder
		values ValueOrder
		want   int
	}{
		{"minimum, index order", PolicyMinimum, ButtonOrderIndex, ValueOrderAsc, 3},
		{"minimum, descending values", PolicyMinimum, ButtonOrderFanOut, ValueOrderDesc, 3},
		{"first feasible, index order", PolicyFirstFeasible, ButtonOrderIndex, ValueOrderAsc, 6},
		{"first feasible, fan-out order", PolicyFirstFeasible, ButtonOrderFanOut, ValueOrderAsc, 3},
		{"first feasible, descending values", PolicyFirstFeasible, ButtonOrderFanOut, ValueOrderDesc, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultSolverConfig()
			config.Policy = tt.policy
			config.ButtonOrder = tt.order
			config.ValueOrder = tt.values

			m := machine(t)
			res, err := NewSolverWithConfig(config).SolveCounters(context.Background(), m)
			if err != nil {
				t.Fatalf("SolveCounters() error = %v", err)
			}
			if !res.Feasible || res.Steps != tt.want {
				t.Errorf("SolveCounters() = %v, want %d", res, tt.want)
			}
			assertSatisfies(t, m, res)
		})
	}
}

// Every returned assignment must rebuild the target, and the minimum policy
// must agree with exhaustive enumeration.
func TestSolver_SolveCounters_Soundness(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	first := DefaultSolverConfig()
	first.Policy = PolicyFirstFeasible
	indexed := DefaultSolverConfig()
	indexed.CellOrder = CellOrderIndex
	indexed.ButtonOrder = ButtonOrderIndex

	for i := 0; i < 150; i++ {
		m := randomCounterMachine(t, rng, 1+rng.Intn(3), 1+rng.Intn(4), 3)
		want, feasible := minimalPresses(m)

		for name, solver := range map[string]*Solver{
			"minimum":        NewSolver(),
			"first-feasible": NewSolverWithConfig(first),
			"index-order":    NewSolverWithConfig(indexed),
		} {
			res, err := solver.SolveCounters(context.Background(), m)
			if err != nil {
				t.Fatalf("machine %d %s: error = %v", i, name, err)
			}
			if res.Feasible != feasible {
				t.Fatalf("machine %d %s: Feasible = %v, want %v", i, name, res.Feasible, feasible)
			}
			if !feasible {
				continue
			}
			assertSatisfies(t, m, res)
			if name != "first-feasible" && res.Steps != want {
				t.Errorf("machine %d %s: Steps = %d, want %d", i, name, res.Steps, want)
			}
			if res.Steps < want {
				t.Errorf("machine %d %s: Steps = %d below the minimum %d", i, name, res.Steps, want)
			}
		}
	}
}

func TestSolver_SolveCounters_Errors(t *testing.T) {
	lights := mustIndicators(t, ".", "#", []int{0})
	if _, err := NewSolver().SolveCounters(context.Background(), lights); !errors.Is(err, ErrWrongKind) {
		t.Errorf("SolveCounters(indicator machine) error = %v, want ErrWrongKind", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := mustCounters(t, []int{3}, []int{0})
	if _, err := NewSolver().SolveCounters(ctx, m); !errors.Is(err, ErrBudgetExhausted) {
		t.Errorf("SolveCounters(cancelled) error = %v, want ErrBudgetExhausted", err)
	}
}

func TestSolver_SolveCounters_NodeLimitKeepsIncumbent(t *testing.T) {
	m := mustCounters(t, []int{10, 11, 11, 5, 10, 5},
		[]int{0, 1, 2, 3, 4}, []int{0, 3, 4}, []int{0, 1, 2, 4, 5}, []int{1, 2})

	unlimited, err := NewSolver().SolveCounters(context.Background(), m)
	if err != nil {
		t.Fatalf("SolveCounters() error = %v", err)
	}

	config := DefaultSolverConfig()
	config.MaxNodes = unlimited.Nodes - 1
	res, err := NewSolverWithConfig(config).SolveCounters(context.Background(), m)
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("SolveCounters(MaxNodes=%d) error = %v, want ErrBudgetExhausted", config.MaxNodes, err)
	}
	if res.Feasible {
		assertSatisfies(t, m, res)
		if res.Steps < unlimited.Steps {
			t.Errorf("incumbent %d below the minimum %d", res.Steps, unlimited.Steps)
		}
	}
}

func TestSolver_SolveCounters_Diagnostics(t *testing.T) {
	m := mustCounters(t, []int{3, 5, 4, 7},
		[]int{3}, []int{1, 3}, []int{2}, []int{2, 3}, []int{0, 2}, []int{0, 1})

	monitor := NewSolverMonitor()
	solver := NewSolver()
	solver.SetDiagnostics(monitor)

	res, err := solver.SolveCounters(context.Background(), m)
	if err != nil {
		t.Fatalf("SolveCounters() error = %v", err)
	}

	stats := monitor.GetStats()
	if stats.NodesExplored != res.Nodes {
		t.Errorf("NodesExplored = %d, want %d", stats.NodesExplored, res.Nodes)
	}
	if stats.SolutionsFound == 0 {
		t.Error("SolutionsFound should be positive")
	}
	if stats.Backtracks == 0 {
		t.Error("Backtracks should be positive")
	}
	if stats.MaxDepth == 0 || stats.MaxDepth > m.ButtonCount() {
		t.Errorf("MaxDepth = %d, want in (0, %d]", stats.MaxDepth, m.ButtonCount())
	}
	if len(stats.CellTime) != m.CellCount() {
		t.Errorf("CellTime has %d cells, want %d", len(stats.CellTime), m.CellCount())
	}
	if stats.Searches != 1 {
		t.Errorf("Searches = %d, want 1", stats.Searches)
	}
}

func TestSolver_Solve_Dispatch(t *testing.T) {
	lights := mustIndicators(t, "..", "##", []int{0, 1})
	counters := mustCounters(t, []int{3, 5}, []int{0}, []int{0, 1}, []int{1})

	solver := NewSolver()
	res, err := solver.Solve(context.Background(), lights)
	if err != nil || res.Steps != 1 {
		t.Errorf("Solve(indicators) = %v, %v, want 1", res, err)
	}
	res, err = solver.Solve(context.Background(), counters)
	if err != nil || res.Steps != 5 {
		t.Errorf("Solve(counters) = %v, %v, want 5", res, err)
	}

	bad := DefaultSolverConfig()
	bad.Policy = Policy(9)
	if _, err := NewSolverWithConfig(bad).Solve(context.Background(), counters); err == nil {
		t.Error("Solve() with an invalid config should fail")
	}
}

func TestResult_String(t *testing.T) {
	if got := (Result{Steps: 7, Feasible: true}).String(); got != "7" {
		t.Errorf("String() = %q, want 7", got)
	}
	if got := (Result{}).String(); got != "infeasible" {
		t.Errorf("String() = %q, want infeasible", got)
	}
}

func assertSatisfies(t *testing.T, m *Machine, res Result) {
	t.Helper()
	if len(res.Presses) != m.ButtonCount() {
		t.Fatalf("Presses has %d entries, want %d", len(res.Presses), m.ButtonCount())
	}
	total := 0
	for b, n := range res.Presses {
		if n < 0 {
			t.Fatalf("Presses[%d] = %d is negative", b, n)
		}
		total += n
	}
	if total != res.Steps {
		t.Errorf("Presses sum to %d, Steps = %d", total, res.Steps)
	}
	if got := m.Apply(res.Presses); !equalInts(got, m.Target()) {
		t.Errorf("Apply(%v) = %v, want %v", res.Presses, got, m.Target())
	}
}

// randomCounterMachine builds a machine whose target is either reachable by a
// random press vector or, one time in four, random.
func randomCounterMachine(t testing.TB, rng *rand.Rand, cells, buttons, maxPress int) *Machine {
	t.Helper()
	bs := make([]Button, buttons)
	for b := range bs {
		for c := 0; c < cells; c++ {
			if rng.Intn(2) == 0 {
				bs[b].Cells = append(bs[b].Cells, c)
			}
		}
	}

	target := make([]int, cells)
	if rng.Intn(4) == 0 {
		for c := range target {
			target[c] = rng.Intn(maxPress + 1)
		}
	} else {
		for _, button := range bs {
			n := rng.Intn(maxPress + 1)
			for _, c := range button.Cells {
				target[c] += n
			}
		}
	}

	m, err := NewCounterMachine(make([]int, cells), target, bs)
	if err != nil {
		t.Fatalf("NewCounterMachine() error = %v", err)
	}
	return m
}

// minimalPresses enumerates every press vector in which no button exceeds the
// smallest demand among the cells it touches.
func minimalPresses(m *Machine) (int, bool) {
	presses := make([]int, m.ButtonCount())
	best, found := 0, false

	var walk func(b int)
	walk = func(b int) {
		if b == len(presses) {
			if !equalInts(m.Apply(presses), m.Target()) {
				return
			}
			total := 0
			for _, n := range presses {
				total += n
			}
			if !found || total < best {
				best, found = total, true
			}
			return
		}
		hi := 0
		for i, c := range m.Button(b).Cells {
			if d := m.Demand(c); i == 0 || d < hi {
				hi = d
			}
		}
		for n := 0; n <= hi; n++ {
			presses[b] = n
			walk(b + 1)
		}
		presses[b] = 0
	}
	walk(0)
	return best, found
}
