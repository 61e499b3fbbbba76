package solver

import "fmt"

// Policy selects what the equation solver reports when several press
// assignments satisfy every counter.
type Policy int

const (
	// PolicyMinimum explores every branch (with branch-and-bound pruning) and
	// reports the smallest total number of presses.
	PolicyMinimum Policy = iota

	// PolicyFirstFeasible reports the first complete assignment found under the
	// configured ordering heuristics. Cheaper, but the total is not guaranteed
	// to be minimal.
	PolicyFirstFeasible
)

// CellOrder selects the order in which counter equations are processed.
type CellOrder int

const (
	// CellOrderFewestButtons processes cells with fewer contributing buttons
	// first; ties keep index order.
	CellOrderFewestButtons CellOrder = iota

	// CellOrderIndex processes cells in index order.
	CellOrderIndex
)

// ButtonOrder selects the order in which a cell's contributing buttons are
// assigned.
type ButtonOrder int

const (
	// ButtonOrderFanOut tries buttons touching fewer cells first, so that
	// high fan-out buttons are usually already pinned by earlier cells.
	ButtonOrderFanOut ButtonOrder = iota

	// ButtonOrderIndex keeps button index order.
	ButtonOrderIndex
)

// ValueOrder selects the order in which candidate press counts are tried.
type ValueOrder int

const (
	// ValueOrderAsc tries 0, 1, 2, ...
	ValueOrderAsc ValueOrder = iota

	// ValueOrderDesc tries the largest admissible count first.
	ValueOrderDesc
)

// SolverConfig holds search policy, heuristics and resource limits.
// The zero value is not valid; start from DefaultSolverConfig.
type SolverConfig struct {
	Policy      Policy
	CellOrder   CellOrder
	ButtonOrder ButtonOrder
	ValueOrder  ValueOrder

	// MaxNodes bounds the number of search nodes per machine. 0 means unlimited.
	MaxNodes int64

	// MaxFrontier bounds the size of a single BFS frontier. 0 means unlimited.
	MaxFrontier int

	// DisableDedup makes the reachability engine keep duplicate vectors in its
	// frontier. Only useful for comparison; it never changes the answer.
	DisableDedup bool
}

// DefaultSolverConfig returns the configuration used by NewSolver.
func DefaultSolverConfig() *SolverConfig {
	return &SolverConfig{
		Policy:      PolicyMinimum,
		CellOrder:   CellOrderFewestButtons,
		ButtonOrder: ButtonOrderFanOut,
		ValueOrder:  ValueOrderAsc,
	}
}

// Validate checks that every enum holds a known value and limits are non-negative.
func (c *SolverConfig) Validate() error {
	if c.Policy != PolicyMinimum && c.Policy != PolicyFirstFeasible {
		return fmt.Errorf("unknown policy %d", int(c.Policy))
	}
	if c.CellOrder != CellOrderFewestButtons && c.CellOrder != CellOrderIndex {
		return fmt.Errorf("unknown cell order %d", int(c.CellOrder))
	}
	if c.ButtonOrder != ButtonOrderFanOut && c.ButtonOrder != ButtonOrderIndex {
		return fmt.Errorf("unknown button order %d", int(c.ButtonOrder))
	}
	if c.ValueOrder != ValueOrderAsc && c.ValueOrder != ValueOrderDesc {
		return fmt.Errorf("unknown value order %d", int(c.ValueOrder))
	}
	if c.MaxNodes < 0 {
		return fmt.Errorf("max nodes must be >= 0, got %d", c.MaxNodes)
	}
	if c.MaxFrontier < 0 {
		return fmt.Errorf("max frontier must be >= 0, got %d", c.MaxFrontier)
	}
	return nil
}

// ParsePolicy maps "minimum" / "first-feasible" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "minimum", "min", "":
		return PolicyMinimum, nil
	case "first-feasible", "first":
		return PolicyFirstFeasible, nil
	}
	return 0, fmt.Errorf("unknown policy %q", s)
}

// String returns the name accepted by ParsePolicy.
func (p Policy) String() string {
	switch p {
	case PolicyMinimum:
		return "minimum"
	case PolicyFirstFeasible:
		return "first-feasible"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParseCellOrder maps "fewest-buttons" / "index" to a CellOrder.
func ParseCellOrder(s string) (CellOrder, error) {
	switch s {
	case "fewest-buttons", "":
		return CellOrderFewestButtons, nil
	case "index":
		return CellOrderIndex, nil
	}
	return 0, fmt.Errorf("unknown cell order %q", s)
}

// ParseButtonOrder maps "fan-out" / "index" to a ButtonOrder.
func ParseButtonOrder(s string) (ButtonOrder, error) {
	switch s {
	case "fan-out", "":
		return ButtonOrderFanOut, nil
	case "index":
		return ButtonOrderIndex, nil
	}
	return 0, fmt.Errorf("unknown button order %q", s)
}

// ParseValueOrder maps "asc" / "desc" to a ValueOrder.
func ParseValueOrder(s string) (ValueOrder, error) {
	switch s {
	case "asc", "":
		return ValueOrderAsc, nil
	case "desc":
		return ValueOrderDesc, nil
	}
	return 0, fmt.Errorf("unknown value order %q", s)
}
