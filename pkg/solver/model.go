// Package solver: this file defines the immutable Machine description shared by
// both search engines.
package solver

import "fmt"

// CellKind selects the transition semantics of every cell in a machine.
type CellKind int

const (
	// Indicator cells hold on/off and are toggled by each affecting press.
	Indicator CellKind = iota

	// Counter cells hold a non-negative integer incremented by exactly 1 per
	// affecting press. Counters never decrease.
	Counter
)

// String returns "indicator" or "counter".
func (k CellKind) String() string {
	switch k {
	case Indicator:
		return "indicator"
	case Counter:
		return "counter"
	default:
		return fmt.Sprintf("CellKind(%d)", int(k))
	}
}

// Button is an action affecting a fixed set of cells on every press.
type Button struct {
	// Name identifies the button in diagnostics. Optional.
	Name string

	// Cells lists the affected cell indices, in declaration order, without duplicates.
	Cells []int
}

// Machine is a validated, immutable description of one puzzle instance:
// an initial state vector, a target state vector of the same length, and a set
// of buttons. The inverse cell→buttons relation is computed once at construction
// and shared by both engines.
//
// Thread safety: a Machine is safe for concurrent reads. Slices returned by its
// accessors must not be modified.
type Machine struct {
	kind    CellKind
	initial []int
	target  []int
	buttons []Button

	// affectedBy[c] lists, in button index order, the buttons affecting cell c.
	affectedBy [][]int
}

// NewMachine validates and builds a machine. Indicator values must be 0 or 1;
// counter values must be non-negative. Returns a *MalformedMachineError when an
// invariant is violated.
func NewMachine(kind CellKind, initial, target []int, buttons []Button) (*Machine, error) {
	if kind != Indicator && kind != Counter {
		return nil, malformed(-1, -1, "unknown cell kind %d", int(kind))
	}
	if len(initial) != len(target) {
		return nil, malformed(-1, -1, "initial state has %d cells but target has %d", len(initial), len(target))
	}

	for c := range initial {
		if err := checkCellValue(kind, c, "initial", initial[c]); err != nil {
			return nil, err
		}
		if err := checkCellValue(kind, c, "target", target[c]); err != nil {
			return nil, err
		}
	}

	cells := len(initial)
	m := &Machine{
		kind:       kind,
		initial:    append([]int(nil), initial...),
		target:     append([]int(nil), target...),
		buttons:    make([]Button, len(buttons)),
		affectedBy: make([][]int, cells),
	}

	for b, button := range buttons {
		seen := make(map[int]struct{}, len(button.Cells))
		for _, c := range button.Cells {
			if c < 0 || c >= cells {
				return nil, malformed(b, c, "cell index out of range [0,%d)", cells)
			}
			if _, dup := seen[c]; dup {
				return nil, malformed(b, c, "cell listed more than once")
			}
			seen[c] = struct{}{}
			m.affectedBy[c] = append(m.affectedBy[c], b)
		}
		m.buttons[b] = Button{
			Name:  button.Name,
			Cells: append([]int(nil), button.Cells...),
		}
	}

	return m, nil
}

// NewIndicatorMachine builds an indicator machine from boolean vectors.
func NewIndicatorMachine(initial, target []bool, buttons []Button) (*Machine, error) {
	return NewMachine(Indicator, boolsToInts(initial), boolsToInts(target), buttons)
}

// NewCounterMachine builds a counter machine.
func NewCounterMachine(initial, target []int, buttons []Button) (*Machine, error) {
	return NewMachine(Counter, initial, target, buttons)
}

func checkCellValue(kind CellKind, cell int, which string, v int) error {
	switch kind {
	case Indicator:
		if v != 0 && v != 1 {
			return malformed(-1, cell, "%s indicator value %d is not 0 or 1", which, v)
		}
	case Counter:
		if v < 0 {
			return malformed(-1, cell, "%s counter value %d is negative", which, v)
		}
	}
	return nil
}

func boolsToInts(bs []bool) []int {
	out := make([]int, len(bs))
	for i, b := range bs {
		if b {
			out[i] = 1
		}
	}
	return out
}

// Kind returns the cell kind shared by every cell of the machine.
func (m *Machine) Kind() CellKind { return m.kind }

// CellCount returns the length of the state vector.
func (m *Machine) CellCount() int { return len(m.initial) }

// ButtonCount returns the number of buttons.
func (m *Machine) ButtonCount() int { return len(m.buttons) }

// Buttons returns all buttons in index order.
func (m *Machine) Buttons() []Button { return m.buttons }

// Button returns the button at index b.
func (m *Machine) Button(b int) Button { return m.buttons[b] }

// ButtonsAffecting returns the indices of the buttons that affect cell c,
// in ascending order.
func (m *Machine) ButtonsAffecting(c int) []int { return m.affectedBy[c] }

// FanOut returns the number of cells button b affects.
func (m *Machine) FanOut(b int) int { return len(m.buttons[b].Cells) }

// Initial returns the initial state vector.
func (m *Machine) Initial() []int { return m.initial }

// Target returns the target state vector.
func (m *Machine) Target() []int { return m.target }

// Demand returns how many presses must reach counter cell c, i.e. target minus
// initial. A negative demand makes the machine infeasible.
func (m *Machine) Demand(c int) int { return m.target[c] - m.initial[c] }

// ButtonName returns the button's name, or "#b" when it has none.
func (m *Machine) ButtonName(b int) string {
	if name := m.buttons[b].Name; name != "" {
		return name
	}
	return fmt.Sprintf("#%d", b)
}

// Apply returns the state reached from the initial vector after pressing each
// button presses[b] times. Used to verify answers.
func (m *Machine) Apply(presses []int) []int {
	state := append([]int(nil), m.initial...)
	for b, n := range presses {
		if b >= len(m.buttons) || n == 0 {
			continue
		}
		for _, c := range m.buttons[b].Cells {
			switch m.kind {
			case Indicator:
				state[c] ^= n & 1
			case Counter:
				state[c] += n
			}
		}
	}
	return state
}

// String returns a compact representation, e.g. "counter machine{cells: 4, buttons: 6}".
func (m *Machine) String() string {
	return fmt.Sprintf("%s machine{cells: %d, buttons: %d}", m.kind, len(m.initial), len(m.buttons))
}
