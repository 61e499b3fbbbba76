package solver

import (
	"errors"
	"fmt"
)

// ErrMalformedMachine is matched by every *MalformedMachineError via errors.Is.
var ErrMalformedMachine = errors.New("malformed machine")

// ErrBudgetExhausted is returned when a search stops before reaching an answer,
// either because the context was cancelled or because a node/frontier limit was hit.
// Callers should report such machines as "unknown", not infeasible.
var ErrBudgetExhausted = errors.New("search budget exhausted")

// ErrTooManyIndicators is returned by the reachability engine for machines whose
// indicator vector does not fit in a packed 64-bit state.
var ErrTooManyIndicators = fmt.Errorf("reachability search supports at most %d indicators", MaxIndicators)

// ErrWrongKind is returned when an engine is handed a machine of the other cell kind.
var ErrWrongKind = errors.New("machine cell kind does not match engine")

// MalformedMachineError describes a violated machine invariant found at construction time.
type MalformedMachineError struct {
	// Reason is a human-readable description of the violation.
	Reason string

	// Button is the offending button index, or -1.
	Button int

	// Cell is the offending cell index, or -1.
	Cell int
}

func (e *MalformedMachineError) Error() string {
	switch {
	case e.Button >= 0 && e.Cell >= 0:
		return fmt.Sprintf("malformed machine: button %d, cell %d: %s", e.Button, e.Cell, e.Reason)
	case e.Button >= 0:
		return fmt.Sprintf("malformed machine: button %d: %s", e.Button, e.Reason)
	case e.Cell >= 0:
		return fmt.Sprintf("malformed machine: cell %d: %s", e.Cell, e.Reason)
	default:
		return "malformed machine: " + e.Reason
	}
}

// Is reports whether target is ErrMalformedMachine.
func (e *MalformedMachineError) Is(target error) bool {
	return target == ErrMalformedMachine
}

func malformed(button, cell int, format string, args ...any) error {
	return &MalformedMachineError{
		Reason: fmt.Sprintf(format, args...),
		Button: button,
		Cell:   cell,
	}
}
