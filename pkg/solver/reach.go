package solver

// reach.go: breadth-first reachability search over indicator vectors

import (
	"context"
	"fmt"
	"time"
)

// MaxIndicators is the largest indicator machine Reach accepts. State vectors
// are packed into a uint64, one bit per indicator.
const MaxIndicators = 64

// Reach returns the minimum number of presses turning the machine's initial
// indicator vector into its target, searching breadth-first.
//
// The frontier at each depth holds distinct vectors only: a vector already
// reached at an earlier depth is never expanded again, so the frontier empties
// on unreachable targets and the result is reported as infeasible. The first
// successor equal to the target ends the search; every path found at the same
// BFS level has the same length.
func (s *Solver) Reach(ctx context.Context, m *Machine) (Result, error) {
	if m.Kind() != Indicator {
		return Result{}, fmt.Errorf("%w: reachability search needs indicator cells, got %s", ErrWrongKind, m.Kind())
	}
	if m.CellCount() > MaxIndicators {
		return Result{}, fmt.Errorf("%w: machine has %d", ErrTooManyIndicators, m.CellCount())
	}

	if s.diag != nil {
		start := time.Now()
		defer func() { s.diag.FinishSearch(Indicator, time.Since(start)) }()
	}

	b := newBudget(ctx, s.config.MaxNodes)
	if err := b.check(); err != nil {
		return Result{}, err
	}

	initial, target := pack(m.Initial()), pack(m.Target())
	if initial == target {
		s.recordSolution(0)
		return Result{Steps: 0, Feasible: true}, nil
	}

	masks := make([]uint64, m.ButtonCount())
	for i, button := range m.Buttons() {
		for _, c := range button.Cells {
			masks[i] |= 1 << uint(c)
		}
	}

	if s.config.DisableDedup {
		return s.reachList(b, initial, target, masks)
	}
	return s.reachSet(b, initial, target, masks)
}

// reachSet is the deduplicating BFS.
func (s *Solver) reachSet(b *budget, initial, target uint64, masks []uint64) (Result, error) {
	seen := map[uint64]struct{}{initial: {}}
	frontier := []uint64{initial}

	for depth := 1; len(frontier) > 0; depth++ {
		if s.diag != nil {
			s.diag.RecordDepth(depth)
		}

		next := make([]uint64, 0, len(frontier))
		for _, v := range frontier {
			for _, mask := range masks {
				if err := b.spend(); err != nil {
					return Result{Nodes: b.nodes}, err
				}
				if s.diag != nil {
					s.diag.RecordNode()
				}

				succ := v ^ mask
				if succ == target {
					s.recordSolution(depth)
					return Result{Steps: depth, Feasible: true, Nodes: b.nodes}, nil
				}
				if _, ok := seen[succ]; ok {
					continue
				}
				seen[succ] = struct{}{}
				next = append(next, succ)
			}
		}

		if err := s.checkFrontier(len(next)); err != nil {
			return Result{Nodes: b.nodes}, err
		}
		frontier = next
	}

	return Result{Feasible: false, Nodes: b.nodes}, nil
}

// reachList expands every press sequence without deduplication. Pressing a
// button twice cancels out, so a minimal sequence never presses more buttons
// than the machine has; that bounds the depth.
func (s *Solver) reachList(b *budget, initial, target uint64, masks []uint64) (Result, error) {
	frontier := []uint64{initial}

	for depth := 1; depth <= len(masks); depth++ {
		if s.diag != nil {
			s.diag.RecordDepth(depth)
		}

		next := make([]uint64, 0, len(frontier)*len(masks))
		for _, v := range frontier {
			for _, mask := range masks {
				if err := b.spend(); err != nil {
					return Result{Nodes: b.nodes}, err
				}
				if s.diag != nil {
					s.diag.RecordNode()
				}

				succ := v ^ mask
				if succ == target {
					s.recordSolution(depth)
					return Result{Steps: depth, Feasible: true, Nodes: b.nodes}, nil
				}
				next = append(next, succ)
			}
		}

		if err := s.checkFrontier(len(next)); err != nil {
			return Result{Nodes: b.nodes}, err
		}
		frontier = next
	}

	return Result{Feasible: false, Nodes: b.nodes}, nil
}

func (s *Solver) checkFrontier(size int) error {
	if s.diag != nil {
		s.diag.RecordFrontier(size)
	}
	if s.config.MaxFrontier > 0 && size > s.config.MaxFrontier {
		return fmt.Errorf("%w: frontier of %d vectors exceeds limit %d", ErrBudgetExhausted, size, s.config.MaxFrontier)
	}
	return nil
}

func (s *Solver) recordSolution(steps int) {
	if s.diag != nil {
		s.diag.RecordSolution(steps)
	}
}

// pack turns a 0/1 vector into a bit mask; bit i is cell i.
func pack(cells []int) uint64 {
	var v uint64
	for i, on := range cells {
		if on != 0 {
			v |= 1 << uint(i)
		}
	}
	return v
}
