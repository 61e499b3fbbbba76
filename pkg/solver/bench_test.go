package solver

import (
	"context"
	"math/rand"
	"testing"
)

func BenchmarkSolver_Reach(b *testing.B) {
	rng := rand.New(rand.NewSource(3))
	m := randomIndicatorMachine(b, rng, 12, 10)
	solver := NewSolver()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := solver.Reach(ctx, m); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSolver_Reach_NoDedup(b *testing.B) {
	rng := rand.New(rand.NewSource(3))
	m := randomIndicatorMachine(b, rng, 8, 6)
	config := DefaultSolverConfig()
	config.DisableDedup = true
	solver := NewSolverWithConfig(config)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := solver.Reach(ctx, m); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSolver_SolveCounters(b *testing.B) {
	m := mustCounters(b, []int{10, 11, 11, 5, 10, 5},
		[]int{0, 1, 2, 3, 4}, []int{0, 3, 4}, []int{0, 1, 2, 4, 5}, []int{1, 2})

	for _, policy := range []Policy{PolicyMinimum, PolicyFirstFeasible} {
		b.Run(policy.String(), func(b *testing.B) {
			config := DefaultSolverConfig()
			config.Policy = policy
			solver := NewSolverWithConfig(config)
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := solver.SolveCounters(ctx, m); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
