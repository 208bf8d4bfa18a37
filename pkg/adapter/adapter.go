package adapter

import (
	"context"

	"github.com/matzehuels/dmfbsynth/pkg/problem"
)

// Adapter is a synthesis backend. Every stage can be solved on its own so
// the pipeline can swap in a backend's output for any of them.
type Adapter interface {
	// Name identifies the adapter in configuration and output.
	Name() string

	// Available returns nil when the backend can be used, otherwise an
	// ADAPTER_UNAVAILABLE error explaining why not.
	Available(ctx context.Context) error

	SolveScheduling(ctx context.Context, p *problem.Problem) (problem.Schedule, error)
	SolvePlacement(ctx context.Context, p *problem.Problem) (problem.Placement, error)
	SolveRouting(ctx context.Context, p *problem.Problem, pl problem.Placement, s problem.Schedule) (problem.Routes, error)

	// SolveFull runs all stages in the backend's own way.
	SolveFull(ctx context.Context, p *problem.Problem) (*Solution, error)
}

// Solution is the combined output of [Adapter.SolveFull].
type Solution struct {
	Schedule  problem.Schedule
	Placement problem.Placement
	Routes    problem.Routes
	Makespan  int
}
