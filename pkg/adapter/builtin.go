package adapter

import (
	"context"

	"github.com/matzehuels/dmfbsynth/pkg/placement"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
	"github.com/matzehuels/dmfbsynth/pkg/routing"
	"github.com/matzehuels/dmfbsynth/pkg/schedule"
)

// BuiltinName is the name of the in-process adapter.
const BuiltinName = "builtin"

// Builtin solves every stage with the algorithms of this module: list
// scheduling, the placement GA and A* routing. It is always available.
type Builtin struct {
	Scheduler schedule.Config
	Placer    placement.Config
	Router    routing.Config
}

// NewBuiltin returns a Builtin with the given stage configurations.
func NewBuiltin(sc schedule.Config, pc placement.Config, rc routing.Config) *Builtin {
	return &Builtin{Scheduler: sc, Placer: pc, Router: rc}
}

func (b *Builtin) Name() string { return BuiltinName }

func (b *Builtin) Available(context.Context) error { return nil }

func (b *Builtin) SolveScheduling(_ context.Context, p *problem.Problem) (problem.Schedule, error) {
	res, err := schedule.Solve(p, b.Scheduler)
	if err != nil {
		return nil, err
	}
	return res.Schedule, nil
}

func (b *Builtin) SolvePlacement(ctx context.Context, p *problem.Problem) (problem.Placement, error) {
	res, err := placement.Solve(ctx, p, b.Placer)
	if err != nil {
		return nil, err
	}
	return res.Placement, nil
}

// SolveRouting derives the droplets of p and routes them. Droplets that
// cannot be routed are simply absent from the returned routes.
func (b *Builtin) SolveRouting(ctx context.Context, p *problem.Problem, pl problem.Placement, s problem.Schedule) (problem.Routes, error) {
	droplets, err := problem.DeriveDroplets(p, s, pl)
	if err != nil {
		return nil, err
	}
	r, err := routing.New(p, pl, s, b.Router)
	if err != nil {
		return nil, err
	}
	res, err := r.Route(ctx, droplets)
	if err != nil {
		return nil, err
	}
	return res.Routes, nil
}

func (b *Builtin) SolveFull(ctx context.Context, p *problem.Problem) (*Solution, error) {
	s, err := b.SolveScheduling(ctx, p)
	if err != nil {
		return nil, err
	}
	pl, err := b.SolvePlacement(ctx, p)
	if err != nil {
		return nil, err
	}
	routes, err := b.SolveRouting(ctx, p, pl, s)
	if err != nil {
		return nil, err
	}
	return &Solution{Schedule: s, Placement: pl, Routes: routes, Makespan: s.Makespan()}, nil
}
