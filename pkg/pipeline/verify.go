package pipeline

import (
	"fmt"

	"github.com/matzehuels/dmfbsynth/pkg/feasibility"
	dio "github.com/matzehuels/dmfbsynth/pkg/io"
	"github.com/matzehuels/dmfbsynth/pkg/placement"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
	"github.com/matzehuels/dmfbsynth/pkg/routing"
	"github.com/matzehuels/dmfbsynth/pkg/schedule"
)

// Feasible reports whether every stage is feasible.
func (r Reports) Feasible() bool {
	return r.Schedule.Feasible && r.Placement.Feasible && r.Routing.Feasible
}

// Verify checks a persisted solution for p with the stage validators. It is
// how results produced elsewhere, or loaded from disk, are trusted again.
// An output without routes that was aborted gets a skipped routing report.
func Verify(p *problem.Problem, out *dio.Output, opts Options) (Reports, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return Reports{}, fmt.Errorf("invalid options: %w", err)
	}
	s := out.ScheduleValue()
	pl := out.PlacementValue()
	routes := out.RoutesValue()

	rep := Reports{
		Schedule:  schedule.Validate(p, s, opts.schedulerConfig(p)),
		Placement: placement.Validate(p, pl),
	}
	if out.Aborted && len(routes) == 0 {
		rep.Routing = feasibility.Skipped("routing aborted: " + out.AbortReason)
		return rep, nil
	}

	droplets, err := problem.DeriveDroplets(p, s, pl)
	if err != nil {
		return rep, err
	}
	rep.Routing = routing.Validate(p, pl, s, droplets, routes, opts.Routing)
	return rep, nil
}
