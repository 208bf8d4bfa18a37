package routing

import (
	"sort"

	"github.com/matzehuels/dmfbsynth/pkg/feasibility"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
)

// Validate checks a route set against the droplets derived from a schedule
// and placement: every droplet has a path from its origin, starting at its
// departure, to its destination by its deadline, paths are continuous and on the chip,
// never cross an active foreign module, and no two droplets share a cell
// or come within cfg.Spacing of each other at the same time step.
//
// Validate is pure, so validating a feasible route set again reports it
// feasible again.
func Validate(p *problem.Problem, pl problem.Placement, s problem.Schedule,
	droplets []problem.Droplet, routes problem.Routes, cfg Config) feasibility.Report {
	r := &Router{p: p, cfg: cfg.WithDefaults(), obstacles: newObstacles(p, pl, s)}
	var b feasibility.Builder
	r.check(&b, droplets, routes)
	return b.Report(feasibility.ReasonConstraintViolation)
}

func (r *Router) check(b *feasibility.Builder, droplets []problem.Droplet, routes problem.Routes) {
	known := make(map[int]bool, len(droplets))
	sorted := make([]problem.Droplet, len(droplets))
	copy(sorted, droplets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, d := range sorted {
		known[d.ID] = true
		path, ok := routes[d.ID]
		if !ok || len(path) == 0 {
			b.Add(feasibility.KindMissing, []int{d.ID}, "droplet %d (%d -> %d) has no route", d.ID, d.Source, d.Target)
			continue
		}
		r.checkPath(b, d, path)
	}

	var unknown []int
	checked := make(problem.Routes, len(routes))
	for id, path := range routes {
		if !known[id] {
			unknown = append(unknown, id)
			continue
		}
		checked[id] = path
	}
	sort.Ints(unknown)
	for _, id := range unknown {
		b.Add(feasibility.KindUnknown, []int{id}, "route for unknown droplet %d", id)
	}

	for _, c := range findConflicts(checked, r.cfg.Spacing, homesOf(r.p, droplets)) {
		if c.Kind == feasibility.KindCollision {
			b.Add(c.Kind, []int{c.A, c.B}, "droplets %d and %d collide at t=%d", c.A, c.B, c.T)
		} else {
			b.Add(c.Kind, []int{c.A, c.B}, "droplets %d and %d are closer than %d cells at t=%d", c.A, c.B, r.cfg.Spacing+1, c.T)
		}
	}
}

// checkPath records violations of a single path that do not involve other
// droplets. Each kind is reported at most once per droplet.
func (r *Router) checkPath(b *feasibility.Builder, d problem.Droplet, path problem.Path) {
	subj := []int{d.ID}
	first, last := path[0], path[len(path)-1]

	if first.Cell() != d.Origin || last.Cell() != d.Destination {
		b.Add(feasibility.KindEndpoint, subj, "droplet %d runs %v -> %v, want %v -> %v",
			d.ID, first.Cell(), last.Cell(), d.Origin, d.Destination)
	}
	if first.T != d.Departure || last.T > d.Deadline {
		b.Add(feasibility.KindDeadline, subj, "droplet %d occupies the chip during [%d, %d], want start at %d and arrival by %d",
			d.ID, first.T, last.T, d.Departure, d.Deadline)
	}

	chip := r.obstacles.chip
	var jump, outside, blocked bool
	for i, s := range path {
		if i > 0 {
			prev := path[i-1]
			if s.T != prev.T+1 || prev.Cell().Manhattan(s.Cell()) > 1 {
				if !jump {
					b.Add(feasibility.KindDiscontinuity, subj, "droplet %d jumps from %v to %v", d.ID, prev, s)
				}
				jump = true
			}
		}
		if !chip.Contains(s.X, s.Y) {
			if !outside {
				b.Add(feasibility.KindBounds, subj, "droplet %d leaves the chip at %v", d.ID, s)
			}
			outside = true
			continue
		}
		if op, ok := r.obstacles.blocker(d, s.X, s.Y, s.T); ok && !blocked {
			b.Add(feasibility.KindObstacle, subj, "droplet %d enters active module of operation %d at %v", d.ID, op, s)
			blocked = true
		}
	}
}
