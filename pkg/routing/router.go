package routing

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/dmfbsynth/pkg/feasibility"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
)

// Reason explains why a droplet could not be routed.
type Reason string

const (
	// ReasonNoPath means the destination cannot be reached at all, for
	// example because active modules wall it off for the whole window.
	ReasonNoPath Reason = "no_path"

	// ReasonDeadlineExceeded means a path exists in space but no
	// conflict-free one arrives before the deadline.
	ReasonDeadlineExceeded Reason = "deadline_exceeded"

	// ReasonBudgetExhausted means the expansion or time budget ran out.
	ReasonBudgetExhausted Reason = "budget_exhausted"

	// ReasonConflict means the droplet still conflicted with others after
	// all repair retries, or that its origin was taken when it departs.
	ReasonConflict Reason = "conflict"
)

// Failure describes a droplet that was dropped from the route set.
type Failure struct {
	Droplet int    `json:"droplet"`
	Reason  Reason `json:"reason"`
	Detail  string `json:"detail,omitempty"`
}

func (f Failure) String() string {
	return fmt.Sprintf("droplet %d: %s (%s)", f.Droplet, f.Reason, f.Detail)
}

// Result is the outcome of routing a droplet set.
type Result struct {
	Routes   problem.Routes
	Failures []Failure
	Stats    Stats

	// Report is feasible when every droplet is routed and the route set
	// is free of collisions, adjacency and obstacle violations.
	Report feasibility.Report
}

// Unroutable returns the IDs of failed droplets in ascending order.
func (r *Result) Unroutable() []int {
	ids := make([]int, len(r.Failures))
	for i, f := range r.Failures {
		ids[i] = f.Droplet
	}
	return ids
}

// Router routes droplets between placed modules of one problem. It keeps no
// state between calls and is safe for concurrent use.
type Router struct {
	p         *problem.Problem
	cfg       Config
	obstacles *obstacles
}

// New prepares a router for a placed and scheduled problem.
func New(p *problem.Problem, pl problem.Placement, s problem.Schedule, cfg Config) (*Router, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Router{p: p, cfg: cfg.WithDefaults(), obstacles: newObstacles(p, pl, s)}, nil
}

// Route computes paths for all droplets.
//
// Droplets are routed one at a time in order of (deadline, departure, ID);
// every committed path becomes an obstacle for the droplets after it. With
// Config.Workers > 1 droplets are searched in batches against a snapshot
// and committed in priority order; a speculative path that no longer fits
// is searched again. A final repair pass removes residual conflicts.
//
// Droplets that cannot be routed are returned in Result.Failures. Route
// only returns an error when ctx is done.
func (r *Router) Route(ctx context.Context, droplets []problem.Droplet) (*Result, error) {
	order := prioritize(droplets)
	st := &run{routes: make(problem.Routes, len(droplets)), tb: newTable(homesOf(r.p, droplets))}
	st.hold(order, r.cfg.Spacing)

	var err error
	if r.cfg.Workers > 1 {
		err = r.routeSpeculative(ctx, order, st)
	} else {
		err = r.routeSerial(ctx, order, st)
	}
	if err != nil {
		return nil, err
	}
	if err := r.repair(ctx, order, st); err != nil {
		return nil, err
	}
	return r.result(droplets, st), nil
}

// Repair fixes an externally produced route set. Paths that are invalid
// on their own (wrong endpoints, outside the window, discontinuous, out of
// bounds or through an active module) are discarded. Conflicting pairs are
// then resolved by re-routing the lower-priority droplet, and finally every
// droplet without a path is routed against the rest.
func (r *Router) Repair(ctx context.Context, droplets []problem.Droplet, routes problem.Routes) (*Result, error) {
	order := prioritize(droplets)
	st := &run{routes: make(problem.Routes, len(droplets)), tb: newTable(homesOf(r.p, droplets))}

	var pending []problem.Droplet
	for _, d := range order {
		path, ok := routes[d.ID]
		if !ok || len(path) == 0 || !r.pathValid(d, path) {
			pending = append(pending, d)
			continue
		}
		st.commit(d.ID, path)
	}
	st.hold(pending, r.cfg.Spacing)
	if err := r.repair(ctx, order, st); err != nil {
		return nil, err
	}
	if err := r.routeSerial(ctx, pending, st); err != nil {
		return nil, err
	}
	return r.result(droplets, st), nil
}

// run is the mutable state of one Route or Repair call.
type run struct {
	routes     problem.Routes
	tb         *table
	failures   []Failure
	expansions int
}

func (st *run) commit(id int, path problem.Path) {
	st.routes[id] = path
	st.tb.add(id, path)
}

func (st *run) drop(id int) {
	st.tb.remove(id, st.routes[id])
	delete(st.routes, id)
}

// hold reserves the departure step of each droplet, in priority order,
// unless it is already too close to an earlier one. Droplets routed before
// d then keep clear of the cell d is released on.
func (st *run) hold(order []problem.Droplet, spacing int) {
	for _, d := range order {
		if st.tb.free(d.ID, d.Origin.X, d.Origin.Y, d.Departure, spacing) {
			st.tb.add(d.ID, departure(d))
		}
	}
}

func departure(d problem.Droplet) problem.Path {
	return problem.Path{{X: d.Origin.X, Y: d.Origin.Y, T: d.Departure}}
}

func (st *run) fail(d problem.Droplet, a attempt) {
	st.tb.remove(d.ID, departure(d))
	st.failures = append(st.failures, Failure{Droplet: d.ID, Reason: a.Reason, Detail: a.Detail})
}

func (r *Router) routeSerial(ctx context.Context, order []problem.Droplet, st *run) error {
	for _, d := range order {
		a, err := r.search(ctx, d, st.tb)
		st.expansions += a.Expansions
		if err != nil {
			return err
		}
		if a.Path == nil {
			st.fail(d, a)
			continue
		}
		st.commit(d.ID, a.Path)
	}
	return nil
}

func (r *Router) routeSpeculative(ctx context.Context, order []problem.Droplet, st *run) error {
	w := r.cfg.Workers
	for lo := 0; lo < len(order); lo += w {
		batch := order[lo:min(lo+w, len(order))]
		attempts := make([]attempt, len(batch))

		// The table is only read while the batch is searched.
		g, gctx := errgroup.WithContext(ctx)
		for i, d := range batch {
			g.Go(func() error {
				a, err := r.search(gctx, d, st.tb)
				attempts[i] = a
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for i, d := range batch {
			a := attempts[i]
			st.expansions += a.Expansions
			switch {
			case a.Path == nil:
				st.fail(d, a)
			case st.tb.fits(d.ID, a.Path, r.cfg.Spacing):
				st.commit(d.ID, a.Path)
			default:
				if err := r.routeSerial(ctx, []problem.Droplet{d}, st); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// repair re-routes the lower-priority droplet of each conflicting pair
// until no conflicts remain. A droplet that exhausts its retries is
// dropped.
func (r *Router) repair(ctx context.Context, order []problem.Droplet, st *run) error {
	rank := make(map[int]int, len(order))
	byID := make(map[int]problem.Droplet, len(order))
	for i, d := range order {
		rank[d.ID] = i
		byID[d.ID] = d
	}
	retries := make(map[int]int)

	for {
		cs := findConflicts(st.routes, r.cfg.Spacing, st.tb.homes)
		if len(cs) == 0 {
			return nil
		}
		victim := -1
		for _, c := range cs {
			v := c.B
			if rank[c.A] > rank[c.B] {
				v = c.A
			}
			if victim < 0 || rank[v] < rank[victim] {
				victim = v
			}
		}

		d := byID[victim]
		st.drop(victim)
		if retries[victim] >= r.cfg.MaxRetries {
			st.failures = append(st.failures, Failure{
				Droplet: victim,
				Reason:  ReasonConflict,
				Detail:  fmt.Sprintf("still conflicting after %d retries", retries[victim]),
			})
			continue
		}
		retries[victim]++

		a, err := r.search(ctx, d, st.tb)
		st.expansions += a.Expansions
		if err != nil {
			return err
		}
		if a.Path == nil {
			st.fail(d, a)
			continue
		}
		st.commit(victim, a.Path)
	}
}

// pathValid checks the constraints of a single path that do not involve
// other droplets.
func (r *Router) pathValid(d problem.Droplet, path problem.Path) bool {
	var b feasibility.Builder
	r.checkPath(&b, d, path)
	return b.Len() == 0
}

func (r *Router) result(droplets []problem.Droplet, st *run) *Result {
	sort.Slice(st.failures, func(i, j int) bool { return st.failures[i].Droplet < st.failures[j].Droplet })

	failed := make(map[int]bool, len(st.failures))
	for _, f := range st.failures {
		failed[f.Droplet] = true
	}
	var routed []problem.Droplet
	for _, d := range droplets {
		if !failed[d.ID] {
			routed = append(routed, d)
		}
	}

	var b feasibility.Builder
	r.check(&b, routed, st.routes)
	reason := feasibility.ReasonConstraintViolation
	for _, f := range st.failures {
		b.Add(feasibility.KindUnroutable, []int{f.Droplet}, "droplet %d unroutable: %s (%s)", f.Droplet, f.Reason, f.Detail)
		if f.Reason == ReasonBudgetExhausted {
			reason = feasibility.ReasonBudgetExhausted
		}
	}

	stats := ComputeStats(droplets, st.routes)
	stats.Expansions = st.expansions
	return &Result{
		Routes:   st.routes,
		Failures: st.failures,
		Stats:    stats,
		Report:   b.Report(reason),
	}
}

// prioritize orders droplets by (deadline, departure, ID).
func prioritize(droplets []problem.Droplet) []problem.Droplet {
	order := make([]problem.Droplet, len(droplets))
	copy(order, droplets)
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.Deadline != b.Deadline {
			return a.Deadline < b.Deadline
		}
		if a.Departure != b.Departure {
			return a.Departure < b.Departure
		}
		return a.ID < b.ID
	})
	return order
}
