package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/dmfbsynth/pkg/errors"
	"github.com/matzehuels/dmfbsynth/pkg/feasibility"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
)

type fixture struct {
	p        *problem.Problem
	pl       problem.Placement
	s        problem.Schedule
	droplets []problem.Droplet
}

func (f fixture) router(t *testing.T, cfg Config) *Router {
	t.Helper()
	r, err := New(f.p, f.pl, f.s, cfg)
	require.NoError(t, err)
	return r
}

func (f fixture) validate(routes problem.Routes, cfg Config) feasibility.Report {
	return Validate(f.p, f.pl, f.s, f.droplets, routes, cfg)
}

func derive(t *testing.T, p *problem.Problem, pl problem.Placement, s problem.Schedule) fixture {
	t.Helper()
	ds, err := problem.DeriveDroplets(p, s, pl)
	require.NoError(t, err)
	return fixture{p: p, pl: pl, s: s, droplets: ds}
}

// crossing builds two transfers on a 7x7 chip whose shortest paths meet
// in the centre cell at the same time step: droplet 0 runs left to right
// along row 3, droplet 1 top to bottom along column 3.
func crossing(t *testing.T, targetStart int) fixture {
	t.Helper()
	p, err := problem.NewBuilder("crossing", 7, 7).
		Module("port", problem.CategoryDispenser, 1, 1, 1).
		Op(1, "dispense", "port").
		Op(2, "dispense", "port").
		Op(3, "collect", "port", 1).
		Op(4, "collect", "port", 2).
		Build()
	require.NoError(t, err)
	pl := problem.Placement{1: {X: 0, Y: 3}, 3: {X: 6, Y: 3}, 2: {X: 3, Y: 0}, 4: {X: 3, Y: 6}}
	s := problem.Schedule{
		1: {Start: 0, End: 1}, 2: {Start: 0, End: 1},
		3: {Start: targetStart, End: targetStart + 1}, 4: {Start: targetStart, End: targetStart + 1},
	}
	return derive(t, p, pl, s)
}

// corridor is a 5x1 chip with a module in the middle of the only lane
// that runs during [0, blockedUntil).
func corridor(t *testing.T, blockedUntil, targetStart int) fixture {
	t.Helper()
	p, err := problem.NewBuilder("corridor", 5, 1).
		Module("port", problem.CategoryDispenser, 1, 1, 1).
		Module("heat", problem.CategoryHeater, 1, 1, 10).
		Op(1, "dispense", "port").
		Op(2, "collect", "port", 1).
		Op(3, "heat", "heat").
		Build()
	require.NoError(t, err)
	pl := problem.Placement{1: {X: 0, Y: 0}, 2: {X: 4, Y: 0}, 3: {X: 2, Y: 0}}
	s := problem.Schedule{1: {Start: 0, End: 1}, 2: {Start: targetStart, End: targetStart + 1}, 3: {Start: 0, End: blockedUntil}}
	return derive(t, p, pl, s)
}

// straight walks x first, then y, one cell per time step from t0.
func straight(from, to problem.Cell, t0 int) problem.Path {
	path := problem.Path{{X: from.X, Y: from.Y, T: t0}}
	x, y, t := from.X, from.Y, t0
	for x != to.X {
		if x < to.X {
			x++
		} else {
			x--
		}
		t++
		path = append(path, problem.Step{X: x, Y: y, T: t})
	}
	for y != to.Y {
		if y < to.Y {
			y++
		} else {
			y--
		}
		t++
		path = append(path, problem.Step{X: x, Y: y, T: t})
	}
	return path
}

// held keeps the droplet at its origin for delay steps after departure and
// then walks straight to its destination.
func held(d problem.Droplet, delay int) problem.Path {
	var path problem.Path
	for t := d.Departure; t < d.Departure+delay; t++ {
		path = append(path, problem.Step{X: d.Origin.X, Y: d.Origin.Y, T: t})
	}
	return append(path, straight(d.Origin, d.Destination, d.Departure+delay)...)
}

func assertSeparated(t *testing.T, routes problem.Routes, spacing int) {
	t.Helper()
	at := make(map[int]map[int]problem.Cell)
	for id, path := range routes {
		for _, s := range path {
			if at[s.T] == nil {
				at[s.T] = make(map[int]problem.Cell)
			}
			at[s.T][id] = s.Cell()
		}
	}
	for ts, cells := range at {
		for a, ca := range cells {
			for b, cb := range cells {
				if a < b && ca.Chebyshev(cb) <= spacing {
					t.Fatalf("droplets %d and %d too close at t=%d: %v %v", a, b, ts, ca, cb)
				}
			}
		}
	}
}

func TestRouteCrossingDroplets(t *testing.T) {
	f := crossing(t, 20)
	require.Len(t, f.droplets, 2)

	res, err := f.router(t, DefaultConfig()).Route(context.Background(), f.droplets)
	require.NoError(t, err)

	assert.Empty(t, res.Failures)
	assert.True(t, res.Report.Feasible, res.Report.Summary())
	assert.True(t, f.validate(res.Routes, DefaultConfig()).Feasible)
	assertSeparated(t, res.Routes, DefaultSpacing)

	// Droplet 0 has the earlier priority and takes the direct line.
	assert.Equal(t, 7, res.Routes[0].Arrival())
	assert.Greater(t, res.Routes[1].Arrival(), 7, "droplet 1 must wait or detour")

	assert.Equal(t, 2, res.Stats.Total)
	assert.Equal(t, 2, res.Stats.Routed)
	assert.InDelta(t, 1.0, res.Stats.SuccessRate, 1e-9)
	assert.Equal(t, res.Routes[1].Arrival(), res.Stats.MaxTime)
	assert.Positive(t, res.Stats.Expansions)
}

func TestRouteSpeculativeWorkers(t *testing.T) {
	f := crossing(t, 20)
	cfg := DefaultConfig()
	cfg.Workers = 2

	res, err := f.router(t, cfg).Route(context.Background(), f.droplets)
	require.NoError(t, err)
	assert.True(t, res.Report.Feasible, res.Report.Summary())
	assertSeparated(t, res.Routes, cfg.Spacing)
	assert.Equal(t, 7, res.Routes[0].Arrival())
}

func TestRouteWaitsForModule(t *testing.T) {
	f := corridor(t, 10, 30)
	res, err := f.router(t, DefaultConfig()).Route(context.Background(), f.droplets)
	require.NoError(t, err)
	require.Empty(t, res.Failures)

	path := res.Routes[0]
	for _, s := range path {
		if s.X == 2 && s.T < 10 {
			t.Fatalf("droplet crossed the running module at %v", s)
		}
	}
	assert.Equal(t, 12, path.Arrival())
	assert.Equal(t, problem.Cell{X: 0, Y: 0}, path[0].Cell())
}

func TestRouteReservesHeldDroplet(t *testing.T) {
	// A must pass the cell where B is waiting to leave on a single lane.
	p, err := problem.NewBuilder("lane", 7, 1).
		Module("port", problem.CategoryDispenser, 1, 1, 1).
		Op(1, "dispense", "port").
		Op(2, "collect", "port", 1).
		Op(3, "dispense", "port").
		Op(4, "collect", "port", 3).
		Build()
	require.NoError(t, err)
	pl := problem.Placement{1: {X: 2, Y: 0}, 2: {X: 6, Y: 0}, 3: {X: 3, Y: 0}, 4: {X: 0, Y: 0}}
	s := problem.Schedule{1: {Start: 0, End: 1}, 2: {Start: 5, End: 6}, 3: {Start: 0, End: 1}, 4: {Start: 30, End: 31}}
	f := derive(t, p, pl, s)
	require.Len(t, f.droplets, 2)

	res, err := f.router(t, DefaultConfig()).Route(context.Background(), f.droplets)
	require.NoError(t, err)
	assert.False(t, res.Report.Feasible)
	assert.Equal(t, []int{1}, res.Unroutable())
	assert.Equal(t, problem.Step{X: 2, Y: 0, T: 1}, res.Routes[0][0])

	// The path that ignores B waiting at its origin is caught by Validate.
	naive := problem.Routes{0: res.Routes[0], 1: held(f.droplets[1], 3)}
	r := f.validate(naive, DefaultConfig())
	assert.False(t, r.Feasible)
	assert.Positive(t, r.Count(feasibility.KindCollision)+r.Count(feasibility.KindAdjacency))
}

func TestRouteKeepsClearOfLaterDeparture(t *testing.T) {
	// A's direct path passes next to (3,4) exactly when B is released there.
	p, err := problem.NewBuilder("release", 7, 7).
		Module("port", problem.CategoryDispenser, 1, 1, 1).
		Op(1, "dispense", "port").
		Op(2, "collect", "port", 1).
		Op(3, "dispense", "port").
		Op(4, "collect", "port", 3).
		Build()
	require.NoError(t, err)
	pl := problem.Placement{1: {X: 0, Y: 3}, 2: {X: 6, Y: 3}, 3: {X: 3, Y: 4}, 4: {X: 3, Y: 6}}
	s := problem.Schedule{1: {Start: 0, End: 1}, 2: {Start: 12, End: 13}, 3: {Start: 0, End: 4}, 4: {Start: 20, End: 21}}
	f := derive(t, p, pl, s)
	require.Len(t, f.droplets, 2)
	require.Less(t, f.droplets[0].Deadline, f.droplets[1].Deadline)

	for _, workers := range []int{1, 2} {
		cfg := DefaultConfig()
		cfg.Workers = workers
		res, err := f.router(t, cfg).Route(context.Background(), f.droplets)
		require.NoError(t, err)
		require.Empty(t, res.Failures, "workers=%d", workers)
		assert.True(t, res.Report.Feasible, res.Report.Summary())
		assert.Equal(t, problem.Step{X: 3, Y: 4, T: 4}, res.Routes[1][0])
		assertSeparated(t, res.Routes, cfg.Spacing)
	}
}

func TestRouteSiblingsShareSource(t *testing.T) {
	p, err := problem.NewBuilder("split", 7, 7).
		Module("port", problem.CategoryDispenser, 1, 1, 1).
		Op(1, "dispense", "port").
		Op(2, "collect", "port", 1).
		Op(3, "collect", "port", 1).
		Build()
	require.NoError(t, err)
	pl := problem.Placement{1: {X: 3, Y: 3}, 2: {X: 0, Y: 3}, 3: {X: 6, Y: 3}}
	s := problem.Schedule{1: {Start: 0, End: 1}, 2: {Start: 20, End: 21}, 3: {Start: 20, End: 21}}
	f := derive(t, p, pl, s)

	res, err := f.router(t, DefaultConfig()).Route(context.Background(), f.droplets)
	require.NoError(t, err)
	require.Empty(t, res.Failures)
	assert.True(t, res.Report.Feasible, res.Report.Summary())
	for _, d := range f.droplets {
		assert.Equal(t, problem.Step{X: 3, Y: 3, T: 1}, res.Routes[d.ID][0])
	}
	assert.True(t, f.validate(res.Routes, DefaultConfig()).Feasible)
}

func TestRouteFailures(t *testing.T) {
	tests := []struct {
		name   string
		f      func(t *testing.T) fixture
		cfg    func(*Config)
		want   Reason
		reason feasibility.Reason
	}{
		{
			name:   "window shorter than distance",
			f:      func(t *testing.T) fixture { return crossing(t, 5) },
			want:   ReasonDeadlineExceeded,
			reason: feasibility.ReasonConstraintViolation,
		},
		{
			name:   "lane blocked for the whole window",
			f:      func(t *testing.T) fixture { return corridor(t, 100, 50) },
			want:   ReasonNoPath,
			reason: feasibility.ReasonConstraintViolation,
		},
		{
			name:   "lane clears too late",
			f:      func(t *testing.T) fixture { return corridor(t, 29, 30) },
			want:   ReasonDeadlineExceeded,
			reason: feasibility.ReasonConstraintViolation,
		},
		{
			name:   "expansion budget",
			f:      func(t *testing.T) fixture { return crossing(t, 20) },
			cfg:    func(c *Config) { c.MaxExpansions = 3 },
			want:   ReasonBudgetExhausted,
			reason: feasibility.ReasonBudgetExhausted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.f(t)
			cfg := DefaultConfig()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			res, err := f.router(t, cfg).Route(context.Background(), f.droplets)
			require.NoError(t, err)
			require.NotEmpty(t, res.Failures)

			assert.Equal(t, tt.want, res.Failures[0].Reason)
			assert.False(t, res.Report.Feasible)
			assert.Equal(t, tt.reason, res.Report.Reason)
			assert.Equal(t, len(res.Failures), res.Report.Count(feasibility.KindUnroutable))
			assert.NotContains(t, res.Routes, res.Failures[0].Droplet)
			assert.Less(t, res.Stats.SuccessRate, 1.0)
		})
	}
}

func TestRouteCancelled(t *testing.T) {
	f := crossing(t, 20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.router(t, DefaultConfig()).Route(ctx, f.droplets)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRepairResolvesConflicts(t *testing.T) {
	f := crossing(t, 20)
	d0, d1 := f.droplets[0], f.droplets[1]
	routes := problem.Routes{
		0: straight(d0.Origin, d0.Destination, d0.Departure),
		1: straight(d1.Origin, d1.Destination, d1.Departure),
	}
	before := f.validate(routes, DefaultConfig())
	require.False(t, before.Feasible)
	assert.Equal(t, 1, before.Count(feasibility.KindCollision))

	res, err := f.router(t, DefaultConfig()).Repair(context.Background(), f.droplets, routes)
	require.NoError(t, err)
	assert.True(t, res.Report.Feasible, res.Report.Summary())
	assert.Equal(t, routes[0], res.Routes[0], "higher-priority droplet keeps its path")
	assert.NotEqual(t, routes[1], res.Routes[1])
	assertSeparated(t, res.Routes, DefaultSpacing)
}

func TestRepairReroutesInvalidPaths(t *testing.T) {
	f := crossing(t, 20)
	d1 := f.droplets[1]
	routes := problem.Routes{
		0: {{X: 0, Y: 3, T: 1}, {X: 6, Y: 3, T: 2}},
		1: straight(d1.Origin, d1.Destination, d1.Departure),
	}
	res, err := f.router(t, DefaultConfig()).Repair(context.Background(), f.droplets, routes)
	require.NoError(t, err)
	assert.True(t, res.Report.Feasible, res.Report.Summary())
	assert.Equal(t, routes[1], res.Routes[1])
	require.Contains(t, res.Routes, 0)
	assert.Greater(t, res.Routes[0].Arrival(), 7, "droplet 0 yields to droplet 1")
}

func TestRepairReroutesEmptyPaths(t *testing.T) {
	f := crossing(t, 20)
	d1 := f.droplets[1]
	routes := problem.Routes{
		0: {},
		1: straight(d1.Origin, d1.Destination, d1.Departure),
	}
	res, err := f.router(t, DefaultConfig()).Repair(context.Background(), f.droplets, routes)
	require.NoError(t, err)
	assert.True(t, res.Report.Feasible, res.Report.Summary())
	require.NotEmpty(t, res.Routes[0])
	assert.Equal(t, problem.Step{X: 0, Y: 3, T: 1}, res.Routes[0][0])
	assert.Equal(t, routes[1], res.Routes[1])
}

func TestValidateRoutes(t *testing.T) {
	f := crossing(t, 20)
	d0, d1 := f.droplets[0], f.droplets[1]
	line0 := straight(d0.Origin, d0.Destination, d0.Departure)
	line1 := straight(d1.Origin, d1.Destination, d1.Departure)

	tests := []struct {
		name   string
		routes problem.Routes
		kind   feasibility.Kind
	}{
		{"missing", problem.Routes{0: line0}, feasibility.KindMissing},
		{"collision", problem.Routes{0: line0, 1: line1}, feasibility.KindCollision},
		{"adjacency", problem.Routes{0: line0, 1: held(d1, 1)}, feasibility.KindAdjacency},
		{"endpoint", problem.Routes{0: straight(d0.Origin, problem.Cell{X: 5, Y: 3}, 1), 1: held(d1, 11)}, feasibility.KindEndpoint},
		{"before departure", problem.Routes{0: straight(d0.Origin, d0.Destination, 0), 1: held(d1, 11)}, feasibility.KindDeadline},
		{"late start", problem.Routes{0: straight(d0.Origin, d0.Destination, 3), 1: held(d1, 11)}, feasibility.KindDeadline},
		{"after deadline", problem.Routes{0: line0, 1: held(d1, 14)}, feasibility.KindDeadline},
		{"discontinuous", problem.Routes{0: {{X: 0, Y: 3, T: 1}, {X: 6, Y: 3, T: 2}}, 1: line1}, feasibility.KindDiscontinuity},
		{"out of bounds", problem.Routes{0: append(problem.Path{{X: 0, Y: 3, T: 1}, {X: -1, Y: 3, T: 2}}, straight(d0.Origin, d0.Destination, 3)...), 1: held(d1, 11)}, feasibility.KindBounds},
		{"unknown", problem.Routes{0: line0, 1: held(d1, 11), 9: line0}, feasibility.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := f.validate(tt.routes, DefaultConfig())
			if r.Feasible {
				t.Fatal("Validate() feasible, want violation")
			}
			if got := r.Count(tt.kind); got != 1 {
				t.Errorf("Count(%s) = %d, want 1 (%v)", tt.kind, got, r.Violations)
			}
		})
	}
}

func TestValidateObstacle(t *testing.T) {
	f := corridor(t, 10, 30)
	r := f.validate(problem.Routes{0: straight(problem.Cell{X: 0, Y: 0}, problem.Cell{X: 4, Y: 0}, 1)}, DefaultConfig())
	assert.Equal(t, 1, r.Count(feasibility.KindObstacle))

	r = f.validate(problem.Routes{0: held(f.droplets[0], 7)}, DefaultConfig())
	assert.True(t, r.Feasible, r.Summary())
}

func TestValidateSpacingZero(t *testing.T) {
	f := crossing(t, 20)
	d0, d1 := f.droplets[0], f.droplets[1]
	routes := problem.Routes{
		0: straight(d0.Origin, d0.Destination, d0.Departure),
		1: held(d1, 1),
	}
	cfg := DefaultConfig()
	cfg.Spacing = 0
	assert.True(t, f.validate(routes, cfg).Feasible)
	assert.False(t, f.validate(routes, DefaultConfig()).Feasible)
}

func TestValidateIsIdempotent(t *testing.T) {
	f := crossing(t, 20)
	res, err := f.router(t, DefaultConfig()).Route(context.Background(), f.droplets)
	require.NoError(t, err)

	first := f.validate(res.Routes, DefaultConfig())
	second := f.validate(res.Routes, DefaultConfig())
	assert.True(t, first.Feasible)
	assert.Equal(t, first, second)
}

func TestComputeStats(t *testing.T) {
	ds := []problem.Droplet{{ID: 0}, {ID: 1}, {ID: 2}, {ID: 3}}
	routes := problem.Routes{
		0: {{X: 0, Y: 0, T: 1}, {X: 1, Y: 0, T: 2}, {X: 2, Y: 0, T: 3}},
		2: {{X: 0, Y: 0, T: 4}, {X: 0, Y: 1, T: 5}, {X: 0, Y: 1, T: 6}, {X: 0, Y: 2, T: 7}},
	}
	st := ComputeStats(ds, routes)
	assert.Equal(t, Stats{
		Total:           4,
		Routed:          2,
		SuccessRate:     0.5,
		AvgPathLength:   2.5,
		TotalPathLength: 5,
		MaxTime:         7,
	}, st)

	assert.InDelta(t, 1.0, ComputeStats(nil, nil).SuccessRate, 1e-9)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative spacing", func(c *Config) { c.Spacing = -1 }},
		{"negative expansions", func(c *Config) { c.MaxExpansions = -5 }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"negative workers", func(c *Config) { c.Workers = -2 }},
		{"negative timeout", func(c *Config) { c.Timeout = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Validate() error = %v, want INVALID_CONFIG", err)
			}
		})
	}
	assert.NoError(t, DefaultConfig().Validate())
}
