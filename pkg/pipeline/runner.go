package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/dmfbsynth/pkg/adapter"
	"github.com/matzehuels/dmfbsynth/pkg/cache"
	"github.com/matzehuels/dmfbsynth/pkg/feasibility"
	dio "github.com/matzehuels/dmfbsynth/pkg/io"
	"github.com/matzehuels/dmfbsynth/pkg/observability"
	"github.com/matzehuels/dmfbsynth/pkg/placement"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
	"github.com/matzehuels/dmfbsynth/pkg/routing"
	"github.com/matzehuels/dmfbsynth/pkg/schedule"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it so results are cached and reported the same way.
//
// The Runner holds no per-run state; multiple goroutines can safely use
// the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// Adapters resolves Options.Adapter. When nil only the built-in
	// algorithms are available.
	Adapters *adapter.Registry
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// Execute runs scheduling, placement and routing for p.
//
// Structural problems and invalid options are returned as errors, as is
// cancellation of ctx. Infeasible stages are not errors: each stage's
// report lands in Result.Reports. When scheduling or placement is
// infeasible the run is aborted before routing unless
// Options.AllowDegraded is set, in which case routing runs on the
// infeasible input and the result is marked degraded.
func (r *Runner) Execute(ctx context.Context, p *problem.Problem, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := opts.Logger
	start := time.Now()

	data, err := dio.MarshalProblem(p)
	if err != nil {
		return nil, err
	}
	problemHash := cache.Hash(data)
	key := r.keyer().ResultKey(problemHash, opts.CacheKeyOpts())

	if !opts.NoCache {
		if res, ok := r.lookup(ctx, key, p); ok {
			logger.Debug("cache hit", "problem", p.Name(), "key", key)
			observability.Pipeline().OnRunComplete(ctx, summary(res, time.Since(start)))
			return res, nil
		}
	}

	sel := adapter.Selection{}
	if r.Adapters != nil {
		sel = r.Adapters.Select(ctx, opts.Adapter)
		if sel.Fallback != nil {
			logger.Warn("adapter unavailable, using builtin", "adapter", opts.Adapter, "reason", sel.Fallback)
		}
	}

	res := &Result{
		ID:          uuid.NewString(),
		Problem:     p,
		ProblemHash: problemHash,
		Method:      adapter.BuiltinName,
	}
	if sel.Adapter != nil && sel.Adapter.Name() != adapter.BuiltinName {
		res.Method = sel.Adapter.Name()
		err = r.runExternal(ctx, sel.Adapter, p, &opts, res, logger)
	} else {
		err = r.runBuiltin(ctx, p, &opts, res, logger)
	}
	if err != nil {
		return nil, err
	}

	res.Makespan = res.Schedule.Makespan()
	res.Feasible = !res.Aborted && !res.Degraded &&
		res.Reports.Schedule.Feasible && res.Reports.Placement.Feasible && res.Reports.Routing.Feasible
	res.Stats.TotalTime = time.Since(start)

	logger.Info("synthesis complete",
		"problem", p.Name(),
		"method", res.Method,
		"makespan", res.Makespan,
		"feasible", res.Feasible,
		"duration", res.Stats.TotalTime)

	// A fallback result is not what the key asked for; the requested
	// adapter may be back on the next run.
	if !opts.NoCache && sel.Fallback == nil {
		r.store(ctx, key, res)
	}
	observability.Pipeline().OnRunComplete(ctx, summary(res, res.Stats.TotalTime))
	return res, nil
}

// runBuiltin runs the in-process algorithms and keeps their diagnostics.
func (r *Runner) runBuiltin(ctx context.Context, p *problem.Problem, opts *Options, res *Result, logger *log.Logger) error {
	sc := opts.schedulerConfig(p)

	var sched *schedule.Result
	d, err := stage(ctx, StageScheduling, p.Name(), func(context.Context) (bool, error) {
		var err error
		if sched, err = schedule.Solve(p, sc); err != nil {
			return false, err
		}
		res.Reports.Schedule = schedule.Validate(p, sched.Schedule, sc)
		return res.Reports.Schedule.Feasible, nil
	})
	res.Stats.SchedulingTime = d
	if err != nil {
		return fmt.Errorf("scheduling: %w", err)
	}
	res.Schedule = sched.Schedule
	res.Utilization = sched.Utilization
	logger.Info("scheduled operations",
		"stage", StageScheduling,
		"priority", sched.Priority,
		"makespan", sched.Makespan,
		"duration", d)

	var placed *placement.Result
	d, err = stage(ctx, StagePlacement, p.Name(), func(ctx context.Context) (bool, error) {
		var err error
		if placed, err = placement.Solve(ctx, p, opts.Placement); err != nil {
			return false, err
		}
		res.Reports.Placement = placed.Report
		return placed.Report.Feasible, nil
	})
	res.Stats.PlacementTime = d
	if err != nil {
		return fmt.Errorf("placement: %w", err)
	}
	res.Placement = placed.Placement
	res.Wirelength = placed.Wirelength
	res.PlacementHistory = placed.History
	logger.Info("placed modules",
		"stage", StagePlacement,
		"wirelength", placed.Wirelength,
		"generations", placed.Generations,
		"feasible", placed.Feasible,
		"duration", d)

	if r.abort(opts, res, logger) {
		return nil
	}

	droplets, err := problem.DeriveDroplets(p, res.Schedule, res.Placement)
	if err != nil {
		return err
	}
	res.Droplets = droplets

	var routed *routing.Result
	d, err = stage(ctx, StageRouting, p.Name(), func(ctx context.Context) (bool, error) {
		router, err := routing.New(p, res.Placement, res.Schedule, opts.Routing)
		if err != nil {
			return false, err
		}
		if routed, err = router.Route(ctx, droplets); err != nil {
			return false, err
		}
		return routed.Report.Feasible, nil
	})
	res.Stats.RoutingTime = d
	if err != nil {
		return fmt.Errorf("routing: %w", err)
	}
	res.Routes = routed.Routes
	res.Failures = routed.Failures
	res.RoutingStats = routed.Stats
	res.Reports.Routing = routed.Report
	logger.Info("routed droplets",
		"stage", StageRouting,
		"routed", routed.Stats.Routed,
		"total", routed.Stats.Total,
		"duration", d)
	return nil
}

// runExternal takes each stage's output from an adapter and checks it with
// the same validators the built-in stages use.
func (r *Runner) runExternal(ctx context.Context, a adapter.Adapter, p *problem.Problem, opts *Options, res *Result, logger *log.Logger) error {
	sc := opts.schedulerConfig(p)

	d, err := stage(ctx, StageScheduling, p.Name(), func(ctx context.Context) (bool, error) {
		s, err := a.SolveScheduling(ctx, p)
		if err != nil {
			return false, err
		}
		res.Schedule = s
		res.Reports.Schedule = schedule.Validate(p, s, sc)
		return res.Reports.Schedule.Feasible, nil
	})
	res.Stats.SchedulingTime = d
	if err != nil {
		return fmt.Errorf("scheduling via %s: %w", a.Name(), err)
	}

	d, err = stage(ctx, StagePlacement, p.Name(), func(ctx context.Context) (bool, error) {
		pl, err := a.SolvePlacement(ctx, p)
		if err != nil {
			return false, err
		}
		res.Placement = pl
		res.Reports.Placement = placement.Validate(p, pl)
		res.Wirelength = placement.Wirelength(p, pl)
		return res.Reports.Placement.Feasible, nil
	})
	res.Stats.PlacementTime = d
	if err != nil {
		return fmt.Errorf("placement via %s: %w", a.Name(), err)
	}
	logger.Info("external stages solved", "adapter", a.Name(), "makespan", res.Schedule.Makespan())

	if r.abort(opts, res, logger) {
		return nil
	}

	droplets, err := problem.DeriveDroplets(p, res.Schedule, res.Placement)
	if err != nil {
		return err
	}
	res.Droplets = droplets

	d, err = stage(ctx, StageRouting, p.Name(), func(ctx context.Context) (bool, error) {
		routes, err := a.SolveRouting(ctx, p, res.Placement, res.Schedule)
		if err != nil {
			return false, err
		}
		res.Routes = routes
		res.Reports.Routing = routing.Validate(p, res.Placement, res.Schedule, droplets, routes, opts.Routing)
		if !res.Reports.Routing.Feasible && opts.RepairRoutes {
			return r.repairExternal(ctx, p, opts, res, logger, a.Name())
		}
		res.RoutingStats = routing.ComputeStats(droplets, routes)
		for _, dr := range droplets {
			if len(routes[dr.ID]) == 0 {
				res.Failures = append(res.Failures, routing.Failure{
					Droplet: dr.ID,
					Reason:  routing.ReasonNoPath,
					Detail:  "not routed by " + a.Name(),
				})
			}
		}
		return res.Reports.Routing.Feasible, nil
	})
	res.Stats.RoutingTime = d
	if err != nil {
		return fmt.Errorf("routing via %s: %w", a.Name(), err)
	}
	return nil
}

// repairExternal replaces an invalid external route set with the output of
// the built-in repair loop, which keeps every valid, non-conflicting path.
func (r *Runner) repairExternal(ctx context.Context, p *problem.Problem, opts *Options, res *Result, logger *log.Logger, name string) (bool, error) {
	logger.Warn("repairing external routes",
		"adapter", name,
		"violations", len(res.Reports.Routing.Violations))
	router, err := routing.New(p, res.Placement, res.Schedule, opts.Routing)
	if err != nil {
		return false, err
	}
	fixed, err := router.Repair(ctx, res.Droplets, res.Routes)
	if err != nil {
		return false, err
	}
	res.Routes = fixed.Routes
	res.Failures = fixed.Failures
	res.RoutingStats = fixed.Stats
	res.Reports.Routing = fixed.Report
	return fixed.Report.Feasible, nil
}

// abort decides whether routing may run. It marks the result aborted or
// degraded and reports whether routing must be skipped.
func (r *Runner) abort(opts *Options, res *Result, logger *log.Logger) bool {
	var failed string
	switch {
	case !res.Reports.Schedule.Feasible:
		failed = "schedule infeasible: " + res.Reports.Schedule.Summary()
	case !res.Reports.Placement.Feasible:
		failed = "placement infeasible: " + res.Reports.Placement.Summary()
	default:
		return false
	}
	if opts.AllowDegraded {
		res.Degraded = true
		logger.Warn("continuing with degraded input", "reason", failed)
		return false
	}
	res.Aborted = true
	res.AbortReason = failed
	res.Reports.Routing = feasibility.Skipped(failed)
	logger.Warn("aborting before routing", "reason", failed)
	return true
}

// stage runs fn between the pipeline hooks and measures it.
func stage(ctx context.Context, name, problemName string, fn func(context.Context) (bool, error)) (time.Duration, error) {
	hooks := observability.Pipeline()
	sctx := hooks.OnStageStart(ctx, name, problemName)
	start := time.Now()
	feasible, err := fn(sctx)
	d := time.Since(start)
	hooks.OnStageComplete(sctx, name, problemName, d, feasible, err)
	return d, err
}

func summary(res *Result, d time.Duration) observability.RunSummary {
	name := ""
	if res.Problem != nil {
		name = res.Problem.Name()
	}
	return observability.RunSummary{
		Problem:  name,
		Method:   res.Method,
		Makespan: res.Makespan,
		Feasible: res.Feasible,
		Degraded: res.Degraded,
		Aborted:  res.Aborted,
		CacheHit: res.CacheHit,
		Duration: d,
	}
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func (r *Runner) keyer() cache.Keyer {
	if r.Keyer == nil {
		return cache.NewDefaultKeyer()
	}
	return r.Keyer
}

// lookup returns a cached result. Undecodable entries count as misses.
func (r *Runner) lookup(ctx context.Context, key string, p *problem.Problem) (*Result, bool) {
	if r.Cache == nil {
		return nil, false
	}
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, "result")
		return nil, false
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		observability.Cache().OnCacheMiss(ctx, "result")
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, "result")
	res.Problem = p
	res.CacheHit = true
	return &res, true
}

func (r *Runner) store(ctx context.Context, key string, res *Result) {
	if r.Cache == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLResult); err != nil {
		if r.Logger != nil {
			r.Logger.Debug("cache write failed", "error", err)
		}
		return
	}
	observability.Cache().OnCacheSet(ctx, "result", len(data))
}
