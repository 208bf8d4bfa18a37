// Package pipeline runs the complete synthesis flow for a problem:
// scheduling, placement, droplet derivation and routing.
//
// The same [Runner] backs the CLI, the HTTP server and batch jobs, so caching,
// logging and observability hooks behave identically everywhere.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.DefaultOptions()
//	opts.Scheduler.Priority = schedule.PriorityCriticalPath
//	res, err := runner.Execute(ctx, p, opts)
//	if err != nil {
//	    return err // structural problem, bad options or cancellation
//	}
//	if res.Aborted {
//	    fmt.Println(res.AbortReason)
//	}
//
// # Propagation
//
// Stage outputs are always validated. An infeasible schedule or placement
// aborts the run before routing unless [Options.AllowDegraded] is set, in
// which case routing runs anyway and the result is marked degraded. A run is
// feasible only when all three stage reports are.
//
// # Adapters
//
// When [Runner.Adapters] is set, [Options.Adapter] may name an external
// backend. Its stage outputs replace the built-in ones and are checked by the
// same validators. An unavailable backend falls through to the built-in
// algorithms with a warning.
package pipeline
