// Package pkg provides the core libraries for dmfbsynth, physical synthesis
// of bioassays on digital microfluidic biochips (DMFBs).
//
// # Overview
//
// A bioassay is a DAG of operations (mix, dilute, detect, ...) bound to
// module types from a library. dmfbsynth turns it into a schedule, a module
// placement on the electrode grid and droplet routes between modules. The
// pkg directory is organized into four main areas:
//
//  1. [problem] - Domain model (chip, modules, operations, solutions)
//  2. [schedule], [placement], [routing] - The three synthesis stages
//  3. [pipeline] - Orchestration (schedule → place → route → validate)
//  4. [cache], [store], [observability] - Infrastructure
//
// # Architecture
//
// The data flow through dmfbsynth:
//
//	Problem file (JSON)
//	         ↓
//	    [io] package (decode + structural validation)
//	         ↓
//	    [schedule] package (list scheduling)
//	         ↓
//	    [placement] package (genetic algorithm)
//	         ↓
//	    [routing] package (time-expanded A* with droplet spacing)
//	         ↓
//	    [feasibility] reports + result file (JSON)
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/dmfbsynth/pkg/io"
//	    "github.com/matzehuels/dmfbsynth/pkg/pipeline"
//	)
//
//	p, _ := io.LoadProblem("pcr.json")
//	runner := pipeline.NewRunner(nil, nil, nil)
//	res, _ := runner.Execute(ctx, p, pipeline.DefaultOptions())
//	_ = io.SaveResult(res.Output(), "pcr.result.json")
//
// # Main Packages
//
// ## Domain
//
// [problem] - Immutable problem model. Validates module references,
// duplicate IDs and cycles on construction and derives the droplet
// transfers implied by the dependencies.
//
// [feasibility] - Violation kinds and per-stage reports shared by all
// validators.
//
// [errors] - Coded errors (INVALID_FORMAT, CYCLIC_DEPENDENCY, ...) used
// across the CLI and the HTTP API.
//
// ## Synthesis
//
// [schedule] - Resource-constrained list scheduling with ASAP, ALAP,
// mobility and critical-path priorities.
//
// [placement] - Time-agnostic module placement by a seeded genetic
// algorithm with parallel fitness evaluation.
//
// [routing] - Prioritized droplet routing over (x, y, t) with static
// module obstacles and dynamic spacing between droplets.
//
// ## Orchestration
//
// [pipeline] - Runs the stages, validates every stage output and decides
// between aborting and degraded routing. Batches and backend comparison
// live here too.
//
// [adapter] - External synthesis tools speaking the result JSON format,
// registered next to the built-in algorithms.
//
// ## Infrastructure
//
// [cache] - Result cache keyed by problem and options hash. File, Redis
// and null implementations.
//
// [store] - Persistent result records for batches. File and MongoDB
// implementations.
//
// [observability] - Pipeline and cache hooks, Prometheus metrics and
// OpenTelemetry tracing.
//
// [config] - TOML configuration file.
//
// [io] - Problem and result JSON, Graphviz export.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...              # All tests
//	go test ./pkg/routing/...      # Specific package
//	go test -run Example ./pkg/... # Examples only
package pkg
