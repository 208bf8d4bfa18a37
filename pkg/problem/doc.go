// Package problem defines the synthesis instance and the value types every
// synthesis stage produces.
//
// # Instances
//
// A [Problem] bundles a rectangular [Chip], a catalog of [Module] types and a
// directed acyclic graph of [Operation] values. Problems are created with
// [New] (or the fluent [Builder]) and never change afterwards:
//
//	p, err := problem.New("pcr", problem.Chip{Width: 16, Height: 16}, modules, ops)
//	if errors.Is(err, errors.ErrCodeCyclicDependency) {
//	    // reject the input
//	}
//
// Structural queries such as [Problem.TopologicalOrder],
// [Problem.CriticalPathLength] and [Problem.EstimateResourceUsage] are
// computed from the validated graph.
//
// # Solutions
//
// [Schedule], [Placement] and [Routes] are plain maps keyed by operation or
// droplet ID. [DeriveDroplets] turns a schedule and a placement into the
// transfer requests the router has to satisfy; droplets are always derived
// and never stored on the problem.
package problem
