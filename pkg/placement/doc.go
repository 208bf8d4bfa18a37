// Package placement positions the module of every operation on the chip.
//
// [Solve] runs a seeded genetic algorithm that minimizes total wirelength
// (center-to-center Manhattan distance over the dependency edges) plus
// penalties for overlapping modules and cells outside the chip:
//
//	res, err := placement.Solve(ctx, p, placement.DefaultConfig())
//	if !res.Feasible {
//	    log.Warn("no legal placement", "report", res.Report.Summary())
//	}
//
// The same seed always produces the same placement, independently of the
// number of evaluation workers.
package placement
