// Package schedule assigns start and end times to the operations of a
// synthesis problem.
//
// [Solve] implements resource-constrained list scheduling: operations become
// ready once their dependencies finish, ready operations are ranked by a
// [Priority] function computed from an [Analysis] of the graph, and each is
// bound to a free instance of its module type. Module types without a limit
// in [Config.Instances] never make an operation wait.
//
//	res, err := schedule.Solve(p, schedule.Config{
//	    Priority:  schedule.PriorityCriticalPath,
//	    Instances: map[string]int{"mixer": 2},
//	})
//	fmt.Println(res.Makespan)
//
// [Validate] checks any schedule, produced here or elsewhere, and returns a
// feasibility report rather than an error.
package schedule
