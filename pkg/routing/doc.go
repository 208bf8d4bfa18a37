// Package routing moves droplets between placed modules.
//
// Each droplet is searched with A* over (x, y, t): a step moves to one of
// the four neighbouring cells or waits in place. Every path starts at the
// droplet's origin at its departure time, so waiting to leave the source
// module reserves the origin cell like any other step. Module
// footprints block their cells only while their operation runs, and
// already-routed droplets reserve their cells plus a spacing zone around
// them at every time step.
//
// Droplets are routed in order of deadline, so earlier transfers get the
// direct paths and later ones wait or detour:
//
//	r, err := routing.New(p, placement, schedule, routing.DefaultConfig())
//	res, err := r.Route(ctx, droplets)
//	for _, f := range res.Failures {
//	    fmt.Println(f)
//	}
package routing
