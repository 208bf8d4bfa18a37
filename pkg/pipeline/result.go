package pipeline

import (
	"time"

	"github.com/matzehuels/dmfbsynth/pkg/feasibility"
	dio "github.com/matzehuels/dmfbsynth/pkg/io"
	"github.com/matzehuels/dmfbsynth/pkg/placement"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
	"github.com/matzehuels/dmfbsynth/pkg/routing"
	"github.com/matzehuels/dmfbsynth/pkg/schedule"
)

// Result contains the outputs of a pipeline run. It is JSON-encodable so
// the runner can cache it whole.
type Result struct {
	ID          string           `json:"id"`
	Problem     *problem.Problem `json:"-"`
	ProblemHash string           `json:"problem_hash"`
	Method      string           `json:"method"`

	Schedule  problem.Schedule  `json:"schedule"`
	Placement problem.Placement `json:"placement"`
	Routes    problem.Routes    `json:"routes"`
	Droplets  []problem.Droplet `json:"droplets,omitempty"`
	Makespan  int               `json:"makespan"`

	Stats   Stats   `json:"stats"`
	Reports Reports `json:"reports"`

	Utilization      map[string]schedule.Utilization `json:"utilization,omitempty"`
	Wirelength       float64                         `json:"wirelength"`
	RoutingStats     routing.Stats                   `json:"routing_stats"`
	Failures         []routing.Failure               `json:"failures,omitempty"`
	PlacementHistory []placement.GenerationStats     `json:"placement_history,omitempty"`

	Feasible    bool   `json:"feasible"`
	Degraded    bool   `json:"degraded,omitempty"`
	Aborted     bool   `json:"aborted,omitempty"`
	AbortReason string `json:"abort_reason,omitempty"`
	CacheHit    bool   `json:"-"`
}

// Stats contains pipeline execution statistics.
type Stats struct {
	SchedulingTime time.Duration `json:"scheduling_time"`
	PlacementTime  time.Duration `json:"placement_time"`
	RoutingTime    time.Duration `json:"routing_time"`
	TotalTime      time.Duration `json:"total_time"`
}

// Reports holds the feasibility report of every stage.
type Reports struct {
	Schedule  feasibility.Report `json:"schedule"`
	Placement feasibility.Report `json:"placement"`
	Routing   feasibility.Report `json:"routing"`
}

// Violations returns the violations of all stages in stage order.
func (r Reports) Violations() []feasibility.Violation {
	var out []feasibility.Violation
	out = append(out, r.Schedule.Violations...)
	out = append(out, r.Placement.Violations...)
	return append(out, r.Routing.Violations...)
}

// Unroutable returns the IDs of droplets without a route.
func (r *Result) Unroutable() []int {
	ids := make([]int, len(r.Failures))
	for i, f := range r.Failures {
		ids[i] = f.Droplet
	}
	return ids
}

// Output converts the result into the persisted output format.
func (r *Result) Output() *dio.Output {
	out := &dio.Output{
		ID:          r.ID,
		Method:      r.Method,
		Feasible:    r.Feasible,
		Degraded:    r.Degraded,
		Aborted:     r.Aborted,
		AbortReason: r.AbortReason,
		Violations:  r.Reports.Violations(),
		Unroutable:  r.Unroutable(),
		Timing: dio.Timing{
			Scheduling: r.Stats.SchedulingTime.Seconds(),
			Placement:  r.Stats.PlacementTime.Seconds(),
			Routing:    r.Stats.RoutingTime.Seconds(),
			Total:      r.Stats.TotalTime.Seconds(),
		},
	}
	if r.Problem != nil {
		out.Problem = r.Problem.Name()
	}
	out.EncodeSolution(r.Placement, r.Schedule, r.Routes)
	if !r.Aborted {
		stats := r.RoutingStats
		out.Routing = &stats
	}
	return out
}
