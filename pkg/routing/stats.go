package routing

import "github.com/matzehuels/dmfbsynth/pkg/problem"

// Stats summarizes a route set.
type Stats struct {
	Total           int     `json:"total"`
	Routed          int     `json:"routed"`
	SuccessRate     float64 `json:"success_rate"`
	AvgPathLength   float64 `json:"avg_path_length"`
	TotalPathLength int     `json:"total_path_length"`
	MaxTime         int     `json:"max_time"`
	Expansions      int     `json:"expansions,omitempty"`
}

// ComputeStats measures the routes of the given droplets. Path length is
// the number of time steps a path spans, waits included. An empty droplet
// set has a success rate of 1.
func ComputeStats(droplets []problem.Droplet, routes problem.Routes) Stats {
	st := Stats{Total: len(droplets), SuccessRate: 1}
	for _, d := range droplets {
		path, ok := routes[d.ID]
		if !ok || len(path) == 0 {
			continue
		}
		st.Routed++
		st.TotalPathLength += path.Moves()
		st.MaxTime = max(st.MaxTime, path.Arrival())
	}
	if st.Total > 0 {
		st.SuccessRate = float64(st.Routed) / float64(st.Total)
	}
	if st.Routed > 0 {
		st.AvgPathLength = float64(st.TotalPathLength) / float64(st.Routed)
	}
	return st
}
