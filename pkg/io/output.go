package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/dmfbsynth/pkg/errors"
	"github.com/matzehuels/dmfbsynth/pkg/feasibility"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
	"github.com/matzehuels/dmfbsynth/pkg/routing"
)

// Output is the persisted result of a synthesis run. Placement entries are
// [x, y], schedule entries [start, end] and route steps [x, y, t].
type Output struct {
	ID          string                  `json:"id,omitempty"`
	Problem     string                  `json:"problem"`
	Method      string                  `json:"method,omitempty"`
	Placement   map[int][2]int          `json:"placement"`
	Schedule    map[int][2]int          `json:"schedule"`
	Routes      map[int][][3]int        `json:"routes"`
	Makespan    int                     `json:"makespan"`
	Timing      Timing                  `json:"timing"`
	Feasible    bool                    `json:"feasible"`
	Degraded    bool                    `json:"degraded,omitempty"`
	Aborted     bool                    `json:"aborted,omitempty"`
	AbortReason string                  `json:"abort_reason,omitempty"`
	Violations  []feasibility.Violation `json:"violations,omitempty"`
	Routing     *routing.Stats          `json:"routing,omitempty"`
	Unroutable  []int                   `json:"unroutable,omitempty"`
}

// Timing is the elapsed time per stage in seconds.
type Timing struct {
	Scheduling float64 `json:"scheduling"`
	Placement  float64 `json:"placement"`
	Routing    float64 `json:"routing"`
	Total      float64 `json:"total"`
}

// EncodeSolution fills the placement, schedule, routes and makespan fields.
func (o *Output) EncodeSolution(pl problem.Placement, s problem.Schedule, routes problem.Routes) {
	o.Placement = make(map[int][2]int, len(pl))
	for id, c := range pl {
		o.Placement[id] = [2]int{c.X, c.Y}
	}
	o.Schedule = make(map[int][2]int, len(s))
	for id, iv := range s {
		o.Schedule[id] = [2]int{iv.Start, iv.End}
	}
	o.Routes = make(map[int][][3]int, len(routes))
	for id, path := range routes {
		steps := make([][3]int, len(path))
		for i, st := range path {
			steps[i] = [3]int{st.X, st.Y, st.T}
		}
		o.Routes[id] = steps
	}
	o.Makespan = s.Makespan()
}

// PlacementValue converts the placement field back into a problem.Placement.
func (o *Output) PlacementValue() problem.Placement {
	if o.Placement == nil {
		return nil
	}
	pl := make(problem.Placement, len(o.Placement))
	for id, xy := range o.Placement {
		pl[id] = problem.Cell{X: xy[0], Y: xy[1]}
	}
	return pl
}

// ScheduleValue converts the schedule field back into a problem.Schedule.
func (o *Output) ScheduleValue() problem.Schedule {
	if o.Schedule == nil {
		return nil
	}
	s := make(problem.Schedule, len(o.Schedule))
	for id, se := range o.Schedule {
		s[id] = problem.Interval{Start: se[0], End: se[1]}
	}
	return s
}

// RoutesValue converts the routes field back into problem.Routes.
func (o *Output) RoutesValue() problem.Routes {
	if o.Routes == nil {
		return nil
	}
	routes := make(problem.Routes, len(o.Routes))
	for id, steps := range o.Routes {
		path := make(problem.Path, len(steps))
		for i, st := range steps {
			path[i] = problem.Step{X: st[0], Y: st[1], T: st[2]}
		}
		routes[id] = path
	}
	return routes
}

// WriteResult encodes o as indented JSON.
func WriteResult(o *Output, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(o); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadResult decodes a result written by [WriteResult] or an external
// tool that speaks the same format.
func ReadResult(r io.Reader) (*Output, error) {
	var o Output
	if err := json.NewDecoder(r).Decode(&o); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode result")
	}
	return &o, nil
}

// SaveResult writes o to a JSON file at path.
func SaveResult(o *Output, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteResult(o, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadResult reads a result file.
func LoadResult(path string) (*Output, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()
	return ReadResult(f)
}
