package problem

import (
	"fmt"
	"maps"
	"slices"
)

// Interval is the half-open time window [Start, End) an operation runs in.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns End - Start.
func (iv Interval) Len() int { return iv.End - iv.Start }

// Overlaps reports whether two intervals share a time unit.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start < o.End && o.Start < iv.End
}

// Schedule maps operation IDs to their time windows.
type Schedule map[int]Interval

// Makespan returns the latest end time in the schedule.
func (s Schedule) Makespan() int {
	m := 0
	for _, iv := range s {
		m = max(m, iv.End)
	}
	return m
}

// Clone returns an independent copy.
func (s Schedule) Clone() Schedule { return maps.Clone(s) }

// Placement maps operation IDs to the top-left cell of their module.
type Placement map[int]Cell

// Clone returns an independent copy.
func (pl Placement) Clone() Placement { return maps.Clone(pl) }

// Step is a droplet position at a discrete time.
type Step struct {
	X int `json:"x"`
	Y int `json:"y"`
	T int `json:"t"`
}

// Cell drops the time component.
func (s Step) Cell() Cell { return Cell{X: s.X, Y: s.Y} }

func (s Step) String() string {
	return fmt.Sprintf("(%d,%d@%d)", s.X, s.Y, s.T)
}

// Path is a time-ordered droplet trajectory. Consecutive steps advance time
// by exactly one and move at most one cell horizontally or vertically.
type Path []Step

// Moves returns the number of time steps the path spans.
func (p Path) Moves() int {
	if len(p) == 0 {
		return 0
	}
	return len(p) - 1
}

// Departure returns the time the droplet enters the grid.
func (p Path) Departure() int {
	if len(p) == 0 {
		return 0
	}
	return p[0].T
}

// Arrival returns the time the droplet reaches the end of the path.
func (p Path) Arrival() int {
	if len(p) == 0 {
		return 0
	}
	return p[len(p)-1].T
}

// Routes maps droplet IDs to their paths.
type Routes map[int]Path

// Clone returns an independent deep copy.
func (r Routes) Clone() Routes {
	out := make(Routes, len(r))
	for id, p := range r {
		out[id] = slices.Clone(p)
	}
	return out
}

// Droplet is a fluid transfer between two dependent operations. It may
// leave Origin no earlier than Departure and must reach Destination no
// later than Deadline.
type Droplet struct {
	ID          int  `json:"id"`
	Source      int  `json:"source"`
	Target      int  `json:"target"`
	Origin      Cell `json:"origin"`
	Destination Cell `json:"destination"`
	Departure   int  `json:"departure"`
	Deadline    int  `json:"deadline"`
}

// Window returns the number of time units available for the transfer.
func (d Droplet) Window() int { return d.Deadline - d.Departure }

// DeriveDroplets builds one droplet per precedence edge u -> v of p: it
// starts at the placed position of u when u ends and must arrive at the
// placed position of v by the time v starts. Droplet IDs follow the order
// of [Problem.Edges].
//
// The function is pure: it neither reads nor writes any state besides its
// arguments. It returns an error if the schedule or placement does not
// cover an operation that takes part in an edge.
func DeriveDroplets(p *Problem, s Schedule, pl Placement) ([]Droplet, error) {
	edges := p.Edges()
	out := make([]Droplet, 0, len(edges))
	for i, e := range edges {
		src, ok := s[e.From]
		if !ok {
			return nil, fmt.Errorf("derive droplets: operation %d is not scheduled", e.From)
		}
		dst, ok := s[e.To]
		if !ok {
			return nil, fmt.Errorf("derive droplets: operation %d is not scheduled", e.To)
		}
		from, ok := pl[e.From]
		if !ok {
			return nil, fmt.Errorf("derive droplets: operation %d is not placed", e.From)
		}
		to, ok := pl[e.To]
		if !ok {
			return nil, fmt.Errorf("derive droplets: operation %d is not placed", e.To)
		}
		out = append(out, Droplet{
			ID:          i,
			Source:      e.From,
			Target:      e.To,
			Origin:      from,
			Destination: to,
			Departure:   src.End,
			Deadline:    dst.Start,
		})
	}
	return out, nil
}
