package schedule

import (
	"sort"

	"github.com/matzehuels/dmfbsynth/pkg/feasibility"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
)

// Validate checks a schedule against the problem and the instance limits
// of cfg: every operation is scheduled exactly with its duration, starts no
// earlier than time 0, starts after all of its dependencies have ended, and
// no module type ever runs more operations at once than it has instances.
//
// Validate is pure and idempotent; it works on schedules from any source,
// including external adapters.
func Validate(p *problem.Problem, s problem.Schedule, cfg Config) feasibility.Report {
	var b feasibility.Builder

	for _, id := range p.OperationIDs() {
		iv, ok := s[id]
		if !ok {
			b.Add(feasibility.KindMissing, []int{id}, "operation %d is not scheduled", id)
			continue
		}
		if iv.Start < 0 {
			b.Add(feasibility.KindBounds, []int{id}, "operation %d starts at negative time %d", id, iv.Start)
		}
		if d := p.Duration(id); iv.Len() != d {
			b.Add(feasibility.KindDuration, []int{id},
				"operation %d runs for %d, want %d", id, iv.Len(), d)
		}
		for _, dep := range p.Predecessors(id) {
			div, ok := s[dep]
			if !ok {
				continue
			}
			if div.End > iv.Start {
				b.Add(feasibility.KindPrecedence, []int{dep, id},
					"operation %d starts at %d before dependency %d ends at %d", id, iv.Start, dep, div.End)
			}
		}
	}

	var unknown []int
	for id := range s {
		if !p.HasOperation(id) {
			unknown = append(unknown, id)
		}
	}
	sort.Ints(unknown)
	for _, id := range unknown {
		b.Add(feasibility.KindUnknown, []int{id}, "schedule contains unknown operation %d", id)
	}

	for _, typ := range p.ModuleTypes() {
		limit := cfg.Limit(typ)
		if limit <= 0 {
			continue
		}
		if peak, at, ops := peakUsage(p, s, typ); peak > limit {
			b.Add(feasibility.KindResource, ops,
				"module type %q runs %d operations at t=%d, limit is %d", typ, peak, at, limit)
		}
	}

	return b.Report(feasibility.ReasonConstraintViolation)
}

// peakUsage sweeps the start and end events of one module type and returns
// the highest concurrency, the first time it occurs and the operations
// active then.
func peakUsage(p *problem.Problem, s problem.Schedule, typ string) (int, int, []int) {
	type event struct {
		t, delta, id int
	}
	var events []event
	for _, id := range p.OperationIDs() {
		op, _ := p.Operation(id)
		iv, ok := s[id]
		if !ok || op.ModuleType != typ || iv.Len() <= 0 {
			continue
		}
		events = append(events, event{iv.Start, 1, id}, event{iv.End, -1, id})
	}
	// Ends sort before starts at the same time: intervals are half-open.
	sort.Slice(events, func(i, j int) bool {
		if events[i].t != events[j].t {
			return events[i].t < events[j].t
		}
		if events[i].delta != events[j].delta {
			return events[i].delta < events[j].delta
		}
		return events[i].id < events[j].id
	})

	active := make(map[int]bool)
	peak, at := 0, 0
	var peakOps []int
	for _, e := range events {
		if e.delta > 0 {
			active[e.id] = true
		} else {
			delete(active, e.id)
		}
		if len(active) > peak {
			peak, at = len(active), e.t
			peakOps = peakOps[:0]
			for id := range active {
				peakOps = append(peakOps, id)
			}
			sort.Ints(peakOps)
		}
	}
	return peak, at, peakOps
}
