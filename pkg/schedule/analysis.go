package schedule

import (
	"github.com/matzehuels/dmfbsynth/pkg/problem"
)

// Analysis holds the per-operation timing bounds the priority functions are
// built from. All values ignore resource limits.
type Analysis struct {
	// ASAP is the earliest possible start of each operation.
	ASAP map[int]int

	// ALAP is the latest start that still achieves Length.
	ALAP map[int]int

	// Mobility is ALAP - ASAP.
	Mobility map[int]int

	// ToSink is the duration-weighted longest path from the operation to
	// any sink, including the operation itself.
	ToSink map[int]int

	// Length is the unconstrained makespan.
	Length int
}

// Analyze computes ASAP, ALAP, mobility and critical-path-to-sink values by
// forward and backward relaxation in topological order. transport is added
// between every dependency and its dependent.
func Analyze(p *problem.Problem, transport int) *Analysis {
	order := p.TopologicalOrder()
	a := &Analysis{
		ASAP:     p.EarliestStarts(transport),
		ALAP:     make(map[int]int, len(order)),
		Mobility: make(map[int]int, len(order)),
		ToSink:   make(map[int]int, len(order)),
	}

	for id, s := range a.ASAP {
		a.Length = max(a.Length, s+p.Duration(id))
	}

	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		d := p.Duration(id)
		succs := p.Successors(id)

		latestEnd := a.Length
		tail := 0
		for _, s := range succs {
			latestEnd = min(latestEnd, a.ALAP[s]-transport)
			tail = max(tail, transport+a.ToSink[s])
		}
		a.ALAP[id] = latestEnd - d
		a.ToSink[id] = d + tail
		a.Mobility[id] = a.ALAP[id] - a.ASAP[id]
	}
	return a
}

// key returns the sort key of an operation under a priority function;
// smaller keys are scheduled first.
func (a *Analysis) key(pr Priority, id int) int {
	switch pr {
	case PriorityALAP:
		return a.ALAP[id]
	case PriorityMobility:
		return a.Mobility[id]
	case PriorityCriticalPath:
		return -a.ToSink[id]
	default:
		return a.ASAP[id]
	}
}
