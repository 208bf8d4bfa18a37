package schedule

import (
	"math"
	"sort"

	"github.com/matzehuels/dmfbsynth/pkg/errors"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
)

// Utilization summarizes how busy the instances of one module type were.
type Utilization struct {
	UsedTime  int     `json:"used_time"`
	Instances int     `json:"instances"`
	Ratio     float64 `json:"ratio"`
}

// Result is the output of [Solve].
type Result struct {
	Schedule    problem.Schedule
	Bindings    map[int]int // operation ID -> instance index within its module type
	Makespan    int
	Utilization map[string]Utilization
	Analysis    *Analysis
	Priority    Priority
}

// Solve runs event-driven list scheduling.
//
// Simulated time advances from 0. At each time point the ready set holds
// every unscheduled operation whose dependencies have all ended at least
// TransportTime units earlier. Ready operations are taken in priority order
// (ties broken by ascending ID) and each one is bound to the lowest-index
// instance of its module type that is free at that time; operations that
// find no free instance wait for the next event. Time then jumps to the
// next operation end or ready time.
//
// Solve only fails on invalid configuration; every acyclic problem can be
// scheduled.
func Solve(p *problem.Problem, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pr := cfg.priority()
	analysis := Analyze(p, cfg.TransportTime)

	ids := p.OperationIDs()
	n := len(ids)

	sched := make(problem.Schedule, n)
	bindings := make(map[int]int, n)
	remaining := make(map[int]int, n) // unscheduled dependency count
	readyAt := make(map[int]int, n)
	for _, id := range ids {
		remaining[id] = len(p.Predecessors(id))
	}

	// freeAt[type][instance] is the time the instance becomes available.
	freeAt := make(map[string][]int)
	for _, typ := range p.ModuleTypes() {
		if limit := cfg.Limit(typ); limit > 0 {
			freeAt[typ] = make([]int, limit)
		}
	}

	isReady := func(id int, t int) bool {
		_, done := sched[id]
		return !done && remaining[id] == 0 && readyAt[id] <= t
	}

	t := 0
	for len(sched) < n {
		for progress := true; progress; {
			progress = false

			var ready []int
			for _, id := range ids {
				if isReady(id, t) {
					ready = append(ready, id)
				}
			}
			sort.SliceStable(ready, func(i, j int) bool {
				ki, kj := analysis.key(pr, ready[i]), analysis.key(pr, ready[j])
				if ki != kj {
					return ki < kj
				}
				return ready[i] < ready[j]
			})

			for _, id := range ready {
				op, _ := p.Operation(id)
				typ := op.ModuleType
				inst := freeInstance(freeAt[typ], t)
				if inst < 0 {
					if cfg.Limit(typ) > 0 {
						continue
					}
					freeAt[typ] = append(freeAt[typ], 0)
					inst = len(freeAt[typ]) - 1
				}

				end := t + p.Duration(id)
				sched[id] = problem.Interval{Start: t, End: end}
				bindings[id] = inst
				freeAt[typ][inst] = end
				progress = true

				for _, s := range p.Successors(id) {
					remaining[s]--
					readyAt[s] = max(readyAt[s], end+cfg.TransportTime)
				}
			}
		}

		if len(sched) == n {
			break
		}

		next := math.MaxInt
		for _, id := range ids {
			if _, done := sched[id]; !done && remaining[id] == 0 && readyAt[id] > t {
				next = min(next, readyAt[id])
			}
		}
		for _, slots := range freeAt {
			for _, f := range slots {
				if f > t {
					next = min(next, f)
				}
			}
		}
		if next == math.MaxInt {
			return nil, errors.New(errors.ErrCodeInternal, "list scheduler stalled at t=%d", t)
		}
		t = next
	}

	res := &Result{
		Schedule: sched,
		Bindings: bindings,
		Makespan: sched.Makespan(),
		Analysis: analysis,
		Priority: pr,
	}
	res.Utilization = utilization(p, res, freeAt)
	return res, nil
}

// freeInstance returns the lowest-index instance available at t, or -1.
func freeInstance(slots []int, t int) int {
	for i, f := range slots {
		if f <= t {
			return i
		}
	}
	return -1
}

func utilization(p *problem.Problem, res *Result, freeAt map[string][]int) map[string]Utilization {
	used := make(map[string]int)
	for id, iv := range res.Schedule {
		op, _ := p.Operation(id)
		used[op.ModuleType] += iv.Len()
	}

	out := make(map[string]Utilization, len(freeAt))
	for typ, slots := range freeAt {
		u := Utilization{UsedTime: used[typ], Instances: len(slots)}
		if res.Makespan > 0 && len(slots) > 0 {
			u.Ratio = float64(u.UsedTime) / float64(res.Makespan*len(slots))
		}
		out[typ] = u
	}
	return out
}
