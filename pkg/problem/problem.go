package problem

import (
	"fmt"
	"slices"
	"sort"

	"github.com/matzehuels/dmfbsynth/pkg/errors"
)

// Operation is one step of the assay: it runs on an instance of ModuleType
// and may only start after all of its Dependencies have finished.
//
// Duration overrides the module's ExecTime when set.
type Operation struct {
	ID           int    `json:"id"`
	Kind         string `json:"op_type"`
	ModuleType   string `json:"module_type"`
	Dependencies []int  `json:"dependencies"`
	Duration     *int   `json:"duration,omitempty"`
}

// Edge is a precedence constraint From -> To. Every edge carries one droplet
// from the module of From to the module of To.
type Edge struct {
	From int
	To   int
}

// Problem is a validated synthesis instance: a chip, a module catalog and an
// acyclic graph of operations.
//
// A Problem is immutable after [New] returns. Accessors hand out copies, so
// a single Problem can be shared freely between goroutines and pipeline runs.
type Problem struct {
	name    string
	chip    Chip
	modules map[string]Module
	ops     []Operation // sorted by ID
	index   map[int]int
	preds   map[int][]int
	succs   map[int][]int
	order   []int
}

// New validates the instance and returns an immutable Problem.
//
// Validation fails fast with a structured error on the first problem found:
// non-positive chip dimensions, malformed modules, an empty operation list,
// duplicate operation IDs, unknown module types, unknown or repeated
// dependencies, negative durations, and dependency cycles. Cycles are
// detected with Kahn's algorithm; the error lists the operations that could
// not be ordered.
func New(name string, chip Chip, modules map[string]Module, ops []Operation) (*Problem, error) {
	if name != "" {
		if err := errors.ValidateName("problem", name); err != nil {
			return nil, err
		}
	}
	if chip.Width <= 0 || chip.Height <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidProblem,
			"chip dimensions must be positive, got %dx%d", chip.Width, chip.Height)
	}
	if len(ops) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidProblem, "problem has no operations")
	}

	p := &Problem{
		name:    name,
		chip:    chip,
		modules: make(map[string]Module, len(modules)),
		ops:     make([]Operation, 0, len(ops)),
		index:   make(map[int]int, len(ops)),
		preds:   make(map[int][]int, len(ops)),
		succs:   make(map[int][]int, len(ops)),
	}

	for key, m := range modules {
		if m.Name == "" {
			m.Name = key
		}
		if m.Name != key {
			return nil, errors.New(errors.ErrCodeInvalidProblem,
				"module %q: catalog key does not match name %q", key, m.Name)
		}
		if !m.Category.Valid() {
			return nil, errors.New(errors.ErrCodeInvalidProblem,
				"module %q: unknown category %q", key, m.Category)
		}
		if m.Width < 1 || m.Height < 1 {
			return nil, errors.New(errors.ErrCodeInvalidProblem,
				"module %q: dimensions must be at least 1x1, got %dx%d", key, m.Width, m.Height)
		}
		if m.ExecTime < 0 {
			return nil, errors.New(errors.ErrCodeInvalidProblem,
				"module %q: execution time must not be negative", key)
		}
		p.modules[key] = m
	}

	for _, op := range ops {
		if _, dup := p.index[op.ID]; dup {
			return nil, errors.New(errors.ErrCodeDuplicateOperation, "duplicate operation id %d", op.ID)
		}
		if _, ok := p.modules[op.ModuleType]; !ok {
			return nil, errors.New(errors.ErrCodeUnknownModule,
				"operation %d: unknown module type %q", op.ID, op.ModuleType)
		}
		if op.Duration != nil && *op.Duration < 0 {
			return nil, errors.New(errors.ErrCodeInvalidProblem,
				"operation %d: duration must not be negative", op.ID)
		}
		op.Dependencies = slices.Clone(op.Dependencies)
		if op.Duration != nil {
			d := *op.Duration
			op.Duration = &d
		}
		p.index[op.ID] = -1
		p.ops = append(p.ops, op)
	}

	sort.Slice(p.ops, func(i, j int) bool { return p.ops[i].ID < p.ops[j].ID })
	for i, op := range p.ops {
		p.index[op.ID] = i
	}

	for _, op := range p.ops {
		seen := make(map[int]bool, len(op.Dependencies))
		for _, dep := range op.Dependencies {
			if dep == op.ID {
				return nil, errors.New(errors.ErrCodeCyclicDependency, "operation %d depends on itself", op.ID)
			}
			if _, ok := p.index[dep]; !ok {
				return nil, errors.New(errors.ErrCodeUnknownOperation,
					"operation %d: unknown dependency %d", op.ID, dep)
			}
			if seen[dep] {
				return nil, errors.New(errors.ErrCodeInvalidProblem,
					"operation %d: dependency %d listed twice", op.ID, dep)
			}
			seen[dep] = true
			p.preds[op.ID] = append(p.preds[op.ID], dep)
			p.succs[dep] = append(p.succs[dep], op.ID)
		}
	}
	for id := range p.preds {
		sort.Ints(p.preds[id])
	}
	for id := range p.succs {
		sort.Ints(p.succs[id])
	}

	order, err := p.topoSort()
	if err != nil {
		return nil, err
	}
	p.order = order
	return p, nil
}

// topoSort runs Kahn's algorithm, always releasing the smallest ready ID
// first so the order is deterministic.
func (p *Problem) topoSort() ([]int, error) {
	indeg := make(map[int]int, len(p.ops))
	var ready []int
	for _, op := range p.ops {
		indeg[op.ID] = len(p.preds[op.ID])
		if indeg[op.ID] == 0 {
			ready = append(ready, op.ID)
		}
	}

	order := make([]int, 0, len(p.ops))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, s := range p.succs[id] {
			indeg[s]--
			if indeg[s] == 0 {
				pos := sort.SearchInts(ready, s)
				ready = slices.Insert(ready, pos, s)
			}
		}
	}

	if len(order) != len(p.ops) {
		var stuck []int
		for _, op := range p.ops {
			if indeg[op.ID] > 0 {
				stuck = append(stuck, op.ID)
			}
		}
		return nil, errors.New(errors.ErrCodeCyclicDependency,
			"dependency cycle among operations %v", stuck)
	}
	return order, nil
}

// Name returns the instance name (may be empty).
func (p *Problem) Name() string { return p.name }

// Chip returns the chip dimensions.
func (p *Problem) Chip() Chip { return p.chip }

// NumOperations returns the number of operations.
func (p *Problem) NumOperations() int { return len(p.ops) }

// Operations returns a copy of all operations ordered by ID.
func (p *Problem) Operations() []Operation {
	out := make([]Operation, len(p.ops))
	for i, op := range p.ops {
		out[i] = op
		out[i].Dependencies = slices.Clone(op.Dependencies)
	}
	return out
}

// OperationIDs returns all operation IDs in ascending order.
func (p *Problem) OperationIDs() []int {
	ids := make([]int, len(p.ops))
	for i, op := range p.ops {
		ids[i] = op.ID
	}
	return ids
}

// Operation returns the operation with the given ID.
func (p *Problem) Operation(id int) (Operation, bool) {
	i, ok := p.index[id]
	if !ok {
		return Operation{}, false
	}
	op := p.ops[i]
	op.Dependencies = slices.Clone(op.Dependencies)
	return op, true
}

// HasOperation reports whether id names an operation.
func (p *Problem) HasOperation(id int) bool {
	_, ok := p.index[id]
	return ok
}

// Modules returns a copy of the module catalog.
func (p *Problem) Modules() map[string]Module {
	out := make(map[string]Module, len(p.modules))
	for k, v := range p.modules {
		out[k] = v
	}
	return out
}

// ModuleTypes returns the catalog names in sorted order.
func (p *Problem) ModuleTypes() []string {
	names := make([]string, 0, len(p.modules))
	for k := range p.modules {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ModuleOf returns the catalog entry an operation runs on.
// It panics if id is not an operation of p.
func (p *Problem) ModuleOf(id int) Module {
	return p.modules[p.mustOp(id).ModuleType]
}

// Duration returns the effective duration of an operation: its explicit
// duration if set, otherwise the module's execution time.
// It panics if id is not an operation of p.
func (p *Problem) Duration(id int) int {
	op := p.mustOp(id)
	if op.Duration != nil {
		return *op.Duration
	}
	return p.modules[op.ModuleType].ExecTime
}

// Footprint returns the rectangle an operation's module covers when its
// top-left corner is placed at c.
func (p *Problem) Footprint(id int, c Cell) Rect {
	m := p.ModuleOf(id)
	return Rect{X: c.X, Y: c.Y, W: m.Width, H: m.Height}
}

// Predecessors returns the sorted dependencies of id.
func (p *Problem) Predecessors(id int) []int {
	return slices.Clone(p.preds[id])
}

// Successors returns the sorted dependents of id.
func (p *Problem) Successors(id int) []int {
	return slices.Clone(p.succs[id])
}

// Sources returns operations without dependencies.
func (p *Problem) Sources() []int {
	var out []int
	for _, op := range p.ops {
		if len(p.preds[op.ID]) == 0 {
			out = append(out, op.ID)
		}
	}
	return out
}

// Sinks returns operations nothing depends on.
func (p *Problem) Sinks() []int {
	var out []int
	for _, op := range p.ops {
		if len(p.succs[op.ID]) == 0 {
			out = append(out, op.ID)
		}
	}
	return out
}

// Edges returns every precedence edge, ordered by target then source.
func (p *Problem) Edges() []Edge {
	var out []Edge
	for _, op := range p.ops {
		for _, dep := range p.preds[op.ID] {
			out = append(out, Edge{From: dep, To: op.ID})
		}
	}
	return out
}

// TopologicalOrder returns the operations in dependency order. Among
// operations that become ready together the smaller ID comes first.
func (p *Problem) TopologicalOrder() []int {
	return slices.Clone(p.order)
}

// EarliestStarts computes the unconstrained as-soon-as-possible start of
// every operation, inserting gap time units between a dependency's end and
// its dependent's start.
func (p *Problem) EarliestStarts(gap int) map[int]int {
	start := make(map[int]int, len(p.ops))
	for _, id := range p.order {
		s := 0
		for _, dep := range p.preds[id] {
			s = max(s, start[dep]+p.Duration(dep)+gap)
		}
		start[id] = s
	}
	return start
}

// CriticalPathLength returns the length of the longest duration-weighted
// path through the graph, which is a lower bound on any schedule's makespan.
func (p *Problem) CriticalPathLength() int {
	start := p.EarliestStarts(0)
	length := 0
	for id, s := range start {
		length = max(length, s+p.Duration(id))
	}
	return length
}

// EstimateResourceUsage returns, per module type, the peak number of
// operations running at once under the unconstrained ASAP schedule. It is
// the number of instances needed to reach the critical-path makespan.
func (p *Problem) EstimateResourceUsage() map[string]int {
	start := p.EarliestStarts(0)

	type event struct {
		t     int
		delta int
	}
	byType := make(map[string][]event)
	for _, op := range p.ops {
		d := p.Duration(op.ID)
		if _, ok := byType[op.ModuleType]; !ok {
			byType[op.ModuleType] = nil
		}
		if d == 0 {
			continue
		}
		s := start[op.ID]
		byType[op.ModuleType] = append(byType[op.ModuleType], event{s, 1}, event{s + d, -1})
	}

	usage := make(map[string]int, len(byType))
	for typ, events := range byType {
		sort.Slice(events, func(i, j int) bool {
			if events[i].t != events[j].t {
				return events[i].t < events[j].t
			}
			return events[i].delta < events[j].delta
		})
		cur, peak := 0, 0
		for _, e := range events {
			cur += e.delta
			peak = max(peak, cur)
		}
		usage[typ] = max(peak, 1)
	}
	return usage
}

// TotalModuleArea returns the summed footprint of all operations, the
// minimum chip area a placement without overlap needs.
func (p *Problem) TotalModuleArea() int {
	total := 0
	for _, op := range p.ops {
		total += p.modules[op.ModuleType].Area()
	}
	return total
}

func (p *Problem) mustOp(id int) Operation {
	i, ok := p.index[id]
	if !ok {
		panic(fmt.Sprintf("problem: unknown operation %d", id))
	}
	return p.ops[i]
}
