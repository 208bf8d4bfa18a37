package routing

import (
	"sort"

	"github.com/matzehuels/dmfbsynth/pkg/feasibility"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
)

// =============================================================================
// Static obstacles
// =============================================================================

// footprint is a placed module that blocks its cells while its operation
// runs.
type footprint struct {
	op     int
	rect   problem.Rect
	active problem.Interval
}

// obstacles indexes module footprints by cell.
type obstacles struct {
	chip   problem.Chip
	list   []footprint
	byCell map[problem.Cell][]int
}

// newObstacles collects the footprint of every operation that is both
// placed and scheduled.
func newObstacles(p *problem.Problem, pl problem.Placement, s problem.Schedule) *obstacles {
	o := &obstacles{chip: p.Chip(), byCell: make(map[problem.Cell][]int)}
	for _, id := range p.OperationIDs() {
		c, placed := pl[id]
		iv, scheduled := s[id]
		if !placed || !scheduled || iv.Len() <= 0 {
			continue
		}
		r := p.Footprint(id, c)
		idx := len(o.list)
		o.list = append(o.list, footprint{op: id, rect: r, active: iv})
		for y := r.Y; y < r.Y+r.H; y++ {
			for x := r.X; x < r.X+r.W; x++ {
				cell := problem.Cell{X: x, Y: y}
				o.byCell[cell] = append(o.byCell[cell], idx)
			}
		}
	}
	return o
}

// blocker returns the operation whose footprint covers (x, y) at time t,
// ignoring the droplet's own source and target modules.
func (o *obstacles) blocker(d problem.Droplet, x, y, t int) (int, bool) {
	for _, idx := range o.byCell[problem.Cell{X: x, Y: y}] {
		f := o.list[idx]
		if f.op == d.Source || f.op == d.Target {
			continue
		}
		if t >= f.active.Start && t < f.active.End {
			return f.op, true
		}
	}
	return 0, false
}

// permanent reports whether a foreign footprint covers (x, y) for the whole
// window [from, to].
func (o *obstacles) permanent(d problem.Droplet, x, y, from, to int) bool {
	for _, idx := range o.byCell[problem.Cell{X: x, Y: y}] {
		f := o.list[idx]
		if f.op == d.Source || f.op == d.Target {
			continue
		}
		if f.active.Start <= from && f.active.End > to {
			return true
		}
	}
	return false
}

// reachable runs a breadth-first search from the droplet's origin to its
// destination that only avoids cells blocked during the entire window.
// A false result means no route exists regardless of timing.
func (o *obstacles) reachable(d problem.Droplet) bool {
	from, to := d.Departure, d.Deadline
	start, goal := d.Origin, d.Destination
	seen := map[problem.Cell]bool{start: true}
	queue := []problem.Cell{start}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == goal {
			return true
		}
		for _, mv := range moves[1:] {
			n := problem.Cell{X: c.X + mv[0], Y: c.Y + mv[1]}
			if seen[n] || !o.chip.Contains(n.X, n.Y) || o.permanent(d, n.X, n.Y, from, to) {
				continue
			}
			seen[n] = true
			queue = append(queue, n)
		}
	}
	return false
}

// moves lists the wait move followed by the four grid neighbours.
var moves = [5][2]int{{0, 0}, {1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// =============================================================================
// Reservations
// =============================================================================

// home is the source module a droplet is split off from.
type home struct {
	source int
	rect   problem.Rect
}

// homes maps droplet IDs to their source modules. Droplets split off the
// same module do not repel each other while one of them is still inside
// it.
type homes map[int]home

func homesOf(p *problem.Problem, droplets []problem.Droplet) homes {
	h := make(homes, len(droplets))
	for _, d := range droplets {
		rect := problem.Rect{X: d.Origin.X, Y: d.Origin.Y, W: 1, H: 1}
		if p.HasOperation(d.Source) {
			rect = p.Footprint(d.Source, d.Origin)
		}
		h[d.ID] = home{source: d.Source, rect: rect}
	}
	return h
}

// shared reports whether droplets a and b, standing on ca and cb, come from
// the same module and at least one of them is still inside it.
func (h homes) shared(a, b int, ca, cb problem.Cell) bool {
	ha, ok := h[a]
	if !ok {
		return false
	}
	hb, ok := h[b]
	if !ok || ha.source != hb.source {
		return false
	}
	return ha.rect.Contains(ca.X, ca.Y) || ha.rect.Contains(cb.X, cb.Y)
}

// table records which droplet occupies each (x, y, t) of committed paths.
type table struct {
	cells map[problem.Step]int
	homes homes
}

func newTable(h homes) *table {
	return &table{cells: make(map[problem.Step]int), homes: h}
}

func (tb *table) add(id int, path problem.Path) {
	for _, s := range path {
		tb.cells[s] = id
	}
}

func (tb *table) remove(id int, path problem.Path) {
	for _, s := range path {
		if tb.cells[s] == id {
			delete(tb.cells, s)
		}
	}
}

// free reports whether droplet id can stand on (x, y) at t without
// coming within spacing of another droplet.
func (tb *table) free(id, x, y, t, spacing int) bool {
	at := problem.Cell{X: x, Y: y}
	for dy := -spacing; dy <= spacing; dy++ {
		for dx := -spacing; dx <= spacing; dx++ {
			other, ok := tb.cells[problem.Step{X: x + dx, Y: y + dy, T: t}]
			if !ok || other == id || tb.homes.shared(id, other, at, problem.Cell{X: x + dx, Y: y + dy}) {
				continue
			}
			return false
		}
	}
	return true
}

// swaps reports whether moving from (x, y) at t to (nx, ny) at t+1 would
// exchange cells with another droplet.
func (tb *table) swaps(id, x, y, nx, ny, t int) bool {
	if x == nx && y == ny {
		return false
	}
	other, ok := tb.cells[problem.Step{X: nx, Y: ny, T: t}]
	if !ok || other == id || tb.homes.shared(id, other, problem.Cell{X: x, Y: y}, problem.Cell{X: nx, Y: ny}) {
		return false
	}
	back, ok := tb.cells[problem.Step{X: x, Y: y, T: t + 1}]
	return ok && back == other
}

// fits reports whether a path found against an older snapshot is still
// compatible with the current reservations.
func (tb *table) fits(id int, path problem.Path, spacing int) bool {
	for i, s := range path {
		if !tb.free(id, s.X, s.Y, s.T, spacing) {
			return false
		}
		if i > 0 && tb.swaps(id, path[i-1].X, path[i-1].Y, s.X, s.Y, path[i-1].T) {
			return false
		}
	}
	return true
}

// =============================================================================
// Conflicts
// =============================================================================

// conflict is a pair of droplets that collide or come too close. A < B.
type conflict struct {
	A, B int
	T    int
	Kind feasibility.Kind
}

// findConflicts returns every colliding or adjacent droplet pair once per
// kind, at the earliest time step it occurs, sorted by (A, B, Kind).
// Siblings leaving their common source module are not conflicts.
func findConflicts(routes problem.Routes, spacing int, h homes) []conflict {
	ids := make([]int, 0, len(routes))
	occ := make(map[problem.Step][]int)
	for id, path := range routes {
		ids = append(ids, id)
		for _, s := range path {
			occ[s] = append(occ[s], id)
		}
	}
	sort.Ints(ids)

	type pairKey struct {
		a, b int
		kind feasibility.Kind
	}
	found := make(map[pairKey]int)
	note := func(a, b, t int, kind feasibility.Kind) {
		if a > b {
			a, b = b, a
		}
		k := pairKey{a, b, kind}
		if prev, ok := found[k]; !ok || t < prev {
			found[k] = t
		}
	}

	for _, id := range ids {
		path := routes[id]
		for i, s := range path {
			for dy := -spacing; dy <= spacing; dy++ {
				for dx := -spacing; dx <= spacing; dx++ {
					for _, other := range occ[problem.Step{X: s.X + dx, Y: s.Y + dy, T: s.T}] {
						if other <= id || h.shared(id, other, s.Cell(), problem.Cell{X: s.X + dx, Y: s.Y + dy}) {
							continue
						}
						kind := feasibility.KindAdjacency
						if dx == 0 && dy == 0 {
							kind = feasibility.KindCollision
						}
						note(id, other, s.T, kind)
					}
				}
			}
			if spacing == 0 && i > 0 {
				prev := path[i-1]
				for _, other := range occ[problem.Step{X: s.X, Y: s.Y, T: prev.T}] {
					if other == id || (s.X == prev.X && s.Y == prev.Y) || h.shared(id, other, prev.Cell(), s.Cell()) {
						continue
					}
					for _, back := range occ[problem.Step{X: prev.X, Y: prev.Y, T: s.T}] {
						if back == other {
							note(id, other, prev.T, feasibility.KindCollision)
						}
					}
				}
			}
		}
	}

	out := make([]conflict, 0, len(found))
	for k, t := range found {
		out = append(out, conflict{A: k.a, B: k.b, T: t, Kind: k.kind})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		if out[i].B != out[j].B {
			return out[i].B < out[j].B
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}
