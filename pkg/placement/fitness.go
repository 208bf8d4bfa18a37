package placement

import (
	"math"

	"github.com/matzehuels/dmfbsynth/pkg/problem"
)

// layout is the problem data the GA evaluates individuals against,
// flattened into slices indexed by operation position.
type layout struct {
	chip   problem.Chip
	ids    []int
	pos    map[int]int
	width  []int
	height []int
	maxX   []int
	maxY   []int
	edges  [][2]int // index pairs
}

func newLayout(p *problem.Problem) *layout {
	ids := p.OperationIDs()
	chip := p.Chip()
	l := &layout{
		chip:   chip,
		ids:    ids,
		pos:    make(map[int]int, len(ids)),
		width:  make([]int, len(ids)),
		height: make([]int, len(ids)),
		maxX:   make([]int, len(ids)),
		maxY:   make([]int, len(ids)),
	}
	for i, id := range ids {
		m := p.ModuleOf(id)
		l.pos[id] = i
		l.width[i] = m.Width
		l.height[i] = m.Height
		l.maxX[i] = max(0, chip.Width-m.Width)
		l.maxY[i] = max(0, chip.Height-m.Height)
	}
	for _, e := range p.Edges() {
		l.edges = append(l.edges, [2]int{l.pos[e.From], l.pos[e.To]})
	}
	return l
}

func (l *layout) rect(genes []problem.Cell, i int) problem.Rect {
	return problem.Rect{X: genes[i].X, Y: genes[i].Y, W: l.width[i], H: l.height[i]}
}

// score is the decomposed objective of one individual.
type score struct {
	Fitness     float64
	Wirelength  float64
	Overlap     int
	OutOfBounds int
}

// Feasible reports whether the individual satisfies every hard constraint.
func (s score) Feasible() bool {
	return s.Overlap == 0 && s.OutOfBounds == 0
}

func (l *layout) evaluate(genes []problem.Cell, cfg Config) score {
	var s score
	for _, e := range l.edges {
		ax, ay := l.rect(genes, e[0]).Center()
		bx, by := l.rect(genes, e[1]).Center()
		s.Wirelength += math.Abs(ax-bx) + math.Abs(ay-by)
	}
	for i := range genes {
		ri := l.rect(genes, i)
		s.OutOfBounds += ri.OutOfBounds(l.chip)
		for j := i + 1; j < len(genes); j++ {
			s.Overlap += ri.Overlap(l.rect(genes, j))
		}
	}
	s.Fitness = -(s.Wirelength +
		cfg.OverlapPenalty*float64(s.Overlap) +
		cfg.BoundaryPenalty*float64(s.OutOfBounds))
	return s
}

func (l *layout) placement(genes []problem.Cell) problem.Placement {
	pl := make(problem.Placement, len(genes))
	for i, id := range l.ids {
		pl[id] = genes[i]
	}
	return pl
}

// Wirelength returns the summed center-to-center Manhattan distance over
// all precedence edges of a placement. Operations missing from pl are
// ignored.
func Wirelength(p *problem.Problem, pl problem.Placement) float64 {
	total := 0.0
	for _, e := range p.Edges() {
		a, okA := pl[e.From]
		b, okB := pl[e.To]
		if !okA || !okB {
			continue
		}
		ax, ay := p.Footprint(e.From, a).Center()
		bx, by := p.Footprint(e.To, b).Center()
		total += math.Abs(ax-bx) + math.Abs(ay-by)
	}
	return total
}
