package placement

import (
	"sort"

	"github.com/matzehuels/dmfbsynth/pkg/feasibility"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
)

// Validate checks that every operation is placed, that every footprint lies
// on the chip and that no two footprints share a cell.
//
// Placement is time-agnostic, so all module footprints are treated as live
// at once.
func Validate(p *problem.Problem, pl problem.Placement) feasibility.Report {
	var b feasibility.Builder
	chip := p.Chip()

	var placed []int
	for _, id := range p.OperationIDs() {
		c, ok := pl[id]
		if !ok {
			b.Add(feasibility.KindMissing, []int{id}, "operation %d is not placed", id)
			continue
		}
		placed = append(placed, id)
		r := p.Footprint(id, c)
		if n := r.OutOfBounds(chip); n > 0 {
			b.Add(feasibility.KindBounds, []int{id},
				"operation %d at %v has %d cells outside the %dx%d chip", id, c, n, chip.Width, chip.Height)
		}
	}

	for i, a := range placed {
		ra := p.Footprint(a, pl[a])
		for _, c := range placed[i+1:] {
			if n := ra.Overlap(p.Footprint(c, pl[c])); n > 0 {
				b.Add(feasibility.KindOverlap, []int{a, c},
					"operations %d and %d overlap in %d cells", a, c, n)
			}
		}
	}

	var unknown []int
	for id := range pl {
		if !p.HasOperation(id) {
			unknown = append(unknown, id)
		}
	}
	sort.Ints(unknown)
	for _, id := range unknown {
		b.Add(feasibility.KindUnknown, []int{id}, "placement contains unknown operation %d", id)
	}

	return b.Report(feasibility.ReasonConstraintViolation)
}
