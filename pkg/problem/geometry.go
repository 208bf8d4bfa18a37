package problem

import "fmt"

// Chip is the rectangular electrode grid. Cells are addressed by integer
// (x, y) with 0 <= x < Width and 0 <= y < Height.
type Chip struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Contains reports whether (x, y) is a cell of the chip.
func (c Chip) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.Width && y < c.Height
}

// Area returns the number of electrodes on the chip.
func (c Chip) Area() int {
	return c.Width * c.Height
}

// Cell is a grid coordinate.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Manhattan returns the L1 distance between two cells.
func (c Cell) Manhattan(o Cell) int {
	return abs(c.X-o.X) + abs(c.Y-o.Y)
}

// Chebyshev returns the L-infinity distance between two cells. Two cells
// with Chebyshev distance 1 are neighbours in the 8-neighbourhood.
func (c Cell) Chebyshev(o Cell) int {
	return max(abs(c.X-o.X), abs(c.Y-o.Y))
}

// Rect is an axis-aligned footprint anchored at its top-left cell.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether the cell (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && y >= r.Y && x < r.X+r.W && y < r.Y+r.H
}

// Overlap returns the number of cells shared by r and o.
func (r Rect) Overlap(o Rect) int {
	w := min(r.X+r.W, o.X+o.W) - max(r.X, o.X)
	h := min(r.Y+r.H, o.Y+o.H) - max(r.Y, o.Y)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// OutOfBounds returns the number of cells of r that fall outside the chip.
func (r Rect) OutOfBounds(c Chip) int {
	inside := r.Overlap(Rect{X: 0, Y: 0, W: c.Width, H: c.Height})
	return r.W*r.H - inside
}

// Center returns the geometric center of the rectangle.
func (r Rect) Center() (float64, float64) {
	return float64(r.X) + float64(r.W)/2, float64(r.Y) + float64(r.H)/2
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
