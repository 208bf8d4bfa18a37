package routing

import (
	"container/heap"
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/dmfbsynth/pkg/problem"
)

// state is a search node key.
type state struct {
	x, y, t int
}

type node struct {
	state
	g, f   int
	parent int // arena index of the parent, -1 for the root
	seq    int // arena index of this node
}

// openList is a min-heap on f, preferring deeper nodes (larger g) and then
// earlier insertion on ties.
type openList []*node

func (q openList) Len() int { return len(q) }

func (q openList) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	if q[i].g != q[j].g {
		return q[i].g > q[j].g
	}
	return q[i].seq < q[j].seq
}

func (q openList) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *openList) Push(x any) { *q = append(*q, x.(*node)) }

func (q *openList) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// attempt is the outcome of one single-droplet search. Path is nil when the
// search failed, in which case Reason and Detail explain why.
type attempt struct {
	Path       problem.Path
	Reason     Reason
	Detail     string
	Expansions int
}

// checkEvery is how many expansions pass between context and clock checks.
const checkEvery = 1024

// search finds the earliest-arriving path for d that respects the static
// obstacles and the committed reservations in tb. The path starts at the
// origin at Departure, so time spent held in the source module is recorded
// as wait steps. It returns an error only when ctx is done.
func (r *Router) search(ctx context.Context, d problem.Droplet, tb *table) (attempt, error) {
	chip := r.obstacles.chip
	ox, oy := d.Origin.X, d.Origin.Y
	gx, gy := d.Destination.X, d.Destination.Y

	if !chip.Contains(ox, oy) || !chip.Contains(gx, gy) {
		return attempt{Reason: ReasonNoPath, Detail: "origin or destination lies outside the chip"}, nil
	}
	lower := d.Origin.Manhattan(d.Destination)
	if d.Departure+lower > d.Deadline {
		return attempt{
			Reason: ReasonDeadlineExceeded,
			Detail: fmt.Sprintf("needs at least %d steps, window is %d", lower, d.Window()),
		}, nil
	}

	if !r.open(d, tb, ox, oy, d.Departure) {
		return attempt{
			Reason: ReasonConflict,
			Detail: fmt.Sprintf("origin %v is taken by another droplet at t=%d", d.Origin, d.Departure),
		}, nil
	}

	h := func(x, y int) int { return abs(x-gx) + abs(y-gy) }

	var (
		arena   []*node
		open    openList
		closed  = make(map[state]struct{})
		started = time.Now()
		seq     int
	)
	push := func(s state, g, parent int) {
		n := &node{state: s, g: g, f: g + h(s.x, s.y), parent: parent, seq: seq}
		seq++
		arena = append(arena, n)
		heap.Push(&open, n)
	}
	push(state{x: ox, y: oy, t: d.Departure}, 0, -1)

	expansions := 0
	for open.Len() > 0 {
		if expansions%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return attempt{Expansions: expansions}, err
			}
			if r.cfg.Timeout > 0 && time.Since(started) > r.cfg.Timeout {
				return attempt{
					Reason:     ReasonBudgetExhausted,
					Detail:     fmt.Sprintf("search timed out after %s", r.cfg.Timeout),
					Expansions: expansions,
				}, nil
			}
		}

		n := heap.Pop(&open).(*node)
		if _, done := closed[n.state]; done {
			continue
		}
		closed[n.state] = struct{}{}
		expansions++
		if expansions > r.cfg.MaxExpansions {
			return attempt{
				Reason:     ReasonBudgetExhausted,
				Detail:     fmt.Sprintf("exceeded %d node expansions", r.cfg.MaxExpansions),
				Expansions: expansions,
			}, nil
		}

		idx := n.seq
		if n.x == gx && n.y == gy {
			return attempt{Path: reconstruct(arena, idx), Expansions: expansions}, nil
		}

		nt := n.t + 1
		for _, mv := range moves {
			nx, ny := n.x+mv[0], n.y+mv[1]
			if !chip.Contains(nx, ny) || nt+h(nx, ny) > d.Deadline {
				continue
			}
			if !r.open(d, tb, nx, ny, nt) || tb.swaps(d.ID, n.x, n.y, nx, ny, n.t) {
				continue
			}
			next := state{x: nx, y: ny, t: nt}
			if _, done := closed[next]; done {
				continue
			}
			push(next, n.g+1, idx)
		}
	}

	if !r.obstacles.reachable(d) {
		return attempt{
			Reason:     ReasonNoPath,
			Detail:     "destination is walled off by active modules for the whole window",
			Expansions: expansions,
		}, nil
	}
	return attempt{
		Reason:     ReasonDeadlineExceeded,
		Detail:     fmt.Sprintf("no conflict-free path arrives by t=%d", d.Deadline),
		Expansions: expansions,
	}, nil
}

// open reports whether droplet d may occupy (x, y) at t.
func (r *Router) open(d problem.Droplet, tb *table, x, y, t int) bool {
	if _, blocked := r.obstacles.blocker(d, x, y, t); blocked {
		return false
	}
	return tb.free(d.ID, x, y, t, r.cfg.Spacing)
}

// reconstruct walks parent links back from idx and returns the trajectory
// in time order.
func reconstruct(arena []*node, idx int) problem.Path {
	var rev problem.Path
	for i := idx; i >= 0; i = arena[i].parent {
		n := arena[i]
		rev = append(rev, problem.Step{X: n.x, Y: n.y, T: n.t})
	}
	path := make(problem.Path, len(rev))
	for i, s := range rev {
		path[len(rev)-1-i] = s
	}
	return path
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
