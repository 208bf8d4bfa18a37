package pipeline

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/dmfbsynth/pkg/adapter"
	"github.com/matzehuels/dmfbsynth/pkg/errors"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
)

// BatchItem is the outcome of one instance of a batch.
type BatchItem struct {
	Index   int
	Problem *problem.Problem
	Result  *Result
	Err     error
}

// Batch solves independent problems in parallel with at most workers runs
// at a time (GOMAXPROCS when workers <= 0). A failing instance records its
// error in its item and does not stop the others. Items are returned in
// input order; the error is non-nil only when ctx was cancelled.
func (r *Runner) Batch(ctx context.Context, problems []*problem.Problem, opts Options, workers int) ([]BatchItem, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	items := make([]BatchItem, len(problems))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, p := range problems {
		items[i] = BatchItem{Index: i, Problem: p}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return nil
			}
			items[i].Result, items[i].Err = r.Execute(ctx, p, opts)
			return nil
		})
	}
	_ = g.Wait()
	return items, ctx.Err()
}

// Comparison is the outcome of running one adapter in [Runner.Compare].
type Comparison struct {
	Adapter string
	Result  *Result
	Err     error
}

// Compare solves p once per named adapter. An empty list compares every
// registered adapter. Unavailable adapters are reported through
// Comparison.Err instead of falling back to the built-in one, so each entry
// really reflects the named backend.
func (r *Runner) Compare(ctx context.Context, p *problem.Problem, opts Options, names []string) ([]Comparison, error) {
	if len(names) == 0 {
		if r.Adapters == nil {
			names = []string{adapter.BuiltinName}
		} else {
			for _, a := range r.Adapters.All() {
				names = append(names, a.Name())
			}
		}
	}

	out := make([]Comparison, len(names))
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out[i].Adapter = name
		if err := r.available(ctx, name); err != nil {
			out[i].Err = err
			continue
		}
		o := opts
		o.Adapter = name
		out[i].Result, out[i].Err = r.Execute(ctx, p, o)
	}
	return out, nil
}

func (r *Runner) available(ctx context.Context, name string) error {
	if name == adapter.BuiltinName {
		return nil
	}
	if r.Adapters == nil {
		return errors.New(errors.ErrCodeAdapterUnavailable, "unknown adapter %q", name)
	}
	a, ok := r.Adapters.Lookup(name)
	if !ok {
		return errors.New(errors.ErrCodeAdapterUnavailable, "unknown adapter %q", name)
	}
	return a.Available(ctx)
}
