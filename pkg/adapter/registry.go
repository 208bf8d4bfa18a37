package adapter

import (
	"context"
	"sync"

	"github.com/matzehuels/dmfbsynth/pkg/errors"
)

// Auto asks [Registry.Select] for the first available adapter in
// registration order.
const Auto = "auto"

// Registry is an ordered list of adapters with the built-in one as the
// final fallback. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	builtin  Adapter
	adapters []Adapter
}

// NewRegistry creates a registry whose fallback is builtin. External
// adapters are tried in the order given.
func NewRegistry(builtin Adapter, external ...Adapter) *Registry {
	r := &Registry{builtin: builtin}
	for _, a := range external {
		r.Register(a)
	}
	return r
}

// Register appends an adapter, replacing an earlier one of the same name.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.adapters {
		if existing.Name() == a.Name() {
			r.adapters[i] = a
			return
		}
	}
	r.adapters = append(r.adapters, a)
}

// Builtin returns the fallback adapter.
func (r *Registry) Builtin() Adapter {
	return r.builtin
}

// Lookup finds an adapter by name, including the built-in one.
func (r *Registry) Lookup(name string) (Adapter, bool) {
	if name == r.builtin.Name() {
		return r.builtin, true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.adapters {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// All returns the registered adapters followed by the built-in one.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.adapters)+1)
	out = append(out, r.adapters...)
	return append(out, r.builtin)
}

// Selection is the outcome of [Registry.Select].
type Selection struct {
	Adapter Adapter

	// Fallback is set when the requested adapter could not be used and
	// the built-in one was chosen instead; it explains why.
	Fallback error
}

// Select picks the adapter for a run. An empty name or the built-in name
// selects the built-in adapter. [Auto] selects the first available
// registered adapter. Any other name selects that adapter if it is
// available. In every other case the built-in adapter is returned with
// Selection.Fallback set.
func (r *Registry) Select(ctx context.Context, name string) Selection {
	switch name {
	case "", r.builtin.Name():
		return Selection{Adapter: r.builtin}
	case Auto:
		for _, a := range r.All() {
			if a.Available(ctx) == nil {
				return Selection{Adapter: a}
			}
		}
		return Selection{Adapter: r.builtin}
	}

	a, ok := r.Lookup(name)
	if !ok {
		return Selection{
			Adapter:  r.builtin,
			Fallback: errors.New(errors.ErrCodeAdapterUnavailable, "unknown adapter %q", name),
		}
	}
	if err := a.Available(ctx); err != nil {
		return Selection{Adapter: r.builtin, Fallback: err}
	}
	return Selection{Adapter: a}
}

// Status reports the availability of one adapter.
type Status struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Statuses probes every adapter in order.
func (r *Registry) Statuses(ctx context.Context) []Status {
	all := r.All()
	out := make([]Status, len(all))
	for i, a := range all {
		out[i] = Status{Name: a.Name(), Available: true}
		if err := a.Available(ctx); err != nil {
			out[i].Available = false
			out[i].Reason = errors.UserMessage(err)
		}
	}
	return out
}
