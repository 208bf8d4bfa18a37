package cache

// Keyer builds cache keys. Keys are namespaced by kind and end in a hash of
// everything the cached value depends on.
type Keyer interface {
	// ResultKey identifies a pipeline result for a problem and the
	// options it was solved with.
	ResultKey(problemHash string, opts any) string

	// RenderKey identifies a rendered image of a problem.
	RenderKey(problemHash, format string, detailed bool) string
}

// DefaultKeyer produces keys of the form "<kind>:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ResultKey hashes the problem hash together with the JSON encoding of
// opts, so any option change produces a different key.
func (DefaultKeyer) ResultKey(problemHash string, opts any) string {
	return hashKey("result", problemHash, opts)
}

func (DefaultKeyer) RenderKey(problemHash, format string, detailed bool) string {
	return hashKey("render", problemHash, format, detailed)
}

// ScopedKeyer wraps a Keyer with a prefix so that several tenants, for
// example the CLI and a shared server, can use one backend without key
// collisions.
//
//	serverKeyer := NewScopedKeyer(NewDefaultKeyer(), "server:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) ResultKey(problemHash string, opts any) string {
	return k.prefix + k.inner.ResultKey(problemHash, opts)
}

func (k *ScopedKeyer) RenderKey(problemHash, format string, detailed bool) string {
	return k.prefix + k.inner.RenderKey(problemHash, format, detailed)
}
