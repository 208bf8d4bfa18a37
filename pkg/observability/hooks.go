// Package observability provides hooks for metrics, tracing, and logging.
//
// Libraries emit events through globally registered hooks; the defaults are
// no-ops, so the synthesis packages carry no hard dependency on a metrics or
// tracing backend. The CLI and server register real implementations at
// startup:
//
//	collector, _ := observability.NewCollector(prometheus.NewRegistry())
//	observability.SetPipelineHooks(observability.ChainPipeline(collector, observability.NewTracer()))
//	observability.SetCacheHooks(collector)
//
// Libraries call hooks around each stage:
//
//	ctx = observability.Pipeline().OnStageStart(ctx, "placement", p.Name)
//	// ... run the GA ...
//	observability.Pipeline().OnStageComplete(ctx, "placement", p.Name, elapsed, report.Feasible, nil)
package observability

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// RunSummary describes a finished pipeline run.
type RunSummary struct {
	Problem  string
	Method   string
	Makespan int
	Feasible bool
	Degraded bool
	Aborted  bool
	CacheHit bool
	Duration time.Duration
}

// PipelineHooks receives events from the synthesis pipeline.
type PipelineHooks interface {
	// OnStageStart is called before scheduling, placement or routing. The
	// returned context is passed to OnStageComplete and to the stage itself.
	OnStageStart(ctx context.Context, stage, problem string) context.Context

	// OnStageComplete is called after a stage returns.
	OnStageComplete(ctx context.Context, stage, problem string, duration time.Duration, feasible bool, err error)

	// OnRunComplete is called once per Execute, including cache hits.
	OnRunComplete(ctx context.Context, run RunSummary)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP server.
type HTTPHooks interface {
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnStageStart(ctx context.Context, _, _ string) context.Context { return ctx }
func (NoopPipelineHooks) OnStageComplete(context.Context, string, string, time.Duration, bool, error) {
}
func (NoopPipelineHooks) OnRunComplete(context.Context, RunSummary) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Fan-out
// =============================================================================

type pipelineChain []PipelineHooks

// ChainPipeline fans pipeline events out to several hooks in order. Nil
// entries are skipped.
func ChainPipeline(hooks ...PipelineHooks) PipelineHooks {
	var c pipelineChain
	for _, h := range hooks {
		if h != nil {
			c = append(c, h)
		}
	}
	return c
}

func (c pipelineChain) OnStageStart(ctx context.Context, stage, problem string) context.Context {
	for _, h := range c {
		ctx = h.OnStageStart(ctx, stage, problem)
	}
	return ctx
}

func (c pipelineChain) OnStageComplete(ctx context.Context, stage, problem string, d time.Duration, feasible bool, err error) {
	for _, h := range c {
		h.OnStageComplete(ctx, stage, problem, d, feasible, err)
	}
}

func (c pipelineChain) OnRunComplete(ctx context.Context, run RunSummary) {
	for _, h := range c {
		h.OnRunComplete(ctx, run)
	}
}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	httpHooks     HTTPHooks     = NoopHTTPHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}

// =============================================================================
// HTTP middleware
// =============================================================================

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware reports every request to the registered HTTP hooks. route
// extracts a low-cardinality route label from the request; when nil the
// URL path is used.
func Middleware(route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			label := r.URL.Path
			if route != nil {
				if l := route(r); l != "" {
					label = l
				}
			}
			HTTP().OnResponse(r.Context(), r.Method, label, rec.status, time.Since(start))
		})
	}
}
