package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles Prometheus metrics for the pipeline, the result cache
// and the HTTP API. It implements PipelineHooks, CacheHooks and HTTPHooks.
type Collector struct {
	gatherer prometheus.Gatherer

	StageDurations *prometheus.HistogramVec
	StageResults   *prometheus.CounterVec
	Runs           *prometheus.CounterVec
	Makespan       prometheus.Histogram
	CacheEvents    *prometheus.CounterVec
	CacheBytes     prometheus.Counter
	HTTPRequests   *prometheus.CounterVec
	HTTPDurations  *prometheus.HistogramVec
}

// NewCollector registers metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	stageDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dmfb_stage_duration_seconds",
		Help:    "Duration of a synthesis stage in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	}, []string{"stage"}), "dmfb_stage_duration_seconds")
	if err != nil {
		return nil, err
	}
	stageResults, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dmfb_stage_results_total",
		Help: "Synthesis stage outcomes, labeled by stage and result (feasible, infeasible, error).",
	}, []string{"stage", "result"}), "dmfb_stage_results_total")
	if err != nil {
		return nil, err
	}
	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dmfb_runs_total",
		Help: "Pipeline runs, labeled by method, outcome and cache hit.",
	}, []string{"method", "outcome", "cached"}), "dmfb_runs_total")
	if err != nil {
		return nil, err
	}
	makespan, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dmfb_makespan_steps",
		Help:    "Makespan of completed runs in time steps.",
		Buckets: prometheus.ExponentialBuckets(8, 2, 10),
	}), "dmfb_makespan_steps")
	if err != nil {
		return nil, err
	}
	cacheEvents, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dmfb_cache_events_total",
		Help: "Cache lookups and writes, labeled by key type and event (hit, miss, set).",
	}, []string{"key_type", "event"}), "dmfb_cache_events_total")
	if err != nil {
		return nil, err
	}
	cacheBytes, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dmfb_cache_written_bytes_total",
		Help: "Bytes written to the cache.",
	}), "dmfb_cache_written_bytes_total")
	if err != nil {
		return nil, err
	}
	httpRequests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dmfb_http_requests_total",
		Help: "HTTP requests handled, labeled by method, route and status code.",
	}, []string{"method", "route", "code"}), "dmfb_http_requests_total")
	if err != nil {
		return nil, err
	}
	httpDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dmfb_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method", "route"}), "dmfb_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:       gatherer,
		StageDurations: stageDurations,
		StageResults:   stageResults,
		Runs:           runs,
		Makespan:       makespan,
		CacheEvents:    cacheEvents,
		CacheBytes:     cacheBytes,
		HTTPRequests:   httpRequests,
		HTTPDurations:  httpDurations,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) OnStageStart(ctx context.Context, _, _ string) context.Context { return ctx }

func (c *Collector) OnStageComplete(_ context.Context, stage, _ string, d time.Duration, feasible bool, err error) {
	if c == nil {
		return
	}
	result := "feasible"
	switch {
	case err != nil:
		result = "error"
	case !feasible:
		result = "infeasible"
	}
	c.StageDurations.WithLabelValues(stage).Observe(d.Seconds())
	c.StageResults.WithLabelValues(stage, result).Inc()
}

func (c *Collector) OnRunComplete(_ context.Context, run RunSummary) {
	if c == nil {
		return
	}
	c.Runs.WithLabelValues(run.Method, outcome(run), strconv.FormatBool(run.CacheHit)).Inc()
	if !run.Aborted {
		c.Makespan.Observe(float64(run.Makespan))
	}
}

func outcome(run RunSummary) string {
	switch {
	case run.Aborted:
		return "aborted"
	case run.Degraded:
		return "degraded"
	case run.Feasible:
		return "feasible"
	default:
		return "infeasible"
	}
}

func (c *Collector) OnCacheHit(_ context.Context, keyType string) {
	c.CacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (c *Collector) OnCacheMiss(_ context.Context, keyType string) {
	c.CacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (c *Collector) OnCacheSet(_ context.Context, keyType string, size int) {
	c.CacheEvents.WithLabelValues(keyType, "set").Inc()
	c.CacheBytes.Add(float64(size))
}

func (c *Collector) OnResponse(_ context.Context, method, route string, statusCode int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.HTTPDurations.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ PipelineHooks = (*Collector)(nil)
	_ CacheHooks    = (*Collector)(nil)
	_ HTTPHooks     = (*Collector)(nil)
)

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}
