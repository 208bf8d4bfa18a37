// Package server exposes the synthesis pipeline over HTTP.
//
// Routes:
//
//	POST /v1/solve      problem JSON in, result JSON out
//	POST /v1/validate   problem JSON in, {"valid", "error"} out
//	GET  /healthz       liveness and build information
//	GET  /metrics       Prometheus metrics when a collector is configured
//
// /v1/solve accepts the query parameters priority, generations, seed and
// degraded, which override the server defaults for one request.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/dmfbsynth/pkg/buildinfo"
	"github.com/matzehuels/dmfbsynth/pkg/errors"
	dio "github.com/matzehuels/dmfbsynth/pkg/io"
	"github.com/matzehuels/dmfbsynth/pkg/observability"
	"github.com/matzehuels/dmfbsynth/pkg/pipeline"
	"github.com/matzehuels/dmfbsynth/pkg/schedule"
)

// MaxBodyBytes caps the size of a request body.
const MaxBodyBytes = 4 << 20

// Server serves the pipeline. Requests share the runner and its cache.
type Server struct {
	Runner    *pipeline.Runner
	Options   pipeline.Options
	Collector *observability.Collector
	Logger    *log.Logger

	// Timeout bounds a single solve; zero means no limit.
	Timeout time.Duration
}

// New creates a server. A nil logger discards output.
func New(runner *pipeline.Runner, opts pipeline.Options, collector *observability.Collector, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, logger)
	}
	return &Server{Runner: runner, Options: opts, Collector: collector, Logger: logger}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observability.Middleware(routePattern))

	r.Get("/healthz", s.health)
	if s.Collector != nil {
		r.Method(http.MethodGet, "/metrics", s.Collector.Handler())
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/solve", s.solve)
		r.Post("/validate", s.validate)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.Logger.Info("serving", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.Logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// routePattern labels metrics with the matched chi pattern so that
// unmatched paths do not create new series.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return "unmatched"
}

// =============================================================================
// Handlers
// =============================================================================

type healthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Build: buildinfo.Get()})
}

func (s *Server) solve(w http.ResponseWriter, r *http.Request) {
	p, err := dio.ReadProblem(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	opts, err := s.requestOptions(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ctx := r.Context()
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	res, err := s.Runner.Execute(ctx, p, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("X-Cache", cacheHeader(res.CacheHit))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := dio.WriteResult(res.Output(), w); err != nil {
		s.Logger.Warn("write response", "error", err)
	}
}

type validateResponse struct {
	Valid bool   `json:"valid"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	_, err := dio.ReadProblem(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusOK, validateResponse{
			Code:  string(errors.GetCode(err)),
			Error: errors.UserMessage(err),
		})
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: true})
}

// requestOptions applies the query parameters on top of the server options.
func (s *Server) requestOptions(r *http.Request) (pipeline.Options, error) {
	opts := s.Options
	opts.Logger = s.Logger
	q := r.URL.Query()

	if v := q.Get("priority"); v != "" {
		pr, err := schedule.ParsePriority(v)
		if err != nil {
			return opts, err
		}
		opts.Scheduler.Priority = pr
	}
	if v := q.Get("generations"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "generations")
		}
		opts.Placement.Generations = n
	}
	if v := q.Get("seed"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "seed")
		}
		opts.Placement.Seed = n
	}
	if v := q.Get("degraded"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, errors.Wrap(errors.ErrCodeInvalidInput, err, "degraded")
		}
		opts.AllowDegraded = b
	}
	return opts, nil
}

// =============================================================================
// Responses
// =============================================================================

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		s.Logger.Debug("request rejected", "path", r.URL.Path, "error", err)
	}
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, status, errorResponse{Code: string(code), Error: errors.UserMessage(err)})
}

// statusFor maps error codes to HTTP status codes.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case stderrors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case stderrors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.IsStructural(err):
		return http.StatusUnprocessableEntity
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidConfig:
		return http.StatusBadRequest
	case errors.ErrCodeAdapterUnavailable:
		return http.StatusServiceUnavailable
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func cacheHeader(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
