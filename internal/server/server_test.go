package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/dmfbsynth/pkg/cache"
	dio "github.com/matzehuels/dmfbsynth/pkg/io"
	"github.com/matzehuels/dmfbsynth/pkg/observability"
	"github.com/matzehuels/dmfbsynth/pkg/pipeline"
)

const chainJSON = `{
  "name": "chain",
  "chip_width": 10,
  "chip_height": 10,
  "modules": {
    "mixer": {"name": "mixer", "type": "mixer", "width": 2, "height": 2, "exec_time": 5}
  },
  "operations": [
    {"id": 1, "op_type": "mix", "module_type": "mixer", "dependencies": []},
    {"id": 2, "op_type": "mix", "module_type": "mixer", "dependencies": [1]},
    {"id": 3, "op_type": "mix", "module_type": "mixer", "dependencies": [2]}
  ]
}`

func testServer(t *testing.T) (*Server, *observability.Collector) {
	t.Helper()
	collector, err := observability.NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	observability.SetHTTPHooks(collector)
	t.Cleanup(observability.Reset)

	opts := pipeline.DefaultOptions()
	opts.Placement.PopulationSize = 20
	opts.Placement.Generations = 20
	opts.TransportTime = pipeline.TransportNone
	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
	return New(runner, opts, collector, nil), collector
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := testServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Status != "ok" || got.Build.Version == "" {
		t.Errorf("health = %+v", got)
	}
}

func TestSolve(t *testing.T) {
	s, _ := testServer(t)
	rec := do(t, s.Handler(), http.MethodPost, "/v1/solve?seed=3", chainJSON)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("X-Cache = %q, want MISS", got)
	}
	out, err := dio.ReadResult(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if out.Problem != "chain" || out.Makespan != 15 || !out.Feasible {
		t.Errorf("output = problem %q makespan %d feasible %v; want chain, 15, true", out.Problem, out.Makespan, out.Feasible)
	}
	if len(out.Routes) != 2 {
		t.Errorf("routes = %d, want 2", len(out.Routes))
	}
}

func TestSolveErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
		status int
		code   string
	}{
		{"malformed json", "/v1/solve", "{", http.StatusUnprocessableEntity, "INVALID_FORMAT"},
		{"cyclic", "/v1/solve", strings.Replace(chainJSON, `"dependencies": []`, `"dependencies": [3]`, 1), http.StatusUnprocessableEntity, "CYCLIC_DEPENDENCY"},
		{"bad seed", "/v1/solve?seed=x", chainJSON, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad degraded", "/v1/solve?degraded=maybe", chainJSON, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad priority", "/v1/solve?priority=random", chainJSON, http.StatusBadRequest, "INVALID_CONFIG"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := testServer(t)
			rec := do(t, s.Handler(), http.MethodPost, tt.target, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.status, rec.Body)
			}
			var got errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			if got.Code != tt.code {
				t.Errorf("code = %q, want %q", got.Code, tt.code)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		valid bool
		code  string
	}{
		{"valid", chainJSON, true, ""},
		{"unknown module", strings.Replace(chainJSON, `"module_type": "mixer", "dependencies": [1]`, `"module_type": "heater", "dependencies": [1]`, 1), false, "UNKNOWN_MODULE"},
		{"malformed", "[]", false, "INVALID_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := testServer(t)
			rec := do(t, s.Handler(), http.MethodPost, "/v1/validate", tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			var got validateResponse
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatal(err)
			}
			if got.Valid != tt.valid || got.Code != tt.code {
				t.Errorf("validate = %+v, want valid %v code %q", got, tt.valid, tt.code)
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	s, _ := testServer(t)
	h := s.Handler()
	do(t, h, http.MethodGet, "/healthz", "")
	do(t, h, http.MethodGet, "/nope", "")

	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`route="/healthz"`, `route="unmatched"`} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{context.Canceled, http.StatusServiceUnavailable},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestListenAndServeStops(t *testing.T) {
	s, _ := testServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	if err := <-done; err != nil {
		t.Errorf("ListenAndServe() = %v, want nil after cancel", err)
	}
}
