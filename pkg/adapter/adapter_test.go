package adapter

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/dmfbsynth/pkg/errors"
	"github.com/matzehuels/dmfbsynth/pkg/placement"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
	"github.com/matzehuels/dmfbsynth/pkg/routing"
	"github.com/matzehuels/dmfbsynth/pkg/schedule"
)

// stub is an adapter whose availability is fixed.
type stub struct {
	*Builtin
	name string
	err  error
}

func (s stub) Name() string                      { return s.name }
func (s stub) Available(context.Context) error { return s.err }

func testBuiltin() *Builtin {
	pc := placement.DefaultConfig()
	pc.PopulationSize = 20
	pc.Generations = 20
	sc := schedule.DefaultConfig()
	sc.TransportTime = 10
	return NewBuiltin(sc, pc, routing.DefaultConfig())
}

func chain(t *testing.T) *problem.Problem {
	t.Helper()
	p, err := problem.NewBuilder("chain", 8, 8).
		Module("mixer", problem.CategoryMixer, 2, 2, 5).
		Op(1, "mix", "mixer").
		Op(2, "mix", "mixer", 1).
		Build()
	require.NoError(t, err)
	return p
}

func TestBuiltinSolveFull(t *testing.T) {
	p := chain(t)
	sol, err := testBuiltin().SolveFull(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, problem.Interval{Start: 0, End: 5}, sol.Schedule[1])
	assert.Equal(t, problem.Interval{Start: 15, End: 20}, sol.Schedule[2])
	assert.Equal(t, 20, sol.Makespan)
	assert.Len(t, sol.Placement, 2)
	require.Len(t, sol.Routes, 1)

	path := sol.Routes[0]
	assert.Equal(t, sol.Placement[1], path[0].Cell())
	assert.Equal(t, sol.Placement[2], path[len(path)-1].Cell())
}

func TestRegistrySelect(t *testing.T) {
	b := testBuiltin()
	down := stub{Builtin: b, name: "mfsim", err: errors.New(errors.ErrCodeAdapterUnavailable, "mfsim not installed")}
	up := stub{Builtin: b, name: "splash"}
	reg := NewRegistry(b, down, up)
	ctx := context.Background()

	tests := []struct {
		name     string
		request  string
		want     string
		fallback bool
	}{
		{"default", "", BuiltinName, false},
		{"builtin", BuiltinName, BuiltinName, false},
		{"available external", "splash", "splash", false},
		{"unavailable external", "mfsim", BuiltinName, true},
		{"unknown", "nope", BuiltinName, true},
		{"auto skips unavailable", Auto, "splash", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := reg.Select(ctx, tt.request)
			if sel.Adapter.Name() != tt.want {
				t.Errorf("Select(%q) = %s, want %s", tt.request, sel.Adapter.Name(), tt.want)
			}
			if (sel.Fallback != nil) != tt.fallback {
				t.Errorf("Select(%q) fallback = %v, want %v", tt.request, sel.Fallback, tt.fallback)
			}
			if tt.fallback && !errors.Is(sel.Fallback, errors.ErrCodeAdapterUnavailable) {
				t.Errorf("fallback error = %v, want ADAPTER_UNAVAILABLE", sel.Fallback)
			}
		})
	}

	statuses := reg.Statuses(ctx)
	require.Len(t, statuses, 3)
	assert.Equal(t, Status{Name: "mfsim", Available: false, Reason: "mfsim not installed"}, statuses[0])
	assert.True(t, statuses[1].Available)
	assert.Equal(t, BuiltinName, statuses[2].Name)
}

func TestRegistryRegisterReplaces(t *testing.T) {
	b := testBuiltin()
	reg := NewRegistry(b, stub{Builtin: b, name: "x", err: errors.New(errors.ErrCodeAdapterUnavailable, "down")})
	reg.Register(stub{Builtin: b, name: "x"})

	assert.Len(t, reg.All(), 2)
	a, ok := reg.Lookup("x")
	require.True(t, ok)
	assert.NoError(t, a.Available(context.Background()))
}

func TestExecUnavailable(t *testing.T) {
	e := NewExec("ghost", "dmfbsynth-no-such-tool")
	err := e.Available(context.Background())
	assert.True(t, errors.Is(err, errors.ErrCodeAdapterUnavailable), "err = %v", err)

	_, err = e.SolvePlacement(context.Background(), chain(t))
	assert.True(t, errors.Is(err, errors.ErrCodeAdapterUnavailable), "err = %v", err)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "tool.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestExecProtocol(t *testing.T) {
	script := writeScript(t, `cat > /dev/null
case "$1" in
  full)
    echo '{"problem":"chain","placement":{"1":[0,0],"2":[4,0]},"schedule":{"1":[0,5],"2":[9,14]},"routes":{"0":[[0,0,5],[1,0,6]]},"makespan":14,"timing":{"scheduling":0,"placement":0,"routing":0,"total":0},"feasible":true}'
    ;;
  *)
    echo "unsupported stage $1" >&2
    exit 3
    ;;
esac
`)
	e := NewExec("scripted", script)
	require.NoError(t, e.Available(context.Background()))

	sol, err := e.SolveFull(context.Background(), chain(t))
	require.NoError(t, err)
	assert.Equal(t, 14, sol.Makespan)
	assert.Equal(t, problem.Cell{X: 4, Y: 0}, sol.Placement[2])
	assert.Equal(t, problem.Interval{Start: 9, End: 14}, sol.Schedule[2])
	assert.Equal(t, problem.Path{{X: 0, Y: 0, T: 5}, {X: 1, Y: 0, T: 6}}, sol.Routes[0])

	_, err = e.SolveScheduling(context.Background(), chain(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeAdapterFailed))
	assert.Contains(t, err.Error(), "unsupported stage scheduling")
}

func TestExecBadOutput(t *testing.T) {
	script := writeScript(t, "cat > /dev/null\necho not-json\n")
	_, err := NewExec("broken", script).SolvePlacement(context.Background(), chain(t))
	assert.True(t, errors.Is(err, errors.ErrCodeAdapterFailed), "err = %v", err)
}
