package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dmfbsynth/pkg/config"
	dio "github.com/matzehuels/dmfbsynth/pkg/io"
	"github.com/matzehuels/dmfbsynth/pkg/store"
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

const quickConfig = `
transport_time = -1

[placement]
population_size = 20
generations = 20
seed = 1
`

// workspace isolates the XDG directories and writes a small config and a
// problem file.
func workspace(t *testing.T) (dir, problemPath, configPath string) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))

	problemPath = filepath.Join(dir, "chain.json")
	if err := os.WriteFile(problemPath, []byte(chainJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	configPath = filepath.Join(dir, "config.toml")
	if err := os.WriteFile(configPath, []byte(quickConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, problemPath, configPath
}

// run executes the root command and returns what it wrote to its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	want := []string{"solve", "validate", "batch", "results", "render", "inspect", "serve", "adapters", "config", "cache", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd == root {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestSolveCommand(t *testing.T) {
	dir, problemPath, configPath := workspace(t)
	output := filepath.Join(dir, "out.json")

	if _, err := run(t, "solve", problemPath, "--config", configPath, "-o", output); err != nil {
		t.Fatalf("solve error: %v", err)
	}
	out, err := dio.LoadResult(output)
	if err != nil {
		t.Fatal(err)
	}
	if out.Problem != "chain" || out.Makespan != 15 || !out.Feasible {
		t.Errorf("result = problem %q makespan %d feasible %v; want chain, 15, true", out.Problem, out.Makespan, out.Feasible)
	}

	// flags override the config file
	if _, err := run(t, "solve", problemPath, "--config", configPath, "-o", output, "--transport", "0", "--no-cache"); err != nil {
		t.Fatalf("solve error: %v", err)
	}
	if out, _ = dio.LoadResult(output); out.Makespan != 55 {
		t.Errorf("Makespan with --transport 0 = %d, want 55", out.Makespan)
	}
}

func TestSolveDefaultOutputPath(t *testing.T) {
	dir, problemPath, configPath := workspace(t)
	if _, err := run(t, "solve", problemPath, "--config", configPath); err != nil {
		t.Fatalf("solve error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "chain.result.json")); err != nil {
		t.Errorf("default output missing: %v", err)
	}
}

func TestSolveErrors(t *testing.T) {
	dir, problemPath, configPath := workspace(t)
	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("unknown_key = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"missing problem", []string{"solve", filepath.Join(dir, "nope.json"), "--config", configPath}},
		{"bad priority", []string{"solve", problemPath, "--config", configPath, "--priority", "random"}},
		{"bad config", []string{"solve", problemPath, "--config", bad}},
		{"missing config", []string{"solve", problemPath, "--config", filepath.Join(dir, "nope.toml")}},
		{"no args", []string{"solve"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestValidateCommand(t *testing.T) {
	dir, problemPath, configPath := workspace(t)
	output := filepath.Join(dir, "out.json")
	if _, err := run(t, "validate", problemPath); err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if _, err := run(t, "solve", problemPath, "--config", configPath, "-o", output); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "validate", problemPath, "--config", configPath, "--result", output); err != nil {
		t.Errorf("validate --result error: %v", err)
	}

	out, err := dio.LoadResult(output)
	if err != nil {
		t.Fatal(err)
	}
	out.Schedule[2] = [2]int{1, 6}
	broken := filepath.Join(dir, "broken.json")
	if err := dio.SaveResult(out, broken); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "validate", problemPath, "--config", configPath, "--result", broken); err != errInfeasible {
		t.Errorf("validate of a broken schedule = %v, want errInfeasible", err)
	}
}

func TestBatchAndResults(t *testing.T) {
	dir, problemPath, configPath := workspace(t)
	problems := filepath.Join(dir, "problems")
	if err := os.MkdirAll(problems, 0o755); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(problemPath)
	for _, name := range []string{"a", "b"} {
		renamed := strings.Replace(string(data), `"chain"`, `"`+name+`"`, 1)
		if err := os.WriteFile(filepath.Join(problems, name+".json"), []byte(renamed), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(problems, "broken.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	storeDir := filepath.Join(dir, "store")

	if _, err := run(t, "batch", problems, "--config", configPath, "--store-dir", storeDir, "-w", "2", "--no-cache"); err != nil {
		t.Fatalf("batch error: %v", err)
	}

	st, err := store.NewFileStore(storeDir)
	if err != nil {
		t.Fatal(err)
	}
	records, err := st.List(context.Background(), store.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("stored %d records, want 2", len(records))
	}
	if records[0].Batch == "" || records[0].Batch != records[1].Batch {
		t.Errorf("records should share one batch ID, got %q and %q", records[0].Batch, records[1].Batch)
	}

	out, err := run(t, "results", "list", "--store-dir", storeDir, "--config", configPath)
	if err != nil {
		t.Fatalf("results list error: %v", err)
	}
	if !strings.Contains(out, records[0].ID) {
		t.Errorf("results list output missing %s", records[0].ID)
	}

	out, err = run(t, "results", "export", records[0].ID, "--store-dir", storeDir, "--config", configPath)
	if err != nil {
		t.Fatalf("results export error: %v", err)
	}
	exported, err := dio.ReadResult(strings.NewReader(out))
	if err != nil || exported.ID != records[0].ID {
		t.Errorf("exported = %+v, %v; want record %s", exported, err, records[0].ID)
	}

	if _, err := run(t, "results", "delete", records[0].ID, "--store-dir", storeDir, "--config", configPath); err != nil {
		t.Fatalf("results delete error: %v", err)
	}
	if _, err := st.Get(context.Background(), records[0].ID); err != store.ErrNotFound {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestProblemFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.json", "a.json", "a.result.json", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := problemFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json")}
	if strings.Join(files, ",") != strings.Join(want, ",") {
		t.Errorf("problemFiles() = %v, want %v", files, want)
	}
}

func TestRenderDOT(t *testing.T) {
	dir, problemPath, _ := workspace(t)
	output := filepath.Join(dir, "chain.dot")
	if _, err := run(t, "render", problemPath, "-f", "dot", "-o", output); err != nil {
		t.Fatalf("render error: %v", err)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "digraph") {
		t.Errorf("render output does not start with digraph: %q", data)
	}

	if _, err := run(t, "render", problemPath, "-f", "pdf"); err == nil {
		t.Error("render -f pdf should fail")
	}
}

func TestConfigCommand(t *testing.T) {
	dir, _, configPath := workspace(t)

	out, err := run(t, "config", "--config", configPath)
	if err != nil {
		t.Fatalf("config error: %v", err)
	}
	cfg, err := config.Decode(strings.NewReader(out))
	if err != nil {
		t.Fatalf("config output does not decode: %v", err)
	}
	if cfg.TransportTime != -1 || cfg.Placement.Generations != 20 {
		t.Errorf("effective config = transport %d generations %d; want -1 and 20", cfg.TransportTime, cfg.Placement.Generations)
	}

	initPath := filepath.Join(dir, "new", "config.toml")
	if _, err := run(t, "config", "init", initPath); err != nil {
		t.Fatalf("config init error: %v", err)
	}
	if _, err := config.Load(initPath); err != nil {
		t.Errorf("initialized config does not load: %v", err)
	}
	if _, err := run(t, "config", "init", initPath); err == nil {
		t.Error("config init should refuse to overwrite")
	}
}

func TestAdaptersCommand(t *testing.T) {
	dir, _, _ := workspace(t)
	cfgPath := filepath.Join(dir, "adapters.toml")
	toml := "[[adapters]]\nname = \"ghost\"\nbinary = \"definitely-not-installed-dmfb-tool\"\n"
	if err := os.WriteFile(cfgPath, []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "adapters", "--config", cfgPath)
	if err != nil {
		t.Fatalf("adapters error: %v", err)
	}
	for _, want := range []string{"ghost", "builtin"} {
		if !strings.Contains(out, want) {
			t.Errorf("adapters output missing %q", want)
		}
	}
}

func TestCachePath(t *testing.T) {
	dir, _, _ := workspace(t)
	out, err := run(t, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := strings.TrimSpace(out), filepath.Join(dir, "cache", appName); got != want {
		t.Errorf("cache path = %q, want %q", got, want)
	}
}

func TestCacheClear(t *testing.T) {
	_, problemPath, configPath := workspace(t)
	if _, err := run(t, "solve", problemPath, "--config", configPath); err != nil {
		t.Fatal(err)
	}
	fc, err := fileCache(config.CacheConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if n, _, _ := fc.Stats(); n == 0 {
		t.Fatal("solve should have cached its result")
	}
	if _, err := run(t, "cache", "clear"); err != nil {
		t.Fatal(err)
	}
	if n, _, _ := fc.Stats(); n != 0 {
		t.Errorf("entries after clear = %d, want 0", n)
	}
}

func TestCacheDirXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")
	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join("/tmp/custom-cache", appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestPipelineFlagsApply(t *testing.T) {
	var f pipelineFlags
	cmd := &cobra.Command{Use: "x", RunE: func(*cobra.Command, []string) error { return nil }}
	f.register(cmd)
	if err := cmd.ParseFlags([]string{"--priority", "ALAP", "--seed", "9", "--degraded"}); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Placement.Generations = 77
	f.apply(cmd, &cfg)

	if cfg.Scheduler.Priority != "alap" || cfg.Placement.Seed != 9 || !cfg.AllowDegraded {
		t.Errorf("apply() = priority %q seed %d degraded %v", cfg.Scheduler.Priority, cfg.Placement.Seed, cfg.AllowDegraded)
	}
	if cfg.Placement.Generations != 77 {
		t.Errorf("unset --generations overrode the config: %d", cfg.Placement.Generations)
	}
}
