package config

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/dmfbsynth/pkg/errors"
	"github.com/matzehuels/dmfbsynth/pkg/schedule"
)

func TestDecodeOverridesDefaults(t *testing.T) {
	in := `
transport_time = -1
allow_degraded = true
repair_routes = true

[scheduler]
priority = "critical_path"

[scheduler.instances]
mixer = 2

[placement]
generations = 50
seed = 9

[routing]
timeout = "2s"
spacing = 0

[[adapters]]
name = "ilp"
binary = "ilp-synth"
args = ["--json"]
`
	c, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}

	opts := c.Options()
	if opts.TransportTime != -1 || !opts.AllowDegraded || !opts.RepairRoutes {
		t.Errorf("TransportTime = %d, AllowDegraded = %v, RepairRoutes = %v", opts.TransportTime, opts.AllowDegraded, opts.RepairRoutes)
	}
	if opts.Scheduler.Priority != schedule.PriorityCriticalPath || opts.Scheduler.Limit("mixer") != 2 {
		t.Errorf("Scheduler = %+v", opts.Scheduler)
	}
	if opts.Placement.Generations != 50 || opts.Placement.Seed != 9 {
		t.Errorf("Placement = %+v", opts.Placement)
	}
	if def := Default(); opts.Placement.PopulationSize != def.Placement.PopulationSize {
		t.Errorf("PopulationSize = %d, want default %d", opts.Placement.PopulationSize, def.Placement.PopulationSize)
	}
	if opts.Routing.Timeout != 2*time.Second || opts.Routing.Spacing != 0 {
		t.Errorf("Routing = %+v", opts.Routing)
	}

	reg := c.Registry()
	if _, ok := reg.Lookup("ilp"); !ok {
		t.Error("Registry() should contain the configured adapter")
	}
	if all := reg.All(); len(all) != 2 || all[1].Name() != "builtin" {
		t.Errorf("Registry().All() has %d adapters", len(all))
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"syntax", "transport_time = ="},
		{"unknown key", "generations = 5"},
		{"bad priority", "[scheduler]\npriority = \"random\""},
		{"bad rate", "[placement]\nmutation_rate = 2.0"},
		{"reserved adapter", "[[adapters]]\nname = \"builtin\"\nbinary = \"x\""},
		{"missing binary", "[[adapters]]\nname = \"x\""},
		{"bad store", "[store]\nbackend = \"s3\""},
		{"mongo without uri", "[store]\nbackend = \"mongo\""},
		{"bad redis url", "[cache]\nredis_url = \"http://x\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.in))
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Decode() error = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, Default()); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	c, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode(Encode(Default())) error: %v\n%s", err, buf.String())
	}
	if !reflect.DeepEqual(c.Options(), Default().Options()) {
		t.Errorf("round trip options = %+v, want %+v", c.Options(), Default().Options())
	}
	if c.Server.Addr != DefaultAddr || c.Store.Backend != StoreFile {
		t.Errorf("round trip server/store = %+v %+v", c.Server, c.Store)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load(missing) error = %v, want FILE_NOT_FOUND", err)
	}

	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[server]\naddr = \":9090\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if c.Server.Addr != ":9090" {
		t.Errorf("Server.Addr = %q, want :9090", c.Server.Addr)
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("nope = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Load(bad) error = %v, want INVALID_CONFIG", err)
	}
}

func TestLoadOrDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	c, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault(\"\") error: %v", err)
	}
	if !reflect.DeepEqual(c.Options(), Default().Options()) {
		t.Error("LoadOrDefault without a file should return defaults")
	}

	if _, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("LoadOrDefault with an explicit missing path should fail")
	}
}

func TestExampleConfig(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "examples", "config.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Scheduler.Priority != schedule.PriorityCriticalPath {
		t.Errorf("Priority = %q, want %q", c.Scheduler.Priority, schedule.PriorityCriticalPath)
	}
	if c.Routing.Timeout != 10*time.Second {
		t.Errorf("Routing.Timeout = %v, want 10s", c.Routing.Timeout)
	}
}
