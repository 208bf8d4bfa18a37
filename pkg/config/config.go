// Package config reads the TOML configuration file of the CLI and server.
//
// Every key is optional; missing keys keep the values of [Default]. Command
// line flags are applied on top of the loaded file by the callers.
//
//	transport_time = 0
//	allow_degraded = false
//	repair_routes = true
//
//	[scheduler]
//	priority = "critical_path"
//
//	[scheduler.instances]
//	mixer = 2
//
//	[placement]
//	generations = 500
//	seed = 7
//
//	[routing]
//	timeout = "2s"
//
//	[[adapters]]
//	name = "ilp"
//	binary = "ilp-synth"
//	args = ["--json"]
package config

import (
	stdio "io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/dmfbsynth/pkg/adapter"
	"github.com/matzehuels/dmfbsynth/pkg/errors"
	"github.com/matzehuels/dmfbsynth/pkg/observability"
	"github.com/matzehuels/dmfbsynth/pkg/pipeline"
	"github.com/matzehuels/dmfbsynth/pkg/placement"
	"github.com/matzehuels/dmfbsynth/pkg/routing"
	"github.com/matzehuels/dmfbsynth/pkg/schedule"
)

// FileName is the configuration file looked up in the user config dir.
const FileName = "config.toml"

// Config is the decoded configuration file.
type Config struct {
	TransportTime int    `toml:"transport_time"`
	AllowDegraded bool   `toml:"allow_degraded"`
	Adapter       string `toml:"adapter"`
	RepairRoutes  bool   `toml:"repair_routes"`

	Scheduler schedule.Config  `toml:"scheduler"`
	Placement placement.Config `toml:"placement"`
	Routing   routing.Config   `toml:"routing"`

	Adapters []AdapterConfig            `toml:"adapters"`
	Cache    CacheConfig                `toml:"cache"`
	Store    StoreConfig                `toml:"store"`
	Server   ServerConfig               `toml:"server"`
	Tracing  observability.TracingConfig `toml:"tracing"`
}

// AdapterConfig registers an external synthesis tool.
type AdapterConfig struct {
	Name   string   `toml:"name"`
	Binary string   `toml:"binary"`
	Args   []string `toml:"args"`
}

// CacheConfig selects the result cache. RedisURL takes precedence over Dir.
type CacheConfig struct {
	Disabled bool   `toml:"disabled"`
	Dir      string `toml:"dir"`
	RedisURL string `toml:"redis_url"`
}

// StoreConfig selects where batch results are persisted.
type StoreConfig struct {
	Backend  string `toml:"backend"` // file | mongo
	Dir      string `toml:"dir"`
	MongoURI string `toml:"mongo_uri"`
	Database string `toml:"database"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Store backends.
const (
	StoreFile  = "file"
	StoreMongo = "mongo"
)

// DefaultAddr is the listen address of the HTTP API.
const DefaultAddr = ":8080"

// Default returns the configuration used when no file exists.
func Default() Config {
	opts := pipeline.DefaultOptions()
	return Config{
		TransportTime: opts.TransportTime,
		Scheduler:     opts.Scheduler,
		Placement:     opts.Placement,
		Routing:       opts.Routing,
		Store:         StoreConfig{Backend: StoreFile},
		Server:        ServerConfig{Addr: DefaultAddr},
		Tracing:       observability.TracingConfig{ServiceName: "dmfbsynth", SampleRatio: 1},
	}
}

// DefaultPath returns ~/.config/dmfbsynth/config.toml or the platform
// equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "dmfbsynth", FileName), nil
}

// Load reads and validates a configuration file.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "open config %s", path)
	}
	defer f.Close()

	c, err := Decode(f)
	if err != nil {
		return Config{}, errors.Wrap(errors.GetCode(err), err, "load config %s", path)
	}
	return c, nil
}

// LoadOrDefault loads path when it exists and returns Default otherwise.
// An empty path means DefaultPath.
func LoadOrDefault(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}
	c, err := Load(path)
	if errors.Is(err, errors.ErrCodeFileNotFound) && !explicit {
		return Default(), nil
	}
	return c, err
}

// Decode parses TOML on top of Default. Unknown keys are rejected so that
// typos do not silently fall back to defaults.
func Decode(r stdio.Reader) (Config, error) {
	c := Default()
	md, err := toml.NewDecoder(r).Decode(&c)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse toml")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Encode writes c as TOML.
func Encode(w stdio.Writer, c Config) error {
	return toml.NewEncoder(w).Encode(c)
}

// Validate checks the pipeline options and the adapter and store entries.
func (c Config) Validate() error {
	opts := c.Options()
	if err := opts.Validate(); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for i, a := range c.Adapters {
		if err := errors.ValidateName("adapter", a.Name); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "adapters[%d]", i)
		}
		if a.Name == adapter.BuiltinName || a.Name == adapter.Auto || seen[a.Name] {
			return errors.New(errors.ErrCodeInvalidConfig, "adapters[%d]: name %q is reserved or duplicated", i, a.Name)
		}
		if a.Binary == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "adapters[%d]: binary is required", i)
		}
		seen[a.Name] = true
	}
	switch c.Store.Backend {
	case "", StoreFile:
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "store.mongo_uri is required for the mongo backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "store.backend must be %q or %q, got %q", StoreFile, StoreMongo, c.Store.Backend)
	}
	if c.Cache.RedisURL != "" {
		if err := errors.ValidateURL(c.Cache.RedisURL, "redis", "rediss"); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "cache.redis_url")
		}
	}
	return nil
}

// Options converts the file into pipeline options.
func (c Config) Options() pipeline.Options {
	return pipeline.Options{
		Scheduler:     c.Scheduler,
		Placement:     c.Placement,
		Routing:       c.Routing,
		TransportTime: c.TransportTime,
		AllowDegraded: c.AllowDegraded,
		Adapter:       c.Adapter,
		RepairRoutes:  c.RepairRoutes,
		NoCache:       c.Cache.Disabled,
	}
}

// Registry builds the adapter registry: the configured external tools in
// file order, then the built-in algorithms configured like the pipeline.
func (c Config) Registry() *adapter.Registry {
	builtin := adapter.NewBuiltin(c.Scheduler, c.Placement, c.Routing)
	reg := adapter.NewRegistry(builtin)
	for _, a := range c.Adapters {
		reg.Register(adapter.NewExec(a.Name, a.Binary, a.Args...))
	}
	return reg
}
