// Package cli implements the dmfbsynth command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dmfbsynth/pkg/buildinfo"
	"github.com/matzehuels/dmfbsynth/pkg/cache"
	"github.com/matzehuels/dmfbsynth/pkg/config"
	"github.com/matzehuels/dmfbsynth/pkg/observability"
	"github.com/matzehuels/dmfbsynth/pkg/pipeline"
	"github.com/matzehuels/dmfbsynth/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "dmfbsynth"

	// redisPrefix namespaces CLI cache keys in a shared Redis.
	redisPrefix = appName + ":"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is set by the persistent --config flag. Empty means the
	// default location, which may not exist.
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "dmfbsynth synthesizes assays for digital microfluidic biochips",
		Long: `dmfbsynth turns a bioassay (operations, dependencies and a module library)
into a schedule, a module placement and droplet routes on an electrode grid.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: "+defaultConfigHint()+")")

	root.AddCommand(c.solveCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.batchCommand())
	root.AddCommand(c.resultsCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.adaptersCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config & Runner Factory
// =============================================================================

// loadConfig reads --config, or the default file when it exists.
func (c *CLI) loadConfig() (config.Config, error) {
	cfg, err := config.LoadOrDefault(c.configPath)
	if err != nil {
		return config.Config{}, err
	}
	c.Logger.Debug("config loaded", "path", c.configPath, "adapters", len(cfg.Adapters))
	return cfg, nil
}

// newRunner creates a pipeline runner for CLI use with the configured cache
// and adapters.
func (c *CLI) newRunner(ctx context.Context, cfg config.Config) (*pipeline.Runner, error) {
	cc, err := newCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(cc, nil, c.Logger)
	runner.Adapters = cfg.Registry()
	return runner, nil
}

// newCache picks the cache backend: none, Redis when a URL is set, or the
// file cache under the XDG cache directory.
func newCache(ctx context.Context, cc config.CacheConfig) (cache.Cache, error) {
	if cc.Disabled {
		return cache.NewNullCache(), nil
	}
	if cc.RedisURL != "" {
		return cache.NewRedisCache(ctx, cc.RedisURL, redisPrefix)
	}
	dir := cc.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

// openStore opens the result store selected in the config.
func openStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	if sc.Backend == config.StoreMongo {
		return store.NewMongoStore(ctx, sc.MongoURI, sc.Database)
	}
	return store.NewFileStore(sc.Dir)
}

// startTracing installs the configured tracer provider and registers the
// tracing hooks. The returned function flushes spans.
func (c *CLI) startTracing(ctx context.Context, cfg config.Config) (func(), error) {
	shutdown, err := observability.InitTracing(ctx, cfg.Tracing, c.Logger)
	if err != nil {
		return nil, err
	}
	if cfg.Tracing.Enabled {
		observability.SetPipelineHooks(observability.NewTracer())
	}
	return func() { observability.ShutdownWithTimeout(context.Background(), shutdown, c.Logger) }, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/dmfbsynth/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

func defaultConfigHint() string {
	p, err := config.DefaultPath()
	if err != nil {
		return config.FileName
	}
	return p
}
