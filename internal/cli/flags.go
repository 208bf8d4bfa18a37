package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/dmfbsynth/pkg/config"
	"github.com/matzehuels/dmfbsynth/pkg/pipeline"
	"github.com/matzehuels/dmfbsynth/pkg/schedule"
)

// pipelineFlags are the synthesis flags shared by solve, batch and
// adapters compare. Only flags the user actually set override the config
// file.
type pipelineFlags struct {
	priority    string
	generations int
	seed        uint64
	transport   int
	degraded    bool
	adapter     string
	noCache     bool
	cacheURL    string
	workers     int
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.priority, "priority", "", "list scheduling priority: asap (default), alap, mobility, critical_path")
	fs.IntVar(&f.generations, "generations", 0, "placement GA generations")
	fs.Uint64Var(&f.seed, "seed", 0, "placement GA random seed")
	fs.IntVar(&f.transport, "transport", pipeline.TransportAuto, "time between dependent operations: 0 = chip width+height, -1 = none")
	fs.BoolVar(&f.degraded, "degraded", false, "route even when scheduling or placement is infeasible")
	fs.StringVar(&f.adapter, "adapter", "", "synthesis backend: builtin (default), auto, or a configured adapter")
	fs.BoolVar(&f.noCache, "no-cache", false, "disable result caching")
	fs.StringVar(&f.cacheURL, "cache", "", "redis URL for a shared result cache (redis://host:6379/0)")
	fs.IntVar(&f.workers, "ga-workers", 0, "parallel fitness workers of the placement GA")

	_ = cmd.RegisterFlagCompletionFunc("priority", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, len(schedule.Priorities))
		for i, p := range schedule.Priorities {
			names[i] = string(p)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}

// apply overlays the flags that were set on cfg.
func (f *pipelineFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("priority") {
		cfg.Scheduler.Priority = schedule.Priority(f.priority)
		cfg.Scheduler = cfg.Scheduler.Normalized()
	}
	if fs.Changed("generations") {
		cfg.Placement.Generations = f.generations
	}
	if fs.Changed("seed") {
		cfg.Placement.Seed = f.seed
	}
	if fs.Changed("ga-workers") {
		cfg.Placement.Workers = f.workers
	}
	if fs.Changed("transport") {
		cfg.TransportTime = f.transport
	}
	if fs.Changed("degraded") {
		cfg.AllowDegraded = f.degraded
	}
	if fs.Changed("adapter") {
		cfg.Adapter = f.adapter
	}
	if f.noCache {
		cfg.Cache.Disabled = true
	}
	if f.cacheURL != "" {
		cfg.Cache.RedisURL = f.cacheURL
	}
}

// pipelineConfig loads the config file, applies the flags and validates the
// result.
func (c *CLI) pipelineConfig(cmd *cobra.Command, f *pipelineFlags) (config.Config, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return cfg, err
	}
	f.apply(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
