package cli

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dmfbsynth/internal/server"
	"github.com/matzehuels/dmfbsynth/pkg/cache"
	"github.com/matzehuels/dmfbsynth/pkg/config"
	"github.com/matzehuels/dmfbsynth/pkg/observability"
)

// serveCommand runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
		metrics bool
		flags   pipelineFlags
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the synthesis pipeline over HTTP",
		Long: `Serve the synthesis pipeline over HTTP.

  POST /v1/solve      solve a problem (query: priority, generations, seed, degraded)
  POST /v1/validate   check a problem
  GET  /healthz       liveness
  GET  /metrics       Prometheus metrics

The server shares one result cache across requests. Server cache keys are
scoped so a Redis instance can be shared with CLI users.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.pipelineConfig(cmd, &flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") || cfg.Server.Addr == "" {
				cfg.Server.Addr = addr
			}

			shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, c.Logger)
			if err != nil {
				return err
			}
			defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, c.Logger)

			var collector *observability.Collector
			if metrics {
				if collector, err = observability.NewCollector(prometheus.NewRegistry()); err != nil {
					return err
				}
				observability.SetCacheHooks(collector)
				observability.SetHTTPHooks(collector)
			}
			observability.SetPipelineHooks(pipelineHooks(collector, cfg.Tracing.Enabled))
			defer observability.Reset()

			runner, err := c.newRunner(ctx, cfg)
			if err != nil {
				return err
			}
			runner.Keyer = cache.NewScopedKeyer(nil, "server:")
			defer runner.Close()

			opts := cfg.Options()
			srv := server.New(runner, opts, collector, c.Logger)
			srv.Timeout = timeout
			return srv.ListenAndServe(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "listen address")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "maximum time per solve request (0 = none)")
	cmd.Flags().BoolVar(&metrics, "metrics", true, "expose Prometheus metrics on /metrics")
	flags.register(cmd)
	return cmd
}

// pipelineHooks combines the metrics collector and the tracer as enabled.
func pipelineHooks(collector *observability.Collector, tracing bool) observability.PipelineHooks {
	var hooks []observability.PipelineHooks
	if collector != nil {
		hooks = append(hooks, collector)
	}
	if tracing {
		hooks = append(hooks, observability.NewTracer())
	}
	return observability.ChainPipeline(hooks...)
}
