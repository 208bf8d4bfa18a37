package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dmfbsynth/pkg/adapter"
	dio "github.com/matzehuels/dmfbsynth/pkg/io"
	"github.com/matzehuels/dmfbsynth/pkg/pipeline"
)

// adaptersCommand lists the synthesis backends and compares them.
func (c *CLI) adaptersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adapters",
		Short: "List synthesis backends and their availability",
		Long: `List synthesis backends and their availability.

External tools are configured in the config file:

  [[adapters]]
  name = "ilp"
  binary = "ilp-synth"

An adapter is available when its binary is found on PATH.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			statuses := cfg.Registry().Statuses(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), statusTable(statuses))
			return nil
		},
	}

	cmd.AddCommand(c.adaptersCompareCommand())
	return cmd
}

func (c *CLI) adaptersCompareCommand() *cobra.Command {
	var (
		names []string
		flags pipelineFlags
	)

	cmd := &cobra.Command{
		Use:   "compare [problem.json]",
		Short: "Solve a problem with several backends side by side",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := dio.LoadProblem(args[0])
			if err != nil {
				return err
			}
			cfg, err := c.pipelineConfig(cmd, &flags)
			if err != nil {
				return err
			}
			runner, err := c.newRunner(ctx, cfg)
			if err != nil {
				return err
			}
			defer runner.Close()

			opts := cfg.Options()
			opts.Logger = c.Logger

			spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Comparing backends on %s...", p.Name()))
			spinner.Start()
			results, err := runner.Compare(ctx, p, opts, names)
			spinner.Stop()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), comparisonTable(results))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&names, "adapter", "a", nil, "adapters to compare (default: all)")
	flags.register(cmd)
	return cmd
}

func statusTable(statuses []adapter.Status) string {
	rows := make([][]string, len(statuses))
	for i, s := range statuses {
		ok := iconError
		if s.Available {
			ok = iconSuccess
		}
		reason := s.Reason
		if reason == "" {
			reason = "-"
		}
		rows[i] = []string{s.Name, ok, reason}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Adapter", "Available", "Reason").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			if col == 1 && row >= 0 && row < len(rows) {
				if statuses[row].Available {
					return StyleSuccess
				}
				return StyleError
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

func comparisonTable(results []pipeline.Comparison) string {
	rows := make([][]string, len(results))
	for i, r := range results {
		if r.Err != nil {
			rows[i] = []string{r.Adapter, "-", "-", "-", r.Err.Error()}
			continue
		}
		res := r.Result
		rows[i] = []string{
			r.Adapter,
			fmt.Sprint(res.Makespan),
			fmt.Sprint(res.Feasible),
			fmt.Sprintf("%.0f%%", res.RoutingStats.SuccessRate*100),
			res.Stats.TotalTime.Round(time.Millisecond).String(),
		}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Adapter", "Makespan", "Feasible", "Routed", "Time").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			return lipgloss.NewStyle()
		}).
		Render()
}
