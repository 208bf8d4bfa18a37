package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	dio "github.com/matzehuels/dmfbsynth/pkg/io"
)

// solveCommand creates the solve command, which runs the full pipeline on
// one problem file.
func (c *CLI) solveCommand() *cobra.Command {
	var (
		output string
		flags  pipelineFlags
	)

	cmd := &cobra.Command{
		Use:   "solve [problem.json]",
		Short: "Schedule, place and route an assay",
		Long: `Schedule, place and route an assay.

The problem file lists the chip size, the module library and the operations
with their dependencies. The result (schedule, placement, droplet routes,
feasibility reports and timing) is written as JSON next to the input unless
-o is given.

Results are cached; a second run with the same problem and options is
answered from the cache.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSolve(cmd, args[0], output, &flags)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.result.json)")
	flags.register(cmd)

	return cmd
}

func (c *CLI) runSolve(cmd *cobra.Command, input, output string, flags *pipelineFlags) error {
	ctx := cmd.Context()

	p, err := dio.LoadProblem(input)
	if err != nil {
		return err
	}
	cfg, err := c.pipelineConfig(cmd, flags)
	if err != nil {
		return err
	}

	stopTracing, err := c.startTracing(ctx, cfg)
	if err != nil {
		return err
	}
	defer stopTracing()

	runner, err := c.newRunner(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts := cfg.Options()
	opts.Logger = c.Logger

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Synthesizing %s...", p.Name()))
	spinner.Start()

	res, err := runner.Execute(ctx, p, opts)
	if err != nil {
		spinner.StopWithError("Synthesis failed")
		return fmt.Errorf("synthesize %s: %w", input, err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	outputPath := output
	if outputPath == "" {
		outputPath = resultPath(input)
	}
	if err := dio.SaveResult(res.Output(), outputPath); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printResult(res)
	printFile(outputPath)
	printNewline()
	printNextStep("Inspect", appName+" inspect "+outputPath)
	return nil
}

// resultPath derives <input>.result.json from a problem path.
func resultPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".result.json"
}

