package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	dio "github.com/matzehuels/dmfbsynth/pkg/io"
	"github.com/matzehuels/dmfbsynth/pkg/pipeline"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
)

// errInfeasible makes validate exit non-zero for a result that does not
// hold up.
var errInfeasible = fmt.Errorf("result is infeasible")

// validateCommand creates the validate command. It checks a problem file
// and, with --result, re-checks a solution against it.
func (c *CLI) validateCommand() *cobra.Command {
	var resultFile string

	cmd := &cobra.Command{
		Use:   "validate [problem.json]",
		Short: "Check a problem file and optionally a result",
		Long: `Check a problem file and optionally a result.

Without --result the problem is loaded and its structure is checked: module
references, duplicate IDs and dependency cycles. With --result the stored
schedule, placement and routes are validated against the problem with the
same checks the pipeline applies to its own output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(args[0], resultFile)
		},
	}

	cmd.Flags().StringVarP(&resultFile, "result", "r", "", "result file to verify against the problem")
	return cmd
}

func (c *CLI) runValidate(input, resultFile string) error {
	p, err := dio.LoadProblem(input)
	if err != nil {
		printError("Invalid problem")
		return err
	}
	printSuccess("Problem %s is valid", p.Name())
	printProblemSummary(p)

	if resultFile == "" {
		return nil
	}

	out, err := dio.LoadResult(resultFile)
	if err != nil {
		return err
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	reports, err := pipeline.Verify(p, out, cfg.Options())
	if err != nil {
		return fmt.Errorf("verify %s: %w", resultFile, err)
	}

	printNewline()
	fmt.Println(reportTable(reports))
	printViolations(reports.Violations(), 20)
	if !reports.Feasible() {
		printError("Result %s is infeasible", resultFile)
		return errInfeasible
	}
	printSuccess("Result %s is feasible", resultFile)
	return nil
}

func printProblemSummary(p *problem.Problem) {
	chip := p.Chip()
	printKeyValue("chip", fmt.Sprintf("%dx%d", chip.Width, chip.Height))
	printKeyValue("operations", fmt.Sprint(p.NumOperations()))
	printKeyValue("droplets", fmt.Sprint(len(p.Edges())))
	printKeyValue("critical path", fmt.Sprint(p.CriticalPathLength()))

	usage := p.EstimateResourceUsage()
	types := make([]string, 0, len(usage))
	for t := range usage {
		types = append(types, t)
	}
	sort.Strings(types)
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = fmt.Sprintf("%s=%d", t, usage[t])
	}
	printKeyValue("peak usage", strings.Join(parts, " "))

	if area := p.TotalModuleArea(); area > chip.Width*chip.Height {
		printWarning("Module area %d exceeds chip area %d", area, chip.Width*chip.Height)
	}
}
