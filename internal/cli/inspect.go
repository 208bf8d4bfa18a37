package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	dio "github.com/matzehuels/dmfbsynth/pkg/io"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
)

// inspectCommand opens a result file in an interactive browser.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		problemFile string
		plain       bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [result.json]",
		Short: "Browse a result interactively",
		Long: `Browse a result interactively.

Tabs show the schedule, the placement, the droplet routes and the
violations. With --problem an extra tab draws the chip at any time step.
--plain prints the tables instead of starting the browser.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := dio.LoadResult(args[0])
			if err != nil {
				return err
			}
			var p *problem.Problem
			if problemFile != "" {
				if p, err = dio.LoadProblem(problemFile); err != nil {
					return err
				}
			}

			model := NewResultModel(out, p)
			if plain {
				model.Height = 1 << 30
				for i := range model.tabs {
					model.Tab = i
					fmt.Fprintln(cmd.OutOrStdout(), model.View())
					fmt.Fprintln(cmd.OutOrStdout())
				}
				return nil
			}

			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().StringVarP(&problemFile, "problem", "p", "", "problem file, enables the chip view")
	cmd.Flags().BoolVar(&plain, "plain", false, "print all tabs without the interactive browser")
	return cmd
}
