package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dmfbsynth/pkg/config"
	dio "github.com/matzehuels/dmfbsynth/pkg/io"
	"github.com/matzehuels/dmfbsynth/pkg/store"
)

// resultsCommand manages the records written by batch.
func (c *CLI) resultsCommand() *cobra.Command {
	var backend, storeDir, mongoURI, database string

	cmd := &cobra.Command{
		Use:   "results",
		Short: "List, export and delete stored results",
	}
	registerStoreFlagsPersistent(cmd, &backend, &storeDir, &mongoURI, &database)

	open := func(cmd *cobra.Command) (store.Store, error) {
		cfg, err := c.loadConfig()
		if err != nil {
			return nil, err
		}
		applyStoreFlags(cmd, &cfg.Store, backend, storeDir, mongoURI, database)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return openStore(cmd.Context(), cfg.Store)
	}

	cmd.AddCommand(c.resultsListCommand(open))
	cmd.AddCommand(c.resultsExportCommand(open))
	cmd.AddCommand(c.resultsDeleteCommand(open))
	return cmd
}

type storeOpener func(*cobra.Command) (store.Store, error)

func registerStoreFlagsPersistent(cmd *cobra.Command, backend, dir, mongoURI, database *string) {
	fs := cmd.PersistentFlags()
	fs.StringVar(backend, "store", config.StoreFile, "result store: file, mongo")
	fs.StringVar(dir, "store-dir", "", "file store directory")
	fs.StringVar(mongoURI, "mongo-uri", "", "MongoDB connection string for --store mongo")
	fs.StringVar(database, "mongo-db", store.DefaultDatabase, "MongoDB database")
}

func (c *CLI) resultsListCommand(open storeOpener) *cobra.Command {
	var f store.Filter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored results, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := open(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				printInfo("No stored results")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), recordTable(records))
			return nil
		},
	}

	cmd.Flags().StringVar(&f.Problem, "problem", "", "only results of this problem")
	cmd.Flags().StringVar(&f.Batch, "batch", "", "only results of this batch")
	cmd.Flags().IntVarP(&f.Limit, "limit", "n", 50, "maximum number of results (0 = all)")
	return cmd
}

func (c *CLI) resultsExportCommand(open storeOpener) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Write a stored result as a result file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := open(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			rec, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("result %s: %w", args[0], err)
			}
			if output == "" {
				return dio.WriteResult(&rec.Output, cmd.OutOrStdout())
			}
			if err := dio.SaveResult(&rec.Output, output); err != nil {
				return err
			}
			printSuccess("Exported %s", rec.ID)
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func (c *CLI) resultsDeleteCommand(open storeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id...]",
		Short: "Delete stored results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := open(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			return deleteRecords(cmd.Context(), st, args)
		},
	}
}

func deleteRecords(ctx context.Context, st store.Store, ids []string) error {
	for _, id := range ids {
		if err := st.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
		printSuccess("Deleted %s", id)
	}
	return nil
}

func recordTable(records []store.Record) string {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			r.ID,
			r.Problem,
			r.Output.Method,
			fmt.Sprint(r.Output.Makespan),
			fmt.Sprint(r.Output.Feasible),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
		}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("ID", "Problem", "Method", "Makespan", "Feasible", "Created").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			if col == 0 {
				return StyleDim
			}
			return lipgloss.NewStyle()
		}).
		Render()
}
