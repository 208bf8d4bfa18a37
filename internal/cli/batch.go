package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dmfbsynth/pkg/config"
	dio "github.com/matzehuels/dmfbsynth/pkg/io"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
	"github.com/matzehuels/dmfbsynth/pkg/store"
)

// batchCommand solves every problem in a directory and persists the results,
// e.g. to collect training data for learned synthesis methods.
func (c *CLI) batchCommand() *cobra.Command {
	var (
		workers  int
		backend  string
		storeDir string
		mongoURI string
		database string
		flags    pipelineFlags
	)

	cmd := &cobra.Command{
		Use:   "batch [dir]",
		Short: "Solve every problem in a directory and store the results",
		Long: `Solve every problem in a directory and store the results.

All *.json files in dir except *.result.json are loaded as problems. A file
that fails to load is reported and skipped. Every solved problem becomes one
record in the result store, tagged with a batch ID so that a run can be
listed later with 'dmfbsynth results list --batch <id>'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.pipelineConfig(cmd, &flags)
			if err != nil {
				return err
			}
			applyStoreFlags(cmd, &cfg.Store, backend, storeDir, mongoURI, database)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return c.runBatch(cmd.Context(), args[0], cfg, workers)
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", runtime.GOMAXPROCS(0), "problems solved in parallel")
	registerStoreFlags(cmd, &backend, &storeDir, &mongoURI, &database)
	flags.register(cmd)

	return cmd
}

func registerStoreFlags(cmd *cobra.Command, backend, dir, mongoURI, database *string) {
	cmd.Flags().StringVar(backend, "store", config.StoreFile, "result store: file, mongo")
	cmd.Flags().StringVar(dir, "store-dir", "", "file store directory (default: ~/.local/share/dmfbsynth/results)")
	cmd.Flags().StringVar(mongoURI, "mongo-uri", "", "MongoDB connection string for --store mongo")
	cmd.Flags().StringVar(database, "mongo-db", store.DefaultDatabase, "MongoDB database")
}

func applyStoreFlags(cmd *cobra.Command, sc *config.StoreConfig, backend, dir, mongoURI, database string) {
	fs := cmd.Flags()
	if fs.Changed("store") {
		sc.Backend = backend
	}
	if fs.Changed("store-dir") {
		sc.Dir = dir
	}
	if fs.Changed("mongo-uri") {
		sc.MongoURI = mongoURI
	}
	if fs.Changed("mongo-db") || sc.Database == "" {
		sc.Database = database
	}
}

func (c *CLI) runBatch(ctx context.Context, dir string, cfg config.Config, workers int) error {
	files, err := problemFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		printInfo("No problem files in %s", dir)
		return nil
	}

	var (
		problems []*problem.Problem
		names    []string
	)
	for _, f := range files {
		p, err := dio.LoadProblem(f)
		if err != nil {
			printWarning("Skipping %s: %v", filepath.Base(f), err)
			continue
		}
		problems = append(problems, p)
		names = append(names, f)
	}

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	runner, err := c.newRunner(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts := cfg.Options()
	opts.Logger = c.Logger

	batchID := uuid.NewString()
	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Solving %d problems...", len(problems)))
	spinner.Start()
	items, runErr := runner.Batch(ctx, problems, opts, workers)
	spinner.Stop()

	// Persist whatever finished, even when the batch was interrupted.
	saveCtx := context.WithoutCancel(ctx)
	var solved, feasible, failed int
	for _, item := range items {
		name := filepath.Base(names[item.Index])
		switch {
		case item.Err != nil:
			failed++
			printError("%s: %v", name, item.Err)
			continue
		case item.Result == nil:
			continue
		}
		solved++
		if item.Result.Feasible {
			feasible++
		}
		rec := store.NewRecord(item.Result.ProblemHash, batchID, *item.Result.Output())
		if err := st.Put(saveCtx, rec); err != nil {
			return fmt.Errorf("store %s: %w", name, err)
		}
		printDetail("%s  makespan %d  feasible %v", name, item.Result.Makespan, item.Result.Feasible)
	}
	prog.done("batch complete", "solved", solved, "feasible", feasible, "failed", failed)

	if runErr != nil {
		printWarning("Batch interrupted after %d of %d problems", solved+failed, len(problems))
		return runErr
	}
	printSuccess("Stored %d results (%d feasible)", solved, feasible)
	printKeyValue("batch", batchID)
	printKeyValue("store", cfg.Store.Backend)
	printNewline()
	printNextStep("List", appName+" results list --batch "+batchID)
	return nil
}

// problemFiles lists the problem files of dir in name order.
func problemFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" || strings.HasSuffix(name, ".result.json") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}
