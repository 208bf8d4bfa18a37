package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dmfbsynth/pkg/cache"
	"github.com/matzehuels/dmfbsynth/pkg/errors"
	dio "github.com/matzehuels/dmfbsynth/pkg/io"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
)

var renderFormats = []string{dio.FormatDOT, dio.FormatSVG, dio.FormatPNG}

// renderCommand draws the operation graph of a problem with Graphviz.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output     string
		format     string
		resultFile string
		detailed   bool
	)

	cmd := &cobra.Command{
		Use:   "render [problem.json]",
		Short: "Render the assay graph as DOT, SVG or PNG",
		Long: `Render the assay graph as DOT, SVG or PNG.

Nodes are operations colored by module category, edges are dependencies.
With --result every node is annotated with its scheduled time window and
placed position.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(renderFormats, format) {
				return errors.New(errors.ErrCodeInvalidInput, "format must be one of %s, got %q", strings.Join(renderFormats, ", "), format)
			}
			return c.runRender(cmd.Context(), args[0], output, format, resultFile, detailed)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.<format>)")
	cmd.Flags().StringVarP(&format, "format", "f", dio.FormatSVG, "output format: dot, svg (default), png")
	cmd.Flags().StringVarP(&resultFile, "result", "r", "", "annotate with the schedule and placement of a result file")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "show module type and duration")

	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(renderFormats, cobra.ShellCompDirectiveNoFileComp))
	return cmd
}

func (c *CLI) runRender(ctx context.Context, input, output, format, resultFile string, detailed bool) error {
	p, err := dio.LoadProblem(input)
	if err != nil {
		return err
	}

	opts := dio.DOTOptions{Detailed: detailed}
	if resultFile != "" {
		out, err := dio.LoadResult(resultFile)
		if err != nil {
			return err
		}
		opts.Schedule = out.ScheduleValue()
		opts.Placement = out.PlacementValue()
	}

	var data []byte
	switch {
	case format == dio.FormatDOT:
		data = []byte(dio.ToDOT(p, opts))
	case resultFile == "":
		// plain assay images depend only on the problem, so they are cached
		data, err = c.renderCached(ctx, p, opts, format)
	default:
		data, err = c.renderImage(ctx, p, opts, format)
	}
	if err != nil {
		return err
	}

	outputPath := output
	if outputPath == "" {
		outputPath = strings.TrimSuffix(input, filepath.Ext(input)) + "." + format
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outputPath, err)
	}

	printSuccess("Rendered %s", p.Name())
	printFile(outputPath)
	return nil
}

func (c *CLI) renderImage(ctx context.Context, p *problem.Problem, opts dio.DOTOptions, format string) ([]byte, error) {
	c.Logger.Debug("rendering with graphviz", "format", format, "operations", p.NumOperations())
	data, err := dio.Render(ctx, p, opts, format)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return data, nil
}

// renderCached looks the image up in the result cache before running
// graphviz. Cache failures only cost a re-render.
func (c *CLI) renderCached(ctx context.Context, p *problem.Problem, opts dio.DOTOptions, format string) ([]byte, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	cc, err := newCache(ctx, cfg.Cache)
	if err != nil {
		c.Logger.Warn("render cache unavailable", "error", err)
		return c.renderImage(ctx, p, opts, format)
	}
	defer cc.Close()

	canonical, err := dio.MarshalProblem(p)
	if err != nil {
		return nil, err
	}
	key := cache.NewDefaultKeyer().RenderKey(cache.Hash(canonical), format, opts.Detailed)
	if data, hit, err := cc.Get(ctx, key); err == nil && hit {
		c.Logger.Debug("render cache hit", "format", format)
		return data, nil
	}

	data, err := c.renderImage(ctx, p, opts, format)
	if err != nil {
		return nil, err
	}
	if err := cc.Set(ctx, key, data, cache.TTLRender); err != nil {
		c.Logger.Debug("render cache write failed", "error", err)
	}
	return data, nil
}
