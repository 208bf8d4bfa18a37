package io

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/dmfbsynth/pkg/errors"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
)

// Image formats supported by [RenderDOT].
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
	FormatPNG = "png"
)

// DOTOptions configures assay graph export.
type DOTOptions struct {
	// Schedule and Placement annotate operations with their time window
	// and position when set.
	Schedule  problem.Schedule
	Placement problem.Placement

	// Detailed adds the module type and duration to every label.
	Detailed bool
}

var categoryColors = map[problem.Category]string{
	problem.CategoryMixer:     "#cfe8fc",
	problem.CategoryHeater:    "#fde2cf",
	problem.CategoryDetector:  "#dcf5d0",
	problem.CategoryStorage:   "#ececec",
	problem.CategoryDispenser: "#f3dcf7",
	problem.CategoryWaste:     "#f7d4d4",
}

// ToDOT converts the operation graph of p to Graphviz DOT. Nodes are filled
// by module category; edges follow precedence.
func ToDOT(p *problem.Problem, opts DOTOptions) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", p.Name())
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	for _, op := range p.Operations() {
		m := p.ModuleOf(op.ID)
		lines := []string{fmt.Sprintf("%d: %s", op.ID, op.Kind)}
		if opts.Detailed {
			lines = append(lines, fmt.Sprintf("%s (%d)", op.ModuleType, p.Duration(op.ID)))
		}
		if iv, ok := opts.Schedule[op.ID]; ok {
			lines = append(lines, fmt.Sprintf("[%d, %d)", iv.Start, iv.End))
		}
		if c, ok := opts.Placement[op.ID]; ok {
			lines = append(lines, "@ "+c.String())
		}
		color := categoryColors[m.Category]
		if color == "" {
			color = "white"
		}
		fmt.Fprintf(&buf, "  %d [label=%q, fillcolor=%q];\n", op.ID, strings.Join(lines, "\n"), color)
	}

	buf.WriteString("\n")
	for _, e := range p.Edges() {
		fmt.Fprintf(&buf, "  %d -> %d;\n", e.From, e.To)
	}
	buf.WriteString("}\n")
	return buf.String()
}

// RenderDOT lays out a DOT graph in-process with Graphviz and returns the
// image in the requested format (svg or png).
func RenderDOT(ctx context.Context, dot string, format string) ([]byte, error) {
	var gvFormat graphviz.Format
	switch format {
	case FormatSVG:
		gvFormat = graphviz.SVG
	case FormatPNG:
		gvFormat = graphviz.PNG
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported image format %q", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, gvFormat, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// Render exports p as dot, svg or png.
func Render(ctx context.Context, p *problem.Problem, opts DOTOptions, format string) ([]byte, error) {
	dot := ToDOT(p, opts)
	if format == FormatDOT || format == "" {
		return []byte(dot), nil
	}
	return RenderDOT(ctx, dot, format)
}
