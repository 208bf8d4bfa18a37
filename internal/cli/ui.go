package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/dmfbsynth/pkg/feasibility"
	"github.com/matzehuels/dmfbsynth/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	// StyleError for failed stages.
	StyleError = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Println(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printDetail prints an indented dim line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(14)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

func printNewline() {
	fmt.Println()
}

// =============================================================================
// Results
// =============================================================================

// runStats renders the one-line summary under a solved problem.
func runStats(res *pipeline.Result) string {
	parts := []string{
		fmt.Sprintf("makespan %d", res.Makespan),
		fmt.Sprintf("%d ops", len(res.Schedule)),
		fmt.Sprintf("%d droplets", len(res.Droplets)),
		res.Method,
	}
	status, style := iconFresh, styleComputed
	if res.CacheHit {
		status, style = iconCached, styleCached
	}

	var b strings.Builder
	b.WriteString("  ")
	for i, part := range parts {
		if i > 0 {
			b.WriteString(StyleDim.Render(" · "))
		}
		b.WriteString(StyleDim.Render(part))
	}
	b.WriteString(StyleDim.Render(" · "))
	b.WriteString(style.Render(status))
	return b.String()
}

// printResult prints the outcome of one pipeline run.
func printResult(res *pipeline.Result) {
	switch {
	case res.Feasible:
		printSuccess("Synthesized %s", res.Output().Problem)
	case res.Aborted:
		printWarning("Aborted before routing: %s", res.AbortReason)
	case res.Degraded:
		printWarning("Degraded result, earlier stages were infeasible")
	default:
		printWarning("Infeasible result")
	}
	fmt.Println(runStats(res))
	printViolations(res.Reports.Violations(), 10)
	if n := len(res.Failures); n > 0 {
		printDetail("%d droplet(s) unroutable: %v", n, res.Unroutable())
	}
}

// printViolations prints at most limit violations.
func printViolations(vs []feasibility.Violation, limit int) {
	for i, v := range vs {
		if i == limit {
			printDetail("... and %d more", len(vs)-limit)
			return
		}
		printDetail("%s", v.String())
	}
}

// reportTable renders the per-stage feasibility of a run.
func reportTable(r pipeline.Reports) string {
	rows := [][]string{
		reportRow(pipeline.StageScheduling, r.Schedule),
		reportRow(pipeline.StagePlacement, r.Placement),
		reportRow(pipeline.StageRouting, r.Routing),
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Stage", "Feasible", "Reason", "Violations").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			if col == 1 && row >= 0 && row < len(rows) {
				if rows[row][1] == iconSuccess {
					return StyleSuccess
				}
				return StyleError
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

func reportRow(stage string, rep feasibility.Report) []string {
	ok := iconError
	if rep.Feasible {
		ok = iconSuccess
	}
	reason := string(rep.Reason)
	if reason == "" {
		reason = "-"
	}
	return []string{stage, ok, reason, fmt.Sprint(len(rep.Violations))}
}
