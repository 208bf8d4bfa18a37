package cli

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	dio "github.com/matzehuels/dmfbsynth/pkg/io"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
)

var (
	tabActiveStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Underline(true)
	tabInactiveStyle = lipgloss.NewStyle().Foreground(colorGray)
	listDimStyle     = lipgloss.NewStyle().Foreground(colorDim)
	cellModuleStyle  = lipgloss.NewStyle().Foreground(colorGreen)
	cellDropletStyle = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
)

// Inspector tabs.
const (
	tabSchedule   = "Schedule"
	tabPlacement  = "Placement"
	tabRoutes     = "Routes"
	tabViolations = "Violations"
	tabChip       = "Chip"
)

// =============================================================================
// ResultModel - Interactive result browser
// =============================================================================

// ResultModel is the bubbletea model of the inspect command. It pages
// through the schedule, placement, routes and violations of a result and,
// when the problem is known, draws the chip at a chosen time step.
type ResultModel struct {
	Out     *dio.Output
	Problem *problem.Problem

	Tab    int
	Offset int
	Height int
	Time   int

	tabs []string
}

// NewResultModel creates the model. p may be nil.
func NewResultModel(out *dio.Output, p *problem.Problem) ResultModel {
	tabs := []string{tabSchedule, tabPlacement, tabRoutes, tabViolations}
	if p != nil {
		tabs = append(tabs, tabChip)
	}
	return ResultModel{Out: out, Problem: p, Height: 15, tabs: tabs}
}

func (m ResultModel) Init() tea.Cmd {
	return nil
}

func (m ResultModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "right", "l":
			m.Tab = (m.Tab + 1) % len(m.tabs)
			m.Offset = 0
		case "shift+tab", "left", "h":
			m.Tab = (m.Tab + len(m.tabs) - 1) % len(m.tabs)
			m.Offset = 0
		case "up", "k":
			if m.Offset > 0 {
				m.Offset--
			}
		case "down", "j":
			if _, rows := m.rows(); m.Offset+m.Height < len(rows) {
				m.Offset++
			}
		case "]":
			if m.Time < m.Out.Makespan {
				m.Time++
			}
		case "[":
			if m.Time > 0 {
				m.Time--
			}
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m ResultModel) View() string {
	var b strings.Builder

	status := StyleSuccess.Render("feasible")
	switch {
	case m.Out.Aborted:
		status = StyleWarning.Render("aborted: " + m.Out.AbortReason)
	case !m.Out.Feasible:
		status = StyleError.Render("infeasible")
	}
	b.WriteString(StyleTitle.Render(m.Out.Problem))
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  %s · makespan %d · ", m.Out.Method, m.Out.Makespan)))
	b.WriteString(status)
	b.WriteString("\n\n")

	for i, t := range m.tabs {
		if i > 0 {
			b.WriteString(listDimStyle.Render(" │ "))
		}
		if i == m.Tab {
			b.WriteString(tabActiveStyle.Render(t))
		} else {
			b.WriteString(tabInactiveStyle.Render(t))
		}
	}
	b.WriteString("\n\n")

	if m.tabs[m.Tab] == tabChip {
		b.WriteString(m.chipView())
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render("←/→ tab  [/] time  q quit"))
		return b.String()
	}

	headers, rows := m.rows()
	if len(rows) == 0 {
		b.WriteString(listDimStyle.Render("  (empty)"))
	} else {
		end := min(m.Offset+m.Height, len(rows))
		b.WriteString(table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
			Headers(headers...).
			Rows(rows[m.Offset:end]...).
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == -1 {
					return styleHeader
				}
				return lipgloss.NewStyle()
			}).
			Render())
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d-%d/%d]", m.Offset+1, end, len(rows))))
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("←/→ tab  ↑/↓ scroll  q quit"))
	return b.String()
}

// rows returns the table of the current tab.
func (m ResultModel) rows() ([]string, [][]string) {
	switch m.tabs[m.Tab] {
	case tabSchedule:
		var rows [][]string
		for _, id := range sortedKeys(m.Out.Schedule) {
			se := m.Out.Schedule[id]
			row := []string{fmt.Sprint(id), fmt.Sprint(se[0]), fmt.Sprint(se[1]), fmt.Sprint(se[1] - se[0])}
			rows = append(rows, append(row, m.moduleOf(id)))
		}
		return []string{"Op", "Start", "End", "Duration", "Module"}, rows
	case tabPlacement:
		var rows [][]string
		for _, id := range sortedKeys(m.Out.Placement) {
			xy := m.Out.Placement[id]
			rows = append(rows, []string{fmt.Sprint(id), fmt.Sprint(xy[0]), fmt.Sprint(xy[1]), m.moduleOf(id)})
		}
		return []string{"Op", "X", "Y", "Module"}, rows
	case tabRoutes:
		var rows [][]string
		for _, id := range sortedKeys(m.Out.Routes) {
			steps := m.Out.Routes[id]
			if len(steps) == 0 {
				rows = append(rows, []string{fmt.Sprint(id), "-", "-", "0"})
				continue
			}
			first, last := steps[0], steps[len(steps)-1]
			rows = append(rows, []string{
				fmt.Sprint(id),
				fmt.Sprintf("(%d,%d)@%d", first[0], first[1], first[2]),
				fmt.Sprintf("(%d,%d)@%d", last[0], last[1], last[2]),
				fmt.Sprint(len(steps)),
			})
		}
		return []string{"Droplet", "From", "To", "Steps"}, rows
	default:
		rows := make([][]string, len(m.Out.Violations))
		for i, v := range m.Out.Violations {
			rows[i] = []string{string(v.Kind), fmt.Sprint(v.Subjects), v.Message}
		}
		return []string{"Kind", "Subjects", "Message"}, rows
	}
}

func (m ResultModel) moduleOf(id int) string {
	if m.Problem == nil {
		return "-"
	}
	op, ok := m.Problem.Operation(id)
	if !ok {
		return "?"
	}
	return op.ModuleType
}

// chipView draws the electrode grid at m.Time: active module footprints
// are labeled with their operation ID, droplets are marked with '●'.
// Row 0 is drawn at the bottom.
func (m ResultModel) chipView() string {
	chip := m.Problem.Chip()
	grid := make([][]string, chip.Height)
	for y := range grid {
		grid[y] = make([]string, chip.Width)
		for x := range grid[y] {
			grid[y][x] = listDimStyle.Render("·")
		}
	}

	for _, id := range sortedKeys(m.Out.Schedule) {
		se := m.Out.Schedule[id]
		xy, placed := m.Out.Placement[id]
		if !placed || !m.Problem.HasOperation(id) || m.Time < se[0] || m.Time >= se[1] {
			continue
		}
		label := cellModuleStyle.Render(opLabel(id))
		r := m.Problem.Footprint(id, problem.Cell{X: xy[0], Y: xy[1]})
		for y := max(r.Y, 0); y < min(r.Y+r.H, chip.Height); y++ {
			for x := max(r.X, 0); x < min(r.X+r.W, chip.Width); x++ {
				grid[y][x] = label
			}
		}
	}

	active := 0
	for _, steps := range m.Out.Routes {
		for _, st := range steps {
			if st[2] != m.Time {
				continue
			}
			if st[0] >= 0 && st[0] < chip.Width && st[1] >= 0 && st[1] < chip.Height {
				grid[st[1]][st[0]] = cellDropletStyle.Render("●")
				active++
			}
		}
	}

	var b strings.Builder
	for y := chip.Height - 1; y >= 0; y-- {
		b.WriteString("  ")
		b.WriteString(strings.Join(grid[y], " "))
		b.WriteString("\n")
	}
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  t = %d / %d · %d droplet(s) moving", m.Time, m.Out.Makespan, active)))
	b.WriteString("\n")
	return b.String()
}

// opLabel is a one-character label for an operation ID.
func opLabel(id int) string {
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	if id < 0 {
		return "-"
	}
	return string(digits[id%len(digits)])
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
