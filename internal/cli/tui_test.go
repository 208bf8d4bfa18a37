package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	dio "github.com/matzehuels/dmfbsynth/pkg/io"
	"github.com/matzehuels/dmfbsynth/pkg/problem"
)

func testModel(withProblem bool) ResultModel {
	var p *problem.Problem
	if withProblem {
		p = problem.NewBuilder("chain", 6, 4).
			Module("mixer", problem.CategoryMixer, 2, 2, 5).
			Op(1, "mix", "mixer").
			Op(2, "mix", "mixer", 1).
			MustBuild()
	}
	out := &dio.Output{
		Problem:   "chain",
		Method:    "builtin",
		Makespan:  12,
		Feasible:  true,
		Schedule:  map[int][2]int{1: {0, 5}, 2: {7, 12}},
		Placement: map[int][2]int{1: {0, 0}, 2: {3, 0}},
		Routes:    map[int][][3]int{0: {{1, 1, 5}, {2, 1, 6}, {3, 1, 7}}},
	}
	return NewResultModel(out, p)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(m ResultModel, msgs ...tea.Msg) ResultModel {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(ResultModel)
	}
	return m
}

func TestResultModelTabs(t *testing.T) {
	m := testModel(false)
	if len(m.tabs) != 4 {
		t.Fatalf("tabs without problem = %v, want 4", m.tabs)
	}
	if m = update(m, key("tab")); m.tabs[m.Tab] != tabPlacement {
		t.Errorf("after tab = %s, want %s", m.tabs[m.Tab], tabPlacement)
	}
	if m = update(m, key("shift+tab"), key("shift+tab")); m.tabs[m.Tab] != tabViolations {
		t.Errorf("after wrap = %s, want %s", m.tabs[m.Tab], tabViolations)
	}

	if m := testModel(true); m.tabs[len(m.tabs)-1] != tabChip {
		t.Errorf("last tab with problem = %s, want %s", m.tabs[len(m.tabs)-1], tabChip)
	}
}

func TestResultModelQuit(t *testing.T) {
	_, cmd := testModel(false).Update(key("q"))
	if cmd == nil {
		t.Fatal("q should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestResultModelScroll(t *testing.T) {
	m := testModel(true)
	m.Height = 1
	m = update(m, key("j"), key("j"), key("j"))
	if m.Offset != 1 {
		t.Errorf("Offset = %d, want 1 (two schedule rows)", m.Offset)
	}
	if m = update(m, key("k"), key("k")); m.Offset != 0 {
		t.Errorf("Offset = %d, want 0", m.Offset)
	}
	if m = update(m, tea.WindowSizeMsg{Height: 40}); m.Height != 32 {
		t.Errorf("Height = %d, want 32", m.Height)
	}
}

func TestResultModelTime(t *testing.T) {
	m := testModel(true)
	if m = update(m, key("[")); m.Time != 0 {
		t.Errorf("Time = %d, want 0", m.Time)
	}
	for range 20 {
		m = update(m, key("]"))
	}
	if m.Time != 12 {
		t.Errorf("Time = %d, want makespan 12", m.Time)
	}
}

func TestResultModelView(t *testing.T) {
	m := testModel(true)
	view := m.View()
	for _, want := range []string{"chain", "makespan 12", "Schedule", "mixer"} {
		if !strings.Contains(view, want) {
			t.Errorf("schedule view missing %q", want)
		}
	}

	m.Tab = 3
	if view := m.View(); !strings.Contains(view, "(empty)") {
		t.Error("violations view of a feasible result should be empty")
	}
}

func TestChipView(t *testing.T) {
	m := testModel(true)
	m.Tab = len(m.tabs) - 1

	m.Time = 2
	view := m.View()
	if !strings.Contains(view, "1") || strings.Contains(view, "●") {
		t.Errorf("at t=2 op 1 should be active and no droplet moving:\n%s", view)
	}

	m.Time = 6
	view = m.View()
	if !strings.Contains(view, "●") || !strings.Contains(view, "1 droplet(s) moving") {
		t.Errorf("at t=6 one droplet should be moving:\n%s", view)
	}
}

func TestOpLabel(t *testing.T) {
	tests := []struct {
		id   int
		want string
	}{
		{0, "0"},
		{9, "9"},
		{10, "a"},
		{36, "0"},
		{-1, "-"},
	}
	for _, tt := range tests {
		if got := opLabel(tt.id); got != tt.want {
			t.Errorf("opLabel(%d) = %q, want %q", tt.id, got, tt.want)
		}
	}
}
