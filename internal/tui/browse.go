// Package tui implements the interactive plan browser.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/taskplan/internal/plan"
	"github.com/felixgeelhaar/taskplan/internal/planner"
)

// browse view states.
const (
	viewPlanList = iota
	viewPlanDetail
)

type plansLoadedMsg struct {
	plans []*planner.PlanSummary
	err   error
}

type planLoadedMsg struct {
	plan *plan.Plan
	err  error
}

// BrowseModel is the bubbletea model for the plan browser: a plan list with
// a drill-down task tree view.
type BrowseModel struct {
	svc *planner.Service

	state    int
	plans    []*planner.PlanSummary
	cursor   int
	selected *plan.Plan
	detail   viewport.Model
	err      error

	width  int
	height int
}

// NewBrowseModel creates the browser over a planner service.
func NewBrowseModel(svc *planner.Service) BrowseModel {
	return BrowseModel{
		svc:    svc,
		detail: viewport.New(0, 0),
	}
}

// Run starts the interactive browser and blocks until the user quits.
func Run(svc *planner.Service) error {
	_, err := tea.NewProgram(NewBrowseModel(svc), tea.WithAltScreen()).Run()
	return err
}

// Init implements tea.Model.
func (m BrowseModel) Init() tea.Cmd {
	return m.loadPlans
}

func (m BrowseModel) loadPlans() tea.Msg {
	plans, err := m.svc.ListPlans(context.Background(), false)
	return plansLoadedMsg{plans: plans, err: err}
}

func (m BrowseModel) loadPlan(planID string) tea.Cmd {
	return func() tea.Msg {
		p, err := m.svc.GetPlan(context.Background(), planID)
		return planLoadedMsg{plan: p, err: err}
	}
}

// Update implements tea.Model.
func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.detail.Width = msg.Width
		m.detail.Height = msg.Height - 3
		return m, nil

	case plansLoadedMsg:
		m.plans = msg.plans
		m.err = msg.err
		if m.cursor >= len(m.plans) {
			m.cursor = 0
		}
		return m, nil

	case planLoadedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.selected = msg.plan
			m.detail.SetContent(renderTaskTree(msg.plan))
			m.detail.GotoTop()
			m.state = viewPlanDetail
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.state == viewPlanDetail {
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m BrowseModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	}

	if m.state == viewPlanDetail {
		switch msg.String() {
		case "esc":
			m.state = viewPlanList
			m.selected = nil
			return m, m.loadPlans
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.plans)-1 {
			m.cursor++
		}
	case "r":
		return m, m.loadPlans
	case "enter":
		if m.cursor < len(m.plans) {
			return m, m.loadPlan(m.plans[m.cursor].ID)
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m BrowseModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.err != nil {
		return fmt.Sprintf("error: %v\n\npress q to quit", m.err)
	}
	if m.state == viewPlanDetail && m.selected != nil {
		return m.renderDetailView()
	}
	return m.renderListView()
}

func (m BrowseModel) renderListView() string {
	var b strings.Builder

	title := TitleStyle.Render("Plans")
	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, title))
	b.WriteString("\n\n")

	if len(m.plans) == 0 {
		b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, "No plans yet."))
		b.WriteString("\n\n")
		b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center,
			SubtleStyle.Render("Create one with: taskplan plan new")))
		b.WriteString("\n")
		b.WriteString(m.statusBar([]string{"r Reload", "q Quit"}))
		return b.String()
	}

	var lines []string
	for i, p := range m.plans {
		lines = append(lines, m.formatPlanLine(i, p))
	}
	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, strings.Join(lines, "\n")))
	b.WriteString("\n")
	b.WriteString(m.statusBar([]string{"↑↓ Navigate", "Enter Open", "r Reload", "q Quit"}))
	return b.String()
}

func (m BrowseModel) formatPlanLine(index int, p *planner.PlanSummary) string {
	indicator := "○"
	if index == m.cursor {
		indicator = "●"
	}

	taskCount := fmt.Sprintf("%d tasks", p.Total)
	if p.Total == 1 {
		taskCount = "1 task"
	}

	progress := fmt.Sprintf("%s (%d/%d)", string(p.Status), p.Completed, p.Total)
	line := fmt.Sprintf("%s %-30s %10s   %s", indicator, p.Name, taskCount, progress)

	if index == m.cursor {
		return SelectedStyle.Render(line)
	}
	if p.Status == plan.StatusCompleted {
		return SubtleStyle.Render(line)
	}
	return line
}

func (m BrowseModel) renderDetailView() string {
	var b strings.Builder

	title := TitleStyle.Render(m.selected.Name)
	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, title))
	b.WriteString("\n\n")
	b.WriteString(m.detail.View())
	b.WriteString("\n")
	b.WriteString(m.statusBar([]string{"↑↓ Scroll", "Esc Back", "q Quit"}))
	return b.String()
}

func (m BrowseModel) statusBar(items []string) string {
	return StatusBarStyle.Width(m.width).Render(strings.Join(items, "  ·  "))
}

// renderTaskTree renders a plan's forest with two-space indentation per
// depth level.
func renderTaskTree(p *plan.Plan) string {
	if len(p.Tasks) == 0 {
		return SubtleStyle.Render("This plan has no tasks.")
	}

	var b strings.Builder
	var walk func(tasks []*plan.Task, depth int)
	walk = func(tasks []*plan.Task, depth int) {
		for _, t := range tasks {
			indent := strings.Repeat("  ", depth)
			line := fmt.Sprintf("%s%s %s  %s", indent, StatusGlyph(t.Status), t.Title, RenderStatus(t.Status))
			if t.EstimateHours > 0 {
				line += SubtleStyle.Render(fmt.Sprintf("  %.1fh", t.EstimateHours))
			}
			b.WriteString(line)
			b.WriteString("\n")
			walk(t.Children, depth+1)
		}
	}
	walk(p.Tasks, 0)
	return b.String()
}
