package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tangle/internal/engine/graph"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	criticalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	moderateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	lowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FDE047"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

// cycleItem and unresolvedItem carry display-ready strings; path
// relativization happens in App before the message is sent.
type cycleItem struct {
	severity   graph.Severity
	files      []string
	score      float64
	dependents int
}

type unresolvedItem struct {
	file  string
	count int
}

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	list       list.Model
	cycles     []cycleItem
	unresolved []unresolvedItem
	lastUpdate time.Time
	fileCount  int
	edgeCount  int
}

type updateMsg struct {
	cycles     []cycleItem
	unresolved []unresolvedItem
	fileCount  int
	edgeCount  int
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
	case updateMsg:
		m.cycles = msg.cycles
		m.unresolved = msg.unresolved
		m.fileCount = msg.fileCount
		m.edgeCount = msg.edgeCount
		m.lastUpdate = time.Now()

		items := []list.Item{}
		for _, c := range m.cycles {
			items = append(items, item{
				title: severityTitle(c.severity),
				desc: fmt.Sprintf("%s (score %.2f, %d dependents)",
					strings.Join(c.files, ", "), c.score, c.dependents),
			})
		}
		for _, u := range m.unresolved {
			items = append(items, item{
				title: "Unresolved References",
				desc:  fmt.Sprintf("%d in %s", u.count, u.file),
			})
		}
		m.list.SetItems(items)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d files | %d edges",
		m.lastUpdate.Format("15:04:05"), m.fileCount, m.edgeCount))

	totalUnresolved := 0
	for _, u := range m.unresolved {
		totalUnresolved += u.count
	}

	var summary string
	if len(m.cycles) == 0 && totalUnresolved == 0 {
		summary = successStyle.Render("✅ System Clean")
	} else {
		summary = fmt.Sprintf("⚠️  %s | %s",
			cycleSummaryStyle(m.cycles).Render(fmt.Sprintf("%d Cycles", len(m.cycles))),
			moderateStyle.Render(fmt.Sprintf("%d Unresolved", totalUnresolved)))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Tangle Dependency Monitor"), status, summary)
	return docStyle.Render(header + "\n" + m.list.View())
}

func severityTitle(sev graph.Severity) string {
	switch sev {
	case graph.SeverityCritical:
		return "Critical Cycle"
	case graph.SeverityModerate:
		return "Moderate Cycle"
	default:
		return "Low Cycle"
	}
}

// cycleSummaryStyle colors the cycle count after the worst severity present.
func cycleSummaryStyle(cycles []cycleItem) lipgloss.Style {
	style := lowStyle
	for _, c := range cycles {
		switch c.severity {
		case graph.SeverityCritical:
			return criticalStyle
		case graph.SeverityModerate:
			style = moderateStyle
		}
	}
	return style
}

func initialModel() model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Dependency Issues"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return model{
		list:       l,
		lastUpdate: time.Now(),
	}
}
