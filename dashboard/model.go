package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Tab indices, in display order.
const (
	tabPerformance = iota
	tabCost
	tabLatency
	tabDaily
	tabCount
)

var tabNames = [tabCount]string{"Performance", "Cost", "Latency", "Daily"}
var tabViews = [tabCount]string{"performance", "cost", "latency", "daily"}

type snapshotMsg Snapshot

// Model is the Bubble Tea model for the metrics dashboard.
type Model struct {
	ds      DataSource
	snap    Snapshot
	tab     int
	width   int
	status  string
	loading bool
	spin    spinner.Model
}

// New creates a dashboard model reading from the given data source.
func New(ds DataSource) Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = statusStyle
	return Model{ds: ds, status: "Loading metrics...", loading: true, spin: sp}
}

// Init triggers the first data load.
func (m Model) Init() tea.Cmd { return tea.Batch(m.spin.Tick, m.refresh()) }

func (m Model) refresh() tea.Cmd {
	ds := m.ds
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return snapshotMsg(Load(ctx, ds))
	}
}

// Update handles key and window events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case snapshotMsg:
		m.snap = Snapshot(msg)
		m.loading = false
		if m.snap.Err != nil {
			m.status = "Load error: " + m.snap.Err.Error()
		} else {
			m.status = fmt.Sprintf("Loaded %s. r refresh, e export, q quit.", m.snap.LoadedAt.Format("15:04:05"))
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "right", "l":
			m.tab = (m.tab + 1) % tabCount
			return m, nil
		case "shift+tab", "left", "h":
			m.tab = (m.tab - 1 + tabCount) % tabCount
			return m, nil
		case "r":
			m.loading = true
			m.status = "Refreshing..."
			return m, tea.Batch(m.spin.Tick, m.refresh())
		case "e":
			name, err := m.snap.ExportCSV(tabViews[m.tab])
			if err != nil {
				m.status = "Export failed: " + err.Error()
			} else {
				m.status = "Exported " + name
			}
			return m, nil
		}
	}
	return m, nil
}

// View renders the active tab.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("CivicSense Evaluation Dashboard"))
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")
	if m.loading {
		b.WriteString(m.spin.View() + "Loading...\n")
	} else {
		b.WriteString(m.renderTab())
	}
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.status))
	return b.String()
}

func (m Model) renderTabs() string {
	parts := make([]string, 0, tabCount)
	for i, name := range tabNames {
		if i == m.tab {
			parts = append(parts, activeTabStyle.Render(name))
		} else {
			parts = append(parts, tabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderTab() string {
	switch m.tab {
	case tabPerformance:
		return m.renderPerformance()
	case tabCost:
		return m.renderCost()
	case tabLatency:
		return m.renderLatency()
	case tabDaily:
		return m.renderDaily()
	}
	return ""
}

func (m Model) renderPerformance() string {
	if len(m.snap.Feedback) == 0 {
		return emptyStyle.Render("No feedback results recorded yet.")
	}
	rows := [][]string{{"FEEDBACK", "VERSION", "MIN", "AVG", "MAX", "N"}}
	for _, r := range m.snap.Feedback {
		rows = append(rows, []string{
			r.Name, r.AppVersion,
			fmt.Sprintf("%.2f", r.MinScore),
			fmt.Sprintf("%.2f", r.AvgScore),
			fmt.Sprintf("%.2f", r.MaxScore),
			fmt.Sprintf("%d", r.Count),
		})
	}
	return renderTable(rows)
}

func (m Model) renderCost() string {
	if len(m.snap.Cost) == 0 {
		return emptyStyle.Render("No spend in the last 24 hours.")
	}
	rows := [][]string{{"HOUR", "PROMPT", "COMPLETION", "TOTAL", "COST $", "REQS"}}
	for _, r := range m.snap.Cost {
		rows = append(rows, []string{
			r.Hour.Format("Jan 02 15:00"),
			fmt.Sprintf("%d", r.PromptTokens),
			fmt.Sprintf("%d", r.CompletionTokens),
			fmt.Sprintf("%d", r.TotalTokens),
			fmt.Sprintf("%.4f", r.CostUSD),
			fmt.Sprintf("%d", r.Requests),
		})
	}
	total := fmt.Sprintf("Total: $%.4f", m.snap.TotalCost())
	return renderTable(rows) + "\n" + totalStyle.Render(total)
}

func (m Model) renderLatency() string {
	if len(m.snap.Latency) == 0 {
		return emptyStyle.Render("No traffic in the last 24 hours.")
	}
	rows := [][]string{{"HOUR", "MIN MS", "AVG MS", "MAX MS", "REQS"}}
	for _, r := range m.snap.Latency {
		rows = append(rows, []string{
			r.Hour.Format("Jan 02 15:00"),
			fmt.Sprintf("%d", r.MinMs),
			fmt.Sprintf("%.0f", r.AvgMs),
			fmt.Sprintf("%d", r.MaxMs),
			fmt.Sprintf("%d", r.Requests),
		})
	}
	return renderTable(rows)
}

func (m Model) renderDaily() string {
	if len(m.snap.Daily) == 0 {
		return emptyStyle.Render("No queries in the last 30 days.")
	}
	rows := [][]string{{"DAY", "QUERIES", "AVG MS", "AVG $", "TOTAL $"}}
	for _, r := range m.snap.Daily {
		rows = append(rows, []string{
			r.Day.Format("2006-01-02"),
			fmt.Sprintf("%d", r.Queries),
			fmt.Sprintf("%.0f", r.AvgLatencyMs),
			fmt.Sprintf("%.4f", r.AvgCostUSD),
			fmt.Sprintf("%.4f", r.TotalCostUSD),
		})
	}
	total := fmt.Sprintf("Queries: %d", m.snap.TotalQueries())
	return renderTable(rows) + "\n" + totalStyle.Render(total)
}

// renderTable pads columns to their widest cell. The first row is the header.
func renderTable(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	var b strings.Builder
	for ri, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = fmt.Sprintf("%-*s", widths[i], cell)
		}
		line := strings.Join(cells, "  ")
		if ri == 0 {
			line = headerStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	tabStyle       = lipgloss.NewStyle().Padding(0, 2).Foreground(lipgloss.Color("8"))
	activeTabStyle = lipgloss.NewStyle().Padding(0, 2).Bold(true).Underline(true)
	headerStyle    = lipgloss.NewStyle().Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	emptyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	totalStyle     = lipgloss.NewStyle().Bold(true)
)
