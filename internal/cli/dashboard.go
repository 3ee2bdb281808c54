package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/drapaimern/stackbench/internal/observability"
	"github.com/drapaimern/stackbench/internal/storage"
)

// Dashboard panel indices.
const (
	panelRuns = iota
	panelProgress
	panelEvents
	panelCount
)

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	runs   []storage.RunSummary
	events []observability.Event

	// State.
	loading bool
	err     error
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	runs   []storage.RunSummary
	events []observability.Event
	err    error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	levelError = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	levelWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	levelInfo  = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelRuns,
		loading:     true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadDashboardData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadDashboardData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.runs = msg.runs
		m.events = msg.events
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" stackbench Dashboard ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	runsPanel := m.renderRunsPanel()
	progressPanel := m.renderProgressPanel()
	eventsPanel := m.renderEventsPanel()

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		// Horizontal layout: three columns.
		colWidth := availableWidth / 3
		runsPanel = m.applyPanelStyle(panelRuns, runsPanel, colWidth-4)
		progressPanel = m.applyPanelStyle(panelProgress, progressPanel, colWidth-4)
		eventsPanel = m.applyPanelStyle(panelEvents, eventsPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, runsPanel, progressPanel, eventsPanel)
	} else {
		// Vertical layout: stacked.
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		runsPanel = m.applyPanelStyle(panelRuns, runsPanel, panelWidth)
		progressPanel = m.applyPanelStyle(panelProgress, progressPanel, panelWidth)
		eventsPanel = m.applyPanelStyle(panelEvents, eventsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, runsPanel, progressPanel, eventsPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderRunsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Runs"))
	b.WriteString("\n")

	if len(m.runs) == 0 {
		b.WriteString("  No runs found.")
		return b.String()
	}

	// Count by phase, corrupt state shown separately.
	counts := make(map[string]int)
	for _, r := range m.runs {
		if r.Degraded {
			counts["corrupt"]++
			continue
		}
		counts[string(r.Phase)]++
	}
	order := []string{"created", "cloned", "extracted", "execution",
		"analysis_individual", "analysis_overall", "completed", "corrupt"}
	for _, phase := range order {
		count, ok := counts[phase]
		if !ok || count == 0 {
			continue
		}
		label := fmt.Sprintf("  %-20s %d", phase, count)
		b.WriteString(styleForDashPhase(phase).Render(label))
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf("\n  Total: %d", len(m.runs)))

	return b.String()
}

func (m dashboardModel) renderProgressPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("In Progress"))
	b.WriteString("\n")

	shown := 0
	for _, r := range m.runs {
		if r.Degraded || string(r.Phase) == "completed" {
			continue
		}
		b.WriteString(fmt.Sprintf("  %-14s %s\n", shortID(r.ID), r.RepoName))
		b.WriteString(fmt.Sprintf("    %s, %d/%d executed, %d/%d analyzed\n",
			r.Phase, r.ExecutedCount, r.TaskCount, r.AnalyzedCount, r.TaskCount))
		shown++
		if shown >= 5 {
			break
		}
	}
	if shown == 0 {
		b.WriteString("  Nothing in progress.")
	}

	return b.String()
}

func (m dashboardModel) renderEventsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Recent Events (24h)"))
	b.WriteString("\n")

	if len(m.events) == 0 {
		b.WriteString("  No recent events.")
		return b.String()
	}

	// Newest last in the log file; show the newest first.
	start := len(m.events) - 1
	shown := 0
	for i := start; i >= 0 && shown < 8; i-- {
		e := m.events[i]
		lvl := styleForLevel(e.Level).Render(fmt.Sprintf("[%s]", e.Level))
		b.WriteString(fmt.Sprintf("  %s %s %s\n", e.Time.Format("15:04"), lvl, e.Message))
		shown++
	}

	return b.String()
}

func styleForDashPhase(phase string) lipgloss.Style {
	switch phase {
	case "completed":
		return phaseDone
	case "corrupt":
		return levelError
	default:
		return phaseActive
	}
}

func styleForLevel(level string) lipgloss.Style {
	switch level {
	case "ERROR":
		return levelError
	case "WARN":
		return levelWarn
	case "INFO":
		return levelInfo
	default:
		return lipgloss.NewStyle()
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func loadDashboardData() tea.Msg {
	var result dataLoadedMsg

	if Registry != nil {
		runs, err := Registry.List()
		if err != nil {
			result.err = fmt.Errorf("loading runs: %w", err)
			return result
		}
		result.runs = runs
	}

	if EventLog != nil {
		since := time.Now().UTC().Add(-24 * time.Hour)
		events, err := EventLog.Read(observability.EventFilter{Since: &since})
		if err != nil {
			result.err = fmt.Errorf("loading events: %w", err)
			return result
		}
		result.events = events
	}

	return result
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI overview of benchmark runs",
	Long: `Launch an interactive terminal dashboard showing run phases, in-flight
progress, and recent workflow events.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Registry == nil {
			return fmt.Errorf("registry not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
