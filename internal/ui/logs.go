package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/shutter/internal/logtail"
)

// levelCycle is the order "v" steps through; empty shows everything.
var levelCycle = []string{"", "INFO", "WARN", "ERROR"}

// logState holds all log-related state.
type logState struct {
	entries     []logtail.Entry
	follow      bool
	lastRefresh time.Time
	loading     bool
	err         error

	minLevel string
	query    string

	searchActive bool
	searchInput  textinput.Model

	// Content caching - skip re-render when unchanged
	contentVersion uint64
	lastRendered   uint64
}

// initLogState initializes the log state.
func (m *Model) initLogState() {
	ti := textinput.New()
	ti.Placeholder = "Filter logs..."
	ti.CharLimit = 100

	m.logState = logState{follow: true, searchInput: ti}
}

// initLogViewport initializes the log viewport.
func (m *Model) initLogViewport() {
	m.logViewport = viewport.New(maxInt(m.width-4, 1), maxInt(m.height-5, 1))
	m.logViewport.Style = lipgloss.NewStyle()
}

// updateLogViewport updates the log viewport with current content.
func (m *Model) updateLogViewport() {
	if m.logViewport.Width == 0 {
		m.initLogViewport()
	}

	// Box height = m.height - 3 (header, cmdbar, status bar below)
	// Box inner = box height - 2 (top and bottom borders) = m.height - 5
	m.logViewport.Width = maxInt(m.width-4, 1)
	m.logViewport.Height = maxInt(m.height-6, 1) // minus the title line

	if m.logState.lastRendered == 0 || m.logState.contentVersion != m.logState.lastRendered {
		m.logViewport.SetContent(m.renderLogContent())
		m.logState.lastRendered = m.logState.contentVersion
		if m.logState.lastRendered == 0 {
			m.logState.lastRendered = 1 // Mark as rendered at least once
		}
	}

	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

// renderLogs renders the log view.
func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	box := m.renderBox(m.logTitle(), m.logViewport.View(), m.width, m.height-3, true)
	return box + "\n" + m.renderLogStatus(styles)
}

func (m Model) logTitle() string {
	title := "Log"
	if m.config != nil && m.config.LogFile != "" {
		title += " " + truncateMiddle(m.config.LogFile, maxInt(m.width-20, 10))
	}
	if m.logState.minLevel != "" || m.logState.query != "" {
		title += " (filtered)"
	}
	return title
}

// renderLogStatus renders the line below the log box.
func (m Model) renderLogStatus(styles Styles) string {
	if m.logState.searchActive {
		return styles.AccentText.Render("/") + m.logState.searchInput.View()
	}
	if m.logState.err != nil {
		return styles.DangerText.Render(m.logState.err.Error())
	}

	shown := len(logtail.Filter(m.logState.entries, m.logState.minLevel, m.logState.query))
	status := fmt.Sprintf("%d/%d lines", shown, len(m.logState.entries))
	if m.logState.follow {
		status += " · following"
	}
	if !m.logState.lastRefresh.IsZero() {
		status += " · " + m.logState.lastRefresh.Format("15:04:05")
	}
	return styles.FaintText.Render(status)
}

// renderLogContent formats the filtered entries for the viewport.
func (m *Model) renderLogContent() string {
	styles := m.theme.Styles()
	entries := logtail.Filter(m.logState.entries, m.logState.minLevel, m.logState.query)
	if len(entries) == 0 {
		if m.logState.loading {
			return styles.MutedText.Render("Loading log...")
		}
		return styles.MutedText.Render("No log lines")
	}

	width := m.logViewport.Width
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, m.formatEntry(e, styles, width))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) formatEntry(e logtail.Entry, styles Styles, width int) string {
	if e.Level == "" {
		return styles.Text.Render(truncate(e.Raw, width))
	}

	var plain strings.Builder
	plain.WriteString(e.Message)
	for _, a := range e.Attrs {
		plain.WriteString(" " + a.Key + "=" + a.Value)
	}

	prefix := styles.FaintText.Render(e.ShortTime()) + " " +
		m.getLevelStyle(e.Level, styles).Render(padRight(e.Level, 5)) + " "
	used := len(e.ShortTime()) + 7
	if e.Component != "" {
		prefix += styles.AccentText.Render("["+e.Component+"]") + " "
		used += len(e.Component) + 3
	}

	rest := truncate(plain.String(), maxInt(width-used, 8))
	msg := rest
	attrs := ""
	if len(rest) > len(e.Message) && strings.HasPrefix(rest, e.Message) {
		msg, attrs = e.Message, rest[len(e.Message):]
	}
	return prefix + styles.Text.Render(msg) + styles.MutedText.Render(attrs)
}

// getLevelStyle returns the style for a log level.
func (m *Model) getLevelStyle(level string, styles Styles) lipgloss.Style {
	switch level {
	case "INFO":
		return styles.SuccessText
	case "WARN":
		return styles.WarningText
	case "ERROR":
		return styles.DangerText
	case "DEBUG":
		return styles.InfoText
	default:
		return styles.Text
	}
}

// handleLogsKey processes keyboard input for logs view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logState.follow = !m.logState.follow
		m.updateLogViewport()
		if m.logState.follow {
			return m, m.refreshLogs()
		}
		return m, nil

	case key.Matches(msg, m.keys.CycleLevel):
		m.logState.minLevel = nextLevel(m.logState.minLevel)
		m.logState.contentVersion++
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.logState.searchActive = true
		m.logState.searchInput.SetValue(m.logState.query)
		return m, m.logState.searchInput.Focus()

	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
		m.logState.follow = false

	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		m.logState.follow = true

	case key.Matches(msg, m.keys.Down):
		m.logViewport.ScrollDown(1)
		m.logState.follow = false

	case key.Matches(msg, m.keys.Up):
		m.logViewport.ScrollUp(1)
		m.logState.follow = false

	case key.Matches(msg, m.keys.HalfPageDown):
		m.logViewport.HalfPageDown()
		m.logState.follow = false

	case key.Matches(msg, m.keys.HalfPageUp):
		m.logViewport.HalfPageUp()
		m.logState.follow = false

	case key.Matches(msg, m.keys.PageDown):
		m.logViewport.PageDown()
		m.logState.follow = false

	case key.Matches(msg, m.keys.PageUp):
		m.logViewport.PageUp()
		m.logState.follow = false
	}

	return m, nil
}

// handleLogSearchInput handles keyboard input while the filter is edited.
func (m Model) handleLogSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.logState.query = strings.TrimSpace(m.logState.searchInput.Value())
		m.logState.searchActive = false
		m.logState.searchInput.Blur()
		m.logState.contentVersion++
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.logState.searchActive = false
		m.logState.searchInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.logState.searchInput, cmd = m.logState.searchInput.Update(msg)
	return m, cmd
}

// clearLogSearch resets the active filter.
func (m *Model) clearLogSearch() {
	m.logState.query = ""
	m.logState.searchInput.SetValue("")
	m.logState.contentVersion++
	m.updateLogViewport()
}

// refreshLogs reads the tail of the log file.
func (m *Model) refreshLogs() tea.Cmd {
	if m.config == nil || m.config.LogFile == "" || m.logState.loading {
		return nil
	}
	m.logState.loading = true
	path := m.config.LogFile
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogTailLines)
		return logBatchMsg{lines: lines, err: err, at: time.Now()}
	}
}

type logBatchMsg struct {
	lines []string
	err   error
	at    time.Time
}

func (m *Model) handleLogBatch(msg logBatchMsg) {
	m.logState.loading = false
	m.logState.lastRefresh = msg.at
	m.logState.err = msg.err
	if msg.err != nil {
		return
	}
	m.logState.entries = logtail.ParseLines(msg.lines)
	m.logState.contentVersion++
	m.updateLogViewport()
}

func nextLevel(current string) string {
	for i, level := range levelCycle {
		if level == current {
			return levelCycle[(i+1)%len(levelCycle)]
		}
	}
	return levelCycle[0]
}

func levelLabel(level string) string {
	if level == "" {
		return "All levels"
	}
	return level + "+"
}
