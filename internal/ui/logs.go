package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/liststore/internal/logtail"
)

const logFetchLimit = 500

type logLinesMsg struct {
	lines []logtail.Line
	err   error
}

func readLogsCmd(path string) tea.Cmd {
	if path == "" {
		return nil
	}
	return func() tea.Msg {
		lines, err := logtail.Read(path, logFetchLimit)
		return logLinesMsg{lines: lines, err: err}
	}
}

// logPaneHeight is the number of terminal lines the log pane takes,
// borders included.
func (m Model) logPaneHeight() int {
	if !m.showLogs {
		return 0
	}
	h := m.height / 3
	if h < 4 {
		h = 4
	}
	return h
}

// renderLogs renders the newest lines that fit the log pane.
func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	inner := m.logPaneHeight() - 2
	width := m.width - 2
	if width < 1 {
		width = 1
	}

	var lines []string
	switch {
	case m.logErr != nil:
		lines = []string{styles.DangerText.Render(truncate("log: "+m.logErr.Error(), width))}
	case m.logPath == "":
		lines = []string{styles.MutedText.Render("logging to stderr; no log file to show")}
	case len(m.logs) == 0:
		lines = []string{styles.MutedText.Render("no log lines yet")}
	default:
		start := len(m.logs) - inner
		if start < 0 {
			start = 0
		}
		for _, l := range m.logs[start:] {
			lines = append(lines, m.renderLogLine(l, width))
		}
	}
	for len(lines) < inner {
		lines = append(lines, "")
	}
	return styles.Pane.Width(width).Render(strings.Join(lines, "\n"))
}
