package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/asheshgoplani/claude-pipe/internal/logging"
)

var (
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
)

// formatFatal renders the one-line error report.
func formatFatal(err error, styled bool) string {
	label := "ERROR:"
	if styled {
		label = errorStyle.Render(label)
	}
	return logging.VerbosePrefix + label + " " + err.Error()
}

func formatWarn(msg string, styled bool) string {
	label := "WARN:"
	if styled {
		label = warnStyle.Render(label)
	}
	return logging.VerbosePrefix + label + " " + msg
}

// oneLine flattens s and cuts it to width terminal cells.
func oneLine(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	return runewidth.Truncate(s, width, "…")
}

// pad right-fills s to width terminal cells.
func pad(s string, width int) string {
	return runewidth.FillRight(s, width)
}
