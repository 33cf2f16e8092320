package pipe

import (
	"strings"
	"unicode/utf8"
)

// PromptVisible reports whether the agent's idle prompt is among the last
// window lines of a visible-pane snapshot. Only a line that is essentially
// the bare glyph counts, so a glyph quoted inside agent output does not.
func PromptVisible(snapshot, glyph string, window int) bool {
	lines := strings.Split(snapshot, "\n")
	if len(lines) > window {
		lines = lines[len(lines)-window:]
	}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, glyph) && utf8.RuneCountInString(trimmed) <= 2 {
			return true
		}
	}
	return false
}

// CountMarkers counts lines that are exactly the marker once trimmed.
// Inline occurrences do not count: the echoed instruction contains the marker too.
func CountMarkers(snapshot, marker string) int {
	n := 0
	for _, line := range strings.Split(snapshot, "\n") {
		if strings.TrimSpace(line) == marker {
			n++
		}
	}
	return n
}
