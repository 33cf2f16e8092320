package pipe

import (
	"strings"
	"unicode"
)

// Extraction is the cleaned response plus whether the echoed message was found.
type Extraction struct {
	Text string
	// Anchored is false when the echo was missing and Text is the whole
	// transcript, which may include unrelated history.
	Anchored bool
}

// Extractor isolates the agent's new output in a transcript. It holds no
// state between calls.
type Extractor struct {
	marker      string
	anchorRunes int
	rules       Rules
}

// NewExtractor creates an extractor using cfg's marker and anchor length.
// A nil rules falls back to NewGlyphRules(cfg).
func NewExtractor(cfg Config, rules Rules) *Extractor {
	if rules == nil {
		rules = NewGlyphRules(cfg)
	}
	return &Extractor{marker: cfg.Marker, anchorRunes: cfg.AnchorRunes, rules: rules}
}

// Extract returns the response to sent found in transcript.
func (x *Extractor) Extract(transcript, sent string) Extraction {
	lines := strings.Split(transcript, "\n")
	needle := x.needle(sent)
	if strings.TrimSpace(needle) == "" {
		return Extraction{Text: strings.TrimSpace(transcript)}
	}

	anchor := -1
	for i, line := range lines {
		if strings.Contains(line, needle) {
			anchor = i
			break
		}
	}
	if anchor < 0 {
		return Extraction{Text: strings.TrimSpace(transcript)}
	}

	kept := x.collect(lines[x.echoEnd(lines, anchor)+1:])
	for len(kept) > 0 && x.rules.TrailingNoise(strings.TrimSpace(kept[len(kept)-1])) {
		kept = kept[:len(kept)-1]
	}
	return Extraction{Text: x.normalize(kept), Anchored: true}
}

// needle is the first anchorRunes runes of the first line of sent. The pane
// renders each message line separately, so a needle spanning a newline
// could never match.
func (x *Extractor) needle(sent string) string {
	if i := strings.IndexByte(sent, '\n'); i >= 0 {
		sent = sent[:i]
	}
	if r := []rune(sent); len(r) > x.anchorRunes {
		return string(r[:x.anchorRunes])
	}
	return sent
}

// echoEnd returns the index of the last line of the echoed prompt. A long
// or multi-line prompt wraps over several lines and ends on the one holding
// the instruction's inline copy of the marker. A standalone marker or a
// bulleted line means the echo is over; without an inline copy the echo is
// the anchor line alone.
func (x *Extractor) echoEnd(lines []string, anchor int) int {
	for i := anchor; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == x.marker {
			break
		}
		if i > anchor && x.rules.StripBullet(line) != line {
			break
		}
		if strings.Contains(line, x.marker) {
			return i
		}
	}
	return anchor
}

// collect drops leading chrome and stops at the marker. tail starts after
// the echo, so an inline marker here belongs to the response.
func (x *Extractor) collect(tail []string) []string {
	var kept []string
	started := false
	for _, line := range tail {
		trimmed := strings.TrimSpace(line)
		if trimmed == x.marker {
			break
		}

		inline := strings.Contains(line, x.marker)
		if inline {
			line = strings.TrimRightFunc(strings.ReplaceAll(line, x.marker, ""), unicode.IsSpace)
			trimmed = strings.TrimSpace(line)
		}

		if !started {
			if !x.rules.ResponseStarted(trimmed) {
				continue
			}
			started = true
		}

		if inline {
			if trimmed != "" {
				kept = append(kept, line)
			}
			break
		}
		kept = append(kept, line)
	}
	return kept
}

// normalize strips bullets and pulls sub-items indented under a removed
// bullet back by two columns.
func (x *Extractor) normalize(lines []string) string {
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		line = x.rules.StripBullet(line)
		if i > 0 && strings.HasPrefix(line, "  ") && !strings.HasPrefix(line, "    ") {
			line = line[2:]
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
