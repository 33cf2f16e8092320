package pipe

import (
	"regexp"
	"strings"
)

// Rules encodes one agent UI's rendering conventions. The extractor asks it
// which lines start a response, which trailing lines are chrome, and how
// bullets are removed. A new agent UI only needs a new Rules.
type Rules interface {
	// ResponseStarted reports whether a trimmed line begins genuine output.
	ResponseStarted(trimmed string) bool
	// TrailingNoise reports whether a trimmed line is chrome that can be
	// dropped from the end of a response.
	TrailingNoise(trimmed string) bool
	// StripBullet removes at most one leading bullet glyph (and one following
	// space) while keeping the indentation in front of it.
	StripBullet(line string) string
}

// GlyphRules is the Rules implementation driven by the glyph sets in Config.
type GlyphRules struct {
	promptGlyph   string
	contentGlyphs []string
	dividerChars  string
	noise         map[string]bool
	bullet        *regexp.Regexp
}

// NewGlyphRules builds rules from the glyph settings of cfg.
func NewGlyphRules(cfg Config) *GlyphRules {
	r := &GlyphRules{
		promptGlyph:   cfg.PromptGlyph,
		contentGlyphs: append([]string(nil), cfg.ContentGlyphs...),
		dividerChars:  cfg.DividerChars,
		noise:         make(map[string]bool, len(cfg.NoiseLines)),
	}
	for _, n := range cfg.NoiseLines {
		r.noise[strings.TrimSpace(n)] = true
	}

	var alts []string
	for _, g := range cfg.BulletGlyphs {
		if g != "" {
			alts = append(alts, regexp.QuoteMeta(g))
		}
	}
	if len(alts) > 0 {
		r.bullet = regexp.MustCompile(`^(\s*)(?:` + strings.Join(alts, "|") + `)\s?`)
	}
	return r
}

// ResponseStarted: a content glyph prefix, or any non-empty line that does not
// end in ")" (tool-call and status lines do).
func (r *GlyphRules) ResponseStarted(trimmed string) bool {
	for _, g := range r.contentGlyphs {
		if g != "" && strings.HasPrefix(trimmed, g) {
			return true
		}
	}
	return trimmed != "" && !strings.HasSuffix(trimmed, ")")
}

func (r *GlyphRules) TrailingNoise(trimmed string) bool {
	if trimmed == "" || trimmed == r.promptGlyph || r.noise[trimmed] {
		return true
	}
	if r.dividerChars == "" {
		return false
	}
	return strings.Trim(trimmed, r.dividerChars+" ") == ""
}

func (r *GlyphRules) StripBullet(line string) string {
	if r.bullet == nil {
		return line
	}
	return r.bullet.ReplaceAllString(line, "${1}")
}
