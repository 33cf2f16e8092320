package pipe

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultMarker is the sentinel the agent is asked to print when it is done.
const DefaultMarker = "===PIPE_END==="

// Config enumerates every glyph, command and timing the engine relies on.
// A zero Config is not usable; start from DefaultConfig and override.
type Config struct {
	// Marker is the sentinel line printed by a cooperating agent.
	Marker string
	// Instruction is appended to every message; %s is replaced by Marker.
	Instruction string

	// PromptGlyph marks the agent's idle input line.
	PromptGlyph string
	// PromptLines is how many trailing lines of the visible pane are searched for the prompt.
	PromptLines int
	// ContentGlyphs prefix genuine agent output.
	ContentGlyphs []string
	// BulletGlyphs are stripped from the start of emitted lines.
	BulletGlyphs []string
	// DividerChars make up horizontal rules drawn by the UI.
	DividerChars string
	// NoiseLines are UI hints that never belong to a response tail.
	NoiseLines []string
	// AnchorRunes is how much of the message is used to find its echo.
	AnchorRunes int
	// Scrollback is how many history lines a deep capture includes.
	Scrollback int

	// AgentCommand launches the agent in an idle pane.
	AgentCommand string
	// AgentProcesses are foreground process names that mean the agent is running.
	AgentProcesses []string
	// ClearCommand resets the agent's screen and context before each prompt.
	ClearCommand string

	SubmitDelay    time.Duration
	PollInterval   time.Duration
	IdleTimeout    time.Duration
	StuckFactor    int
	Settle         time.Duration
	MarkerSettle   time.Duration
	StartupWait    time.Duration
	StartupTimeout time.Duration
	ClearWait      time.Duration
	ClearTimeout   time.Duration
	MaxWait        time.Duration
}

// DefaultConfig returns the settings for the claude CLI.
func DefaultConfig() Config {
	return Config{
		Marker:         DefaultMarker,
		Instruction:    " (When done, print %s on its own line)",
		PromptGlyph:    "❯",
		PromptLines:    8,
		ContentGlyphs:  []string{"●", "⏿", "⎇"},
		BulletGlyphs:   []string{"●", "⎿"},
		DividerChars:   "─",
		NoiseLines:     []string{"? for shortcuts", "? for", "shortcuts"},
		AnchorRunes:    60,
		Scrollback:     10000,
		AgentCommand:   "claude",
		AgentProcesses: []string{"node", "claude"},
		ClearCommand:   "/clear",
		SubmitDelay:    600 * time.Millisecond,
		PollInterval:   500 * time.Millisecond,
		IdleTimeout:    5 * time.Second,
		StuckFactor:    3,
		Settle:         3 * time.Second,
		MarkerSettle:   time.Second,
		StartupWait:    5 * time.Second,
		StartupTimeout: 30 * time.Second,
		ClearWait:      time.Second,
		ClearTimeout:   10 * time.Second,
		MaxWait:        300 * time.Second,
	}
}

// Validate reports every setting that would make the engine misbehave.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Marker) == "" {
		errs = append(errs, errors.New("marker must not be empty"))
	}
	if strings.TrimSpace(c.PromptGlyph) == "" {
		errs = append(errs, errors.New("prompt glyph must not be empty"))
	}
	if c.PromptLines <= 0 {
		errs = append(errs, fmt.Errorf("prompt lines must be positive, got %d", c.PromptLines))
	}
	if c.AnchorRunes <= 0 {
		errs = append(errs, fmt.Errorf("anchor runes must be positive, got %d", c.AnchorRunes))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll interval must be positive, got %s", c.PollInterval))
	}
	if c.IdleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("idle timeout must be positive, got %s", c.IdleTimeout))
	}
	if c.StuckFactor < 1 {
		errs = append(errs, fmt.Errorf("stuck factor must be at least 1, got %d", c.StuckFactor))
	}
	if c.MaxWait <= 0 {
		errs = append(errs, fmt.Errorf("max wait must be positive, got %s", c.MaxWait))
	}
	return errors.Join(errs...)
}

// OutgoingPrompt is the text actually typed into the pane.
func (c Config) OutgoingPrompt(message string) string {
	if !strings.Contains(c.Instruction, "%s") {
		return message + c.Instruction
	}
	return message + fmt.Sprintf(c.Instruction, c.Marker)
}

// StuckAfter is the idle duration after which the watcher gives up on the prompt.
func (c Config) StuckAfter() time.Duration {
	return c.IdleTimeout * time.Duration(c.StuckFactor)
}
