// Package config loads ~/.claude-pipe/config.toml and turns it into the
// engine, logging and history settings used by the command.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/asheshgoplani/claude-pipe/internal/logging"
	"github.com/asheshgoplani/claude-pipe/internal/pipe"
	"github.com/asheshgoplani/claude-pipe/internal/tmux"
)

var configLog = logging.ForComponent(logging.CompConfig)

const (
	// FileName is the config file inside Dir.
	FileName = "config.toml"
	// HistoryFileName is the default history database inside Dir.
	HistoryFileName = "history.db"

	// EnvHome overrides the ~/.claude-pipe directory.
	EnvHome = "CLAUDE_PIPE_HOME"
	// EnvConfig overrides the config file path.
	EnvConfig = "CLAUDE_PIPE_CONFIG"

	// BuiltinProfile describes the claude CLI; it needs no config section.
	BuiltinProfile = "claude"
)

// ErrUnknownProfile is returned by Engine for a profile that is neither
// built in nor defined under [profiles].
var ErrUnknownProfile = errors.New("unknown profile")

// Config mirrors config.toml. Zero values mean "use the default".
type Config struct {
	// DefaultProfile selects the UI profile when --profile is not given
	DefaultProfile string `toml:"default_profile"`

	Session  SessionSettings            `toml:"session"`
	Timing   TimingSettings             `toml:"timing"`
	Marker   MarkerSettings             `toml:"marker"`
	Profiles map[string]ProfileSettings `toml:"profiles"`
	Logs     LogSettings                `toml:"logs"`
	History  HistorySettings            `toml:"history"`
}

// SessionSettings describes the tmux session and the agent inside it.
type SessionSettings struct {
	// Name is the tmux session name (default: claude-pipe)
	Name string `toml:"name"`

	// AgentCommand is typed into an idle pane to start the agent (default: claude)
	AgentCommand string `toml:"agent_command"`

	// AgentProcesses are foreground process names meaning the agent runs
	// (default: ["node", "claude"])
	AgentProcesses []string `toml:"agent_processes"`

	// ClearCommand is sent before each prompt; set to "" to skip clearing
	// (default: /clear)
	ClearCommand *string `toml:"clear_command"`
}

// TimingSettings are durations in milliseconds.
type TimingSettings struct {
	SubmitDelay    int `toml:"submit_delay"`
	PollInterval   int `toml:"poll_interval"`
	IdleTimeout    int `toml:"idle_timeout"`
	StuckFactor    int `toml:"stuck_factor"`
	Settle         int `toml:"settle"`
	MarkerSettle   int `toml:"marker_settle"`
	StartupWait    int `toml:"startup_wait"`
	StartupTimeout int `toml:"startup_timeout"`
	ClearWait      int `toml:"clear_wait"`
	ClearTimeout   int `toml:"clear_timeout"`
	MaxWait        int `toml:"max_wait"`
}

// MarkerSettings controls the completion sentinel.
type MarkerSettings struct {
	Text string `toml:"text"`
	// Instruction is appended to every message; %s becomes Text
	Instruction string `toml:"instruction"`
}

// ProfileSettings describes how an agent UI renders. Unset fields inherit
// the built-in claude profile.
type ProfileSettings struct {
	PromptGlyph   string   `toml:"prompt_glyph"`
	PromptLines   int      `toml:"prompt_lines"`
	ContentGlyphs []string `toml:"content_glyphs"`
	BulletGlyphs  []string `toml:"bullet_glyphs"`
	DividerChars  string   `toml:"divider_chars"`
	NoiseLines    []string `toml:"noise_lines"`
	AnchorRunes   int      `toml:"anchor_runes"`
}

// LogSettings defines debug log file configuration
type LogSettings struct {
	// Enabled writes a rotated debug.log next to the config file
	Enabled bool `toml:"enabled"`

	// Level is the minimum file log level: "debug", "info" (default), "warn", "error"
	Level string `toml:"level"`

	// Format is "json" (default) or "text"
	Format string `toml:"format"`

	// MaxSizeMB before rotation (default: 10)
	MaxSizeMB int `toml:"max_size_mb"`

	// MaxBackups is the number of rotated files to keep (default: 5)
	MaxBackups int `toml:"max_backups"`

	// MaxAgeDays is the number of days to keep rotated files (default: 10)
	MaxAgeDays int `toml:"max_age_days"`
}

// HistorySettings configures the exchange history database.
type HistorySettings struct {
	// Enabled records every exchange (default: true)
	Enabled *bool `toml:"enabled"`

	// Path of the SQLite database (default: ~/.claude-pipe/history.db)
	Path string `toml:"path"`

	// Keep is how many exchanges survive pruning (default: 1000)
	Keep int `toml:"keep"`
}

// Dir returns the claude-pipe state directory.
func Dir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".claude-pipe"), nil
}

// Path returns the config file path.
func Path() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads the config at path, or at Path() when path is empty. A missing
// file yields defaults. On a parse error the defaults are returned together
// with the error so the caller can report it and carry on.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := Path()
		if err != nil {
			return &Config{}, nil
		}
		path = p
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}

	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return &Config{}, fmt.Errorf("%s parse error: %w", filepath.Base(path), err)
	}
	for _, key := range meta.Undecoded() {
		configLog.Warn("unknown config key", slog.String("key", key.String()), slog.String("path", path))
	}
	return &cfg, nil
}

// ProfileName resolves the profile to use when the flag value is override.
func (c *Config) ProfileName(override string) string {
	switch {
	case override != "":
		return override
	case c.DefaultProfile != "":
		return c.DefaultProfile
	default:
		return BuiltinProfile
	}
}

// Engine builds the engine configuration for profile ("" selects the
// default profile) and validates it.
func (c *Config) Engine(profile string) (pipe.Config, error) {
	out := pipe.DefaultConfig()
	name := c.ProfileName(profile)

	p, ok := c.Profiles[name]
	if !ok && name != BuiltinProfile {
		return out, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	p.apply(&out)

	s := c.Session
	if s.AgentCommand != "" {
		out.AgentCommand = s.AgentCommand
	}
	if len(s.AgentProcesses) > 0 {
		out.AgentProcesses = s.AgentProcesses
	}
	if s.ClearCommand != nil {
		out.ClearCommand = strings.TrimSpace(*s.ClearCommand)
	}

	if c.Marker.Text != "" {
		out.Marker = c.Marker.Text
	}
	if c.Marker.Instruction != "" {
		out.Instruction = c.Marker.Instruction
	}

	c.Timing.apply(&out)

	if err := out.Validate(); err != nil {
		return out, fmt.Errorf("profile %s: %w", name, err)
	}
	return out, nil
}

func (p ProfileSettings) apply(out *pipe.Config) {
	if p.PromptGlyph != "" {
		out.PromptGlyph = p.PromptGlyph
	}
	if p.PromptLines > 0 {
		out.PromptLines = p.PromptLines
	}
	if p.ContentGlyphs != nil {
		out.ContentGlyphs = p.ContentGlyphs
	}
	if p.BulletGlyphs != nil {
		out.BulletGlyphs = p.BulletGlyphs
	}
	if p.DividerChars != "" {
		out.DividerChars = p.DividerChars
	}
	if p.NoiseLines != nil {
		out.NoiseLines = p.NoiseLines
	}
	if p.AnchorRunes > 0 {
		out.AnchorRunes = p.AnchorRunes
	}
}

func (t TimingSettings) apply(out *pipe.Config) {
	set := func(dst *time.Duration, ms int) {
		if ms > 0 {
			*dst = time.Duration(ms) * time.Millisecond
		}
	}
	set(&out.SubmitDelay, t.SubmitDelay)
	set(&out.PollInterval, t.PollInterval)
	set(&out.IdleTimeout, t.IdleTimeout)
	set(&out.Settle, t.Settle)
	set(&out.MarkerSettle, t.MarkerSettle)
	set(&out.StartupWait, t.StartupWait)
	set(&out.StartupTimeout, t.StartupTimeout)
	set(&out.ClearWait, t.ClearWait)
	set(&out.ClearTimeout, t.ClearTimeout)
	set(&out.MaxWait, t.MaxWait)
	if t.StuckFactor > 0 {
		out.StuckFactor = t.StuckFactor
	}
}

// SessionName returns the tmux session name.
func (c *Config) SessionName() string {
	if c.Session.Name != "" {
		return c.Session.Name
	}
	return tmux.DefaultSessionName
}

// LogConfig converts [logs] into the logging package's settings.
func (c *Config) LogConfig(verbose bool) logging.Config {
	lc := logging.Config{
		Level:      c.Logs.Level,
		Format:     c.Logs.Format,
		MaxSizeMB:  c.Logs.MaxSizeMB,
		MaxBackups: c.Logs.MaxBackups,
		MaxAgeDays: c.Logs.MaxAgeDays,
		Compress:   true,
		Verbose:    verbose,
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if c.Logs.Enabled {
		if dir, err := Dir(); err == nil {
			lc.LogDir = dir
		}
	}
	return lc
}

// HistoryEnabled reports whether exchanges are recorded.
func (c *Config) HistoryEnabled() bool {
	return c.History.Enabled == nil || *c.History.Enabled
}

// HistoryPath returns the history database path.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return expandHome(c.History.Path), nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, HistoryFileName), nil
}

// HistoryKeep returns how many exchanges to keep when pruning.
func (c *Config) HistoryKeep() int {
	if c.History.Keep > 0 {
		return c.History.Keep
	}
	return 1000
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
