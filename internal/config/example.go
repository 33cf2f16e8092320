package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const exampleConfig = `# claude-pipe configuration
# Every setting is optional; the values shown are the defaults.

# UI profile used when --profile is not given.
# default_profile = "claude"

[session]
# name = "claude-pipe"
# agent_command = "claude"
# agent_processes = ["node", "claude"]
# Sent before every prompt. Set to "" to keep the conversation going.
# clear_command = "/clear"

# All timings are milliseconds.
[timing]
# submit_delay = 600
# poll_interval = 500
# idle_timeout = 5000
# stuck_factor = 3
# settle = 3000
# marker_settle = 1000
# startup_wait = 5000
# startup_timeout = 30000
# clear_wait = 1000
# clear_timeout = 10000
# max_wait = 300000

[marker]
# text = "===PIPE_END==="
# instruction = " (When done, print %s on its own line)"

# Profiles describe how an agent UI renders. Unset fields inherit "claude".
# [profiles.plain]
# prompt_glyph = ">"
# prompt_lines = 8
# content_glyphs = ["●"]
# bullet_glyphs = ["●", "⎿"]
# divider_chars = "─"
# noise_lines = ["? for shortcuts"]
# anchor_runes = 60

[logs]
# Write a rotated debug.log next to this file.
# enabled = false
# level = "info"
# format = "json"
# max_size_mb = 10
# max_backups = 5
# max_age_days = 10

[history]
# enabled = true
# path = "~/.claude-pipe/history.db"
# keep = 1000
`

// WriteExample writes a commented example config to path unless a file is
// already there. It reports whether a file was written.
func WriteExample(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write to a temp file, fsync, then rename so a crash never leaves a
	// half-written config behind.
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return false, fmt.Errorf("failed to write temp file: %w", err)
	}
	if _, err := f.WriteString(exampleConfig); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return false, fmt.Errorf("failed to write temp file: %w", err)
	}
	_ = f.Sync()
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return false, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return false, fmt.Errorf("failed to finalize config: %w", err)
	}
	return true, nil
}
