package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asheshgoplani/claude-pipe/internal/pipe"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	engine, err := cfg.Engine("")
	require.NoError(t, err)
	assert.Equal(t, pipe.DefaultConfig(), engine)
	assert.Equal(t, "claude-pipe", cfg.SessionName())
	assert.True(t, cfg.HistoryEnabled())
	assert.Equal(t, 1000, cfg.HistoryKeep())
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
default_profile = "plain"

[session]
name = "work"
agent_command = "claude --model sonnet"
clear_command = ""

[timing]
poll_interval = 250
max_wait = 60000
stuck_factor = 4

[marker]
text = "<<END>>"

[profiles.plain]
prompt_glyph = ">"
content_glyphs = ["*"]

[history]
enabled = false
keep = 20
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	engine, err := cfg.Engine("")
	require.NoError(t, err)
	assert.Equal(t, ">", engine.PromptGlyph)
	assert.Equal(t, []string{"*"}, engine.ContentGlyphs)
	assert.Equal(t, []string{"●", "⎿"}, engine.BulletGlyphs, "unset profile fields inherit claude")
	assert.Equal(t, "claude --model sonnet", engine.AgentCommand)
	assert.Empty(t, engine.ClearCommand)
	assert.Equal(t, 250*time.Millisecond, engine.PollInterval)
	assert.Equal(t, time.Minute, engine.MaxWait)
	assert.Equal(t, 4, engine.StuckFactor)
	assert.Equal(t, 5*time.Second, engine.IdleTimeout)
	assert.Equal(t, "<<END>>", engine.Marker)
	assert.Equal(t, "hi (When done, print <<END>> on its own line)", engine.OutgoingPrompt("hi"))

	assert.Equal(t, "work", cfg.SessionName())
	assert.False(t, cfg.HistoryEnabled())
	assert.Equal(t, 20, cfg.HistoryKeep())
}

func TestEngineProfileSelection(t *testing.T) {
	cfg := &Config{Profiles: map[string]ProfileSettings{"plain": {PromptGlyph: ">"}}}

	engine, err := cfg.Engine("plain")
	require.NoError(t, err)
	assert.Equal(t, ">", engine.PromptGlyph)

	engine, err = cfg.Engine(BuiltinProfile)
	require.NoError(t, err)
	assert.Equal(t, "❯", engine.PromptGlyph)

	_, err = cfg.Engine("gemini")
	require.ErrorIs(t, err, ErrUnknownProfile)
}

func TestEngineRejectsInvalidValues(t *testing.T) {
	cfg := &Config{Profiles: map[string]ProfileSettings{"bad": {PromptGlyph: " "}}}
	_, err := cfg.Engine("bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt glyph")
}

func TestLoadParseErrorReturnsDefaults(t *testing.T) {
	path := writeConfig(t, "[timing\npoll_interval = ")
	cfg, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config.toml parse error")
	require.NotNil(t, cfg)

	engine, err := cfg.Engine("")
	require.NoError(t, err)
	assert.Equal(t, pipe.DefaultConfig(), engine)
}

func TestPathsFollowEnvironment(t *testing.T) {
	home := t.TempDir()
	t.Setenv(EnvHome, home)
	t.Setenv(EnvConfig, "")

	p, err := Path()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, FileName), p)

	cfg := &Config{}
	hp, err := cfg.HistoryPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, HistoryFileName), hp)

	t.Setenv(EnvConfig, "/etc/claude-pipe.toml")
	p, err = Path()
	require.NoError(t, err)
	assert.Equal(t, "/etc/claude-pipe.toml", p)
}

func TestLogConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv(EnvHome, home)

	lc := (&Config{}).LogConfig(true)
	assert.Empty(t, lc.LogDir)
	assert.True(t, lc.Verbose)
	assert.Equal(t, "info", lc.Level)

	lc = (&Config{Logs: LogSettings{Enabled: true, Level: "debug"}}).LogConfig(false)
	assert.Equal(t, home, lc.LogDir)
	assert.Equal(t, "debug", lc.Level)
}

func TestWriteExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	created, err := WriteExample(path)
	require.NoError(t, err)
	assert.True(t, created)

	cfg, err := Load(path)
	require.NoError(t, err)
	engine, err := cfg.Engine("")
	require.NoError(t, err)
	assert.Equal(t, pipe.DefaultConfig(), engine, "example config is all defaults")

	require.NoError(t, os.WriteFile(path, []byte("# mine\n"), 0o600))
	created, err = WriteExample(path)
	require.NoError(t, err)
	assert.False(t, created)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# mine\n", string(data))
}
