package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/asheshgoplani/claude-pipe/internal/config"
	"github.com/asheshgoplani/claude-pipe/internal/lock"
	"github.com/asheshgoplani/claude-pipe/internal/logging"
	"github.com/asheshgoplani/claude-pipe/internal/pipe"
	"github.com/asheshgoplani/claude-pipe/internal/statedb"
	"github.com/asheshgoplani/claude-pipe/internal/tmux"
)

// globalFlags are shared by every command.
type globalFlags struct {
	verbose    bool
	session    string
	configPath string
}

type exchangeFlags struct {
	profile   string
	maxWait   time.Duration
	copy      bool
	noHistory bool
	strict    bool
	version   bool
}

func newRootCmd(e *env) *cobra.Command {
	g := &globalFlags{}
	x := &exchangeFlags{}

	root := &cobra.Command{
		Use:   "claude-pipe [flags] [message...]",
		Short: "Send one prompt to the claude CLI in tmux and print the reply",
		Long: `Send one prompt to an interactive claude CLI running in a dedicated tmux
session, wait until it has answered, and print only the new response text.

The message is the arguments joined by spaces. Without arguments the message
is read from stdin when stdin is not a terminal.

Examples:
  claude-pipe "Summarize README.md in one sentence"
  git diff | claude-pipe
  claude-pipe --copy -- history of the diff command`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if x.version {
				fmt.Fprintf(e.stdout, "claude-pipe v%s\n", Version)
				return nil
			}
			return runExchange(cmd, e, g, x, args)
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Print progress diagnostics to stderr")
	pf.StringVar(&g.session, "session", "", "tmux session name (default: claude-pipe)")
	pf.StringVar(&g.configPath, "config", "", "Config file (default: ~/.claude-pipe/config.toml)")

	f := root.Flags()
	f.StringVar(&x.profile, "profile", "", "UI profile to match the agent's screen with")
	f.DurationVar(&x.maxWait, "max-wait", 0, "Give up after this long (default: 5m)")
	f.BoolVar(&x.copy, "copy", false, "Also copy the response to the clipboard")
	f.BoolVar(&x.noHistory, "no-history", false, "Do not record this exchange")
	f.BoolVar(&x.strict, "strict", false, "Fail when the sent message cannot be found in the pane")
	f.BoolVar(&x.version, "version", false, "Print version and exit")

	root.AddCommand(
		newHistoryCmd(e, g),
		newAttachCmd(e, g),
		newConfigCmd(e, g),
		newVersionCmd(e),
	)
	return root
}

// readMessage resolves the message from args or piped stdin.
func readMessage(e *env, args []string) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	if e.stdinTTY {
		return "", errUsage
	}
	data, err := io.ReadAll(e.stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// loadConfig reads the config and starts logging. The returned func must be
// deferred; it dumps the log tail when the command failed.
func loadConfig(e *env, g *globalFlags) (*config.Config, func(*error)) {
	cfg, cfgErr := config.Load(g.configPath)
	lc := cfg.LogConfig(g.verbose)
	lc.Stderr = e.stderr
	logging.Init(lc)

	if cfgErr != nil {
		cliLog.Warn("config ignored, using defaults", slog.String("error", cfgErr.Error()))
		if !g.verbose {
			fmt.Fprintln(e.stderr, formatWarn(cfgErr.Error()+" (using defaults)", e.stderrTTY))
		}
	}

	return cfg, func(errp *error) {
		if *errp != nil && !errors.Is(*errp, errUsage) && !errors.Is(*errp, pipe.ErrEmptyMessage) {
			cliLog.Debug("command failed", slog.String("error", (*errp).Error()))
			dumpCrashLog()
		}
		logging.Shutdown()
	}
}

func sessionName(cfg *config.Config, g *globalFlags) string {
	if g.session != "" {
		return g.session
	}
	return cfg.SessionName()
}

func runExchange(cmd *cobra.Command, e *env, g *globalFlags, x *exchangeFlags, args []string) (err error) {
	message, err := readMessage(e, args)
	if err != nil {
		return err
	}

	cfg, done := loadConfig(e, g)
	defer done(&err)

	if message == "" {
		return pipe.ErrEmptyMessage
	}

	profile := cfg.ProfileName(x.profile)
	engineCfg, err := cfg.Engine(profile)
	if err != nil {
		return err
	}
	if x.maxWait > 0 {
		engineCfg.MaxWait = x.maxWait
	}

	if err := e.tmuxCheck(); err != nil {
		return err
	}

	session := sessionName(cfg, g)
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	sl := lock.ForSession(dir, session)
	if err := sl.TryLock(); err != nil {
		return err
	}
	defer func() { _ = sl.Unlock() }()

	opts := append([]tmux.ManagerOption{tmux.WithSubmitDelay(engineCfg.SubmitDelay)}, e.tmuxOpts...)
	mgr := tmux.NewManager(session, opts...)
	pane, err := mgr.EnsureSession(cmd.Context())
	if err != nil {
		return err
	}

	engine, err := pipe.New(pane, engineCfg, append([]pipe.Option{pipe.WithStrictAnchor(x.strict)}, e.engineOpts...)...)
	if err != nil {
		return err
	}

	res, runErr := engine.Run(message)
	if cfg.HistoryEnabled() && !x.noHistory {
		recordExchange(cfg, session, profile, res, runErr)
	}
	if runErr != nil {
		if res.Transcript != "" {
			cliLog.Debug("last capture",
				slog.String("reason", string(res.Reason)),
				slog.String("capture", captureTail(res.Transcript)))
		}
		return runErr
	}

	fmt.Fprintln(e.stdout, res.Response)

	if x.copy {
		copyResponse(e, g.verbose, res.Response)
	}
	return nil
}

// recordExchange stores the outcome in the history database. Failures here
// never fail the command.
func recordExchange(cfg *config.Config, session, profile string, res *pipe.Result, runErr error) {
	log := logging.ForComponent(logging.CompHistory)

	path, err := cfg.HistoryPath()
	if err != nil {
		log.Warn("history path unavailable", slog.String("error", err.Error()))
		return
	}
	db, err := statedb.Open(path)
	if err != nil {
		log.Warn("history open failed", slog.String("error", err.Error()))
		return
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		log.Warn("history migrate failed", slog.String("error", err.Error()))
		return
	}

	row := &statedb.ExchangeRow{
		Session:   session,
		Profile:   profile,
		Message:   res.Message,
		Response:  res.Response,
		Reason:    string(res.Reason),
		Anchored:  res.Anchored,
		StartedAt: res.StartedAt,
		Duration:  res.Duration,
	}
	if runErr != nil {
		row.Error = runErr.Error()
		if res.Transcript != "" {
			row.Error += "\n\nlast capture:\n" + captureTail(res.Transcript)
		}
	}
	if err := db.SaveExchange(row); err != nil {
		log.Warn("history save failed", slog.String("error", err.Error()))
		return
	}
	if n, err := db.PruneExchanges(cfg.HistoryKeep()); err != nil {
		log.Warn("history prune failed", slog.String("error", err.Error()))
	} else if n > 0 {
		log.Debug("history pruned", slog.Int64("removed", n))
	}
	log.Debug("exchange recorded", slog.String("id", row.ID))
}

// captureLines is how much of a failed run's last capture is kept.
const captureLines = 40

// captureTail returns the last captureLines lines of a capture.
func captureTail(capture string) string {
	lines := strings.Split(strings.TrimRight(capture, "\n"), "\n")
	if len(lines) > captureLines {
		lines = lines[len(lines)-captureLines:]
	}
	return strings.Join(lines, "\n")
}

func copyResponse(e *env, verbose bool, text string) {
	res, err := e.newCopier(e.stderrTTY).Copy(text)
	if err != nil {
		cliLog.Warn("copy to clipboard failed", slog.String("error", err.Error()))
		if !verbose {
			fmt.Fprintln(e.stderr, formatWarn("copy to clipboard failed: "+err.Error(), e.stderrTTY))
		}
		return
	}
	cliLog.Info("copied to clipboard",
		slog.String("method", res.Method),
		slog.Int("lines", res.LineCount))
}
