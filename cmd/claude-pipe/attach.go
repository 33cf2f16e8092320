package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asheshgoplani/claude-pipe/internal/tmux"
)

func newAttachCmd(e *env, g *globalFlags) *cobra.Command {
	var readOnly bool

	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Attach this terminal to the pipe session (Ctrl+Q detaches)",
		Long: `Attach this terminal to the tmux session claude-pipe drives.

Use it to log in, answer first-run dialogs, or watch an exchange. The session
is created when it does not exist yet. Press Ctrl+Q to detach.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, done := loadConfig(e, g)
			defer done(&err)

			if !e.stdinTTY {
				return errors.New("attach needs an interactive terminal")
			}
			if err := e.tmuxCheck(); err != nil {
				return err
			}

			mgr := tmux.NewManager(sessionName(cfg, g), e.tmuxOpts...)
			if _, err := mgr.EnsureSession(cmd.Context()); err != nil {
				return err
			}

			note := fmt.Sprintf("Attaching to %s, press Ctrl+Q to detach", mgr.Name)
			if e.stderrTTY {
				note = dimStyle.Render(note)
			}
			fmt.Fprintln(e.stderr, note)

			if readOnly {
				return mgr.AttachReadOnly(cmd.Context())
			}
			return mgr.Attach(cmd.Context())
		},
	}
	cmd.Flags().BoolVarP(&readOnly, "read-only", "r", false, "Watch without sending input")
	return cmd
}
