package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asheshgoplani/claude-pipe/internal/config"
)

func newConfigCmd(e *env, g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}

	resolve := func() (string, error) {
		if g.configPath != "" {
			return g.configPath, nil
		}
		return config.Path()
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolve()
			if err != nil {
				return err
			}
			fmt.Fprintln(e.stdout, path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a commented example config (never overwrites)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolve()
			if err != nil {
				return err
			}
			written, err := config.WriteExample(path)
			if err != nil {
				return err
			}
			if !written {
				fmt.Fprintf(e.stdout, "Config already exists: %s\n", path)
				return nil
			}
			fmt.Fprintf(e.stdout, "Wrote %s\n", path)
			return nil
		},
	})
	return cmd
}

func newVersionCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(e.stdout, "claude-pipe v%s\n", Version)
		},
	}
}
