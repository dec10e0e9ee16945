package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/namakemono-san/ymmrpc/internal/logger"
	"github.com/namakemono-san/ymmrpc/internal/settings"
)

func newLogsCommand(g *globalOptions) *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the end of the daemon log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if lines <= 0 {
				return fmt.Errorf("--lines must be positive, got %d", lines)
			}
			tail, err := logger.ReadTail(g.dirs().Log(), lines)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Fprintln(cmd.ErrOrStderr(), "no log file yet")
					return nil
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tail)
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of lines to show")
	return cmd
}

func newSettingsCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Print the effective settings, including defaults and migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := settings.Load(g.dirs().Root)
			if err != nil {
				return err
			}
			out, err := settings.Render(cfg)
			if err != nil {
				return fmt.Errorf("render settings: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the ymmrpc version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ymmrpc %s (%s/%s, %s)\n", resolveVersion(), runtime.GOOS, runtime.GOARCH, runtime.Version())
		},
	}
}
