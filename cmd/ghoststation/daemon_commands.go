package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ghoststation/internal/daemonctl"
	"ghoststation/internal/daemonrun"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var development bool

	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the station daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    logLevel,
				Development: development,
			})
		},
	}
	daemonCmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level for this run")
	daemonCmd.Flags().BoolVar(&development, "development", false, "Include source locations in log lines")

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a detached daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(cmd.Context(), cfg, client, exe, daemonctl.LaunchOptions{
				ConfigPath: ctx.configPath,
				LogLevel:   logLevel,
			}, 10*time.Second)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d) at %s\n", result.PID, client.BaseURL())
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the detached daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.Stop(cfg, 10*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
				return nil
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	daemonCmd.AddCommand(startCmd, stopCmd)
	return daemonCmd
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	if strings.HasSuffix(filepath.Base(exe), ".test") {
		return "", errors.New("refusing to launch the test binary as a daemon")
	}
	return exe, nil
}
