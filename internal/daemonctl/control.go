package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"ghoststation/internal/api"
	"ghoststation/internal/config"
)

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

// StartState reports what EnsureStarted found or did.
type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State StartState
	PID   int
}

// ErrDaemonNotRunning indicates no daemon answered and no live pid was found.
var ErrDaemonNotRunning = errors.New("daemon not running")

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	PID        int
	ForcedKill bool
}

// Launch starts a detached daemon process running in the foreground mode.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"daemon"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForReady polls the status endpoint until the daemon answers.
func WaitForReady(ctx context.Context, client *api.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		_, err := client.Status(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon unless one already answers.
func EnsureStarted(ctx context.Context, cfg *config.Config, client *api.Client, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if _, err := client.Status(ctx); err == nil {
		pid, _ := ReadPID(cfg.PIDPath())
		return StartResult{State: StartStateAlreadyRunning, PID: pid}, nil
	}
	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	if err := WaitForReady(ctx, client, waitTimeout); err != nil {
		return StartResult{}, err
	}
	pid, _ := ReadPID(cfg.PIDPath())
	return StartResult{State: StartStateStarted, PID: pid}, nil
}

// ReadPID returns the pid recorded by the running daemon.
func ReadPID(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("daemon pid file %q is malformed", pidPath)
	}
	return pid, nil
}

// Stop sends SIGTERM to the recorded daemon pid and escalates to SIGKILL when
// the process is still alive after gracePeriod.
func Stop(cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	pidPath := cfg.PIDPath()
	pid, err := ReadPID(pidPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to signal current process (pid %d)", pid)
	}
	if !processAlive(pid) {
		_ = os.Remove(pidPath)
		return StopResult{}, ErrDaemonNotRunning
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return StopResult{}, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}

	result := StopResult{PID: pid}
	deadline := time.Now().Add(gracePeriod)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return result, nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return result, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return result, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	result.ForcedKill = true
	return result, nil
}

func processAlive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
