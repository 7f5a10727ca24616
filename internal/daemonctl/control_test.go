package daemonctl

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ghoststation/internal/testsupport"
)

func TestReadPID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ghoststation.pid")
	if err := os.WriteFile(path, []byte("4242\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	pid, err := ReadPID(path)
	if err != nil || pid != 4242 {
		t.Fatalf("ReadPID = %d, %v", pid, err)
	}

	if err := os.WriteFile(path, []byte("nope"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if _, err := ReadPID(path); err == nil {
		t.Fatal("expected malformed pid error")
	}
}

func TestStopWithoutPIDFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := Stop(cfg, time.Second); !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestStopRejectsMalformedPID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.DataDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(cfg.PIDPath(), []byte("0"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if _, err := Stop(cfg, time.Second); err == nil {
		t.Fatal("expected error for malformed pid")
	}
}
