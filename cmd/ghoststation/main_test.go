package main

import (
	"bytes"
	"encoding/json"
	"image"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"ghoststation/internal/api"
	"ghoststation/internal/config"
	"ghoststation/internal/daemon"
	"ghoststation/internal/logging"
	"ghoststation/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	addr       string
	frameDir   string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var frameDir string
	cfg := testsupport.NewConfig(t, append(opts, testsupport.WithReplayDir(&frameDir))...)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	d, err := daemon.New(cfg, testsupport.MustOpenStore(t, cfg), logging.NewNop(), daemon.Options{})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	server := httptest.NewServer(d.Handler())
	t.Cleanup(server.Close)

	return &cliTestEnv{cfg: cfg, configPath: configPath, addr: server.URL, frameDir: frameDir}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCLI(t, append([]string{"--config", e.configPath, "--addr", e.addr}, args...)...)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func (e *cliTestEnv) writeAnomalousFrame(t *testing.T) {
	t.Helper()
	square := image.Rect(96, 96, 160, 160)
	testsupport.WriteFrame(t, filepath.Join(e.frameDir, "0001.jpg"), testsupport.Frame(640, 480, 40, &square, 255))
}

func (e *cliTestEnv) writeFlatFrame(t *testing.T) {
	t.Helper()
	testsupport.WriteFrame(t, filepath.Join(e.frameDir, "0001.jpg"), testsupport.Frame(640, 480, 40, nil, 0))
}

func TestCLITriggerThenInspectEvents(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeAnomalousFrame(t)

	out, err := env.run(t, "trigger", "--audio", "2.2", "--magnetic", "1")
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if !strings.Contains(out, "Accepted event #1: score 3, multi") {
		t.Fatalf("unexpected trigger output %q", out)
	}
	if !strings.Contains(out, "Frame: ") {
		t.Fatalf("expected frame path in output %q", out)
	}

	out, err = env.run(t, "events")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	for _, want := range []string{"MODALITY", "video", "multi"} {
		if !strings.Contains(out, want) {
			t.Fatalf("events output missing %q: %q", want, out)
		}
	}

	out, err = env.run(t, "event", "1")
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	if !strings.Contains(out, "#1 (video)") || !strings.Contains(out, "Readings:") {
		t.Fatalf("unexpected event detail %q", out)
	}
}

func TestCLITriggerRejectionIsNotAnError(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeFlatFrame(t)

	out, err := env.run(t, "trigger", "--magnetic", "9")
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if !strings.HasPrefix(out, "Rejected: ") {
		t.Fatalf("expected rejection, got %q", out)
	}
}

func TestCLIEVPAsJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "--json", "evp", "get out", "--audio", "2.5", "--freq", "19", "--freq", "440")
	if err != nil {
		t.Fatalf("evp: %v", err)
	}
	var resp api.CaptureResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if resp.Status != "accepted" || resp.Kind != "audio" || resp.EventID == 0 {
		t.Fatalf("unexpected response %+v", resp)
	}

	out, err = env.run(t, "--json", "event", "1")
	if err != nil {
		t.Fatalf("event: %v", err)
	}
	var event api.Event
	if err := json.Unmarshal([]byte(out), &event); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if event.Transcript != "get out" || len(event.AnomalousFrequencies) != 2 || event.Modality != "audio" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestCLIEventRejectsBadID(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "event", "abc"); err == nil || !strings.Contains(err.Error(), "invalid event id") {
		t.Fatalf("expected invalid id error, got %v", err)
	}
	if _, err := env.run(t, "event", "42"); err == nil {
		t.Fatal("expected not found error for missing event")
	}
}

func TestCLISessionLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "session", "start", "Attic", "--location", "Old mill")
	if err != nil {
		t.Fatalf("session start: %v", err)
	}
	if !strings.Contains(out, `Started session #1 "Attic"`) {
		t.Fatalf("unexpected start output %q", out)
	}

	out, err = env.run(t, "session", "start", "Cellar")
	if err != nil {
		t.Fatalf("session start: %v", err)
	}
	if !strings.Contains(out, `Closed session #1 "Attic"`) || !strings.Contains(out, `Started session #2 "Cellar"`) {
		t.Fatalf("unexpected supersede output %q", out)
	}

	out, err = env.run(t, "session", "close")
	if err != nil {
		t.Fatalf("session close: %v", err)
	}
	if !strings.Contains(out, "Closed session #2") {
		t.Fatalf("unexpected close output %q", out)
	}

	out, err = env.run(t, "session", "close")
	if err != nil {
		t.Fatalf("session close: %v", err)
	}
	if !strings.Contains(out, "No active session") {
		t.Fatalf("unexpected second close output %q", out)
	}

	out, err = env.run(t, "session", "list")
	if err != nil {
		t.Fatalf("session list: %v", err)
	}
	if !strings.Contains(out, "Attic") || !strings.Contains(out, "Cellar") {
		t.Fatalf("session list missing titles: %q", out)
	}
}

func TestCLIStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Station\n-------", "Daemon", "Classifier", "Events\n------", "Active             none"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q: %q", want, out)
		}
	}

	out, err = env.run(t, "--json", "status")
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var status api.StationStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if status.ClassifierConfigured || status.ActiveSession != nil || status.Events.Total != 0 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestCLIReportsUnreachableDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	server := httptest.NewServer(nil)
	addr := server.URL
	server.Close()

	_, err := runCLI(t, "--config", env.configPath, "--addr", addr, "status")
	if err == nil || !strings.Contains(err.Error(), "daemon start") {
		t.Fatalf("expected unreachable hint, got %v", err)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GHOST_API_TOKEN", "hunter2")
	path := filepath.Join(t.TempDir(), "ghost", "config.toml")

	out, err := runCLI(t, "config", "init", "--path", path)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration to "+path) {
		t.Fatalf("unexpected init output %q", out)
	}
	if _, err := runCLI(t, "config", "init", "--path", path); err == nil {
		t.Fatal("expected init to refuse overwriting an existing file")
	}
	if _, err := runCLI(t, "config", "init", "--path", path, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, err = runCLI(t, "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "[paths]") || !strings.Contains(out, redacted) {
		t.Fatalf("unexpected show output %q", out)
	}
	if strings.Contains(out, "hunter2") {
		t.Fatalf("token leaked in show output %q", out)
	}
}
