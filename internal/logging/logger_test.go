package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ghoststation/internal/config"
	"ghoststation/internal/logging"
	"ghoststation/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("station online")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "ghoststation.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "station online") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerPrefixesComponentAndEvent(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "enrichment").Info("classification stored",
		logging.Int64(logging.FieldEventID, 42),
		logging.String("label", "shadow figure"),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "INFO enrichment: [event 42] classification stored") {
		t.Fatalf("unexpected console line %q", line)
	}
	if !strings.Contains(line, `label="shadow figure"`) {
		t.Fatalf("expected quoted label, got %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information at info level, got %q", line)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("camera offline", logging.String("reason", "timeout"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("decode json line: %v", err)
	}
	if record["level"] != "warn" || record["msg"] != "camera offline" {
		t.Fatalf("unexpected record %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithEventID(ctx, 123)
	ctx = services.WithSessionID(ctx, 7)
	ctx = services.WithStage(ctx, "enrichment")
	ctx = services.WithRequestID(ctx, "req-xyz")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WithContext(ctx, logger).Info("contextual log")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if record[logging.FieldEventID] != float64(123) {
		t.Fatalf("event_id = %v", record[logging.FieldEventID])
	}
	if record[logging.FieldSessionID] != float64(7) {
		t.Fatalf("session_id = %v", record[logging.FieldSessionID])
	}
	if record[logging.FieldStage] != "enrichment" {
		t.Fatalf("stage = %v", record[logging.FieldStage])
	}
	if record[logging.FieldCorrelationID] != "req-xyz" {
		t.Fatalf("correlation_id = %v", record[logging.FieldCorrelationID])
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WarnWithContext(logger, "classifier unavailable", "enrichment_failed",
		logging.String(logging.FieldImpact, "event stored without classification"),
	)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if record[logging.FieldEventType] != "enrichment_failed" {
		t.Fatalf("event_type = %v", record[logging.FieldEventType])
	}
	if record[logging.FieldErrorHint] != "check logs for details" {
		t.Fatalf("error_hint = %v", record[logging.FieldErrorHint])
	}
	if record[logging.FieldImpact] != "event stored without classification" {
		t.Fatalf("impact overwritten: %v", record[logging.FieldImpact])
	}
}

func TestTeeLoggerRespectsHandlerLevels(t *testing.T) {
	var infoBuf, warnBuf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	warnOnly := slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn})

	logger := logging.TeeLogger(base, warnOnly).With(logging.String(logging.FieldComponent, "daemon"))
	logger.Info("routine")
	logger.Warn("unusual")

	if !strings.Contains(infoBuf.String(), "routine") || !strings.Contains(infoBuf.String(), "unusual") {
		t.Fatalf("base handler missing records: %q", infoBuf.String())
	}
	if strings.Contains(warnBuf.String(), "routine") {
		t.Fatalf("warn handler received info record: %q", warnBuf.String())
	}
	if !strings.Contains(warnBuf.String(), "component=daemon") {
		t.Fatalf("warn handler lost attrs: %q", warnBuf.String())
	}
}

func TestTeeLoggerWithoutHandlersIsNoop(t *testing.T) {
	logger := logging.TeeLogger(nil)
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("expected noop logger")
	}
}
