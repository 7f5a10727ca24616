package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"

	"ghoststation/internal/api"
)

func TestCameraHealth(t *testing.T) {
	tests := []struct {
		name   string
		status api.StationStatus
		want   health
	}{
		{"connected", api.StationStatus{CameraConnected: true, CameraSource: "http http://cam"}, healthOK},
		{"dropped", api.StationStatus{CameraSource: "http http://cam"}, healthDegraded},
		{"offline", api.StationStatus{CameraSource: "offline"}, healthDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cameraHealth(tt.status); got != tt.want {
				t.Fatalf("cameraHealth = %s, want %s", got.tag(), tt.want.tag())
			}
		})
	}
}

func TestRenderStatusFlagsLowDisk(t *testing.T) {
	var buf bytes.Buffer
	status := api.StationStatus{
		CameraSource: "offline",
		FreeBytes:    512 << 20,
		Backlog:      3,
		ActiveSession: &api.Session{
			ID: 4, Title: "Attic", Location: "Loft", TotalEvents: 2, MaxScore: 77,
		},
		SessionDuration: 90,
	}
	renderStatus(&buf, status, "http://127.0.0.1:7420", false, time.Now())
	out := buf.String()

	for _, want := range []string{
		"Camera             DOWN  offline",
		"Evidence disk      WARN",
		"Enrichment queue   INFO  3 waiting",
		"Classifier         INFO",
		"#4 Attic",
		"2 (max score 77)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("plain output contains escape codes: %q", out)
	}
}

func TestStatusPrinterColorizesTags(t *testing.T) {
	text.EnableColors()
	p := &statusPrinter{colorize: true}
	p.section("Station")
	p.check("Camera", healthDown, "offline")
	out := p.String()
	if !strings.Contains(out, "\x1b[") {
		t.Fatalf("expected escape codes in %q", out)
	}
	if !strings.Contains(out, "DOWN") {
		t.Fatalf("expected DOWN tag in %q", out)
	}
}
