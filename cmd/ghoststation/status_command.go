package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ghoststation/internal/api"
)

// lowDiskThreshold flags the evidence volume before captures start failing.
const lowDiskThreshold = 1 << 30

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show station health, event counts, and the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return wrapClientError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, status)
			}
			out := cmd.OutOrStdout()
			renderStatus(out, status, client.BaseURL(), shouldColorize(out), time.Now())
			return nil
		},
	}
}

func renderStatus(out io.Writer, status api.StationStatus, baseURL string, colorize bool, now time.Time) {
	p := &statusPrinter{colorize: colorize}

	p.section("Station")
	p.check("Daemon", healthOK, baseURL)
	p.check("Camera", cameraHealth(status), status.CameraSource)
	if status.ClassifierConfigured {
		p.check("Classifier", healthOK, "configured")
	} else {
		p.check("Classifier", healthNotice, "not configured; events stay unanalyzed")
	}
	p.check("Evidence disk", diskHealth(status.FreeBytes), humanize.Bytes(status.FreeBytes)+" free")
	backlog := healthOK
	if status.Backlog > 0 {
		backlog = healthNotice
	}
	p.check("Enrichment queue", backlog, strconv.Itoa(status.Backlog)+" waiting")

	p.section("Session")
	if s := status.ActiveSession; s != nil {
		p.value("Active", fmt.Sprintf("#%d %s", s.ID, s.Title))
		if s.Location != "" {
			p.value("Location", s.Location)
		}
		p.value("Running for", formatSeconds(status.SessionDuration))
		p.value("Events", fmt.Sprintf("%d (max score %d)", s.TotalEvents, s.MaxScore))
	} else {
		p.value("Active", "none")
	}

	p.section("Events")
	counts := status.Events
	p.value("Total", humanize.Comma(int64(counts.Total)))
	p.value("Pending", strconv.Itoa(counts.Pending))
	p.value("Unanalyzed", strconv.Itoa(counts.Unanalyzed))
	p.value("Synchronized", strconv.Itoa(counts.Correlated))
	p.value("Outside sessions", strconv.Itoa(counts.Orphaned))

	if status.GeneratedAt != "" {
		p.note("Generated " + relativeTime(status.GeneratedAt, now))
	}
	fmt.Fprintln(out, p.String())
}

func cameraHealth(status api.StationStatus) health {
	switch {
	case status.CameraConnected:
		return healthOK
	case status.CameraSource == "offline":
		return healthDown
	default:
		return healthDegraded
	}
}

func diskHealth(free uint64) health {
	if free < lowDiskThreshold {
		return healthDegraded
	}
	return healthOK
}
