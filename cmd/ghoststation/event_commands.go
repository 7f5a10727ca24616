package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ghoststation/internal/api"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recent events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			events, err := client.Events(cmd.Context(), limit)
			if err != nil {
				return wrapClientError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, events)
			}
			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "No events recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "When", "Modality", "Kind", "Score", "Danger", "Label", "Sync"},
				eventRows(events, time.Now()),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of events to show")
	return cmd
}

func newEventCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "event <id>",
		Short: "Show one event in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid event id %q", args[0])
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			event, err := client.Event(cmd.Context(), id)
			if err != nil {
				return wrapClientError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, event)
			}
			printEvent(cmd.OutOrStdout(), event, time.Now())
			return nil
		},
	}
}

func eventRows(events []api.Event, now time.Time) [][]string {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		sync := ""
		if e.Correlation != nil {
			sync = fmt.Sprintf("#%d", e.Correlation.PartnerID)
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			relativeTime(e.CapturedAt, now),
			e.Modality,
			e.Kind,
			strconv.Itoa(e.Score),
			e.Danger,
			e.Label,
			sync,
		})
	}
	return rows
}

func printEvent(out io.Writer, e api.Event, now time.Time) {
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(out, "%-14s %s\n", label+":", value)
		}
	}
	line("Event", fmt.Sprintf("#%d (%s)", e.ID, e.Modality))
	line("Captured", fmt.Sprintf("%s (%s)", e.CapturedAt, relativeTime(e.CapturedAt, now)))
	if e.SessionID != nil {
		line("Session", fmt.Sprintf("#%d", *e.SessionID))
	}
	line("Score", fmt.Sprintf("%d %s, danger %s", e.Score, e.Kind, e.Danger))
	line("Readings", fmt.Sprintf("audio %.2f, magnetic %.2f, motion %d, regions %d", e.AudioLevel, e.MagneticDelta, e.MotionScore, e.RegionCount))
	line("Origin", e.Origin)
	line("Frame", e.FramePath)
	line("Transcript", e.Transcript)
	if len(e.AnomalousFrequencies) > 0 {
		freqs := make([]string, 0, len(e.AnomalousFrequencies))
		for _, f := range e.AnomalousFrequencies {
			freqs = append(freqs, strconv.FormatFloat(f, 'f', -1, 64)+" Hz")
		}
		line("Frequencies", strings.Join(freqs, ", "))
	}
	line("Enrichment", e.EnrichmentStatus)
	line("Label", e.Label)
	if e.Confidence != nil {
		line("Confidence", fmt.Sprintf("%.0f%%", *e.Confidence*100))
	}
	line("Rationale", e.Rationale)
	if e.ParanormalScore > 0 {
		line("Paranormal", fmt.Sprintf("%d/10", e.ParanormalScore))
	}
	line("Dimension", e.Dimension)
	if c := e.Correlation; c != nil {
		line("Synchronized", fmt.Sprintf("with #%d, %.3fs apart", c.PartnerID, c.DeltaSeconds))
		line("Origin class", fmt.Sprintf("%s (%s)", c.Origin, c.Classification))
		line("Coherence", fmt.Sprintf("%.2f", c.Coherence))
	}
}
