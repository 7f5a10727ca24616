package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ghoststation/internal/api"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage investigation sessions",
	}
	sessionCmd.AddCommand(newSessionStartCommand(ctx))
	sessionCmd.AddCommand(newSessionCloseCommand(ctx))
	sessionCmd.AddCommand(newSessionListCommand(ctx))
	return sessionCmd
}

func newSessionStartCommand(ctx *commandContext) *cobra.Command {
	var req api.SessionStartRequest
	var coords coordinateFlags

	cmd := &cobra.Command{
		Use:   "start [title]",
		Short: "Open a session, closing any active one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				req.Title = args[0]
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			req.Latitude, req.Longitude = coords.values(cmd.Flags())
			resp, err := client.StartSession(cmd.Context(), req)
			if err != nil {
				return wrapClientError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			if prev := resp.Superseded; prev != nil {
				fmt.Fprintf(out, "Closed session #%d %q (%d events)\n", prev.ID, prev.Title, prev.TotalEvents)
			}
			if resp.Session != nil {
				fmt.Fprintf(out, "Started session #%d %q\n", resp.Session.ID, resp.Session.Title)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Location, "location", "", "Where the investigation takes place")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "Free-form notes")
	coords.register(cmd.Flags())
	return cmd
}

func newSessionCloseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "close",
		Short: "Close the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.CloseSession(cmd.Context())
			if err != nil {
				return wrapClientError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			if resp.Session == nil {
				fmt.Fprintln(out, "No active session")
				return nil
			}
			s := resp.Session
			fmt.Fprintf(out, "Closed session #%d %q after %s: %d events, max score %d\n",
				s.ID, s.Title, formatSeconds(s.DurationSeconds), s.TotalEvents, s.MaxScore)
			return nil
		},
	}
}

func newSessionListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			sessions, err := client.Sessions(cmd.Context(), limit)
			if err != nil {
				return wrapClientError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, sessions)
			}
			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Title", "Status", "Started", "Duration", "Events", "Max"},
				sessionRows(sessions, time.Now()),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of sessions to show")
	return cmd
}

func sessionRows(sessions []api.Session, now time.Time) [][]string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			s.Title,
			s.Status,
			relativeTime(s.StartedAt, now),
			formatSeconds(s.DurationSeconds),
			strconv.Itoa(s.TotalEvents),
			strconv.Itoa(s.MaxScore),
		})
	}
	return rows
}

func formatSeconds(seconds float64) string {
	return time.Duration(seconds * float64(time.Second)).Round(time.Second).String()
}

func relativeTime(value string, now time.Time) string {
	t, err := api.ParseTime(value)
	if err != nil {
		return value
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
