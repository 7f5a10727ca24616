package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"ghoststation/internal/api"
)

type coordinateFlags struct {
	lat float64
	lon float64
}

func (c *coordinateFlags) register(flags *pflag.FlagSet) {
	flags.Float64Var(&c.lat, "lat", 0, "Latitude in decimal degrees")
	flags.Float64Var(&c.lon, "lon", 0, "Longitude in decimal degrees")
}

// values returns nil pointers for flags the user did not pass so the daemon
// can tell "unset" from the equator.
func (c *coordinateFlags) values(flags *pflag.FlagSet) (*float64, *float64) {
	var lat, lon *float64
	if flags.Changed("lat") {
		v := c.lat
		lat = &v
	}
	if flags.Changed("lon") {
		v := c.lon
		lon = &v
	}
	return lat, lon
}

func newTriggerCommand(ctx *commandContext) *cobra.Command {
	var req api.TriggerRequest
	var coords coordinateFlags

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Capture a frame and score it with the given sensor readings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			req.Latitude, req.Longitude = coords.values(cmd.Flags())
			resp, err := client.Trigger(cmd.Context(), req)
			if err != nil {
				return wrapClientError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, resp)
			}
			printCaptureResponse(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	cmd.Flags().Float64Var(&req.AudioLevel, "audio", 0, "Audio level reading")
	cmd.Flags().Float64Var(&req.MagneticDelta, "magnetic", 0, "Magnetic field delta")
	cmd.Flags().StringVar(&req.Origin, "origin", "cli", "Label for what raised the trigger")
	coords.register(cmd.Flags())
	return cmd
}

func newEVPCommand(ctx *commandContext) *cobra.Command {
	var req api.EVPRequest
	var coords coordinateFlags

	cmd := &cobra.Command{
		Use:   "evp [transcript]",
		Short: "Submit an electronic voice phenomenon record",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				req.Transcript = args[0]
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			req.Latitude, req.Longitude = coords.values(cmd.Flags())
			resp, err := client.SubmitEVP(cmd.Context(), req)
			if err != nil {
				return wrapClientError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, resp)
			}
			printCaptureResponse(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	cmd.Flags().Float64Var(&req.AudioLevel, "audio", 0, "Audio level of the recording")
	cmd.Flags().Float64Var(&req.DominantFrequency, "dominant", 0, "Dominant frequency in Hz")
	cmd.Flags().Float64SliceVar(&req.AnomalousFrequencies, "freq", nil, "Anomalous frequency in Hz (repeatable)")
	cmd.Flags().Float64Var(&req.MagneticDelta, "magnetic", 0, "Magnetic field delta")
	cmd.Flags().StringVar(&req.Origin, "origin", "cli", "Label for the recording device")
	coords.register(cmd.Flags())
	return cmd
}

func printCaptureResponse(out io.Writer, resp api.CaptureResponse) {
	if resp.Status != "accepted" {
		fmt.Fprintf(out, "Rejected: %s (score %d)\n", resp.Reason, resp.Score)
		return
	}
	fmt.Fprintf(out, "Accepted event #%d: score %d, %s, danger %s\n", resp.EventID, resp.Score, resp.Kind, resp.Danger)
	if resp.SessionID != nil {
		fmt.Fprintf(out, "Session: #%d\n", *resp.SessionID)
	}
	if resp.FramePath != "" {
		fmt.Fprintf(out, "Frame: %s (%d regions, motion %d)\n", resp.FramePath, resp.Regions, resp.Motion)
	}
}
