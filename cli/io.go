package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mobile-next/omniclick/commands"
	"github.com/mobile-next/omniclick/config"
	"github.com/spf13/cobra"
)

var ioCmd = &cobra.Command{
	Use:   "io",
	Short: "Send input through a running server",
	Long:  `Drives a running omniclick server the same way the HUD does: taps, swipes, recorded passthroughs and focus changes.`,
}

// parseCoords splits "a,b,..." into exactly n numbers.
func parseCoords(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("invalid coordinate format. Expected %d comma-separated values, got '%s'", n, s)
	}

	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate value '%s'", p)
		}
		out[i] = v
	}
	return out, nil
}

// runCommand prints the response and turns an error status into an error.
func runCommand(response *commands.CommandResponse) error {
	printJson(response)
	if response.Status == "error" {
		return fmt.Errorf("%s", response.Error)
	}
	return nil
}

func fail(err error) error {
	return runCommand(commands.NewErrorResponse(err))
}

func bridgeClient(cmd *cobra.Command) (*commands.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return commands.NewClient(cfg.Server.Listen, loadToken()), nil
}

var ioTapCmd = &cobra.Command{
	Use:   "tap [x,y]",
	Short: "Tap at the given coordinates",
	Long:  `Taps at x,y. Coordinates are display pixels, or HUD logical units with --logical.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coords, err := parseCoords(args[0], 2)
		if err != nil {
			return fail(err)
		}

		client, err := bridgeClient(cmd)
		if err != nil {
			return fail(err)
		}

		return runCommand(commands.TapCommand(cmd.Context(), client, commands.TapRequest{
			X:       coords[0],
			Y:       coords[1],
			Logical: logicalCoords,
		}))
	},
}

var ioSwipeCmd = &cobra.Command{
	Use:   "swipe [x1,y1,x2,y2]",
	Short: "Swipe between two points",
	Long:  `Swipes from x1,y1 to x2,y2. Coordinates are display pixels, or HUD logical units with --logical.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coords, err := parseCoords(args[0], 4)
		if err != nil {
			return fail(err)
		}

		client, err := bridgeClient(cmd)
		if err != nil {
			return fail(err)
		}

		return runCommand(commands.SwipeCommand(cmd.Context(), client, commands.SwipeRequest{
			X1:         coords[0],
			Y1:         coords[1],
			X2:         coords[2],
			Y2:         coords[3],
			DurationMs: durationMs,
			Logical:    logicalCoords,
		}))
	},
}

var ioPassthroughCmd = &cobra.Command{
	Use:   "passthrough [x,y | x1,y1,x2,y2]",
	Short: "Replay a recorded tap or swipe under the overlay",
	Long:  `Hides the overlay, sends the gesture to the application underneath, restores the overlay and prints the outcome. Coordinates are HUD logical units.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := commands.PassthroughRequest{DurationMs: durationMs}

		if strings.Count(args[0], ",") == 3 {
			coords, err := parseCoords(args[0], 4)
			if err != nil {
				return fail(err)
			}
			req.X1, req.Y1, req.X2, req.Y2 = coords[0], coords[1], coords[2], coords[3]
			req.Swipe = true
		} else {
			coords, err := parseCoords(args[0], 2)
			if err != nil {
				return fail(err)
			}
			req.X1, req.Y1 = coords[0], coords[1]
		}

		client, err := bridgeClient(cmd)
		if err != nil {
			return fail(err)
		}

		return runCommand(commands.PassthroughCommand(cmd.Context(), client, req))
	},
}

var ioRectCmd = &cobra.Command{
	Use:   "rect [x,y,width,height]",
	Short: "Report the HUD rect in logical units",
	Long:  `Reports a HUD rect as the HUD would. A rect at 0,0 declares the full recording canvas.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coords, err := parseCoords(args[0], 4)
		if err != nil {
			return fail(err)
		}

		client, err := bridgeClient(cmd)
		if err != nil {
			return fail(err)
		}

		return runCommand(commands.OverlayRectCommand(cmd.Context(), client, commands.OverlayRectRequest{
			X:      coords[0],
			Y:      coords[1],
			Width:  coords[2],
			Height: coords[3],
		}))
	},
}

var ioFocusCmd = &cobra.Command{
	Use:   "focus [on|off]",
	Short: "Give input focus to the HUD or release it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseSwitch(args[0])
		if err != nil {
			return fail(err)
		}

		client, err := bridgeClient(cmd)
		if err != nil {
			return fail(err)
		}
		return runCommand(commands.FocusCommand(cmd.Context(), client, on))
	},
}

var ioRecordCmd = &cobra.Command{
	Use:   "record [on|off]",
	Short: "Toggle recording mode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseSwitch(args[0])
		if err != nil {
			return fail(err)
		}

		client, err := bridgeClient(cmd)
		if err != nil {
			return fail(err)
		}
		return runCommand(commands.RecordingCommand(cmd.Context(), client, on))
	},
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected 'on' or 'off', got '%s'", s)
	}
}

func init() {
	rootCmd.AddCommand(ioCmd)

	ioCmd.AddCommand(ioTapCmd, ioSwipeCmd, ioPassthroughCmd, ioRectCmd, ioFocusCmd, ioRecordCmd)

	ioCmd.PersistentFlags().String("listen", "", fmt.Sprintf("Address of the server (default: %s)", config.DefaultListen))
	ioTapCmd.Flags().BoolVar(&logicalCoords, "logical", false, "coordinates are HUD logical units")
	ioSwipeCmd.Flags().BoolVar(&logicalCoords, "logical", false, "coordinates are HUD logical units")
	ioSwipeCmd.Flags().Int64Var(&durationMs, "duration", 300, "swipe duration in milliseconds")
	ioPassthroughCmd.Flags().Int64Var(&durationMs, "duration", 300, "swipe duration in milliseconds")
}
