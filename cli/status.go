package cli

import (
	"fmt"

	"github.com/mobile-next/omniclick/commands"
	"github.com/mobile-next/omniclick/config"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running server's overlay state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := bridgeClient(cmd)
		if err != nil {
			return fail(err)
		}
		return runCommand(commands.StatusCommand(cmd.Context(), client))
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().String("listen", "", fmt.Sprintf("Address of the server (default: %s)", config.DefaultListen))
}
