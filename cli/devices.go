package cli

import (
	"fmt"

	"github.com/mobile-next/omniclick/commands"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List devices a server can drive",
	Long:  `Lists connected adb devices and whether the configured on-device agent answers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		response := commands.DevicesCommand(cmd.Context(), cfg.Backend)
		printJson(response)
		if response.Status == "error" {
			return fmt.Errorf("%s", response.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
