package cli

import (
	"fmt"

	"github.com/mobile-next/omniclick/commands"
	"github.com/mobile-next/omniclick/config"
	"github.com/mobile-next/omniclick/server"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run system diagnostics",
	Long:  `Performs system diagnostics for better troubleshooting`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}

		var client *commands.Client
		if cfg, err := loadConfig(cmd); err == nil {
			client = commands.NewClient(cfg.Server.Listen, loadToken())
		}

		response := commands.DoctorCommand(cmd.Context(), server.Version, path, client)
		printJson(response)
		if response.Status == "error" {
			return fmt.Errorf("%s", response.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
