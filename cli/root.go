package cli

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/mobile-next/omniclick/config"
	"github.com/mobile-next/omniclick/devices"
	"github.com/mobile-next/omniclick/server"
	"github.com/mobile-next/omniclick/utils"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "omniclick",
	Short: "A gesture passthrough overlay for Android",
	Long:  `Hosts a HUD overlay above other applications and replays its recorded taps and swipes to whatever is underneath.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	Version:       server.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var shutdownHook *devices.ShutdownHook

// SetShutdownHook installs the hook that long-running commands register
// cleanup with.
func SetShutdownHook(h *devices.ShutdownHook) {
	shutdownHook = h
}

func initConfig() {
	utils.SetVerbose(verbose)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", fmt.Sprintf("config file (default %s)", config.DefaultPath()))
}

// Execute runs the root command
func Execute() error {
	// enable microseconds in logs
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	return rootCmd.Execute()
}

// loadConfig reads the config file and applies the flags that override it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if f := cmd.Flags().Lookup("listen"); f != nil && f.Changed {
		cfg.Server.Listen = f.Value.String()
	}
	if f := cmd.Flags().Lookup("backend"); f != nil && f.Changed {
		cfg.Backend.Type = f.Value.String()
	}
	if f := cmd.Flags().Lookup("device"); f != nil && f.Changed {
		cfg.Backend.Device = f.Value.String()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// printJson is a helper function to print JSON responses
func printJson(data interface{}) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(jsonData))
}
