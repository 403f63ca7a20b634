package cli

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mobile-next/omniclick/utils"
	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"
)

const keyringService = "omniclick"
const keyringUser = "bridge-token"

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Bridge token commands",
	Long:  `Manage the token the HUD bridge requires. When a token is stored, the server rejects requests that do not present it.`,
}

var authTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Display the bridge token, creating one if needed",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := keyring.Get(keyringService, keyringUser)
		if errors.Is(err, keyring.ErrNotFound) {
			token, err = newToken()
		}
		if err != nil {
			return fmt.Errorf("failed to read bridge token: %w", err)
		}

		fmt.Println(token)
		return nil
	},
}

var authRotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Replace the bridge token",
	Long:  `Generates a new bridge token. A running server keeps the token it started with until restarted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := newToken()
		if err != nil {
			return err
		}

		fmt.Println(token)
		return nil
	},
}

var authClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the bridge token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := keyring.Delete(keyringService, keyringUser); err != nil {
			fmt.Println("no bridge token stored")
			return nil
		}

		fmt.Println("Bridge token removed.")
		return nil
	},
}

func newToken() (string, error) {
	token := uuid.NewString()
	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		return "", fmt.Errorf("failed to store bridge token: %w", err)
	}
	return token, nil
}

// loadToken returns the stored bridge token, or "" when none is stored or the
// keyring is unavailable.
func loadToken() string {
	token, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			utils.Verbose("keyring unavailable: %v", err)
		}
		return ""
	}
	return token
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authTokenCmd, authRotateCmd, authClearCmd)
}
