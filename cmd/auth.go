package cmd

import (
	"fmt"

	"chief/internal/cli"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication for your Chief Tools account",
	Long: `Manage authentication for chief CLI commands.

The auth command group provides subcommands to log in via the OAuth device
flow, log out, and inspect the currently authenticated account.

Examples:
  chief auth login     # Authenticate with a Chief Tools account
  chief auth whoami    # Show the active account and team
  chief auth logout    # Revoke and clear stored credentials`,
}

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out of the authenticated Chief Tools account",
	Long: `Log out of the authenticated Chief Tools account.

Stored tokens are revoked on the authorization server (best effort) and the
local credential file is reset to its defaults.`,
	RunE: runAuthLogout,
}

// authWhoamiCmd represents the auth whoami command
var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Display active account and authentication state",
	RunE:  runAuthWhoami,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authWhoamiCmd)
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	manager, err := newAuthManager()
	if err != nil {
		return err
	}

	// Best-effort revocation; logout proceeds regardless of the outcome.
	manager.RevokeTokens(cmd.Context())

	if err := manager.ClearAuthData(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}

	fmt.Println("Successfully logged out.")
	return nil
}

func runAuthWhoami(cmd *cobra.Command, args []string) error {
	manager, err := newAuthManager()
	if err != nil {
		return err
	}

	if !manager.IsAuthenticated() {
		fmt.Println(text.FgYellow.Sprint(`Not logged in. Use "chief auth login" to authenticate.`))
		return &cli.AuthRequiredError{}
	}

	info, err := manager.UserInfo(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get user info: %w", err)
	}
	if info.Name == "" || info.Email == "" {
		return &cli.ResponseFormatError{Endpoint: "userinfo", Field: "name"}
	}

	team := manager.TeamName()
	if len(info.Teams) > 0 {
		team = info.Teams[0].Name
	}

	fmt.Printf("Currently logged in as: %s (%s) with team %s\n", info.Name, info.Email, team)
	return nil
}
