package cmd

import (
	"fmt"

	"chief/internal/cli"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with a Chief Tools account",
	Long: `Authenticate with a Chief Tools account using the OAuth device flow.

A browser window is opened to the verification page. Approve the request
there; the CLI waits until the authorization completes, is denied, or the
request expires.`,
	RunE: runAuthLogin,
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	manager, err := newAuthManager()
	if err != nil {
		return err
	}

	if manager.IsAuthenticated() {
		prompter := cli.NewPrompter()
		again, err := prompter.Confirm("You are already logged in. Do you want to re-authenticate?", false)
		if err != nil {
			return err
		}
		if !again {
			return nil
		}

		// Drop the old session before starting a new one.
		manager.RevokeTokens(ctx)
		if err := manager.ClearAuthData(); err != nil {
			return fmt.Errorf("failed to clear credentials: %w", err)
		}
	}

	da, err := manager.InitiateDeviceAuth(ctx)
	if err != nil {
		return fmt.Errorf("failed to start authentication: %w", err)
	}

	fmt.Println("Opening your browser to complete authentication...")
	if err := cli.OpenBrowser(da.VerificationURIComplete); err != nil {
		fmt.Println(text.FgYellow.Sprint("Could not open a browser automatically."))
	}
	fmt.Printf("If the browser did not open, visit:\n  %s\n", da.VerificationURIComplete)
	if da.UserCode != "" {
		fmt.Printf("Your verification code is: %s\n", text.Bold.Sprint(da.UserCode))
	}

	s := newSpinner("Waiting for authentication...")
	s.Start()
	token, err := manager.PollForToken(ctx, da)
	s.Stop()
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	if token == nil {
		return fmt.Errorf("authentication request expired, please try again")
	}

	info, err := manager.CompleteAuthentication(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to complete authentication: %w", err)
	}

	fmt.Println(text.FgGreen.Sprintf("Successfully logged in as %s (%s) with team %s.",
		info.Name, info.Email, info.Teams[0].Name))
	return nil
}
