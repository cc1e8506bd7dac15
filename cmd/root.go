package cmd

import (
	"errors"
	"os"

	"chief/internal/cli"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed).
	ExitCodeError = 1
	// ExitCodeUsage indicates an invalid invocation (bad arguments or options).
	ExitCodeUsage = 2
)

// rootCmd represents the base command for the chief application.
var rootCmd = &cobra.Command{
	Use:   "chief",
	Short: "Manage Chief Tools domains from your terminal",
	Long: `chief is the command-line client for Chief Tools. It authenticates
against your Chief Tools account using the OAuth device flow and lets you
list, register, and transfer domains through Domain Chief.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// configPath optionally overrides the configuration directory.
var configPath string

// SetVersion sets the version for the root command.
// This is called from the main package to inject the build version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It is the only place allowed to terminate the process; every lower layer
// reports failures through error returns.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "chief version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var validation *cli.ValidationError
	if errors.As(err, &validation) {
		return ExitCodeUsage
	}
	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", "",
		"Configuration directory (default ~/.config/chief)")

	// Flag parse failures are invalid invocations, not command failures.
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return cli.Validationf("%v", err)
	})

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
