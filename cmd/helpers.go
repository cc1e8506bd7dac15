package cmd

import (
	"fmt"
	"time"

	"chief/internal/auth"
	"chief/internal/config"
	"chief/internal/domainapi"

	"github.com/briandowns/spinner"
)

// userAgent identifies the client and version on every outgoing request.
func userAgent() string {
	version := rootCmd.Version
	if version == "" {
		version = "dev"
	}
	return fmt.Sprintf("ChiefToolsCLI/%s (+https://aka.chief.app/cli)", version)
}

// newAuthManager opens the credential store and builds the auth lifecycle
// manager. Each command invocation constructs its own manager; credentials
// are read from the store at call time.
func newAuthManager() (*auth.Manager, error) {
	store, err := config.NewStore(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize configuration: %w", err)
	}
	return auth.NewManager(store, auth.WithUserAgent(userAgent())), nil
}

// newDomainClient builds the Domain Chief API client on top of the auth
// manager's authenticated pipeline.
func newDomainClient() (*domainapi.Client, error) {
	manager, err := newAuthManager()
	if err != nil {
		return nil, err
	}
	return domainapi.NewClient(manager), nil
}

// newSpinner creates a progress spinner with the shared look.
func newSpinner(message string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	return s
}
