package cli

import (
	"fmt"
	"os/exec"
	"runtime"
)

// browserCommands maps GOOS values to the platform command that opens URLs.
var browserCommands = map[string][]string{
	"linux":   {"xdg-open"},
	"darwin":  {"open"},
	"windows": {"cmd", "/c", "start"},
}

// OpenBrowser opens the specified URL in the default web browser without
// waiting for the browser process to exit. Callers should print the URL as a
// fallback when an error is returned.
func OpenBrowser(url string) error {
	argv, ok := browserCommands[runtime.GOOS]
	if !ok {
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	cmd := exec.Command(argv[0], append(argv[1:], url)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
