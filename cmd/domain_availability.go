package cmd

import (
	"fmt"

	"chief/internal/domainapi"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// newDomainAvailabilityCmd creates the command that checks whether domains
// can be registered.
func newDomainAvailabilityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "availability <domain>...",
		Short: "Check registration availability for one or more domains",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newDomainClient()
			if err != nil {
				return err
			}

			for _, domain := range args {
				s := newSpinner(fmt.Sprintf("Checking %s...", domain))
				s.Start()
				status, err := client.CheckAvailability(cmd.Context(), domain)
				s.Stop()
				if err != nil {
					return err
				}

				if status == domainapi.AvailabilityFree {
					fmt.Printf("%s is %s\n", text.Bold.Sprint(domain), text.FgGreen.Sprint(status))
				} else {
					fmt.Printf("%s is %s\n", text.Bold.Sprint(domain), text.FgYellow.Sprint(status))
				}
			}
			return nil
		},
	}
}
