package cmd

import (
	"github.com/spf13/cobra"
)

// domainCmd represents the domain command group
var domainCmd = &cobra.Command{
	Use:   "domain",
	Short: "Manage domains through Domain Chief",
	Long: `Manage domains registered with Domain Chief.

All domain commands operate in the context of the team selected during
authentication.

Examples:
  chief domain list                      # List your team's domains
  chief domain availability example.com  # Check registration availability
  chief domain register                  # Register or transfer a domain
  chief domain tld dev                   # Show registry details for a TLD`,
}

func init() {
	rootCmd.AddCommand(domainCmd)
	domainCmd.AddCommand(newDomainListCmd())
	domainCmd.AddCommand(newDomainAvailabilityCmd())
	domainCmd.AddCommand(newDomainRegisterCmd())
	domainCmd.AddCommand(newDomainTLDCmd())
}
