package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"chief/internal/cli"
	"chief/internal/domainapi"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// newDomainListCmd creates the command that lists the team's domains.
func newDomainListCmd() *cobra.Command {
	var (
		page     int
		perPage  int
		query    string
		expand   []string
		format   string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the domains of the active team",
		Long: `List the domains of the active team.

Results are paginated. Use --query to filter by name and --expand to include
related records (tld, contacts) in JSON output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" {
				return cli.Validationf("invalid format %q. Allowed values are: table, json", format)
			}

			client, err := newDomainClient()
			if err != nil {
				return err
			}

			s := newSpinner("Fetching domains...")
			s.Start()
			list, err := client.ListDomains(cmd.Context(), domainapi.ListOptions{
				Page:    page,
				PerPage: perPage,
				Query:   query,
				Expand:  expand,
			})
			s.Stop()
			if err != nil {
				return err
			}

			if format == "json" {
				out, err := json.MarshalIndent(list.Domains, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			if len(list.Domains) == 0 {
				fmt.Println("No domains found.")
				return nil
			}

			renderDomainTable(list.Domains, detailed)

			if list.Meta != nil && list.Meta.LastPage > 1 {
				fmt.Printf("Page %d of %d (%d domains total)\n",
					list.Meta.CurrentPage, list.Meta.LastPage, list.Meta.Total)
			}
			return nil
		},
	}

	// Zero values are omitted from the request so the server defaults apply.
	cmd.Flags().IntVar(&page, "page", 0, "Page number to fetch (server default: 1)")
	cmd.Flags().IntVar(&perPage, "per-page", 0, "Number of domains per page, 1-100 (server default: 25)")
	cmd.Flags().StringVar(&query, "query", "", "Filter domains by name")
	cmd.Flags().StringSliceVar(&expand, "expand", nil, "Relations to expand (tld, contacts)")
	cmd.Flags().StringVar(&format, "format", "table", "Output format (table or json)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "Show additional columns")

	return cmd
}

// renderDomainTable prints domains as a table, with extra columns in
// detailed mode.
func renderDomainTable(domains []domainapi.Domain, detailed bool) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)

	header := table.Row{"DOMAIN", "STATUS", "EXPIRES"}
	if detailed {
		header = append(header, "AUTO-RENEW", "WHOIS PRIVACY", "HOSTED DNS")
	}
	t.AppendHeader(header)

	for _, d := range domains {
		expires := d.ExpiresAt
		if expires == "" {
			expires = "-"
		}

		row := table.Row{d.Name, colorizeDomainStatus(d.Status), expires}
		if detailed {
			row = append(row, yesNo(d.IsAutoRenewEnabled), yesNo(d.IsWhoisPrivacyEnabled), yesNo(d.IsUsingHostedDNS))
		}
		t.AppendRow(row)
	}

	t.Render()
}

func colorizeDomainStatus(status string) string {
	switch status {
	case "active", "registered":
		return text.FgGreen.Sprint(status)
	case "pending", "transfer_pending":
		return text.FgYellow.Sprint(status)
	case "expired", "failed":
		return text.FgRed.Sprint(status)
	}
	return status
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
