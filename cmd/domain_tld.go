package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// newDomainTLDCmd creates the command that shows registry details for a TLD.
func newDomainTLDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tld <tld>",
		Short: "Show registry details for a top-level domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newDomainClient()
			if err != nil {
				return err
			}

			s := newSpinner(fmt.Sprintf("Fetching details for .%s...", args[0]))
			s.Start()
			info, err := client.GetTLD(cmd.Context(), args[0])
			s.Stop()
			if err != nil {
				return err
			}

			// The document shape varies per TLD, so render it key by key.
			keys := make([]string, 0, len(info))
			for k := range info {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"FIELD", "VALUE"})
			for _, k := range keys {
				t.AppendRow(table.Row{k, fmt.Sprintf("%v", info[k])})
			}
			t.Render()
			return nil
		},
	}
}
