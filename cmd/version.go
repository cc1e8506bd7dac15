package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newVersionCmd creates the Cobra command that prints the build version.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the chief version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("chief version %s\n", rootCmd.Version)
		},
	}
}
