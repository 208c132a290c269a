package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/averycrespi/codedoc-mcp/pkg/project"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", project.Name, project.Version)
		},
	}
}
