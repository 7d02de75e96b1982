package cmd

import (
	"github.com/spf13/cobra"

	"github.com/keysmith-io/keysmith/internal"
)

func newVersionCmd(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display the version",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.Output("%s", internal.FullVersion())
			return nil
		},
	}
}
