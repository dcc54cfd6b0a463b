package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the inspection service is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := opts.client().Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s (database: %s)\n", h.Service, h.Version, h.Status, h.Database)
			return nil
		},
	}
}
