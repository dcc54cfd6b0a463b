package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newJournalCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the local journal of submitted inspections",
	}
	cmd.AddCommand(newJournalListCmd(opts), newJournalExportCmd(opts))
	return cmd
}

func newJournalListCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent submissions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := opts.openJournal()
			if err != nil {
				return err
			}
			if j == nil {
				return errors.New("journal is disabled (journal_path is empty)")
			}
			defer j.Close()

			receipts, err := j.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tKIND\tPLACA\tCLIENTE\tFOTOS\tTOKEN")
			for _, r := range receipts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
					r.SubmittedAt.Local().Format(time.DateTime), r.Kind, r.Placa, r.NomeCliente, r.Photos, r.Token)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows (0 for all)")
	return cmd
}

func newJournalExportCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Export the journal as a Parquet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := opts.openJournal()
			if err != nil {
				return err
			}
			if j == nil {
				return errors.New("journal is disabled (journal_path is empty)")
			}
			defer j.Close()

			n, err := j.ExportFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d submissions to %s\n", n, args[0])
			return nil
		},
	}
	return cmd
}
