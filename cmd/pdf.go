package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sistema-agil/vistoria/internal/submission"
)

var errEmptyPDF = errors.New("service returned an empty PDF")

func newPDFCmd(opts *rootOptions) *cobra.Command {
	var (
		out  string
		info bool
	)

	cmd := &cobra.Command{
		Use:   "pdf TOKEN",
		Short: "Download the generated PDF report for an inspection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := args[0]
			client := opts.client()

			if info {
				meta, err := client.PDFInfo(cmd.Context(), token)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(meta)
			}

			if out == "" {
				out = "vistoria_" + token + ".pdf"
			}
			if err := downloadPDF(cmd.Context(), client, token, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "PDF salvo em %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default vistoria_TOKEN.pdf)")
	cmd.Flags().BoolVar(&info, "info", false, "Print report metadata instead of downloading")

	return cmd
}

func downloadPDF(ctx context.Context, client *submission.Client, token, path string) error {
	data, err := client.FetchGeneratedPDF(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to fetch PDF: %w", err)
	}
	if len(data) == 0 {
		return errEmptyPDF
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}
