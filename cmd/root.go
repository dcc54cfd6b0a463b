package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sistema-agil/vistoria/internal/config"
	"github.com/sistema-agil/vistoria/internal/journal"
	"github.com/sistema-agil/vistoria/internal/submission"
)

type rootOptions struct {
	configPath string
	verbose    bool
	cfg        config.Config
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "vistoria",
		Short: "Vehicle inspection capture and submission tool",
		Long: `Vistoria runs the six-step vehicle inspection wizard.

It can serve a local capture API for browser and camera surfaces, or submit
an inspection headlessly from an answers file and media on disk.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			setupLogging(opts.verbose)

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "vistoria.yaml", "Path to the YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newServeCmd(opts),
		newSubmitCmd(opts),
		newPDFCmd(opts),
		newJournalCmd(opts),
		newHealthCmd(opts),
		newConfigCmd(opts),
	)

	return cmd
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("VISTORIA_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func (o *rootOptions) client() *submission.Client {
	return submission.NewClient(o.cfg.ServiceURL,
		submission.WithTimeout(o.cfg.Timeout),
		submission.WithSoftLimit(o.cfg.SoftPayloadLimit()),
		submission.WithPDFValidation(o.cfg.ValidatePDF),
	)
}

// openJournal returns nil when the journal is disabled.
func (o *rootOptions) openJournal() (*journal.Journal, error) {
	if o.cfg.JournalPath == "" {
		return nil, nil
	}
	j, err := journal.Open(o.cfg.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return j, nil
}
