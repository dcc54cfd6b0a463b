package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sistema-agil/vistoria/internal/device"
	"github.com/sistema-agil/vistoria/internal/forms"
	"github.com/sistema-agil/vistoria/internal/models"
	"github.com/sistema-agil/vistoria/internal/session"
	"github.com/sistema-agil/vistoria/internal/wizard"
)

type submitOptions struct {
	answers    string
	photos     []string
	document   string
	signature  string
	remoteSign bool
	pdfOut     string
	device     string
}

func newSubmitCmd(opts *rootOptions) *cobra.Command {
	so := &submitOptions{}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Run the inspection wizard headlessly and submit it",
		Long: `Loads form answers from a YAML file or a saved HTML form, attaches photos,
an optional document and the client signature, walks the wizard through
every step and submits the inspection.

With --remote-sign the inspection is registered without a signature and a
signing link is printed instead.`,
		Example: `  vistoria submit --answers vistoria.yaml \
    --photo foto_frente=frente.jpg --photo foto_traseira=traseira.jpg \
    --document nota.pdf --signature assinatura.png --pdf laudo.pdf

  vistoria submit --answers form.html --photo foto_frente=frente.jpg --remote-sign`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd.Context(), cmd.OutOrStdout(), opts, so)
		},
	}

	cmd.Flags().StringVarP(&so.answers, "answers", "a", "", "Answers file (.yaml or .html)")
	cmd.Flags().StringArrayVarP(&so.photos, "photo", "p", nil, "Photo as slot=path, repeatable")
	cmd.Flags().StringVar(&so.document, "document", "", "Invoice or registration document (PDF or image)")
	cmd.Flags().StringVar(&so.signature, "signature", "", "Client signature image")
	cmd.Flags().BoolVar(&so.remoteSign, "remote-sign", false, "Request a remote signing link instead of finalizing")
	cmd.Flags().StringVar(&so.pdfOut, "pdf", "", "Download the generated PDF report to this path")
	cmd.Flags().StringVar(&so.device, "device", "", "Device profile: mobile, desktop or auto (overrides config)")
	_ = cmd.MarkFlagRequired("answers")

	return cmd
}

func runSubmit(ctx context.Context, out io.Writer, opts *rootOptions, so *submitOptions) error {
	cfg := opts.cfg
	client := opts.client()

	deps := session.Deps{Submitter: client, UserAgent: cfg.ClientName}
	j, err := opts.openJournal()
	if err != nil {
		return err
	}
	if j != nil {
		defer j.Close()
		deps.Recorder = j
	}

	name := so.device
	if name == "" {
		name = cfg.Device
	}
	sess := session.New(device.Parse(name, ""), deps)
	defer logEvents(sess)

	if err := loadAnswers(sess, so.answers); err != nil {
		return err
	}
	if err := attachMedia(sess, so); err != nil {
		return err
	}

	if so.remoteSign {
		link, err := sess.Engine.RequestSignatureLink(ctx)
		if err != nil {
			return fmt.Errorf("failed to request signature link: %w", err)
		}
		fmt.Fprintf(out, "Link de assinatura: %s\n", link.URL)
		if link.ExpiresAt != "" {
			fmt.Fprintf(out, "Expira em: %s\n", link.ExpiresAt)
		}
		return nil
	}

	for sess.Engine.Step() < wizard.StepSignature {
		if err := sess.Engine.Advance(ctx); err != nil {
			return fmt.Errorf("failed at step %s: %w", sess.Engine.Step(), err)
		}
	}

	result, err := sess.Engine.Finalize(ctx)
	if err != nil {
		return fmt.Errorf("failed to finalize inspection: %w", err)
	}
	fmt.Fprintf(out, "Vistoria %s salva (token %s)\n", result.ID, result.Token)

	if so.pdfOut != "" && result.Token != "" {
		if err := downloadPDF(ctx, client, result.Token, so.pdfOut); err != nil {
			return err
		}
		fmt.Fprintf(out, "PDF salvo em %s\n", so.pdfOut)
	}
	return nil
}

func loadAnswers(sess *session.Session, path string) error {
	snapshot, err := forms.LoadAnswers(path)
	if err != nil {
		return err
	}
	if err := sess.Form.Apply(snapshot); err != nil {
		return fmt.Errorf("failed to apply answers: %w", err)
	}
	if placa := sess.Form.Value("placa"); placa != "" {
		if err := sess.Form.Set("placa", wizard.FormatPlaca(placa)); err != nil {
			return err
		}
	}
	slog.Debug("Answers loaded", "path", path, "fields", len(snapshot))
	return nil
}

func attachMedia(sess *session.Session, so *submitOptions) error {
	for _, arg := range so.photos {
		slot, path, ok := strings.Cut(arg, "=")
		if !ok || slot == "" || path == "" {
			return fmt.Errorf("invalid --photo %q, expected slot=path", arg)
		}
		blob, err := readBlobFile(path)
		if err != nil {
			return err
		}
		photo, err := sess.Capture.CapturePhoto(slot, blob)
		if err != nil {
			return fmt.Errorf("failed to capture photo %s: %w", slot, err)
		}
		slog.Info("Photo captured", "slot", slot, "bytes", photo.Size(), "original_bytes", blob.Size())
	}

	if so.document != "" {
		blob, err := readBlobFile(so.document)
		if err != nil {
			return err
		}
		doc, err := sess.Capture.CaptureDocument(blob)
		if err != nil {
			return fmt.Errorf("failed to capture document: %w", err)
		}
		slog.Info("Document captured", "name", doc.FileName, "type", doc.MimeType, "pages", doc.PageCount)
	}

	if so.signature != "" {
		blob, err := readBlobFile(so.signature)
		if err != nil {
			return err
		}
		if _, err := sess.Capture.CaptureSignature(blob); err != nil {
			return fmt.Errorf("failed to capture signature: %w", err)
		}
	}
	return nil
}

func readBlobFile(path string) (models.Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Blob{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return models.Blob{Name: filepath.Base(path), Data: data}, nil
}

func logEvents(sess *session.Session) {
	for _, ev := range sess.DrainEvents() {
		switch ev.Kind {
		case session.EventWarning:
			slog.Warn(ev.Message, "field", ev.Field, "step", ev.Step, "code", ev.Code)
		case session.EventNotice:
			slog.Info(ev.Message)
		default:
			slog.Debug("Wizard event", "kind", ev.Kind, "step", ev.Step, "message", ev.Message)
		}
	}
}
