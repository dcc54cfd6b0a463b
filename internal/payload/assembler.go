// Package payload builds the SubmissionPayload from collected fields and a
// capture snapshot.
package payload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sistema-agil/vistoria/internal/capture"
	"github.com/sistema-agil/vistoria/internal/forms"
	"github.com/sistema-agil/vistoria/internal/models"
)

const (
	defaultPhotoType    = "image/jpeg"
	defaultDocumentType = "application/pdf"
)

// Source is anything that can produce an atomic capture snapshot.
type Source interface {
	Snapshot() models.CaptureSnapshot
}

// DocumentEncoder renders a document as a data URI.
type DocumentEncoder func(ctx context.Context, doc models.CapturedDocument) (string, error)

type Assembler struct {
	now       func() time.Time
	userAgent string
	sessionID string
	encode    DocumentEncoder
}

type Option func(*Assembler)

func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// WithUserAgent sets the client descriptor sent in the metadata block.
func WithUserAgent(ua string) Option {
	return func(a *Assembler) { a.userAgent = ua }
}

func WithSessionID(id string) Option {
	return func(a *Assembler) { a.sessionID = id }
}

func WithDocumentEncoder(enc DocumentEncoder) Option {
	return func(a *Assembler) { a.encode = enc }
}

func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{
		now:       time.Now,
		userAgent: "vistoria-go",
		encode:    encodeDocument,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assembly is the assembled payload plus any non-fatal problems met on the way.
type Assembly struct {
	Payload  *models.SubmissionPayload
	Warnings []error
}

// Assemble takes exactly one snapshot of src, before any other work, and
// builds the payload from it. A document that cannot be encoded is left
// out and reported in Warnings.
func (a *Assembler) Assemble(ctx context.Context, src Source, fields forms.Collected, includeSignature bool) (*Assembly, error) {
	snap := src.Snapshot()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to assemble payload: %w", err)
	}

	now := a.now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	p := &models.SubmissionPayload{
		Vehicle:        fields.Vehicle,
		Questionnaire:  copyMap(fields.Questionnaire),
		Pneus:          forms.CanonicalizeTires(fields.Pneus),
		Photos:         make([]models.MediaEntry, 0, len(snap.Photos)+1),
		NomeConferente: fields.NomeConferente,
		NomeCliente:    fields.NomeCliente,
		DataVistoria:   fields.DataVistoria,
		Fields:         copyMap(fields.Free),
		Metadata: models.Metadata{
			Timestamp: timestamp,
			UserAgent: a.userAgent,
			SessionID: a.sessionID,
		},
	}
	if p.DataVistoria == "" {
		p.DataVistoria = timestamp
	}

	for _, photo := range snap.Photos {
		mimeType := photo.MimeType
		if mimeType == "" {
			mimeType = defaultPhotoType
		}
		url := photo.PreviewDataURI
		if url == "" {
			url = models.DataURI(mimeType, photo.Data)
		}
		p.Photos = append(p.Photos, models.MediaEntry{
			Category: photo.SlotName,
			Name:     photo.SlotName,
			URL:      url,
			Size:     photo.Size(),
			Type:     mimeType,
		})
	}

	assembly := &Assembly{Payload: p}

	if doc := snap.Document; doc != nil {
		mimeType := doc.MimeType
		if mimeType == "" {
			mimeType = defaultDocumentType
		}
		url := doc.PreviewDataURI
		if url == "" {
			encoded, err := a.encode(ctx, *doc)
			if err != nil {
				slog.Warn("Failed to encode document, omitting it from payload", "name", doc.FileName, "error", err)
				assembly.Warnings = append(assembly.Warnings, &models.Error{
					Kind:    models.KindEncode,
					Op:      "assemble payload",
					Field:   capture.DocumentKey,
					Message: "Não foi possível processar o documento",
					Err:     err,
				})
			}
			url = encoded
		}
		if url != "" {
			p.Photos = append(p.Photos, models.MediaEntry{
				Category: capture.DocumentKey,
				Name:     capture.DocumentKey,
				URL:      url,
				Size:     doc.SizeBytes,
				Type:     mimeType,
			})
			p.Documento = &models.DocumentEntry{
				File: url,
				Name: doc.FileName,
				Size: doc.SizeBytes,
				Type: mimeType,
			}
		}
	}

	if includeSignature && snap.Signature != nil {
		uri := snap.Signature.DataURI
		if uri == "" {
			uri = models.DataURI("image/png", snap.Signature.Data)
		}
		p.Assinatura = &uri
	}

	slog.Debug("Payload assembled",
		"photos", len(snap.Photos),
		"document", p.Documento != nil,
		"signature", p.Assinatura != nil,
		"warnings", len(assembly.Warnings))

	return assembly, nil
}

func encodeDocument(ctx context.Context, doc models.CapturedDocument) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(doc.Data) == 0 {
		return "", fmt.Errorf("document %s has no data", doc.FileName)
	}
	mimeType := doc.MimeType
	if mimeType == "" {
		mimeType = defaultDocumentType
	}
	return models.DataURI(mimeType, doc.Data), nil
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
