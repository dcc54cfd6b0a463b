// Package capture holds the media collected during an inspection: one photo
// per named slot, an optional document and an optional signature.
package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sistema-agil/vistoria/internal/device"
	"github.com/sistema-agil/vistoria/internal/images"
	"github.com/sistema-agil/vistoria/internal/models"
)

const (
	DocumentSizeLimit = 10 << 20

	// DocumentKey is the category and name the document uses in payloads.
	DocumentKey = "documento_nota_fiscal"
)

var documentTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/jpg",
	"image/png",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// ErrCaptureDiscarded is returned when a photo finished optimizing after its
// slot was removed, recaptured or reset.
var ErrCaptureDiscarded = errors.New("capture discarded: slot changed while processing")

type PhotoOptimizer interface {
	Optimize(blob models.Blob) models.Blob
}

type Option func(*Store)

func WithOptimizer(o PhotoOptimizer) Option {
	return func(s *Store) { s.optimizer = o }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is safe for concurrent use. Stored byte slices are never written
// after commit, so snapshots share them.
type Store struct {
	mu        sync.Mutex
	profile   device.Profile
	optimizer PhotoOptimizer
	now       func() time.Time

	photos map[string]models.CapturedPhoto
	order  []string
	gen    map[string]uint64

	document  *models.CapturedDocument
	signature *models.SignatureImage
}

func NewStore(profile device.Profile, opts ...Option) *Store {
	s := &Store{
		profile: profile,
		now:     time.Now,
		photos:  make(map[string]models.CapturedPhoto),
		gen:     make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.optimizer == nil {
		s.optimizer = images.NewOptimizer(profile)
	}
	return s
}

func (s *Store) Profile() device.Profile {
	return s.profile
}

// CapturePhoto validates, optimizes and stores a photo for slot, replacing
// any earlier capture in place. Nothing changes when an error is returned.
func (s *Store) CapturePhoto(slot string, blob models.Blob) (*models.CapturedPhoto, error) {
	const op = "capture photo"

	slot = strings.TrimSpace(slot)
	if slot == "" {
		return nil, models.NewValidationError(op, "slot", 3, "Slot da foto não informado")
	}
	mimeType := blob.MimeType
	if mimeType == "" {
		mimeType = sniff(blob.Data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, &models.Error{Kind: models.KindCaptureFormat, Op: op, Field: slot, Message: "Por favor, selecione apenas imagens"}
	}
	if limit := s.profile.PhotoSizeLimit(); blob.Size() > limit {
		return nil, &models.Error{
			Kind:    models.KindCaptureSize,
			Op:      op,
			Field:   slot,
			Message: fmt.Sprintf("Imagem deve ter no máximo %dMB", limit>>20),
		}
	}

	s.mu.Lock()
	s.gen[slot]++
	ticket := s.gen[slot]
	s.mu.Unlock()

	blob.MimeType = mimeType
	blob.Data = bytes.Clone(blob.Data)
	optimized := s.optimizer.Optimize(blob)
	if optimized.MimeType == "" {
		optimized.MimeType = mimeType
	}

	photo := models.CapturedPhoto{
		SlotName:       slot,
		Data:           optimized.Data,
		MimeType:       optimized.MimeType,
		PreviewDataURI: models.DataURI(optimized.MimeType, optimized.Data),
		CapturedAt:     s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen[slot] != ticket {
		slog.Debug("Discarding stale photo capture", "slot", slot)
		return nil, ErrCaptureDiscarded
	}
	if _, exists := s.photos[slot]; !exists {
		s.order = append(s.order, slot)
	}
	s.photos[slot] = photo

	slog.Info("Photo captured", "slot", slot, "size", photo.Size(), "type", photo.MimeType)
	return &photo, nil
}

// RemovePhoto is idempotent.
func (s *Store) RemovePhoto(slot string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen[slot]++
	if _, exists := s.photos[slot]; !exists {
		return
	}
	delete(s.photos, slot)
	s.order = slices.DeleteFunc(s.order, func(name string) bool { return name == slot })
	slog.Info("Photo removed", "slot", slot)
}

func (s *Store) CaptureDocument(blob models.Blob) (*models.CapturedDocument, error) {
	const op = "capture document"

	mimeType := blob.MimeType
	if mimeType == "" {
		mimeType = sniff(blob.Data)
	}
	if !slices.Contains(documentTypes, mimeType) {
		return nil, &models.Error{Kind: models.KindCaptureFormat, Op: op, Field: DocumentKey, Message: "Por favor, selecione apenas PDF, imagens ou documentos Word."}
	}
	if blob.Size() > DocumentSizeLimit {
		return nil, &models.Error{Kind: models.KindCaptureSize, Op: op, Field: DocumentKey, Message: "Documento deve ter no máximo 10MB."}
	}

	data := bytes.Clone(blob.Data)
	doc := &models.CapturedDocument{
		Data:       data,
		FileName:   blob.Name,
		SizeBytes:  int64(len(data)),
		MimeType:   mimeType,
		CapturedAt: s.now(),
	}
	if doc.FileName == "" {
		doc.FileName = DocumentKey
	}
	if mimeType == "application/pdf" {
		pages, err := PageCount(data)
		if err != nil {
			slog.Warn("Failed to count document pages", "name", doc.FileName, "error", err)
		}
		doc.PageCount = pages
	}
	doc.PreviewDataURI = models.DataURI(mimeType, data)

	s.mu.Lock()
	s.document = doc
	s.mu.Unlock()

	slog.Info("Document captured", "name", doc.FileName, "size", doc.SizeBytes, "type", doc.MimeType, "pages", doc.PageCount)
	cp := *doc
	return &cp, nil
}

func (s *Store) RemoveDocument() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.document != nil {
		slog.Info("Document removed", "name", s.document.FileName)
	}
	s.document = nil
}

// CaptureSignature stores the drawing surface output. Blank canvases are
// rejected. Non-PNG input is re-encoded as PNG.
func (s *Store) CaptureSignature(blob models.Blob) (*models.SignatureImage, error) {
	const op = "capture signature"

	img, err := images.Decode(blob.Data)
	if err != nil {
		return nil, &models.Error{Kind: models.KindCaptureFormat, Op: op, Field: "assinatura", Message: "Não foi possível processar a assinatura", Err: err}
	}
	if images.InkBounds(img).Empty() {
		return nil, models.NewValidationError(op, "assinatura", 6, "Assinatura é obrigatória")
	}

	data := bytes.Clone(blob.Data)
	if sniff(data) != "image/png" {
		data, err = encodePNG(img)
		if err != nil {
			return nil, &models.Error{Kind: models.KindEncode, Op: op, Field: "assinatura", Message: "Não foi possível processar a assinatura", Err: err}
		}
	}

	b := img.Bounds()
	sig := &models.SignatureImage{
		Data:       data,
		DataURI:    models.DataURI("image/png", data),
		Width:      b.Dx(),
		Height:     b.Dy(),
		CapturedAt: s.now(),
	}

	s.mu.Lock()
	s.signature = sig
	s.mu.Unlock()

	slog.Info("Signature captured", "width", sig.Width, "height", sig.Height)
	cp := *sig
	return &cp, nil
}

func (s *Store) ClearSignature() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signature = nil
}

// ResetAll drops every capture. Optimizations still in flight are discarded.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for slot := range s.gen {
		s.gen[slot]++
	}
	s.photos = make(map[string]models.CapturedPhoto)
	s.order = nil
	s.document = nil
	s.signature = nil
	slog.Info("Captures reset")
}

// Snapshot returns an atomic copy of the current captures.
func (s *Store) Snapshot() models.CaptureSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.CaptureSnapshot{
		Photos: make([]models.CapturedPhoto, 0, len(s.order)),
	}
	for _, slot := range s.order {
		snap.Photos = append(snap.Photos, s.photos[slot])
	}
	if s.document != nil {
		doc := *s.document
		snap.Document = &doc
	}
	if s.signature != nil {
		sig := *s.signature
		snap.Signature = &sig
	}
	return snap
}

func (s *Store) PhotoCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.photos)
}

func (s *Store) HasSignature() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signature != nil
}

func sniff(data []byte) string {
	mimeType := http.DetectContentType(data)
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return mimeType
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
