package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sistema-agil/vistoria/internal/capture"
	"github.com/sistema-agil/vistoria/internal/models"
	"github.com/sistema-agil/vistoria/internal/session"
)

const (
	signatureUploadLimit = 5 << 20
	// room for multipart boundaries and part headers
	multipartOverhead = 1 << 20
)

func sizeError(field string, limit int64) *models.Error {
	return &models.Error{
		Kind:    models.KindCaptureSize,
		Op:      "upload",
		Field:   field,
		Message: fmt.Sprintf("Arquivo deve ter no máximo %dMB", limit>>20),
	}
}

// readBlob accepts a multipart "file" field, a JSON body carrying a data
// URI, or the raw bytes with their Content-Type. Payloads over limit come
// back as a CAPTURE_SIZE_ERROR; other failures are plain errors.
func readBlob(w http.ResponseWriter, r *http.Request, limit int64, field string) (models.Blob, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var blob models.Blob
	switch mediaType {
	case "multipart/form-data":
		if r.ContentLength > limit+multipartOverhead {
			return models.Blob{}, sizeError(field, limit)
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return models.Blob{}, sizeError(field, limit)
			}
			return models.Blob{}, fmt.Errorf("failed to read file: %w", err)
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, limit+1))
		if err != nil {
			return models.Blob{}, fmt.Errorf("failed to read file contents: %w", err)
		}
		blob = models.Blob{Name: header.Filename, MimeType: header.Header.Get("Content-Type"), Data: data}

	case "application/json":
		// base64 grows the payload by a third
		maxBody := limit*4/3 + 1024
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
		if err != nil {
			return models.Blob{}, fmt.Errorf("failed to read body: %w", err)
		}
		if int64(len(body)) > maxBody {
			return models.Blob{}, sizeError(field, limit)
		}
		var request struct {
			Name    string `json:"name"`
			DataURI string `json:"data_uri"`
		}
		if err := json.Unmarshal(body, &request); err != nil {
			return models.Blob{}, fmt.Errorf("invalid JSON: %w", err)
		}
		mimeType, data, err := decodeDataURI(request.DataURI)
		if err != nil {
			return models.Blob{}, err
		}
		blob = models.Blob{Name: request.Name, MimeType: mimeType, Data: data}

	default:
		data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
		if err != nil {
			return models.Blob{}, fmt.Errorf("failed to read body: %w", err)
		}
		if mediaType == "application/octet-stream" {
			mediaType = ""
		}
		blob = models.Blob{Name: r.URL.Query().Get("name"), MimeType: mediaType, Data: data}
	}

	if blob.Size() > limit {
		return models.Blob{}, sizeError(field, limit)
	}
	return blob, nil
}

// writeReadError reports a readBlob failure.
func (h *Handler) writeReadError(w http.ResponseWriter, sess *session.Session, err error) {
	if models.KindOf(err) != "" {
		h.writeDomainError(w, sess, err)
		return
	}
	h.writeError(w, err.Error(), http.StatusBadRequest)
}

func decodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, errors.New("data_uri must start with data:")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("data_uri has no payload")
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, errors.New("data_uri must be base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data_uri: %w", err)
	}
	return mimeType, data, nil
}

func (h *Handler) HandleCapturePhoto(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	slot := chi.URLParam(r, "slot")

	blob, err := readBlob(w, r, sess.Profile.PhotoSizeLimit(), slot)
	if err != nil {
		h.writeReadError(w, sess, err)
		return
	}

	photo, err := sess.Capture.CapturePhoto(slot, blob)
	if err != nil {
		h.writeDomainError(w, sess, err)
		return
	}
	slog.Info("Photo captured", "session_id", sess.ID, "slot", photo.SlotName, "bytes", photo.Size(), "original_bytes", blob.Size())

	h.writeJSONStatus(w, http.StatusCreated, map[string]any{
		"slot":        photo.SlotName,
		"type":        photo.MimeType,
		"size":        photo.Size(),
		"preview":     photo.PreviewDataURI,
		"captured_at": photo.CapturedAt,
	})
}

func (h *Handler) HandleRemovePhoto(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	sess.Capture.RemovePhoto(chi.URLParam(r, "slot"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleCaptureDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	blob, err := readBlob(w, r, capture.DocumentSizeLimit, capture.DocumentKey)
	if err != nil {
		h.writeReadError(w, sess, err)
		return
	}

	doc, err := sess.Capture.CaptureDocument(blob)
	if err != nil {
		h.writeDomainError(w, sess, err)
		return
	}
	slog.Info("Document captured", "session_id", sess.ID, "name", doc.FileName, "type", doc.MimeType, "bytes", doc.SizeBytes)

	h.writeJSONStatus(w, http.StatusCreated, doc)
}

func (h *Handler) HandleRemoveDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	sess.Capture.RemoveDocument()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleCaptureSignature(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	blob, err := readBlob(w, r, signatureUploadLimit, "assinatura")
	if err != nil {
		h.writeReadError(w, sess, err)
		return
	}

	sig, err := sess.Capture.CaptureSignature(blob)
	if err != nil {
		h.writeDomainError(w, sess, err)
		return
	}
	slog.Info("Signature captured", "session_id", sess.ID, "width", sig.Width, "height", sig.Height)

	h.writeJSONStatus(w, http.StatusCreated, sig)
}

func (h *Handler) HandleClearSignature(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	sess.Capture.ClearSignature()
	w.WriteHeader(http.StatusNoContent)
}
