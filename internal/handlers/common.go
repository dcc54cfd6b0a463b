package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sistema-agil/vistoria/internal/capture"
	"github.com/sistema-agil/vistoria/internal/models"
	"github.com/sistema-agil/vistoria/internal/session"
	"github.com/sistema-agil/vistoria/internal/storage"
	"github.com/sistema-agil/vistoria/internal/wizard"
)

type Handler struct {
	sessionStore *storage.SessionStore
	deps         session.Deps
	device       string
}

// New builds the capture API. device is the configured profile name
// ("auto" classifies each session by its User-Agent).
func New(deps session.Deps, device string) *Handler {
	return &Handler{
		sessionStore: storage.New(),
		deps:         deps,
		device:       device,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.HandleCreateSession)
		r.Get("/", h.HandleListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGetSession)
			r.Delete("/", h.HandleDeleteSession)
			r.Put("/fields", h.HandleSetFields)
			r.Get("/fields", h.HandleGetFields)
			r.Post("/photos/{slot}", h.HandleCapturePhoto)
			r.Delete("/photos/{slot}", h.HandleRemovePhoto)
			r.Post("/document", h.HandleCaptureDocument)
			r.Delete("/document", h.HandleRemoveDocument)
			r.Post("/signature", h.HandleCaptureSignature)
			r.Delete("/signature", h.HandleClearSignature)
			r.Post("/advance", h.HandleAdvance)
			r.Post("/retreat", h.HandleRetreat)
			r.Post("/jump/{step}", h.HandleJump)
			r.Post("/finalize", h.HandleFinalize)
			r.Post("/signature-link", h.HandleSignatureLink)
			r.Post("/reset", h.HandleReset)
			r.Get("/review", h.HandleReview)
			r.Get("/events", h.HandleEvents)
		})
	})

	return r
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

type errorBody struct {
	Error      string          `json:"error"`
	Code       models.Kind     `json:"code,omitempty"`
	Field      string          `json:"field,omitempty"`
	Step       int             `json:"step,omitempty"`
	Violations []errorBody     `json:"violations,omitempty"`
	Events     []session.Event `json:"events,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	h.writeJSONStatus(w, code, errorBody{Error: message})
}

// writeDomainError maps the error taxonomy onto HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, sess *session.Session, err error) {
	body := errorBody{Error: err.Error()}
	code := http.StatusInternalServerError

	var violations wizard.Violations
	var me *models.Error
	switch {
	case errors.Is(err, wizard.ErrThrottled):
		code = http.StatusTooManyRequests
	case errors.Is(err, wizard.ErrBusy), errors.Is(err, capture.ErrCaptureDiscarded):
		code = http.StatusConflict
	case errors.As(err, &violations):
		code = http.StatusUnprocessableEntity
		body.Code = models.KindValidation
		for _, v := range violations {
			body.Violations = append(body.Violations, errorBody{Error: v.Message, Code: v.Kind, Field: v.Field, Step: v.Step})
		}
	case errors.As(err, &me):
		code = statusForKind(me.Kind)
		body.Error = me.Message
		body.Code = me.Kind
		body.Field = me.Field
		body.Step = me.Step
	}
	if sess != nil {
		body.Events = sess.DrainEvents()
	}

	slog.Warn("Request failed", "status", code, "error", err)
	h.writeJSONStatus(w, code, body)
}

func statusForKind(k models.Kind) int {
	switch k {
	case models.KindValidation:
		return http.StatusUnprocessableEntity
	case models.KindCaptureFormat:
		return http.StatusUnsupportedMediaType
	case models.KindCaptureSize:
		return http.StatusRequestEntityTooLarge
	case models.KindNetwork:
		return http.StatusBadGateway
	case models.KindState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, exists := h.sessionStore.Get(chi.URLParam(r, "id"))
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	sess.Touch()
	return sess, true
}

type sessionResponse struct {
	session.Summary
	Events []session.Event `json:"events"`
}

func (h *Handler) writeSession(w http.ResponseWriter, sess *session.Session) {
	h.writeJSON(w, sessionResponse{Summary: sess.Summary(), Events: sess.DrainEvents()})
}

// Prune drops sessions nobody has used for maxAge.
func (h *Handler) Prune(maxAge time.Duration) int {
	now := time.Now
	if h.deps.Now != nil {
		now = h.deps.Now
	}
	n := h.sessionStore.Prune(now().Add(-maxAge))
	if n > 0 {
		slog.Info("Pruned idle sessions", "count", n)
	}
	return n
}
