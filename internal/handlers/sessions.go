package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"

	"github.com/sistema-agil/vistoria/internal/device"
	"github.com/sistema-agil/vistoria/internal/forms"
	"github.com/sistema-agil/vistoria/internal/session"
	"github.com/sistema-agil/vistoria/internal/wizard"
)

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Device string `json:"device"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	name := request.Device
	if name == "" {
		name = h.device
	}
	profile := device.Parse(name, r.UserAgent())

	deps := h.deps
	if deps.UserAgent == "" {
		deps.UserAgent = r.UserAgent()
	}
	sess := session.New(profile, deps)
	h.sessionStore.Set(sess.ID, sess)
	slog.Info("Session created", "session_id", sess.ID, "device", profile.String())

	h.writeJSONStatus(w, http.StatusCreated, sessionResponse{Summary: sess.Summary(), Events: sess.DrainEvents()})
}

func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessionStore.List()
	sessionList := make([]session.Summary, 0, len(sessions))
	for _, sess := range sessions {
		sessionList = append(sessionList, sess.Summary())
	}
	h.writeJSON(w, sessionList)
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeSession(w, sess)
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	sess.Capture.ResetAll()
	h.sessionStore.Delete(sess.ID)
	slog.Info("Session deleted", "session_id", sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSetFields takes a flat object of field name to value. Checkbox
// values are "true"/"false", radios take the option value.
func (h *Handler) HandleSetFields(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	var values map[string]string
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := values[name]
		if name == "placa" {
			value = wizard.FormatPlaca(value)
		}
		if err := sess.Form.Set(name, value); err != nil {
			h.writeDomainError(w, sess, err)
			return
		}
	}
	h.writeFields(w, sess)
}

func (h *Handler) HandleGetFields(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeFields(w, sess)
}

func (h *Handler) writeFields(w http.ResponseWriter, sess *session.Session) {
	h.writeJSON(w, map[string]any{
		"fields": forms.Collect(sess.Form.Snapshot()),
		"step":   int(sess.Engine.Step()),
		"events": sess.DrainEvents(),
	})
}

func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, sess.Engine.Review())
}

func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, sess.DrainEvents())
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	sess.Reset()
	slog.Info("Session reset", "session_id", sess.ID)
	h.writeSession(w, sess)
}
