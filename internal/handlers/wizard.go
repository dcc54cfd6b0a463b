package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sistema-agil/vistoria/internal/wizard"
)

func (h *Handler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if err := sess.Engine.Advance(r.Context()); err != nil {
		h.writeDomainError(w, sess, err)
		return
	}
	h.writeSession(w, sess)
}

func (h *Handler) HandleRetreat(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	if err := sess.Engine.Retreat(); err != nil {
		h.writeDomainError(w, sess, err)
		return
	}
	h.writeSession(w, sess)
}

func (h *Handler) HandleJump(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	n, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil {
		h.writeError(w, "Invalid step: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := sess.Engine.JumpTo(wizard.Step(n)); err != nil {
		h.writeDomainError(w, sess, err)
		return
	}
	h.writeSession(w, sess)
}

func (h *Handler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	result, err := sess.Engine.Finalize(r.Context())
	if err != nil {
		h.writeDomainError(w, sess, err)
		return
	}
	slog.Info("Inspection saved", "session_id", sess.ID, "vistoria_id", result.ID.String(), "token", result.Token)

	h.writeJSON(w, map[string]any{
		"id":      result.ID,
		"token":   result.Token,
		"message": result.Message,
		"events":  sess.DrainEvents(),
	})
}

func (h *Handler) HandleSignatureLink(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	link, err := sess.Engine.RequestSignatureLink(r.Context())
	if err != nil {
		h.writeDomainError(w, sess, err)
		return
	}
	slog.Info("Signature link generated", "session_id", sess.ID, "token", link.Token)

	h.writeJSON(w, map[string]any{
		"token":       link.Token,
		"vistoria_id": link.VistoriaID,
		"expires_at":  link.ExpiresAt,
		"url":         link.URL,
		"message":     link.Message,
		"events":      sess.DrainEvents(),
	})
}
