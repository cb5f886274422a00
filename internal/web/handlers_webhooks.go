package web

import (
	"net/http"

	"github.com/AarnabDutta/Product-Importer-FullStack/internal/core"
)

func (s *Server) handleListWebhooks(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", core.DefaultWebhookLimit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	hooks, err := s.service.ListWebhooks(r.Context(), skip, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hooks)
}

func (s *Server) handleGetWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	h, err := s.service.GetWebhook(r.Context(), id)
	if err != nil {
		s.respondError(w, r, entityError("Webhook", err))
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleCreateWebhook(w http.ResponseWriter, r *http.Request) {
	var in core.WebhookInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}
	h, err := s.service.CreateWebhook(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h)
}

func (s *Server) handleUpdateWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var patch core.WebhookPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.respondError(w, r, err)
		return
	}
	h, err := s.service.UpdateWebhook(r.Context(), id, patch)
	if err != nil {
		s.respondError(w, r, entityError("Webhook", err))
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleDeleteWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.service.DeleteWebhook(r.Context(), id); err != nil {
		s.respondError(w, r, entityError("Webhook", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTestWebhook sends a test payload to the webhook's URL. Delivery
// failures are reported in the body with status 200.
func (s *Server) handleTestWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	res, err := s.service.TestWebhook(r.Context(), id)
	if err != nil {
		s.respondError(w, r, entityError("Webhook", err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
