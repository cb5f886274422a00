package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/AarnabDutta/Product-Importer-FullStack/internal/core"
	"github.com/AarnabDutta/Product-Importer-FullStack/internal/web/templates"
)

const serviceTitle = "Product Importer API"

// healthTimeout bounds the dependency probes of one health request.
const healthTimeout = 3 * time.Second

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	uploads := s.service.UploadStatus()
	if wantsJSON(r) || !acceptsHTML(r) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message": serviceTitle,
			"status":  "running",
			"uploads": uploads,
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	status := templates.UploadStatus{Active: uploads.Active, MaxConcurrent: uploads.MaxConcurrent}
	if err := templates.Banner(serviceTitle, "running", status).Render(r.Context(), w); err != nil {
		s.respondError(w, r, err)
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string             `json:"status"`
	Checks  map[string]string  `json:"checks,omitempty"`
	Uploads core.LimiterStatus `json:"uploads"`
}

// handleHealth probes every dependency. Any failing probe turns the whole
// response into 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Uploads: s.service.UploadStatus()}
	status := http.StatusOK
	if len(s.checks) > 0 {
		resp.Checks = make(map[string]string, len(s.checks))
	}
	for _, c := range s.checks {
		if err := c.Check(ctx); err != nil {
			resp.Checks[c.Name] = err.Error()
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.Name] = "ok"
	}
	writeJSON(w, status, resp)
}

func acceptsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
