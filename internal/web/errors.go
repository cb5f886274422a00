package web

// errors.go turns handler errors into responses.
//
// Every error is logged with the request id and mapped through
// core.MapError to a support code. Validation failures echo their reason to
// the client. Anything else gets the generic message for its code so
// internals never leak.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/AarnabDutta/Product-Importer-FullStack/internal/core"
	"github.com/AarnabDutta/Product-Importer-FullStack/internal/web/templates"
)

// ErrorResponse is the JSON body of every API error. Detail repeats the
// reason under the key older clients read.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Detail  string `json:"detail"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	switch {
	case core.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTerminalState):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes a client-safe response in the format the
// request asked for.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	// Refused uploads and unknown ids are the client's problem, not ours.
	level := slog.LevelError
	if core.IsUploadRejected(err) || errors.Is(err, core.ErrNotFound) {
		level = slog.LevelWarn
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	reason := userMsg.Message
	echo := core.IsValidation(err) || errors.Is(err, core.ErrNotFound)
	if echo {
		reason = err.Error()
	}

	switch {
	case isHTMX(r):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if err := templates.ErrorAlert(reason, userMsg.Action, userMsg.Code).Render(r.Context(), w); err != nil {
			slog.Error("render error partial", "error", err)
		}
	case wantsJSON(r):
		writeJSON(w, status, ErrorResponse{
			Error:   reason,
			Message: userMsg.Message,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
			Detail:  reason,
		})
	case echo:
		http.Error(w, reason+" (Code: "+userMsg.Code+")", status)
	default:
		http.Error(w, core.FormatUserError(err), status)
	}
}

// badRequest reports a malformed request field.
func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, field, message string) {
	s.respondError(w, r, core.NewValidationError(field, "%s", message))
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON is true for API routes and clients that ask for JSON.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json")
}
