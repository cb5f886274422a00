package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AarnabDutta/Product-Importer-FullStack/internal/core"
)

// multipartOverhead is headroom for boundaries and part headers on top of
// the file size limit.
const multipartOverhead = 1 << 20

// handleUpload streams the "file" part of a multipart form straight to the
// upload directory. The body is never buffered in memory.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		s.badRequest(w, r, "file", "expected a multipart form with a file field")
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			s.badRequest(w, r, "file", "is required")
			return
		}
		if err != nil {
			if err = s.uploadReadError(err); core.IsValidation(err) {
				s.respondError(w, r, err)
				return
			}
			s.badRequest(w, r, "file", "malformed multipart body")
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		receipt, err := s.service.ReceiveUpload(r.Context(), part.FileName(), part)
		part.Close()
		if err != nil {
			s.respondError(w, r, s.uploadReadError(err))
			return
		}
		writeJSON(w, http.StatusOK, receipt)
		return
	}
}

// uploadReadError reports a body cut off by the request size cap as an
// oversize file.
func (s *Server) uploadReadError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, s.cfg.Upload.MaxFileSize)
	}
	return err
}

// handleProgress streams job progress as server-sent events until the job
// reaches a terminal state or the client goes away.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	rc := http.NewResponseController(w)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		slog.Error("progress stream: flush unsupported", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.closing, cancel)
	defer stop()

	err := s.service.StreamProgress(ctx, taskID, func(ev core.ProgressEvent) error {
		data, err := json.Marshal(ev.Payload)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data); err != nil {
			return err
		}
		return rc.Flush()
	})
	if err != nil {
		slog.Warn("progress stream ended with error", "task_id", taskID, "error", err)
	}
}

// handleJobStatus returns the current snapshot for clients that poll.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.JobStatus(r.Context(), chi.URLParam(r, "task_id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
