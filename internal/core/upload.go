package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/AarnabDutta/Product-Importer-FullStack/internal/logging"
)

// UploadAccepted is the message returned for an admitted upload.
const UploadAccepted = "File uploaded successfully. Processing started."

// UploadReceipt identifies an admitted upload.
type UploadReceipt struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

// ReceiveUpload stores body under the upload directory, validates its
// header, records the job as PENDING and enqueues it. It returns as soon as
// the job is queued. Rejected files are removed before returning.
func (s *Service) ReceiveUpload(ctx context.Context, fileName string, body io.Reader) (UploadReceipt, error) {
	if !HasCSVExtension(fileName) {
		return UploadReceipt{}, ErrInvalidExtension
	}

	if err := s.uploads.Acquire(ctx); err != nil {
		return UploadReceipt{}, err
	}
	defer s.uploads.Release()

	jobID := uuid.NewString()
	log := logging.WithFields(logging.WithJob(ctx, jobID), "file", fileName)

	path, err := s.storeUpload(jobID, fileName, body)
	if err != nil {
		return UploadReceipt{}, err
	}

	if err := ValidateFile(path); err != nil {
		removeSource(ctx, path)
		return UploadReceipt{}, err
	}

	if err := s.status.Set(ctx, PendingSnapshot(jobID)); err != nil {
		removeSource(ctx, path)
		return UploadReceipt{}, fmt.Errorf("record pending job: %w", err)
	}

	job := Job{
		ID:         jobID,
		FilePath:   path,
		FileName:   fileName,
		ChunkSize:  s.cfg.ChunkSize,
		ClientIP:   ClientIPFromContext(ctx),
		EnqueuedAt: s.now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		removeSource(ctx, path)
		return UploadReceipt{}, fmt.Errorf("enqueue job: %w", err)
	}

	log.Info("upload accepted", "path", path)
	return UploadReceipt{TaskID: jobID, Message: UploadAccepted}, nil
}

// storeUpload copies body to <dir>/<jobID>_<name>, enforcing the size cap.
func (s *Service) storeUpload(jobID, fileName string, body io.Reader) (string, error) {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(s.cfg.UploadDir, jobID+"_"+safeFileName(fileName))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	var src io.Reader = body
	if s.cfg.MaxFileSize > 0 {
		src = io.LimitReader(body, s.cfg.MaxFileSize+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload: %w", copyErr)
	case closeErr != nil:
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload: %w", closeErr)
	case s.cfg.MaxFileSize > 0 && n > s.cfg.MaxFileSize:
		_ = os.Remove(path)
		return "", fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.cfg.MaxFileSize)
	}
	return path, nil
}

// safeFileName strips any directory part a client may have sent.
func safeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload.csv"
	}
	return name
}

// IsUploadRejected reports whether err means the upload itself was refused
// rather than the service failing.
func IsUploadRejected(err error) bool {
	return IsValidation(err) || errors.Is(err, ErrTooManyUploads)
}
