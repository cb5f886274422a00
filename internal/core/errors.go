package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a product, webhook or job does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateSKU is returned when a create collides case-insensitively
	// with an existing product.
	ErrDuplicateSKU = errors.New("SKU already exists")

	// ErrSKUImmutable is returned when an update tries to change a sku.
	ErrSKUImmutable = errors.New("sku cannot be changed once set")

	// ErrInvalidExtension is returned for uploads not named *.csv.
	ErrInvalidExtension = errors.New("Only CSV files are allowed")

	// ErrFileTooLarge is returned when an upload exceeds the size cap.
	ErrFileTooLarge = errors.New("file too large")

	// ErrUnreadableCSV is returned when a file cannot be parsed as CSV at all.
	ErrUnreadableCSV = errors.New("error reading csv")

	// ErrQueueEmpty is returned by a dequeue that timed out without a job.
	ErrQueueEmpty = errors.New("job queue empty")

	// ErrTerminalState is returned when a write would move a job out of
	// SUCCESS or FAILURE.
	ErrTerminalState = errors.New("job already in terminal state")

	// ErrTooManyUploads is returned when all upload slots are occupied and the
	// wait timeout expires. Clients should retry after a short delay.
	ErrTooManyUploads = errors.New("too many concurrent uploads, please try again later")
)

// ValidationError reports bad client input. Handlers map it to 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is or wraps a client input problem.
func IsValidation(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	return errors.Is(err, ErrDuplicateSKU) ||
		errors.Is(err, ErrSKUImmutable) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrUnreadableCSV)
}

// missingColumnsError formats the header validation failure.
func missingColumnsError(missing []string) *ValidationError {
	return &ValidationError{Message: "Missing required columns: " + strings.Join(missing, ", ")}
}
