package core

// error_messages.go maps technical errors to user-facing messages with a
// support code. Users quote the code; support finds the technical error in
// the logs by request id.
//
// # Error Codes Reference
//
// Validation (VAL):
//
//	VAL001 - Required CSV columns are missing
//	VAL002 - SKU already exists (case-insensitive)
//	VAL003 - SKU cannot be changed
//	VAL004 - Invalid value in the active column
//	VAL005 - Invalid request field
//
// Files (FILE):
//
//	FILE001 - Not a .csv file
//	FILE002 - File exceeds the size limit
//	FILE003 - File could not be read as CSV
//
// Lookups (NF):
//
//	NF001 - Product, webhook or job not found
//
// Jobs (JOB):
//
//	JOB001 - Job already finished
//	JOB002 - Job queue unavailable
//
// Database (DB):
//
//	DB001 - Unique constraint violated
//	DB002 - Connection refused
//	DB003 - Connection reset
//	DB004 - Deadlock
//	DB005 - Timeout
//
// Webhooks (HOOK):
//
//	HOOK001 - Webhook endpoint unreachable
//
// Uploads (UPL):
//
//	UPL001 - Too many concurrent uploads
//	UPL002 - Request cancelled
//	UPL003 - Request timed out
//
// Rate limiting (RATE):
//
//	RATE001 - Too many requests
//
// ERR000 is the fallback for anything unrecognised.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage is a user-friendly error with a suggested action.
type UserMessage struct {
	Message string // What went wrong
	Action  string // What the user should do
	Code    string // Support reference
}

// errorRule matches either a sentinel (via errors.Is) or a lower-case
// substring of the error text.
type errorRule struct {
	target  error
	pattern string
	msg     UserMessage
}

var errorRules = []errorRule{
	// Validation
	{pattern: "missing required columns", msg: UserMessage{
		Message: "Required columns are missing from the CSV",
		Action:  "Make sure the header contains sku, name and description",
		Code:    "VAL001",
	}},
	{target: ErrDuplicateSKU, msg: UserMessage{
		Message: "SKU already exists",
		Action:  "Use a different SKU or update the existing product",
		Code:    "VAL002",
	}},
	{target: ErrSKUImmutable, msg: UserMessage{
		Message: "SKU cannot be changed",
		Action:  "Create a new product instead",
		Code:    "VAL003",
	}},
	{pattern: "invalid active value", msg: UserMessage{
		Message: "Invalid value in the active column",
		Action:  "Use true/false, yes/no or 1/0",
		Code:    "VAL004",
	}},

	// Files
	{target: ErrInvalidExtension, msg: UserMessage{
		Message: "Only CSV files are allowed",
		Action:  "Export the data as .csv and upload again",
		Code:    "FILE001",
	}},
	{target: ErrFileTooLarge, msg: UserMessage{
		Message: "File too large",
		Action:  "Split the file into smaller parts",
		Code:    "FILE002",
	}},
	{target: ErrUnreadableCSV, msg: UserMessage{
		Message: "File could not be read as CSV",
		Action:  "Ensure the file is comma-separated UTF-8 text",
		Code:    "FILE003",
	}},

	// Lookups and jobs
	{target: ErrNotFound, msg: UserMessage{
		Message: "The requested item was not found",
		Action:  "Check the id and try again",
		Code:    "NF001",
	}},
	{target: ErrTerminalState, msg: UserMessage{
		Message: "This import has already finished",
		Action:  "Start a new upload",
		Code:    "JOB001",
	}},
	{pattern: "enqueue job", msg: UserMessage{
		Message: "Import queue is unavailable",
		Action:  "Please try again in a few moments",
		Code:    "JOB002",
	}},

	// Uploads
	{target: ErrTooManyUploads, msg: UserMessage{
		Message: "System is busy processing other uploads",
		Action:  "Please wait a moment and try again",
		Code:    "UPL001",
	}},
	{target: context.Canceled, msg: UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL002",
	}},
	{target: context.DeadlineExceeded, msg: UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or check your connection",
		Code:    "UPL003",
	}},

	// Database
	{pattern: "duplicate key", msg: UserMessage{
		Message: "This value must be unique but already exists",
		Action:  "Check for duplicate entries",
		Code:    "DB001",
	}},
	{pattern: "unique constraint", msg: UserMessage{
		Message: "This value must be unique but already exists",
		Action:  "Check for duplicate entries",
		Code:    "DB001",
	}},
	{pattern: "connection refused", msg: UserMessage{
		Message: "Unable to reach a backing service",
		Action:  "Please try again in a few moments",
		Code:    "DB002",
	}},
	{pattern: "connection reset", msg: UserMessage{
		Message: "Connection was interrupted",
		Action:  "Please try again",
		Code:    "DB003",
	}},
	{pattern: "deadlock", msg: UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB004",
	}},
	{pattern: "timeout", msg: UserMessage{
		Message: "Operation timed out",
		Action:  "Please try again later",
		Code:    "DB005",
	}},

	// Webhooks
	{pattern: "no such host", msg: UserMessage{
		Message: "Webhook endpoint is unreachable",
		Action:  "Check the webhook URL",
		Code:    "HOOK001",
	}},

	// Rate limiting
	{pattern: "rate limit", msg: UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},

	// Generic field validation goes last so specific rules win.
	{target: errValidation, msg: UserMessage{
		Message: "Invalid input",
		Action:  "Correct the highlighted field and try again",
		Code:    "VAL005",
	}},
}

// errValidation matches any *ValidationError through ValidationError.Is.
var errValidation = errors.New("validation error")

// Is lets errors.Is(err, errValidation) match every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == errValidation
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Rules are checked in order; the first match wins.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, r := range errorRules {
		if r.target != nil && errors.Is(err, r.target) {
			return r.msg
		}
		if r.pattern != "" && strings.Contains(errStr, r.pattern) {
			return r.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
