package core

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Field limits mirrored by the products and webhooks tables.
const (
	maxSKULength       = 100
	maxNameLength      = 255
	maxURLLength       = 500
	maxEventTypeLength = 100
)

// ValidateHeader checks that every required column is present.
// Column names are compared case-insensitively after cleaning.
func ValidateHeader(header []string) error {
	idx := MakeHeaderIndex(header)

	var missing []string
	for _, col := range RequiredColumns {
		if !idx.Has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return missingColumnsError(missing)
	}
	return nil
}

// ValidateFile reads only the header row of the file at path. A file that
// cannot be parsed at all yields ErrUnreadableCSV; a parsable header that
// lacks columns yields a *ValidationError.
func ValidateFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreadableCSV, err)
	}
	defer f.Close()

	return validateHeaderFrom(f)
}

func validateHeaderFrom(r io.Reader) error {
	header, err := NewCSVReader(r).Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: file is empty", ErrUnreadableCSV)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreadableCSV, err)
	}
	return ValidateHeader(header)
}

// HasCSVExtension reports whether name ends in .csv (any case).
func HasCSVExtension(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

// ValidateProductInput checks a create request and fills defaults.
func ValidateProductInput(in ProductInput) (ProductInput, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Name = strings.TrimSpace(in.Name)

	if in.SKU == "" {
		return in, NewValidationError("sku", "is required")
	}
	if len(in.SKU) > maxSKULength {
		return in, NewValidationError("sku", "must be at most %d characters", maxSKULength)
	}
	if in.Name == "" {
		return in, NewValidationError("name", "is required")
	}
	if len(in.Name) > maxNameLength {
		return in, NewValidationError("name", "must be at most %d characters", maxNameLength)
	}
	if in.Description == nil {
		empty := ""
		in.Description = &empty
	}
	if in.Active == nil {
		active := true
		in.Active = &active
	}
	return in, nil
}

// ValidateProductPatch checks an update against the stored product.
func ValidateProductPatch(current Product, p ProductPatch) (ProductPatch, error) {
	if p.SKU != nil && !strings.EqualFold(strings.TrimSpace(*p.SKU), current.SKU) {
		return p, ErrSKUImmutable
	}
	p.SKU = nil

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return p, NewValidationError("name", "must not be empty")
		}
		if len(name) > maxNameLength {
			return p, NewValidationError("name", "must be at most %d characters", maxNameLength)
		}
		p.Name = &name
	}
	return p, nil
}

// ValidateWebhookURL requires an absolute http(s) URL.
func ValidateWebhookURL(raw string) error {
	if raw == "" {
		return NewValidationError("url", "is required")
	}
	if len(raw) > maxURLLength {
		return NewValidationError("url", "must be at most %d characters", maxURLLength)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return NewValidationError("url", "must be an absolute http or https URL")
	}
	return nil
}

// ValidateEventType accepts any of KnownEvents.
func ValidateEventType(eventType string) error {
	if eventType == "" {
		return NewValidationError("event_type", "is required")
	}
	if len(eventType) > maxEventTypeLength || !slices.Contains(KnownEvents, eventType) {
		return NewValidationError("event_type", "must be one of: %s", strings.Join(KnownEvents, ", "))
	}
	return nil
}

// ValidateWebhookInput checks a create request and fills defaults.
func ValidateWebhookInput(in WebhookInput) (WebhookInput, error) {
	in.URL = strings.TrimSpace(in.URL)
	in.EventType = strings.TrimSpace(in.EventType)

	if err := ValidateWebhookURL(in.URL); err != nil {
		return in, err
	}
	if err := ValidateEventType(in.EventType); err != nil {
		return in, err
	}
	if in.Enabled == nil {
		enabled := true
		in.Enabled = &enabled
	}
	return in, nil
}

// ValidateWebhookPatch checks the fields present in a partial update.
func ValidateWebhookPatch(p WebhookPatch) (WebhookPatch, error) {
	if p.URL != nil {
		u := strings.TrimSpace(*p.URL)
		if err := ValidateWebhookURL(u); err != nil {
			return p, err
		}
		p.URL = &u
	}
	if p.EventType != nil {
		et := strings.TrimSpace(*p.EventType)
		if err := ValidateEventType(et); err != nil {
			return p, err
		}
		p.EventType = &et
	}
	return p, nil
}

// validatePaging requires 1 <= page <= MaxPage and 1 <= size <= MaxPageSize.
func validatePaging(page, size int) error {
	if page < 1 {
		return NewValidationError("page", "must be at least 1")
	}
	if page > MaxPage {
		return NewValidationError("page", "must be at most %d", MaxPage)
	}
	if size < 1 || size > MaxPageSize {
		return NewValidationError("size", "must be between 1 and %d", MaxPageSize)
	}
	return nil
}

// pageCount is ceil(total/size), or 1 for an empty result.
func pageCount(total int64, size int) int {
	if total <= 0 {
		return 1
	}
	return int((total + int64(size) - 1) / int64(size))
}
