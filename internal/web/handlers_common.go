package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/AarnabDutta/Product-Importer-FullStack/internal/core"
)

// maxJSONBody caps product and webhook request bodies.
const maxJSONBody = 1 << 20

// queryInt parses an optional integer query parameter. A malformed value is
// an error rather than a silent default.
func queryInt(r *http.Request, name string, defaultVal int) (int, error) {
	val := strings.TrimSpace(r.URL.Query().Get(name))
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, core.NewValidationError(name, "must be an integer")
	}
	return i, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string) (*bool, error) {
	val := strings.TrimSpace(r.URL.Query().Get(name))
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, core.NewValidationError(name, "must be true or false")
	}
	return &b, nil
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, core.NewValidationError("id", "must be a positive integer")
	}
	return id, nil
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			return core.NewValidationError("body", "must not exceed %d bytes", mbe.Limit)
		case errors.Is(err, io.EOF):
			return core.NewValidationError("body", "is required")
		default:
			return core.NewValidationError("body", "invalid JSON: %v", err)
		}
	}
	return nil
}

// entityError names the missing entity in not-found errors.
func entityError(entity string, err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("%s %w", entity, core.ErrNotFound)
	}
	return err
}
