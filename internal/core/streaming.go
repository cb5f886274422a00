package core

// streaming.go provides the constant-memory CSV readers used by both the
// header validator and the import executor.
//
// Spreadsheet exports commonly start with a UTF-8 BOM and occasionally carry
// stray Latin-1 bytes. NewCSVReader strips the BOM and replaces invalid UTF-8
// with U+FFFD while streaming, so neither pass ever loads the whole file.

import (
	"encoding/csv"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// SanitizeReader wraps r so that a leading BOM is dropped and invalid UTF-8
// sequences are replaced.
func SanitizeReader(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
}

// NewCSVReader returns a csv.Reader over a sanitized stream. Ragged rows are
// tolerated; missing trailing cells read as empty.
func NewCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(SanitizeReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return cr
}

// HeaderIndex maps lower-cased column names to their position.
type HeaderIndex map[string]int

// MakeHeaderIndex builds a HeaderIndex from a header row.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// Cell returns the trimmed value of column name in record, or "" when the
// column is absent or the row is short.
func (h HeaderIndex) Cell(record []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// Has reports whether the header contains name.
func (h HeaderIndex) Has(name string) bool {
	_, ok := h[name]
	return ok
}

// CleanCell removes common spreadsheet artifacts from a header cell:
// surrounding whitespace, an Excel formula wrapper (="...") and quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}
