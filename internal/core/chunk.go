package core

import (
	"fmt"
	"strings"
)

// Column names recognised in an import file.
const (
	ColSKU         = "sku"
	ColName        = "name"
	ColDescription = "description"
	ColActive      = "active"
)

// RequiredColumns must appear in every import header.
var RequiredColumns = []string{ColSKU, ColName, ColDescription}

// ProductRow is one normalized CSV record ready for upsert.
type ProductRow struct {
	SKU         string
	Name        string
	Description string
	Active      bool
}

// Key is the identity used for dedup and conflict resolution.
func (r ProductRow) Key() string {
	return strings.ToLower(r.SKU)
}

// buildRow normalizes one record. ok is false for rows that must be dropped
// (empty sku or name after trimming).
func buildRow(idx HeaderIndex, record []string) (row ProductRow, ok bool, err error) {
	row.SKU = idx.Cell(record, ColSKU)
	row.Name = idx.Cell(record, ColName)
	if row.SKU == "" || row.Name == "" {
		return ProductRow{}, false, nil
	}
	row.Description = idx.Cell(record, ColDescription)

	row.Active, err = parseActive(idx.Cell(record, ColActive))
	if err != nil {
		return ProductRow{}, false, fmt.Errorf("sku %q: %w", row.SKU, err)
	}
	return row, true, nil
}

// parseActive accepts the usual boolean spellings. Empty means true.
func parseActive(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid active value %q", s)
	}
}

// dedupeChunk keeps the last occurrence of each lower-cased sku. Output
// order follows the position of each surviving row.
func dedupeChunk(rows []ProductRow) []ProductRow {
	if len(rows) < 2 {
		return rows
	}

	last := make(map[string]int, len(rows))
	for i, r := range rows {
		last[r.Key()] = i
	}
	if len(last) == len(rows) {
		return rows
	}

	out := make([]ProductRow, 0, len(last))
	for i, r := range rows {
		if last[r.Key()] == i {
			out = append(out, r)
		}
	}
	return out
}
