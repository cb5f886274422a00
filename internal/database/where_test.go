package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhereBuilder_Empty(t *testing.T) {
	var w whereBuilder
	w.contains("sku", "")
	assert.Equal(t, "", w.sql())
	assert.Empty(t, w.args)
	assert.Equal(t, 1, w.next())
}

func TestWhereBuilder_Combines(t *testing.T) {
	var w whereBuilder
	w.contains("sku", "ab")
	w.add("active = $%d", true)
	w.contains("name", "50%_off")

	assert.Equal(t, " WHERE sku ILIKE $1 AND active = $2 AND name ILIKE $3", w.sql())
	assert.Equal(t, []any{"%ab%", true, `%50\%\_off%`}, w.args)
	assert.Equal(t, 4, w.next())
}

func TestEscapeLike(t *testing.T) {
	tests := map[string]string{
		"plain":    "plain",
		`a\b`:      `a\\b`,
		"100%":     `100\%`,
		"snake_id": `snake\_id`,
	}
	for in, want := range tests {
		assert.Equal(t, want, escapeLike(in), in)
	}
}
