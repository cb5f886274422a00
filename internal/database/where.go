package database

import (
	"fmt"
	"strings"
)

// whereBuilder accumulates AND-ed predicates with positional arguments.
type whereBuilder struct {
	clauses []string
	args    []any
}

// add appends a predicate. cond must contain a single %d verb, which is
// replaced by the argument's placeholder number.
func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(cond, len(w.args)))
}

// contains adds a case-insensitive substring match on column.
func (w *whereBuilder) contains(column, value string) {
	if value == "" {
		return
	}
	w.add(column+" ILIKE $%d", "%"+escapeLike(value)+"%")
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// next returns the placeholder number for the argument after the current ones.
func (w *whereBuilder) next() int {
	return len(w.args) + 1
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
