package repository

import (
	"fmt"
	"strings"

	"github.com/noah-isme/drivingschool-api/internal/models"
)

// whereBuilder accumulates positional filter conditions.
type whereBuilder struct {
	conditions []string
	args       []interface{}
}

// add appends a condition; expr receives the placeholder index via %d or %[1]d.
func (w *whereBuilder) add(expr string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conditions = append(w.conditions, fmt.Sprintf(expr, len(w.args)))
}

func (w *whereBuilder) clause() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

// orderBy resolves a whitelisted sort column; unknown keys fall back to fallback.
func orderBy(opts models.ListOptions, allowed map[string]string, fallback string) string {
	column, ok := allowed[opts.SortBy]
	if !ok {
		column = allowed[fallback]
	}
	order := strings.ToUpper(opts.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	return column + " " + order
}

func pageClause(opts models.ListOptions) string {
	n := opts.Normalize()
	return fmt.Sprintf(" LIMIT %d OFFSET %d", n.Limit, n.Offset)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a contains match. Backslash is the default LIKE escape
// character in PostgreSQL, so typed wildcards match literally.
func likePattern(search string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(search))) + "%"
}
