package repository

import (
	"fmt"
	"strings"

	"github.com/noah-isme/langschool-api/internal/models"
)

// whereBuilder accumulates positional Postgres conditions.
type whereBuilder struct {
	conditions []string
	args       []interface{}
}

// add appends a condition whose single placeholder is written as %d.
func (w *whereBuilder) add(format string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conditions = append(w.conditions, fmt.Sprintf(format, len(w.args)))
}

// search matches the lowercased term against every column.
func (w *whereBuilder) search(term string, columns ...string) {
	w.args = append(w.args, "%"+strings.ToLower(term)+"%")
	idx := len(w.args)
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("LOWER(COALESCE(%s, '')) LIKE $%d", col, idx)
	}
	w.conditions = append(w.conditions, "("+strings.Join(parts, " OR ")+")")
}

func (w *whereBuilder) clause() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " AND " + strings.Join(w.conditions, " AND ")
}

// orderAndPage renders ORDER BY/LIMIT/OFFSET from allow-listed sort columns.
func orderAndPage(sortBy, sortOrder string, allowed map[string]string, fallback string, page, size int) string {
	column, ok := allowed[sortBy]
	if !ok {
		column = fallback
	}
	order := strings.ToUpper(sortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page, size = models.Page(page, size)
	return fmt.Sprintf(" ORDER BY %s %s LIMIT %d OFFSET %d", column, order, size, (page-1)*size)
}
