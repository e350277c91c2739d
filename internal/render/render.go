// Package render substitutes $$COLUMN$$ placeholders in message templates.
package render

import (
	"regexp"
	"strings"
)

var placeholder = regexp.MustCompile(`\$\$([A-Z]+)\$\$`)

// Row gives access to the textual value of a cell by column reference ("A", "C", "AB").
type Row interface {
	Cell(column string) string
}

// MapRow is a Row backed by a map of column reference to text.
type MapRow map[string]string

func (r MapRow) Cell(column string) string { return r[column] }

// Render replaces each $$COLUMN$$ with the trimmed cell text, or "" when the
// cell is absent. Substituted values are never re-scanned.
func Render(template string, row Row) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		if row == nil {
			return ""
		}
		column := m[2 : len(m)-2]
		return strings.TrimSpace(row.Cell(column))
	})
}

// Placeholders lists the distinct columns referenced by template, in order of first use.
func Placeholders(template string) []string {
	var cols []string
	seen := map[string]bool{}
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			cols = append(cols, m[1])
		}
	}
	return cols
}
