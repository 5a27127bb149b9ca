package table

import (
	"fmt"
	"strings"
)

// Markdown renders up to maxRows rows (all when maxRows <= 0) as a Markdown table.
func (t *Table) Markdown(maxRows int) string {
	var b strings.Builder
	b.WriteString("| ")
	for i, c := range t.columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(safeName(c))
	}
	b.WriteString(" |\n|")
	for range t.columns {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	n := len(t.rows)
	if maxRows > 0 && maxRows < n {
		n = maxRows
	}
	for _, row := range t.rows[:n] {
		b.WriteString("| ")
		for i, v := range row {
			if i > 0 {
				b.WriteString(" | ")
			}
			val := v.String()
			if len(val) > 80 {
				val = val[:77] + "..."
			}
			b.WriteString(safeVal(val))
		}
		b.WriteString(" |\n")
	}
	if n < len(t.rows) {
		b.WriteString(fmt.Sprintf("\n(%d of %d rows shown)\n", n, len(t.rows)))
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
