package excel

import "strings"

// RawRowData represents a row of raw sheet data keyed by header
type RawRowData map[string]string

// Table is a header row plus string rows, as read from CSV or XLSX
type Table struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}

// FindColumn returns the first header matching any alias, comparing
// case-insensitively and treating spaces, dashes and underscores alike
func (t *Table) FindColumn(aliases []string) (string, bool) {
	for _, alias := range aliases {
		want := normalizeHeader(alias)
		for _, h := range t.Headers {
			if normalizeHeader(h) == want {
				return h, true
			}
		}
	}
	return "", false
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(h)
}
