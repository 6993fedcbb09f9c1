// Package table reads raw delimited and spreadsheet files into an in-memory
// Table of string cells. It knows nothing about the firm schema; that contract
// lives in the firms package.
package table

import (
	"strings"
)

// Table is a raw rectangular dataset: one header row plus data rows.
// Rows shorter than the header are padded when read.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Options controls how files are decoded.
type Options struct {
	// Delimiter for CSV. If 0, sniffed from the header line among '|', ',', ';', '\t'.
	Delimiter rune
	// Sheet selects an XLSX sheet by name; empty means the first sheet.
	Sheet string
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
}

// Index returns the position of the named column, comparing case- and
// space-insensitively, or -1 when absent.
func (t *Table) Index(col string) int {
	want := headerKey(col)
	for i, h := range t.Header {
		if headerKey(h) == want {
			return i
		}
	}
	return -1
}

// Cell returns the trimmed value at row r, column c; out-of-range is "".
func (t *Table) Cell(r, c int) string {
	if r < 0 || r >= len(t.Rows) || c < 0 || c >= len(t.Rows[r]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[r][c])
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

func headerKey(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), "_")
	return s
}

// pad copies rec into a slice of at least n cells.
func pad(rec []string, n int) []string {
	out := make([]string, max(n, len(rec)))
	copy(out, rec)
	return out
}
