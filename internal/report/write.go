package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/xuri/excelize/v2"
)

// Markdown renders sheets as bracketed sections with pipe tables.
func Markdown(sheets ...*Sheet) string {
	var b strings.Builder
	for i, s := range sheets {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("[%s]\n", strings.ToUpper(s.Name)))
		if len(s.Rows) == 0 {
			b.WriteString("(no rows)\n")
		} else {
			b.WriteString("| " + strings.Join(escapeAll(s.Header), " | ") + " |\n")
			b.WriteString("|" + strings.Repeat(" --- |", len(s.Header)) + "\n")
			for _, r := range s.Rows {
				cells := make([]string, len(r))
				for j, v := range r {
					cells[j] = escape(s.Text(v))
				}
				b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
			}
		}
		for _, n := range s.Notes {
			b.WriteString("- " + n + "\n")
		}
	}
	return b.String()
}

func escape(s string) string { return strings.ReplaceAll(s, "|", "\\|") }

func escapeAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = escape(s)
	}
	return out
}

// WriteTable prints sheets as boxed terminal tables.
func WriteTable(w io.Writer, sheets ...*Sheet) error {
	for i, s := range sheets {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s\n", s.Name); err != nil {
			return err
		}
		t := tablewriter.NewWriter(w)
		t.SetHeader(s.Header)
		t.SetAutoFormatHeaders(false)
		t.SetAlignment(tablewriter.ALIGN_RIGHT)
		for _, r := range s.Rows {
			cells := make([]string, len(r))
			for j, v := range r {
				cells[j] = s.Text(v)
			}
			t.Append(cells)
		}
		t.Render()
		for _, n := range s.Notes {
			if _, err := fmt.Fprintf(w, "  %s\n", n); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteXLSX saves each sheet as a worksheet of a new workbook. Numbers are
// written as numbers; missing cells stay empty.
func WriteXLSX(path string, sheets ...*Sheet) error {
	f := excelize.NewFile()
	defer f.Close()
	used := map[string]int{}
	for i, s := range sheets {
		name := sheetName(s.Name, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}
		header := make([]any, len(s.Header))
		for j, h := range s.Header {
			header[j] = h
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return err
		}
		for r, row := range s.Rows {
			cells := make([]any, len(row))
			for j, v := range row {
				if x, ok := v.(float64); ok && math.IsNaN(x) {
					v = nil
				}
				cells[j] = v
			}
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(name, cell, &cells); err != nil {
				return err
			}
		}
		for n, note := range s.Notes {
			cell, err := excelize.CoordinatesToCellName(1, len(s.Rows)+3+n)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(name, cell, note); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}

// sheetName makes a valid, unique worksheet name (max 31 chars, no []:*?/\).
func sheetName(s string, used map[string]int) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, s)
	if s == "" {
		s = "Sheet"
	}
	if len([]rune(s)) > 28 {
		s = string([]rune(s)[:28])
	}
	used[s]++
	if used[s] > 1 {
		s = fmt.Sprintf("%s_%d", s, used[s])
	}
	return s
}
