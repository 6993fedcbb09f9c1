package table

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX loads one sheet of a workbook. The first non-empty row is the header.
func ReadXLSX(path string, opt Options) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx %s has no sheets", filepath.Base(path))
	}
	sheet := sheets[0]
	if opt.Sheet != "" {
		found := false
		for _, s := range sheets {
			if strings.EqualFold(s, opt.Sheet) {
				sheet, found = s, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("sheet %q not found (have %s)", opt.Sheet, strings.Join(sheets, ", "))
		}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	t := &Table{Name: filepath.Base(path)}
	for _, r := range rows {
		if t.Header == nil {
			if isBlank(r) {
				continue
			}
			t.Header = make([]string, len(r))
			for i, h := range r {
				t.Header[i] = strings.TrimSpace(h)
			}
			continue
		}
		if isBlank(r) {
			continue
		}
		t.Rows = append(t.Rows, pad(r, len(t.Header)))
	}
	return t, nil
}

func isBlank(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
