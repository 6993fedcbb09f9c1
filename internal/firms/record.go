// Package firms turns raw per-year tables into typed firm records and combines
// them into one multi-year dataset.
package firms

import (
	"sort"
	"strconv"
)

// Column is a canonical column of the firm schema.
type Column string

const (
	ColDepartment   Column = "department"
	ColProvince     Column = "province"
	ColDistrict     Column = "district"
	ColIndustryCode Column = "industry_code"
	ColSector       Column = "sector"
	ColSales        Column = "average_sales"
	ColWorkers      Column = "worker_count"
	ColExperience   Column = "experience_years"
	ColYear         Column = "year"
)

// FirmRecord is one manufacturing firm observation for one year.
type FirmRecord struct {
	Department      string
	Province        string
	District        string
	IndustryCode    string
	Sector          string
	AverageSales    float64
	WorkerCount     int
	ExperienceYears float64
	Year            int
	// Extra holds configured pass-through columns by their raw header name.
	Extra map[string]string
}

// Metric returns the numeric value of a metric column.
func (r FirmRecord) Metric(c Column) (float64, bool) {
	switch c {
	case ColSales:
		return r.AverageSales, true
	case ColWorkers:
		return float64(r.WorkerCount), true
	case ColExperience:
		return r.ExperienceYears, true
	}
	return 0, false
}

// Text returns the string value of a dimension column. Year is rendered in
// decimal; extra columns are looked up by raw name.
func (r FirmRecord) Text(c Column) (string, bool) {
	switch c {
	case ColDepartment:
		return r.Department, true
	case ColProvince:
		return r.Province, true
	case ColDistrict:
		return r.District, true
	case ColIndustryCode:
		return r.IndustryCode, true
	case ColSector:
		return r.Sector, true
	case ColYear:
		return strconv.Itoa(r.Year), true
	}
	if v, ok := r.Extra[string(c)]; ok {
		return v, true
	}
	return "", false
}

// IsMetric reports whether c is one of the numeric columns.
func IsMetric(c Column) bool {
	return c == ColSales || c == ColWorkers || c == ColExperience
}

// Dataset is the union of all ingested years. Records are not mutated after
// Combine; filtered views copy the slice header only.
type Dataset struct {
	Columns []string
	Records []FirmRecord
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Years returns the distinct years present, ascending.
func (d *Dataset) Years() []int {
	if d == nil {
		return nil
	}
	seen := map[int]struct{}{}
	for _, r := range d.Records {
		seen[r.Year] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for y := range seen {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}

// Units returns the distinct raw values of a dimension column, sorted.
func (d *Dataset) Units(c Column) []string {
	if d == nil {
		return nil
	}
	seen := map[string]struct{}{}
	for _, r := range d.Records {
		if v, ok := r.Text(c); ok {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Where returns a dataset holding the records for which keep returns true.
func (d *Dataset) Where(keep func(FirmRecord) bool) *Dataset {
	out := &Dataset{Columns: d.Columns}
	for _, r := range d.Records {
		if keep(r) {
			out.Records = append(out.Records, r)
		}
	}
	return out
}
