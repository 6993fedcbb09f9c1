package firms

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/KaramelBytes/geoagg-cli/internal/table"
	"github.com/KaramelBytes/geoagg-cli/internal/textkey"
)

// IngestOptions controls per-year ingestion.
type IngestOptions struct {
	// Region keeps rows whose department normalizes to the same key.
	// Empty keeps every row.
	Region string
	// Extra raw columns carried into FirmRecord.Extra. They become part of the
	// fragment's column set and must be present in every year.
	Extra []string
	// Table controls numeric parsing.
	Table table.Options
}

// Fragment is the typed output of ingesting one year's table.
type Fragment struct {
	Source   string
	Year     int
	Columns  []string
	Records  []FirmRecord
	Rows     int // raw rows seen
	Skipped  int
	Warnings []string
}

const maxRowWarnings = 10

// Ingest validates the column contract of raw, keeps rows of the target
// region, projects them to FirmRecord and stamps each with year.
func Ingest(raw *table.Table, year int, opt IngestOptions) (*Fragment, error) {
	if raw == nil {
		return nil, &IngestionError{Year: year, Err: fmt.Errorf("nil table")}
	}
	schema, missing := ResolveSchema(raw.Header, opt.Extra)
	if len(missing) > 0 {
		return nil, &SchemaError{Source: raw.Name, Year: year, Missing: missing}
	}
	region := textkey.Normalize(opt.Region)
	frag := &Fragment{Source: raw.Name, Year: year, Columns: schema.Columns(), Rows: raw.Len()}

	for i := range raw.Rows {
		dept := schema.get(raw, i, ColDepartment)
		if region != "" && textkey.Normalize(dept) != region {
			continue
		}
		rec, err := buildRecord(raw, schema, i, opt.Table)
		if err != nil {
			frag.Skipped++
			if len(frag.Warnings) < maxRowWarnings {
				frag.Warnings = append(frag.Warnings, fmt.Sprintf("row %d: %v", i+2, err))
			}
			continue
		}
		rec.Department = dept
		rec.Year = year
		frag.Records = append(frag.Records, rec)
	}
	if frag.Skipped > maxRowWarnings {
		frag.Warnings = append(frag.Warnings, fmt.Sprintf("%d more rows skipped", frag.Skipped-maxRowWarnings))
	}
	return frag, nil
}

// IngestFile reads path with the table registry and ingests it. Read failures
// are returned as *IngestionError; contract violations as *SchemaError.
func IngestFile(path string, year int, opt IngestOptions) (*Fragment, error) {
	raw, err := table.ReadFile(path, opt.Table)
	if err != nil {
		return nil, &IngestionError{Source: filepath.Base(path), Year: year, Err: err}
	}
	return Ingest(raw, year, opt)
}

func buildRecord(raw *table.Table, s Schema, row int, topt table.Options) (FirmRecord, error) {
	rec := FirmRecord{
		Province:     s.get(raw, row, ColProvince),
		District:     s.get(raw, row, ColDistrict),
		IndustryCode: s.get(raw, row, ColIndustryCode),
		Sector:       s.get(raw, row, ColSector),
	}
	sales, ok := table.ParseNumber(s.get(raw, row, ColSales), topt)
	if !ok || sales < 0 || math.IsNaN(sales) || math.IsInf(sales, 0) {
		return rec, fmt.Errorf("invalid %s %q", ColSales, s.get(raw, row, ColSales))
	}
	workers, ok := table.ParseNumber(s.get(raw, row, ColWorkers), topt)
	if !ok || workers < 0 || workers != math.Trunc(workers) {
		return rec, fmt.Errorf("invalid %s %q", ColWorkers, s.get(raw, row, ColWorkers))
	}
	exp, ok := table.ParseNumber(s.get(raw, row, ColExperience), topt)
	if !ok || exp < 0 || math.IsNaN(exp) {
		return rec, fmt.Errorf("invalid %s %q", ColExperience, s.get(raw, row, ColExperience))
	}
	rec.AverageSales = sales
	rec.WorkerCount = int(workers)
	rec.ExperienceYears = exp
	if len(s.extra) > 0 {
		rec.Extra = make(map[string]string, len(s.extra))
		for name, idx := range s.extra {
			rec.Extra[name] = raw.Cell(row, idx)
		}
	}
	return rec, nil
}
