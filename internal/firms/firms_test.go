package firms

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/geoagg-cli/internal/table"
)

const header = "departamento|provincia|distrito|ciiu|sector|venta_prom|trabajador|experiencia"

func mustTable(t *testing.T, lines ...string) *table.Table {
	t.Helper()
	tb, err := table.ReadCSV(strings.NewReader(strings.Join(lines, "\n")), "fixture.csv", table.Options{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	return tb
}

func TestIngestFiltersRegionAndStampsYear(t *testing.T) {
	tb := mustTable(t, header,
		"LIMA|LIMA|MIRAFLORES|1010|ALIMENTOS|100|10|5",
		"lima |HUARAL|HUARAL|1020|TEXTIL|300|20|7",
		"CALLAO|CALLAO|BELLAVISTA|1030|METAL|999|3|1",
	)
	frag, err := Ingest(tb, 2022, IngestOptions{Region: "Lima"})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(frag.Records) != 2 {
		t.Fatalf("records = %d, want 2 (region filter should normalize department)", len(frag.Records))
	}
	for _, r := range frag.Records {
		if r.Year != 2022 {
			t.Fatalf("record not stamped: %+v", r)
		}
	}
	if frag.Records[1].Province != "HUARAL" || frag.Records[1].WorkerCount != 20 || frag.Records[1].AverageSales != 300 {
		t.Fatalf("unexpected projection: %+v", frag.Records[1])
	}
	if frag.Rows != 3 {
		t.Fatalf("rows seen = %d", frag.Rows)
	}
}

func TestIngestEmptyRegionKeepsAll(t *testing.T) {
	tb := mustTable(t, header,
		"LIMA|LIMA|MIRAFLORES|1010|ALIMENTOS|100|10|5",
		"CALLAO|CALLAO|BELLAVISTA|1030|METAL|999|3|1",
	)
	frag, err := Ingest(tb, 2023, IngestOptions{})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(frag.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(frag.Records))
	}
}

func TestIngestSchemaError(t *testing.T) {
	tb := mustTable(t, "departamento|provincia|venta_prom", "LIMA|LIMA|100")
	_, err := Ingest(tb, 2024, IngestOptions{Region: "LIMA"})
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if se.Year != 2024 || se.Source != "fixture.csv" {
		t.Fatalf("missing context: %+v", se)
	}
	for _, want := range []string{"district", "industry_code", "sector", "worker_count", "experience_years"} {
		if !strings.Contains(se.Error(), want) {
			t.Fatalf("error %q does not name %s", se.Error(), want)
		}
	}
}

func TestIngestEnglishAliases(t *testing.T) {
	tb := mustTable(t,
		"Department,Province,District,Industry Code,Sector,Average_Sales,Worker_Count,Experience",
		"LIMA,LIMA,SURCO,1010,FOOD,\"1,500.5\",4,2.5",
	)
	frag, err := Ingest(tb, 2022, IngestOptions{Region: "LIMA"})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(frag.Records) != 1 || frag.Records[0].AverageSales != 1500.5 || frag.Records[0].ExperienceYears != 2.5 {
		t.Fatalf("unexpected records: %+v", frag.Records)
	}
}

func TestIngestSkipsInvalidRows(t *testing.T) {
	tb := mustTable(t, header,
		"LIMA|LIMA|MIRAFLORES|1010|ALIMENTOS|abc|10|5",
		"LIMA|LIMA|MIRAFLORES|1010|ALIMENTOS|100|-1|5",
		"LIMA|LIMA|MIRAFLORES|1010|ALIMENTOS|100|2.5|5",
		"LIMA|LIMA|MIRAFLORES|1010|ALIMENTOS|100|3|5",
		"LIMA|LIMA|MIRAFLORES|1010|ALIMENTOS|-250|3|5",
	)
	frag, err := Ingest(tb, 2022, IngestOptions{Region: "LIMA"})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(frag.Records) != 1 || frag.Skipped != 4 || len(frag.Warnings) != 4 {
		t.Fatalf("records=%d skipped=%d warnings=%v", len(frag.Records), frag.Skipped, frag.Warnings)
	}
	if !strings.HasPrefix(frag.Warnings[0], "row 2:") {
		t.Fatalf("warning should carry file line number: %q", frag.Warnings[0])
	}
}

func TestIngestFileReportsIngestionError(t *testing.T) {
	_, err := IngestFile(filepath.Join(t.TempDir(), "missing.csv"), 2023, IngestOptions{})
	var ie *IngestionError
	if !errors.As(err, &ie) {
		t.Fatalf("expected IngestionError, got %v", err)
	}
	if ie.Year != 2023 || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("unexpected error context: %v", err)
	}
}

func TestCombineKeepsAllRowsInOrder(t *testing.T) {
	a, err := Ingest(mustTable(t, header,
		"LIMA|LIMA|MIRAFLORES|1010|ALIMENTOS|100|10|5",
		"LIMA|LIMA|MIRAFLORES|1010|ALIMENTOS|100|10|5",
	), 2022, IngestOptions{Region: "LIMA"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Ingest(mustTable(t, header, "LIMA|HUARAL|HUARAL|1010|ALIMENTOS|500|1|1"), 2023, IngestOptions{Region: "LIMA"})
	if err != nil {
		t.Fatal(err)
	}
	ds, err := Combine(a, b)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	if ds.Len() != 3 {
		t.Fatalf("len = %d, want 3 (no dedupe)", ds.Len())
	}
	if ds.Records[2].Year != 2023 || ds.Records[0].Year != 2022 {
		t.Fatalf("order not preserved: %+v", ds.Records)
	}
	if got := ds.Years(); len(got) != 2 || got[0] != 2022 || got[1] != 2023 {
		t.Fatalf("Years = %v", got)
	}
	if got := ds.Units(ColProvince); len(got) != 2 || got[0] != "HUARAL" {
		t.Fatalf("Units = %v", got)
	}
}

func TestCombineSchemaMismatch(t *testing.T) {
	a, err := Ingest(mustTable(t, header+"|tamano", "LIMA|LIMA|X|1|S|1|1|1|GRANDE"), 2022, IngestOptions{Extra: []string{"tamano"}})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Ingest(mustTable(t, header, "LIMA|LIMA|X|1|S|1|1|1"), 2023, IngestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = Combine(a, b)
	var sm *SchemaMismatchError
	if !errors.As(err, &sm) || sm.Year != 2023 {
		t.Fatalf("expected SchemaMismatchError for 2023, got %v", err)
	}
	if a.Records[0].Extra["tamano"] != "GRANDE" {
		t.Fatalf("extra column not carried: %+v", a.Records[0])
	}
}

func TestCombineEmpty(t *testing.T) {
	ds, err := Combine()
	if err != nil || ds.Len() != 0 {
		t.Fatalf("empty combine: %v %v", ds, err)
	}
}

func TestParseColumn(t *testing.T) {
	cases := map[string]Column{
		"venta_prom":    ColSales,
		"Average Sales": ColSales,
		"PROVINCIA":     ColProvince,
		"Año":           ColYear,
		"experiencia":   ColExperience,
	}
	for in, want := range cases {
		got, ok := ParseColumn(in)
		if !ok || got != want {
			t.Errorf("ParseColumn(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseColumn("color"); ok {
		t.Errorf("unexpected match for unknown column")
	}
}
