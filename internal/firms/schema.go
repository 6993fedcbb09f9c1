package firms

import (
	"sort"
	"strings"

	"github.com/KaramelBytes/geoagg-cli/internal/table"
	"github.com/KaramelBytes/geoagg-cli/internal/textkey"
)

// aliases lists the raw header spellings accepted for each required column.
// Source files mix Spanish and English names.
var aliases = map[Column][]string{
	ColDepartment:   {"departamento", "department", "dpto", "region"},
	ColProvince:     {"provincia", "province"},
	ColDistrict:     {"distrito", "district"},
	ColIndustryCode: {"ciiu", "industry_code", "industry code", "isic"},
	ColSector:       {"sector"},
	ColSales:        {"venta_prom", "average_sales", "avg_sales", "ventas_promedio"},
	ColWorkers:      {"trabajador", "trabajadores", "worker_count", "workers"},
	ColExperience:   {"experiencia", "experience_years", "experience"},
}

// Required is the declared column contract checked once per source table.
var Required = []Column{
	ColDepartment, ColProvince, ColDistrict, ColIndustryCode,
	ColSector, ColSales, ColWorkers, ColExperience,
}

// Schema maps canonical columns (and extras) to positions in a raw table.
type Schema struct {
	index map[Column]int
	extra map[string]int
}

// ResolveSchema matches header against the required columns and the
// requested extra columns. It returns the canonical names of missing columns
// alongside a partial schema when the contract is not met.
func ResolveSchema(header []string, extra []string) (Schema, []string) {
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = columnKey(h)
	}
	lookup := func(names ...string) int {
		for _, n := range names {
			want := columnKey(n)
			for i, k := range keys {
				if k == want {
					return i
				}
			}
		}
		return -1
	}
	s := Schema{index: map[Column]int{}, extra: map[string]int{}}
	var missing []string
	for _, c := range Required {
		idx := lookup(aliases[c]...)
		if idx < 0 {
			missing = append(missing, string(c))
			continue
		}
		s.index[c] = idx
	}
	for _, e := range extra {
		idx := lookup(e)
		if idx < 0 {
			missing = append(missing, e)
			continue
		}
		s.extra[e] = idx
	}
	return s, missing
}

// Columns returns the canonical column set carried by records built with s,
// sorted so that sets compare by value.
func (s Schema) Columns() []string {
	out := make([]string, 0, len(s.index)+len(s.extra)+1)
	for c := range s.index {
		out = append(out, string(c))
	}
	for e := range s.extra {
		out = append(out, e)
	}
	out = append(out, string(ColYear))
	sort.Strings(out)
	return out
}

func (s Schema) get(t *table.Table, row int, c Column) string {
	return t.Cell(row, s.index[c])
}

// columnKey folds accents, case and separators so "Año", "ANO" and "a_n o"
// style variations of a header compare equal.
func columnKey(h string) string {
	k := strings.ToLower(textkey.Normalize(strings.Trim(h, `"'`)))
	k = strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(k)
	return k
}

// ParseColumn resolves a user-supplied column name (canonical or any accepted
// header alias, plus "year"/"año") to its canonical Column.
func ParseColumn(s string) (Column, bool) {
	k := columnKey(s)
	for _, c := range Required {
		if k == columnKey(string(c)) {
			return c, true
		}
		for _, a := range aliases[c] {
			if k == columnKey(a) {
				return c, true
			}
		}
	}
	switch k {
	case "year", "ano", "anio":
		return ColYear, true
	}
	return "", false
}
