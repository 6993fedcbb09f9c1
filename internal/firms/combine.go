package firms

import "slices"

// Combine concatenates fragments into one dataset, preserving fragment order
// and row order within each fragment. Rows are never deduplicated. All
// fragments must carry the same column set.
func Combine(frags ...*Fragment) (*Dataset, error) {
	ds := &Dataset{}
	var want []string
	total := 0
	for _, f := range frags {
		if f == nil {
			continue
		}
		if want == nil {
			want = f.Columns
			ds.Columns = slices.Clone(f.Columns)
		} else if !slices.Equal(want, f.Columns) {
			return nil, &SchemaMismatchError{Year: f.Year, Want: want, Got: f.Columns}
		}
		total += len(f.Records)
	}
	ds.Records = make([]FirmRecord, 0, total)
	for _, f := range frags {
		if f == nil {
			continue
		}
		ds.Records = append(ds.Records, f.Records...)
	}
	return ds, nil
}
