package firms

import (
	"fmt"
	"strings"
)

// SchemaError reports required columns absent from a source table.
type SchemaError struct {
	Source  string
	Year    int
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error in %s (year %d): missing columns %s",
		e.Source, e.Year, strings.Join(e.Missing, ", "))
}

// IngestionError reports a source that could not be read or decoded. It is
// scoped to one year; callers may continue with the remaining years.
type IngestionError struct {
	Source string
	Year   int
	Err    error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingest %s (year %d): %v", e.Source, e.Year, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// SchemaMismatchError reports fragments whose column sets differ.
type SchemaMismatchError struct {
	Year int
	Want []string
	Got  []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch for year %d: want columns [%s], got [%s]",
		e.Year, strings.Join(e.Want, ", "), strings.Join(e.Got, ", "))
}
