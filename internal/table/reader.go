package table

import (
	"errors"
	"fmt"
	"strings"
)

// Reader decodes one family of tabular files.
type Reader interface {
	CanRead(filename string) bool
	Read(path string, opt Options) (*Table, error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

// ErrUnsupported indicates no registered reader accepts the file.
var ErrUnsupported = errors.New("unsupported table format")

// ReadFile selects a reader based on filename and decodes the file.
func ReadFile(path string, opt Options) (*Table, error) {
	for _, r := range registry {
		if r.CanRead(path) {
			return r.Read(path, opt)
		}
	}
	return nil, fmt.Errorf("%s: %w", path, ErrUnsupported)
}

type csvReader struct{}

func (csvReader) CanRead(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv") ||
		strings.HasSuffix(name, ".txt") || strings.HasSuffix(name, ".psv")
}

func (csvReader) Read(path string, opt Options) (*Table, error) { return ReadCSVFile(path, opt) }

type xlsxReader struct{}

func (xlsxReader) CanRead(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

func (xlsxReader) Read(path string, opt Options) (*Table, error) { return ReadXLSX(path, opt) }

func init() {
	Register(csvReader{})
	Register(xlsxReader{})
}
