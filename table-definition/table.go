package tabledefinition

import (
	"fmt"
	"strings"

	"github.com/relloyd/totes/file"
)

// SchemaMismatchError is returned when a CSV header or warehouse table does not match its descriptor.
type SchemaMismatchError struct {
	Table    string
	Expected []string
	Got      []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch for table %q: expected columns [%v]; got [%v]",
		e.Table, strings.Join(e.Expected, ","), strings.Join(e.Got, ","))
}

// Table is a parsed batch file.
type Table struct {
	Descriptor *TableDescriptor
	Header     []string
	Rows       [][]string
}

// Key returns the key value of row.
func (t *Table) Key(row []string) string {
	return row[t.Descriptor.KeyOffset()]
}

// ParseCSV parses data and checks its header matches the descriptor columns exactly.
func ParseCSV(d *TableDescriptor, data []byte) (*Table, error) {
	header, rows, err := file.ReadCSV(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing CSV for table %q: %w", d.Name, err)
	}
	if !equalStrings(header, d.Columns) {
		return nil, &SchemaMismatchError{Table: d.Name, Expected: d.Columns, Got: header}
	}
	return &Table{Descriptor: d, Header: header, Rows: rows}, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
