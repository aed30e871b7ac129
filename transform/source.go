package transform

import (
	"fmt"

	om "github.com/cevaris/ordered_map"
	"github.com/relloyd/totes/file"
	tabledefinition "github.com/relloyd/totes/table-definition"
)

// Record is one row keyed by column name.
type Record map[string]string

// SourceTable is an ingestion CSV file.
type SourceTable struct {
	Name    string
	Header  []string
	Records []Record
}

// NewSourceTable parses data. The first column is taken to be the table's key.
func NewSourceTable(name string, data []byte) (*SourceTable, error) {
	header, rows, err := file.ReadCSV(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing source table %q: %w", name, err)
	}
	t := &SourceTable{Name: name, Header: header, Records: make([]Record, len(rows))}
	idx := file.IndexHeader(header)
	for i, row := range rows {
		r := make(Record, len(header))
		for col, pos := range idx {
			r[col] = row[pos]
		}
		t.Records[i] = r
	}
	return t, nil
}

// KeyColumn returns the name of the first column.
func (t *SourceTable) KeyColumn() string {
	if len(t.Header) == 0 {
		return ""
	}
	return t.Header[0]
}

// Require returns *SchemaMismatchError if any of cols is missing from the header.
func (t *SourceTable) Require(cols ...string) error {
	have := file.IndexHeader(t.Header)
	for _, c := range cols {
		if _, ok := have[c]; !ok {
			return &tabledefinition.SchemaMismatchError{Table: t.Name, Expected: cols, Got: t.Header}
		}
	}
	return nil
}

// Lookup holds the latest version of each row of a source table across batches.
type Lookup struct {
	keyColumn string
	rows      *om.OrderedMap // key = key column value; value = Record
}

func NewLookup() *Lookup {
	return &Lookup{rows: om.NewOrderedMap()}
}

// Merge adds the records of t, replacing any earlier record with the same key.
func (l *Lookup) Merge(t *SourceTable) {
	if t == nil {
		return
	}
	if l.keyColumn == "" {
		l.keyColumn = t.KeyColumn()
	}
	for _, r := range t.Records {
		l.rows.Set(r[l.keyColumn], r)
	}
}

func (l *Lookup) Get(key string) (Record, bool) {
	v, ok := l.rows.Get(key)
	if !ok {
		return nil, false
	}
	return v.(Record), true
}

// Records returns every record in first-seen key order.
func (l *Lookup) Records() []Record {
	retval := make([]Record, 0, l.rows.Len())
	iter := l.rows.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		retval = append(retval, kv.Value.(Record))
	}
	return retval
}

func (l *Lookup) Len() int {
	return l.rows.Len()
}
