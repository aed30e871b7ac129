package transform

// lookupTables are the source tables whose full history is needed to join dimensions.
var lookupTables = []string{"address", "department", "staff", "counterparty"}

// Batch is one ingestion batch with the lookups as they stood once the batch arrived.
type Batch struct {
	ID      string
	Tables  map[string]*SourceTable
	Lookups map[string]*Lookup
}

func newLookups() map[string]*Lookup {
	retval := make(map[string]*Lookup, len(lookupTables))
	for _, t := range lookupTables {
		retval[t] = NewLookup()
	}
	return retval
}

// NewBatch returns a batch of tables and merges them into lookups.
// The caller owns lookups and supplies it again for the next batch.
func NewBatch(id string, tables map[string]*SourceTable, lookups map[string]*Lookup) *Batch {
	if lookups == nil {
		lookups = newLookups()
	}
	for name, l := range lookups {
		l.Merge(tables[name])
	}
	return &Batch{ID: id, Tables: tables, Lookups: lookups}
}

// Has returns true if any of the named tables arrived in the batch.
func (b *Batch) Has(names ...string) bool {
	for _, n := range names {
		if _, ok := b.Tables[n]; ok {
			return true
		}
	}
	return false
}

// table returns the named table of the batch, or nil if absent, after checking it has cols.
func (b *Batch) table(name string, cols ...string) (*SourceTable, error) {
	t, ok := b.Tables[name]
	if !ok {
		return nil, nil
	}
	if err := t.Require(cols...); err != nil {
		return nil, err
	}
	return t, nil
}

// lookup returns the record for key in the named lookup, or an empty record.
func (b *Batch) lookup(name string, key string) Record {
	if l, ok := b.Lookups[name]; ok {
		if r, ok := l.Get(key); ok {
			return r
		}
	}
	return Record{}
}

// changedRecords returns the records of primary that arrived in the batch followed by the latest
// records of primary whose foreignKey refers to a row of parent that arrived in the batch.
// It lets a dimension pick up changes made only to the table it joins to.
func (b *Batch) changedRecords(primary string, foreignKey string, parent string) []Record {
	seen := make(map[string]struct{})
	retval := make([]Record, 0)
	if t, ok := b.Tables[primary]; ok {
		key := t.KeyColumn()
		latest := make(map[string]int) // key -> index in retval
		for _, r := range t.Records {
			if i, ok := latest[r[key]]; ok {
				retval[i] = r
				continue
			}
			latest[r[key]] = len(retval)
			seen[r[key]] = struct{}{}
			retval = append(retval, r)
		}
	}
	p, ok := b.Tables[parent]
	if !ok {
		return retval
	}
	changed := make(map[string]struct{}, len(p.Records))
	for _, r := range p.Records {
		changed[r[p.KeyColumn()]] = struct{}{}
	}
	l, ok := b.Lookups[primary]
	if !ok {
		return retval
	}
	for _, r := range l.Records() {
		if _, ok := seen[r[l.keyColumn]]; ok {
			continue
		}
		if _, ok := changed[r[foreignKey]]; ok {
			retval = append(retval, r)
		}
	}
	return retval
}
