package load

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	om "github.com/cevaris/ordered_map"
	"github.com/lib/pq"
	"github.com/relloyd/totes/helper"
	"github.com/relloyd/totes/logger"
	"github.com/relloyd/totes/rdbms/shared"
)

var (
	reSelectCount = regexp.MustCompile(`^SELECT COUNT\(\*\) FROM "(\w+)"$`)
	reSelect      = regexp.MustCompile(`^SELECT (.+) FROM "(\w+)"$`)
	reInsert      = regexp.MustCompile(`^insert into "(\w+)" \(([^)]+)\) values `)
	reUpdate      = regexp.MustCompile(`^update "(\w+)" set (.+) where (.+)$`)
)

// fakeWarehouse is an in-memory warehouse behind a shared.MockConnection.
// It understands the statements generated by the loader and keeps rows keyed by their first bound column.
type fakeWarehouse struct {
	*shared.MockConnection
	mu      sync.Mutex
	tables  map[string]*om.OrderedMap // table -> key -> map[column]string
	inserts int
	updates int
	failOn  string // statements containing this text fail.
	dropped string // queries of this table fail as if it did not exist.
}

func newFakeWarehouse(log logger.Logger) *fakeWarehouse {
	w := &fakeWarehouse{MockConnection: shared.NewMockConnection(log), tables: make(map[string]*om.OrderedMap)}
	w.QueryHandler = w.query
	w.ExecHandler = w.exec
	return w
}

func (w *fakeWarehouse) table(name string) *om.OrderedMap {
	t, ok := w.tables[name]
	if !ok {
		t = om.NewOrderedMap()
		w.tables[name] = t
	}
	return t
}

// seed adds a row using the first column as the key.
func (w *fakeWarehouse) seed(table string, cols []string, values ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	row := make(map[string]string)
	for i, c := range cols {
		row[c] = values[i]
	}
	w.table(table).Set(values[0], row)
}

func (w *fakeWarehouse) get(table string, key string) map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.table(table).Get(key)
	if !ok {
		return nil
	}
	return v.(map[string]string)
}

func (w *fakeWarehouse) count(table string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.table(table).Len()
}

func (w *fakeWarehouse) resetCounters() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inserts, w.updates = 0, 0
}

func (w *fakeWarehouse) query(query string, args []interface{}) (shared.Rows, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dropped != "" && strings.Contains(query, fmt.Sprintf("%q", w.dropped)) {
		return nil, &pq.Error{Code: "42P01", Message: fmt.Sprintf("relation %q does not exist", w.dropped)}
	}
	if m := reSelectCount.FindStringSubmatch(query); m != nil {
		return &shared.MockRows{Cols: []string{"count"}, Data: [][]interface{}{{int64(w.table(m[1]).Len())}}}, nil
	}
	m := reSelect.FindStringSubmatch(query)
	if m == nil {
		return nil, fmt.Errorf("fake warehouse cannot parse query: %v", query)
	}
	cols := unquoteList(m[1])
	data := make([][]interface{}, 0)
	iter := w.table(m[2]).IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		row := kv.Value.(map[string]string)
		vals := make([]interface{}, len(cols))
		for i, c := range cols {
			if v := row[c]; v != "" {
				vals[i] = v
			}
		}
		data = append(data, vals)
	}
	return &shared.MockRows{Cols: cols, Data: data}, nil
}

func (w *fakeWarehouse) exec(query string, args []interface{}) (shared.Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failOn != "" && strings.Contains(query, w.failOn) {
		return nil, errors.New("simulated warehouse failure")
	}
	if m := reInsert.FindStringSubmatch(query); m != nil {
		cols := unquoteList(m[2])
		if len(args)%len(cols) != 0 {
			return nil, fmt.Errorf("insert args %v do not fit columns %v", len(args), len(cols))
		}
		for i := 0; i < len(args); i += len(cols) {
			row := make(map[string]string)
			for j, c := range cols {
				row[c] = helper.ValueToString(args[i+j])
			}
			key := row[cols[0]]
			if _, exists := w.table(m[1]).Get(key); exists {
				return nil, fmt.Errorf("duplicate key %v in %v", key, m[1])
			}
			w.table(m[1]).Set(key, row)
			w.inserts++
		}
		return shared.MockResult{Affected: int64(len(args) / len(cols))}, nil
	}
	if m := reUpdate.FindStringSubmatch(query); m != nil {
		set := assignedColumns(m[2], ",")
		where := assignedColumns(m[3], " and ")
		if len(set)+len(where) != len(args) {
			return nil, fmt.Errorf("update args %v do not fit columns %v", len(args), len(set)+len(where))
		}
		key := helper.ValueToString(args[len(set)])
		v, ok := w.table(m[1]).Get(key)
		if !ok {
			return shared.MockResult{Affected: 0}, nil
		}
		row := v.(map[string]string)
		for i, c := range set {
			row[c] = helper.ValueToString(args[i])
		}
		w.updates++
		return shared.MockResult{Affected: 1}, nil
	}
	return nil, fmt.Errorf("fake warehouse cannot parse statement: %v", query)
}

func unquoteList(s string) []string {
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), `"`)
	}
	return parts
}

// assignedColumns returns the column names of `"a" = $1<sep>"b" = $2`.
func assignedColumns(s string, sep string) []string {
	parts := strings.Split(s, sep)
	for i, p := range parts {
		col, _ := helper.Split(p, " = ")
		parts[i] = strings.Trim(strings.TrimSpace(col), `"`)
	}
	return parts
}
