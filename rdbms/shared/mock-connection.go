package shared

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/relloyd/totes/constants"
	"github.com/relloyd/totes/logger"
)

// MockStatement is a statement executed against a MockConnection.
type MockStatement struct {
	Query string
	Args  []interface{}
}

// MockConnection implements Connector without a database.
// Queries are answered by QueryHandler and executed statements are passed to ExecHandler.
// Statements executed inside a transaction are recorded only once the transaction commits.
type MockConnection struct {
	Log          logger.Logger
	QueryHandler func(query string, args []interface{}) (Rows, error)
	ExecHandler  func(query string, args []interface{}) (Result, error)
	mu           sync.Mutex
	committed    []MockStatement
	commits      int
	rollbacks    int
	closed       bool
}

// NewMockConnection returns a MockConnection that uses the Postgres bind style.
func NewMockConnection(log logger.Logger) *MockConnection {
	return &MockConnection{Log: log}
}

func (c *MockConnection) Begin() (Transacter, error) {
	return c.BeginTx(context.Background())
}

func (c *MockConnection) BeginTx(ctx context.Context) (Transacter, error) {
	if c.isClosed() {
		return nil, errors.New("mock connection is closed")
	}
	return &MockTx{conn: c}, nil
}

func (c *MockConnection) Exec(query string, args ...interface{}) (Result, error) {
	return c.ExecContext(context.Background(), query, args...)
}

func (c *MockConnection) ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error) {
	r, err := c.exec(query, args)
	if err != nil {
		return nil, err
	}
	c.record([]MockStatement{{Query: query, Args: args}})
	return r, nil
}

func (c *MockConnection) Query(query string, args ...interface{}) (Rows, error) {
	return c.QueryContext(context.Background(), query, args...)
}

func (c *MockConnection) QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	if c.isClosed() {
		return nil, errors.New("mock connection is closed")
	}
	if c.QueryHandler == nil {
		return &MockRows{}, nil
	}
	return c.QueryHandler(query, args)
}

func (c *MockConnection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *MockConnection) GetType() string {
	return constants.ConnectionTypeMockPostgres
}

func (c *MockConnection) GetDmlGenerator() DmlGenerator {
	return &DmlGeneratorTxtBatch{Bind: BindStyleDollar}
}

// Statements returns all committed statements in execution order.
func (c *MockConnection) Statements() []MockStatement {
	c.mu.Lock()
	defer c.mu.Unlock()
	retval := make([]MockStatement, len(c.committed))
	copy(retval, c.committed)
	return retval
}

// Commits returns the number of committed transactions.
func (c *MockConnection) Commits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commits
}

// Rollbacks returns the number of rolled back transactions.
func (c *MockConnection) Rollbacks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollbacks
}

func (c *MockConnection) exec(query string, args []interface{}) (Result, error) {
	if c.isClosed() {
		return nil, errors.New("mock connection is closed")
	}
	if c.Log != nil {
		c.Log.Trace("mock exec: ", query)
	}
	if c.ExecHandler == nil {
		return MockResult{Affected: 1}, nil
	}
	return c.ExecHandler(query, args)
}

func (c *MockConnection) record(s []MockStatement) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.committed = append(c.committed, s...)
}

func (c *MockConnection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// MockTx buffers statements until Commit.
type MockTx struct {
	conn    *MockConnection
	pending []MockStatement
	done    bool
}

func (t *MockTx) Exec(query string, args ...interface{}) (Result, error) {
	return t.ExecContext(context.Background(), query, args...)
}

func (t *MockTx) ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error) {
	if t.done {
		return nil, errors.New("transaction has already been committed or rolled back")
	}
	r, err := t.conn.exec(query, args)
	if err != nil {
		return nil, err
	}
	t.pending = append(t.pending, MockStatement{Query: query, Args: args})
	return r, nil
}

func (t *MockTx) Commit() error {
	if t.done {
		return errors.New("transaction has already been committed or rolled back")
	}
	t.done = true
	t.conn.record(t.pending)
	t.conn.mu.Lock()
	t.conn.commits++
	t.conn.mu.Unlock()
	return nil
}

func (t *MockTx) Rollback() error {
	if t.done {
		return errors.New("transaction has already been committed or rolled back")
	}
	t.done = true
	t.pending = nil
	t.conn.mu.Lock()
	t.conn.rollbacks++
	t.conn.mu.Unlock()
	return nil
}

// MockResult implements Result.
type MockResult struct {
	Affected int64
}

func (r MockResult) LastInsertId() (int64, error) {
	return 0, errors.New("LastInsertId is not supported")
}

func (r MockResult) RowsAffected() (int64, error) {
	return r.Affected, nil
}

// MockRows implements Rows over an in-memory result set.
type MockRows struct {
	Cols    []string
	Data    [][]interface{}
	ScanErr error
	idx     int
	closed  bool
}

func (r *MockRows) Columns() ([]string, error) {
	return r.Cols, nil
}

func (r *MockRows) Next() bool {
	if r.closed || r.idx >= len(r.Data) {
		return false
	}
	r.idx++
	return true
}

// Scan copies the current row into dest, which must be *interface{} values.
func (r *MockRows) Scan(dest ...interface{}) error {
	if r.ScanErr != nil {
		return r.ScanErr
	}
	if r.idx == 0 || r.idx > len(r.Data) {
		return errors.New("Scan called without a current row")
	}
	row := r.Data[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("expected %v destination arguments in Scan, not %v", len(row), len(dest))
	}
	for i, d := range dest {
		p, ok := d.(*interface{})
		if !ok {
			return fmt.Errorf("unsupported Scan destination type %T", d)
		}
		*p = row[i]
	}
	return nil
}

func (r *MockRows) Err() error {
	return nil
}

func (r *MockRows) Close() error {
	r.closed = true
	return nil
}
