package shared

import (
	"testing"

	"github.com/cevaris/ordered_map"
	"github.com/relloyd/totes/logger"
)

func newTestGeneratorConfig(schema string) *SqlStatementGeneratorConfig {
	omKeys := ordered_map.NewOrderedMap()
	omKeys.Set("col1", "a")
	omCols := ordered_map.NewOrderedMap()
	omCols.Set("col2", "b")
	omCols.Set("col3", "c")
	return &SqlStatementGeneratorConfig{
		Log:             logger.NewLogger("totes", "error", true),
		OutputSchema:    schema,
		OutputTable:     "t2",
		TargetKeyCols:   omKeys,
		TargetOtherCols: omCols,
	}
}

func TestSqlInsert(t *testing.T) {
	db := NewMockConnection(nil)
	o := db.GetDmlGenerator().NewInsertGenerator(newTestGeneratorConfig("")).(SqlStmtTxtBatcher)

	// Create new batch of values size 2.
	o.InitBatch(2)
	batchIsFull, err := o.AddValuesToBatch([]interface{}{"x", "y", 123}) // first row should succeed.
	if err != nil {
		t.Fatal(err)
	}
	if batchIsFull {
		t.Fatal("the batch should have room for another row")
	}
	batchIsFull, err = o.AddValuesToBatch([]interface{}{"p", "q", 2}) // second row should succeed.
	if err != nil {
		t.Fatal(err)
	}
	if !batchIsFull {
		t.Fatal("the batch should be full")
	}
	if _, err = o.AddValuesToBatch([]interface{}{"z", "z", 3}); err == nil {
		t.Fatal("expected error adding to a full batch")
	}
	expected := `insert into "t2" ("a","b","c") values ( $1,$2,$3 ),( $4,$5,$6 )`
	if got := o.GetStatement(); got != expected {
		t.Fatalf("bad SQL INSERT generated: expected = '%v'; got = '%v'", expected, got)
	}
	if len(o.GetValues()) != 6 {
		t.Fatal("incorrect number of args")
	}

	// Wrong number of values.
	o.InitBatch(1)
	if _, err = o.AddValuesToBatch([]interface{}{"a", "b", 456, 789}); err == nil {
		t.Fatal("expected error: incorrect number of values deliberately supplied in batch")
	}

	// A partially filled batch generates SQL for the rows added only.
	o.InitBatch(10)
	_, _ = o.AddValuesToBatch([]interface{}{"a", "b", 456})
	expected = `insert into "t2" ("a","b","c") values ( $1,$2,$3 )`
	if got := o.GetStatement(); got != expected {
		t.Fatalf("bad SQL INSERT generated: expected = '%v'; got = '%v'", expected, got)
	}
}

func TestSqlInsertBindStyles(t *testing.T) {
	g := &DmlGeneratorTxtBatch{Bind: BindStyleAtP}
	o := g.NewInsertGenerator(newTestGeneratorConfig("dbo")).(SqlStmtTxtBatcher)
	o.InitBatch(2)
	_, _ = o.AddValuesToBatch([]interface{}{1, 2, 3})
	_, _ = o.AddValuesToBatch([]interface{}{4, 5, 6})
	expected := `insert into "dbo"."t2" ("a","b","c") values ( @p1,@p2,@p3 ),( @p4,@p5,@p6 )`
	if got := o.GetStatement(); got != expected {
		t.Fatalf("expected = '%v'; got = '%v'", expected, got)
	}
	g = &DmlGeneratorTxtBatch{Bind: BindStyleQuestion}
	o = g.NewInsertGenerator(newTestGeneratorConfig("")).(SqlStmtTxtBatcher)
	o.InitBatch(1)
	_, _ = o.AddValuesToBatch([]interface{}{1, 2, 3})
	expected = `insert into "t2" ("a","b","c") values ( ?,?,? )`
	if got := o.GetStatement(); got != expected {
		t.Fatalf("expected = '%v'; got = '%v'", expected, got)
	}
}

func TestSqlUpdate(t *testing.T) {
	db := NewMockConnection(nil)
	o := db.GetDmlGenerator().NewUpdateGenerator(newTestGeneratorConfig("")).(SqlStmtTxtBatcher)
	o.InitBatch(5) // updates are always single row.
	batchIsFull, err := o.AddValuesToBatch([]interface{}{"key", "y", 123})
	if err != nil {
		t.Fatal(err)
	}
	if !batchIsFull {
		t.Fatal("an update batch should be full after one row")
	}
	expected := `update "t2" set "b" = $1,"c" = $2 where "a" = $3`
	if got := o.GetStatement(); got != expected {
		t.Fatalf("bad SQL UPDATE generated: expected = '%v'; got = '%v'", expected, got)
	}
	vals := o.GetValues()
	if len(vals) != 3 || vals[0] != "y" || vals[1] != 123 || vals[2] != "key" {
		t.Fatalf("expected values in bind order [y 123 key]; got %v", vals)
	}
	o.InitBatch(1)
	if _, err = o.AddValuesToBatch([]interface{}{"key"}); err == nil {
		t.Fatal("expected error for wrong number of values")
	}
}

func TestMaxRowsPerStatement(t *testing.T) {
	if got := BindStyleDollar.MaxRowsPerStatement(10, 1000); got != 1000 {
		t.Fatalf("expected requested size when within limits; got %v", got)
	}
	if got := BindStyleDollar.MaxRowsPerStatement(100, 1000); got != 655 {
		t.Fatalf("expected bind limit to cap rows; got %v", got)
	}
	if got := BindStyleAtP.MaxRowsPerStatement(1, 5000); got != 1000 {
		t.Fatalf("expected SQL Server row constructor limit; got %v", got)
	}
	if got := BindStyleAtP.MaxRowsPerStatement(15, 0); got != 139 {
		t.Fatalf("expected default to the bind limit; got %v", got)
	}
}
