package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/relloyd/totes/aws/s3"
	"github.com/relloyd/totes/logger"
	"github.com/relloyd/totes/rdbms/shared"
	"github.com/relloyd/totes/stats"
	"github.com/relloyd/totes/watermark"
)

const testBatchID = "2023-07-31T11:24:11.422525"

var staffRows = &shared.MockRows{
	Cols: []string{"staff_id", "first_name", "last_updated"},
	Data: [][]interface{}{
		{int64(1), "Jeremie", time.Date(2022, 11, 3, 14, 20, 51, 563000000, time.UTC)},
		{int64(2), "Deron", nil},
	},
}

func newTestExtractor(t *testing.T, db shared.Connector, store s3.BasicClient) *Extractor {
	log := logger.NewLogger("totes", "error", true)
	e, err := NewExtractor(&Config{Log: log, Source: db, Store: store, Stats: stats.NewRunStats(log)})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

// tableFromQuery returns the quoted table name found in a generated extract query.
func tableFromQuery(q string) string {
	q = strings.TrimPrefix(q, "SELECT * FROM ")
	return q[:strings.Index(q, " ")]
}

func TestExtractSQL(t *testing.T) {
	e := newTestExtractor(t, shared.NewMockConnection(nil), s3.NewMemoryClient())
	got, err := e.ExtractSQL("sales_order", watermark.Epoch)
	if err != nil {
		t.Fatal(err)
	}
	expected := `SELECT * FROM "sales_order" WHERE "last_updated" > '1970-01-01 00:00:00.000000'`
	if got != expected {
		t.Fatalf("expected %v; got %v", expected, got)
	}
	if _, err = e.ExtractSQL("bad\x00name", watermark.Epoch); err == nil {
		t.Fatal("expected error for NUL byte in table name")
	}
}

func TestExtractHeaderAtEpoch(t *testing.T) {
	db := shared.NewMockConnection(nil)
	db.QueryHandler = func(query string, args []interface{}) (shared.Rows, error) {
		if tableFromQuery(query) == `"staff"` {
			return &shared.MockRows{Cols: staffRows.Cols, Data: staffRows.Data}, nil
		}
		return &shared.MockRows{Cols: []string{"currency_id"}}, nil
	}
	store := s3.NewMemoryClient()
	e := newTestExtractor(t, db, store)
	results, err := e.Extract(context.Background(), testBatchID, []string{"staff", "currency"}, watermark.Epoch)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := results["currency"]; ok {
		t.Fatal("expected no extract for a table without changes")
	}
	expected := "staff_id,first_name,last_updated\n1,Jeremie,2022-11-03 14:20:51.563\n2,Deron,\n"
	if string(results["staff"]) != expected {
		t.Fatalf("expected %q; got %q", expected, results["staff"])
	}
	if err = e.Save(testBatchID, results); err != nil {
		t.Fatal(err)
	}
	keys, _ := store.List("")
	if len(keys) != 1 || keys[0] != testBatchID+"/staff.csv" {
		t.Fatalf("expected a single staff file; got %v", keys)
	}
}

func TestExtractAppendsWithoutHeader(t *testing.T) {
	db := shared.NewMockConnection(nil)
	db.QueryHandler = func(query string, args []interface{}) (shared.Rows, error) {
		return &shared.MockRows{Cols: staffRows.Cols, Data: staffRows.Data[1:]}, nil
	}
	store := s3.NewMemoryClient()
	_ = store.Put(testBatchID+"/staff.csv", []byte("staff_id,first_name,last_updated\n1,Jeremie,\n"))
	e := newTestExtractor(t, db, store)
	results, err := e.Extract(context.Background(), testBatchID, []string{"staff"}, watermark.Epoch)
	if err != nil {
		t.Fatal(err)
	}
	if string(results["staff"]) != "2,Deron,\n" {
		t.Fatalf("expected rows without a header; got %q", results["staff"])
	}
	if err = e.Save(testBatchID, results); err != nil {
		t.Fatal(err)
	}
	got, _ := store.Get(testBatchID + "/staff.csv")
	if string(got) != "staff_id,first_name,last_updated\n1,Jeremie,\n2,Deron,\n" {
		t.Fatalf("unexpected file content %q", got)
	}
}

func TestExtractContinuesAfterTableFailure(t *testing.T) {
	db := shared.NewMockConnection(nil)
	db.QueryHandler = func(query string, args []interface{}) (shared.Rows, error) {
		if tableFromQuery(query) == `"payment"` {
			return nil, errors.New("relation does not exist")
		}
		return &shared.MockRows{Cols: staffRows.Cols, Data: staffRows.Data}, nil
	}
	e := newTestExtractor(t, db, s3.NewMemoryClient())
	results, err := e.Extract(context.Background(), testBatchID, []string{"payment", "staff", "design"}, watermark.Epoch)
	var ie IngestionErrors
	if !errors.As(err, &ie) {
		t.Fatalf("expected IngestionErrors; got %v", err)
	}
	if len(ie) != 1 || ie.Tables()[0] != "payment" {
		t.Fatalf("expected payment to fail; got %v", ie.Tables())
	}
	var tie *TableIngestionError
	if !errors.As(err, &tie) || tie.Table != "payment" {
		t.Fatalf("expected *TableIngestionError for payment; got %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected siblings to be extracted; got %v", len(results))
	}
}

func TestRunUsesWatermark(t *testing.T) {
	var seen string
	db := shared.NewMockConnection(nil)
	db.QueryHandler = func(query string, args []interface{}) (shared.Rows, error) {
		seen = query
		return &shared.MockRows{Cols: staffRows.Cols, Data: staffRows.Data}, nil
	}
	store := s3.NewMemoryClient()
	_ = store.Put("2023-01-02T10:00:00.000000/staff.csv", []byte("x\n"))
	e := newTestExtractor(t, db, store)
	now := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	id, err := e.Run(context.Background(), []string{"staff"}, now)
	if err != nil {
		t.Fatal(err)
	}
	if id != "2023-01-03T00:00:00.000000" {
		t.Fatalf("unexpected batch id %v", id)
	}
	if !strings.HasSuffix(seen, `> '2023-01-02 10:00:00.000000'`) {
		t.Fatalf("expected watermark predicate; got %v", seen)
	}
	if ok, _ := store.Exists(id + "/staff.csv"); !ok {
		t.Fatal("expected new batch file")
	}
}

func TestRunRetriesFailedTableFromItsOwnWatermark(t *testing.T) {
	queries := make(map[string][]string) // key = quoted table name
	failStaff := true
	db := shared.NewMockConnection(nil)
	db.QueryHandler = func(query string, args []interface{}) (shared.Rows, error) {
		table := tableFromQuery(query)
		queries[table] = append(queries[table], query)
		if table == `"staff"` && failStaff {
			return nil, errors.New("connection reset")
		}
		return &shared.MockRows{Cols: staffRows.Cols, Data: staffRows.Data}, nil
	}
	store := s3.NewMemoryClient()
	e := newTestExtractor(t, db, store)
	// Run 1 - staff fails while design is saved, advancing the bucket watermark.
	run1 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := e.Run(context.Background(), []string{"staff", "design"}, run1); err == nil {
		t.Fatal("expected run 1 to report the staff failure")
	}
	// Run 2 - staff is queried from the epoch, design from run 1.
	failStaff = false
	run2 := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	if _, err := e.Run(context.Background(), []string{"staff", "design"}, run2); err != nil {
		t.Fatal(err)
	}
	if q := queries[`"staff"`][1]; !strings.HasSuffix(q, `> '1970-01-01 00:00:00.000000'`) {
		t.Fatalf("expected staff to be extracted from the epoch; got %v", q)
	}
	if q := queries[`"design"`][1]; !strings.HasSuffix(q, `> '2023-01-01 00:00:00.000000'`) {
		t.Fatalf("expected design to be extracted from run 1; got %v", q)
	}
	// Run 3 - both tables now start from run 2.
	run3 := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	if _, err := e.Run(context.Background(), []string{"staff", "design"}, run3); err != nil {
		t.Fatal(err)
	}
	for _, table := range []string{`"staff"`, `"design"`} {
		if q := queries[table][2]; !strings.HasSuffix(q, `> '2023-01-02 00:00:00.000000'`) {
			t.Fatalf("expected %v to be extracted from run 2; got %v", table, q)
		}
	}
}
