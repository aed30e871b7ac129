package stats

import (
	"sync"
	"testing"

	"github.com/relloyd/totes/logger"
)

func TestRunStats(t *testing.T) {
	r := NewRunStats(logger.NewLogger("totes", "error", true))
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Table("load", "dim_staff").AddInserted(2)
		}()
	}
	wg.Wait()
	r.Table("ingest", "staff").AddExtracted(5)
	r.Table("ingest", "staff").AddFilesWritten(1)
	r.Table("load", "dim_staff").AddUpdated(1)
	r.Table("load", "dim_staff").AddUnchanged(3)
	got := r.GetStats()
	if len(got) != 2 {
		t.Fatalf("expected 2 tables; got %v", len(got))
	}
	if got[0].Table != "dim_staff" || got[0].Inserted != 20 || got[0].Updated != 1 || got[0].Unchanged != 3 {
		t.Fatalf("unexpected stats %+v", got[0])
	}
	if got[1].Extracted != 5 || got[1].FilesWritten != 1 {
		t.Fatalf("unexpected stats %+v", got[1])
	}
	r.LogStats()
}

func TestNilRunStats(t *testing.T) {
	var r *RunStats
	r.Table("load", "x").AddInserted(1) // must not panic.
}
