package constants

import (
	"regexp"
	"testing"
	"time"
)

func TestTimeFormat(t *testing.T) {
	// Check that the global regexp can match constant TimeFormatBatchID.
	re := regexp.MustCompile(TimeFormatBatchIDRegex)
	if !re.MatchString(TimeFormatBatchID) {
		t.Fatal("Mismatch between TimeFormatBatchID and regexp in constant TimeFormatBatchIDRegex.")
	}
	// Batch ids must be fixed width so that sorting strings sorts times.
	a := time.Date(2023, 7, 31, 9, 5, 1, 0, time.UTC).Format(TimeFormatBatchID)
	b := time.Date(2023, 7, 31, 10, 0, 0, 123000, time.UTC).Format(TimeFormatBatchID)
	if len(a) != len(b) {
		t.Fatalf("expected fixed width batch ids; got %q and %q", a, b)
	}
	if !(a < b) {
		t.Fatalf("expected %q < %q", a, b)
	}
}

func TestSourceTables(t *testing.T) {
	if len(SourceTables) != 11 {
		t.Fatalf("expected 11 source tables; got %v", len(SourceTables))
	}
}
