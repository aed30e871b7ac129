package transform

import (
	"testing"
)

func mustSource(t *testing.T, name string, content string) *SourceTable {
	s, err := NewSourceTable(name, []byte(content))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestChangedRecordsLaterRowsWin(t *testing.T) {
	staff := mustSource(t, "staff", "staff_id,first_name,department_id\n1,A,1\n1,B,1\n2,C,2\n")
	b := NewBatch("b1", map[string]*SourceTable{"staff": staff}, nil)
	got := b.changedRecords("staff", "department_id", "department")
	if len(got) != 2 || got[0]["first_name"] != "B" {
		t.Fatalf("unexpected records %v", got)
	}
}

func TestMapDimCounterpartyFallsBackToName(t *testing.T) {
	cp := mustSource(t, "counterparty", "counterparty_id,name,legal_address_id\n5,Acme,1\n")
	b := NewBatch("b1", map[string]*SourceTable{"counterparty": cp}, nil)
	got, err := MapDimCounterparty(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0]["counterparty_legal_name"] != "Acme" || got[0]["counterparty_legal_city"] != "" {
		t.Fatalf("unexpected records %v", got)
	}
	cp = mustSource(t, "counterparty", "counterparty_id,legal_address_id\n5,1\n")
	if _, err = MapDimCounterparty(NewBatch("b1", map[string]*SourceTable{"counterparty": cp}, nil)); err == nil {
		t.Fatal("expected error when no name column is present")
	}
}

func TestCurrencyName(t *testing.T) {
	cases := map[string]string{"GBP": "British Pound", "usd": "US Dollar", " EUR ": "Euro", "ABC": ""}
	for code, expected := range cases {
		if got := CurrencyName(code); got != expected {
			t.Fatalf("code %q: expected %q; got %q", code, expected, got)
		}
	}
}

func TestRowFilter(t *testing.T) {
	f, err := newRowFilter([]byte(`{"==": [{"var": "currency_code"}, "GBP"]}`))
	if err != nil {
		t.Fatal(err)
	}
	keep, err := f(Record{"currency_code": "GBP"})
	if err != nil {
		t.Fatal(err)
	}
	if !keep {
		t.Fatal("expected record to be kept")
	}
	if keep, _ = f(Record{"currency_code": "USD"}); keep {
		t.Fatal("expected record to be dropped")
	}
	if f, _ = newRowFilter(nil); f != nil {
		t.Fatal("expected nil filter for an empty rule")
	}
}
