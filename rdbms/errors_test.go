package rdbms

import (
	"errors"
	"fmt"
	"testing"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/lib/pq"
	sf "github.com/snowflakedb/gosnowflake"
)

func TestIsUndefinedTableError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("wrapped: %w", &pq.Error{Code: "42P01"}), true},
		{&pq.Error{Code: "23505"}, false},
		{fmt.Errorf("wrapped: %w", mssql.Error{Number: 208}), true},
		{mssql.Error{Number: 2627}, false},
		{&sf.SnowflakeError{Number: 2003, SQLState: "42S02"}, true},
		{errors.New("relation does not exist"), false},
		{nil, false},
	}
	for i, c := range cases {
		if got := IsUndefinedTableError(c.err); got != c.want {
			t.Fatalf("Test %v failed: expected %v for %v; got %v", i, c.want, c.err, got)
		}
	}
}
