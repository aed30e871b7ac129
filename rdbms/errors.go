package rdbms

import (
	"errors"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/lib/pq"
	sf "github.com/snowflakedb/gosnowflake"
)

// IsUndefinedTableError returns true when err was raised by a database driver because a table does not exist.
func IsUndefinedTableError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01" // undefined_table
	}
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return msErr.Number == 208 // invalid object name
	}
	var sfErr *sf.SnowflakeError
	if errors.As(err, &sfErr) {
		return sfErr.SQLState == "42S02" // base table or view not found
	}
	return false
}
