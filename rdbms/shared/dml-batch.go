package shared

import (
	"fmt"

	om "github.com/cevaris/ordered_map"
	h "github.com/relloyd/totes/helper"
	"github.com/relloyd/totes/logger"
)

// BindStyle is the placeholder syntax understood by a database driver.
type BindStyle int

const (
	BindStyleDollar   BindStyle = iota // lib/pq: $1, $2
	BindStyleAtP                       // go-mssqldb: @p1, @p2
	BindStyleQuestion                  // gosnowflake: ?
)

// Placeholder returns the bind variable for the n-th value, counting from 1.
func (b BindStyle) Placeholder(n int) string {
	switch b {
	case BindStyleAtP:
		return fmt.Sprintf("@p%v", n)
	case BindStyleQuestion:
		return "?"
	default:
		return fmt.Sprintf("$%v", n)
	}
}

// MaxBindValues is the number of bind values the driver accepts in one statement.
func (b BindStyle) MaxBindValues() int {
	switch b {
	case BindStyleAtP:
		return 2100 - 1 // SQL Server reserves one parameter slot.
	case BindStyleQuestion:
		return 100000
	default:
		return 65535
	}
}

// MaxRowsPerStatement caps requested so that rows of numCols values fit inside the bind limit.
func (b BindStyle) MaxRowsPerStatement(numCols int, requested int) int {
	if numCols < 1 {
		numCols = 1
	}
	limit := b.MaxBindValues() / numCols
	if b == BindStyleAtP && limit > 1000 { // SQL Server allows at most 1000 row constructors per VALUES.
		limit = 1000
	}
	if requested < 1 || requested > limit {
		return limit
	}
	return requested
}

// DmlGeneratorTxtBatch generates text DML that binds values with the given style.
type DmlGeneratorTxtBatch struct {
	Bind BindStyle
}

type SqlStatementGeneratorConfig struct {
	Log             logger.Logger
	OutputSchema    string
	OutputTable     string
	TargetKeyCols   *om.OrderedMap // ordered map of: key = CSV field name; value = target table column name
	TargetOtherCols *om.OrderedMap // ordered map of: key = CSV field name; value = target table column name
}

type sqlCoreCfg struct {
	sqlStmt                string
	sqlStmtTemplate        string
	sqlValues              []interface{} // slice to hold data values for all rows in batch
	batchSize              int
	rowsInBatch            int
	previousNumRowsInBatch int
}

// getQualifiedTableName returns the quoted [schema.]table for the generator config.
func getQualifiedTableName(cfg *SqlStatementGeneratorConfig) string {
	if cfg.OutputSchema == "" {
		return h.MustQuoteIdentifier(cfg.OutputTable)
	}
	return h.MustQuoteIdentifier(cfg.OutputSchema) + "." + h.MustQuoteIdentifier(cfg.OutputTable)
}

func mustQuoteAll(cols []string) []string {
	q, err := h.QuoteIdentifiers(cols)
	if err != nil {
		panic(err)
	}
	return q
}
