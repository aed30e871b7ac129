package shared

import (
	"fmt"
	"strings"

	h "github.com/relloyd/totes/helper"

	"github.com/pkg/errors"
)

// SqlUpdateTxtBatch implements interface SqlStmtTxtBatcher for single-row UPDATE statements.
// Values are added in key-then-other column order and returned by GetValues in the order the
// statement binds them: other columns in the SET clause followed by keys in the WHERE clause.
type SqlUpdateTxtBatch struct {
	SqlStatementGeneratorConfig // mandatory to be populated.
	sqlCoreCfg
	ColList []string
	KeyList []string
	bind    BindStyle
}

// NewUpdateGenerator.
// Configure defaults in SqlStatementGeneratorConfig.
func (g *DmlGeneratorTxtBatch) NewUpdateGenerator(cfg *SqlStatementGeneratorConfig) SqlStmtGenerator {
	FixSqlStatementGeneratorConfig(cfg)
	cfg.Log.Debug("Creating NewUpdateGenerator")
	o := &SqlUpdateTxtBatch{SqlStatementGeneratorConfig: *cfg, bind: g.Bind}
	o.setupSqlStatement()
	return o
}

func (o *SqlUpdateTxtBatch) setupSqlStatement() {
	o.ColList = h.OrderedMapValuesToStringSlice(o.TargetOtherCols)
	o.KeyList = h.OrderedMapValuesToStringSlice(o.TargetKeyCols)
	// Example:
	// update "schema"."table" set "b" = $1,"c" = $2 where "a" = $3
	valIdx := 1
	set := make([]string, len(o.ColList))
	for i, c := range mustQuoteAll(o.ColList) {
		set[i] = fmt.Sprintf("%v = %v", c, o.bind.Placeholder(valIdx))
		valIdx++
	}
	where := make([]string, len(o.KeyList))
	for i, c := range mustQuoteAll(o.KeyList) {
		where[i] = fmt.Sprintf("%v = %v", c, o.bind.Placeholder(valIdx))
		valIdx++
	}
	o.sqlStmtTemplate = `update <TABLE> set <COL-TXT> where <KEY-TXT>`
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<TABLE>", getQualifiedTableName(&o.SqlStatementGeneratorConfig), 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<COL-TXT>", strings.Join(set, ","), 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<KEY-TXT>", strings.Join(where, " and "), 1)
	o.sqlStmt = o.sqlStmtTemplate
	o.Log.Debug("setup UPDATE generator with SQL: ", o.sqlStmtTemplate)
}

// InitBatch resets the generator. Updates are executed one row at a time so batchSize is always 1.
func (o *SqlUpdateTxtBatch) InitBatch(batchSize int) {
	o.batchSize = 1
	o.rowsInBatch = 0
	o.sqlValues = make([]interface{}, 0, len(o.ColList)+len(o.KeyList))
}

func (o *SqlUpdateTxtBatch) AddValuesToBatch(values []interface{}) (batchIsFull bool, err error) {
	if o.rowsInBatch >= o.batchSize {
		err = errors.New("no more rows allowed in UPDATE batch")
		batchIsFull = true
		return
	}
	numKeys := len(o.KeyList)
	if len(values) != len(o.ColList)+numKeys {
		err = fmt.Errorf("the number of target table columns does not match the number of input values supplied: num supplied = %v; expected = %v: values = %v", len(values), len(o.ColList)+numKeys, values)
		return
	}
	// Bind order is SET columns then WHERE keys.
	o.sqlValues = append(o.sqlValues, values[numKeys:]...)
	o.sqlValues = append(o.sqlValues, values[:numKeys]...)
	o.rowsInBatch++
	batchIsFull = true
	return
}

func (o *SqlUpdateTxtBatch) GetValues() []interface{} {
	return o.sqlValues
}

func (o *SqlUpdateTxtBatch) GetStatement() string {
	return o.sqlStmt
}
