package tabledefinition

import (
	"context"
	"fmt"
	"strings"

	"github.com/relloyd/totes/constants"
	"github.com/relloyd/totes/helper"
	"github.com/relloyd/totes/logger"
	"github.com/relloyd/totes/rdbms"
	"github.com/relloyd/totes/rdbms/shared"
)

type mapTabDefinitionConfigT map[string]tabDefinitionConfigT

// tabDefinitionConfigT holds the SQL used to fetch a table's column names.
type tabDefinitionConfigT struct {
	withSchema    string
	withoutSchema string
}

// tabDefinitionConfig contains SQL statements able to get column names for each connection type,
// where the connection type string matches that returned by shared.Connector.GetType().
var tabDefinitionConfig = mapTabDefinitionConfigT{
	constants.ConnectionTypePostgres: {
		withSchema: `select column_name from information_schema.columns
						where table_schema = $1 and table_name = $2
						order by ordinal_position`,
		withoutSchema: `select column_name from information_schema.columns
						where table_schema = current_schema() and table_name = $1
						order by ordinal_position`,
	},
	constants.ConnectionTypeMockPostgres: {
		withSchema: `select column_name from information_schema.columns
						where table_schema = $1 and table_name = $2
						order by ordinal_position`,
		withoutSchema: `select column_name from information_schema.columns
						where table_schema = current_schema() and table_name = $1
						order by ordinal_position`,
	},
	constants.ConnectionTypeSqlServer: {
		withSchema: `select COLUMN_NAME from information_schema.columns
						where table_schema = @p1 and table_name = @p2
						order by ORDINAL_POSITION`,
		withoutSchema: `select COLUMN_NAME from information_schema.columns
						where table_schema = schema_name() and table_name = @p1
						order by ORDINAL_POSITION`,
	},
	constants.ConnectionTypeSnowflake: {
		withSchema: `select COLUMN_NAME from information_schema.columns
						where table_schema = ? and table_name = ?
						order by ORDINAL_POSITION`,
		withoutSchema: `select COLUMN_NAME from information_schema.columns
						where table_schema = current_schema() and table_name = ?
						order by ORDINAL_POSITION`,
	},
}

// getRecord looks up and returns a value from the map t using the supplied databaseType.
func (t mapTabDefinitionConfigT) getRecord(databaseType string) (tabDefinitionConfigT, error) {
	k, ok := t[databaseType]
	if !ok { // if we do not support the database type...
		return tabDefinitionConfigT{}, fmt.Errorf("error fetching table definition config, unsupported database type: %q", databaseType)
	}
	return k, nil
}

// GetTableColumns fetches the names of the columns that comprise [schema.]table, in column order.
func GetTableColumns(ctx context.Context, log logger.Logger, db shared.Connector, schema string, table string) ([]string, error) {
	t, err := tabDefinitionConfig.getRecord(db.GetType())
	if err != nil {
		return nil, err
	}
	var sqltext string
	var args []interface{}
	if schema != "" { // if there is a schema prefix...
		sqltext = t.withSchema
		args = []interface{}{schema, table}
	} else { // else use the current schema...
		sqltext = t.withoutSchema
		args = []interface{}{table}
	}
	_, rows, err := rdbms.SqlQueryAll(ctx, log, db, sqltext, args...)
	if err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(rows))
	for _, r := range rows {
		cols = append(cols, helper.ValueToString(r[0]))
	}
	if len(cols) == 0 { // if no columns were found (bad table name)...
		return nil, fmt.Errorf("no columns found for object %q", strings.TrimLeft(schema+"."+table, "."))
	}
	return cols, nil
}

// CheckWarehouseTable confirms every descriptor column exists in the warehouse table.
// Column names are compared case-insensitively.
func CheckWarehouseTable(ctx context.Context, log logger.Logger, db shared.Connector, schema string, d *TableDescriptor) error {
	cols, err := GetTableColumns(ctx, log, db, schema, d.Name)
	if err != nil {
		return err
	}
	have := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		have[strings.ToLower(c)] = struct{}{}
	}
	for _, c := range d.Columns {
		if _, ok := have[strings.ToLower(c)]; !ok {
			return &SchemaMismatchError{Table: d.Name, Expected: d.Columns, Got: cols}
		}
	}
	return nil
}
