package rdbms

import (
	"context"
	"fmt"

	"github.com/relloyd/totes/logger"
	"github.com/relloyd/totes/rdbms/shared"
)

// SqlQuery executes sqltext and streams the column names followed by each row to i.
// It stops early if ctx is cancelled.
func SqlQuery(ctx context.Context, log logger.Logger, db shared.Connector, sqltext string, i shared.SqlResultHandler, args ...interface{}) error {
	rows, err := db.QueryContext(ctx, sqltext, args...)
	if err != nil {
		return fmt.Errorf("error during database query using SQL: '%v': %w", sqltext, err)
	}
	defer func() {
		_ = rows.Close()
	}()
	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("error fetching columns for SQL: '%v': %w", sqltext, err)
	}
	log.Debug("query columns = ", cols)
	// Scan the values dynamically.
	lenCols := len(cols)
	scanPtrs := make([]interface{}, lenCols)
	scanVals := make([]interface{}, lenCols)
	for idx := 0; idx < lenCols; idx++ { // for each column...
		scanPtrs[idx] = &scanVals[idx]
	}
	// Build and send the header.
	header := make([]interface{}, lenCols)
	for idx := range cols {
		header[idx] = cols[idx]
	}
	if err = i.HandleHeader(header); err != nil {
		return err
	}
	// Send the rows via callback interface.
	for rows.Next() {
		if err = ctx.Err(); err != nil { // quit if asked to...
			return err
		}
		if err = rows.Scan(scanPtrs...); err != nil {
			return fmt.Errorf("error scanning row: %w", err)
		}
		// Make a new row.
		row := make([]interface{}, lenCols)
		copy(row, scanVals)
		if err = i.HandleRow(row); err != nil {
			return err
		}
	}
	return rows.Err()
}

// collector is a SqlResultHandler that keeps everything in memory.
type collector struct {
	header []string
	rows   [][]interface{}
}

func (c *collector) HandleHeader(i []interface{}) error {
	c.header = make([]string, len(i))
	for idx, v := range i {
		c.header[idx] = fmt.Sprintf("%v", v)
	}
	return nil
}

func (c *collector) HandleRow(i []interface{}) error {
	c.rows = append(c.rows, i)
	return nil
}

// SqlQueryAll executes sqltext and returns the column names and all rows.
func SqlQueryAll(ctx context.Context, log logger.Logger, db shared.Connector, sqltext string, args ...interface{}) ([]string, [][]interface{}, error) {
	c := &collector{}
	if err := SqlQuery(ctx, log, db, sqltext, c, args...); err != nil {
		return nil, nil, err
	}
	return c.header, c.rows, nil
}
