package extract

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/totes/aws/s3"
	"github.com/relloyd/totes/constants"
	"github.com/relloyd/totes/file"
	"github.com/relloyd/totes/helper"
	"github.com/relloyd/totes/logger"
	"github.com/relloyd/totes/rdbms"
	"github.com/relloyd/totes/rdbms/shared"
	"github.com/relloyd/totes/stats"
	"github.com/relloyd/totes/watermark"
)

// Config holds the dependencies of an Extractor.
type Config struct {
	Log         logger.Logger    `errorTxt:"logger" mandatory:"yes"`
	Source      shared.Connector `errorTxt:"source database connection" mandatory:"yes"`
	Store       s3.BasicClient   `errorTxt:"ingestion bucket client" mandatory:"yes"`
	DeltaColumn string           `errorTxt:"delta column"`
	Stats       *stats.RunStats
}

// Extractor copies rows changed since a watermark into timestamped batch files.
type Extractor struct {
	log         logger.Logger
	db          shared.Connector
	store       s3.Client
	deltaColumn string
	stats       *stats.RunStats
}

func NewExtractor(cfg *Config) (*Extractor, error) {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return nil, err
	}
	e := &Extractor{
		log:         cfg.Log,
		db:          cfg.Source,
		store:       s3.NewClientFromBasic(cfg.Store),
		deltaColumn: cfg.DeltaColumn,
		stats:       cfg.Stats,
	}
	if e.deltaColumn == "" {
		e.deltaColumn = constants.DefaultDeltaColumn
	}
	return e, nil
}

// ExtractSQL returns the query used to fetch rows of table changed after since.
func (e *Extractor) ExtractSQL(table string, since time.Time) (string, error) {
	t, err := helper.QuoteIdentifier(table)
	if err != nil {
		return "", err
	}
	c, err := helper.QuoteIdentifier(e.deltaColumn)
	if err != nil {
		return "", err
	}
	l, err := helper.QuoteLiteral(since.UTC().Format(constants.TimeFormatSqlLiteral))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT * FROM %v WHERE %v > %v", t, c, l), nil
}

// ExtractTable returns the CSV rendering of rows in table changed after since.
// The header is included only when the destination batch file does not already exist.
// A nil slice is returned when there are no changed rows.
func (e *Extractor) ExtractTable(ctx context.Context, batchID string, table string, since time.Time) ([]byte, error) {
	sqltext, err := e.ExtractSQL(table, since)
	if err != nil {
		return nil, err
	}
	exists, err := e.store.Exists(watermark.BatchKey(batchID, table))
	if err != nil {
		return nil, errors.Wrapf(err, "error checking for existing batch file for table %q", table)
	}
	out := file.NewCSVBufferOutput(e.log, !exists)
	e.log.Debug("extracting table ", table, " using SQL: ", sqltext)
	if err = rdbms.SqlQuery(ctx, e.log, e.db, sqltext, out); err != nil {
		return nil, err
	}
	if out.RowCount() == 0 {
		e.log.Debug("no changed rows found in table ", table)
		return nil, nil
	}
	e.stats.Table(constants.StageIngest, table).AddExtracted(out.RowCount())
	return out.Bytes()
}

// Extract runs ExtractTable for each table.
// A failed table does not stop its siblings; all failures are returned together as IngestionErrors.
// Tables without changed rows are absent from the result.
func (e *Extractor) Extract(ctx context.Context, batchID string, tables []string, since time.Time) (map[string][]byte, error) {
	return e.extract(ctx, batchID, tables, func(string) time.Time { return since })
}

func (e *Extractor) extract(ctx context.Context, batchID string, tables []string, since func(table string) time.Time) (map[string][]byte, error) {
	results := make(map[string][]byte)
	var errs IngestionErrors
	for _, table := range tables { // for each source table...
		if err := ctx.Err(); err != nil {
			return results, err
		}
		data, err := e.ExtractTable(ctx, batchID, table, since(table))
		if err != nil {
			e.log.Error("unable to extract table ", table, ": ", err)
			errs = append(errs, &TableIngestionError{Table: table, Err: err})
			continue
		}
		if data != nil {
			results[table] = data
		}
	}
	if len(errs) > 0 {
		return results, errs
	}
	return results, nil
}

// Save writes each extract to <batchID>/<table>.csv, appending to files that already exist.
func (e *Extractor) Save(batchID string, results map[string][]byte) error {
	tables := make([]string, 0, len(results))
	for t := range results {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		if len(results[t]) == 0 {
			continue
		}
		key := watermark.BatchKey(batchID, t)
		if err := e.store.Append(key, results[t]); err != nil {
			return errors.Wrapf(err, "error saving %q", key)
		}
		e.stats.Table(constants.StageIngest, t).AddFilesWritten(1)
		e.log.Info("saved ", key)
	}
	return nil
}

// Run extracts every table changed since its watermark into a new batch named after now.
// A table's watermark is the newest batch holding a file for it, so a table that failed, or had no
// changes, is queried from its own last file rather than from the newest batch in the bucket.
// It returns the batch id. Tables that failed are reported via IngestionErrors after the others are saved.
func (e *Extractor) Run(ctx context.Context, tables []string, now time.Time) (string, error) {
	tracker := watermark.NewTracker(e.log, e.store)
	since, err := tracker.GetWatermark()
	if err != nil {
		return "", err
	}
	marks, err := tracker.TableWatermarks()
	if err != nil {
		return "", err
	}
	batchID := watermark.FormatBatchID(now)
	e.log.Info("extracting changes into batch ", batchID, "; ingestion bucket watermark is ", watermark.FormatBatchID(since))
	results, extractErr := e.extract(ctx, batchID, tables, func(table string) time.Time {
		w, ok := marks[table]
		if !ok {
			w = watermark.Epoch
		}
		e.log.Debug("table ", table, " watermark = ", watermark.FormatBatchID(w))
		return w
	})
	if err = e.Save(batchID, results); err != nil {
		return batchID, err
	}
	return batchID, extractErr
}
