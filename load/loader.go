package load

import (
	"context"
	"fmt"
	"strings"

	om "github.com/cevaris/ordered_map"
	"github.com/pkg/errors"
	"github.com/relloyd/totes/aws/s3"
	"github.com/relloyd/totes/batchcache"
	"github.com/relloyd/totes/constants"
	"github.com/relloyd/totes/helper"
	"github.com/relloyd/totes/logger"
	"github.com/relloyd/totes/rdbms"
	"github.com/relloyd/totes/rdbms/shared"
	"github.com/relloyd/totes/stats"
	tabledefinition "github.com/relloyd/totes/table-definition"
	"github.com/relloyd/totes/transform"
	"github.com/relloyd/totes/watermark"
)

// Config holds the dependencies of a Loader.
type Config struct {
	Log             logger.Logger             `errorTxt:"logger" mandatory:"yes"`
	Warehouse       shared.Connector          `errorTxt:"warehouse connection" mandatory:"yes"`
	Store           s3.BasicClient            `errorTxt:"processed bucket client" mandatory:"yes"`
	Registry        *tabledefinition.Registry `errorTxt:"table registry" mandatory:"yes"`
	Schema          string                    `errorTxt:"warehouse schema"`
	InsertBatchSize int                       `errorTxt:"insert batch size"`
	Stats           *stats.RunStats
}

// MergeResult counts the rows applied from one file.
type MergeResult struct {
	Inserted  int
	Updated   int
	Unchanged int
}

// Loader merges processed batches into the warehouse exactly once.
type Loader struct {
	log             logger.Logger
	db              shared.Connector
	store           s3.BasicClient
	registry        *tabledefinition.Registry
	schema          string
	insertBatchSize int
	cache           *batchcache.Cache
	tracker         *watermark.Tracker
	stats           *stats.RunStats
}

func NewLoader(cfg *Config) (*Loader, error) {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return nil, err
	}
	if cfg.InsertBatchSize < 1 {
		cfg.InsertBatchSize = constants.DefaultInsertBatchSize
	}
	return &Loader{
		log:             cfg.Log,
		db:              cfg.Warehouse,
		store:           cfg.Store,
		registry:        cfg.Registry,
		schema:          cfg.Schema,
		insertBatchSize: cfg.InsertBatchSize,
		cache:           batchcache.NewCache(cfg.Log, cfg.Store),
		tracker:         watermark.NewCompletedBatchTracker(cfg.Log, cfg.Store),
		stats:           cfg.Stats,
	}, nil
}

// MergeUnprocessedBatches loads every complete batch in the processed bucket that is not yet in the batch cache.
// Batches are merged oldest first. Processing stops at the first batch that fails so newer
// values are never overwritten by an older batch when the failed one is retried.
func (l *Loader) MergeUnprocessedBatches(ctx context.Context) error {
	if err := l.PopulateDimDate(ctx); err != nil {
		return err
	}
	present, err := l.tracker.BatchIDs()
	if err != nil {
		return err
	}
	pending, err := l.cache.Pending(present)
	if err != nil {
		return err
	}
	l.log.Info("found ", len(pending), " unprocessed batch(es) of ", len(present))
	for _, id := range pending { // for each batch in time order...
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = l.MergeBatch(ctx, id); err != nil {
			l.log.Error("batch ", id, " failed and will be retried on the next run: ", err)
			return errors.Wrapf(err, "error merging batch %q", id)
		}
		if err = l.cache.MarkProcessed(id); err != nil {
			return err
		}
		l.log.Info("batch ", id, " merged")
	}
	return nil
}

// MergeBatch applies every file of batchID, dimensions first.
// Each file is applied in its own transaction.
func (l *Loader) MergeBatch(ctx context.Context, batchID string) error {
	files, err := l.tracker.BatchFiles(batchID)
	if err != nil {
		return err
	}
	for _, f := range l.registry.SortFileNames(files) {
		if _, err = l.MergeFile(ctx, batchID, f); err != nil {
			return err
		}
	}
	return nil
}

// MergeFile inserts the rows of <batchID>/<fileName> whose keys are new to the warehouse table and
// updates those whose values differ. Identical rows are skipped.
func (l *Loader) MergeFile(ctx context.Context, batchID string, fileName string) (MergeResult, error) {
	d, err := l.registry.GetByFileName(fileName)
	if err != nil {
		return MergeResult{}, err
	}
	key := batchID + constants.BatchKeyDelimiter + fileName
	data, err := l.store.Get(key)
	if err != nil {
		return MergeResult{}, errors.Wrapf(err, "error reading %q", key)
	}
	tab, err := tabledefinition.ParseCSV(d, data)
	if err != nil {
		return MergeResult{}, err
	}
	if len(tab.Rows) == 0 {
		return MergeResult{}, nil
	}
	current, err := l.currentRows(ctx, d)
	if err != nil {
		return MergeResult{}, err
	}
	res, err := l.apply(ctx, tab, current)
	if err != nil {
		return res, errors.Wrapf(err, "error applying %q", key)
	}
	l.log.Info(key, ": inserted=", res.Inserted, " updated=", res.Updated, " unchanged=", res.Unchanged)
	return res, nil
}

// MissingTableError is returned when a star schema table has not been created in the warehouse.
type MissingTableError struct {
	Table string
	Err   error
}

func (e *MissingTableError) Error() string {
	return fmt.Sprintf("warehouse table %v does not exist; create the star schema tables before loading: %v", e.Table, e.Err)
}

func (e *MissingTableError) Unwrap() error {
	return e.Err
}

// PopulateDimDate fills an empty dim_date table from the calendar snapshot, generating the snapshot if required.
func (l *Loader) PopulateDimDate(ctx context.Context) error {
	d, err := l.registry.Get(constants.DimDateTable)
	if err != nil {
		return err
	}
	sqltext := fmt.Sprintf("SELECT COUNT(*) FROM %v", l.qualifiedName(d.Name))
	_, rows, err := rdbms.SqlQueryAll(ctx, l.log, l.db, sqltext)
	if rdbms.IsUndefinedTableError(err) {
		return &MissingTableError{Table: l.qualifiedName(d.Name), Err: err}
	}
	if err != nil {
		return errors.Wrap(err, "error counting dim_date rows")
	}
	if len(rows) != 1 || len(rows[0]) != 1 {
		return fmt.Errorf("unexpected result counting dim_date rows: %v", rows)
	}
	if n := helper.ValueToString(rows[0][0]); n != "0" {
		l.log.Debug("dim_date already contains ", n, " rows")
		return nil
	}
	data, err := transform.EnsureDimDateSnapshot(l.log, l.store)
	if err != nil {
		return err
	}
	tab, err := tabledefinition.ParseCSV(d, data)
	if err != nil {
		return err
	}
	res, err := l.apply(ctx, tab, map[string][]string{})
	if err != nil {
		return errors.Wrap(err, "error populating dim_date")
	}
	l.log.Info("populated dim_date with ", res.Inserted, " rows")
	return nil
}

// currentRows returns the warehouse rows of d keyed by their key value, rendered as CSV text.
func (l *Loader) currentRows(ctx context.Context, d *tabledefinition.TableDescriptor) (map[string][]string, error) {
	cols, err := helper.QuoteIdentifiers(d.Columns)
	if err != nil {
		return nil, err
	}
	sqltext := fmt.Sprintf("SELECT %v FROM %v", strings.Join(cols, ","), l.qualifiedName(d.Name))
	_, rows, err := rdbms.SqlQueryAll(ctx, l.log, l.db, sqltext)
	if err != nil {
		return nil, err
	}
	offset := d.KeyOffset()
	retval := make(map[string][]string, len(rows))
	for _, r := range rows {
		v := helper.ValuesToStrings(r)
		retval[v[offset]] = v
	}
	return retval, nil
}

// apply writes the rows of tab that differ from current inside one transaction.
// Later rows in tab win over earlier rows with the same key.
func (l *Loader) apply(ctx context.Context, tab *tabledefinition.Table, current map[string][]string) (res MergeResult, err error) {
	d := tab.Descriptor
	incoming := om.NewOrderedMap() // key = row key; value = []string
	for _, row := range tab.Rows {
		incoming.Set(tab.Key(row), row)
	}
	toInsert := make([][]string, 0)
	toUpdate := make([][]string, 0)
	iter := incoming.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() { // for each distinct incoming key...
		row := kv.Value.([]string)
		existing, found := current[kv.Key.(string)]
		switch {
		case !found:
			toInsert = append(toInsert, row)
		case equalRows(existing, row):
			res.Unchanged++
		default:
			toUpdate = append(toUpdate, row)
		}
	}
	tabStats := l.stats.Table(constants.StageLoad, d.Name)
	tabStats.AddUnchanged(res.Unchanged)
	if len(toInsert) == 0 && len(toUpdate) == 0 {
		return res, nil
	}
	cfg := l.generatorConfig(d)
	tx, err := l.db.BeginTx(ctx)
	if err != nil {
		return res, errors.Wrap(err, "error starting transaction")
	}
	defer func() {
		if err != nil {
			if err2 := tx.Rollback(); err2 != nil {
				l.log.Warn("rollback failed: ", err2)
			}
		}
	}()
	// Updates.
	if len(toUpdate) > 0 {
		updater, ok := l.db.GetDmlGenerator().NewUpdateGenerator(cfg).(shared.SqlStmtTxtBatcher)
		if !ok {
			return res, errors.New("update generator does not support batching")
		}
		for _, row := range toUpdate {
			updater.InitBatch(1)
			if _, err = updater.AddValuesToBatch(keyFirstValues(d, row)); err != nil {
				return res, err
			}
			if _, err = tx.ExecContext(ctx, updater.GetStatement(), updater.GetValues()...); err != nil {
				return res, errors.Wrapf(err, "error updating %v key %q", d.Name, row[d.KeyOffset()])
			}
			res.Updated++
		}
	}
	// Inserts.
	if len(toInsert) > 0 {
		inserter, ok := l.db.GetDmlGenerator().NewInsertGenerator(cfg).(shared.SqlStmtTxtBatcher)
		if !ok {
			return res, errors.New("insert generator does not support batching")
		}
		batchSize := l.insertBatchSize
		if lim, ok := inserter.(shared.SqlRowLimiter); ok {
			batchSize = lim.MaxRowsPerStatement(batchSize)
		}
		execBatch := func() error {
			if _, err := tx.ExecContext(ctx, inserter.GetStatement(), inserter.GetValues()...); err != nil {
				return errors.Wrapf(err, "error inserting into %v", d.Name)
			}
			return nil
		}
		inserter.InitBatch(batchSize)
		pendingRows := 0
		for _, row := range toInsert {
			var full bool
			if full, err = inserter.AddValuesToBatch(keyFirstValues(d, row)); err != nil {
				return res, err
			}
			pendingRows++
			if full {
				if err = execBatch(); err != nil {
					return res, err
				}
				res.Inserted += pendingRows
				pendingRows = 0
				inserter.InitBatch(batchSize)
			}
		}
		if pendingRows > 0 {
			if err = execBatch(); err != nil {
				return res, err
			}
			res.Inserted += pendingRows
		}
	}
	if err = tx.Commit(); err != nil {
		return res, errors.Wrap(err, "error committing transaction")
	}
	tabStats.AddInserted(res.Inserted)
	tabStats.AddUpdated(res.Updated)
	return res, nil
}

// generatorConfig maps the key column and the remaining columns of d for the DML generators.
func (l *Loader) generatorConfig(d *tabledefinition.TableDescriptor) *shared.SqlStatementGeneratorConfig {
	others := make([]string, 0, len(d.Columns))
	for _, c := range d.Columns {
		if c != d.KeyColumn {
			others = append(others, c)
		}
	}
	return &shared.SqlStatementGeneratorConfig{
		Log:             l.log,
		OutputSchema:    l.schema,
		OutputTable:     d.Name,
		TargetKeyCols:   helper.StringSliceToOrderedMap([]string{d.KeyColumn}),
		TargetOtherCols: helper.StringSliceToOrderedMap(others),
	}
}

func (l *Loader) qualifiedName(table string) string {
	if l.schema == "" {
		return helper.MustQuoteIdentifier(table)
	}
	return helper.MustQuoteIdentifier(l.schema) + "." + helper.MustQuoteIdentifier(table)
}

// keyFirstValues returns the bind values of row with the key moved to the front.
// Empty fields bind as NULL.
func keyFirstValues(d *tabledefinition.TableDescriptor, row []string) []interface{} {
	offset := d.KeyOffset()
	ordered := make([]string, 0, len(row))
	ordered = append(ordered, row[offset])
	ordered = append(ordered, row[:offset]...)
	ordered = append(ordered, row[offset+1:]...)
	return helper.StringsToInterfaces(ordered)
}

func equalRows(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
