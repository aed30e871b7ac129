package transform

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/totes/aws/s3"
	"github.com/relloyd/totes/constants"
	"github.com/relloyd/totes/file"
	"github.com/relloyd/totes/helper"
	"github.com/relloyd/totes/logger"
	"github.com/relloyd/totes/stats"
	tabledefinition "github.com/relloyd/totes/table-definition"
	"github.com/relloyd/totes/watermark"
)

// Config holds the dependencies of a Transformer.
type Config struct {
	Log       logger.Logger             `errorTxt:"logger" mandatory:"yes"`
	Ingestion s3.BasicClient            `errorTxt:"ingestion bucket client" mandatory:"yes"`
	Processed s3.BasicClient            `errorTxt:"processed bucket client" mandatory:"yes"`
	Registry  *tabledefinition.Registry `errorTxt:"table registry" mandatory:"yes"`
	Stats     *stats.RunStats
}

// Transformer reshapes ingestion batches into star schema batches of the same id.
type Transformer struct {
	log       logger.Logger
	ingestion s3.BasicClient
	processed s3.BasicClient
	registry  *tabledefinition.Registry
	stats     *stats.RunStats
}

func NewTransformer(cfg *Config) (*Transformer, error) {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return nil, err
	}
	return &Transformer{
		log:       cfg.Log,
		ingestion: cfg.Ingestion,
		processed: cfg.Processed,
		registry:  cfg.Registry,
		stats:     cfg.Stats,
	}, nil
}

// TransformPending transforms every ingestion batch newer than the processed bucket watermark, oldest first.
// The processed bucket watermark only counts batches marked complete, so a batch that failed part way
// through is transformed again. It returns the ids transformed.
func (t *Transformer) TransformPending(ctx context.Context) ([]string, error) {
	wp, err := watermark.NewCompletedBatchTracker(t.log, t.processed).GetWatermark()
	if err != nil {
		return nil, err
	}
	t.log.Info("processed bucket watermark is ", watermark.FormatBatchID(wp))
	done, err := t.transformWhere(ctx, func(id string) (bool, error) {
		ts, err := watermark.ParseBatchID(id)
		if err != nil {
			return false, err
		}
		return ts.After(wp), nil
	})
	if err != nil {
		return done, err
	}
	if _, err = EnsureDimDateSnapshot(t.log, t.processed); err != nil {
		return done, err
	}
	return done, nil
}

// TransformBatch transforms a single ingestion batch.
// Lookups are rebuilt from every ingestion batch up to and including batchID.
func (t *Transformer) TransformBatch(ctx context.Context, batchID string) error {
	done, err := t.transformWhere(ctx, func(id string) (bool, error) {
		return id == batchID, nil
	})
	if err != nil {
		return err
	}
	if len(done) == 0 {
		return errors.Errorf("batch %q not found in the ingestion bucket", batchID)
	}
	return nil
}

// transformWhere walks all ingestion batches in time order, maintaining the lookups,
// and transforms the batches selected by want.
// Batches that are not wanted only have their lookup tables read.
func (t *Transformer) transformWhere(ctx context.Context, want func(id string) (bool, error)) ([]string, error) {
	tracker := watermark.NewTracker(t.log, t.ingestion)
	ids, err := tracker.BatchIDs()
	if err != nil {
		return nil, err
	}
	lookups := newLookups()
	done := make([]string, 0)
	for _, id := range ids {
		if err = ctx.Err(); err != nil {
			return done, err
		}
		selected, err := want(id)
		if err != nil {
			return done, err
		}
		files, err := tracker.BatchFiles(id)
		if err != nil {
			return done, err
		}
		tables := make(map[string]*SourceTable)
		for _, f := range files {
			name := strings.TrimSuffix(f, constants.BatchFileExtension)
			if !selected && !isLookupTable(name) {
				continue
			}
			data, err := t.ingestion.Get(watermark.BatchKey(id, name))
			if err != nil {
				return done, errors.Wrapf(err, "error reading %v/%v", id, f)
			}
			if tables[name], err = NewSourceTable(name, data); err != nil {
				return done, err
			}
		}
		b := NewBatch(id, tables, lookups)
		if !selected {
			continue
		}
		if err = t.writeBatch(b); err != nil {
			return done, errors.Wrapf(err, "error transforming batch %q", id)
		}
		done = append(done, id)
	}
	return done, nil
}

// writeBatch saves each star table that can be built from b, then marks the batch complete.
// Every table is rendered before any file is written.
func (t *Transformer) writeBatch(b *Batch) error {
	type output struct {
		table string
		key   string
		data  []byte
		rows  int
	}
	outputs := make([]output, 0, len(StarMappings))
	for _, m := range StarMappings {
		if !b.Has(m.Sources...) {
			continue
		}
		d, err := t.registry.Get(m.Table)
		if err != nil {
			return err
		}
		records, err := m.Map(b)
		if err != nil {
			return err
		}
		rows, err := project(d, records)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			continue
		}
		data, err := file.WriteCSV(d.Columns, rows)
		if err != nil {
			return err
		}
		outputs = append(outputs, output{table: d.Name, key: watermark.BatchKey(b.ID, d.Name), data: data, rows: len(rows)})
	}
	for _, o := range outputs {
		if err := t.processed.Put(o.key, o.data); err != nil {
			return errors.Wrapf(err, "error saving %q", o.key)
		}
		t.stats.Table(constants.StageTransform, o.table).AddFilesWritten(1)
		t.log.Info("saved ", o.key, " with ", o.rows, " row(s)")
	}
	if err := watermark.NewCompletedBatchTracker(t.log, t.processed).MarkComplete(b.ID); err != nil {
		return errors.Wrapf(err, "error marking batch %q complete", b.ID)
	}
	return nil
}

// project orders the fields of records by the descriptor columns, dropping records rejected by its filter.
func project(d *tabledefinition.TableDescriptor, records []Record) ([][]string, error) {
	filter, err := newRowFilter(d.Filter)
	if err != nil {
		return nil, errors.Wrapf(err, "table %q", d.Name)
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		if filter != nil {
			keep, err := filter(r)
			if err != nil {
				return nil, err
			}
			if !keep {
				continue
			}
		}
		row := make([]string, len(d.Columns))
		for i, c := range d.Columns {
			v, ok := r[c]
			if !ok {
				return nil, &tabledefinition.SchemaMismatchError{Table: d.Name, Expected: d.Columns, Got: recordColumns(r)}
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func recordColumns(r Record) []string {
	retval := make([]string, 0, len(r))
	for k := range r {
		retval = append(retval, k)
	}
	sort.Strings(retval)
	return retval
}

func isLookupTable(name string) bool {
	for _, t := range lookupTables {
		if t == name {
			return true
		}
	}
	return false
}
