package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/totes/aws/s3"
	"github.com/relloyd/totes/batchcache"
	"github.com/relloyd/totes/config"
	"github.com/relloyd/totes/constants"
	"github.com/relloyd/totes/extract"
	"github.com/relloyd/totes/helper"
	"github.com/relloyd/totes/load"
	"github.com/relloyd/totes/logger"
	"github.com/relloyd/totes/stats"
	tabledefinition "github.com/relloyd/totes/table-definition"
	"github.com/relloyd/totes/transform"
	"github.com/relloyd/totes/watermark"
)

// PipelineConfig holds everything a pipeline stage needs for one invocation.
type PipelineConfig struct {
	Log       logger.Logger    `errorTxt:"logger" mandatory:"yes"`
	Settings  *config.Settings `errorTxt:"settings" mandatory:"yes"`
	Resources Resources        `errorTxt:"resources" mandatory:"yes"`
	Registry  *tabledefinition.Registry
	Stats     *stats.RunStats
	Now       func() time.Time
}

// StageResult describes the outcome of a stage for CLI and HTTP callers.
type StageResult struct {
	Stage    string        `json:"stage"`
	BatchID  string        `json:"batchId,omitempty"`
	Batches  []string      `json:"batches,omitempty"`
	Stats    []stats.Stats `json:"stats"`
	Duration string        `json:"duration"`
}

func (c *PipelineConfig) validate() error {
	if c == nil {
		return errors.New("nil pointer to pipeline config supplied")
	}
	if err := helper.ValidateStructIsPopulated(c); err != nil {
		return err
	}
	if c.Stats == nil {
		c.Stats = stats.NewRunStats(c.Log)
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Registry == nil { // if we need to load table descriptors...
		var err error
		if c.Settings.DescriptorFile != "" {
			c.Registry, err = tabledefinition.NewRegistryFromFile(c.Settings.DescriptorFile)
		} else {
			c.Registry = tabledefinition.NewRegistry()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// RunIngest extracts rows changed since the ingestion bucket watermark into a new batch.
// It returns the batch id.
func RunIngest(ctx context.Context, cfg *PipelineConfig) (string, error) {
	if err := cfg.validate(); err != nil {
		return "", err
	}
	store, err := cfg.Resources.Store(constants.RoleIngestionBucket)
	if err != nil {
		return "", err
	}
	db, err := cfg.Resources.OpenDatabase(constants.RoleIngestion)
	if err != nil {
		return "", err
	}
	defer db.Close()
	e, err := extract.NewExtractor(&extract.Config{
		Log:         cfg.Log,
		Source:      db,
		Store:       store,
		DeltaColumn: cfg.Settings.DeltaColumn,
		Stats:       cfg.Stats,
	})
	if err != nil {
		return "", err
	}
	return e.Run(ctx, cfg.Settings.Tables, cfg.Now())
}

// RunTransform reshapes every new ingestion batch into the processed bucket.
// It returns the ids transformed.
func RunTransform(ctx context.Context, cfg *PipelineConfig) ([]string, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	ingestion, err := cfg.Resources.Store(constants.RoleIngestionBucket)
	if err != nil {
		return nil, err
	}
	processed, err := cfg.Resources.Store(constants.RoleProcessedBucket)
	if err != nil {
		return nil, err
	}
	t, err := transform.NewTransformer(&transform.Config{
		Log:       cfg.Log,
		Ingestion: ingestion,
		Processed: processed,
		Registry:  cfg.Registry,
		Stats:     cfg.Stats,
	})
	if err != nil {
		return nil, err
	}
	return t.TransformPending(ctx)
}

// RunLoad merges every processed batch missing from the batch cache into the warehouse.
func RunLoad(ctx context.Context, cfg *PipelineConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	store, err := cfg.Resources.Store(constants.RoleProcessedBucket)
	if err != nil {
		return err
	}
	db, err := cfg.Resources.OpenDatabase(constants.RoleWarehouse)
	if err != nil {
		return err
	}
	defer db.Close()
	l, err := load.NewLoader(&load.Config{
		Log:             cfg.Log,
		Warehouse:       db,
		Store:           store,
		Registry:        cfg.Registry,
		Schema:          cfg.Settings.WarehouseSchema,
		InsertBatchSize: cfg.Settings.InsertBatchSize,
		Stats:           cfg.Stats,
	})
	if err != nil {
		return err
	}
	return l.MergeUnprocessedBatches(ctx)
}

// RunAll runs ingest, transform and load in order.
// Tables that fail to ingest do not stop the later stages; their errors are returned once the run completes.
func RunAll(ctx context.Context, cfg *PipelineConfig) error {
	_, ingestErr := RunIngest(ctx, cfg)
	var ie extract.IngestionErrors
	if ingestErr != nil && !errors.As(ingestErr, &ie) { // if the stage failed outright...
		return ingestErr
	}
	if _, err := RunTransform(ctx, cfg); err != nil {
		return err
	}
	if err := RunLoad(ctx, cfg); err != nil {
		return err
	}
	return ingestErr
}

// RunStage runs the named stage and returns a summary including the run statistics.
// Errors are logged before they are returned.
func RunStage(ctx context.Context, cfg *PipelineConfig, stage string) (*StageResult, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	res := &StageResult{Stage: stage}
	var err error
	cfg.Log.Info("starting stage ", stage)
	switch stage {
	case constants.StageIngest:
		res.BatchID, err = RunIngest(ctx, cfg)
	case constants.StageTransform:
		res.Batches, err = RunTransform(ctx, cfg)
	case constants.StageLoad:
		err = RunLoad(ctx, cfg)
	case constants.StageAll:
		err = RunAll(ctx, cfg)
	default:
		err = fmt.Errorf("unsupported stage %q", stage)
	}
	cfg.Stats.LogStats()
	res.Stats = cfg.Stats.GetStats()
	res.Duration = time.Since(start).Round(time.Millisecond).String()
	if err != nil {
		cfg.Log.Error(constants.EmojiBang, " stage ", stage, " failed: ", err)
		return res, err
	}
	cfg.Log.Info("stage ", stage, " complete")
	return res, nil
}

// WatermarkResult is the watermark of one bucket.
type WatermarkResult struct {
	Role      string `json:"role"`
	Watermark string `json:"watermark"`
}

// GetWatermark returns the newest batch id in the bucket of the given role, or the epoch if it is empty.
func GetWatermark(cfg *PipelineConfig, role string) (*WatermarkResult, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	store, err := cfg.Resources.Store(role)
	if err != nil {
		return nil, err
	}
	w, err := trackerFor(cfg, role, store).GetWatermark()
	if err != nil {
		return nil, err
	}
	return &WatermarkResult{Role: role, Watermark: watermark.FormatBatchID(w)}, nil
}

// CacheResult lists the batches recorded as merged and those still pending.
type CacheResult struct {
	Processed []string `json:"processed"`
	Pending   []string `json:"pending"`
}

// ListCache reads the batch cache of the processed bucket.
func ListCache(cfg *PipelineConfig) (*CacheResult, error) {
	c, tracker, err := cacheFor(cfg)
	if err != nil {
		return nil, err
	}
	done, err := c.Load()
	if err != nil {
		return nil, err
	}
	present, err := tracker.BatchIDs()
	if err != nil {
		return nil, err
	}
	return &CacheResult{Processed: done.Sorted(), Pending: batchcache.Pending(present, done)}, nil
}

// MarkCache records batchIDs as merged without loading them.
func MarkCache(cfg *PipelineConfig, batchIDs []string) error {
	c, _, err := cacheFor(cfg)
	if err != nil {
		return err
	}
	for _, id := range batchIDs {
		if !watermark.IsCanonicalBatchID(id) { // if the id may come from an older run...
			if _, err = watermark.ParseBatchID(id); err != nil {
				return err
			}
			cfg.Log.Warn("batch id ", id, " is not in the format ", constants.TimeFormatBatchID)
		}
		if err = c.MarkProcessed(id); err != nil {
			return err
		}
		cfg.Log.Info("marked batch ", id, " as processed")
	}
	return nil
}

func cacheFor(cfg *PipelineConfig) (*batchcache.Cache, *watermark.Tracker, error) {
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}
	store, err := cfg.Resources.Store(constants.RoleProcessedBucket)
	if err != nil {
		return nil, nil, err
	}
	return batchcache.NewCache(cfg.Log, store), trackerFor(cfg, constants.RoleProcessedBucket, store), nil
}

// trackerFor returns the tracker the pipeline uses for the bucket in role.
// Processed batches only count once they are marked complete.
func trackerFor(cfg *PipelineConfig, role string, store s3.BasicClient) *watermark.Tracker {
	if role == constants.RoleProcessedBucket {
		return watermark.NewCompletedBatchTracker(cfg.Log, store)
	}
	return watermark.NewTracker(cfg.Log, store)
}

// bucketRoles maps short names accepted by the CLI and HTTP server to bucket roles.
var bucketRoles = map[string]string{
	"ingestion":                   constants.RoleIngestionBucket,
	"processed":                   constants.RoleProcessedBucket,
	constants.RoleIngestionBucket: constants.RoleIngestionBucket,
	constants.RoleProcessedBucket: constants.RoleProcessedBucket,
}

// BucketRole resolves name, e.g. "ingestion", to a bucket role.
func BucketRole(name string) (string, error) {
	r, ok := bucketRoles[name]
	if !ok {
		return "", fmt.Errorf("unknown bucket %q: expected ingestion or processed", name)
	}
	return r, nil
}
