package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cevaris/ordered_map"
	"github.com/relloyd/totes/logger"
)

// StatsFetcher returns a snapshot of the counters collected so far.
type StatsFetcher interface {
	GetStats() []Stats
}

// TableStats holds the counters for one table in one stage.
type TableStats struct {
	stage        string
	table        string
	extracted    int64
	filesWritten int64
	inserted     int64
	updated      int64
	unchanged    int64
}

func (s *TableStats) AddExtracted(n int)    { atomic.AddInt64(&s.extracted, int64(n)) }
func (s *TableStats) AddFilesWritten(n int) { atomic.AddInt64(&s.filesWritten, int64(n)) }
func (s *TableStats) AddInserted(n int)     { atomic.AddInt64(&s.inserted, int64(n)) }
func (s *TableStats) AddUpdated(n int)      { atomic.AddInt64(&s.updated, int64(n)) }
func (s *TableStats) AddUnchanged(n int)    { atomic.AddInt64(&s.unchanged, int64(n)) }

// Stats is a point in time copy of TableStats.
type Stats struct {
	Stage        string `json:"stage"`
	Table        string `json:"table"`
	Extracted    int    `json:"extracted"`
	FilesWritten int    `json:"filesWritten"`
	Inserted     int    `json:"inserted"`
	Updated      int    `json:"updated"`
	Unchanged    int    `json:"unchanged"`
}

func (s *TableStats) render() Stats {
	return Stats{
		Stage:        s.stage,
		Table:        s.table,
		Extracted:    int(atomic.LoadInt64(&s.extracted)),
		FilesWritten: int(atomic.LoadInt64(&s.filesWritten)),
		Inserted:     int(atomic.LoadInt64(&s.inserted)),
		Updated:      int(atomic.LoadInt64(&s.updated)),
		Unchanged:    int(atomic.LoadInt64(&s.unchanged)),
	}
}

// String will format the stats for general logging.
func (s Stats) String() string {
	return fmt.Sprintf(
		"Stats for %v %v "+
			"extracted=%v "+
			"filesWritten=%v "+
			"inserted=%v "+
			"updated=%v "+
			"unchanged=%v",
		s.Stage, s.Table,
		s.Extracted,
		s.FilesWritten,
		s.Inserted,
		s.Updated,
		s.Unchanged,
	)
}

// RunStats implements StatsFetcher and collects per table counters for one invocation.
// Tables are reported in the order they were first seen.
type RunStats struct {
	mu        sync.Mutex
	log       logger.Logger
	startTime time.Time
	mapTables *ordered_map.OrderedMap // key = stage/table; value = *TableStats
}

func NewRunStats(log logger.Logger) *RunStats {
	return &RunStats{log: log, startTime: time.Now(), mapTables: ordered_map.NewOrderedMap()}
}

// Table returns the counters for table in stage, creating them if required.
// A nil RunStats returns a detached TableStats so callers need not check.
func (r *RunStats) Table(stage string, table string) *TableStats {
	if r == nil {
		return &TableStats{stage: stage, table: table}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := stage + "/" + table
	if v, ok := r.mapTables.Get(k); ok {
		return v.(*TableStats)
	}
	s := &TableStats{stage: stage, table: table}
	r.mapTables.Set(k, s)
	return s
}

// GetStats implements interface StatsFetcher{}.
func (r *RunStats) GetStats() []Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	statsList := make([]Stats, 0, r.mapTables.Len())
	iter := r.mapTables.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() { // for each table seen...
		statsList = append(statsList, kv.Value.(*TableStats).render())
	}
	return statsList
}

// LogStats writes one line per table followed by the elapsed time.
func (r *RunStats) LogStats() {
	for _, s := range r.GetStats() {
		r.log.Info(s.String())
	}
	r.log.Info("elapsed time ", time.Since(r.startTime).Round(time.Millisecond))
}
