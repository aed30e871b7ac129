package watermark

import (
	"sort"
	"strings"
	"time"

	"github.com/relloyd/totes/aws/s3"
	"github.com/relloyd/totes/constants"
	"github.com/relloyd/totes/logger"
)

// Tracker derives the watermark of a bucket from the timestamps in its batch keys.
type Tracker struct {
	log    logger.Logger
	client s3.BasicClient
	// completed restricts batches to those with a marker under constants.CompleteMarkerPrefix.
	completed bool
}

func NewTracker(log logger.Logger, client s3.BasicClient) *Tracker {
	return &Tracker{log: log, client: client}
}

// NewCompletedBatchTracker returns a Tracker that only sees batches marked complete with MarkComplete.
// Files of a batch that failed part way through are ignored until the batch is rewritten and marked.
func NewCompletedBatchTracker(log logger.Logger, client s3.BasicClient) *Tracker {
	return &Tracker{log: log, client: client, completed: true}
}

// GetWatermark returns the greatest batch timestamp found in the bucket, or Epoch if there are no batches.
// Reserved keys are skipped. Any other key whose first component is not a timestamp is an error.
func (t *Tracker) GetWatermark() (time.Time, error) {
	if t.completed {
		return t.completedWatermark()
	}
	keys, err := t.client.List("")
	if err != nil {
		return time.Time{}, err
	}
	retval := Epoch
	for _, k := range keys {
		if IsReservedKey(k) {
			continue
		}
		id, _ := SplitKey(k)
		ts, err := ParseBatchID(id)
		if err != nil {
			return time.Time{}, &MissingWatermarkFormatError{Key: k}
		}
		if ts.After(retval) {
			retval = ts
		}
	}
	t.log.Debug("watermark = ", FormatBatchID(retval))
	return retval, nil
}

// TableWatermarks returns, per table, the greatest timestamp of the batches holding a file for it.
// Tables without a file in any batch are absent.
func (t *Tracker) TableWatermarks() (map[string]time.Time, error) {
	keys, err := t.client.List("")
	if err != nil {
		return nil, err
	}
	retval := make(map[string]time.Time)
	for _, k := range keys {
		if IsReservedKey(k) {
			continue
		}
		id, f := SplitKey(k)
		ts, err := ParseBatchID(id)
		if err != nil {
			return nil, &MissingWatermarkFormatError{Key: k}
		}
		if !strings.HasSuffix(f, constants.BatchFileExtension) {
			continue
		}
		table := strings.TrimSuffix(f, constants.BatchFileExtension)
		if w, ok := retval[table]; !ok || ts.After(w) {
			retval[table] = ts
		}
	}
	return retval, nil
}

// BatchIDs returns the distinct batch ids in the bucket in chronological order.
// The ids are the common prefixes found using the key delimiter so object contents are never listed.
func (t *Tracker) BatchIDs() ([]string, error) {
	var ids []string
	var err error
	if t.completed {
		ids, err = t.completedIDs()
	} else {
		ids, err = t.prefixIDs()
	}
	if err != nil {
		return nil, err
	}
	type batch struct {
		id string
		ts time.Time
	}
	batches := make([]batch, 0, len(ids))
	for _, id := range ids {
		ts, err := ParseBatchID(id)
		if err != nil {
			return nil, &MissingWatermarkFormatError{Key: id}
		}
		batches = append(batches, batch{id: id, ts: ts})
	}
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].ts.Before(batches[j].ts)
	})
	retval := make([]string, len(batches))
	for i, b := range batches {
		retval[i] = b.id
	}
	return retval, nil
}

// BatchFiles returns the file names found in batch id, e.g. dim_staff.csv.
func (t *Tracker) BatchFiles(id string) ([]string, error) {
	keys, err := t.client.List(id + constants.BatchKeyDelimiter)
	if err != nil {
		return nil, err
	}
	retval := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, f := SplitKey(k); f != "" {
			retval = append(retval, f)
		}
	}
	return retval, nil
}

// MarkComplete records that every file of batchID has been written.
func (t *Tracker) MarkComplete(batchID string) error {
	if err := t.client.Put(CompleteKey(batchID), []byte{}); err != nil {
		return err
	}
	t.log.Debug("marked batch ", batchID, " complete")
	return nil
}

func (t *Tracker) prefixIDs() ([]string, error) {
	prefixes, err := t.client.ListPrefixes("", constants.BatchKeyDelimiter)
	if err != nil {
		return nil, err
	}
	retval := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if IsReservedKey(p) {
			continue
		}
		retval = append(retval, strings.TrimSuffix(p, constants.BatchKeyDelimiter))
	}
	return retval, nil
}

func (t *Tracker) completedIDs() ([]string, error) {
	keys, err := t.client.List(constants.CompleteMarkerPrefix)
	if err != nil {
		return nil, err
	}
	retval := make([]string, 0, len(keys))
	for _, k := range keys {
		if id := strings.TrimPrefix(k, constants.CompleteMarkerPrefix); id != "" {
			retval = append(retval, id)
		}
	}
	return retval, nil
}

func (t *Tracker) completedWatermark() (time.Time, error) {
	ids, err := t.completedIDs()
	if err != nil {
		return time.Time{}, err
	}
	retval := Epoch
	for _, id := range ids {
		ts, err := ParseBatchID(id)
		if err != nil {
			return time.Time{}, &MissingWatermarkFormatError{Key: CompleteKey(id)}
		}
		if ts.After(retval) {
			retval = ts
		}
	}
	t.log.Debug("completed batch watermark = ", FormatBatchID(retval))
	return retval, nil
}
