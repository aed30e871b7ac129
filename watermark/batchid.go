package watermark

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/relloyd/totes/constants"
)

// Epoch is the watermark of an empty bucket.
var Epoch = time.Unix(0, 0).UTC()

var reBatchID = regexp.MustCompile(constants.TimeFormatBatchIDRegex)

// parseLayouts are tried in order by ParseBatchID.
var parseLayouts = []string{
	constants.TimeFormatBatchID,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// MissingWatermarkFormatError is returned when a batch key does not start with a timestamp.
type MissingWatermarkFormatError struct {
	Key string
}

func (e *MissingWatermarkFormatError) Error() string {
	return fmt.Sprintf("object key %q does not start with a batch timestamp", e.Key)
}

// NonTimestampedCSVError is the same error under the name used by the ingestion stage.
type NonTimestampedCSVError = MissingWatermarkFormatError

// FormatBatchID returns the batch id for t: a fixed-width UTC timestamp whose lexical order is chronological.
func FormatBatchID(t time.Time) string {
	return t.UTC().Format(constants.TimeFormatBatchID)
}

// ParseBatchID parses a batch id. RFC 3339 and second-precision ids written by older runs are accepted.
func ParseBatchID(id string) (time.Time, error) {
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, id); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &MissingWatermarkFormatError{Key: id}
}

// IsCanonicalBatchID returns true when id is in the format produced by FormatBatchID.
func IsCanonicalBatchID(id string) bool {
	return reBatchID.MatchString(id)
}

// BatchKey returns the object key of a table file within a batch.
func BatchKey(batchID string, table string) string {
	return batchID + constants.BatchKeyDelimiter + table + constants.BatchFileExtension
}

// SplitKey splits an object key of the form <batch id>/<file name>.
// The file name is empty for keys without a delimiter.
func SplitKey(key string) (batchID string, fileName string) {
	i := strings.Index(key, constants.BatchKeyDelimiter)
	if i < 0 {
		return key, ""
	}
	return key[:i], key[i+len(constants.BatchKeyDelimiter):]
}

// IsReservedKey returns true for objects that live alongside batches but are not part of one.
func IsReservedKey(key string) bool {
	return key == constants.CacheKey ||
		key == constants.DimDateSnapshotKey ||
		strings.HasPrefix(key, constants.CacheMarkerPrefix) ||
		strings.HasPrefix(key, constants.CompleteMarkerPrefix)
}

// CompleteKey returns the object key that marks batchID as fully written.
func CompleteKey(batchID string) string {
	return constants.CompleteMarkerPrefix + batchID
}
