package transform

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/totes/aws/s3"
	"github.com/relloyd/totes/constants"
	"github.com/relloyd/totes/file"
	"github.com/relloyd/totes/logger"
)

var (
	DimDateStart   = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	DimDateEnd     = time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC)
	DimDateColumns = []string{"date_id", "year", "month", "day", "day_of_week", "day_name", "month_name", "quarter"}
)

// GenerateDimDate returns one calendar row per day from start to end inclusive.
// day_of_week counts from Monday = 0.
func GenerateDimDate(start time.Time, end time.Time) [][]string {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	retval := make([][]string, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		retval = append(retval, []string{
			d.Format(constants.TimeFormatDate),
			strconv.Itoa(d.Year()),
			strconv.Itoa(int(d.Month())),
			strconv.Itoa(d.Day()),
			strconv.Itoa((int(d.Weekday()) + 6) % 7),
			d.Weekday().String(),
			d.Month().String(),
			strconv.Itoa((int(d.Month())-1)/3 + 1),
		})
	}
	return retval
}

// DimDateSnapshot renders the default calendar as CSV.
func DimDateSnapshot() ([]byte, error) {
	return file.WriteCSV(DimDateColumns, GenerateDimDate(DimDateStart, DimDateEnd))
}

// EnsureDimDateSnapshot returns the calendar snapshot stored in the processed bucket,
// generating and saving it first if it is missing.
func EnsureDimDateSnapshot(log logger.Logger, store s3.BasicClient) ([]byte, error) {
	data, err := store.Get(constants.DimDateSnapshotKey)
	if err == nil {
		return data, nil
	}
	if err != s3.ErrKeyNotFound {
		return nil, errors.Wrap(err, "error reading calendar snapshot")
	}
	if data, err = DimDateSnapshot(); err != nil {
		return nil, err
	}
	if err = store.Put(constants.DimDateSnapshotKey, data); err != nil {
		return nil, errors.Wrap(err, "error saving calendar snapshot")
	}
	log.Info("generated calendar snapshot ", constants.DimDateSnapshotKey)
	return data, nil
}
