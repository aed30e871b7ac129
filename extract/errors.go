package extract

import (
	"fmt"
	"strings"
)

// TableIngestionError is returned when a single table could not be extracted.
type TableIngestionError struct {
	Table string
	Err   error
}

func (e *TableIngestionError) Error() string {
	return fmt.Sprintf("error ingesting table %q: %v", e.Table, e.Err)
}

func (e *TableIngestionError) Unwrap() error {
	return e.Err
}

// IngestionErrors collects the failures of one extraction run.
type IngestionErrors []*TableIngestionError

func (e IngestionErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("%v table(s) failed: %v", len(e), strings.Join(msgs, "; "))
}

// Tables returns the names of the failed tables.
func (e IngestionErrors) Tables() []string {
	retval := make([]string, len(e))
	for i, v := range e {
		retval[i] = v.Table
	}
	return retval
}

// As lets errors.As find the first *TableIngestionError.
func (e IngestionErrors) As(target interface{}) bool {
	t, ok := target.(**TableIngestionError)
	if !ok || len(e) == 0 {
		return false
	}
	*t = e[0]
	return true
}
