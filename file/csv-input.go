package file

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// ErrEmptyCSV is returned when a CSV file has no header record.
var ErrEmptyCSV = errors.New("CSV file is empty")

// ReadCSV parses data into its header and rows.
// Every row must have the same number of fields as the header.
func ReadCSV(data []byte) (header []string, rows [][]string, err error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.ReuseRecord = false
	header, err = r.Read()
	if err == io.EOF {
		return nil, nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, nil, fmt.Errorf("error reading CSV header: %w", err)
	}
	r.FieldsPerRecord = len(header)
	rows = make([][]string, 0)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("error reading CSV row %v: %w", len(rows)+1, err)
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

// IndexHeader returns a map of column name to position in header.
func IndexHeader(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, c := range header {
		m[c] = i
	}
	return m
}
