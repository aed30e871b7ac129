package file

import (
	"bytes"
	"encoding/csv"
	"fmt"

	h "github.com/relloyd/totes/helper"
	"github.com/relloyd/totes/logger"
)

// CSVBufferOutput is a SqlResultHandler that renders a query result as CSV in memory.
// NULLs are written as empty fields.
type CSVBufferOutput struct {
	log           logger.Logger
	buf           *bytes.Buffer
	csvWriter     *csv.Writer
	includeHeader bool
	header        []string
	rowCount      int
}

// NewCSVBufferOutput creates a new CSV buffer.
// Set includeHeader to false when the rows will be appended to an existing CSV file.
func NewCSVBufferOutput(log logger.Logger, includeHeader bool) *CSVBufferOutput {
	buf := &bytes.Buffer{}
	return &CSVBufferOutput{
		log:           log,
		buf:           buf,
		csvWriter:     csv.NewWriter(buf),
		includeHeader: includeHeader,
	}
}

func (f *CSVBufferOutput) HandleHeader(i []interface{}) error {
	f.header = h.ValuesToStrings(i)
	if !f.includeHeader {
		return nil
	}
	f.log.Trace("Writing CSV header: ", f.header)
	if err := f.csvWriter.Write(f.header); err != nil {
		return fmt.Errorf("unable to write CSV header: %w", err)
	}
	return nil
}

func (f *CSVBufferOutput) HandleRow(i []interface{}) error {
	if err := f.csvWriter.Write(h.ValuesToStrings(i)); err != nil {
		return fmt.Errorf("unable to write CSV row: %w", err)
	}
	f.rowCount++
	return nil
}

// Header returns the column names supplied to HandleHeader.
func (f *CSVBufferOutput) Header() []string {
	return f.header
}

// RowCount returns the number of data rows written, excluding the header.
func (f *CSVBufferOutput) RowCount() int {
	return f.rowCount
}

// Bytes flushes the CSV writer and returns the buffer contents.
func (f *CSVBufferOutput) Bytes() ([]byte, error) {
	f.csvWriter.Flush()
	if err := f.csvWriter.Error(); err != nil {
		return nil, err
	}
	return f.buf.Bytes(), nil
}

// WriteCSV renders header and rows as CSV.
func WriteCSV(header []string, rows [][]string) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil { // WriteAll flushes.
		return nil, err
	}
	return buf.Bytes(), nil
}
