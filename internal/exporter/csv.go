package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
)

// utf8BOM helps Excel recognize UTF-8 output
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality over any io.Writer
type CSVWriter struct {
	out        io.Writer
	wroteBytes bool
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(out io.Writer) *CSVWriter {
	return &CSVWriter{out: out}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes one table. The BOM is only written before the first table.
func (w *CSVWriter) WriteCSV(options WriteOptions) error {
	if options.BOMPrefix && !w.wroteBytes {
		if _, err := w.out.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}
	w.wroteBytes = true

	writer := csv.NewWriter(w.out)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteSimpleCSV writes headers and records without a BOM
func (w *CSVWriter) WriteSimpleCSV(headers []string, records [][]string) error {
	return w.WriteCSV(WriteOptions{
		Headers: headers,
		Records: records,
	})
}

// WriteLine writes a raw line, used for section titles and separators
func (w *CSVWriter) WriteLine(line string) error {
	w.wroteBytes = true
	_, err := io.WriteString(w.out, line+"\n")
	return err
}

// StreamWriter provides streaming CSV writing for large tables
type StreamWriter struct {
	writer *csv.Writer
}

// CreateStreamWriter starts a table and writes its headers
func (w *CSVWriter) CreateStreamWriter(headers []string) (*StreamWriter, error) {
	w.wroteBytes = true
	writer := csv.NewWriter(w.out)

	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}

	return &StreamWriter{writer: writer}, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.writer.Write(record)
}

// Close flushes the stream
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	return s.writer.Error()
}
