package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apierrors "explaincli/internal/errors"
)

// Supported file extensions
const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
)

// Load reads a dataset file, choosing the reader by extension
func Load(path string, opts Options) (*Table, error) {
	var (
		table *Table
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ExtCSV:
		table, err = loadCSVFile(path, opts)
	case ExtXLSX:
		table, err = LoadXLSX(path, opts)
	default:
		return nil, apierrors.NewAppValidationError(fmt.Sprintf("unsupported dataset format %q", ext)).
			WithContext("path", path)
	}
	if err != nil {
		return nil, err
	}
	table.Source = filepath.Base(path)
	return table, nil
}

func loadCSVFile(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apierrors.NewStorageError("failed to open dataset", err).WithContext("path", path)
	}
	defer f.Close()
	return LoadCSV(f, opts)
}

// LoadCSV parses comma separated records with a header row
func LoadCSV(r io.Reader, opts Options) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, apierrors.NewParsingError("dataset is empty", nil)
	}
	if err != nil {
		return nil, apierrors.NewParsingError("failed to read header", err)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apierrors.NewParsingError("failed to read records", err)
	}

	table, err := parseRecords(header, records, 2, opts)
	if err != nil {
		return nil, err
	}
	table.Source = "csv"
	return table, nil
}

// LoadXLSX parses the selected worksheet of an Excel workbook. The first
// non-empty row is the header.
func LoadXLSX(path string, opts Options) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apierrors.NewStorageError("failed to open workbook", err).WithContext("path", path)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apierrors.NewParsingError("workbook has no sheets", nil).WithContext("path", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apierrors.NewParsingError(fmt.Sprintf("failed to read sheet %q", sheet), err).
			WithContext("sheet", sheet)
	}

	// Skip leading blank rows
	start := 0
	for start < len(rows) && isBlank(rows[start]) {
		start++
	}
	if start == len(rows) {
		return nil, apierrors.NewParsingError(fmt.Sprintf("sheet %q is empty", sheet), nil).
			WithContext("sheet", sheet)
	}

	header := rows[start]
	// GetRows drops trailing empty cells, so short rows are padded by cell()
	table, err := parseRecords(header, rows[start+1:], start+2, opts)
	if err != nil {
		return nil, err
	}
	table.Source = "xlsx"
	return table, nil
}
