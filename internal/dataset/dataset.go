package dataset

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	apierrors "explaincli/internal/errors"
	"explaincli/internal/explain"
	api "explaincli/pkg/contracts/api/v1"
)

// Default column names
const (
	DefaultPredictionColumn = "prediction"
	DefaultTargetColumn     = "target"
)

// Options selects the special columns of a dataset file
type Options struct {
	// PredictionColumn is required
	PredictionColumn string `json:"prediction_column" yaml:"prediction_column"`
	// TargetColumn is optional; when absent from the header the table has no target
	TargetColumn string `json:"target_column" yaml:"target_column"`
	// GroupColumn is optional; empty disables fairness groups
	GroupColumn string `json:"group_column" yaml:"group_column"`
	// Sheet picks the worksheet of an .xlsx file; empty means the first sheet
	Sheet string `json:"sheet" yaml:"sheet"`
}

// DefaultOptions returns the conventional column names
func DefaultOptions() Options {
	return Options{
		PredictionColumn: DefaultPredictionColumn,
		TargetColumn:     DefaultTargetColumn,
	}
}

// Table is a parsed dataset ready for analysis
type Table struct {
	Names       explain.FeatureNames
	Features    *explain.FeatureMatrix
	Predictions explain.Vector
	// Target is nil when the dataset has no target column
	Target explain.Vector
	// Groups maps a group value to its row indices; nil without a group column
	Groups map[string][]int
	Source string
}

// Rows returns the number of samples
func (t *Table) Rows() int {
	return t.Features.Rows()
}

// HasTarget reports whether observed outcomes are available
func (t *Table) HasTarget() bool {
	return len(t.Target) > 0
}

// HasGroups reports whether fairness groups are available
func (t *Table) HasGroups() bool {
	return len(t.Groups) > 0
}

// GroupNames returns the group names in ascending order
func (t *Table) GroupNames() []string {
	names := make([]string, 0, len(t.Groups))
	for name := range t.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FromContract converts an API dataset into a Table. Missing feature names
// default to feature_0..feature_n-1.
func FromContract(ds api.Dataset) (*Table, error) {
	x, err := explain.NewFeatureMatrix(ds.Features)
	if err != nil {
		return nil, err
	}

	names := explain.FeatureNames(ds.FeatureNames)
	if len(names) == 0 {
		names = explain.DefaultFeatureNames(x.Cols())
	}
	if err := names.Validate(x.Cols()); err != nil {
		return nil, err
	}

	table := &Table{
		Names:       names,
		Features:    x,
		Predictions: explain.Vector(ds.Predictions).Clone(),
		Source:      "request",
	}
	if len(ds.Target) > 0 {
		table.Target = explain.Vector(ds.Target).Clone()
	}
	if len(ds.Groups) > 0 {
		table.Groups = make(map[string][]int, len(ds.Groups))
		for name, rows := range ds.Groups {
			table.Groups[name] = append([]int(nil), rows...)
		}
	}
	return table, nil
}

// ToContract converts the table back into its API form
func (t *Table) ToContract() api.Dataset {
	return api.Dataset{
		FeatureNames: append([]string(nil), t.Names...),
		Features:     t.Features.ToRows(),
		Predictions:  t.Predictions.Clone(),
		Target:       t.Target.Clone(),
		Groups:       t.Groups,
	}
}

// columnRoles records where each special column sits in the header
type columnRoles struct {
	prediction int
	target     int
	group      int
	features   []int
	names      explain.FeatureNames
}

func resolveColumns(header []string, opts Options) (*columnRoles, error) {
	if opts.PredictionColumn == "" {
		return nil, apierrors.NewParsingError("prediction column name is required", nil)
	}

	roles := &columnRoles{prediction: -1, target: -1, group: -1}
	seen := make(map[string]int, len(header))
	for i, raw := range header {
		name := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		if name == "" {
			return nil, apierrors.NewParsingError(fmt.Sprintf("header column %d is empty", i+1), nil).
				WithContext("column", i+1)
		}
		if prev, dup := seen[name]; dup {
			return nil, apierrors.NewParsingError(fmt.Sprintf("header column %q appears twice", name), nil).
				WithContext("column", i+1).
				WithContext("first_column", prev+1)
		}
		seen[name] = i

		switch {
		case name == opts.PredictionColumn:
			roles.prediction = i
		case opts.TargetColumn != "" && name == opts.TargetColumn:
			roles.target = i
		case opts.GroupColumn != "" && name == opts.GroupColumn:
			roles.group = i
		default:
			roles.features = append(roles.features, i)
			roles.names = append(roles.names, name)
		}
	}

	if roles.prediction < 0 {
		return nil, apierrors.NewParsingError(fmt.Sprintf("prediction column %q not found", opts.PredictionColumn), nil)
	}
	if opts.GroupColumn != "" && roles.group < 0 {
		return nil, apierrors.NewParsingError(fmt.Sprintf("group column %q not found", opts.GroupColumn), nil)
	}
	if len(roles.features) == 0 {
		return nil, apierrors.NewParsingError("dataset has no feature columns", nil)
	}
	return roles, nil
}

// parseRecords turns a header and string records into a Table. firstLine is
// the 1-based file line of records[0] and is used in error messages.
func parseRecords(header []string, records [][]string, firstLine int, opts Options) (*Table, error) {
	roles, err := resolveColumns(header, opts)
	if err != nil {
		return nil, err
	}

	cols := len(roles.features)
	data := make([]float64, 0, len(records)*cols)
	predictions := make(explain.Vector, 0, len(records))
	var target explain.Vector
	if roles.target >= 0 {
		target = make(explain.Vector, 0, len(records))
	}
	var groups map[string][]int
	if roles.group >= 0 {
		groups = make(map[string][]int)
	}

	row := 0
	for i, record := range records {
		line := firstLine + i
		if isBlank(record) {
			continue
		}
		if len(record) > len(header) {
			return nil, apierrors.NewParsingError(
				fmt.Sprintf("line %d has %d fields, header has %d", line, len(record), len(header)), nil).
				WithContext("line", line)
		}

		for j, col := range roles.features {
			v, err := parseNumber(cell(record, col))
			if err != nil {
				return nil, cellError(line, roles.names[j], err)
			}
			data = append(data, v)
		}

		p, err := parseNumber(cell(record, roles.prediction))
		if err != nil {
			return nil, cellError(line, header[roles.prediction], err)
		}
		predictions = append(predictions, p)

		if roles.target >= 0 {
			y, err := parseNumber(cell(record, roles.target))
			if err != nil {
				return nil, cellError(line, header[roles.target], err)
			}
			target = append(target, y)
		}

		if roles.group >= 0 {
			g := strings.TrimSpace(cell(record, roles.group))
			if g == "" {
				return nil, apierrors.NewParsingError(fmt.Sprintf("line %d has an empty group", line), nil).
					WithContext("line", line)
			}
			groups[g] = append(groups[g], row)
		}
		row++
	}

	if row == 0 {
		return nil, apierrors.NewParsingError("dataset has no data rows", nil)
	}

	x, err := explain.NewFeatureMatrixFromFlat(row, cols, data)
	if err != nil {
		return nil, apierrors.NewParsingError("invalid feature values", err)
	}

	return &Table{
		Names:       roles.names,
		Features:    x,
		Predictions: predictions,
		Target:      target,
		Groups:      groups,
	}, nil
}

func cellError(line int, column string, err error) error {
	return apierrors.NewParsingError(fmt.Sprintf("line %d, column %q: %v", line, column, err), err).
		WithContext("line", line).
		WithContext("column", column)
}

// cell returns record[i], treating cells past a short record as empty
func cell(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}

func isBlank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

var thousandsPattern = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// parseNumber accepts plain and thousands-separated decimals ("1,250.5").
// Commas outside well-formed thousands groups ("1,5") and non-finite values
// are rejected.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	if strings.Contains(s, ",") {
		if !thousandsPattern.MatchString(s) {
			return 0, fmt.Errorf("%q is not a number", s)
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}
