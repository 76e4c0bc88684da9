package exporter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"explaincli/internal/services"
)

// Section titles in export order
const (
	SectionSummary           = "summary"
	SectionCrossValidation   = "cross_validation"
	SectionAttribution       = "attribution"
	SectionAttributionValues = "attribution_values"
	SectionPartialDependence = "partial_dependence"
	SectionInteractions      = "interactions"
	SectionImportance        = "importance"
	SectionFairness          = "fairness"
)

// ReportExporter writes an ExplanationReport as titled CSV sections
type ReportExporter struct {
	csv       *CSVWriter
	precision int
	bom       bool
	sections  int
}

// NewReportExporter creates an exporter writing to out. A negative precision
// uses DefaultPrecision.
func NewReportExporter(out io.Writer, precision int) *ReportExporter {
	if precision < 0 {
		precision = DefaultPrecision
	}
	return &ReportExporter{csv: NewCSVWriter(out), precision: precision}
}

// WithBOM prefixes the output with a UTF-8 byte order mark
func (e *ReportExporter) WithBOM() *ReportExporter {
	e.bom = true
	return e
}

func (e *ReportExporter) float(v float64) string {
	return formatFloat(v, e.precision)
}

func (e *ReportExporter) section(title string, headers []string, records [][]string) error {
	if e.bom && e.sections == 0 {
		if err := e.csv.WriteCSV(WriteOptions{BOMPrefix: true}); err != nil {
			return err
		}
	}
	if e.sections > 0 {
		if err := e.csv.WriteLine(""); err != nil {
			return err
		}
	}
	e.sections++
	if err := e.csv.WriteLine("# " + title); err != nil {
		return err
	}
	if err := e.csv.WriteSimpleCSV(headers, records); err != nil {
		return fmt.Errorf("section %s: %w", title, err)
	}
	return nil
}

// Export writes every section the report carries
func (e *ReportExporter) Export(report *services.ExplanationReport) error {
	steps := []func(*services.ExplanationReport) error{
		e.summary,
		e.crossValidation,
		e.attribution,
		e.attributionValues,
		e.partialDependence,
		e.interactions,
		e.importance,
		e.fairness,
	}
	for _, step := range steps {
		if err := step(report); err != nil {
			return err
		}
	}
	return nil
}

func (e *ReportExporter) summary(r *services.ExplanationReport) error {
	return e.section(SectionSummary, []string{"key", "value"}, [][]string{
		{"id", r.ID},
		{"format_version", r.FormatVersion},
		{"generated_at", r.GeneratedAt.Format(time.RFC3339)},
		{"source", r.Source},
		{"rows", formatInt(r.Rows)},
		{"features", strings.Join(r.Features, ";")},
		{"skipped", strings.Join(r.Skipped, ";")},
		{"duration_ms", formatInt(int(r.DurationMS))},
	})
}

func (e *ReportExporter) crossValidation(r *services.ExplanationReport) error {
	cv := r.CrossValidation
	if cv == nil {
		return nil
	}
	records := make([][]string, 0, len(cv.Folds)+2)
	for _, fs := range cv.Folds {
		records = append(records, []string{
			formatInt(fs.Fold.Index),
			formatInt(fs.Fold.Start),
			formatInt(fs.Fold.End),
			e.float(fs.Score),
		})
	}
	records = append(records,
		[]string{"mean", "", "", e.float(cv.Mean)},
		[]string{"std_dev", "", "", e.float(cv.StdDev)},
	)
	return e.section(SectionCrossValidation, []string{"fold", "test_start", "test_end", "score"}, records)
}

func (e *ReportExporter) attribution(r *services.ExplanationReport) error {
	a := r.Attribution
	if a == nil {
		return nil
	}
	records := make([][]string, 0, len(a.Importance))
	for rank, fs := range a.Importance {
		records = append(records, []string{formatInt(rank + 1), fs.Feature, e.float(fs.Score)})
	}
	return e.section(SectionAttribution, []string{"rank", "feature", "mean_abs_attribution"}, records)
}

// attributionValues streams one row per explained instance
func (e *ReportExporter) attributionValues(r *services.ExplanationReport) error {
	a := r.Attribution
	if a == nil {
		return nil
	}
	if err := e.section(SectionAttributionValues, nil, nil); err != nil {
		return err
	}

	headers := append([]string{"row"}, a.Features...)
	stream, err := e.csv.CreateStreamWriter(headers)
	if err != nil {
		return err
	}
	for i, values := range a.Values {
		record := make([]string, 0, len(values)+1)
		record = append(record, formatInt(i))
		for _, v := range values {
			record = append(record, e.float(v))
		}
		if err := stream.WriteRecord(record); err != nil {
			return fmt.Errorf("section %s: %w", SectionAttributionValues, err)
		}
	}
	return stream.Close()
}

func (e *ReportExporter) partialDependence(r *services.ExplanationReport) error {
	if len(r.PartialDependence) == 0 {
		return nil
	}
	var records [][]string
	for _, curve := range r.PartialDependence {
		for i := range curve.Grid {
			records = append(records, []string{
				curve.Feature,
				formatInt(i),
				e.float(curve.Grid[i]),
				e.float(curve.Response[i]),
			})
		}
	}
	return e.section(SectionPartialDependence, []string{"feature", "point", "value", "response"}, records)
}

func (e *ReportExporter) interactions(r *services.ExplanationReport) error {
	if r.Interactions == nil {
		return nil
	}
	records := make([][]string, 0, len(r.Interactions.Interactions))
	for rank, in := range r.Interactions.Interactions {
		records = append(records, []string{formatInt(rank + 1), in.Pair.A, in.Pair.B, e.float(in.Strength)})
	}
	return e.section(SectionInteractions, []string{"rank", "feature_a", "feature_b", "strength"}, records)
}

func (e *ReportExporter) importance(r *services.ExplanationReport) error {
	imp := r.Importance
	if imp == nil {
		return nil
	}
	records := make([][]string, 0, len(imp.Features)+1)
	records = append(records, []string{"0", "baseline", e.float(imp.BaselineScore)})
	for rank, fs := range imp.Features {
		records = append(records, []string{formatInt(rank + 1), fs.Feature, e.float(fs.Score)})
	}
	return e.section(SectionImportance, []string{"rank", "feature", "score"}, records)
}

func (e *ReportExporter) fairness(r *services.ExplanationReport) error {
	fr := r.Fairness
	if fr == nil {
		return nil
	}
	records := make([][]string, 0, len(fr.Groups)+2)
	for _, g := range fr.Groups {
		records = append(records, []string{
			g.Group,
			formatInt(g.Size),
			e.float(g.Accuracy),
			e.float(g.Precision),
			e.float(g.Recall),
		})
	}
	records = append(records,
		[]string{"gap", "", e.float(fr.Gaps.Accuracy), e.float(fr.Gaps.Precision), e.float(fr.Gaps.Recall)},
		[]string{"overall_fairness", "", e.float(fr.OverallFairness), "", ""},
	)
	return e.section(SectionFairness, []string{"group", "size", "accuracy", "precision", "recall"}, records)
}
