// Package exporter writes explanation reports as CSV.
//
// CSVWriter is the low-level writer with optional UTF-8 BOM for Excel.
// ReportExporter flattens an ExplanationReport into titled CSV sections,
// one per analysis, separated by a blank line:
//
//	exp := exporter.NewReportExporter(os.Stdout, exporter.DefaultPrecision)
//	if err := exp.Export(report); err != nil {
//	    return err
//	}
//
// Sections for analyses that did not run are omitted.
package exporter
