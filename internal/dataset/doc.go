// Package dataset loads tabular model outputs for explanation.
//
// A dataset file has a header row followed by one row per sample. Columns
// named by Options.PredictionColumn and Options.TargetColumn hold the model
// prediction and the observed outcome; Options.GroupColumn names a categorical
// column whose values become fairness groups. Every remaining column is a
// numeric feature.
//
// CSV files are read with encoding/csv and Excel workbooks (.xlsx) with
// excelize. Both paths share one record parser, so the same column rules
// and error reporting apply to either format:
//
//	table, err := dataset.Load("scores.xlsx", dataset.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	report, err := svc.Report(ctx, table, services.ReportOptions{})
//
// Parse failures are *errors.AppError values of type PARSING carrying the
// offending row and column in their context.
package dataset
