package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"explaincli/internal/services"
)

// summaryTopN bounds the ranked lists in the text summary
const summaryTopN = 10

// writeSummary renders a human readable overview of report
func writeSummary(w io.Writer, report *services.ExplanationReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Report\t%s\n", report.ID)
	fmt.Fprintf(tw, "Source\t%s\n", report.Source)
	fmt.Fprintf(tw, "Rows\t%d\n", report.Rows)
	fmt.Fprintf(tw, "Features\t%s\n", strings.Join(report.Features, ", "))
	fmt.Fprintf(tw, "Duration\t%dms\n", report.DurationMS)
	if len(report.Skipped) > 0 {
		fmt.Fprintf(tw, "Skipped\t%s\n", strings.Join(report.Skipped, ", "))
	}

	if cv := report.CrossValidation; cv != nil {
		fmt.Fprintf(tw, "\nCross-validation\t%d folds\n", len(cv.Folds))
		fmt.Fprintf(tw, "  mean\t%.4f\n", cv.Mean)
		fmt.Fprintf(tw, "  std dev\t%.4f\n", cv.StdDev)
	}

	if attr := report.Attribution; attr != nil {
		fmt.Fprintf(tw, "\nAttribution\t%d instances, base %.4f\n", attr.Instances, attr.BaseValue)
		for i, fs := range attr.Importance {
			if i == summaryTopN {
				break
			}
			fmt.Fprintf(tw, "  %d. %s\t%.4f\n", i+1, fs.Feature, fs.Score)
		}
	}

	if imp := report.Importance; imp != nil {
		fmt.Fprintf(tw, "\nPermutation importance\tbaseline %.4f\n", imp.BaselineScore)
		for i, fs := range imp.Features {
			if i == summaryTopN {
				break
			}
			fmt.Fprintf(tw, "  %d. %s\t%.4f\n", i+1, fs.Feature, fs.Score)
		}
	}

	if inter := report.Interactions; inter != nil && len(inter.Interactions) > 0 {
		fmt.Fprintf(tw, "\nInteractions\t\n")
		for i, in := range inter.Interactions {
			fmt.Fprintf(tw, "  %d. %s x %s\t%.4f\n", i+1, in.Pair.A, in.Pair.B, in.Strength)
		}
	}

	if len(report.PartialDependence) > 0 {
		fmt.Fprintf(tw, "\nPartial dependence\t\n")
		for _, curve := range report.PartialDependence {
			lo, hi := responseRange(curve.Response)
			fmt.Fprintf(tw, "  %s\t%d points, response %.4f to %.4f\n", curve.Feature, len(curve.Grid), lo, hi)
		}
	}

	if fair := report.Fairness; fair != nil {
		fmt.Fprintf(tw, "\nFairness\toverall %.4f\n", fair.OverallFairness)
		fmt.Fprintf(tw, "  group\tsize\taccuracy\tprecision\trecall\n")
		for _, g := range fair.Groups {
			fmt.Fprintf(tw, "  %s\t%d\t%.4f\t%.4f\t%.4f\n", g.Group, g.Size, g.Accuracy, g.Precision, g.Recall)
		}
		fmt.Fprintf(tw, "  gap\t\t%.4f\t%.4f\t%.4f\n", fair.Gaps.Accuracy, fair.Gaps.Precision, fair.Gaps.Recall)
	}

	return tw.Flush()
}

func responseRange(values []float64) (lo, hi float64) {
	for i, v := range values {
		if i == 0 || v < lo {
			lo = v
		}
		if i == 0 || v > hi {
			hi = v
		}
	}
	return lo, hi
}
