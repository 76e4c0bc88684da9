package explain

import (
	"fmt"
	"math"
	"sort"
)

// Fairness computes accuracy, precision and recall per group and the spread
// of each across groups. Groups map a name to row indices into both vectors;
// groups may overlap. Overall fairness is the worst group accuracy.
//
//	accuracy  = 1 − |mean(group predictions) − mean(group actuals)|
//	precision = count(prediction > 0.5) / group size
//	recall    = count(actual > 0.5) / group size
func Fairness(predictions, actuals Vector, groups map[string][]int) (*FairnessReport, error) {
	if len(predictions) != len(actuals) {
		return nil, invalidArgument("actuals", "predictions and actuals must have equal length",
			map[string]int{"predictions": len(predictions), "actuals": len(actuals)})
	}
	if err := checkFinite("predictions", predictions); err != nil {
		return nil, err
	}
	if err := checkFinite("actuals", actuals); err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, invalidArgument("groups", "at least one group is required", 0)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	report := &FairnessReport{Groups: make([]GroupMetrics, 0, len(names))}
	for _, name := range names {
		metrics, err := groupMetrics(name, groups[name], predictions, actuals)
		if err != nil {
			return nil, err
		}
		report.Groups = append(report.Groups, metrics)
	}

	minAcc, maxAcc := math.Inf(1), math.Inf(-1)
	minPrec, maxPrec := math.Inf(1), math.Inf(-1)
	minRec, maxRec := math.Inf(1), math.Inf(-1)
	for _, g := range report.Groups {
		minAcc, maxAcc = math.Min(minAcc, g.Accuracy), math.Max(maxAcc, g.Accuracy)
		minPrec, maxPrec = math.Min(minPrec, g.Precision), math.Max(maxPrec, g.Precision)
		minRec, maxRec = math.Min(minRec, g.Recall), math.Max(maxRec, g.Recall)
	}

	report.OverallFairness = minAcc
	report.Gaps = MetricGaps{
		Accuracy:  maxAcc - minAcc,
		Precision: maxPrec - minPrec,
		Recall:    maxRec - minRec,
	}
	return report, nil
}

func groupMetrics(name string, indices []int, predictions, actuals Vector) (GroupMetrics, error) {
	if len(indices) == 0 {
		return GroupMetrics{}, invalidArgument("groups", fmt.Sprintf("group %q is empty", name), name)
	}

	var predSum, actualSum float64
	var predPositive, actualPositive int
	for _, idx := range indices {
		if idx < 0 || idx >= len(predictions) {
			return GroupMetrics{}, invalidArgument("groups",
				fmt.Sprintf("group %q has out-of-range index %d", name, idx), idx)
		}
		predSum += predictions[idx]
		actualSum += actuals[idx]
		if predictions[idx] > PositiveThreshold {
			predPositive++
		}
		if actuals[idx] > PositiveThreshold {
			actualPositive++
		}
	}

	n := float64(len(indices))
	return GroupMetrics{
		Group:     name,
		Size:      len(indices),
		Accuracy:  1 - math.Abs(predSum/n-actualSum/n),
		Precision: float64(predPositive) / n,
		Recall:    float64(actualPositive) / n,
	}, nil
}
