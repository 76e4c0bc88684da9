package explain

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Scorer names accepted by ScorerByName
const (
	ScorerR2          = "r2"
	ScorerMSE         = "mse"
	ScorerMAE         = "mae"
	ScorerCorrelation = "correlation"
)

// ScorerNames lists the built-in scorers
var ScorerNames = []string{ScorerR2, ScorerMSE, ScorerMAE, ScorerCorrelation}

// foldPredictions slices the precomputed predictions for a fold's test range
func foldPredictions(predictions Vector, data FoldData) (Vector, error) {
	if data.Fold.End > len(predictions) || data.Fold.Start < 0 {
		return nil, invalidArgument("predictions",
			fmt.Sprintf("predictions cover %d rows, fold needs [%d,%d)", len(predictions), data.Fold.Start, data.Fold.End),
			len(predictions))
	}
	return predictions[data.Fold.Start:data.Fold.End], nil
}

// R2Scorer scores a precomputed prediction vector on each fold's test rows
// with the coefficient of determination, clamped to [0, 1].
func R2Scorer(predictions Vector) Scorer {
	return func(_ context.Context, data FoldData) (float64, error) {
		pred, err := foldPredictions(predictions, data)
		if err != nil {
			return 0, err
		}
		return rSquared(pred, data.TestY), nil
	}
}

// MSEScorer returns the negated mean squared error so higher is better
func MSEScorer(predictions Vector) Scorer {
	return func(_ context.Context, data FoldData) (float64, error) {
		pred, err := foldPredictions(predictions, data)
		if err != nil {
			return 0, err
		}
		dist := floats.Distance(pred, data.TestY, 2)
		return -dist * dist / float64(len(pred)), nil
	}
}

// MAEScorer returns the negated mean absolute error so higher is better
func MAEScorer(predictions Vector) Scorer {
	return func(_ context.Context, data FoldData) (float64, error) {
		pred, err := foldPredictions(predictions, data)
		if err != nil {
			return 0, err
		}
		return -floats.Distance(pred, data.TestY, 1) / float64(len(pred)), nil
	}
}

// CorrelationScorer returns the Pearson correlation between predictions and targets
func CorrelationScorer(predictions Vector) Scorer {
	return func(_ context.Context, data FoldData) (float64, error) {
		pred, err := foldPredictions(predictions, data)
		if err != nil {
			return 0, err
		}
		return correlation(pred, data.TestY), nil
	}
}

// ScorerByName builds a built-in scorer over predictions
func ScorerByName(name string, predictions Vector) (Scorer, error) {
	switch name {
	case ScorerR2, "":
		return R2Scorer(predictions), nil
	case ScorerMSE:
		return MSEScorer(predictions), nil
	case ScorerMAE:
		return MAEScorer(predictions), nil
	case ScorerCorrelation:
		return CorrelationScorer(predictions), nil
	default:
		return nil, invalidArgument("scorer", "scorer must be one of: r2, mse, mae, correlation", name)
	}
}
