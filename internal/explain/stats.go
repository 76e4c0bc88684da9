package explain

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// mean returns the arithmetic mean, or 0 for an empty slice
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Mean is the arithmetic mean used throughout the engine. An empty slice
// has mean 0.
func Mean(values []float64) float64 {
	return mean(values)
}

// variance is the population variance (divides by n)
func variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	_, v := stat.PopMeanVariance(values, nil)
	return v
}

// stdDev is the population standard deviation
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	_, sd := stat.PopMeanStdDev(values, nil)
	return sd
}

// correlation computes the Pearson correlation coefficient.
// Undefined cases (length mismatch, fewer than two points, zero variance)
// yield 0.
func correlation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	if variance(x) == 0 || variance(y) == 0 {
		return 0
	}

	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// minMax returns the smallest and largest value of a non-empty slice
func minMax(values []float64) (lo, hi float64) {
	return floats.Min(values), floats.Max(values)
}

// rSquared computes the coefficient of determination clamped to [0, 1]
func rSquared(predicted, actual []float64) float64 {
	if len(predicted) != len(actual) || len(predicted) < 2 {
		return 0
	}

	actualMean := mean(actual)
	var totalSumSquares float64
	for _, a := range actual {
		totalSumSquares += (a - actualMean) * (a - actualMean)
	}
	if totalSumSquares == 0 {
		return 0
	}

	residual := floats.Distance(predicted, actual, 2)
	r2 := 1 - residual*residual/totalSumSquares
	if r2 < 0 {
		r2 = 0
	} else if r2 > 1 {
		r2 = 1
	}
	return r2
}
