package explain

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// PartialDependence estimates how the predicted response moves as one
// feature sweeps an evenly spaced grid over its observed range. No model is
// re-evaluated; the curve is the first-order linear surrogate
//
//	response(v) = mean(predictions) + corr(column, predictions) * (v − mean(column))
//
// The first and last grid points equal the column minimum and maximum.
func PartialDependence(x *FeatureMatrix, predictions Vector, names FeatureNames, feature string, gridSize int) (*SensitivityCurve, error) {
	if err := checkAligned("predictions", x, predictions); err != nil {
		return nil, err
	}
	if err := names.Validate(x.Cols()); err != nil {
		return nil, err
	}
	col := names.IndexOf(feature)
	if col < 0 {
		return nil, invalidArgument("feature", fmt.Sprintf("feature %q not found", feature), feature)
	}
	if gridSize < 2 {
		return nil, invalidArgument("grid_size", "grid size must be at least 2", gridSize)
	}

	column := x.Column(col)
	grid := linspace(column, gridSize)

	predMean := mean(predictions)
	colMean := mean(column)
	r := correlation(column, predictions)

	response := make([]float64, gridSize)
	for i, v := range grid {
		response[i] = predMean + r*(v-colMean)
	}

	return &SensitivityCurve{
		Feature:  feature,
		Grid:     grid,
		Response: response,
	}, nil
}

// linspace spans [min(values), max(values)] with n points, pinning the last
// point to the maximum so float drift never moves the endpoint.
func linspace(values []float64, n int) []float64 {
	lo, hi := minMax(values)
	grid := floats.Span(make([]float64, n), lo, hi)
	grid[n-1] = hi
	return grid
}
