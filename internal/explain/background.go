package explain

import (
	"math"
	"math/rand"
)

// DefaultBackgroundRows and DefaultBackgroundNoise size a synthesized
// background when the caller has no reference sample.
const (
	DefaultBackgroundRows  = 50
	DefaultBackgroundNoise = 0.1
)

// SynthesizeBackground builds a reference sample around instance: each row is
// the instance plus independent uniform noise in [-noise, +noise) per feature.
func SynthesizeBackground(instance Vector, rows int, noise float64, rng *rand.Rand) (*FeatureMatrix, error) {
	if len(instance) == 0 {
		return nil, invalidArgument("instance", "feature count must be positive", 0)
	}
	if rows <= 0 {
		return nil, invalidArgument("rows", "background row count must be positive", rows)
	}
	if noise < 0 || math.IsNaN(noise) || math.IsInf(noise, 0) {
		return nil, invalidArgument("noise", "noise must be a finite non-negative number", noise)
	}
	if rng == nil {
		return nil, invalidArgument("rng", "random source is required", nil)
	}

	cols := len(instance)
	data := make([]float64, rows*cols)
	for i := 0; i < rows; i++ {
		for f, v := range instance {
			data[i*cols+f] = v + (rng.Float64()*2-1)*noise
		}
	}
	return newFromFlat(rows, cols, data)
}
