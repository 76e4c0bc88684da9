package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatistics(t *testing.T) {
	t.Run("mean", func(t *testing.T) {
		assert.Equal(t, 0.0, mean(nil))
		assert.InDelta(t, 2.5, mean([]float64{1, 2, 3, 4}), 1e-12)
		assert.Equal(t, 0.0, Mean(nil))
		assert.InDelta(t, 2.5, Mean([]float64{4, 3, 2, 1}), 1e-12)
	})

	t.Run("population variance", func(t *testing.T) {
		assert.Equal(t, 0.0, variance([]float64{5}))
		assert.InDelta(t, 1.25, variance([]float64{1, 2, 3, 4}), 1e-12)
		assert.InDelta(t, 2.0, stdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-12)
	})

	t.Run("correlation", func(t *testing.T) {
		x := []float64{1, 2, 3, 4, 5}
		assert.InDelta(t, 1.0, correlation(x, []float64{2, 4, 6, 8, 10}), 1e-12)
		assert.InDelta(t, -1.0, correlation(x, []float64{5, 4, 3, 2, 1}), 1e-12)
	})

	t.Run("degenerate correlation is zero", func(t *testing.T) {
		assert.Equal(t, 0.0, correlation([]float64{1, 1, 1}, []float64{1, 2, 3}))
		assert.Equal(t, 0.0, correlation([]float64{1}, []float64{1}))
		assert.Equal(t, 0.0, correlation([]float64{1, 2}, []float64{1, 2, 3}))
	})

	t.Run("r squared", func(t *testing.T) {
		actual := []float64{1, 2, 3, 4}
		assert.InDelta(t, 1.0, rSquared(actual, actual), 1e-12)
		assert.Equal(t, 0.0, rSquared([]float64{4, 3, 2, 1}, actual), "negative R² clamps to zero")
		assert.Equal(t, 0.0, rSquared([]float64{1, 1}, []float64{2, 2}))
	})

	t.Run("min max", func(t *testing.T) {
		lo, hi := minMax([]float64{3, -1, 7, 2})
		assert.Equal(t, -1.0, lo)
		assert.Equal(t, 7.0, hi)
	})

	t.Run("grid pins both ends", func(t *testing.T) {
		grid := linspace([]float64{0.1, 0.7, 0.3}, 4)
		assert.Equal(t, 0.1, grid[0])
		assert.Equal(t, 0.7, grid[3])
		assert.InDelta(t, 0.3, grid[1], 1e-12)

		flat := linspace([]float64{2, 2}, 3)
		assert.Equal(t, []float64{2, 2, 2}, flat)
	})
}
