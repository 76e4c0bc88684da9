package explain

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededExplainer(seed int64) *Explainer {
	return NewExplainer(DefaultConfig(), quietLogger()).WithSeed(seed)
}

func TestExplainBatchLinearSignal(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	x := randomMatrix(t, rng, 200, 2)

	preds := make(Vector, x.Rows())
	for i := range preds {
		preds[i] = 3 * x.At(i, 0)
	}

	result, err := seededExplainer(42).ExplainBatch(context.Background(), x, preds, FeatureNames{"signal", "noise"}, 10000)
	require.NoError(t, err)

	assert.Equal(t, 100, result.Instances)
	assert.Equal(t, 100, result.SamplesPerInstance)
	assert.Len(t, result.Values, 100)
	assert.InDelta(t, mean(preds), result.BaseValue, 1e-12)

	require.Len(t, result.Importance, 2)
	assert.Equal(t, "signal", result.Importance[0].Feature)
	assert.Equal(t, 0, result.Importance[0].Index)
	assert.Greater(t, result.Importance[0].Score, 5*result.Importance[1].Score)
}

func TestExplainBatchSeededIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	x := randomMatrix(t, rng, 150, 4)
	preds := x.Column(2)
	names := DefaultFeatureNames(4)

	a, err := NewExplainer(Config{MaxConcurrency: 1}, quietLogger()).WithSeed(9).
		ExplainBatch(context.Background(), x, preds, names, 2000)
	require.NoError(t, err)
	b, err := NewExplainer(Config{MaxConcurrency: 16}, quietLogger()).WithSeed(9).
		ExplainBatch(context.Background(), x, preds, names, 2000)
	require.NoError(t, err)

	assert.Equal(t, a.Values, b.Values, "scheduling must not change seeded output")
	assert.Equal(t, 20, a.SamplesPerInstance)
}

func TestExplainBatchBudget(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	x := randomMatrix(t, rng, 30, 2)
	preds := x.Column(0)
	names := DefaultFeatureNames(2)
	e := seededExplainer(1)

	t.Run("small budget still samples once", func(t *testing.T) {
		result, err := e.ExplainBatch(context.Background(), x, preds, names, 10)
		require.NoError(t, err)
		assert.Equal(t, 30, result.Instances)
		assert.Equal(t, 1, result.SamplesPerInstance)
	})

	t.Run("large budget is capped", func(t *testing.T) {
		result, err := e.ExplainBatch(context.Background(), x, preds, names, 1_000_000)
		require.NoError(t, err)
		assert.Equal(t, MaxSamplesPerInstance, result.SamplesPerInstance)
	})

	t.Run("non-positive budget", func(t *testing.T) {
		_, err := e.ExplainBatch(context.Background(), x, preds, names, 0)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("misaligned predictions", func(t *testing.T) {
		_, err := e.ExplainBatch(context.Background(), x, preds[:10], names, 100)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("wrong name count", func(t *testing.T) {
		_, err := e.ExplainBatch(context.Background(), x, preds, FeatureNames{"only"}, 100)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestExplainBatchCancelled(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	x := randomMatrix(t, rng, 20, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := seededExplainer(1).ExplainBatch(ctx, x, x.Column(0), DefaultFeatureNames(2), 100)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExplainInstance(t *testing.T) {
	e := seededExplainer(7)
	ctx := context.Background()

	t.Run("single row background gives zero attribution", func(t *testing.T) {
		bg, err := NewFeatureMatrix([][]float64{{1, 2, 3}})
		require.NoError(t, err)

		values, err := e.ExplainInstance(ctx, Vector{5, 5, 5}, bg, Vector{0.7}, 0.7, 25)
		require.NoError(t, err)
		assert.Equal(t, Vector{0, 0, 0}, values)
	})

	t.Run("formula on a single background row", func(t *testing.T) {
		bg, err := NewFeatureMatrix([][]float64{{1, 4}})
		require.NoError(t, err)

		values, err := e.ExplainInstance(ctx, Vector{3, 1}, bg, Vector{2}, 0.5, 10)
		require.NoError(t, err)
		assert.InDelta(t, (3-1)*(2-0.5), values[0], 1e-12)
		assert.InDelta(t, (1-4)*(2-0.5), values[1], 1e-12)
	})

	t.Run("instance equal to every background row", func(t *testing.T) {
		bg, err := NewFeatureMatrix([][]float64{{1, 1}, {1, 1}, {1, 1}})
		require.NoError(t, err)

		values, err := e.ExplainInstance(ctx, Vector{1, 1}, bg, Vector{1, 2, 3}, 2, 50)
		require.NoError(t, err)
		assert.Equal(t, Vector{0, 0}, values)
	})

	bg, err := NewFeatureMatrix([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)

	invalid := []struct {
		name     string
		instance Vector
		bg       *FeatureMatrix
		preds    Vector
		samples  int
	}{
		{"empty instance", Vector{}, bg, Vector{1, 2}, 10},
		{"nil background", Vector{1, 2}, nil, Vector{1, 2}, 10},
		{"feature mismatch", Vector{1, 2, 3}, bg, Vector{1, 2}, 10},
		{"prediction mismatch", Vector{1, 2}, bg, Vector{1}, 10},
		{"zero samples", Vector{1, 2}, bg, Vector{1, 2}, 0},
		{"non-finite instance", Vector{math.NaN(), 2}, bg, Vector{1, 2}, 10},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.ExplainInstance(ctx, tt.instance, tt.bg, tt.preds, 0, tt.samples)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestExplainInstanceJittered(t *testing.T) {
	ctx := context.Background()
	linear := func(_ context.Context, rows *FeatureMatrix) (Vector, error) {
		out := make(Vector, rows.Rows())
		for i := range out {
			out[i] = 2*rows.At(i, 0) - rows.At(i, 1)
		}
		return out, nil
	}

	values, base, err := seededExplainer(3).ExplainInstanceJittered(ctx, Vector{1, 1}, linear, DefaultBackgroundRows, DefaultBackgroundNoise, 50)
	require.NoError(t, err)
	assert.Len(t, values, 2)
	assert.InDelta(t, 1.0, base, 0.2, "base value is the mean prediction near the instance")

	again, againBase, err := seededExplainer(3).ExplainInstanceJittered(ctx, Vector{1, 1}, linear, DefaultBackgroundRows, DefaultBackgroundNoise, 50)
	require.NoError(t, err)
	assert.Equal(t, values, again)
	assert.Equal(t, base, againBase)

	t.Run("predict error propagates", func(t *testing.T) {
		boom := errors.New("model offline")
		_, _, err := seededExplainer(3).ExplainInstanceJittered(ctx, Vector{1}, func(context.Context, *FeatureMatrix) (Vector, error) {
			return nil, boom
		}, 10, 0.1, 5)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("nil predict", func(t *testing.T) {
		_, _, err := seededExplainer(3).ExplainInstanceJittered(ctx, Vector{1}, nil, 10, 0.1, 5)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("short prediction vector", func(t *testing.T) {
		_, _, err := seededExplainer(3).ExplainInstanceJittered(ctx, Vector{1}, func(context.Context, *FeatureMatrix) (Vector, error) {
			return Vector{1}, nil
		}, 10, 0.1, 5)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestSynthesizeBackground(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	instance := Vector{10, -4}

	bg, err := SynthesizeBackground(instance, 40, 0.5, rng)
	require.NoError(t, err)
	assert.Equal(t, 40, bg.Rows())
	assert.Equal(t, 2, bg.Cols())
	for i := 0; i < bg.Rows(); i++ {
		for f, v := range instance {
			assert.InDelta(t, v, bg.At(i, f), 0.5)
		}
	}

	zero, err := SynthesizeBackground(instance, 3, 0, rng)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{10, -4}, {10, -4}, {10, -4}}, zero.ToRows())

	_, err = SynthesizeBackground(nil, 3, 0.1, rng)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = SynthesizeBackground(instance, 0, 0.1, rng)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = SynthesizeBackground(instance, 3, -1, rng)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = SynthesizeBackground(instance, 3, 0.1, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMeanAbsImportanceKeepsColumnOrderOnTies(t *testing.T) {
	scores := meanAbsImportance([][]float64{{1, -1, 0.5}, {-1, 1, 0.5}}, FeatureNames{"a", "b", "c"})
	require.Len(t, scores, 3)
	assert.Equal(t, "a", scores[0].Feature)
	assert.Equal(t, "b", scores[1].Feature)
	assert.Equal(t, "c", scores[2].Feature)
	assert.Equal(t, 1.0, scores[0].Score)
}
