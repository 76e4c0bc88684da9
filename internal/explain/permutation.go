package explain

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// PermutationImportance scores each feature by the drop from the baseline
// score 1/(1+var(predictions)) to the proxy score 1/(1+var(shuffled column)),
// averaged over min(permutations, MaxPermutationRepeats) Fisher–Yates
// shuffles. The proxy measures the shuffled column's own dispersion; no model
// is re-scored. Feature f shuffles with random stream f+1.
func (e *Explainer) PermutationImportance(ctx context.Context, x *FeatureMatrix, predictions Vector, names FeatureNames, permutations int) (*ImportanceRanking, error) {
	start := time.Now()

	if err := checkAligned("predictions", x, predictions); err != nil {
		return nil, err
	}
	if err := names.Validate(x.Cols()); err != nil {
		return nil, err
	}
	if permutations <= 0 {
		return nil, invalidArgument("permutations", "permutation count must be positive", permutations)
	}

	repeats := min(permutations, MaxPermutationRepeats)
	baseline := proxyScore(predictions)

	e.logger.InfoContext(ctx, "starting permutation importance",
		"features", x.Cols(),
		"repeats", repeats,
		"baseline_score", baseline,
	)

	runCtx, cancel := e.withTimeout(ctx)
	defer cancel()

	scores := make([]FeatureScore, x.Cols())
	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(e.cfg.MaxConcurrency)

	for f := 0; f < x.Cols(); f++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("permutation importance cancelled: %w", err)
			}
			rng := e.newRand(int64(f) + 1)
			column := x.Column(f)

			drop := 0.0
			for r := 0; r < repeats; r++ {
				shuffle(column, rng)
				drop += baseline - proxyScore(column)
			}
			scores[f] = FeatureScore{Feature: names[f], Index: f, Score: drop / float64(repeats)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})

	e.logger.InfoContext(ctx, "permutation importance completed",
		"duration", time.Since(start),
		"top_feature", scores[0].Feature,
	)

	return &ImportanceRanking{
		BaselineScore: baseline,
		Repeats:       repeats,
		Features:      scores,
	}, nil
}

// proxyScore maps dispersion to (0, 1]; a constant series scores 1
func proxyScore(values []float64) float64 {
	return 1 / (1 + variance(values))
}

// shuffle permutes values in place (Fisher–Yates)
func shuffle(values []float64, rng *rand.Rand) {
	for i := len(values) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		values[i], values[j] = values[j], values[i]
	}
}
