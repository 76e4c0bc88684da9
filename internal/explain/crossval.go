package explain

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// FoldData is what a Scorer sees for one fold. The matrices are private
// copies, so scorers may keep them.
type FoldData struct {
	Fold   Fold
	TrainX *FeatureMatrix
	TrainY Vector
	TestX  *FeatureMatrix
	TestY  Vector
}

// Scorer evaluates a candidate model on one fold and returns a scalar score
type Scorer func(ctx context.Context, data FoldData) (float64, error)

// KFold partitions [0, rows) into k contiguous folds. Every fold but the last
// has rows/k rows; the last absorbs the remainder.
func KFold(rows, k int) ([]Fold, error) {
	if k < 2 {
		return nil, invalidArgument("k", "fold count must be at least 2", k)
	}
	if k > rows {
		return nil, invalidArgument("k", fmt.Sprintf("fold count %d exceeds sample count %d", k, rows),
			map[string]int{"k": k, "rows": rows})
	}

	foldSize := rows / k
	folds := make([]Fold, k)
	for i := 0; i < k; i++ {
		start := i * foldSize
		end := start + foldSize
		if i == k-1 {
			end = rows
		}
		folds[i] = Fold{Index: i, Start: start, End: end}
	}
	return folds, nil
}

// CrossValidate splits x and y into k folds, scores each fold and aggregates
// the mean and population standard deviation of the scores. Folds are scored
// concurrently up to the configured limit; the report keeps fold order.
func (e *Explainer) CrossValidate(ctx context.Context, x *FeatureMatrix, y Vector, k int, scorer Scorer) (*CrossValidationReport, error) {
	start := time.Now()

	if err := checkAligned("targets", x, y); err != nil {
		return nil, err
	}
	if scorer == nil {
		return nil, invalidArgument("scorer", "scorer is required", nil)
	}
	folds, err := KFold(x.Rows(), k)
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "starting cross-validation",
		"rows", x.Rows(),
		"features", x.Cols(),
		"k_folds", k,
	)

	runCtx, cancel := e.withTimeout(ctx)
	defer cancel()

	scores := make([]FoldScore, len(folds))
	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(e.cfg.MaxConcurrency)

	for i, fold := range folds {
		g.Go(func() error {
			data, err := foldData(x, y, fold)
			if err != nil {
				return err
			}
			score, err := scorer(gctx, data)
			if err != nil {
				return fmt.Errorf("score fold %d: %w", fold.Index, err)
			}
			scores[i] = FoldScore{Fold: fold, Score: score}

			e.logger.DebugContext(gctx, "fold scored",
				"fold", fold.Index,
				"test_start", fold.Start,
				"test_end", fold.End,
				"score", score,
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		e.logger.ErrorContext(ctx, "cross-validation failed", "error", err)
		return nil, err
	}

	report := &CrossValidationReport{Folds: scores}
	values := report.Scores()
	report.Mean = mean(values)
	report.StdDev = stdDev(values)

	e.logger.InfoContext(ctx, "cross-validation completed",
		"duration", time.Since(start),
		"mean_score", report.Mean,
		"std_dev", report.StdDev,
	)

	return report, nil
}

// foldData copies the train and test partitions of one fold
func foldData(x *FeatureMatrix, y Vector, fold Fold) (FoldData, error) {
	testX, err := x.SliceRows(fold.Start, fold.End)
	if err != nil {
		return FoldData{}, err
	}
	trainIdx := fold.TrainIndices(x.Rows())
	trainX, err := x.SelectRows(trainIdx)
	if err != nil {
		return FoldData{}, err
	}

	trainY := make(Vector, len(trainIdx))
	for i, idx := range trainIdx {
		trainY[i] = y[idx]
	}
	testY := y[fold.Start:fold.End].Clone()

	return FoldData{
		Fold:   fold,
		TrainX: trainX,
		TrainY: trainY,
		TestX:  testX,
		TestY:  testY,
	}, nil
}
