package explain

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// ExplainInstance approximates the attribution of every feature of instance
// against a background sample. For feature f it draws samples background rows
// uniformly with replacement and averages
//
//	(instance[f] − background[i,f]) * (backgroundPreds[i] − baseValue) / backgroundRows
//
// This is a bounded-cost surrogate, not an exact Shapley value.
func (e *Explainer) ExplainInstance(ctx context.Context, instance Vector, background *FeatureMatrix, backgroundPreds Vector, baseValue float64, samples int) (Vector, error) {
	if err := validateAttributionInputs(instance, background, backgroundPreds, samples); err != nil {
		return nil, err
	}

	e.logger.DebugContext(ctx, "explaining instance",
		"features", len(instance),
		"background_rows", background.Rows(),
		"samples", samples,
	)

	return attribute(instance, background, backgroundPreds, baseValue, samples, e.newRand(0)), nil
}

// PredictFunc scores synthetic rows when no background sample is available
type PredictFunc func(ctx context.Context, rows *FeatureMatrix) (Vector, error)

// ExplainInstanceJittered explains instance against a background synthesized
// by jittering the instance itself. predict supplies the background
// predictions and the base value is their mean.
func (e *Explainer) ExplainInstanceJittered(ctx context.Context, instance Vector, predict PredictFunc, backgroundRows int, noise float64, samples int) (Vector, float64, error) {
	if predict == nil {
		return nil, 0, invalidArgument("predict", "predict function is required", nil)
	}
	background, err := SynthesizeBackground(instance, backgroundRows, noise, e.newRand(-1))
	if err != nil {
		return nil, 0, err
	}

	preds, err := predict(ctx, background)
	if err != nil {
		return nil, 0, fmt.Errorf("predict background: %w", err)
	}
	if err := checkAligned("background_predictions", background, preds); err != nil {
		return nil, 0, err
	}

	base := mean(preds)
	values, err := e.ExplainInstance(ctx, instance, background, preds, base, samples)
	if err != nil {
		return nil, 0, err
	}
	return values, base, nil
}

// ExplainBatch explains the first min(rows, MaxExplainedInstances) rows of x
// using x itself as background and mean(predictions) as base value. The
// per-instance budget is min(maxEvaluations/instances, MaxSamplesPerInstance),
// and never less than one draw. Rows are explained concurrently; row i always
// uses random stream i+1, so seeded results do not depend on scheduling.
func (e *Explainer) ExplainBatch(ctx context.Context, x *FeatureMatrix, predictions Vector, names FeatureNames, maxEvaluations int) (*AttributionResult, error) {
	start := time.Now()

	if err := checkAligned("predictions", x, predictions); err != nil {
		return nil, err
	}
	if err := names.Validate(x.Cols()); err != nil {
		return nil, err
	}
	if maxEvaluations <= 0 {
		return nil, invalidArgument("max_evaluations", "evaluation budget must be positive", maxEvaluations)
	}

	instances := min(x.Rows(), MaxExplainedInstances)
	samples := min(maxEvaluations/instances, MaxSamplesPerInstance)
	if samples < 1 {
		samples = 1
	}
	base := mean(predictions)

	e.logger.InfoContext(ctx, "starting batch attribution",
		"rows", x.Rows(),
		"features", x.Cols(),
		"instances", instances,
		"samples_per_instance", samples,
		"base_value", base,
	)

	runCtx, cancel := e.withTimeout(ctx)
	defer cancel()

	values := make([][]float64, instances)
	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(e.cfg.MaxConcurrency)

	for i := 0; i < instances; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("attribution cancelled: %w", err)
			}
			values[i] = attribute(x.Row(i), x, predictions, base, samples, e.newRand(int64(i)+1))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &AttributionResult{
		Values:             values,
		BaseValue:          base,
		Features:           append(FeatureNames(nil), names...),
		Importance:         meanAbsImportance(values, names),
		Instances:          instances,
		SamplesPerInstance: samples,
	}

	e.logger.InfoContext(ctx, "batch attribution completed",
		"duration", time.Since(start),
		"instances", instances,
		"top_feature", result.Importance[0].Feature,
	)

	return result, nil
}

// attribute computes one attribution value per feature
func attribute(instance Vector, background *FeatureMatrix, backgroundPreds Vector, base float64, samples int, rng *rand.Rand) Vector {
	bgRows := background.Rows()
	out := make(Vector, len(instance))
	for f := range instance {
		sum := 0.0
		for s := 0; s < samples; s++ {
			i := rng.Intn(bgRows)
			sum += (instance[f] - background.At(i, f)) * (backgroundPreds[i] - base) / float64(bgRows)
		}
		out[f] = sum / float64(samples)
	}
	return out
}

// meanAbsImportance ranks features by mean absolute attribution, descending.
// Equal scores keep column order.
func meanAbsImportance(values [][]float64, names FeatureNames) []FeatureScore {
	scores := make([]FeatureScore, len(names))
	for f, name := range names {
		sum := 0.0
		for _, row := range values {
			sum += math.Abs(row[f])
		}
		scores[f] = FeatureScore{Feature: name, Index: f, Score: sum / float64(len(values))}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores
}

func validateAttributionInputs(instance Vector, background *FeatureMatrix, backgroundPreds Vector, samples int) error {
	if len(instance) == 0 {
		return invalidArgument("instance", "feature count must be positive", 0)
	}
	if background == nil {
		return invalidArgument("background", "background matrix is required", nil)
	}
	if len(instance) != background.Cols() {
		return invalidArgument("instance", "instance length must match background feature count",
			map[string]int{"instance": len(instance), "background": background.Cols()})
	}
	if err := checkAligned("background_predictions", background, backgroundPreds); err != nil {
		return err
	}
	if samples <= 0 {
		return invalidArgument("samples", "sample budget must be positive", samples)
	}
	for f, v := range instance {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalidArgument("instance", fmt.Sprintf("non-finite value for feature %d", f), v)
		}
	}
	return nil
}
