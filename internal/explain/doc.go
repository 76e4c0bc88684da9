// Package explain implements the model explanation and evaluation engine.
//
// The engine works on numbers that have already been computed elsewhere: a
// feature matrix, a target vector and a prediction vector. It never fits a
// model. From those inputs it produces attribution, sensitivity, interaction,
// importance and fairness diagnostics, and it scores candidate models with
// k-fold cross-validation.
//
// # Core Components
//
//   - matrix.go: FeatureMatrix, Vector and FeatureNames
//   - crossval.go: contiguous k-fold splitting and score aggregation
//   - shap.go: sampled per-instance, per-feature attribution
//   - partial.go: linear partial dependence curves
//   - interaction.go: pairwise interaction ranking
//   - permutation.go: permutation importance
//   - fairness.go: per-group metrics and gaps
//   - scoring.go: built-in fold scorers over precomputed predictions
//   - background.go: jittered background synthesis
//
// # Usage Example
//
//	x, err := explain.NewFeatureMatrix(rows)
//	if err != nil {
//	    return err
//	}
//	names := explain.DefaultFeatureNames(x.Cols())
//
//	cfg := explain.DefaultConfig()
//	cfg.Seed, cfg.Seeded = 42, true
//	explainer := explain.NewExplainer(cfg, slog.Default())
//
//	cv, err := explainer.CrossValidate(ctx, x, targets, 5, explain.R2Scorer(predictions))
//	attr, err := explainer.ExplainBatch(ctx, x, predictions, names, 10000)
//	curve, err := explain.PartialDependence(x, predictions, names, "feature_0", 20)
//
// # Approximations
//
// Attribution, partial dependence and permutation importance are surrogate
// formulas that need no model object: attribution averages sampled
// differences against a background, partial dependence is a straight line
// through the column mean with slope equal to the feature/prediction
// correlation, and permutation importance compares prediction variance to
// the variance of the shuffled column. They are reproducible contracts, not
// estimates of exact Shapley values or re-evaluated model responses.
//
// # Randomness and Concurrency
//
// Attribution sampling and column shuffling are the only random steps. Each
// independent unit of work (an explained row, a permuted feature) gets its own
// stream derived from Config.Seed, so seeded results are identical however
// the work is scheduled. Inputs are never mutated; folds, rows and features
// run in parallel up to Config.MaxConcurrency.
//
// # Errors
//
// Caller mistakes return a *ValidationError that matches ErrInvalidArgument
// under errors.Is. Numeric degeneracies such as zero-variance columns do not
// fail: correlation falls back to zero and variance-free scores fall back to
// the baseline.
package explain
