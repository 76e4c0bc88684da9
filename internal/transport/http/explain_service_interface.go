package http

import (
	"context"

	"explaincli/internal/dataset"
	"explaincli/internal/explain"
	"explaincli/internal/services"
)

// ExplainServiceInterface defines the analyses the explain handler serves
type ExplainServiceInterface interface {
	CrossValidate(ctx context.Context, t *dataset.Table, folds int, scorer string) (*explain.CrossValidationReport, error)
	Attribute(ctx context.Context, t *dataset.Table, maxEvaluations int) (*explain.AttributionResult, error)
	AttributeInstance(ctx context.Context, in services.InstanceInput) (*services.InstanceAttribution, error)
	PartialDependence(ctx context.Context, t *dataset.Table, features []string, gridSize int) ([]*explain.SensitivityCurve, error)
	Interactions(ctx context.Context, t *dataset.Table, maxInteractions int) (*explain.InteractionRanking, error)
	Importance(ctx context.Context, t *dataset.Table, permutations int) (*explain.ImportanceRanking, error)
	Fairness(ctx context.Context, predictions, actuals explain.Vector, groups map[string][]int) (*explain.FairnessReport, error)
	Report(ctx context.Context, t *dataset.Table, opts services.AnalysisOptions) (*services.ExplanationReport, error)
}

var _ ExplainServiceInterface = (*services.ExplainService)(nil)
