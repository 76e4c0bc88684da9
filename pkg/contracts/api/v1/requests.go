// Package api contains the HTTP contract of the explanation service.
// Version v1 represents the current stable API version.
package api

// Dataset is the feature table every analysis request carries. Rows of
// Features line up with Predictions and, when present, Target. Groups maps
// a protected group name to row indices and is only read by fairness.
type Dataset struct {
	FeatureNames []string         `json:"feature_names,omitempty" validate:"omitempty,unique,dive,featurename"`
	Features     [][]float64      `json:"features" validate:"required,min=1,rectangular"`
	Predictions  []float64        `json:"predictions" validate:"required,min=1"`
	Target       []float64        `json:"target,omitempty"`
	Groups       map[string][]int `json:"groups,omitempty" validate:"omitempty,dive,keys,featurename,endkeys,required,dive,gte=0"`
}

// CrossValidationRequest scores the predictions fold by fold against Target
type CrossValidationRequest struct {
	Dataset Dataset `json:"dataset"`
	Folds   int     `json:"folds,omitempty" validate:"omitempty,min=2"`
	Scorer  string  `json:"scorer,omitempty" validate:"omitempty,oneof=r2 mse mae correlation"`
}

// AttributionRequest explains up to 100 rows of the dataset
type AttributionRequest struct {
	Dataset        Dataset `json:"dataset"`
	MaxEvaluations int     `json:"max_evaluations,omitempty" validate:"omitempty,min=1"`
}

// InstanceAttributionRequest explains one instance against an explicit
// background sample. BaseValue defaults to the mean background prediction.
type InstanceAttributionRequest struct {
	Instance              []float64   `json:"instance" validate:"required,min=1"`
	Background            [][]float64 `json:"background" validate:"required,min=1,rectangular"`
	BackgroundPredictions []float64   `json:"background_predictions" validate:"required,min=1"`
	BaseValue             *float64    `json:"base_value,omitempty"`
	Samples               int         `json:"samples,omitempty" validate:"omitempty,min=1"`
	FeatureNames          []string    `json:"feature_names,omitempty" validate:"omitempty,unique,dive,featurename"`
}

// PartialDependenceRequest sweeps one feature over GridSize points. An empty
// Feature sweeps every feature.
type PartialDependenceRequest struct {
	Dataset  Dataset `json:"dataset"`
	Feature  string  `json:"feature,omitempty" validate:"omitempty,featurename"`
	GridSize int     `json:"grid_size,omitempty" validate:"omitempty,min=2"`
}

// InteractionsRequest ranks feature pairs
type InteractionsRequest struct {
	Dataset         Dataset `json:"dataset"`
	MaxInteractions int     `json:"max_interactions,omitempty" validate:"omitempty,min=1"`
}

// ImportanceRequest ranks features by permutation importance
type ImportanceRequest struct {
	Dataset      Dataset `json:"dataset"`
	Permutations int     `json:"permutations,omitempty" validate:"omitempty,min=1"`
}

// FairnessRequest compares predictions and actuals per group
type FairnessRequest struct {
	Predictions []float64        `json:"predictions" validate:"required,min=1"`
	Actuals     []float64        `json:"actuals" validate:"required,min=1"`
	Groups      map[string][]int `json:"groups" validate:"required,min=1,dive,keys,featurename,endkeys,required,dive,gte=0"`
}

// ReportOptions overrides the configured defaults of a full report. Zero
// values keep the defaults.
type ReportOptions struct {
	Folds           int      `json:"folds,omitempty" validate:"omitempty,min=2"`
	Scorer          string   `json:"scorer,omitempty" validate:"omitempty,oneof=r2 mse mae correlation"`
	MaxEvaluations  int      `json:"max_evaluations,omitempty" validate:"omitempty,min=1"`
	GridSize        int      `json:"grid_size,omitempty" validate:"omitempty,min=2"`
	MaxInteractions int      `json:"max_interactions,omitempty" validate:"omitempty,min=1"`
	Permutations    int      `json:"permutations,omitempty" validate:"omitempty,min=1"`
	Features        []string `json:"features,omitempty" validate:"omitempty,unique,dive,featurename"`
}

// ReportRequest runs every analysis the dataset supports
type ReportRequest struct {
	Dataset Dataset       `json:"dataset"`
	Options ReportOptions `json:"options,omitempty"`
}
