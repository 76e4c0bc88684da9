package explain

import "time"

// Budget caps applied to batch attribution
const (
	// MaxExplainedInstances bounds how many rows a batch explanation covers
	MaxExplainedInstances = 100
	// MaxSamplesPerInstance bounds background draws per explained row
	MaxSamplesPerInstance = 100
	// MaxPermutationRepeats bounds shuffles per feature in permutation importance
	MaxPermutationRepeats = 10

	// PositiveThreshold separates positive from negative labels in fairness metrics
	PositiveThreshold = 0.5

	// DefaultMaxConcurrency is the worker limit when none is configured
	DefaultMaxConcurrency = 4
)

// Fold is one contiguous test range [Start, End); the rest of the rows train
type Fold struct {
	Index int `json:"index"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// Size returns the number of test rows
func (f Fold) Size() int {
	return f.End - f.Start
}

// Contains reports whether row falls in the test range
func (f Fold) Contains(row int) bool {
	return row >= f.Start && row < f.End
}

// TrainIndices returns every row in [0, rows) outside the fold, ascending
func (f Fold) TrainIndices(rows int) []int {
	idx := make([]int, 0, rows-f.Size())
	for i := 0; i < f.Start; i++ {
		idx = append(idx, i)
	}
	for i := f.End; i < rows; i++ {
		idx = append(idx, i)
	}
	return idx
}

// FoldScore is the scorer output for one fold
type FoldScore struct {
	Fold  Fold    `json:"fold"`
	Score float64 `json:"score"`
}

// CrossValidationReport aggregates per-fold scores
type CrossValidationReport struct {
	Folds  []FoldScore `json:"folds"`
	Mean   float64     `json:"mean"`
	StdDev float64     `json:"std_dev"`
}

// Scores returns the fold scores in fold order
func (r *CrossValidationReport) Scores() []float64 {
	out := make([]float64, len(r.Folds))
	for i, fs := range r.Folds {
		out[i] = fs.Score
	}
	return out
}

// FeatureScore pairs a feature with a scalar importance
type FeatureScore struct {
	Feature string  `json:"feature"`
	Index   int     `json:"index"`
	Score   float64 `json:"score"`
}

// AttributionResult holds per-instance, per-feature attributions
type AttributionResult struct {
	// Values[i][f] is the attribution of feature f for explained row i
	Values             [][]float64    `json:"values"`
	BaseValue          float64        `json:"base_value"`
	Features           FeatureNames   `json:"features"`
	Importance         []FeatureScore `json:"importance"`
	Instances          int            `json:"instances"`
	SamplesPerInstance int            `json:"samples_per_instance"`
}

// SensitivityCurve is a partial dependence curve for one feature
type SensitivityCurve struct {
	Feature  string    `json:"feature"`
	Grid     []float64 `json:"grid"`
	Response []float64 `json:"response"`
}

// FeaturePair identifies two columns by name and position
type FeaturePair struct {
	A      string `json:"feature_a"`
	B      string `json:"feature_b"`
	IndexA int    `json:"index_a"`
	IndexB int    `json:"index_b"`
}

// Interaction is the strength of one feature pair
type Interaction struct {
	Pair     FeaturePair `json:"pair"`
	Strength float64     `json:"strength"`
}

// InteractionRanking lists pairs by descending strength
type InteractionRanking struct {
	Interactions []Interaction `json:"interactions"`
}

// ImportanceRanking lists features by descending permutation importance
type ImportanceRanking struct {
	BaselineScore float64        `json:"baseline_score"`
	Repeats       int            `json:"repeats"`
	Features      []FeatureScore `json:"features"`
}

// GroupMetrics is the metric bundle of one protected group
type GroupMetrics struct {
	Group     string  `json:"group"`
	Size      int     `json:"size"`
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

// MetricGaps is the max−min spread of each metric across groups
type MetricGaps struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

// FairnessReport summarizes per-group performance
type FairnessReport struct {
	Groups          []GroupMetrics `json:"groups"`
	OverallFairness float64        `json:"overall_fairness"`
	Gaps            MetricGaps     `json:"gaps"`
}

// Group returns the metrics for name
func (r *FairnessReport) Group(name string) (GroupMetrics, bool) {
	for _, g := range r.Groups {
		if g.Group == name {
			return g, true
		}
	}
	return GroupMetrics{}, false
}

// Config controls randomness and parallelism of an Explainer
type Config struct {
	// Seed feeds every random stream when Seeded is true
	Seed   int64 `json:"seed"`
	Seeded bool  `json:"seeded"`
	// MaxConcurrency bounds parallel folds, instances and features
	MaxConcurrency int `json:"max_concurrency"`
	// Timeout bounds a single analysis call; zero disables it
	Timeout time.Duration `json:"timeout"`
}

// DefaultConfig returns an unseeded configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: DefaultMaxConcurrency,
	}
}

// IsValid checks that the configuration can be used
func (c Config) IsValid() bool {
	return c.MaxConcurrency > 0 && c.Timeout >= 0
}
