package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"explaincli/internal/config"
	"explaincli/internal/dataset"
	"explaincli/internal/explain"
	"explaincli/internal/infrastructure"
	"explaincli/pkg/contracts"
)

// Analysis names used in spans, metrics and responses
const (
	AnalysisCrossValidation     = "crossval"
	AnalysisAttribution         = "attribution"
	AnalysisInstanceAttribution = "attribution_instance"
	AnalysisPartialDependence   = "partial_dependence"
	AnalysisInteractions        = "interactions"
	AnalysisImportance          = "importance"
	AnalysisFairness            = "fairness"
	AnalysisReport              = "report"
)

// AnalysisOptions tunes a single analysis or a full report. Zero fields take
// the configured defaults.
type AnalysisOptions struct {
	Folds           int
	Scorer          string
	MaxEvaluations  int
	GridSize        int
	MaxInteractions int
	Permutations    int
	// Features limits partial dependence; empty means every feature
	Features []string
}

func (o AnalysisOptions) withDefaults(cfg config.ExplainConfig) AnalysisOptions {
	if o.Folds == 0 {
		o.Folds = cfg.KFolds
	}
	if o.Scorer == "" {
		o.Scorer = cfg.Scorer
	}
	if o.MaxEvaluations == 0 {
		o.MaxEvaluations = cfg.MaxEvaluations
	}
	if o.GridSize == 0 {
		o.GridSize = cfg.GridSize
	}
	if o.MaxInteractions == 0 {
		o.MaxInteractions = cfg.MaxInteractions
	}
	if o.Permutations == 0 {
		o.Permutations = cfg.Permutations
	}
	return o
}

// InstanceInput is a single instance explained against an explicit background
type InstanceInput struct {
	Instance              explain.Vector
	Background            *explain.FeatureMatrix
	BackgroundPredictions explain.Vector
	// BaseValue defaults to the mean background prediction
	BaseValue *float64
	// Samples defaults to min(background rows, explain.MaxSamplesPerInstance)
	Samples int
	Names   explain.FeatureNames
}

// InstanceAttribution is the explanation of one instance
type InstanceAttribution struct {
	Features  explain.FeatureNames   `json:"features"`
	Values    explain.Vector         `json:"values"`
	BaseValue float64                `json:"base_value"`
	Samples   int                    `json:"samples"`
	Ranking   []explain.FeatureScore `json:"ranking"`
}

// ExplanationReport bundles every analysis of one dataset
type ExplanationReport struct {
	ID            string    `json:"id"`
	FormatVersion string    `json:"format_version"`
	GeneratedAt   time.Time `json:"generated_at"`
	Source        string    `json:"source,omitempty"`
	Rows          int       `json:"rows"`
	Features      []string  `json:"features"`

	CrossValidation   *explain.CrossValidationReport `json:"cross_validation,omitempty"`
	Attribution       *explain.AttributionResult     `json:"attribution"`
	PartialDependence []*explain.SensitivityCurve    `json:"partial_dependence"`
	Interactions      *explain.InteractionRanking    `json:"interactions"`
	Importance        *explain.ImportanceRanking     `json:"importance"`
	Fairness          *explain.FairnessReport        `json:"fairness,omitempty"`

	// Skipped lists analyses the dataset lacked the columns for
	Skipped    []string      `json:"skipped,omitempty"`
	DurationMS int64         `json:"duration_ms"`
	Duration   time.Duration `json:"-"`
}

// ExplainService runs analyses on loaded datasets, tracing and metering each one
type ExplainService struct {
	explainer *explain.Explainer
	defaults  config.ExplainConfig
	tracer    trace.Tracer
	metrics   *infrastructure.AnalysisMetrics
	logger    *slog.Logger
}

// NewExplainService creates the service. A nil tracer uses the global
// provider; nil metrics disable recording.
func NewExplainService(explainer *explain.Explainer, defaults config.ExplainConfig, tracer trace.Tracer, metrics *infrastructure.AnalysisMetrics, logger *slog.Logger) *ExplainService {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.InstrumentationName)
	}
	return &ExplainService{
		explainer: explainer,
		defaults:  defaults,
		tracer:    tracer,
		metrics:   metrics,
		logger:    logger.With(slog.String("service", "explain")),
	}
}

// Defaults returns the configured analysis defaults
func (s *ExplainService) Defaults() AnalysisOptions {
	return AnalysisOptions{}.withDefaults(s.defaults)
}

// run wraps one analysis in a span, a log line and a metrics record
func (s *ExplainService) run(ctx context.Context, analysis string, rows int, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "explain."+analysis,
		trace.WithAttributes(
			attribute.String("explain.analysis", analysis),
			attribute.Int("explain.rows", rows),
		),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	s.metrics.RecordAnalysis(ctx, analysis, rows, duration, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.WarnContext(ctx, "analysis failed",
			slog.String("analysis", analysis),
			slog.Int("rows", rows),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()),
		)
		return err
	}

	span.SetStatus(codes.Ok, "")
	s.logger.DebugContext(ctx, "analysis completed",
		slog.String("analysis", analysis),
		slog.Int("rows", rows),
		slog.Duration("duration", duration),
	)
	return nil
}

func requireTarget(t *dataset.Table, analysis string) error {
	if !t.HasTarget() {
		return &explain.ValidationError{
			Field:   "target",
			Message: fmt.Sprintf("%s requires observed target values", analysis),
		}
	}
	return nil
}

// CrossValidate scores the dataset predictions against its target fold by fold
func (s *ExplainService) CrossValidate(ctx context.Context, t *dataset.Table, folds int, scorerName string) (*explain.CrossValidationReport, error) {
	opts := AnalysisOptions{Folds: folds, Scorer: scorerName}.withDefaults(s.defaults)

	var report *explain.CrossValidationReport
	err := s.run(ctx, AnalysisCrossValidation, t.Rows(), func(ctx context.Context) error {
		if err := requireTarget(t, "cross-validation"); err != nil {
			return err
		}
		scorer, err := explain.ScorerByName(opts.Scorer, t.Predictions)
		if err != nil {
			return err
		}
		report, err = s.explainer.CrossValidate(ctx, t.Features, t.Target, opts.Folds, scorer)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("cross-validation: %w", err)
	}
	return report, nil
}

// Attribute explains the leading rows of the dataset against itself
func (s *ExplainService) Attribute(ctx context.Context, t *dataset.Table, maxEvaluations int) (*explain.AttributionResult, error) {
	opts := AnalysisOptions{MaxEvaluations: maxEvaluations}.withDefaults(s.defaults)

	var result *explain.AttributionResult
	err := s.run(ctx, AnalysisAttribution, t.Rows(), func(ctx context.Context) error {
		var err error
		result, err = s.explainer.ExplainBatch(ctx, t.Features, t.Predictions, t.Names, opts.MaxEvaluations)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("attribution: %w", err)
	}
	return result, nil
}

// AttributeInstance explains one instance against an explicit background
func (s *ExplainService) AttributeInstance(ctx context.Context, in InstanceInput) (*InstanceAttribution, error) {
	rows := 0
	if in.Background != nil {
		rows = in.Background.Rows()
	}

	var result *InstanceAttribution
	err := s.run(ctx, AnalysisInstanceAttribution, rows, func(ctx context.Context) error {
		if in.Background == nil {
			return &explain.ValidationError{Field: "background", Message: "background sample is required"}
		}

		names := in.Names
		if len(names) == 0 {
			names = explain.DefaultFeatureNames(len(in.Instance))
		}
		if err := names.Validate(len(in.Instance)); err != nil {
			return err
		}

		base := explain.Mean(in.BackgroundPredictions)
		if in.BaseValue != nil {
			base = *in.BaseValue
		}
		samples := in.Samples
		if samples == 0 {
			samples = min(in.Background.Rows(), explain.MaxSamplesPerInstance)
		}

		values, err := s.explainer.ExplainInstance(ctx, in.Instance, in.Background, in.BackgroundPredictions, base, samples)
		if err != nil {
			return err
		}

		result = &InstanceAttribution{
			Features:  append(explain.FeatureNames(nil), names...),
			Values:    values,
			BaseValue: base,
			Samples:   samples,
			Ranking:   rankByMagnitude(values, names),
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("instance attribution: %w", err)
	}
	return result, nil
}

// PartialDependence builds one curve per requested feature, in request order.
// An empty feature list means every feature.
func (s *ExplainService) PartialDependence(ctx context.Context, t *dataset.Table, features []string, gridSize int) ([]*explain.SensitivityCurve, error) {
	opts := AnalysisOptions{GridSize: gridSize}.withDefaults(s.defaults)
	if len(features) == 0 {
		features = t.Names
	}

	var curves []*explain.SensitivityCurve
	err := s.run(ctx, AnalysisPartialDependence, t.Rows(), func(ctx context.Context) error {
		curves = make([]*explain.SensitivityCurve, 0, len(features))
		for _, feature := range features {
			if err := ctx.Err(); err != nil {
				return err
			}
			curve, err := explain.PartialDependence(t.Features, t.Predictions, t.Names, feature, opts.GridSize)
			if err != nil {
				return err
			}
			curves = append(curves, curve)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("partial dependence: %w", err)
	}
	return curves, nil
}

// Interactions ranks feature pairs by interaction strength
func (s *ExplainService) Interactions(ctx context.Context, t *dataset.Table, maxInteractions int) (*explain.InteractionRanking, error) {
	opts := AnalysisOptions{MaxInteractions: maxInteractions}.withDefaults(s.defaults)

	var ranking *explain.InteractionRanking
	err := s.run(ctx, AnalysisInteractions, t.Rows(), func(ctx context.Context) error {
		var err error
		ranking, err = explain.Interactions(t.Features, t.Predictions, t.Names, opts.MaxInteractions)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("interactions: %w", err)
	}
	return ranking, nil
}

// Importance ranks features by permutation importance
func (s *ExplainService) Importance(ctx context.Context, t *dataset.Table, permutations int) (*explain.ImportanceRanking, error) {
	opts := AnalysisOptions{Permutations: permutations}.withDefaults(s.defaults)

	var ranking *explain.ImportanceRanking
	err := s.run(ctx, AnalysisImportance, t.Rows(), func(ctx context.Context) error {
		var err error
		ranking, err = s.explainer.PermutationImportance(ctx, t.Features, t.Predictions, t.Names, opts.Permutations)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("permutation importance: %w", err)
	}
	return ranking, nil
}

// Fairness compares prediction quality across protected groups
func (s *ExplainService) Fairness(ctx context.Context, predictions, actuals explain.Vector, groups map[string][]int) (*explain.FairnessReport, error) {
	var report *explain.FairnessReport
	err := s.run(ctx, AnalysisFairness, len(predictions), func(ctx context.Context) error {
		var err error
		report, err = explain.Fairness(predictions, actuals, groups)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fairness: %w", err)
	}
	return report, nil
}

// TableFairness runs Fairness on the dataset's own target and groups
func (s *ExplainService) TableFairness(ctx context.Context, t *dataset.Table) (*explain.FairnessReport, error) {
	if err := requireTarget(t, "fairness"); err != nil {
		return nil, fmt.Errorf("fairness: %w", err)
	}
	if !t.HasGroups() {
		return nil, fmt.Errorf("fairness: %w", &explain.ValidationError{
			Field:   "groups",
			Message: "fairness requires protected groups",
		})
	}
	return s.Fairness(ctx, t.Predictions, t.Target, t.Groups)
}

// Report runs every analysis the dataset supports concurrently. Cross
// validation needs a target and at least two rows, and fairness needs a
// target and groups; when they are missing the analysis is listed in
// Skipped. Folds are capped at the row count. The first failure cancels
// the rest.
func (s *ExplainService) Report(ctx context.Context, t *dataset.Table, opts AnalysisOptions) (*ExplanationReport, error) {
	opts = opts.withDefaults(s.defaults)
	start := time.Now()

	report := &ExplanationReport{
		ID:            uuid.New().String(),
		FormatVersion: contracts.ReportFormatVersion,
		GeneratedAt:   start.UTC(),
		Source:        t.Source,
		Rows:          t.Rows(),
		Features:      append([]string(nil), t.Names...),
	}

	err := s.run(ctx, AnalysisReport, t.Rows(), func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)

		folds := min(opts.Folds, t.Rows())
		if folds < opts.Folds {
			s.logger.DebugContext(ctx, "fold count capped at row count",
				slog.Int("requested", opts.Folds),
				slog.Int("rows", t.Rows()),
			)
		}
		if t.HasTarget() && t.Rows() >= 2 {
			g.Go(func() error {
				var err error
				report.CrossValidation, err = s.CrossValidate(gctx, t, folds, opts.Scorer)
				return err
			})
		} else {
			report.Skipped = append(report.Skipped, AnalysisCrossValidation)
		}

		g.Go(func() error {
			var err error
			report.Attribution, err = s.Attribute(gctx, t, opts.MaxEvaluations)
			return err
		})
		g.Go(func() error {
			var err error
			report.PartialDependence, err = s.PartialDependence(gctx, t, opts.Features, opts.GridSize)
			return err
		})
		g.Go(func() error {
			var err error
			report.Interactions, err = s.Interactions(gctx, t, opts.MaxInteractions)
			return err
		})
		g.Go(func() error {
			var err error
			report.Importance, err = s.Importance(gctx, t, opts.Permutations)
			return err
		})

		if t.HasTarget() && t.HasGroups() {
			g.Go(func() error {
				var err error
				report.Fairness, err = s.TableFairness(gctx, t)
				return err
			})
		} else {
			report.Skipped = append(report.Skipped, AnalysisFairness)
		}

		return g.Wait()
	})
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	report.Duration = time.Since(start)
	report.DurationMS = report.Duration.Milliseconds()

	s.logger.InfoContext(ctx, "report generated",
		slog.String("report_id", report.ID),
		slog.String("source", report.Source),
		slog.Int("rows", report.Rows),
		slog.Int("features", len(report.Features)),
		slog.Any("skipped", report.Skipped),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}
