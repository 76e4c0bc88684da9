package services

import (
	"context"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"explaincli/internal/config"
	"explaincli/internal/dataset"
	"explaincli/internal/explain"
	"explaincli/internal/infrastructure"
	"explaincli/internal/shared/testutil"
	api "explaincli/pkg/contracts/api/v1"
)

type serviceFixture struct {
	svc     *ExplainService
	spans   *tracetest.SpanRecorder
	reader  *sdkmetric.ManualReader
	handler *testutil.BufferedSlogHandler
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	metrics, err := infrastructure.NewAnalysisMetrics(mp.Meter("test"))
	require.NoError(t, err)

	logger, handler := testutil.NewTestLogger(t)
	cfg := config.Default().Explain
	explainer := explain.NewExplainer(cfg.EngineConfig(), logger).WithSeed(7)

	return &serviceFixture{
		svc:     NewExplainService(explainer, cfg, tp.Tracer("test"), metrics, logger),
		spans:   spans,
		reader:  reader,
		handler: handler,
	}
}

func (f *serviceFixture) spanNames() []string {
	var names []string
	for _, s := range f.spans.Ended() {
		names = append(names, s.Name())
	}
	return names
}

func (f *serviceFixture) analysisCount(t *testing.T, analysis string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, f.reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "explain_analyses_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			var total int64
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value(attribute.Key("analysis"))
				if v.AsString() == analysis {
					total += dp.Value
				}
			}
			return total
		}
	}
	return 0
}

// linearTable builds rows where prediction = 2*x0 + x1 and x2 is noise
func linearTable(t *testing.T, rows int, withTarget, withGroups bool) *dataset.Table {
	t.Helper()

	rng := rand.New(rand.NewSource(42))
	ds := api.Dataset{FeatureNames: []string{"x0", "x1", "x2"}}
	for i := 0; i < rows; i++ {
		x0, x1, x2 := rng.Float64(), rng.Float64(), rng.Float64()
		ds.Features = append(ds.Features, []float64{x0, x1, x2})
		p := (2*x0 + x1) / 3
		ds.Predictions = append(ds.Predictions, p)
		if withTarget {
			y := 0.0
			if p+0.05*rng.NormFloat64() >= 0.5 {
				y = 1
			}
			ds.Target = append(ds.Target, y)
		}
	}
	if withGroups {
		ds.Groups = map[string][]int{}
		for i := 0; i < rows; i++ {
			name := "even"
			if i%2 == 1 {
				name = "odd"
			}
			ds.Groups[name] = append(ds.Groups[name], i)
		}
	}

	table, err := dataset.FromContract(ds)
	require.NoError(t, err)
	return table
}

func TestReportFullDataset(t *testing.T) {
	f := newServiceFixture(t)
	table := linearTable(t, 60, true, true)

	report, err := f.svc.Report(context.Background(), table, AnalysisOptions{})
	require.NoError(t, err)

	_, err = uuid.Parse(report.ID)
	assert.NoError(t, err)
	assert.Equal(t, "1", report.FormatVersion)
	assert.Equal(t, 60, report.Rows)
	assert.Equal(t, []string{"x0", "x1", "x2"}, report.Features)
	assert.Empty(t, report.Skipped)

	require.NotNil(t, report.CrossValidation)
	assert.Len(t, report.CrossValidation.Folds, 5)
	require.NotNil(t, report.Attribution)
	assert.Equal(t, "x0", report.Attribution.Importance[0].Feature)
	require.Len(t, report.PartialDependence, 3)
	assert.Len(t, report.PartialDependence[0].Grid, config.Default().Explain.GridSize)
	require.NotNil(t, report.Interactions)
	assert.Len(t, report.Interactions.Interactions, 3)
	require.NotNil(t, report.Importance)
	assert.Len(t, report.Importance.Features, 3)
	require.NotNil(t, report.Fairness)
	assert.Len(t, report.Fairness.Groups, 2)

	names := f.spanNames()
	for _, analysis := range []string{
		AnalysisReport, AnalysisCrossValidation, AnalysisAttribution, AnalysisPartialDependence,
		AnalysisInteractions, AnalysisImportance, AnalysisFairness,
	} {
		assert.Contains(t, names, "explain."+analysis)
		assert.Equal(t, int64(1), f.analysisCount(t, analysis), analysis)
	}

	testutil.AssertLogContains(t, f.handler, slog.LevelInfo, "report generated")
	testutil.AssertLogAttr(t, f.handler, "report_id", report.ID)
}

func TestReportSkipsMissingColumns(t *testing.T) {
	f := newServiceFixture(t)
	table := linearTable(t, 30, false, false)

	report, err := f.svc.Report(context.Background(), table, AnalysisOptions{Features: []string{"x1"}})
	require.NoError(t, err)

	assert.Nil(t, report.CrossValidation)
	assert.Nil(t, report.Fairness)
	assert.Equal(t, []string{AnalysisCrossValidation, AnalysisFairness}, report.Skipped)
	require.Len(t, report.PartialDependence, 1)
	assert.Equal(t, "x1", report.PartialDependence[0].Feature)
}

func TestReportCapsFoldsAtRowCount(t *testing.T) {
	f := newServiceFixture(t)
	table := linearTable(t, 3, true, false)
	require.Less(t, table.Rows(), config.Default().Explain.KFolds)

	report, err := f.svc.Report(context.Background(), table, AnalysisOptions{})
	require.NoError(t, err)

	require.NotNil(t, report.CrossValidation)
	assert.Len(t, report.CrossValidation.Folds, 3)
	assert.Equal(t, []string{AnalysisFairness}, report.Skipped)
}

func TestReportSkipsCrossValidationForSingleRow(t *testing.T) {
	f := newServiceFixture(t)
	table := linearTable(t, 1, true, false)

	report, err := f.svc.Report(context.Background(), table, AnalysisOptions{})
	require.NoError(t, err)

	assert.Nil(t, report.CrossValidation)
	assert.Equal(t, []string{AnalysisCrossValidation, AnalysisFairness}, report.Skipped)
	assert.NotNil(t, report.Attribution)
}

func TestReportFailsFast(t *testing.T) {
	f := newServiceFixture(t)
	table := linearTable(t, 30, true, false)

	_, err := f.svc.Report(context.Background(), table, AnalysisOptions{Features: []string{"missing"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, explain.ErrInvalidArgument)

	var failed bool
	for _, s := range f.spans.Ended() {
		if s.Name() == "explain."+AnalysisReport {
			failed = s.Status().Code == codes.Error
		}
	}
	assert.True(t, failed, "report span is marked as failed")
}

func TestReportCancelled(t *testing.T) {
	f := newServiceFixture(t)
	table := linearTable(t, 30, false, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Report(ctx, table, AnalysisOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCrossValidateRequiresTarget(t *testing.T) {
	f := newServiceFixture(t)
	table := linearTable(t, 20, false, false)

	_, err := f.svc.CrossValidate(context.Background(), table, 0, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, explain.ErrInvalidArgument)
	assert.Equal(t, int64(1), f.analysisCount(t, AnalysisCrossValidation))
	testutil.AssertLogContains(t, f.handler, slog.LevelWarn, "analysis failed")
}

func TestCrossValidateOptions(t *testing.T) {
	f := newServiceFixture(t)
	table := linearTable(t, 40, true, false)

	report, err := f.svc.CrossValidate(context.Background(), table, 4, explain.ScorerMAE)
	require.NoError(t, err)
	assert.Len(t, report.Folds, 4)

	_, err = f.svc.CrossValidate(context.Background(), table, 4, "logloss")
	assert.ErrorIs(t, err, explain.ErrInvalidArgument)
}

func TestTableFairnessRequiresGroups(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.TableFairness(context.Background(), linearTable(t, 20, true, false))
	assert.ErrorIs(t, err, explain.ErrInvalidArgument)

	_, err = f.svc.TableFairness(context.Background(), linearTable(t, 20, false, true))
	assert.ErrorIs(t, err, explain.ErrInvalidArgument)

	report, err := f.svc.TableFairness(context.Background(), linearTable(t, 20, true, true))
	require.NoError(t, err)
	assert.Equal(t, []string{"even", "odd"}, []string{report.Groups[0].Group, report.Groups[1].Group})
}

func TestAttributeInstance(t *testing.T) {
	f := newServiceFixture(t)
	background, err := explain.NewFeatureMatrix([][]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}})
	require.NoError(t, err)

	result, err := f.svc.AttributeInstance(context.Background(), InstanceInput{
		Instance:              explain.Vector{1, 1},
		Background:            background,
		BackgroundPredictions: explain.Vector{0, 2, 1, 3},
		Names:                 explain.FeatureNames{"a", "b"},
	})
	require.NoError(t, err)

	assert.InDelta(t, 1.5, result.BaseValue, 1e-12)
	assert.Equal(t, 4, result.Samples)
	assert.Len(t, result.Values, 2)
	require.Len(t, result.Ranking, 2)
	assert.GreaterOrEqual(t, result.Ranking[0].Score, result.Ranking[1].Score)

	base := 0.0
	result, err = f.svc.AttributeInstance(context.Background(), InstanceInput{
		Instance:              explain.Vector{1, 1},
		Background:            background,
		BackgroundPredictions: explain.Vector{0, 2, 1, 3},
		BaseValue:             &base,
		Samples:               2,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.BaseValue)
	assert.Equal(t, 2, result.Samples)
	assert.Equal(t, explain.FeatureNames{"feature_0", "feature_1"}, result.Features)
}

func TestAttributeInstanceErrors(t *testing.T) {
	f := newServiceFixture(t)
	background, err := explain.NewFeatureMatrix([][]float64{{0, 0}, {1, 1}})
	require.NoError(t, err)

	tests := []struct {
		name  string
		input InstanceInput
	}{
		{
			name:  "no background",
			input: InstanceInput{Instance: explain.Vector{1, 1}},
		},
		{
			name: "name count mismatch",
			input: InstanceInput{
				Instance:              explain.Vector{1, 1},
				Background:            background,
				BackgroundPredictions: explain.Vector{0, 1},
				Names:                 explain.FeatureNames{"only"},
			},
		},
		{
			name: "misaligned predictions",
			input: InstanceInput{
				Instance:              explain.Vector{1, 1},
				Background:            background,
				BackgroundPredictions: explain.Vector{0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AttributeInstance(context.Background(), tt.input)
			assert.ErrorIs(t, err, explain.ErrInvalidArgument)
		})
	}
}

func TestPartialDependenceDefaultsToAllFeatures(t *testing.T) {
	f := newServiceFixture(t)
	table := linearTable(t, 25, false, false)

	curves, err := f.svc.PartialDependence(context.Background(), table, nil, 5)
	require.NoError(t, err)
	require.Len(t, curves, 3)
	for i, c := range curves {
		assert.Equal(t, table.Names[i], c.Feature)
		assert.Len(t, c.Grid, 5)
	}
}

func TestDefaults(t *testing.T) {
	f := newServiceFixture(t)
	cfg := config.Default().Explain

	d := f.svc.Defaults()
	assert.Equal(t, cfg.KFolds, d.Folds)
	assert.Equal(t, cfg.Scorer, d.Scorer)
	assert.Equal(t, cfg.MaxEvaluations, d.MaxEvaluations)
	assert.Equal(t, cfg.GridSize, d.GridSize)
	assert.Equal(t, cfg.MaxInteractions, d.MaxInteractions)
	assert.Equal(t, cfg.Permutations, d.Permutations)
}

func TestRankByMagnitude(t *testing.T) {
	ranking := rankByMagnitude(explain.Vector{0.1, -0.5, 0.5, 0}, explain.FeatureNames{"a", "b", "c", "d"})

	got := make([]string, len(ranking))
	for i, r := range ranking {
		got[i] = r.Feature
	}
	assert.Equal(t, []string{"b", "c", "a", "d"}, got)
	assert.Equal(t, 0.5, ranking[0].Score)
}
