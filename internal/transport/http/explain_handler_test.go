package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"explaincli/internal/config"
	"explaincli/internal/dataset"
	apierrors "explaincli/internal/errors"
	"explaincli/internal/explain"
	"explaincli/internal/middleware"
	"explaincli/internal/services"
	"explaincli/internal/shared/testutil"
)

// MockExplainService is a mock implementation of ExplainServiceInterface
type MockExplainService struct {
	mock.Mock
}

func (m *MockExplainService) CrossValidate(ctx context.Context, t *dataset.Table, folds int, scorer string) (*explain.CrossValidationReport, error) {
	args := m.Called(t, folds, scorer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*explain.CrossValidationReport), args.Error(1)
}

func (m *MockExplainService) Attribute(ctx context.Context, t *dataset.Table, maxEvaluations int) (*explain.AttributionResult, error) {
	args := m.Called(t, maxEvaluations)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*explain.AttributionResult), args.Error(1)
}

func (m *MockExplainService) AttributeInstance(ctx context.Context, in services.InstanceInput) (*services.InstanceAttribution, error) {
	args := m.Called(in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.InstanceAttribution), args.Error(1)
}

func (m *MockExplainService) PartialDependence(ctx context.Context, t *dataset.Table, features []string, gridSize int) ([]*explain.SensitivityCurve, error) {
	args := m.Called(t, features, gridSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*explain.SensitivityCurve), args.Error(1)
}

func (m *MockExplainService) Interactions(ctx context.Context, t *dataset.Table, maxInteractions int) (*explain.InteractionRanking, error) {
	args := m.Called(t, maxInteractions)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*explain.InteractionRanking), args.Error(1)
}

func (m *MockExplainService) Importance(ctx context.Context, t *dataset.Table, permutations int) (*explain.ImportanceRanking, error) {
	args := m.Called(t, permutations)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*explain.ImportanceRanking), args.Error(1)
}

func (m *MockExplainService) Fairness(ctx context.Context, predictions, actuals explain.Vector, groups map[string][]int) (*explain.FairnessReport, error) {
	args := m.Called(predictions, actuals, groups)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*explain.FairnessReport), args.Error(1)
}

func (m *MockExplainService) Report(ctx context.Context, t *dataset.Table, opts services.AnalysisOptions) (*services.ExplanationReport, error) {
	args := m.Called(t, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ExplanationReport), args.Error(1)
}

func newTestRouter(t *testing.T, svc ExplainServiceInterface) chi.Router {
	t.Helper()
	logger := testutil.DiscardLogger()
	errorHandler := apierrors.NewErrorHandler(logger, false)
	handler := NewExplainHandler(svc, middleware.NewRequestValidator(logger), errorHandler, logger)

	r := chi.NewRouter()
	r.Route("/api", handler.RegisterRoutes)
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

var smallDataset = map[string]interface{}{
	"feature_names": []string{"a", "b"},
	"features":      [][]float64{{1, 2}, {2, 1}, {3, 4}, {4, 3}},
	"predictions":   []float64{0.1, 0.4, 0.6, 0.9},
	"target":        []float64{0, 0, 1, 1},
}

func tableMatcher(rows int) interface{} {
	return mock.MatchedBy(func(t *dataset.Table) bool {
		return t.Rows() == rows
	})
}

func TestExplainHandler_CrossValidate(t *testing.T) {
	svc := new(MockExplainService)
	report := &explain.CrossValidationReport{Mean: 0.75, StdDev: 0.05}
	svc.On("CrossValidate", tableMatcher(4), 2, "mae").Return(report, nil)

	rec := postJSON(t, newTestRouter(t, svc), "/api/explain/crossval", map[string]interface{}{
		"dataset": smallDataset,
		"folds":   2,
		"scorer":  "mae",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, services.AnalysisCrossValidation, body["analysis"])
	assert.Equal(t, float64(4), body["rows"])
	assert.NotEmpty(t, body["id"])
	result := body["result"].(map[string]interface{})
	assert.Equal(t, 0.75, result["mean"])
	svc.AssertExpectations(t)
}

func TestExplainHandler_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		body      interface{}
		wantCode  int
		wantField string
	}{
		{
			name:     "malformed json",
			path:     "/api/explain/attribution",
			body:     `{"dataset":`,
			wantCode: http.StatusBadRequest,
		},
		{
			name: "ragged features",
			path: "/api/explain/attribution",
			body: map[string]interface{}{"dataset": map[string]interface{}{
				"features":    [][]float64{{1, 2}, {3}},
				"predictions": []float64{1, 2},
			}},
			wantCode:  http.StatusBadRequest,
			wantField: "dataset.features",
		},
		{
			name: "unknown scorer",
			path: "/api/explain/crossval",
			body: map[string]interface{}{
				"dataset": smallDataset,
				"scorer":  "logloss",
			},
			wantCode:  http.StatusBadRequest,
			wantField: "scorer",
		},
		{
			name: "grid too small",
			path: "/api/explain/partial-dependence",
			body: map[string]interface{}{
				"dataset":   smallDataset,
				"grid_size": 1,
			},
			wantCode:  http.StatusBadRequest,
			wantField: "grid_size",
		},
		{
			name:      "fairness without groups",
			path:      "/api/explain/fairness",
			body:      map[string]interface{}{"predictions": []float64{1}, "actuals": []float64{1}},
			wantCode:  http.StatusBadRequest,
			wantField: "groups",
		},
		{
			name: "feature name count mismatch",
			path: "/api/explain/importance",
			body: map[string]interface{}{"dataset": map[string]interface{}{
				"feature_names": []string{"a"},
				"features":      [][]float64{{1, 2}},
				"predictions":   []float64{1},
			}},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockExplainService)
			rec := postJSON(t, newTestRouter(t, svc), tt.path, tt.body)

			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
			body := decodeBody(t, rec)
			assert.Equal(t, apierrors.TypeValidation, body["type"])

			if tt.wantField != "" {
				errs, ok := body["errors"].([]interface{})
				require.True(t, ok, "errors extension present")
				var fields []string
				for _, e := range errs {
					fields = append(fields, e.(map[string]interface{})["field"].(string))
				}
				assert.Contains(t, fields, tt.wantField)
			}
			svc.AssertNotCalled(t, "Attribute", mock.Anything, mock.Anything)
		})
	}
}

func TestExplainHandler_ServiceErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantType string
	}{
		{
			name:     "invalid argument",
			err:      &explain.ValidationError{Field: "target", Message: "cross-validation requires observed target values"},
			wantCode: http.StatusBadRequest,
			wantType: apierrors.TypeValidation,
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			wantCode: http.StatusGatewayTimeout,
			wantType: apierrors.TypeTimeout,
		},
		{
			name:     "analysis failure",
			err:      apierrors.NewAnalysisError("worker crashed", nil),
			wantCode: http.StatusInternalServerError,
			wantType: apierrors.TypeAnalysisFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockExplainService)
			svc.On("Interactions", mock.Anything, 0).Return(nil, tt.err)

			rec := postJSON(t, newTestRouter(t, svc), "/api/explain/interactions", map[string]interface{}{
				"dataset": smallDataset,
			})

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantType, decodeBody(t, rec)["type"])
			svc.AssertExpectations(t)
		})
	}
}

func TestExplainHandler_PartialDependenceFeature(t *testing.T) {
	svc := new(MockExplainService)
	curve := []*explain.SensitivityCurve{{Feature: "b", Grid: []float64{1, 4}, Response: []float64{0.2, 0.8}}}
	svc.On("PartialDependence", tableMatcher(4), []string{"b"}, 0).Return(curve, nil)
	svc.On("PartialDependence", tableMatcher(4), []string(nil), 3).Return(curve, nil)

	router := newTestRouter(t, svc)
	rec := postJSON(t, router, "/api/explain/partial-dependence", map[string]interface{}{
		"dataset": smallDataset,
		"feature": "b",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = postJSON(t, router, "/api/explain/partial-dependence", map[string]interface{}{
		"dataset":   smallDataset,
		"grid_size": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestExplainHandler_AttributeInstance(t *testing.T) {
	svc := new(MockExplainService)
	svc.On("AttributeInstance", mock.MatchedBy(func(in services.InstanceInput) bool {
		return in.Background.Rows() == 2 && in.BaseValue != nil && *in.BaseValue == 0.5 && in.Samples == 2
	})).Return(&services.InstanceAttribution{Values: explain.Vector{0.1, 0.2}, BaseValue: 0.5}, nil)

	router := newTestRouter(t, svc)
	rec := postJSON(t, router, "/api/explain/attribution/instance", map[string]interface{}{
		"instance":               []float64{1, 1},
		"background":             [][]float64{{0, 0}, {1, 1}},
		"background_predictions": []float64{0, 1},
		"base_value":             0.5,
		"samples":                2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), decodeBody(t, rec)["rows"])
	svc.AssertExpectations(t)

	rec = postJSON(t, router, "/api/explain/attribution/instance", map[string]interface{}{
		"instance":               []float64{1, 1},
		"background":             [][]float64{{0, 0}, {1, 1}},
		"background_predictions": []float64{0, 1},
		"samples":                0,
		"feature_names":          []string{"a", "a"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExplainHandler_Fairness(t *testing.T) {
	svc := new(MockExplainService)
	groups := map[string][]int{"a": {0}, "b": {1}}
	svc.On("Fairness", explain.Vector{0.9, 0.2}, explain.Vector{1, 0}, groups).
		Return(&explain.FairnessReport{OverallFairness: 0.8}, nil)

	rec := postJSON(t, newTestRouter(t, svc), "/api/explain/fairness", map[string]interface{}{
		"predictions": []float64{0.9, 0.2},
		"actuals":     []float64{1, 0},
		"groups":      groups,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), decodeBody(t, rec)["rows"])
	svc.AssertExpectations(t)
}

func TestExplainHandler_ReportOptions(t *testing.T) {
	svc := new(MockExplainService)
	want := services.AnalysisOptions{Folds: 3, Scorer: "r2", GridSize: 4, Features: []string{"a"}}
	svc.On("Report", tableMatcher(4), want).Return(&services.ExplanationReport{ID: "r-1", Rows: 4}, nil)

	rec := postJSON(t, newTestRouter(t, svc), "/api/explain/report", map[string]interface{}{
		"dataset": smallDataset,
		"options": map[string]interface{}{"folds": 3, "scorer": "r2", "grid_size": 4, "features": []string{"a"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decodeBody(t, rec)["result"].(map[string]interface{})
	assert.Equal(t, "r-1", result["id"])
	svc.AssertExpectations(t)
}

func TestExplainHandler_EndToEndWithService(t *testing.T) {
	cfg := config.Default().Explain
	logger := testutil.DiscardLogger()
	svc := services.NewExplainService(explain.NewExplainer(cfg.EngineConfig(), logger).WithSeed(1), cfg, nil, nil, logger)
	router := newTestRouter(t, svc)

	for _, path := range []string{
		"/api/explain/crossval",
		"/api/explain/attribution",
		"/api/explain/partial-dependence",
		"/api/explain/interactions",
		"/api/explain/importance",
		"/api/explain/report",
	} {
		t.Run(path, func(t *testing.T) {
			body := map[string]interface{}{"dataset": smallDataset}
			if path == "/api/explain/crossval" {
				body["folds"] = 2
			}
			if path == "/api/explain/report" {
				body["options"] = map[string]interface{}{"folds": 2}
			}
			rec := postJSON(t, router, path, body)
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		})
	}
}
