package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"explaincli/internal/dataset"
	apierrors "explaincli/internal/errors"
	"explaincli/internal/explain"
	"explaincli/internal/middleware"
	"explaincli/internal/services"
	api "explaincli/pkg/contracts/api/v1"
)

// ExplainHandler handles the analysis endpoints
type ExplainHandler struct {
	service      ExplainServiceInterface
	validator    *middleware.RequestValidator
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewExplainHandler creates a new explain handler
func NewExplainHandler(service ExplainServiceInterface, validator *middleware.RequestValidator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ExplainHandler {
	return &ExplainHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "explain")),
	}
}

// RegisterRoutes registers the analysis routes under /explain
func (h *ExplainHandler) RegisterRoutes(r chi.Router) {
	r.Route("/explain", func(r chi.Router) {
		r.Post("/crossval", h.CrossValidate)
		r.Post("/attribution", h.Attribute)
		r.Post("/attribution/instance", h.AttributeInstance)
		r.Post("/partial-dependence", h.PartialDependence)
		r.Post("/interactions", h.Interactions)
		r.Post("/importance", h.Importance)
		r.Post("/fairness", h.Fairness)
		r.Post("/report", h.Report)
	})
}

// respond wraps result in an AnalysisResponse
func (h *ExplainHandler) respond(w http.ResponseWriter, r *http.Request, analysis string, rows int, start time.Time, result interface{}) {
	resp := api.AnalysisResponse{
		ID:         uuid.New().String(),
		Analysis:   analysis,
		Rows:       rows,
		DurationMS: time.Since(start).Milliseconds(),
		Result:     result,
	}

	h.logger.InfoContext(r.Context(), "analysis served",
		slog.String("analysis", analysis),
		slog.String("response_id", resp.ID),
		slog.Int("rows", rows),
		slog.Int64("duration_ms", resp.DurationMS),
	)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

// decodeTable decodes and validates the request, then builds its dataset
func (h *ExplainHandler) decodeTable(w http.ResponseWriter, r *http.Request, dst interface{}, ds func() api.Dataset) (*dataset.Table, bool) {
	if err := h.validator.DecodeAndValidate(r, dst); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}
	table, err := dataset.FromContract(ds())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return nil, false
	}
	return table, true
}

// CrossValidate handles POST /api/explain/crossval
func (h *ExplainHandler) CrossValidate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req api.CrossValidationRequest
	table, ok := h.decodeTable(w, r, &req, func() api.Dataset { return req.Dataset })
	if !ok {
		return
	}

	report, err := h.service.CrossValidate(r.Context(), table, req.Folds, req.Scorer)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, services.AnalysisCrossValidation, table.Rows(), start, report)
}

// Attribute handles POST /api/explain/attribution
func (h *ExplainHandler) Attribute(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req api.AttributionRequest
	table, ok := h.decodeTable(w, r, &req, func() api.Dataset { return req.Dataset })
	if !ok {
		return
	}

	result, err := h.service.Attribute(r.Context(), table, req.MaxEvaluations)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, services.AnalysisAttribution, table.Rows(), start, result)
}

// AttributeInstance handles POST /api/explain/attribution/instance
func (h *ExplainHandler) AttributeInstance(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req api.InstanceAttributionRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	background, err := explain.NewFeatureMatrix(req.Background)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.AttributeInstance(r.Context(), services.InstanceInput{
		Instance:              req.Instance,
		Background:            background,
		BackgroundPredictions: req.BackgroundPredictions,
		BaseValue:             req.BaseValue,
		Samples:               req.Samples,
		Names:                 req.FeatureNames,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, services.AnalysisInstanceAttribution, background.Rows(), start, result)
}

// PartialDependence handles POST /api/explain/partial-dependence
func (h *ExplainHandler) PartialDependence(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req api.PartialDependenceRequest
	table, ok := h.decodeTable(w, r, &req, func() api.Dataset { return req.Dataset })
	if !ok {
		return
	}

	var features []string
	if req.Feature != "" {
		features = []string{req.Feature}
	}
	curves, err := h.service.PartialDependence(r.Context(), table, features, req.GridSize)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, services.AnalysisPartialDependence, table.Rows(), start, curves)
}

// Interactions handles POST /api/explain/interactions
func (h *ExplainHandler) Interactions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req api.InteractionsRequest
	table, ok := h.decodeTable(w, r, &req, func() api.Dataset { return req.Dataset })
	if !ok {
		return
	}

	ranking, err := h.service.Interactions(r.Context(), table, req.MaxInteractions)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, services.AnalysisInteractions, table.Rows(), start, ranking)
}

// Importance handles POST /api/explain/importance
func (h *ExplainHandler) Importance(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req api.ImportanceRequest
	table, ok := h.decodeTable(w, r, &req, func() api.Dataset { return req.Dataset })
	if !ok {
		return
	}

	ranking, err := h.service.Importance(r.Context(), table, req.Permutations)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, services.AnalysisImportance, table.Rows(), start, ranking)
}

// Fairness handles POST /api/explain/fairness
func (h *ExplainHandler) Fairness(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req api.FairnessRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	report, err := h.service.Fairness(r.Context(), req.Predictions, req.Actuals, req.Groups)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, services.AnalysisFairness, len(req.Predictions), start, report)
}

// Report handles POST /api/explain/report
func (h *ExplainHandler) Report(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req api.ReportRequest
	table, ok := h.decodeTable(w, r, &req, func() api.Dataset { return req.Dataset })
	if !ok {
		return
	}

	report, err := h.service.Report(r.Context(), table, services.AnalysisOptions{
		Folds:           req.Options.Folds,
		Scorer:          req.Options.Scorer,
		MaxEvaluations:  req.Options.MaxEvaluations,
		GridSize:        req.Options.GridSize,
		MaxInteractions: req.Options.MaxInteractions,
		Permutations:    req.Options.Permutations,
		Features:        req.Options.Features,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, services.AnalysisReport, table.Rows(), start, report)
}
