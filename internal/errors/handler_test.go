package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"explaincli/internal/explain"
	"explaincli/internal/shared/testutil"
)

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestNewErrorHandler(t *testing.T) {
	for _, includeStack := range []bool{true, false} {
		logger, _ := testutil.NewTestLogger(t)
		handler := NewErrorHandler(logger, includeStack)

		require.NotNil(t, handler)
		assert.Equal(t, includeStack, handler.includeStack)
		assert.NotNil(t, handler.logger)
	}
}

func TestErrorHandler_ErrorToProblem(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantTitle  string
		wantDetail string
	}{
		{
			name:       "deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
			wantTitle:  "Request Timeout",
		},
		{
			name:       "wrapped cancellation",
			err:        fmt.Errorf("computing shap values: %w", context.Canceled),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "body too large",
			err:        fmt.Errorf("decode: %w", &http.MaxBytesError{Limit: 1024}),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   TypePayloadTooLarge,
			wantDetail: "The request body exceeds the maximum of 1024 bytes",
		},
		{
			name:       "api error",
			err:        InvalidRequestWithError(stderrors.New("unexpected EOF")),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantTitle:  "Bad Request",
			wantDetail: "Invalid request format",
		},
		{
			name:       "rate limit api error",
			err:        ErrRateLimitExceeded,
			wantStatus: http.StatusTooManyRequests,
			wantType:   TypeRateLimit,
		},
		{
			name:       "engine validation error",
			err:        fmt.Errorf("explain: %w", &explain.ValidationError{Field: "k", Message: "must be at least 2", Value: 1}),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantTitle:  "Invalid Argument",
			wantDetail: "must be at least 2",
		},
		{
			name:       "bare invalid argument sentinel",
			err:        fmt.Errorf("grid: %w", explain.ErrInvalidArgument),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
		},
		{
			name:       "parsing app error",
			err:        NewParsingError("column \"target\" missing", nil),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeDatasetInvalid,
			wantTitle:  "Invalid Dataset",
		},
		{
			name:       "not found app error",
			err:        NewNotFoundError("report"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
			wantDetail: "report not found",
		},
		{
			name:       "analysis app error",
			err:        NewAnalysisError("permutation importance failed", stderrors.New("boom")),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeAnalysisFailed,
		},
		{
			name:       "storage app error hides details",
			err:        NewStorageError("read dataset", stderrors.New("disk")),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantDetail: "An unexpected error occurred while processing your request",
		},
		{
			name:       "unknown error",
			err:        stderrors.New("something odd"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantTitle:  "Internal Server Error",
		},
	}

	handler := NewErrorHandler(testutil.DiscardLogger(), false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/v1/explain", nil)

			problem := handler.ErrorToProblem(tt.err, r)

			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/v1/explain", problem.Instance)
			if tt.wantTitle != "" {
				assert.Equal(t, tt.wantTitle, problem.Title)
			}
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, problem.Detail)
			}
		})
	}
}

func TestErrorHandler_ErrorToProblemExtensions(t *testing.T) {
	handler := NewErrorHandler(testutil.DiscardLogger(), false)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/crossval", nil)

	t.Run("engine validation error lists the field", func(t *testing.T) {
		problem := handler.ErrorToProblem(&explain.ValidationError{Field: "k", Message: "too small", Value: 1}, r)

		errs, ok := problem.Extensions["errors"].([]ValidationError)
		require.True(t, ok)
		require.Len(t, errs, 1)
		assert.Equal(t, "k", errs[0].Field)
		assert.Equal(t, 1, errs[0].Value)
	})

	t.Run("validation errors become the errors member", func(t *testing.T) {
		apiErr := NewValidationErrors([]ValidationError{{Field: "folds", Message: "must be at least 2"}})

		problem := handler.ErrorToProblem(apiErr, r)

		assert.Equal(t, "VALIDATION_FAILED", problem.Extensions["error_code"])
		assert.Len(t, problem.Extensions["errors"], 1)
		assert.NotContains(t, problem.Extensions, "details")
	})

	t.Run("other details pass through", func(t *testing.T) {
		problem := handler.ErrorToProblem(InvalidRequestWithError(stderrors.New("unexpected EOF")), r)

		assert.Equal(t, "unexpected EOF", problem.Extensions["details"])
	})

	t.Run("client app error exposes context", func(t *testing.T) {
		appErr := NewParsingError("bad number", nil).WithContext("row", 7)

		problem := handler.ErrorToProblem(appErr, r)

		assert.Equal(t, map[string]interface{}{"row": 7}, problem.Extensions["context"])
	})

	t.Run("server app error hides context", func(t *testing.T) {
		appErr := NewAnalysisError("failed", nil).WithContext("path", "/tmp/x")

		problem := handler.ErrorToProblem(appErr, r)

		assert.NotContains(t, problem.Extensions, "context")
	})
}

func TestErrorHandler_HandleError(t *testing.T) {
	t.Run("nil error writes nothing", func(t *testing.T) {
		logger, logs := testutil.NewTestLogger(t)
		handler := NewErrorHandler(logger, false)
		w := httptest.NewRecorder()

		handler.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)

		assert.Zero(t, w.Body.Len())
		assert.Zero(t, logs.Count())
	})

	t.Run("client error is logged as warning", func(t *testing.T) {
		logger, logs := testutil.NewTestLogger(t)
		handler := NewErrorHandler(logger, true)
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/v1/fairness", nil)
		r = r.WithContext(context.WithValue(r.Context(), middleware.RequestIDKey, "req-42"))

		handler.HandleError(w, r, &explain.ValidationError{Field: "groups", Message: "empty group"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
		body := decodeProblem(t, w)
		assert.Equal(t, TypeValidation, body["type"])
		assert.Equal(t, "req-42", body["trace_id"])
		assert.NotContains(t, body, "stack")

		testutil.AssertLogContains(t, logs, slog.LevelWarn, "request failed")
		testutil.AssertLogAttr(t, logs, "request_id", "req-42")
		testutil.AssertNoErrors(t, logs)
	})

	t.Run("server error is logged as error with stack", func(t *testing.T) {
		logger, logs := testutil.NewTestLogger(t)
		handler := NewErrorHandler(logger, true)
		w := httptest.NewRecorder()

		handler.HandleError(w, httptest.NewRequest(http.MethodGet, "/api/v1/explain", nil), stderrors.New("kaput"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeProblem(t, w)
		assert.NotEmpty(t, body["stack"])
		testutil.AssertLogContains(t, logs, slog.LevelError, "request failed")
		testutil.AssertLogAttr(t, logs, "error", "kaput")
	})
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	tests := []struct {
		name         string
		includeStack bool
	}{
		{name: "with stack", includeStack: true},
		{name: "without stack", includeStack: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, tt.includeStack)
			w := httptest.NewRecorder()

			handler.HandlePanic(w, httptest.NewRequest(http.MethodGet, "/boom", nil), "index out of range")

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			body := decodeProblem(t, w)
			assert.Equal(t, TypeInternal, body["type"])
			if tt.includeStack {
				assert.Equal(t, "index out of range", body["panic"])
				assert.NotEmpty(t, body["stack"])
			} else {
				assert.NotContains(t, body, "panic")
				assert.NotContains(t, body, "stack")
			}
			testutil.AssertLogContains(t, logs, slog.LevelError, "panic recovered")
		})
	}
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	handler := NewErrorHandler(testutil.DiscardLogger(), false)

	t.Run("not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.NotFound(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		body := decodeProblem(t, w)
		assert.Equal(t, TypeNotFound, body["type"])
		assert.Equal(t, "/missing", body["instance"])
	})

	t.Run("method not allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/api/v1/explain", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		body := decodeProblem(t, w)
		assert.Equal(t, TypeMethodNotAllowed, body["type"])
		assert.Equal(t, "Method DELETE is not allowed for this endpoint", body["detail"])
	})
}
