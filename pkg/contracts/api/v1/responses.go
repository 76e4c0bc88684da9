package api

import "time"

// AnalysisResponse wraps the result of a single analysis
type AnalysisResponse struct {
	ID         string      `json:"id"`
	Analysis   string      `json:"analysis"`
	Rows       int         `json:"rows"`
	DurationMS int64       `json:"duration_ms"`
	Result     interface{} `json:"result"`
}

// HealthResponse is returned by the health endpoints
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of one readiness check
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
