package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"explaincli/internal/config"
	"explaincli/internal/explain"
	"explaincli/internal/infrastructure"
	"explaincli/pkg/contracts"
	api "explaincli/pkg/contracts/api/v1"
)

// Health states
const (
	StatusOK       = "ok"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
	StatusAlive    = "alive"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	explainer *explain.Explainer
	cfg       *config.Config
	startTime time.Time
	logger    *slog.Logger
}

// NewHealthService creates a health service over the running explainer
func NewHealthService(version string, explainer *explain.Explainer, cfg *config.Config, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized", slog.String("version", version))

	return &HealthService{
		version:   version,
		explainer: explainer,
		cfg:       cfg,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) api.HealthResponse {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return api.HealthResponse{
		Status:    StatusOK,
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports whether the explainer and configuration can serve
// analyses
func (hs *HealthService) ReadinessCheck(ctx context.Context) api.HealthResponse {
	status := api.HealthResponse{
		Status:    StatusReady,
		Timestamp: time.Now(),
		Version:   hs.version,
		Checks: map[string]api.CheckResult{
			"explainer": hs.checkExplainer(),
			"config":    hs.checkConfig(),
		},
	}

	for name, check := range status.Checks {
		if check.Status != StatusReady {
			status.Status = StatusNotReady
			hs.logger.WarnContext(ctx, "ReadinessCheck: dependency not ready",
				slog.String("check", name),
				slog.String("message", check.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status with runtime statistics
func (hs *HealthService) LivenessCheck(ctx context.Context) api.HealthResponse {
	stats := infrastructure.CollectSystemStats(hs.startTime)
	return api.HealthResponse{
		Status:    StatusAlive,
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":       stats.ProcessUptime.Seconds(),
			"go_version":   runtime.Version(),
			"goroutines":   stats.GoRoutines,
			"memory_bytes": stats.MemoryUsage,
			"gc_count":     stats.GCCount,
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":       hs.version,
		"api_version":   info.APIVersion,
		"report_format": info.ReportFormat,
		"build_time":    info.BuildTime,
		"git_commit":    info.GitCommit,
		"go_version":    info.GoVersion,
		"os":            info.OS,
		"arch":          info.Architecture,
		"uptime":        time.Since(hs.startTime).Seconds(),
		"start_time":    hs.startTime.Format(time.RFC3339),
		"current_time":  time.Now().Format(time.RFC3339),
	}
}

func (hs *HealthService) checkExplainer() api.CheckResult {
	if hs.explainer == nil {
		return api.CheckResult{Status: StatusNotReady, Message: "explainer not initialized"}
	}
	if !hs.explainer.Config().IsValid() {
		return api.CheckResult{Status: StatusNotReady, Message: "explainer configuration is invalid"}
	}
	return api.CheckResult{Status: StatusReady}
}

func (hs *HealthService) checkConfig() api.CheckResult {
	if hs.cfg == nil {
		return api.CheckResult{Status: StatusNotReady, Message: "configuration not loaded"}
	}
	if _, err := explain.ScorerByName(hs.cfg.Explain.Scorer, nil); err != nil {
		return api.CheckResult{Status: StatusNotReady, Message: err.Error()}
	}
	return api.CheckResult{Status: StatusReady}
}
