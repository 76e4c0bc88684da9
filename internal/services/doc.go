// Package services implements the business logic layer between the HTTP
// handlers or CLI and the explain engine.
//
// # Architecture
//
// Services follow these principles:
//
//	1. Context propagation for cancellation and tracing
//	2. Dependency injection of the explainer, tracer, metrics and logger
//	3. Defaults from config.ExplainConfig for every omitted parameter
//
// # ExplainService
//
// Each analysis method runs inside one OpenTelemetry span named
// "explain.<analysis>", records the infrastructure.AnalysisMetrics
// instruments and logs its outcome:
//
//	svc := services.NewExplainService(explainer, cfg.Explain, providers.Tracer, metrics, logger)
//	report, err := svc.Report(ctx, table, services.AnalysisOptions{Folds: 10})
//
// Report fans every supported analysis out on an errgroup. The first failure
// cancels the others and is returned wrapped; callers test it with
// errors.Is(err, explain.ErrInvalidArgument) or context errors.
//
// # HealthService
//
// HealthService answers the health, readiness and liveness endpoints.
// Readiness fails when the explainer is missing or the configured default
// scorer is unknown.
package services
