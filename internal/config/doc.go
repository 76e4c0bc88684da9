// Package config provides centralized configuration management for the
// explanation service and CLI.
//
// # Configuration Sources
//
// Configuration is assembled from the following sources, later sources
// overriding earlier ones:
//
//	1. Default values (Default)
//	2. A YAML file named by EXPLAIN_CONFIG, or config/explain.yaml when present
//	3. Environment variables
//
// # Environment Variables
//
// Variables are namespaced with EXPLAIN and the section name:
//
//	EXPLAIN_SERVER_PORT=8080
//	EXPLAIN_LOGGING_LEVEL=debug
//	EXPLAIN_LOGGING_FORMAT=text
//	EXPLAIN_EXPLAIN_SEED=42
//	EXPLAIN_EXPLAIN_SEEDED=true
//	EXPLAIN_EXPLAIN_MAX_EVALUATIONS=10000
//	EXPLAIN_TELEMETRY_ENABLE_TRACING=true
//
// # Validation
//
// Load rejects out-of-range ports, timeouts, log formats and engine
// defaults (fold count, grid size, scorer name and so on) so that request
// handlers can rely on the defaults being usable.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	explainer := explain.NewExplainer(cfg.Explain.EngineConfig(), logger)
package config
