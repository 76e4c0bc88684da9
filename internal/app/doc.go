// Package app provides application initialization and lifecycle management
// for the explanation service. It wires configuration, logging, telemetry,
// the explain engine, services and HTTP handlers together.
//
// # Initialization Flow
//
//	1. The caller loads configuration and initializes the logger
//	2. NewApplication initializes OpenTelemetry and the analysis metrics
//	3. The explainer and services are created with their dependencies
//	4. The chi router gets middleware and routes
//	5. The HTTP server is configured
//
// # Usage
//
//	application, err := app.NewApplication(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return application.Run()
//
// # Graceful Shutdown
//
// Run handles SIGINT and SIGTERM: in-flight requests complete within
// Server.ShutdownTimeout and telemetry providers are flushed. The package
// never calls os.Exit.
package app
