// Package http implements the HTTP handlers of the explanation service.
// Handlers stay thin: they decode and validate a request contract from
// pkg/contracts/api/v1, convert it with dataset.FromContract, call the
// service and render the result. Every error goes through the shared
// errors.ErrorHandler so clients always receive RFC 7807 problem details.
//
// # Routes
//
//	POST /api/explain/crossval
//	POST /api/explain/attribution
//	POST /api/explain/attribution/instance
//	POST /api/explain/partial-dependence
//	POST /api/explain/interactions
//	POST /api/explain/importance
//	POST /api/explain/fairness
//	POST /api/explain/report
//	GET  /api/health, /api/health/ready, /api/health/live, /api/version
//
// Successful analyses answer with api.AnalysisResponse:
//
//	{"id": "...", "analysis": "importance", "rows": 1000, "duration_ms": 12, "result": {...}}
//
// # Testing
//
// ExplainHandler depends on ExplainServiceInterface so tests can substitute
// a testify mock.
package http
