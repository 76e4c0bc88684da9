// Package shared holds helpers used across packages that belong to no single
// layer. Its testutil subpackage provides a buffered slog handler for
// asserting on log output:
//
//	logger, handler := testutil.NewTestLogger(t)
//	svc := services.NewExplainService(explainer, cfg, nil, nil, logger)
//	...
//	testutil.AssertLogContains(t, handler, slog.LevelInfo, "report generated")
//
// Nothing here may import domain packages.
package shared
