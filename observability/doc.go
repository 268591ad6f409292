// Package observability bootstraps OpenTelemetry tracing and metrics and
// records token activity.
//
// Setup installs OTLP HTTP exporters when enabled:
//
//	providers, err := observability.Setup(ctx, cfg.Observability, observability.ServiceInfo{Name: "orders-api"})
//	defer providers.Shutdown(ctx)
//
// TokenMetrics counts issued tokens, LoadToken outcomes and bearer filter
// outcomes:
//
//	metrics, err := observability.NewTokenMetrics(observability.Meter("orders-api"))
//	j, err := jwt.New(cfg.JWT, jwt.WithRecorder(metrics))
//	f, err := bearer.NewFilter(cfg.Bearer, j, bearer.WithRecorder(metrics), ...)
package observability
