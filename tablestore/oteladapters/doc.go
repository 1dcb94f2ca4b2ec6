// Package oteladapters provides OpenTelemetry implementations of the tablestore observability interfaces.
//
// Use them when you want plug-and-play observability for a tablestore.Store:
//
//	store, err := tablestore.NewStore(
//		storage,
//		tablestore.WithContextualLogger(oteladapters.NewSlogBridgeLogger("tablestore")),
//		tablestore.WithMetrics(oteladapters.NewMetricsCollector(meter)),
//		tablestore.WithTracing(oteladapters.NewTracingCollector(tracer)),
//		tablestore.WithInterceptors(tablestore.ObservabilityInterceptor(metrics, tracing)),
//	)
//
// The MetricsCollector also implements tablestore.ContextualMetricsCollector, so exemplars
// get linked to the active span when the metrics SDK is configured for it.
package oteladapters
