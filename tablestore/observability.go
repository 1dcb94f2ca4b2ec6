package tablestore

import (
	"context"
	"math"
	"time"
)

// Logger interface for operation logging, change notifications, warnings, and error reporting.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ContextualLogger interface for context-aware logging with automatic trace correlation.
// This interface follows the same dependency-free pattern as MetricsCollector and TracingCollector,
// allowing users to integrate with any logging backend (OpenTelemetry, structured loggers, etc.)
// that supports context-based correlation and automatic trace/span ID inclusion.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// MetricsCollector interface for collecting Store performance and operational metrics.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// ContextualMetricsCollector extends MetricsCollector with context-aware methods for better tracing integration.
// The Store uses the context-aware methods when available and falls back to the base MetricsCollector.
type ContextualMetricsCollector interface {
	MetricsCollector
	RecordDurationContext(ctx context.Context, metric string, duration time.Duration, labels map[string]string)
	IncrementCounterContext(ctx context.Context, metric string, labels map[string]string)
	RecordValueContext(ctx context.Context, metric string, value float64, labels map[string]string)
}

// SpanContext represents an active tracing span that can be finished and updated with attributes.
type SpanContext interface {
	SetStatus(status string)
	AddAttribute(key, value string)
}

// TracingCollector interface for collecting distributed tracing information from Store operations.
// It allows integrating any tracing backend (OpenTelemetry, Jaeger, Zipkin, etc.) without adding
// a dependency to this package.
type TracingCollector interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext)
	FinishSpan(spanCtx SpanContext, status string, attrs map[string]string)
}

const (
	MetricOperationDuration    = "tablestore_operation_duration_seconds"
	MetricOperationErrors      = "tablestore_operation_errors_total"
	MetricOperationRetries     = "tablestore_operation_retries_total"
	MetricChangesPublished     = "tablestore_changes_published_total"
	MetricChangesDelivered     = "tablestore_changes_delivered"
	MetricTransactionDuration  = "tablestore_transaction_duration_seconds"
	MetricActiveSubscriptions  = "tablestore_active_subscriptions"
	MetricLiveQueryReexecution = "tablestore_live_query_reexecutions_total"

	SpanNameTransaction = "tablestore.transaction"

	LabelOperation = "operation"
	LabelStatus    = "status"
	LabelErrorType = "error_type"
	LabelAttempt   = "attempt_number"

	StatusSuccess = "success"
	StatusError   = "error"
)

const (
	logMsgChangesPublished     = "changes published"
	logMsgSubscriptionStarted  = "changes subscription started"
	logMsgSubscriptionStopped  = "changes subscription stopped"
	logMsgCloseCursorFailed    = "failed to close cursor"
	logMsgTransactionEnded     = "batch transaction ended"
	logMsgTransactionFailed    = "batch transaction failed"
	logMsgLiveQueryReexecuting = "live query re-executing after related changes"
	logMsgLiveQueryFailed      = "live query execution failed"
	logMsgAsyncOperationFailed = "async operation failed"
	logMsgStoreClosed          = "store closed"
	logMsgCloseStorageFailed   = "failed to close storage"
	logMsgOperationCompleted   = "tablestore operation completed"
	logMsgOperationFailed      = "tablestore operation failed"
	logMsgOperationRetrying    = "tablestore operation failed with retryable error, retrying"
	logAttrError               = "error"
	logAttrOperation           = "operation"
	logAttrData                = "data"
	logAttrResult              = "result"
	logAttrDurationMS          = "duration_ms"
	logAttrChanges             = "changes"
	logAttrDelivered           = "delivered_to"
	logAttrSubscriptionID      = "subscription_id"
	logAttrFilter              = "filter"
	logAttrItemCount           = "item_count"
	logAttrAttempt             = "attempt"
	logAttrDelayMS             = "delay_ms"
)

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// observer bundles the optional observability backends so that every call site is nil-safe.
type observer struct {
	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
}

func (o observer) logDebug(ctx context.Context, msg string, args ...any) {
	if o.contextualLogger != nil {
		o.contextualLogger.DebugContext(ctx, msg, args...)
		return
	}

	if o.logger != nil {
		o.logger.Debug(msg, args...)
	}
}

func (o observer) logInfo(ctx context.Context, msg string, args ...any) {
	if o.contextualLogger != nil {
		o.contextualLogger.InfoContext(ctx, msg, args...)
		return
	}

	if o.logger != nil {
		o.logger.Info(msg, args...)
	}
}

func (o observer) logWarn(ctx context.Context, msg string, args ...any) {
	if o.contextualLogger != nil {
		o.contextualLogger.WarnContext(ctx, msg, args...)
		return
	}

	if o.logger != nil {
		o.logger.Warn(msg, args...)
	}
}

func (o observer) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if o.contextualLogger != nil {
		o.contextualLogger.ErrorContext(ctx, msg, allArgs...)
		return
	}

	if o.logger != nil {
		o.logger.Error(msg, allArgs...)
	}
}

// recordDuration records with context if the collector supports it.
func (o observer) recordDuration(ctx context.Context, metric string, d time.Duration, labels map[string]string) {
	if o.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := o.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, d, labels)
	} else {
		o.metricsCollector.RecordDuration(metric, d, labels)
	}
}

// incrementCounter increments with context if the collector supports it.
func (o observer) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if o.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := o.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
	} else {
		o.metricsCollector.IncrementCounter(metric, labels)
	}
}

// recordValue records with context if the collector supports it.
func (o observer) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	if o.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := o.metricsCollector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metric, value, labels)
	} else {
		o.metricsCollector.RecordValue(metric, value, labels)
	}
}

func (o observer) startSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext) {
	if o.tracingCollector != nil {
		return o.tracingCollector.StartSpan(ctx, name, attrs)
	}

	return ctx, nil
}

func (o observer) finishSpan(span SpanContext, status string, attrs map[string]string) {
	if o.tracingCollector != nil && span != nil {
		o.tracingCollector.FinishSpan(span, status, attrs)
	}
}

func statusOf(err error) string {
	if err != nil {
		return StatusError
	}

	return StatusSuccess
}
