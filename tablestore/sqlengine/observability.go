package sqlengine

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore"
)

const (
	metricStatementDuration    = "tablestore_sqlengine_statement_duration_seconds"
	metricTransactionDuration  = "tablestore_sqlengine_transaction_duration_seconds"
	metricDatabaseErrors       = "tablestore_sqlengine_database_errors_total"
	metricTransactionConflicts = "tablestore_sqlengine_transaction_conflicts_total"

	spanNamePrefix      = "sqlengine."
	spanNameTransaction = "transaction"
	spanAttrOperation   = "operation"
	spanAttrErrorType   = "error_type"
	spanAttrConsistency = "consistency"
	spanAttrOutcome     = "outcome"

	statusSuccess = "success"
	statusError   = "error"

	errorTypeConflict  = "transaction_conflict"
	errorTypeCanceled  = "context_canceled"
	errorTypeTimeout   = "context_timeout"
	errorTypeDatabase  = "database_error"
	errorTypeNoColumns = "no_columns"
)

// logQueryWithDuration logs SQL statements with execution time at debug level if a logger is configured.
func (s *Store) logQueryWithDuration(
	ctx context.Context,
	sqlQuery sqlQueryString,
	action string,
	duration time.Duration,
) {

	s.logDebug(ctx, logMsgSQLExecuted+action, logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
}

func (s *Store) logDebug(ctx context.Context, msg string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, msg, args...)
		return
	}

	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Store) logInfo(ctx context.Context, msg string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, msg, args...)
		return
	}

	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Store) logWarn(ctx context.Context, msg string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.WarnContext(ctx, msg, args...)
		return
	}

	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

// logError logs error information at the error level if a logger is configured.
func (s *Store) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if s.contextualLogger != nil {
		s.contextualLogger.ErrorContext(ctx, message, allArgs...)
		return
	}

	if s.logger != nil {
		s.logger.Error(message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// recordErrorMetricsContext records error metrics with context if the collector supports it.
func (s *Store) recordErrorMetricsContext(ctx context.Context, operation, errorType string) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		"status":          statusError,
		spanAttrErrorType: errorType,
	}

	// Use context-aware method if available
	if contextualCollector, ok := s.metricsCollector.(tablestore.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricDatabaseErrors, labels)
	} else {
		s.metricsCollector.IncrementCounter(metricDatabaseErrors, labels)
	}
}

// recordDurationMetricsContext records duration metrics with context if the collector supports it.
func (s *Store) recordDurationMetricsContext(
	ctx context.Context,
	metricName string,
	duration time.Duration,
	operation, status string,
) {

	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		"status":          status,
	}

	// Use context-aware method if available
	if contextualCollector, ok := s.metricsCollector.(tablestore.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricName, duration, labels)
	} else {
		s.metricsCollector.RecordDuration(metricName, duration, labels)
	}
}

// recordConflictMetricsContext records transaction conflict metrics if a metrics collector is configured.
func (s *Store) recordConflictMetricsContext(ctx context.Context, operation string) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		"conflict_type":   "transaction",
	}

	if contextualCollector, ok := s.metricsCollector.(tablestore.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricTransactionConflicts, labels)
	} else {
		s.metricsCollector.IncrementCounter(metricTransactionConflicts, labels)
	}
}

// startTraceSpan starts a tracing span if the tracing collector is configured.
func (s *Store) startTraceSpan(
	ctx context.Context,
	operation string,
	attrs map[string]string,
) (context.Context, tablestore.SpanContext) {

	if s.tracingCollector == nil {
		return ctx, nil
	}

	return s.tracingCollector.StartSpan(ctx, spanNamePrefix+operation, attrs)
}

// finishTraceSpan finishes a tracing span if the tracing collector is configured.
func (s *Store) finishTraceSpan(span tablestore.SpanContext, status string, attrs map[string]string) {
	if s.tracingCollector == nil || span == nil {
		return
	}

	s.tracingCollector.FinishSpan(span, status, attrs)
}

// errorTypeOf classifies an error for the error_type label.
func errorTypeOf(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return errorTypeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return errorTypeTimeout
	case isConflict(err), errors.Is(err, tablestore.ErrTransactionConflict):
		return errorTypeConflict
	case errors.Is(err, tablestore.ErrNoColumnsToWrite):
		return errorTypeNoColumns
	default:
		return errorTypeDatabase
	}
}
