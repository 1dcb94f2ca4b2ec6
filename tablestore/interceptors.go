package tablestore

import (
	"context"
	"fmt"
	"time"
)

// LoggingInterceptor logs every operation with its data, result and duration at debug level,
// and failures at error level. A logger that also implements ContextualLogger (like *slog.Logger)
// is called with the context.
func LoggingInterceptor(logger Logger) Interceptor {
	o := observer{logger: logger}
	if contextualLogger, ok := logger.(ContextualLogger); ok {
		o.contextualLogger = contextualLogger
	}

	return func(ctx context.Context, op Operation, next Chain) (any, error) {
		start := time.Now()
		result, err := next(ctx, op)
		duration := time.Since(start)

		if err != nil {
			o.logError(
				ctx,
				logMsgOperationFailed,
				err,
				logAttrOperation, string(op.Kind()),
				logAttrData, render(op.Data()),
				logAttrDurationMS, toMilliseconds(duration),
			)

			return result, err
		}

		o.logDebug(
			ctx,
			logMsgOperationCompleted,
			logAttrOperation, string(op.Kind()),
			logAttrData, render(op.Data()),
			logAttrResult, render(result),
			logAttrDurationMS, toMilliseconds(duration),
		)

		return result, nil
	}
}

// render prefers the String form of the value and falls back to JSON.
func render(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case fmt.Stringer:
		return v.String()
	case error:
		return v.Error()
	}

	rendered, err := jsonAPI.MarshalToString(value)
	if err != nil {
		return fmt.Sprintf("%+v", value)
	}

	return rendered
}

// ObservabilityInterceptor starts a span per operation and records the duration and errors of every
// operation. Either collector may be nil.
func ObservabilityInterceptor(metricsCollector MetricsCollector, tracingCollector TracingCollector) Interceptor {
	o := observer{metricsCollector: metricsCollector, tracingCollector: tracingCollector}

	return func(ctx context.Context, op Operation, next Chain) (any, error) {
		kind := string(op.Kind())

		spanCtx, span := o.startSpan(ctx, op.Name(), map[string]string{LabelOperation: kind})
		start := time.Now()

		result, err := next(spanCtx, op)

		duration := time.Since(start)
		status := statusOf(err)

		o.recordDuration(spanCtx, MetricOperationDuration, duration, map[string]string{
			LabelOperation: kind,
			LabelStatus:    status,
		})

		if err != nil {
			errorType := errorTypeOf(err)
			o.incrementCounter(spanCtx, MetricOperationErrors, map[string]string{
				LabelOperation: kind,
				LabelStatus:    status,
				LabelErrorType: errorType,
			})
			o.finishSpan(span, status, map[string]string{LabelErrorType: errorType})

			return result, err
		}

		o.finishSpan(span, status, map[string]string{logAttrDurationMS: fmt.Sprintf("%.2f", toMilliseconds(duration))})

		return result, nil
	}
}
