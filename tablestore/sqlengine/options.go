package sqlengine

import (
	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore"
)

// Option defines a functional option for configuring Store.
type Option func(*Store) error

// WithDialect sets the SQL dialect used to build the statements, the default is DialectPostgres
// except for OpenSQLite.
func WithDialect(dialect Dialect) Option {
	return func(s *Store) error {
		builder, err := builderFor(dialect)
		if err != nil {
			return err
		}

		s.dialect = dialect
		s.builder = builder

		return nil
	}
}

// WithLogger sets the logger for the Store.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing, transaction boundaries (development use)
// Info level: transaction conflicts (production-safe)
// Warn level: Non-critical issues like cleanup failures
// Error level: Critical failures that cause operation failures.
func WithLogger(logger tablestore.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Store.
// It receives statement and transaction durations, database errors and transaction conflicts.
func WithMetrics(collector tablestore.MetricsCollector) Option {
	return func(s *Store) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Store.
// Every statement and every top-level transaction gets its own span.
func WithTracing(collector tablestore.TracingCollector) Option {
	return func(s *Store) error {
		s.tracingCollector = collector
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Store.
// The contextual logger will receive log messages with context information including
// automatic trace/span correlation when tracing is enabled, enabling unified observability.
func WithContextualLogger(logger tablestore.ContextualLogger) Option {
	return func(s *Store) error {
		s.contextualLogger = logger
		return nil
	}
}
