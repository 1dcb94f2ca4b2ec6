package tablestore

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"time"
)

const (
	defaultMaxAttempts  = 6
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3
)

var (
	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBaseDelay is returned when the base delay is negative.
	ErrNegativeBaseDelay = errors.New("base delay must not be negative")

	// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

// retryConfig holds configuration for exponential backoff retry logic.
type retryConfig struct {
	maxAttempts     int
	baseDelay       time.Duration
	jitterFactor    float64
	retryableErrors []error
	observer        observer
}

// RetryOption configures retry behavior using the functional options pattern.
type RetryOption func(*retryConfig) error

// RetryInterceptor re-runs the rest of the chain with exponential backoff when it fails with a retryable error.
//
// Retry Schedule (default): 0 ms, 10 ms, 20 ms, 40 ms, 80 ms, 160 ms (with 30% jitter)
//
// Only ErrTransactionConflict (busy database, serialization failure) and errors added with
// WithRetryableError are retried, all other errors fail fast. A context.DeadlineExceeded is never retried.
// Transactional batches are safe to retry as a whole, their failed attempts published no Changes.
// A batch with UseTransaction(false) has already published the Changes of the items it wrote before failing.
func RetryInterceptor(options ...RetryOption) (Interceptor, error) {
	config := &retryConfig{
		maxAttempts:     defaultMaxAttempts,
		baseDelay:       defaultBaseDelay,
		jitterFactor:    defaultJitterFactor,
		retryableErrors: []error{ErrTransactionConflict},
	}

	for _, option := range options {
		if err := option(config); err != nil {
			return nil, err
		}
	}

	return func(ctx context.Context, op Operation, next Chain) (any, error) {
		var (
			result  any
			lastErr error
		)

		for attempt := 0; attempt < config.maxAttempts; attempt++ {
			if attempt > 0 {
				// Exponential backoff: baseDelay * 2^(attempt-1)
				delay := config.baseDelay * time.Duration(1<<(attempt-1))
				jitter := rand.Float64() * float64(delay) * config.jitterFactor //nolint:gosec //math/rand is sufficient for jitter
				backoffDelay := delay + time.Duration(jitter)

				config.observer.logWarn(
					ctx,
					logMsgOperationRetrying,
					logAttrOperation, string(op.Kind()),
					logAttrAttempt, attempt,
					logAttrDelayMS, toMilliseconds(backoffDelay),
					logAttrError, lastErr.Error(),
				)

				select {
				case <-time.After(backoffDelay):
				case <-ctx.Done():
					return nil, errors.Join(lastErr, ctx.Err())
				}
			}

			result, lastErr = next(ctx, op)
			if lastErr == nil {
				return result, nil
			}

			if !config.isRetryable(lastErr) {
				return result, lastErr
			}

			if attempt < config.maxAttempts-1 {
				config.observer.incrementCounter(ctx, MetricOperationRetries, map[string]string{
					LabelOperation: string(op.Kind()),
					LabelAttempt:   strconv.Itoa(attempt + 1),
					LabelErrorType: errorTypeOf(lastErr),
				})
			}
		}

		return result, lastErr
	}, nil
}

func (c *retryConfig) isRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	for _, retryable := range c.retryableErrors {
		if errors.Is(err, retryable) {
			return true
		}
	}

	return false
}

// WithMaxAttempts sets the maximum number of attempts including the first one.
func WithMaxAttempts(attempts int) RetryOption {
	return func(config *retryConfig) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		config.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the base delay for exponential backoff.
// Actual delays: baseDelay, baseDelay*2, baseDelay*4, baseDelay*8, etc.
func WithBaseDelay(delay time.Duration) RetryOption {
	return func(config *retryConfig) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		config.baseDelay = delay

		return nil
	}
}

// WithJitterFactor sets the jitter added as a fraction of the calculated backoff delay.
// Valid range: 0.0 (no jitter) to 1.0 (100% jitter).
func WithJitterFactor(factor float64) RetryOption {
	return func(config *retryConfig) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		config.jitterFactor = factor

		return nil
	}
}

// WithRetryableError adds an error (matched with errors.Is) that is retried.
func WithRetryableError(err error) RetryOption {
	return func(config *retryConfig) error {
		if err != nil {
			config.retryableErrors = append(config.retryableErrors, err)
		}

		return nil
	}
}

// WithRetryLogger sets the logger which receives a warning before every retry.
func WithRetryLogger(logger Logger) RetryOption {
	return func(config *retryConfig) error {
		config.observer.logger = logger
		return nil
	}
}

// WithRetryMetrics sets the collector which counts the retries.
func WithRetryMetrics(collector MetricsCollector) RetryOption {
	return func(config *retryConfig) error {
		config.observer.metricsCollector = collector
		return nil
	}
}
