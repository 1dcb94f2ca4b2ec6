package tablestore

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore/internal/changesbus"
)

const defaultWorkerLimit = 16

// Store is the root object of the access layer. It owns the Storage, the type mappings, the configured
// interceptors and the change bus, whose lifetime is bound to the Store.
type Store struct {
	storage      Storage
	typeMappings *TypeMappings
	interceptors []Interceptor
	bus          *changesbus.Bus[Changes]
	lowLevel     *LowLevel
	observer     observer

	workerLimit int64
	workers     *semaphore.Weighted
	inFlight    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// Option defines a functional option for configuring a Store.
type Option func(*Store) error

// WithInterceptors appends interceptors to the chain every operation passes through, in the given order.
func WithInterceptors(interceptors ...Interceptor) Option {
	return func(s *Store) error {
		for _, interceptor := range interceptors {
			if interceptor == nil {
				return ErrNilInterceptor
			}
		}

		s.interceptors = append(s.interceptors, interceptors...)

		return nil
	}
}

// WithTypeMapping registers the TypeMapping for T.
func WithTypeMapping[T any](mapping TypeMapping[T]) Option {
	return func(s *Store) error {
		return RegisterTypeMapping(s.typeMappings, mapping)
	}
}

// WithTypeMappings replaces the registry with a prepared one. It is frozen by NewStore.
// Apply it before any WithTypeMapping option.
func WithTypeMappings(typeMappings *TypeMappings) Option {
	return func(s *Store) error {
		if typeMappings == nil {
			return fmt.Errorf("%w: type mappings", ErrNilResolver)
		}

		s.typeMappings = typeMappings

		return nil
	}
}

// WithLogger sets the logger for the Store.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: published changes, subscriptions, live query re-executions
// Info level: transaction outcomes, store lifecycle
// Warn level: non-critical issues like cursor cleanup failures
// Error level: failures of async operations and live queries.
func WithLogger(logger Logger) Option {
	return func(s *Store) error {
		s.observer.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Store.
// It takes precedence over the Logger and receives the context for trace correlation.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(s *Store) error {
		s.observer.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Store.
// It receives change notification counts, subscription gauges and batch transaction durations.
func WithMetrics(collector MetricsCollector) Option {
	return func(s *Store) error {
		s.observer.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Store.
// It receives a span per batch transaction.
func WithTracing(collector TracingCollector) Option {
	return func(s *Store) error {
		s.observer.tracingCollector = collector
		return nil
	}
}

// WithWorkerLimit bounds how many Async operations run at the same time.
func WithWorkerLimit(limit int) Option {
	return func(s *Store) error {
		if limit <= 0 {
			return ErrInvalidWorkerLimit
		}

		s.workerLimit = int64(limit)

		return nil
	}
}

// NewStore creates a Store over the Storage. The type mappings are frozen afterward.
func NewStore(storage Storage, options ...Option) (*Store, error) {
	if storage == nil {
		return nil, ErrNilStorage
	}

	s := &Store{
		storage:      storage,
		typeMappings: NewTypeMappings(),
		bus:          changesbus.New[Changes](),
		workerLimit:  defaultWorkerLimit,
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	s.typeMappings.freeze()
	s.workers = semaphore.NewWeighted(s.workerLimit)
	s.lowLevel = &LowLevel{store: s}

	return s, nil
}

// LowLevel returns the facade resolvers work with.
func (s *Store) LowLevel() *LowLevel {
	return s.lowLevel
}

// TypeMappings returns the frozen registry.
func (s *Store) TypeMappings() *TypeMappings {
	return s.typeMappings
}

// Close waits for running Async operations, cancels all subscriptions and closes the Storage.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.inFlight.Wait()
	s.bus.Close()

	if err := s.storage.Close(); err != nil {
		s.observer.logError(context.Background(), logMsgCloseStorageFailed, err)
		return err
	}

	s.observer.logInfo(context.Background(), logMsgStoreClosed)

	return nil
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.closed
}

func (s *Store) notifyAboutChanges(ctx context.Context, changes Changes) {
	if changes.IsEmpty() {
		return
	}

	delivered := s.bus.Publish(changes)

	s.observer.logDebug(ctx, logMsgChangesPublished, logAttrChanges, changes.String(), logAttrDelivered, delivered)
	s.observer.incrementCounter(ctx, MetricChangesPublished, nil)
	s.observer.recordValue(ctx, MetricChangesDelivered, float64(delivered), nil)
}

/***** observation *****/

// Subscription delivers the Changes matching its filter. Only the latest undelivered Changes value is kept.
type Subscription struct {
	id     uuid.UUID
	filter ChangesFilter
	sub    *changesbus.Subscription[Changes]
	stop   func() bool
	store  *Store
	once   sync.Once
}

func (s *Subscription) ID() uuid.UUID {
	return s.id
}

func (s *Subscription) Filter() ChangesFilter {
	return s.filter
}

// C returns the channel of Changes. It is closed when the subscription is cancelled.
func (s *Subscription) C() <-chan Changes {
	return s.sub.C()
}

// Cancel detaches the subscription, dropping a pending Changes value. It is idempotent.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		if s.stop != nil {
			s.stop()
		}

		s.sub.Cancel()

		ctx := context.Background()
		s.store.observer.logDebug(ctx, logMsgSubscriptionStopped, logAttrSubscriptionID, s.id.String())
		s.store.observer.recordValue(ctx, MetricActiveSubscriptions, float64(s.store.bus.Len()), nil)
	})
}

// ObserveChanges subscribes to all Changes. The subscription ends when ctx is done or on Cancel.
func (s *Store) ObserveChanges(ctx context.Context) (*Subscription, error) {
	return s.observe(ctx, MatchAllChanges())
}

// ObserveChangesInTables subscribes to Changes affecting any of the tables.
func (s *Store) ObserveChangesInTables(
	ctx context.Context,
	table TableNameString,
	tables ...TableNameString,
) (*Subscription, error) {

	return s.observe(ctx, MatchTables(table, tables...))
}

// ObserveChangesOfTags subscribes to Changes affecting any of the tags.
func (s *Store) ObserveChangesOfTags(ctx context.Context, tag TagString, tags ...TagString) (*Subscription, error) {
	return s.observe(ctx, MatchTags(tag, tags...))
}

// ObserveChangesInTablesOrTags subscribes to Changes affecting any of the tables or any of the tags.
func (s *Store) ObserveChangesInTablesOrTags(
	ctx context.Context,
	tables []TableNameString,
	tags []TagString,
) (*Subscription, error) {

	return s.observe(ctx, MatchTablesOrTags(tables, tags))
}

func (s *Store) observe(ctx context.Context, filter ChangesFilter) (*Subscription, error) {
	if s.isClosed() {
		return nil, ErrStoreClosed
	}

	sub, err := s.bus.Subscribe(filter.Matches)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreClosed, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		sub.Cancel()
		return nil, err
	}

	subscription := &Subscription{
		id:     id,
		filter: filter,
		sub:    sub,
		store:  s,
	}
	subscription.stop = context.AfterFunc(ctx, subscription.Cancel)

	s.observer.logDebug(
		ctx,
		logMsgSubscriptionStarted,
		logAttrSubscriptionID, id.String(),
		logAttrFilter, filter.String(),
	)
	s.observer.recordValue(ctx, MetricActiveSubscriptions, float64(s.bus.Len()), nil)

	return subscription, nil
}

/***** async *****/

// AsyncResult is the single value delivered by an Async call.
type AsyncResult[R any] struct {
	Value R
	Err   error
}

// runAsync runs fn on the store's bounded workers. The returned channel delivers exactly one result
// and is closed afterward.
func runAsync[R any](ctx context.Context, s *Store, op Operation, fn func(ctx context.Context) (R, error)) <-chan AsyncResult[R] {
	out := make(chan AsyncResult[R], 1)

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		out <- AsyncResult[R]{Err: wrapOperationError(op, ErrStoreClosed)}
		close(out)

		return out
	}
	s.inFlight.Add(1)
	s.mu.RUnlock()

	go func() {
		defer s.inFlight.Done()
		defer close(out)

		if err := s.workers.Acquire(ctx, 1); err != nil {
			out <- AsyncResult[R]{Err: wrapOperationError(op, err)}
			return
		}
		defer s.workers.Release(1)

		value, err := fn(ctx)
		if err != nil {
			s.observer.logError(ctx, logMsgAsyncOperationFailed, err, logAttrOperation, string(op.Kind()))
		}

		out <- AsyncResult[R]{Value: value, Err: err}
	}()

	return out
}

func itemCount(n int) string {
	return strconv.Itoa(n)
}
