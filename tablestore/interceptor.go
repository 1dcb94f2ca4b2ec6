package tablestore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// OperationKind names the kind of operation passing through the interceptor chain.
type OperationKind string

const (
	OperationGetList       OperationKind = "get_list"
	OperationGetObject     OperationKind = "get_object"
	OperationGetCursor     OperationKind = "get_cursor"
	OperationGetCount      OperationKind = "get_count"
	OperationPutObject     OperationKind = "put_object"
	OperationPutObjects    OperationKind = "put_objects"
	OperationPutRow        OperationKind = "put_row"
	OperationPutRows       OperationKind = "put_rows"
	OperationDeleteQuery   OperationKind = "delete_query"
	OperationDeleteObject  OperationKind = "delete_object"
	OperationDeleteObjects OperationKind = "delete_objects"
	OperationExecuteSQL    OperationKind = "execute_sql"
)

// Operation is what interceptors see of an operation: its kind and its declared data
// (a Query, RawQuery, DeleteQuery, Row, object or collection).
type Operation struct {
	kind OperationKind
	data any
}

// NewOperation creates an Operation, mostly useful to test interceptors in isolation.
func NewOperation(kind OperationKind, data any) Operation {
	return Operation{kind: kind, data: data}
}

func (o Operation) Kind() OperationKind {
	return o.kind
}

func (o Operation) Data() any {
	return o.data
}

// Name is used as span name.
func (o Operation) Name() string {
	return "tablestore." + string(o.kind)
}

// Describe renders the operation's data for error messages.
func (o Operation) Describe() string {
	switch data := o.data.(type) {
	case nil:
		return "<none>"
	case fmt.Stringer:
		return data.String()
	default:
		if v := reflect.ValueOf(data); v.Kind() == reflect.Slice {
			return fmt.Sprintf("%d items of %T", v.Len(), data)
		}

		return fmt.Sprintf("%+v", data)
	}
}

// Chain proceeds with the rest of the interceptor chain, ending with the real call.
type Chain func(ctx context.Context, op Operation) (any, error)

// Interceptor wraps every operation. It must call next to continue or may short-circuit by returning
// without calling it.
type Interceptor func(ctx context.Context, op Operation, next Chain) (any, error)

// buildChain composes the interceptors in order around the real call.
func buildChain(interceptors []Interceptor, realCall Chain) Chain {
	if len(interceptors) == 0 {
		return realCall
	}

	head := interceptors[0]
	next := buildChain(interceptors[1:], realCall)

	return func(ctx context.Context, op Operation) (any, error) {
		return head(ctx, op, next)
	}
}

// runThroughChain binds the operation and executes its call through a fresh chain built from the store's
// interceptors. Every failure is wrapped into a StoreOperationError.
func runThroughChain[R any](
	ctx context.Context,
	s *Store,
	op Operation,
	bind binder[R],
) (R, error) {

	var empty R

	if s.isClosed() {
		return empty, wrapOperationError(op, ErrStoreClosed)
	}

	realCall, err := bind()
	if err != nil {
		return empty, wrapOperationError(op, err)
	}

	chain := buildChain(s.interceptors, func(ctx context.Context, _ Operation) (any, error) {
		return realCall(ctx)
	})

	result, err := chain(ctx, op)
	if err != nil {
		return empty, wrapOperationError(op, err)
	}

	if result == nil {
		return empty, nil
	}

	typed, ok := result.(R)
	if !ok {
		return empty, wrapOperationError(op, fmt.Errorf("%w: %T", ErrUnexpectedChainResult, result))
	}

	return typed, nil
}

func wrapOperationError(op Operation, err error) error {
	var storeOperationErr *StoreOperationError
	if errors.As(err, &storeOperationErr) {
		return err
	}

	return &StoreOperationError{
		Operation: op.Kind(),
		Request:   op.Describe(),
		Cause:     err,
	}
}

// errorTypeOf classifies errors for metric labels.
func errorTypeOf(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrMissingTypeMapping):
		return "missing_type_mapping"
	case errors.Is(err, ErrTransactionConflict):
		return "transaction_conflict"
	case errors.Is(err, ErrStoreClosed):
		return "store_closed"
	case errors.Is(err, context.Canceled):
		return "context_canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "context_deadline_exceeded"
	default:
		return "other"
	}
}
