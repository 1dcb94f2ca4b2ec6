package tablestore

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// TypeMapping bundles the resolvers of one domain type. Any resolver may be nil
// if the type is never used with the corresponding operation.
type TypeMapping[T any] struct {
	GetResolver    GetResolver[T]
	PutResolver    PutResolver[T]
	DeleteResolver DeleteResolver[T]
}

// registeredMapping is a type-erased TypeMapping, so that batches of mixed runtime types can be
// dispatched per item.
type registeredMapping struct {
	typ     reflect.Type
	mapping any
	put     func(ctx context.Context, ll *LowLevel, item any) (PutResult, error)
	delete  func(ctx context.Context, ll *LowLevel, item any) (DeleteResult, error)
}

// TypeMappings is the registry of TypeMapping(s) keyed by the runtime type of the items.
// It is populated at configuration time and frozen when a Store is built with it.
type TypeMappings struct {
	mu      sync.RWMutex
	entries map[reflect.Type]registeredMapping
	frozen  bool
}

// NewTypeMappings creates an empty registry.
func NewTypeMappings() *TypeMappings {
	return &TypeMappings{entries: make(map[reflect.Type]registeredMapping)}
}

// RegisterTypeMapping registers the mapping for T.
func RegisterTypeMapping[T any](tm *TypeMappings, mapping TypeMapping[T]) error {
	typ := reflect.TypeFor[T]()

	entry := registeredMapping{
		typ:     typ,
		mapping: mapping,
	}

	if mapping.PutResolver != nil {
		entry.put = func(ctx context.Context, ll *LowLevel, item any) (PutResult, error) {
			typed, ok := item.(T)
			if !ok {
				return PutResult{}, fmt.Errorf("%w: expected %s, got %T", ErrMissingTypeMapping, typ, item)
			}

			return mapping.PutResolver.PerformPut(ctx, ll, typed)
		}
	}

	if mapping.DeleteResolver != nil {
		entry.delete = func(ctx context.Context, ll *LowLevel, item any) (DeleteResult, error) {
			typed, ok := item.(T)
			if !ok {
				return DeleteResult{}, fmt.Errorf("%w: expected %s, got %T", ErrMissingTypeMapping, typ, item)
			}

			return mapping.DeleteResolver.PerformDelete(ctx, ll, typed)
		}
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.frozen {
		return ErrTypeMappingsFrozen
	}

	if _, exists := tm.entries[typ]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTypeMapping, typ)
	}

	tm.entries[typ] = entry

	return nil
}

// Len returns the number of registered type mappings.
func (tm *TypeMappings) Len() int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	return len(tm.entries)
}

// Has reports whether a type mapping is registered for the type.
func (tm *TypeMappings) Has(t reflect.Type) bool {
	_, ok := tm.lookup(t)

	return ok
}

func (tm *TypeMappings) freeze() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.frozen = true
}

func (tm *TypeMappings) lookup(t reflect.Type) (registeredMapping, bool) {
	if t == nil {
		return registeredMapping{}, false
	}

	tm.mu.RLock()
	defer tm.mu.RUnlock()

	entry, ok := tm.entries[t]

	return entry, ok
}

func typeMappingFor[T any](tm *TypeMappings) (TypeMapping[T], bool) {
	entry, ok := tm.lookup(reflect.TypeFor[T]())
	if !ok {
		return TypeMapping[T]{}, false
	}

	mapping, ok := entry.mapping.(TypeMapping[T])

	return mapping, ok
}

// runtimeTypeOf returns the dynamic type of the item, falling back to T for nil interface values.
func runtimeTypeOf[T any](item T) reflect.Type {
	if t := reflect.TypeOf(any(item)); t != nil {
		return t
	}

	return reflect.TypeFor[T]()
}

/***** resolution *****/

type (
	putFunc[T any]    func(ctx context.Context, ll *LowLevel, item T) (PutResult, error)
	deleteFunc[T any] func(ctx context.Context, ll *LowLevel, item T) (DeleteResult, error)
)

// resolveGetResolver returns the explicit resolver or the one registered for T.
func resolveGetResolver[T any](tm *TypeMappings, explicit GetResolver[T]) (GetResolver[T], error) {
	if explicit != nil {
		return explicit, nil
	}

	mapping, ok := typeMappingFor[T](tm)
	if !ok {
		return nil, &MissingTypeMappingError{Type: reflect.TypeFor[T]()}
	}

	if mapping.GetResolver == nil {
		return nil, &MissingTypeMappingError{Type: reflect.TypeFor[T](), Resolver: "get"}
	}

	return mapping.GetResolver, nil
}

// resolvePut returns the explicit resolver or the one registered for the runtime type of the item.
func resolvePut[T any](tm *TypeMappings, item T, explicit PutResolver[T]) (putFunc[T], error) {
	if explicit != nil {
		return explicit.PerformPut, nil
	}

	typ := runtimeTypeOf(item)

	entry, ok := tm.lookup(typ)
	if !ok {
		return nil, &MissingTypeMappingError{Type: typ}
	}

	if entry.put == nil {
		return nil, &MissingTypeMappingError{Type: typ, Resolver: "put"}
	}

	return func(ctx context.Context, ll *LowLevel, item T) (PutResult, error) {
		return entry.put(ctx, ll, item)
	}, nil
}

// resolveDelete returns the explicit resolver or the one registered for the runtime type of the item.
func resolveDelete[T any](tm *TypeMappings, item T, explicit DeleteResolver[T]) (deleteFunc[T], error) {
	if explicit != nil {
		return explicit.PerformDelete, nil
	}

	typ := runtimeTypeOf(item)

	entry, ok := tm.lookup(typ)
	if !ok {
		return nil, &MissingTypeMappingError{Type: typ}
	}

	if entry.delete == nil {
		return nil, &MissingTypeMappingError{Type: typ, Resolver: "delete"}
	}

	return func(ctx context.Context, ll *LowLevel, item T) (DeleteResult, error) {
		return entry.delete(ctx, ll, item)
	}, nil
}
