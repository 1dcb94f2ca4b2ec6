// Package changesbus provides a conflating broadcast bus.
//
// Every subscription owns a single pending slot. Publishing never blocks: when the slot of a subscriber
// still holds an undelivered value, that value is replaced by the new one, so a slow subscriber only
// ever sees the latest value.
package changesbus

import (
	"errors"
	"sync"
)

// ErrClosed is returned when subscribing to a closed Bus.
var ErrClosed = errors.New("changes bus is closed")

// Bus broadcasts values of type T to all subscriptions whose filter accepts them.
type Bus[T any] struct {
	mu            sync.RWMutex
	subscriptions map[uint64]*Subscription[T]
	nextID        uint64
	closed        bool
}

// New creates an empty Bus.
func New[T any]() *Bus[T] {
	return &Bus[T]{subscriptions: make(map[uint64]*Subscription[T])}
}

// Subscribe registers a subscription. A nil filter accepts every value.
func (b *Bus[T]) Subscribe(filter func(T) bool) (*Subscription[T], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	b.nextID++
	sub := &Subscription[T]{
		bus:    b,
		id:     b.nextID,
		filter: filter,
		ch:     make(chan T, 1),
	}
	b.subscriptions[sub.id] = sub

	return sub, nil
}

// Publish offers the value to every matching subscription and returns to how many it was handed.
func (b *Bus[T]) Publish(value T) int {
	b.mu.RLock()
	subs := make([]*Subscription[T], 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	delivered := 0
	for _, sub := range subs {
		if sub.filter != nil && !sub.filter(value) {
			continue
		}

		if sub.offer(value) {
			delivered++
		}
	}

	return delivered
}

// Len returns the number of active subscriptions.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscriptions)
}

// Close cancels all subscriptions and rejects new ones.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}

	b.closed = true
	subs := make([]*Subscription[T], 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}

func (b *Bus[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscriptions, id)
}

// Subscription receives the values published to its Bus through C.
type Subscription[T any] struct {
	bus    *Bus[T]
	id     uint64
	filter func(T) bool

	mu        sync.Mutex
	ch        chan T
	cancelled bool
}

// C returns the channel holding the pending value. It is closed on Cancel.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Cancel detaches the subscription. A pending value is dropped. Cancel is idempotent.
func (s *Subscription[T]) Cancel() {
	s.mu.Lock()
	if s.cancelled {
		s.mu.Unlock()
		return
	}

	s.cancelled = true
	select {
	case <-s.ch:
	default:
	}
	close(s.ch)
	s.mu.Unlock()

	s.bus.remove(s.id)
}

// offer puts the value into the slot, replacing an undelivered one.
func (s *Subscription[T]) offer(value T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelled {
		return false
	}

	select {
	case s.ch <- value:
		return true
	default:
	}

	// Only offer writes to the channel and it holds s.mu, so after draining the send cannot block.
	select {
	case <-s.ch:
	default:
	}
	s.ch <- value

	return true
}
