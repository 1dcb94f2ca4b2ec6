package changesbus_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore/internal/changesbus"
)

func Test_Publish_When_SubscriberIsSlow_It_KeepsOnlyTheLatestValue(t *testing.T) {
	// arrange
	bus := changesbus.New[string]()
	sub, err := bus.Subscribe(nil)
	require.NoError(t, err)

	// act
	bus.Publish("v1")
	bus.Publish("v2")

	// assert
	assert.Equal(t, "v2", <-sub.C())
	select {
	case v := <-sub.C():
		t.Fatalf("expected no further value, got %q", v)
	default:
	}
}

func Test_Publish_When_FilterRejectsValue_It_IsNotDelivered(t *testing.T) {
	// arrange
	bus := changesbus.New[int]()
	evenOnly, err := bus.Subscribe(func(v int) bool { return v%2 == 0 })
	require.NoError(t, err)
	all, err := bus.Subscribe(nil)
	require.NoError(t, err)

	// act
	delivered := bus.Publish(3)

	// assert
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 3, <-all.C())
	assert.Empty(t, evenOnly.C())
}

func Test_Publish_When_NoSubscribers_It_DoesNotBlock(t *testing.T) {
	// arrange
	bus := changesbus.New[int]()

	// act
	delivered := bus.Publish(1)

	// assert
	assert.Equal(t, 0, delivered)
}

func Test_Cancel_It_DropsPendingValueAndClosesChannel(t *testing.T) {
	// arrange
	bus := changesbus.New[int]()
	sub, err := bus.Subscribe(nil)
	require.NoError(t, err)
	bus.Publish(1)

	// act
	sub.Cancel()
	sub.Cancel()
	delivered := bus.Publish(2)

	// assert
	_, open := <-sub.C()
	assert.False(t, open)
	assert.Equal(t, 0, delivered)
	assert.Equal(t, 0, bus.Len())
}

func Test_Close_It_CancelsAllSubscriptionsAndRejectsNewOnes(t *testing.T) {
	// arrange
	bus := changesbus.New[int]()
	sub, err := bus.Subscribe(nil)
	require.NoError(t, err)

	// act
	bus.Close()
	_, subscribeErr := bus.Subscribe(nil)

	// assert
	assert.ErrorIs(t, subscribeErr, changesbus.ErrClosed)
	_, open := <-sub.C()
	assert.False(t, open)
}

func Test_Publish_When_CalledConcurrently_Every_SubscriberEndsWithALatestValue(t *testing.T) {
	// arrange
	bus := changesbus.New[int]()
	subs := make([]*changesbus.Subscription[int], 0, 5)
	for i := 0; i < 5; i++ {
		sub, err := bus.Subscribe(nil)
		require.NoError(t, err)
		subs = append(subs, sub)
	}

	var wg sync.WaitGroup

	// act
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			bus.Publish(v)
		}(i)
	}
	wg.Wait()

	// assert
	for _, sub := range subs {
		select {
		case v := <-sub.C():
			assert.Positive(t, v)
		case <-time.After(time.Second):
			t.Fatal("expected a pending value")
		}
		assert.Empty(t, sub.C())
	}
}
