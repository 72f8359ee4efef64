package events_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e7canasta/orion-gatekeeper/internal/events"
)

// TestPublishDelivers validates fan-out to multiple subscribers.
func TestPublishDelivers(t *testing.T) {
	bus := events.New()
	a := make(chan events.Event, 4)
	b := make(chan events.Event, 4)
	require.NoError(t, bus.Subscribe("a", a))
	require.NoError(t, bus.Subscribe("b", b))

	ev := events.Event{Type: events.TypeDoorOpened, At: time.Unix(1000, 0)}
	bus.Publish(ev)

	assert.Equal(t, ev, <-a)
	assert.Equal(t, ev, <-b)
	assert.Equal(t, uint64(1), bus.Published())
}

// TestPublishNonBlocking validates the drop policy: a full subscriber
// buffer drops the event and counts it, without stalling Publish.
//
// Scenario:
//  1. Subscribe with a buffer of 1
//  2. Publish twice without consuming
//  3. Second event is dropped; stats show Sent=1 Dropped=1
func TestPublishNonBlocking(t *testing.T) {
	bus := events.New()
	ch := make(chan events.Event, 1)
	require.NoError(t, bus.Subscribe("slow", ch))

	bus.Publish(events.Event{Type: events.TypePresence})
	bus.Publish(events.Event{Type: events.TypeAbsence})

	stats, err := bus.Stats("slow")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.Sent)
	assert.Equal(t, uint64(1), stats.Dropped)
}

// TestSubscribeErrors validates registration edge cases.
func TestSubscribeErrors(t *testing.T) {
	bus := events.New()
	ch := make(chan events.Event, 1)

	assert.ErrorIs(t, bus.Subscribe("x", nil), events.ErrNilChannel)
	require.NoError(t, bus.Subscribe("x", ch))
	assert.ErrorIs(t, bus.Subscribe("x", ch), events.ErrSubscriberExists)

	require.NoError(t, bus.Unsubscribe("x"))
	assert.ErrorIs(t, bus.Unsubscribe("x"), events.ErrSubscriberNotFound)
	_, err := bus.Stats("x")
	assert.ErrorIs(t, err, events.ErrSubscriberNotFound)
}

// TestClosedBus validates that a closed bus rejects subscriptions and
// silently drops publishes.
func TestClosedBus(t *testing.T) {
	bus := events.New()
	ch := make(chan events.Event, 1)

	bus.Close()
	bus.Close() // idempotent

	assert.ErrorIs(t, bus.Subscribe("x", ch), events.ErrBusClosed)
	bus.Publish(events.Event{Type: events.TypeStarted}) // must not panic
	assert.Empty(t, ch)
}
