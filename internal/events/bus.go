package events

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	ErrBusClosed          = errors.New("events: bus closed")
	ErrSubscriberExists   = errors.New("events: subscriber already registered")
	ErrSubscriberNotFound = errors.New("events: subscriber not found")
	ErrNilChannel         = errors.New("events: nil channel")
)

// SubscriberStats tracks delivery metrics for one subscriber.
type SubscriberStats struct {
	Sent    uint64
	Dropped uint64
}

type subscriber struct {
	ch    chan<- Event
	stats SubscriberStats
}

// Bus fans controller events out to registered channels.
//
// Publish never blocks: if a subscriber's channel is full the event is
// dropped for that subscriber and counted. The control loop's latency
// matters more than a console printer's completeness.
//
// Thread-safe: the supervisor publishes from the loop goroutine while the
// console subscribes and reads from its own.
type Bus struct {
	mu        sync.RWMutex
	subs      map[string]*subscriber
	published uint64
	closed    bool
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[string]*subscriber)}
}

// Subscribe registers a channel under id. The caller owns the channel and
// should size its buffer for its own consumption rate.
func (b *Bus) Subscribe(id string, ch chan<- Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	if ch == nil {
		return ErrNilChannel
	}
	if _, exists := b.subs[id]; exists {
		return ErrSubscriberExists
	}

	b.subs[id] = &subscriber{ch: ch}
	return nil
}

// Unsubscribe removes a subscriber. The channel is not closed; the caller
// owns it.
func (b *Bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subs[id]; !exists {
		return ErrSubscriberNotFound
	}
	delete(b.subs, id)
	return nil
}

// Publish delivers ev to every subscriber, non-blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	atomic.AddUint64(&b.published, 1)

	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
			atomic.AddUint64(&sub.stats.Sent, 1)
		default:
			atomic.AddUint64(&sub.stats.Dropped, 1)
		}
	}
}

// Stats returns a snapshot of one subscriber's delivery counters.
func (b *Bus) Stats(id string) (SubscriberStats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sub, exists := b.subs[id]
	if !exists {
		return SubscriberStats{}, ErrSubscriberNotFound
	}
	return SubscriberStats{
		Sent:    atomic.LoadUint64(&sub.stats.Sent),
		Dropped: atomic.LoadUint64(&sub.stats.Dropped),
	}, nil
}

// Published returns the total number of events published.
func (b *Bus) Published() uint64 {
	return atomic.LoadUint64(&b.published)
}

// Close shuts the bus down; further Publish calls are silently dropped.
// Idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.subs = nil
}
