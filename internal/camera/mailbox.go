package camera

import (
	"sync"
	"time"

	"github.com/e7canasta/orion-gatekeeper/internal/vision"
)

// mailbox is a single-slot latest-frame holder shared between a source's
// capture goroutine and the supervisor.
//
// put overwrites any unconsumed frame; the evicted frame is handed to the
// onEvict callback so its buffer can return to the pool. take never blocks.
type mailbox struct {
	mu      sync.Mutex
	frame   *vision.Frame
	onEvict func(*vision.Frame)

	captured uint64
	dropped  uint64
	lastAt   time.Time
}

func newMailbox(onEvict func(*vision.Frame)) *mailbox {
	return &mailbox{onEvict: onEvict}
}

// put publishes f as the latest frame, evicting any unconsumed predecessor.
func (m *mailbox) put(f *vision.Frame) {
	m.mu.Lock()
	evicted := m.frame
	m.frame = f
	m.captured++
	if evicted != nil {
		m.dropped++
	}
	m.lastAt = f.Timestamp
	m.mu.Unlock()

	// Callback outside the lock; the pool has its own synchronization.
	if evicted != nil && m.onEvict != nil {
		m.onEvict(evicted)
	}
}

// take consumes and returns the latest frame, or nil when the slot is empty.
func (m *mailbox) take() *vision.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()

	f := m.frame
	m.frame = nil
	return f
}

// drain evicts any unconsumed frame. Called on source shutdown.
func (m *mailbox) drain() {
	m.mu.Lock()
	f := m.frame
	m.frame = nil
	m.mu.Unlock()

	if f != nil && m.onEvict != nil {
		m.onEvict(f)
	}
}

func (m *mailbox) stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		FramesCaptured: m.captured,
		FramesDropped:  m.dropped,
		LastFrameAt:    m.lastAt,
	}
}
