// Package event provides the in-process status bus: single-writer broadcast
// of sync events to any number of subscribers, with a bounded ring buffer so
// late subscribers can replay recent history.
package event

import (
	"sync"

	"go.uber.org/zap"

	syncdomain "github.com/shoppyshops/shoppyshops.shop/internal/domain/sync"
)

// DefaultCapacity is the default ring buffer size
const DefaultCapacity = 200

// Envelope wraps a delivered event with its publication sequence number.
// Gap is true when events between the previous delivery and this one were
// dropped, either because the ring rolled over before the subscriber
// connected or because the subscriber fell behind.
type Envelope struct {
	Seq   uint64               `json:"seq"`
	Gap   bool                 `json:"gap,omitempty"`
	Event syncdomain.SyncEvent `json:"event"`
}

type ringEntry struct {
	seq   uint64
	event syncdomain.SyncEvent
}

// ---------------------------------------------------------------------------
// Bus
// ---------------------------------------------------------------------------

// Bus is the one piece of explicitly shared mutable state in the core:
// publication is append-only, readers never mutate it. Every subscriber
// receives every event published after it subscribes, in publication order,
// preceded by a replay of the ring buffer.
//
// Thread Safety: Safe for concurrent use.
type Bus struct {
	mu       sync.Mutex
	capacity int
	ring     []ringEntry
	nextSeq  uint64
	subs     map[uint64]*Subscription
	nextSub  uint64
	closed   bool
	logger   *zap.Logger
}

// NewBus creates a bus with the given ring buffer capacity. A non-positive
// capacity falls back to DefaultCapacity.
func NewBus(capacity int, logger *zap.Logger) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		capacity: capacity,
		ring:     make([]ringEntry, 0, capacity),
		subs:     make(map[uint64]*Subscription),
		logger:   logger,
	}
}

// Publish appends the event to the ring and broadcasts it to all current
// subscribers. A slow subscriber never blocks the publisher: its delivery is
// skipped and its next delivered envelope carries a gap marker.
func (b *Bus) Publish(event syncdomain.SyncEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	seq := b.nextSeq
	b.nextSeq++

	if len(b.ring) == b.capacity {
		b.ring = b.ring[1:]
	}
	b.ring = append(b.ring, ringEntry{seq: seq, event: event})

	for _, sub := range b.subs {
		sub.deliver(Envelope{Seq: seq, Event: event})
	}
}

// Subscribe registers a new subscriber and replays the ring buffer into it.
// The returned subscription must be closed when done.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		bus: b,
		// Room for the full replay plus a window of live events
		ch: make(chan Envelope, b.capacity*2),
	}
	sub.id = b.nextSub
	b.nextSub++

	if b.closed {
		close(sub.ch)
		sub.closed = true
		return sub
	}

	// Replay: if the ring already rolled over, the oldest replayed event
	// marks the gap.
	for i, entry := range b.ring {
		env := Envelope{Seq: entry.seq, Event: entry.event}
		if i == 0 && entry.seq > 0 {
			env.Gap = true
		}
		sub.ch <- env
	}

	b.subs[sub.id] = sub
	b.logger.Debug("status subscriber attached",
		zap.Uint64("subscriber_id", sub.id),
		zap.Int("replayed", len(b.ring)),
	)
	return sub
}

// SubscriberCount returns the number of attached subscribers
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Recent returns up to limit most recent events from the ring, oldest first
func (b *Bus) Recent(limit int) []syncdomain.SyncEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.ring)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]syncdomain.SyncEvent, 0, n)
	for _, entry := range b.ring[len(b.ring)-n:] {
		out = append(out, entry.event)
	}
	return out
}

// Close detaches all subscribers and stops accepting publications
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		sub.closed = true
		delete(b.subs, id)
	}
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		if !sub.closed {
			close(sub.ch)
			sub.closed = true
		}
	}
}

// ---------------------------------------------------------------------------
// Subscription
// ---------------------------------------------------------------------------

// Subscription is one reader's lazy, order-preserving view of the event
// stream. Reading from Events yields the replayed history followed by live
// events until Close.
type Subscription struct {
	id         uint64
	bus        *Bus
	ch         chan Envelope
	gapPending bool
	closed     bool
	closeOnce  sync.Once
}

// Events returns the subscriber's event channel
func (s *Subscription) Events() <-chan Envelope {
	return s.ch
}

// Close detaches the subscription from the bus
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.bus.unsubscribe(s.id)
	})
}

// deliver attempts a non-blocking send; called with the bus lock held
func (s *Subscription) deliver(env Envelope) {
	if s.gapPending {
		env.Gap = true
	}
	select {
	case s.ch <- env:
		s.gapPending = false
	default:
		// Subscriber fell behind: drop and flag the gap on the next delivery
		s.gapPending = true
	}
}

// Ensure Bus implements the engine's publisher port
var _ syncdomain.EventPublisher = (*Bus)(nil)
