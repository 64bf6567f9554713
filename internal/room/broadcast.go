package room

import (
	"sync"
	"sync/atomic"
)

// Broadcaster fans messages out to subscribers. Each subscriber owns a
// bounded buffer; a subscriber whose buffer is full when a message arrives
// is dropped and its channel closed, so one slow reader never blocks the rest.
type Broadcaster struct {
	mu       sync.Mutex
	capacity int
	subs     map[*Subscription]struct{}
	closed   bool
}

type Subscription struct {
	ch     chan []byte
	b      *Broadcaster
	lagged atomic.Bool
}

func NewBroadcaster(capacity int) *Broadcaster {
	if capacity < 1 {
		capacity = 1
	}
	return &Broadcaster{
		capacity: capacity,
		subs:     make(map[*Subscription]struct{}),
	}
}

// Subscribe registers a new reader. Subscribing to a closed broadcaster
// yields an already closed subscription.
func (b *Broadcaster) Subscribe() *Subscription {
	s := &Subscription{ch: make(chan []byte, b.capacity), b: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(s.ch)
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

// Send delivers msg to every subscriber and returns how many received it.
func (b *Broadcaster) Send(msg []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for s := range b.subs {
		select {
		case s.ch <- msg:
			n++
		default:
			s.lagged.Store(true)
			b.drop(s)
		}
	}
	return n
}

// Close delivers final (when non-nil) to every subscriber and closes every
// subscription. A full buffer loses its oldest message to make room for
// final. Later sends are no-ops.
func (b *Broadcaster) Close(final []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		if final != nil {
			select {
			case s.ch <- final:
			default:
				select {
				case <-s.ch:
				default:
				}
				// only senders hold b.mu, so the slot just freed is ours
				s.ch <- final
			}
		}
		b.drop(s)
	}
}

func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// drop must be called with b.mu held.
func (b *Broadcaster) drop(s *Subscription) {
	if _, ok := b.subs[s]; !ok {
		return
	}
	delete(b.subs, s)
	close(s.ch)
}

// C is closed when the subscription ends.
func (s *Subscription) C() <-chan []byte {
	return s.ch
}

// Lagged reports whether the subscription was dropped for falling behind.
func (s *Subscription) Lagged() bool {
	return s.lagged.Load()
}

func (s *Subscription) Close() {
	s.b.mu.Lock()
	s.b.drop(s)
	s.b.mu.Unlock()
}
