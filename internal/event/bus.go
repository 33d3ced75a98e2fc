package event

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Role names a subscriber slot. A slot is populated by the subscriber
// calling Bus.Register at startup; registering the same role again
// replaces the previous slot.
type Role int

const (
	RoleScheduler Role = iota
	RoleControlWS
	RoleDispatcher
	RoleMain
	roleCount
)

func (r Role) String() string {
	switch r {
	case RoleScheduler:
		return "scheduler"
	case RoleControlWS:
		return "control-ws"
	case RoleDispatcher:
		return "dispatcher"
	case RoleMain:
		return "main"
	default:
		return "unknown"
	}
}

// Subscription is the receiving end a subscriber reads published events from.
type Subscription struct {
	ch <-chan Event
}

// Recv returns the channel to range or select over.
func (s Subscription) Recv() <-chan Event { return s.ch }

// Bus fans out published events to registered subscribers. Publish never
// blocks the caller: each subscriber is backed by an unbounded internal
// queue, pumped into its channel by a dedicated goroutine.
type Bus struct {
	mu     sync.RWMutex
	queues [roleCount]*unboundedQueue
	logger *log.Logger
}

// New creates a Bus with no subscribers registered.
func New(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Default()
	}
	return &Bus{logger: logger}
}

// Register opens a subscription slot for role, replacing any previous one.
// The returned Subscription's channel is closed if the bus itself is closed.
func (b *Bus) Register(role Role) Subscription {
	q := newUnboundedQueue()

	b.mu.Lock()
	b.queues[role] = q
	b.mu.Unlock()

	return Subscription{ch: q.out}
}

// Publish fans e out to every registered subscriber; each subscriber
// ignores the event types it has no use for. Roles with no registered slot
// are skipped. If no role is registered at all, the event is logged at
// debug level and discarded, not treated as an error.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, q := range b.queues {
		if q == nil {
			continue
		}
		q.push(e)
		delivered++
	}
	if delivered == 0 {
		b.logger.Debug("published event with no subscribers", "event", Name(e))
	}
}

// Close shuts down every subscriber queue, closing their channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, q := range b.queues {
		if q != nil {
			q.close()
			b.queues[i] = nil
		}
	}
}

// unboundedQueue decouples a non-blocking push from a blocking channel read:
// pushed items accumulate on a slice guarded by a mutex and are drained by a
// single pump goroutine into out, so Publish can never be blocked by a slow
// or stalled subscriber.
type unboundedQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []Event
	closed bool
	out    chan Event
}

func newUnboundedQueue() *unboundedQueue {
	q := &unboundedQueue{out: make(chan Event)}
	q.cond = sync.NewCond(&q.mu)
	go q.pump()
	return q
}

func (q *unboundedQueue) push(e Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, e)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *unboundedQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *unboundedQueue) pump() {
	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.items) == 0 && q.closed {
			q.mu.Unlock()
			close(q.out)
			return
		}
		e := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		q.out <- e
	}
}
