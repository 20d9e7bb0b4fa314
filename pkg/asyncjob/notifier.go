package asyncjob

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultNotifyBuffer is the notifier capacity used when none is configured.
const DefaultNotifyBuffer = 64

// Notification reports that a job of the given kind finished. Err is nil on
// success; on failure the slot keeps its previous result.
type Notification struct {
	Kind Kind
	Err  error
}

// Failed reports whether the job ended in an error.
func (n Notification) Failed() bool {
	return n.Err != nil
}

// Notifier is a many-producer, single-consumer queue of completion events.
// Sends never block: when the buffer is full or the notifier is closed the
// event is dropped and counted.
type Notifier struct {
	mu      sync.RWMutex
	ch      chan Notification
	closed  bool
	dropped atomic.Int64
}

// NewNotifier creates a notifier holding up to buffer pending events.
func NewNotifier(buffer int) *Notifier {
	if buffer <= 0 {
		buffer = DefaultNotifyBuffer
	}

	return &Notifier{ch: make(chan Notification, buffer)}
}

// Send enqueues n and reports whether it was delivered to the buffer.
func (n *Notifier) Send(note Notification) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		n.dropped.Add(1)

		return false
	}

	select {
	case n.ch <- note:
		return true
	default:
		n.dropped.Add(1)

		return false
	}
}

// C exposes the receive side for use in select statements. It is closed by
// Close.
func (n *Notifier) C() <-chan Notification {
	return n.ch
}

// Recv blocks until an event arrives, the notifier is closed, or ctx is done.
// The boolean is false in the latter two cases.
func (n *Notifier) Recv(ctx context.Context) (Notification, bool) {
	select {
	case note, ok := <-n.ch:
		return note, ok
	case <-ctx.Done():
		return Notification{}, false
	}
}

// Close tears down the consumer end. Later sends are discarded. Safe to call
// more than once.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.closed {
		n.closed = true
		close(n.ch)
	}
}

// Dropped returns the number of events discarded so far.
func (n *Notifier) Dropped() int64 {
	return n.dropped.Load()
}
