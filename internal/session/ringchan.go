package session

import "sync"

// sampleRing is a bounded channel-like buffer with overwrite-oldest
// semantics, used to deliver notification streams: a stalled consumer loses
// the oldest samples rather than stalling the radio callback.
//
// Send and Close are mutually exclusive under mu: a radio callback can fire
// after watch teardown has started, and a late Send must be dropped, never
// allowed to hit a closed channel.
type sampleRing[T any] struct {
	mu     sync.Mutex
	ch     chan T
	closed bool
}

func newSampleRing[T any](capacity int) *sampleRing[T] {
	if capacity <= 0 {
		capacity = 16
	}
	return &sampleRing[T]{ch: make(chan T, capacity)}
}

// C returns the receive side; consumers range over it until closed.
func (r *sampleRing[T]) C() <-chan T {
	return r.ch
}

// Send inserts an item, discarding the oldest when full. Sends after Close
// are dropped.
func (r *sampleRing[T]) Send(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.ch <- v:
	default:
		select {
		case <-r.ch: // drop oldest
		default:
		}
		select {
		case r.ch <- v:
		default:
		}
	}
}

// Close marks the ring closed and ends the consumer's range loop. Buffered
// items stay receivable.
func (r *sampleRing[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.ch)
}
