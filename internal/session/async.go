package session

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/codegithubka/ble-server/internal/device"
	"github.com/codegithubka/ble-server/internal/imu"
	"github.com/codegithubka/ble-server/internal/manager"
)

// Result carries the outcome of one asynchronous read.
type Result struct {
	Sample imu.Sample
	Err    error
}

// request is one queued read. out is buffered so the worker never blocks on
// a caller that stopped listening.
type request struct {
	ctx  context.Context
	kind imu.Kind
	out  chan Result
}

// AsyncSession offers the Session contract without blocking the caller:
// reads are submitted to a FIFO queue serviced by a single worker goroutine
// against the one underlying link, so results complete in submission order.
// The connection and retry logic is the sync Session's, not a duplicate.
type AsyncSession struct {
	s      *Session
	logger *logrus.Logger

	queue chan *request
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// queueDepth bounds the number of pending reads awaiting the worker.
const queueDepth = 64

// NewAsync creates an asynchronous session for one device identity and
// starts its worker. Close releases the worker.
func NewAsync(id device.Identity, transport device.Transport, opts manager.Options, logger *logrus.Logger) (*AsyncSession, error) {
	s, err := New(id, transport, opts, logger)
	if err != nil {
		return nil, err
	}
	a := &AsyncSession{
		s:      s,
		logger: s.logger,
		queue:  make(chan *request, queueDepth),
	}
	a.wg.Add(1)
	go a.worker()
	return a, nil
}

// State returns the connection state, read-only.
func (a *AsyncSession) State() manager.State {
	return a.s.State()
}

// Reset returns a failed session to the disconnected state.
func (a *AsyncSession) Reset() error {
	return a.s.Reset()
}

// Connection is the scoped acquisition entry point, identical in contract to
// the synchronous Session's: connect on entry, disconnect on every exit path.
func (a *AsyncSession) Connection(ctx context.Context, fn func(a *AsyncSession) error) error {
	return a.s.Connection(ctx, func(*Session) error {
		return fn(a)
	})
}

// ReadIMUDataAsync queues a read and returns immediately. The returned
// channel delivers exactly one Result; results for reads submitted on the
// same session arrive in submission order. Cancelling ctx before the read is
// serviced removes it from the queue without affecting others; once the
// transport operation is in flight it runs to completion and a late result
// is discarded.
func (a *AsyncSession) ReadIMUDataAsync(ctx context.Context, kind imu.Kind) <-chan Result {
	out := make(chan Result, 1)
	req := &request{ctx: ctx, kind: kind, out: out}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		out <- Result{Err: device.Errf(device.NotConnected, "session is closed")}
		return out
	}
	select {
	case a.queue <- req:
		a.mu.Unlock()
	default:
		a.mu.Unlock()
		out <- Result{Err: device.Errf(device.AdapterError, "request queue is full (%d pending)", queueDepth)}
	}
	return out
}

// Close stops the worker after the queue drains. Pending requests are still
// serviced; new submissions fail.
func (a *AsyncSession) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	a.wg.Wait()
	return nil
}

// worker drains the queue in FIFO order. One request is in flight at a time,
// which is also what keeps completion order equal to submission order.
func (a *AsyncSession) worker() {
	defer a.wg.Done()
	for req := range a.queue {
		if err := req.ctx.Err(); err != nil {
			// Cancelled while pending: skipped, never started.
			req.out <- Result{Err: err}
			continue
		}
		sample, err := a.s.ReadIMUData(req.ctx, req.kind)
		req.out <- Result{Sample: sample, Err: err}
	}
}
