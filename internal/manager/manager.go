// Package manager owns the lifecycle of one BLE link to one peripheral:
// connect, service verification, drop detection, reconnect with backoff, and
// exclusive lending of the link to one in-flight operation at a time.
package manager

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codegithubka/ble-server/internal/device"
)

// State is the connection lifecycle state. It is mutated only by the
// Manager; sessions read it to gate operations.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Manager drives the connection state machine for one device identity.
//
// The zero value is not usable; construct with New. A Manager is safe for
// concurrent use: mu guards the state machine, opMu serializes link lending
// so exactly one operation is in flight at a time.
type Manager struct {
	id        device.Identity
	transport device.Transport
	opts      Options
	logger    *logrus.Logger

	mu         sync.Mutex
	state      State
	link       device.Link
	gen        uint64 // link generation, invalidates stale drop watchers
	failures   int    // consecutive failed connect attempts
	timeouts   int    // consecutive operation timeouts
	registered bool

	opMu sync.Mutex
}

// New creates a manager for the given identity. The identity is validated
// eagerly so misconfiguration surfaces at construction, not mid-flight.
func New(id device.Identity, transport device.Transport, opts Options, logger *logrus.Logger) (*Manager, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, device.Errf(device.AdapterError, "no transport supplied")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		id:        id,
		transport: transport,
		opts:      opts,
		logger:    logger,
		state:     Disconnected,
	}, nil
}

// Identity returns the device identity this manager owns.
func (m *Manager) Identity() device.Identity {
	return m.id
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect performs one connect attempt: register the identity, dial, verify
// the GATT topology, and adopt the link. A second concurrent session on the
// same identity fails with AlreadyConnected; a manager in the failed state
// must be Reset first.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case Connected, Connecting, Reconnecting:
		m.mu.Unlock()
		return device.Errf(device.AlreadyConnected, "session is %s", m.state)
	case Failed:
		m.mu.Unlock()
		return device.Errf(device.RetriesExhausted, "connection is in failed state, Reset is required")
	}
	if err := m.registerLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.state = Connecting
	m.mu.Unlock()

	link, err := m.dial(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = Disconnected
		m.deregisterLocked()
		return err
	}
	m.adoptLinkLocked(link)
	return nil
}

// Disconnect releases the link unconditionally and removes the registry
// entry. It is idempotent: disconnecting an already-disconnected manager is
// a no-op. A failed manager stays failed (release still happens) so that
// recovery remains an explicit Reset.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	link := m.link
	m.link = nil
	m.gen++
	m.timeouts = 0
	if m.state != Failed {
		m.state = Disconnected
	}
	m.deregisterLocked()
	m.mu.Unlock()

	if link == nil {
		return nil
	}
	m.logger.WithField("address", m.id.Address).Info("Disconnecting BLE device...")
	if err := link.Close(); err != nil {
		m.logger.WithError(err).Warn("BLE device disconnected with errors")
		return device.Errf(device.AdapterError, "disconnect: %v", err)
	}
	m.logger.Info("BLE device disconnected")
	return nil
}

// Reset returns a failed manager to the disconnected state. It is the only
// way out of Failed.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Failed {
		return device.Errf(device.NotConnected, "reset is only valid from the failed state (current: %s)", m.state)
	}
	m.state = Disconnected
	m.failures = 0
	m.timeouts = 0
	m.deregisterLocked()
	m.logger.Info("Connection state reset")
	return nil
}

// Do lends the link to exactly one operation. It ensures the link is up
// (running the reconnect policy if it is not), applies the per-operation
// timeout, and accounts consecutive timeouts toward the drop threshold.
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context, link device.Link) error) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.ensureConnected(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	link := m.link
	m.mu.Unlock()
	if link == nil {
		return device.Errf(device.NotConnected, "link dropped before operation started")
	}

	opCtx := ctx
	if m.opts.ReadTimeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, m.opts.ReadTimeout)
		defer cancel()
	}

	err := fn(opCtx, link)
	m.noteResult(link, err)
	return err
}

// Subscribe registers a notification handler on a characteristic of the
// live link, connecting first if needed.
func (m *Manager) Subscribe(ctx context.Context, charUUID string, fn func(data []byte)) error {
	return m.Do(ctx, func(_ context.Context, link device.Link) error {
		return link.Subscribe(charUUID, fn)
	})
}

// LinkDropped returns the drop signal of the currently held link, letting
// notification consumers observe a dying link without owning it. When no
// link is held the returned channel is already closed.
func (m *Manager) LinkDropped() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.link != nil {
		return m.link.Disconnected()
	}
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Unsubscribe removes a notification handler. A no-op when the link is
// already gone: there is nothing left to be notified by.
func (m *Manager) Unsubscribe(charUUID string) error {
	m.mu.Lock()
	link := m.link
	m.mu.Unlock()
	if link == nil {
		return nil
	}
	return link.Unsubscribe(charUUID)
}

// ensureConnected runs before every transport operation. Connected is a
// fast no-op; Failed propagates immediately; otherwise the reconnect policy
// runs: exponential backoff with jitter, bounded by MaxRetries.
func (m *Manager) ensureConnected(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case Connected:
		m.mu.Unlock()
		return nil
	case Failed:
		m.mu.Unlock()
		return device.Errf(device.RetriesExhausted, "connection is in failed state, Reset is required")
	case Connecting:
		m.mu.Unlock()
		return device.Errf(device.NotConnected, "connect already in progress")
	}

	if m.opts.MaxRetries <= 0 {
		m.mu.Unlock()
		return device.Errf(device.NotConnected, "not connected and reconnect is disabled")
	}
	if err := m.registerLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	return m.reconnectLocked(ctx)
}

// reconnectLocked runs the retry loop. Called with mu held; releases it
// around dials and sleeps and returns with it released.
func (m *Manager) reconnectLocked(ctx context.Context) error {
	for {
		m.state = Reconnecting
		attempt := m.failures + 1
		m.mu.Unlock()

		m.logger.WithFields(logrus.Fields{
			"address": m.id.Address,
			"attempt": attempt,
		}).Info("Reconnecting to BLE device...")
		link, err := m.dial(ctx)

		m.mu.Lock()
		if err == nil {
			m.adoptLinkLocked(link)
			m.mu.Unlock()
			return nil
		}
		if !device.Transient(err) {
			// Topology or configuration problem: never retried locally.
			m.state = Disconnected
			m.mu.Unlock()
			return err
		}

		m.failures++
		m.logger.WithFields(logrus.Fields{
			"address":  m.id.Address,
			"failures": m.failures,
			"error":    err,
		}).Warn("Connect attempt failed")
		if m.failures > m.opts.MaxRetries {
			m.state = Failed
			m.mu.Unlock()
			return device.Errf(device.RetriesExhausted, "giving up on %q after %d failed attempts", m.id.Address, m.failures)
		}
		delay := backoff(m.opts.BackoffBase, m.opts.BackoffMax, m.failures)
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			m.mu.Lock()
			m.state = Disconnected
			m.mu.Unlock()
			return device.Errf(device.Timeout, "reconnect aborted: %v", ctx.Err())
		case <-time.After(delay):
		}
		m.mu.Lock()
	}
}

func (m *Manager) dial(ctx context.Context) (device.Link, error) {
	dialCtx := ctx
	if m.opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, m.opts.ConnectTimeout)
		defer cancel()
	}
	return m.transport.Connect(dialCtx, m.id)
}

// adoptLinkLocked installs a fresh link: counters reset on any success and a
// drop watcher is armed for the new link generation. Caller holds mu.
func (m *Manager) adoptLinkLocked(link device.Link) {
	m.link = link
	m.state = Connected
	m.failures = 0
	m.timeouts = 0
	m.gen++
	go m.watchDrop(link, m.gen)
}

// watchDrop waits for the adapter's drop signal and moves the state machine
// to Reconnecting. Stale watchers (from links already replaced or released)
// exit without touching state.
func (m *Manager) watchDrop(link device.Link, gen uint64) {
	<-link.Disconnected()

	m.mu.Lock()
	if m.gen != gen || m.link != link {
		m.mu.Unlock()
		return
	}
	m.logger.WithField("address", m.id.Address).Warn("Link drop detected")
	m.link = nil
	m.state = Reconnecting
	m.mu.Unlock()

	_ = link.Close()
}

// noteResult tracks consecutive operation timeouts against the configured
// threshold. Only an explicit drop signal or the threshold being reached
// forces Reconnecting; a single timeout does not.
func (m *Manager) noteResult(link device.Link, err error) {
	m.mu.Lock()
	if m.link != link {
		m.mu.Unlock()
		return
	}
	if err == nil {
		m.timeouts = 0
		m.mu.Unlock()
		return
	}
	if !errors.Is(err, device.ErrTimeout) {
		m.mu.Unlock()
		return
	}
	m.timeouts++
	if m.opts.TimeoutThreshold <= 0 || m.timeouts < m.opts.TimeoutThreshold {
		m.mu.Unlock()
		return
	}
	m.logger.WithFields(logrus.Fields{
		"address":  m.id.Address,
		"timeouts": m.timeouts,
	}).Warn("Consecutive timeout threshold reached, treating as link drop")
	m.link = nil
	m.gen++
	m.state = Reconnecting
	m.timeouts = 0
	m.mu.Unlock()

	_ = link.Close()
}

func (m *Manager) registerLocked() error {
	if m.registered {
		return nil
	}
	if !register(m.id.Key(), m) {
		return device.Errf(device.AlreadyConnected, "another session already owns device %q", m.id.Address)
	}
	m.registered = true
	return nil
}

func (m *Manager) deregisterLocked() {
	if m.registered {
		deregister(m.id.Key())
		m.registered = false
	}
}

// backoff computes the nth reconnect delay: base doubled per failure, capped
// at max, with +-50% jitter so concurrent reconnectors do not stampede.
func backoff(base, max time.Duration, failures int) time.Duration {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	d := base
	for i := 1; i < failures; i++ {
		d *= 2
		if max > 0 && d >= max {
			d = max
			break
		}
	}
	if max > 0 && d > max {
		d = max
	}
	jitter := time.Duration(rand.Int63n(int64(d))) - d/2
	return d + jitter
}
