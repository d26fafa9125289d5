// Package testutils provides in-memory doubles for the transport and sensor
// driver boundaries so the connection, session, and peripheral layers can be
// exercised without a radio.
package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/codegithubka/ble-server/internal/device"
)

// FakeTransport scripts connect outcomes. QueueConnect enqueues the results
// of upcoming connect attempts in order; once the queue is drained the
// transport falls back to DefaultErr (nil means connects succeed).
type FakeTransport struct {
	mu         sync.Mutex
	outcomes   []error
	DefaultErr error

	connects int
	links    []*FakeLink

	// Latency and Values seed every link this transport creates.
	Latency map[string]time.Duration
	Values  map[string][]byte
}

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{}
}

// QueueConnect appends scripted outcomes for the next connect attempts.
// A nil entry is a successful connect.
func (t *FakeTransport) QueueConnect(errs ...error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outcomes = append(t.outcomes, errs...)
}

// ConnectCalls reports how many connect attempts were made.
func (t *FakeTransport) ConnectCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connects
}

// LastLink returns the most recently created link, or nil.
func (t *FakeTransport) LastLink() *FakeLink {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.links) == 0 {
		return nil
	}
	return t.links[len(t.links)-1]
}

func (t *FakeTransport) Connect(ctx context.Context, id device.Identity) (device.Link, error) {
	t.mu.Lock()
	t.connects++
	var outcome error
	if len(t.outcomes) > 0 {
		outcome = t.outcomes[0]
		t.outcomes = t.outcomes[1:]
	} else {
		outcome = t.DefaultErr
	}
	if outcome != nil {
		t.mu.Unlock()
		return nil, outcome
	}

	link := NewFakeLink()
	for uuid, v := range t.Values {
		link.SetValue(uuid, v)
	}
	for uuid, d := range t.Latency {
		link.SetLatency(uuid, d)
	}
	t.links = append(t.links, link)
	t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, device.Errf(device.Timeout, "connect: %v", err)
	}
	return link, nil
}

var _ device.Transport = (*FakeTransport)(nil)

// FakeLink is an in-memory Link with per-characteristic payloads, scriptable
// read latency and errors, and a drop signal.
type FakeLink struct {
	mu       sync.Mutex
	values   map[string][]byte
	latency  map[string]time.Duration
	readErrs map[string][]error
	subs     map[string]func([]byte)
	reads    int
	closed   bool
	dropCh   chan struct{}
	dropOnce sync.Once
}

func NewFakeLink() *FakeLink {
	return &FakeLink{
		values:   make(map[string][]byte),
		latency:  make(map[string]time.Duration),
		readErrs: make(map[string][]error),
		subs:     make(map[string]func([]byte)),
		dropCh:   make(chan struct{}),
	}
}

// SetValue installs the payload returned by reads of a characteristic.
func (l *FakeLink) SetValue(charUUID string, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.values[device.NormalizeUUID(charUUID)] = append([]byte(nil), data...)
}

// SetLatency delays reads of a characteristic, simulating a slow radio.
func (l *FakeLink) SetLatency(charUUID string, d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.latency[device.NormalizeUUID(charUUID)] = d
}

// QueueReadError makes the next reads of a characteristic fail in order.
func (l *FakeLink) QueueReadError(charUUID string, errs ...error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := device.NormalizeUUID(charUUID)
	l.readErrs[key] = append(l.readErrs[key], errs...)
}

// Reads reports how many reads were served (including failed ones).
func (l *FakeLink) Reads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reads
}

// Drop simulates the adapter's disconnect event.
func (l *FakeLink) Drop() {
	l.dropOnce.Do(func() { close(l.dropCh) })
}

// Push delivers a notification payload to the characteristic's subscriber.
func (l *FakeLink) Push(charUUID string, data []byte) {
	l.mu.Lock()
	fn := l.subs[device.NormalizeUUID(charUUID)]
	l.mu.Unlock()
	if fn != nil {
		fn(data)
	}
}

func (l *FakeLink) Read(ctx context.Context, charUUID string) ([]byte, error) {
	key := device.NormalizeUUID(charUUID)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, device.Errf(device.NotConnected, "link closed")
	}
	l.reads++
	delay := l.latency[key]
	var scripted error
	if errs := l.readErrs[key]; len(errs) > 0 {
		scripted = errs[0]
		l.readErrs[key] = errs[1:]
	}
	value, ok := l.values[key]
	data := append([]byte(nil), value...)
	l.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, device.Errf(device.Timeout, "read %q: %v", charUUID, ctx.Err())
		case <-time.After(delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, device.Errf(device.Timeout, "read %q: %v", charUUID, err)
	}
	if scripted != nil {
		return nil, scripted
	}
	if !ok {
		return nil, device.Errf(device.CharacteristicNotFound, "characteristic %q not found", charUUID)
	}
	return data, nil
}

func (l *FakeLink) Write(ctx context.Context, charUUID string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return device.Errf(device.Timeout, "write %q: %v", charUUID, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return device.Errf(device.NotConnected, "link closed")
	}
	l.values[device.NormalizeUUID(charUUID)] = append([]byte(nil), data...)
	return nil
}

func (l *FakeLink) Subscribe(charUUID string, fn func([]byte)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return device.Errf(device.NotConnected, "link closed")
	}
	l.subs[device.NormalizeUUID(charUUID)] = fn
	return nil
}

func (l *FakeLink) Unsubscribe(charUUID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.subs, device.NormalizeUUID(charUUID))
	return nil
}

func (l *FakeLink) Disconnected() <-chan struct{} {
	return l.dropCh
}

func (l *FakeLink) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	// Closing releases any drop watcher, same as the adapter does.
	l.Drop()
	return nil
}

var _ device.Link = (*FakeLink)(nil)
