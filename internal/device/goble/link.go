package goble

import (
	"context"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/codegithubka/ble-server/internal/device"
)

// link is the live go-ble connection handle. Characteristics are kept in
// discovery order so listings and verification logs are deterministic.
type link struct {
	client ble.Client
	logger *logrus.Logger
	chars  *orderedmap.OrderedMap[string, *ble.Characteristic]

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newLink(client ble.Client, logger *logrus.Logger) *link {
	return &link{
		client: client,
		logger: logger,
		chars:  orderedmap.New[string, *ble.Characteristic](),
	}
}

func (l *link) characteristic(uuid string) (*ble.Characteristic, error) {
	c, ok := l.chars.Get(device.NormalizeUUID(uuid))
	if !ok {
		return nil, device.Errf(device.CharacteristicNotFound, "characteristic %q not found", uuid)
	}
	return c, nil
}

// CharacteristicUUIDs returns the discovered characteristic UUIDs in
// discovery order.
func (l *link) CharacteristicUUIDs() []string {
	uuids := make([]string, 0, l.chars.Len())
	for pair := l.chars.Oldest(); pair != nil; pair = pair.Next() {
		uuids = append(uuids, pair.Key)
	}
	return uuids
}

type readResult struct {
	data []byte
	err  error
}

// Read fetches the characteristic payload, bounded by ctx. go-ble reads are
// not context-aware, so the adapter call runs in its own goroutine; if ctx
// expires first the late result is discarded.
func (l *link) Read(ctx context.Context, charUUID string) ([]byte, error) {
	c, err := l.characteristic(charUUID)
	if err != nil {
		return nil, err
	}

	done := make(chan readResult, 1)
	go func() {
		data, err := l.client.ReadCharacteristic(c)
		done <- readResult{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		l.logger.WithField("char_uuid", charUUID).Warn("Characteristic read timed out, discarding late result")
		return nil, device.Errf(device.Timeout, "read %q: %v", charUUID, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, device.Errf(device.AdapterError, "failed to read characteristic %q: %v", charUUID, res.err)
		}
		return res.data, nil
	}
}

// Write replaces the characteristic payload, bounded by ctx. Writes are
// serialized: the adapter handles one outgoing write at a time.
func (l *link) Write(ctx context.Context, charUUID string, data []byte) error {
	c, err := l.characteristic(charUUID)
	if err != nil {
		return err
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	done := make(chan error, 1)
	buf := make([]byte, len(data))
	copy(buf, data)
	go func() {
		done <- l.client.WriteCharacteristic(c, buf, false)
	}()

	select {
	case <-ctx.Done():
		l.logger.WithField("char_uuid", charUUID).Warn("Characteristic write timed out, discarding late result")
		return device.Errf(device.Timeout, "write %q: %v", charUUID, ctx.Err())
	case err := <-done:
		if err != nil {
			return device.Errf(device.AdapterError, "failed to write characteristic %q: %v", charUUID, err)
		}
		return nil
	}
}

// Subscribe registers a notification handler with the adapter.
func (l *link) Subscribe(charUUID string, fn func(data []byte)) error {
	c, err := l.characteristic(charUUID)
	if err != nil {
		return err
	}
	if err := l.client.Subscribe(c, false, fn); err != nil {
		return device.Errf(device.AdapterError, "failed to subscribe to %q: %v", charUUID, err)
	}
	l.logger.WithField("char_uuid", charUUID).Debug("Subscribed to characteristic notifications")
	return nil
}

// Unsubscribe removes a notification handler, trying both notify and
// indicate modes; it fails only when both do.
func (l *link) Unsubscribe(charUUID string) error {
	c, err := l.characteristic(charUUID)
	if err != nil {
		return err
	}
	err1 := l.client.Unsubscribe(c, false) // notify
	err2 := l.client.Unsubscribe(c, true)  // indicate
	if err1 != nil && err2 != nil {
		return device.Errf(device.AdapterError, "failed to unsubscribe from %q: notify=%v, indicate=%v", charUUID, err1, err2)
	}
	return nil
}

// Disconnected is closed by go-ble when the adapter reports a link drop.
func (l *link) Disconnected() <-chan struct{} {
	return l.client.Disconnected()
}

// Close tears the connection down. Idempotent.
func (l *link) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.client.CancelConnection()
	})
	return l.closeErr
}

var _ device.Link = (*link)(nil)
