// Package device defines the transport boundary between the connection
// manager and the underlying BLE adapter: the peripheral identity, the GATT
// primitive interfaces, and the connection error taxonomy.
package device

import (
	"context"

	"github.com/codegithubka/ble-server/internal/imu"
)

// Identity describes one target peripheral: its address, the IMU service
// UUID, and the characteristic UUID for each sensor kind. Supplied by the
// caller at construction and immutable afterwards.
type Identity struct {
	Address         string
	Service         string
	Characteristics map[imu.Kind]string
}

// Key returns the canonical registry key for this identity. At most one link
// may be open per key per process.
func (id Identity) Key() string {
	return NormalizeUUID(id.Address)
}

// Validate checks that the identity is complete enough to connect with.
func (id Identity) Validate() error {
	if id.Address == "" {
		return Errf(AdapterError, "device address is not set")
	}
	if id.Service == "" {
		return Errf(ServiceNotFound, "service UUID is not set")
	}
	if len(id.Characteristics) == 0 {
		return Errf(CharacteristicNotFound, "no characteristic UUIDs configured")
	}
	for kind, uuid := range id.Characteristics {
		if uuid == "" {
			return Errf(CharacteristicNotFound, "no characteristic UUID configured for %s", kind)
		}
	}
	return nil
}

// Characteristic returns the configured characteristic UUID for a sensor kind.
func (id Identity) Characteristic(kind imu.Kind) (string, error) {
	uuid, ok := id.Characteristics[kind]
	if !ok || uuid == "" {
		return "", Errf(CharacteristicNotFound, "no characteristic UUID configured for %s", kind)
	}
	return uuid, nil
}

// Transport abstracts the BLE adapter's connect primitive. Implementations
// must verify the identity's service and every configured characteristic
// during connect, failing with ServiceNotFound or CharacteristicNotFound on
// a discovery mismatch.
type Transport interface {
	Connect(ctx context.Context, id Identity) (Link, error)
}

// Link is the live handle to one connected peripheral. It is exclusively
// owned by the connection manager and lent to one in-flight operation at a
// time; it is never handed to callers directly.
type Link interface {
	// Read fetches the current payload of a characteristic. The context
	// bounds the operation; on expiry the call returns ErrTimeout and any
	// late adapter result is discarded.
	Read(ctx context.Context, charUUID string) ([]byte, error)

	// Write replaces the payload of a characteristic.
	Write(ctx context.Context, charUUID string, data []byte) error

	// Subscribe registers a notification handler for a characteristic.
	// The handler must copy data it retains beyond the callback.
	Subscribe(charUUID string, fn func(data []byte)) error

	// Unsubscribe removes a previously registered notification handler.
	Unsubscribe(charUUID string) error

	// Disconnected is closed when the adapter signals a link drop.
	Disconnected() <-chan struct{}

	// Close tears the link down. Idempotent.
	Close() error
}
