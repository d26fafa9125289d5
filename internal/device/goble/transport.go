// Package goble implements the device.Transport boundary on top of
// github.com/go-ble/ble.
package goble

import (
	"context"
	"errors"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/codegithubka/ble-server/internal/device"
)

// DeviceFactory creates ble.Device instances (can be overridden in tests).
var DeviceFactory = func() (ble.Device, error) {
	return newNativeDevice()
}

// Transport dials peripherals through the platform BLE adapter.
type Transport struct {
	logger *logrus.Logger
}

// NewTransport creates a go-ble backed transport.
func NewTransport(logger *logrus.Logger) *Transport {
	if logger == nil {
		logger = logrus.New()
	}
	return &Transport{logger: logger}
}

// Connect dials the peripheral, discovers its GATT profile, and verifies the
// identity's service and every configured characteristic are present. The
// caller's context bounds the whole sequence.
func (t *Transport) Connect(ctx context.Context, id device.Identity) (device.Link, error) {
	dev, err := DeviceFactory()
	if err != nil {
		return nil, device.Errf(device.AdapterError, "failed to create BLE device: %v", err)
	}
	ble.SetDefaultDevice(dev)

	t.logger.WithField("address", id.Address).Info("Connecting to BLE device...")

	client, err := ble.Dial(ctx, ble.NewAddr(id.Address))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, device.Errf(device.Timeout, "connect to %q: %v", id.Address, err)
		}
		return nil, device.Errf(device.AdapterError, "failed to connect to device %q: %v", id.Address, err)
	}

	profile, err := client.DiscoverProfile(true)
	if err != nil {
		_ = client.CancelConnection()
		return nil, device.Errf(device.AdapterError, "failed to discover profile: %v", err)
	}

	// Locate the configured service.
	wantService := device.NormalizeUUID(id.Service)
	var imuService *ble.Service
	for _, svc := range profile.Services {
		if device.NormalizeUUID(svc.UUID.String()) == wantService {
			imuService = svc
			break
		}
	}
	if imuService == nil {
		_ = client.CancelConnection()
		return nil, device.Errf(device.ServiceNotFound, "service %q not found on %q", id.Service, id.Address)
	}

	// Index the service's characteristics in discovery order, then verify
	// every configured kind resolved.
	l := newLink(client, t.logger)
	for _, c := range imuService.Characteristics {
		l.chars.Set(device.NormalizeUUID(c.UUID.String()), c)
	}
	for kind, uuid := range id.Characteristics {
		if _, ok := l.chars.Get(device.NormalizeUUID(uuid)); !ok {
			_ = client.CancelConnection()
			return nil, device.Errf(device.CharacteristicNotFound,
				"characteristic %q (%s) not found in service %q", uuid, kind, id.Service)
		}
	}

	t.logger.WithFields(logrus.Fields{
		"address":         id.Address,
		"characteristics": l.CharacteristicUUIDs(),
	}).Info("BLE device connected")
	return l, nil
}

var _ device.Transport = (*Transport)(nil)
