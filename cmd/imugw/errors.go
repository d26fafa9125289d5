package main

import (
	"errors"
	"fmt"

	"github.com/codegithubka/ble-server/internal/device"
	"github.com/codegithubka/ble-server/internal/imu"
)

// FormatUserError translates internal errors into actionable messages for
// the terminal. Anything unrecognized passes through unchanged.
func FormatUserError(err error) string {
	var cerr *device.ConnError
	if errors.As(err, &cerr) {
		switch cerr.State {
		case device.NotConnected:
			return fmt.Sprintf("not connected: %s", cerr.Msg)
		case device.AlreadyConnected:
			return fmt.Sprintf("device is busy: %s (only one session per device is allowed)", cerr.Msg)
		case device.ServiceNotFound:
			return fmt.Sprintf("%s (is this the right device? check the service UUID in your config)", cerr.Msg)
		case device.CharacteristicNotFound:
			return fmt.Sprintf("%s (firmware and configuration disagree on the GATT layout)", cerr.Msg)
		case device.Timeout:
			return fmt.Sprintf("operation timed out: %s (is the device in range and powered on?)", cerr.Msg)
		case device.RetriesExhausted:
			return fmt.Sprintf("%s (reset the session or restart the command to try again)", cerr.Msg)
		case device.AdapterError:
			return fmt.Sprintf("adapter error: %s (is Bluetooth enabled?)", cerr.Msg)
		}
	}

	var derr *imu.DecodeError
	if errors.As(err, &derr) {
		return fmt.Sprintf("bad sensor payload: %s", derr.Error())
	}

	return err.Error()
}
