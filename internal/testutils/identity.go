package testutils

import (
	"github.com/codegithubka/ble-server/internal/device"
	"github.com/codegithubka/ble-server/internal/imu"
)

// Well-known test UUIDs matching the default IMU service layout.
const (
	TestServiceUUID = "1b9998a2-1234-5678-1234-56789abcdef0"
	TestAccelUUID   = "2713d05a-1234-5678-1234-56789abcdef1"
	TestGyroUUID    = "2713d05b-1234-5678-1234-56789abcdef2"
	TestMagUUID     = "2713d05c-1234-5678-1234-56789abcdef3"
)

// TestIdentity builds a fully configured identity for the given address.
func TestIdentity(address string) device.Identity {
	return device.Identity{
		Address: address,
		Service: TestServiceUUID,
		Characteristics: map[imu.Kind]string{
			imu.Accel: TestAccelUUID,
			imu.Gyro:  TestGyroUUID,
			imu.Mag:   TestMagUUID,
		},
	}
}

// CharUUID returns the test characteristic UUID for a sensor kind.
func CharUUID(kind imu.Kind) string {
	switch kind {
	case imu.Accel:
		return TestAccelUUID
	case imu.Gyro:
		return TestGyroUUID
	default:
		return TestMagUUID
	}
}

// FakeDriver serves canned samples per sensor kind and can be forced to fail.
type FakeDriver struct {
	Samples map[imu.Kind]imu.Sample
	Err     error
}

func (d *FakeDriver) Sample(kind imu.Kind) (imu.Sample, error) {
	if d.Err != nil {
		return imu.Sample{}, d.Err
	}
	return d.Samples[kind], nil
}
