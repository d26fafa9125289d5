package peripheral

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegithubka/ble-server/internal/imu"
	"github.com/codegithubka/ble-server/internal/testutils"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestNewServerValidation(t *testing.T) {
	// GOAL: Verify misconfiguration surfaces at construction
	//
	// TEST SCENARIO: Nil driver rejected; malformed UUID rejected; valid config accepted

	_, err := NewServer(DefaultConfig(), nil, quietLogger())
	require.Error(t, err, "a server without a sensor driver MUST be rejected")

	cfg := DefaultConfig()
	cfg.GyroCharUUID = "not-a-uuid"
	_, err = NewServer(cfg, &testutils.FakeDriver{}, quietLogger())
	require.Error(t, err, "a malformed characteristic UUID MUST be rejected")

	_, err = NewServer(DefaultConfig(), &testutils.FakeDriver{}, quietLogger())
	require.NoError(t, err)
}

func TestPayloadEncodesDriverSample(t *testing.T) {
	// GOAL: Verify the published payload is the codec encoding of the driver's sample
	//
	// TEST SCENARIO: Driver serves a known sample -> payload decodes back to the same axes

	want := imu.Sample{X: 0.1, Y: -0.2, Z: 0.98}
	driver := &testutils.FakeDriver{
		Samples: map[imu.Kind]imu.Sample{imu.Accel: want},
	}
	s, err := NewServer(DefaultConfig(), driver, quietLogger())
	require.NoError(t, err)

	payload := s.payload(imu.Accel)
	require.Len(t, payload, imu.PayloadSize)

	decoded, err := imu.NewCodec(nil).Decode(imu.Accel, payload)
	require.NoError(t, err)
	assert.Equal(t, want.X, decoded.X)
	assert.Equal(t, want.Y, decoded.Y)
	assert.Equal(t, want.Z, decoded.Z)
}

func TestPayloadDriverFailureYieldsEmptyPayload(t *testing.T) {
	// GOAL: Verify a failing sensor produces the empty-payload sentinel instead of garbage
	//
	// TEST SCENARIO: Driver errors -> empty payload published -> central codec rejects it as Malformed

	driver := &testutils.FakeDriver{Err: errors.New("i2c bus stuck")}
	s, err := NewServer(DefaultConfig(), driver, quietLogger())
	require.NoError(t, err)

	payload := s.payload(imu.Mag)
	assert.Empty(t, payload, "a driver failure MUST publish an empty payload")

	_, err = imu.NewCodec(nil).Decode(imu.Mag, payload)
	require.ErrorIs(t, err, imu.ErrMalformed, "the central side MUST see the sentinel as Malformed")
}

func TestDefaultConfig(t *testing.T) {
	// GOAL: Verify the stock peripheral identity matches the documented IMU service layout

	cfg := DefaultConfig()
	assert.Equal(t, "IMU_Sensor", cfg.Name)
	assert.Equal(t, "1b9998a2-1234-5678-1234-56789abcdef0", cfg.ServiceUUID)
	assert.Equal(t, "2713d05a-1234-5678-1234-56789abcdef1", cfg.CharUUID(imu.Accel))
	assert.Equal(t, "2713d05b-1234-5678-1234-56789abcdef2", cfg.CharUUID(imu.Gyro))
	assert.Equal(t, "2713d05c-1234-5678-1234-56789abcdef3", cfg.CharUUID(imu.Mag))
	assert.Equal(t, 100*time.Millisecond, cfg.UpdateInterval)
}

func TestSimDriverStaysInRange(t *testing.T) {
	// GOAL: Verify the simulated sensor only produces values the codec accepts
	//
	// TEST SCENARIO: Sample every kind repeatedly -> encode/decode round-trips without range violations

	driver := NewSimDriver()
	codec := imu.NewCodec(nil)

	for i := 0; i < 50; i++ {
		for _, kind := range imu.Kinds() {
			sample, err := driver.Sample(kind)
			require.NoError(t, err)
			_, err = codec.Decode(kind, codec.Encode(sample))
			require.NoError(t, err, "simulated %s sample MUST be within the validation range", kind)
		}
	}
}
