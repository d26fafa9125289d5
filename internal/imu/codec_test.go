package imu_test

import (
	"testing"

	"github.com/codegithubka/ble-server/internal/imu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	// GOAL: Verify Decode(Encode(s)) preserves axis values for in-range samples
	//
	// TEST SCENARIO: Encode samples for every kind -> decode the payload -> axis values match exactly

	codec := imu.NewCodec(nil)

	cases := []struct {
		kind   imu.Kind
		sample imu.Sample
	}{
		{imu.Accel, imu.Sample{X: 1.0, Y: 0.0, Z: 0.0}},
		{imu.Accel, imu.Sample{X: -15.99, Y: 9.80665, Z: 0.001}},
		{imu.Gyro, imu.Sample{X: 250.5, Y: -1999.9, Z: 2000}},
		{imu.Mag, imu.Sample{X: -4900, Y: 4900, Z: 42.42}},
	}

	for _, tc := range cases {
		payload := codec.Encode(tc.sample)
		require.Len(t, payload, imu.PayloadSize, "encoded payload MUST be fixed width")

		decoded, err := codec.Decode(tc.kind, payload)
		require.NoError(t, err, "decode MUST succeed for in-range %s sample", tc.kind)
		assert.Equal(t, tc.sample.X, decoded.X, "x axis MUST round-trip")
		assert.Equal(t, tc.sample.Y, decoded.Y, "y axis MUST round-trip")
		assert.Equal(t, tc.sample.Z, decoded.Z, "z axis MUST round-trip")
		assert.False(t, decoded.At.IsZero(), "decoded sample MUST carry a timestamp")
	}
}

func TestCodecDecodeKnownVector(t *testing.T) {
	// GOAL: Verify the documented wire layout: IEEE-754 little-endian float32 triple
	//
	// TEST SCENARIO: Decode the reference payload for (1.0, 0.0, 0.0) -> exact values returned

	codec := imu.NewCodec(nil)

	payload := []byte{0x00, 0x00, 0x80, 0x3F, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	s, err := codec.Decode(imu.Accel, payload)

	require.NoError(t, err)
	assert.Equal(t, float32(1.0), s.X)
	assert.Equal(t, float32(0.0), s.Y)
	assert.Equal(t, float32(0.0), s.Z)
}

func TestCodecDecodeLengthMismatch(t *testing.T) {
	// GOAL: Verify payloads of the wrong width never produce a Sample
	//
	// TEST SCENARIO: Decode short/long payloads -> LengthMismatch returned -> zero Sample

	codec := imu.NewCodec(nil)

	for _, n := range []int{1, 4, 11, 13, 24} {
		_, err := codec.Decode(imu.Gyro, make([]byte, n))
		require.Error(t, err, "decode MUST fail for %d-byte payload", n)
		assert.ErrorIs(t, err, imu.ErrLengthMismatch, "error MUST be LengthMismatch for %d bytes", n)
	}
}

func TestCodecDecodeEmptyPayloadIsMalformed(t *testing.T) {
	// GOAL: Verify the peripheral's driver-failure sentinel (empty payload) decodes as Malformed
	//
	// TEST SCENARIO: Decode zero-byte payload -> Malformed returned, not LengthMismatch

	codec := imu.NewCodec(nil)

	_, err := codec.Decode(imu.Accel, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, imu.ErrMalformed, "empty payload MUST be Malformed")
	assert.NotErrorIs(t, err, imu.ErrLengthMismatch)
}

func TestCodecDecodeRangeViolation(t *testing.T) {
	// GOAL: Verify implausible axis values are rejected per sensor kind
	//
	// TEST SCENARIO: Encode out-of-range and non-finite values -> RangeViolation returned

	codec := imu.NewCodec(nil)

	// 17 g exceeds the accelerometer full scale but is a legal gyro value.
	tooFast := codec.Encode(imu.Sample{X: 17, Y: 0, Z: 0})
	_, err := codec.Decode(imu.Accel, tooFast)
	assert.ErrorIs(t, err, imu.ErrRangeViolation, "accel MUST reject 17 g")

	_, err = codec.Decode(imu.Gyro, tooFast)
	assert.NoError(t, err, "gyro MUST accept 17 deg/s")

	// NaN and Inf are never plausible.
	inf := []byte{0x00, 0x00, 0x80, 0x7F, 0, 0, 0, 0, 0, 0, 0, 0} // +Inf, 0, 0
	_, err = codec.Decode(imu.Mag, inf)
	assert.ErrorIs(t, err, imu.ErrRangeViolation, "mag MUST reject +Inf")

	nanPayload := []byte{0x00, 0x00, 0xC0, 0x7F, 0, 0, 0, 0, 0, 0, 0, 0} // NaN, 0, 0
	_, err = codec.Decode(imu.Accel, nanPayload)
	assert.ErrorIs(t, err, imu.ErrRangeViolation, "accel MUST reject NaN")
}

func TestCodecCustomRanges(t *testing.T) {
	// GOAL: Verify per-kind ranges are configurable at construction
	//
	// TEST SCENARIO: Narrow accel range -> previously valid sample now rejected

	codec := imu.NewCodec(map[imu.Kind]imu.Range{
		imu.Accel: {Min: -2, Max: 2},
		imu.Gyro:  {Min: -2000, Max: 2000},
		imu.Mag:   {Min: -4900, Max: 4900},
	})

	payload := codec.Encode(imu.Sample{X: 3, Y: 0, Z: 0})
	_, err := codec.Decode(imu.Accel, payload)
	assert.ErrorIs(t, err, imu.ErrRangeViolation, "narrowed range MUST reject 3 g")
}

func TestParseKind(t *testing.T) {
	// GOAL: Verify user-facing sensor names map to kinds
	//
	// TEST SCENARIO: Parse aliases and garbage -> kinds returned or error

	for name, want := range map[string]imu.Kind{
		"accel": imu.Accel, "Accelerometer": imu.Accel,
		"gyro": imu.Gyro, "GYRO": imu.Gyro,
		"mag": imu.Mag, "magnetometer": imu.Mag,
	} {
		got, err := imu.ParseKind(name)
		require.NoError(t, err, "parse MUST succeed for %q", name)
		assert.Equal(t, want, got)
	}

	_, err := imu.ParseKind("barometer")
	assert.Error(t, err, "parse MUST fail for unknown sensor name")
}
