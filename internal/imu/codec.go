package imu

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// PayloadSize is the fixed characteristic payload width: three IEEE-754
// float32 axis values, little-endian.
const PayloadSize = 12

// DecodeReason classifies why a payload was rejected.
type DecodeReason string

const (
	LengthMismatch DecodeReason = "length_mismatch"
	RangeViolation DecodeReason = "range_violation"
	Malformed      DecodeReason = "malformed"
)

// DecodeError is returned when a characteristic payload cannot be converted
// into a Sample. Invalid payloads never reach a caller as a Sample.
type DecodeError struct {
	Reason DecodeReason
	Msg    string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Msg)
}

// Is allows errors.Is to compare DecodeError values by Reason.
func (e *DecodeError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*DecodeError)
	if !ok {
		return false
	}
	return e.Reason == t.Reason
}

// Predefined sentinel errors for decode failures.
var (
	ErrLengthMismatch = &DecodeError{Reason: LengthMismatch}
	ErrRangeViolation = &DecodeError{Reason: RangeViolation}
	ErrMalformed      = &DecodeError{Reason: Malformed}
)

func decodeErrf(reason DecodeReason, format string, args ...interface{}) error {
	return &DecodeError{Reason: reason, Msg: fmt.Sprintf(format, args...)}
}

// Range bounds the physically plausible values for one sensor kind.
type Range struct {
	Min float32
	Max float32
}

func (r Range) contains(v float32) bool {
	return v >= r.Min && v <= r.Max
}

// DefaultRanges returns the plausibility bounds for each sensor kind, sized
// to the full-scale limits of common consumer IMUs: +-16 g acceleration,
// +-2000 deg/s rotation, +-4900 uT field strength.
func DefaultRanges() map[Kind]Range {
	return map[Kind]Range{
		Accel: {Min: -16, Max: 16},
		Gyro:  {Min: -2000, Max: 2000},
		Mag:   {Min: -4900, Max: 4900},
	}
}

// Codec converts raw characteristic payloads to and from typed samples.
// Encode and Decode are deterministic for the axis values; a decoded sample
// additionally carries a local reception timestamp.
type Codec struct {
	ranges map[Kind]Range
}

// NewCodec creates a codec with per-kind plausibility ranges. A nil map
// selects DefaultRanges.
func NewCodec(ranges map[Kind]Range) *Codec {
	if ranges == nil {
		ranges = DefaultRanges()
	}
	return &Codec{ranges: ranges}
}

// Encode serializes a sample into the fixed-width wire payload.
func (c *Codec) Encode(s Sample) []byte {
	buf := make([]byte, PayloadSize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(s.X))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(s.Y))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(s.Z))
	return buf
}

// Decode validates and deserializes a characteristic payload for the given
// sensor kind.
//
// An empty payload is Malformed (the peripheral answers reads with an empty
// value when its driver fails); any other width deviation is LengthMismatch.
// Non-finite axis values and values outside the kind's configured range are
// RangeViolation.
func (c *Codec) Decode(kind Kind, payload []byte) (Sample, error) {
	if len(payload) == 0 {
		return Sample{}, decodeErrf(Malformed, "empty payload for %s", kind)
	}
	if len(payload) != PayloadSize {
		return Sample{}, decodeErrf(LengthMismatch, "%s payload is %d bytes, expected %d", kind, len(payload), PayloadSize)
	}

	x := math.Float32frombits(binary.LittleEndian.Uint32(payload[0:4]))
	y := math.Float32frombits(binary.LittleEndian.Uint32(payload[4:8]))
	z := math.Float32frombits(binary.LittleEndian.Uint32(payload[8:12]))

	r, ok := c.ranges[kind]
	if !ok {
		return Sample{}, decodeErrf(Malformed, "no range configured for sensor kind %s", kind)
	}
	for _, axis := range [...]struct {
		name string
		v    float32
	}{{"x", x}, {"y", y}, {"z", z}} {
		if math.IsNaN(float64(axis.v)) || math.IsInf(float64(axis.v), 0) {
			return Sample{}, decodeErrf(RangeViolation, "%s axis %s is not finite", kind, axis.name)
		}
		if !r.contains(axis.v) {
			return Sample{}, decodeErrf(RangeViolation, "%s axis %s value %g outside [%g, %g]", kind, axis.name, axis.v, r.Min, r.Max)
		}
	}

	return Sample{X: x, Y: y, Z: z, At: time.Now()}, nil
}
