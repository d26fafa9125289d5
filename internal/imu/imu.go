// Package imu defines the typed IMU sample model and the wire codec used on
// both sides of the BLE link.
package imu

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies one of the three sensor axis groups served by the
// peripheral. Each kind maps 1:1 to a GATT characteristic UUID.
type Kind int

const (
	Accel Kind = iota
	Gyro
	Mag
)

// Kinds returns all sensor kinds in their canonical order.
func Kinds() []Kind {
	return []Kind{Accel, Gyro, Mag}
}

func (k Kind) String() string {
	switch k {
	case Accel:
		return "accel"
	case Gyro:
		return "gyro"
	case Mag:
		return "mag"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind converts a user-supplied sensor name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accel", "accelerometer":
		return Accel, nil
	case "gyro", "gyroscope":
		return Gyro, nil
	case "mag", "magnetometer":
		return Mag, nil
	default:
		return 0, fmt.Errorf("unknown sensor kind %q (must be accel, gyro, or mag)", s)
	}
}

// Sample is a single 3-axis sensor reading. It is immutable once constructed:
// the codec produces a new value per decoded payload and never mutates it.
//
// At is the local reception (or sampling) instant. It is not carried on the
// wire; Decode stamps it from the local monotonic clock.
type Sample struct {
	X float32
	Y float32
	Z float32

	At time.Time
}

func (s Sample) String() string {
	return fmt.Sprintf("x=%g y=%g z=%g", s.X, s.Y, s.Z)
}

// NewSample constructs a sample stamped with the current monotonic instant.
func NewSample(x, y, z float32) Sample {
	return Sample{X: x, Y: y, Z: z, At: time.Now()}
}
