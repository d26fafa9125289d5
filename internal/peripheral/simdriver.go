package peripheral

import (
	"math"
	"time"

	"github.com/codegithubka/ble-server/internal/imu"
)

// SimDriver is a synthetic sensor driver for development and soak testing:
// it produces smooth in-range waveforms per sensor kind so the whole
// peripheral-to-central path can run without IMU hardware.
type SimDriver struct {
	start time.Time
}

func NewSimDriver() *SimDriver {
	return &SimDriver{start: time.Now()}
}

func (d *SimDriver) Sample(kind imu.Kind) (imu.Sample, error) {
	t := time.Since(d.start).Seconds()
	switch kind {
	case imu.Accel:
		// Gravity on Z with a gentle wobble on X/Y.
		return imu.NewSample(
			float32(0.2*math.Sin(t)),
			float32(0.2*math.Cos(t)),
			float32(1.0+0.05*math.Sin(t/3)),
		), nil
	case imu.Gyro:
		return imu.NewSample(
			float32(30*math.Sin(t/2)),
			float32(15*math.Cos(t/2)),
			float32(5*math.Sin(t/5)),
		), nil
	default:
		// Roughly Earth's field strength in microtesla.
		return imu.NewSample(
			float32(22+3*math.Sin(t/7)),
			float32(-5+3*math.Cos(t/7)),
			float32(43),
		), nil
	}
}

var _ Driver = (*SimDriver)(nil)
