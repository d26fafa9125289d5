// Package peripheral implements the sensor-side GATT server: it advertises
// the IMU service, serves one central at a time, and publishes codec-encoded
// samples obtained from the sensor driver.
package peripheral

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	"github.com/codegithubka/ble-server/internal/imu"
)

// Driver is the sensor collaborator: it samples the physical registers for
// one sensor kind. A failing driver must not take the server down.
type Driver interface {
	Sample(kind imu.Kind) (imu.Sample, error)
}

// Config holds the advertised identity of the peripheral. UUIDs are
// configuration, not hardcoded; the defaults match the stock IMU service.
type Config struct {
	Name           string        `yaml:"name" default:"IMU_Sensor"`
	ServiceUUID    string        `yaml:"service_uuid" default:"1b9998a2-1234-5678-1234-56789abcdef0"`
	AccelCharUUID  string        `yaml:"accel_char_uuid" default:"2713d05a-1234-5678-1234-56789abcdef1"`
	GyroCharUUID   string        `yaml:"gyro_char_uuid" default:"2713d05b-1234-5678-1234-56789abcdef2"`
	MagCharUUID    string        `yaml:"mag_char_uuid" default:"2713d05c-1234-5678-1234-56789abcdef3"`
	UpdateInterval time.Duration `yaml:"update_interval" default:"100ms"`
}

// DefaultConfig returns the stock peripheral configuration.
func DefaultConfig() Config {
	c := Config{}
	defaults.SetDefaults(&c)
	return c
}

// CharUUID returns the configured characteristic UUID for a sensor kind.
func (c Config) CharUUID(kind imu.Kind) string {
	switch kind {
	case imu.Accel:
		return c.AccelCharUUID
	case imu.Gyro:
		return c.GyroCharUUID
	default:
		return c.MagCharUUID
	}
}

// Server publishes the IMU GATT service. One central is served at a time;
// a second central connecting is disconnected immediately.
type Server struct {
	cfg     Config
	driver  Driver
	codec   *imu.Codec
	logger  *logrus.Logger
	adapter *bluetooth.Adapter

	mu      sync.Mutex
	central string // address of the connected central, "" when free
	handles map[imu.Kind]*bluetooth.Characteristic
}

// NewServer creates a peripheral server around the given sensor driver.
// UUIDs are validated eagerly.
func NewServer(cfg Config, driver Driver, logger *logrus.Logger) (*Server, error) {
	if driver == nil {
		return nil, errNoDriver
	}
	if logger == nil {
		logger = logrus.New()
	}
	for _, raw := range []string{cfg.ServiceUUID, cfg.AccelCharUUID, cfg.GyroCharUUID, cfg.MagCharUUID} {
		if _, err := uuid.Parse(raw); err != nil {
			return nil, errInvalidUUID(raw, err)
		}
	}
	return &Server{
		cfg:     cfg,
		driver:  driver,
		codec:   imu.NewCodec(nil),
		logger:  logger,
		adapter: bluetooth.DefaultAdapter,
		handles: make(map[imu.Kind]*bluetooth.Characteristic),
	}, nil
}

// Serve enables the adapter, registers the GATT service, and advertises
// until ctx is cancelled. Advertising is scoped: it stops on every exit
// path. Sample publication runs at the configured update interval.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.adapter.Enable(); err != nil {
		return errAdapter("enable BLE stack", err)
	}

	s.adapter.SetConnectHandler(s.handleConnect)

	svcUUID := bluetooth.NewUUID(uuid.MustParse(s.cfg.ServiceUUID))
	chars := make([]bluetooth.CharacteristicConfig, 0, 3)
	for _, kind := range imu.Kinds() {
		handle := &bluetooth.Characteristic{}
		s.handles[kind] = handle
		chars = append(chars, bluetooth.CharacteristicConfig{
			Handle: handle,
			UUID:   bluetooth.NewUUID(uuid.MustParse(s.cfg.CharUUID(kind))),
			Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
		})
	}
	if err := s.adapter.AddService(&bluetooth.Service{
		UUID:            svcUUID,
		Characteristics: chars,
	}); err != nil {
		return errAdapter("add GATT service", err)
	}

	adv := s.adapter.DefaultAdvertisement()
	if err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    s.cfg.Name,
		ServiceUUIDs: []bluetooth.UUID{svcUUID},
	}); err != nil {
		return errAdapter("configure advertisement", err)
	}
	if err := adv.Start(); err != nil {
		return errAdapter("start advertising", err)
	}
	defer func() {
		if err := adv.Stop(); err != nil {
			s.logger.WithError(err).Warn("Failed to stop advertising")
		}
	}()

	s.logger.WithFields(logrus.Fields{
		"name":     s.cfg.Name,
		"service":  s.cfg.ServiceUUID,
		"interval": s.cfg.UpdateInterval,
	}).Info("IMU peripheral advertising")

	interval := s.cfg.UpdateInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("IMU peripheral stopping")
			return nil
		case <-ticker.C:
			for _, kind := range imu.Kinds() {
				s.publish(kind)
			}
		}
	}
}

// handleConnect enforces the single-central policy: the first central is
// served, any further central is disconnected immediately.
func (s *Server) handleConnect(dev bluetooth.Device, connected bool) {
	addr := dev.Address.String()

	s.mu.Lock()
	defer s.mu.Unlock()
	if connected {
		if s.central != "" && s.central != addr {
			s.logger.WithField("address", addr).Warn("Rejecting second central connection")
			go func() {
				if err := dev.Disconnect(); err != nil {
					s.logger.WithError(err).Warn("Failed to disconnect extra central")
				}
			}()
			return
		}
		s.central = addr
		s.logger.WithField("address", addr).Info("Central connected")
		return
	}
	if s.central == addr {
		s.central = ""
		s.logger.WithField("address", addr).Info("Central disconnected")
	}
}

// publish refreshes one characteristic's value (serving reads) and notifies
// subscribers.
func (s *Server) publish(kind imu.Kind) {
	data := s.payload(kind)
	handle := s.handles[kind]
	if handle == nil {
		return
	}
	if _, err := handle.Write(data); err != nil {
		s.logger.WithFields(logrus.Fields{
			"kind":  kind,
			"error": err,
		}).Debug("Characteristic update failed")
	}
}

// payload samples the driver and encodes the result. A driver failure yields
// an empty payload: the central-side codec rejects it as malformed and the
// session layer treats that as a transient read failure, so a flaky sensor
// never crashes the server.
func (s *Server) payload(kind imu.Kind) []byte {
	sample, err := s.driver.Sample(kind)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"kind":  kind,
			"error": err,
		}).Warn("Sensor driver failed to sample")
		return []byte{}
	}
	return s.codec.Encode(sample)
}
