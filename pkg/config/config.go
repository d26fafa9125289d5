// Package config holds the application configuration: target device
// identity, connection manager tuning, and peripheral settings. Defaults are
// declared on struct tags; a YAML file overlays them.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/codegithubka/ble-server/internal/device"
	"github.com/codegithubka/ble-server/internal/imu"
	"github.com/codegithubka/ble-server/internal/manager"
	"github.com/codegithubka/ble-server/internal/peripheral"
)

// DeviceConfig identifies the target peripheral. UUIDs default to the stock
// IMU service layout and may be overridden per deployment.
type DeviceConfig struct {
	Address       string `yaml:"address"`
	ServiceUUID   string `yaml:"service_uuid" default:"1b9998a2-1234-5678-1234-56789abcdef0"`
	AccelCharUUID string `yaml:"accel_char_uuid" default:"2713d05a-1234-5678-1234-56789abcdef1"`
	GyroCharUUID  string `yaml:"gyro_char_uuid" default:"2713d05b-1234-5678-1234-56789abcdef2"`
	MagCharUUID   string `yaml:"mag_char_uuid" default:"2713d05c-1234-5678-1234-56789abcdef3"`
}

// Config is the application configuration root.
type Config struct {
	LogLevel   string            `yaml:"log_level" default:"info"`
	Device     DeviceConfig      `yaml:"device"`
	Manager    manager.Options   `yaml:"manager"`
	Peripheral peripheral.Config `yaml:"peripheral"`
}

// DefaultConfig returns configuration with all defaults applied.
func DefaultConfig() *Config {
	c := &Config{}
	defaults.SetDefaults(c)
	return c
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (*Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config %q: %w", path, err)
	}
	return c, nil
}

// Identity maps the device section to a transport identity.
func (c *Config) Identity() device.Identity {
	return device.Identity{
		Address: c.Device.Address,
		Service: c.Device.ServiceUUID,
		Characteristics: map[imu.Kind]string{
			imu.Accel: c.Device.AccelCharUUID,
			imu.Gyro:  c.Device.GyroCharUUID,
			imu.Mag:   c.Device.MagCharUUID,
		},
	}
}

// NewLogger creates a configured logger instance.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return logger, nil
}
