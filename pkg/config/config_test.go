package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegithubka/ble-server/internal/imu"
	"github.com/codegithubka/ble-server/pkg/config"
)

func TestDefaultConfig(t *testing.T) {
	// GOAL: Verify defaults cover every tunable so an empty config file is valid

	cfg := config.DefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "1b9998a2-1234-5678-1234-56789abcdef0", cfg.Device.ServiceUUID)
	assert.Equal(t, 10*time.Second, cfg.Manager.ConnectTimeout)
	assert.Equal(t, 5*time.Second, cfg.Manager.ReadTimeout)
	assert.Equal(t, 3, cfg.Manager.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Manager.BackoffBase)
	assert.Equal(t, 8*time.Second, cfg.Manager.BackoffMax)
	assert.Equal(t, 3, cfg.Manager.TimeoutThreshold)
	assert.Equal(t, "IMU_Sensor", cfg.Peripheral.Name)
	assert.Equal(t, 100*time.Millisecond, cfg.Peripheral.UpdateInterval)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	// GOAL: Verify a YAML file overrides only what it names and keeps the rest at defaults
	//
	// TEST SCENARIO: Partial YAML -> named fields overridden, unnamed fields untouched

	path := filepath.Join(t.TempDir(), "imugw.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
device:
  address: "AA:BB:CC:DD:EE:FF"
manager:
  max_retries: 7
  backoff_base: 250ms
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", cfg.Device.Address)
	assert.Equal(t, 7, cfg.Manager.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Manager.BackoffBase)

	// Untouched fields keep their defaults.
	assert.Equal(t, "1b9998a2-1234-5678-1234-56789abcdef0", cfg.Device.ServiceUUID)
	assert.Equal(t, 10*time.Second, cfg.Manager.ConnectTimeout)
	assert.Equal(t, 3, cfg.Manager.TimeoutThreshold)
}

func TestLoadErrors(t *testing.T) {
	// GOAL: Verify missing and malformed files fail with a useful error

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: [not: valid"), 0o644))
	_, err = config.Load(path)
	require.Error(t, err)
}

func TestIdentityMapping(t *testing.T) {
	// GOAL: Verify the device section maps onto a transport identity kind by kind

	cfg := config.DefaultConfig()
	cfg.Device.Address = "AA:BB:CC:DD:EE:FF"

	id := cfg.Identity()
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", id.Address)
	assert.Equal(t, cfg.Device.ServiceUUID, id.Service)
	assert.Equal(t, cfg.Device.AccelCharUUID, id.Characteristics[imu.Accel])
	assert.Equal(t, cfg.Device.GyroCharUUID, id.Characteristics[imu.Gyro])
	assert.Equal(t, cfg.Device.MagCharUUID, id.Characteristics[imu.Mag])
}

func TestNewLogger(t *testing.T) {
	// GOAL: Verify the log level is parsed and bad levels are rejected

	cfg := config.DefaultConfig()
	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.Equal(t, "info", logger.GetLevel().String())

	cfg.LogLevel = "chatty"
	_, err = cfg.NewLogger()
	require.Error(t, err)
}
