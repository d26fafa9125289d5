package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codegithubka/ble-server/internal/device/goble"
	"github.com/codegithubka/ble-server/internal/imu"
	"github.com/codegithubka/ble-server/internal/session"
)

var watchCmd = &cobra.Command{
	Use:   "watch <device-address>",
	Short: "Stream IMU samples via characteristic notifications",
	Long: `Connect to the peripheral, subscribe to one sensor characteristic, and
print decoded samples as they arrive. A slow terminal drops the oldest
buffered samples rather than stalling the radio. Stop with Ctrl+C.`,
	Example: `  # Stream gyroscope samples until interrupted
  imugw watch AA:BB:CC:DD:EE:FF --kind gyro

  # Stop after 100 samples or 30 seconds, whichever comes first
  imugw watch AA:BB:CC:DD:EE:FF --count 100 --duration 30s`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringP("kind", "k", "accel", "Sensor kind to stream (accel, gyro, mag)")
	watchCmd.Flags().Int("buffer", 16, "Sample buffer capacity (oldest dropped when full)")
	watchCmd.Flags().Int("count", 0, "Stop after this many samples (0 = until interrupted)")
	watchCmd.Flags().Duration("duration", 0, "Stop after this long (0 = until interrupted)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Device.Address = args[0]

	kindName, _ := cmd.Flags().GetString("kind")
	kind, err := imu.ParseKind(kindName)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	buffer, _ := cmd.Flags().GetInt("buffer")
	count, _ := cmd.Flags().GetInt("count")
	duration, _ := cmd.Flags().GetDuration("duration")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	setupColors()
	transport := goble.NewTransport(logger)
	s, err := session.New(cfg.Identity(), transport, cfg.Manager, logger)
	if err != nil {
		return err
	}

	return s.Connection(ctx, func(s *session.Session) error {
		// Cancelled explicitly once enough samples arrived, so the
		// subscription tears down before the scope disconnects.
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		samples, err := s.Watch(watchCtx, kind, buffer)
		if err != nil {
			return err
		}

		seen := 0
		for sample := range samples {
			printSample(kind, sample)
			seen++
			if count > 0 && seen >= count {
				cancel()
				// Drain what the ring already holds until Close.
			}
		}
		return watchOutcome(ctx)
	})
}

// watchOutcome maps the context state at stream end to an exit status: a
// --duration deadline is a scheduled stop, not a failure. Ctrl+C surfaces as
// context.Canceled, which main() already exits silently on.
func watchOutcome(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil
	}
	return ctx.Err()
}
