package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/codegithubka/ble-server/internal/device/goble"
	"github.com/codegithubka/ble-server/internal/imu"
	"github.com/codegithubka/ble-server/internal/session"
	"github.com/codegithubka/ble-server/pkg/config"
)

var readCmd = &cobra.Command{
	Use:   "read <device-address>",
	Short: "Read the current IMU samples from a peripheral",
	Long: `Connect to the peripheral, read the current sample of each requested
sensor kind over GATT, and disconnect. The connection is scoped to the
command: it is released on every exit path, including errors.`,
	Example: `  # Read all three sensors once
  imugw read AA:BB:CC:DD:EE:FF

  # Read only the accelerometer, with colors off when piped
  imugw read AA:BB:CC:DD:EE:FF --kind accel | tee accel.log

  # Queue the reads through the async session
  imugw read AA:BB:CC:DD:EE:FF --async`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

func init() {
	readCmd.Flags().StringSliceP("kind", "k", nil, "Sensor kinds to read (accel, gyro, mag); all when omitted")
	readCmd.Flags().Duration("timeout", 30*time.Second, "Overall command timeout")
	readCmd.Flags().Bool("async", false, "Submit reads through the async queue instead of blocking per read")
}

func runRead(cmd *cobra.Command, args []string) error {
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Device.Address = args[0]

	kinds, err := parseKinds(cmd)
	if err != nil {
		return err
	}

	// Arguments are valid past this point; failures are runtime errors.
	cmd.SilenceUsage = true

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	setupColors()
	transport := goble.NewTransport(logger)

	async, _ := cmd.Flags().GetBool("async")
	if async {
		return readAsync(ctx, cfg, transport, logger, kinds)
	}

	s, err := session.New(cfg.Identity(), transport, cfg.Manager, logger)
	if err != nil {
		return err
	}
	return s.Connection(ctx, func(s *session.Session) error {
		for _, kind := range kinds {
			sample, err := s.ReadIMUData(ctx, kind)
			if err != nil {
				return err
			}
			printSample(kind, sample)
		}
		return nil
	})
}

// readAsync submits every requested read up front and collects the results;
// the queue guarantees they complete in submission order.
func readAsync(ctx context.Context, cfg *config.Config, transport *goble.Transport, logger *logrus.Logger, kinds []imu.Kind) error {
	a, err := session.NewAsync(cfg.Identity(), transport, cfg.Manager, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Connection(ctx, func(a *session.AsyncSession) error {
		results := make([]<-chan session.Result, 0, len(kinds))
		for _, kind := range kinds {
			results = append(results, a.ReadIMUDataAsync(ctx, kind))
		}
		for i, ch := range results {
			res := <-ch
			if res.Err != nil {
				return res.Err
			}
			printSample(kinds[i], res.Sample)
		}
		return nil
	})
}

// parseKinds resolves --kind values; an empty flag means all sensors.
func parseKinds(cmd *cobra.Command) ([]imu.Kind, error) {
	raw, _ := cmd.Flags().GetStringSlice("kind")
	if len(raw) == 0 {
		return imu.Kinds(), nil
	}
	kinds := make([]imu.Kind, 0, len(raw))
	for _, name := range raw {
		kind, err := imu.ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

var (
	kindColor  = color.New(color.FgCyan, color.Bold)
	axisColor  = color.New(color.FgHiBlack)
	stampColor = color.New(color.FgHiBlack)
)

func printSample(kind imu.Kind, sample imu.Sample) {
	fmt.Printf("%s  %s%+10.4f  %s%+10.4f  %s%+10.4f  %s\n",
		kindColor.Sprintf("%-5s", kind),
		axisColor.Sprint("x="), sample.X,
		axisColor.Sprint("y="), sample.Y,
		axisColor.Sprint("z="), sample.Z,
		stampColor.Sprint(sample.At.Format(time.RFC3339Nano)),
	)
}
