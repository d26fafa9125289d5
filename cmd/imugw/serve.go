package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codegithubka/ble-server/internal/peripheral"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the peripheral-side IMU GATT server",
	Long: `Advertise the IMU service and publish sensor samples to the connected
central. One central is served at a time; extras are disconnected.

Without real hardware the built-in simulated sensor produces smooth
in-range waveforms, which makes this command a self-contained test
peer for 'read' and 'watch'. Stop with Ctrl+C.`,
	Example: `  # Advertise with the default name and UUIDs
  imugw serve

  # Advertise under a different name, publishing at 50ms
  imugw serve --name BenchRig --interval 50ms`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("name", "", "Advertised local name (overrides config)")
	serveCmd.Flags().Duration("interval", 0, "Sample publication interval (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	if name, _ := cmd.Flags().GetString("name"); name != "" {
		cfg.Peripheral.Name = name
	}
	if interval, _ := cmd.Flags().GetDuration("interval"); interval > 0 {
		cfg.Peripheral.UpdateInterval = interval
	}

	srv, err := peripheral.NewServer(cfg.Peripheral, peripheral.NewSimDriver(), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Serve(ctx)
}
