package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-ble/ble"
	"github.com/spf13/cobra"

	"github.com/codegithubka/ble-server/internal/device"
	"github.com/codegithubka/ble-server/internal/device/goble"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for peripherals advertising the IMU service",
	Long: `Scan for BLE advertisements and list matching peripherals. By default
only devices advertising the configured IMU service UUID are shown;
--all lists every advertiser in range.`,
	Example: `  # Find IMU peripherals nearby
  imugw scan

  # List everything advertising for 5 seconds
  imugw scan --all --timeout 5s`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().Duration("timeout", 10*time.Second, "How long to scan")
	scanCmd.Flags().Bool("all", false, "List all advertisers, not just IMU peripherals")
}

func runScan(cmd *cobra.Command, _ []string) error {
	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cmd.SilenceUsage = true

	all, _ := cmd.Flags().GetBool("all")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	dev, err := goble.DeviceFactory()
	if err != nil {
		return device.Errf(device.AdapterError, "failed to create BLE device: %v", err)
	}
	ble.SetDefaultDevice(dev)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.WithField("timeout", timeout).Info("Scanning for BLE devices...")

	wantService := device.NormalizeUUID(cfg.Device.ServiceUUID)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tNAME\tRSSI\tIMU")
	defer w.Flush()

	var mu sync.Mutex
	seen := make(map[string]bool)
	handler := func(a ble.Advertisement) {
		addr := a.Addr().String()

		mu.Lock()
		defer mu.Unlock()
		if seen[addr] {
			return
		}

		hasIMU := advertisesService(a, wantService)
		if !all && !hasIMU {
			return
		}
		seen[addr] = true

		name := a.LocalName()
		if name == "" {
			name = "(unknown)"
		}
		mark := ""
		if hasIMU {
			mark = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", addr, name, a.RSSI(), mark)
	}

	err = ble.Scan(ctx, false, handler, nil)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func advertisesService(a ble.Advertisement, want string) bool {
	for _, u := range a.Services() {
		if device.NormalizeUUID(u.String()) == want {
			return true
		}
	}
	return false
}
