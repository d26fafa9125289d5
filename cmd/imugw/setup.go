package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/codegithubka/ble-server/pkg/config"
)

// loadConfig resolves the effective configuration: defaults, overlaid with
// the --config file when one is given.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(path)
}

// setupColors disables ANSI colors when stdout is not a terminal, so piped
// output stays machine-readable.
func setupColors() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}
}
