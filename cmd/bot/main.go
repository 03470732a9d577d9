package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "bot",
	Short: "Unattended XAUUSD vix-fix trading bot",
	Long: `bot scans gold on M5 then M15 for a Williams Vix Fix spike confirmed by
the stochastic and the H1 50/200 trend, sizes the position from account risk,
places a bracketed market order and journals the trade.

Examples:
  bot run --config config.yaml
  bot run --once
  bot journal list
  bot journal summary --day 2025-04-08`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
