package main

import (
	"fmt"
	"os"

	"github.com/sigreer/mdwatch/internal/config"
	"github.com/sigreer/mdwatch/internal/mdstat"
	"github.com/sigreer/mdwatch/internal/version"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "mdwatch",
	Version: version.Version,
	Short:   "Software RAID array status and monitoring tool",
	Long: `mdwatch reads the kernel's software RAID status file, shows which
arrays exist and how healthy they are, and can follow the file for
state changes, recording transitions to a local history database.`,
}

// loadConfig loads the config file, exiting on a malformed file
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// newSession opens a status session honoring the configured path override
func newSession(cfg *config.Config) *mdstat.Session {
	return mdstat.NewSession(cfg.MdstatPath)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/mdwatch/config.yaml)")

	statusCmd.Flags().Bool("json", false, "Output as JSON")

	listCmd.Flags().Bool("start-order", false, "Order components before the composites that contain them")

	watchCmd.Flags().IntP("timeout", "t", 0, "seconds per wait before re-reading anyway (default from config)")
	watchCmd.Flags().Bool("no-db", false, "Print transitions without recording them")

	eventsCmd.Flags().IntP("limit", "n", 20, "Maximum number of events to show")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(busyCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(eventsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
