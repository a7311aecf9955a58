package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// MdstatPath overrides the status file location, mainly for
	// containers mounting proc elsewhere and for tests
	MdstatPath string `yaml:"mdstat_path,omitempty"`

	// DatabasePath is the event history database location
	DatabasePath string `yaml:"database_path,omitempty"`

	Watch Watch `yaml:"watch"`

	Alerts Alerts `yaml:"alerts"`
}

type Alerts struct {
	// Degraded makes the watcher print an alert line on stderr when an
	// array loses a slot, for piping into a notifier
	Degraded bool `yaml:"degraded"`
}

type Watch struct {
	// TimeoutSeconds bounds each wait for a status change; on expiry
	// the watcher re-reads anyway so slow state drift is still noticed
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// ProgressIntervalSeconds throttles how often sync progress samples
	// are written to the database
	ProgressIntervalSeconds int `yaml:"progress_interval_seconds"`

	// RetentionDays prunes events older than this on watcher startup; 0
	// keeps everything
	RetentionDays int `yaml:"retention_days"`
}

// defaultConfig provides baseline settings
var defaultConfig = Config{
	Watch: Watch{
		TimeoutSeconds:          15,
		ProgressIntervalSeconds: 30,
	},
}

func Load(path string) (*Config, error) {
	if path == "" {
		// Try default locations
		candidates := []string{
			"/etc/mdwatch/config.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/mdwatch/config.yaml"),
			"config.yaml",
		}
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	var cfg Config
	if path == "" {
		// No config file found - use defaults
		cfg = defaultConfig
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			cfg = defaultConfig
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, err
			}
		}
	}

	// Apply defaults for missing settings
	if cfg.Watch.TimeoutSeconds == 0 {
		cfg.Watch.TimeoutSeconds = defaultConfig.Watch.TimeoutSeconds
	}
	if cfg.Watch.ProgressIntervalSeconds == 0 {
		cfg.Watch.ProgressIntervalSeconds = defaultConfig.Watch.ProgressIntervalSeconds
	}

	return &cfg, nil
}
