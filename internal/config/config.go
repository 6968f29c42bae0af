// Package config loads the server configuration file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JulianGro/athena-entity-server/logging"
)

type Config struct {
	Addr               string         `yaml:"addr"`
	TickRate           int            `yaml:"tickRate"`
	TickBudgetMillis   int            `yaml:"tickBudgetMillis"`
	GridCellSizeMeters float64        `yaml:"gridCellSizeMeters"`
	BroadcastQueueSize int            `yaml:"broadcastQueueSize"`
	MaterialsPath      string         `yaml:"materialsPath"`
	Logging            logging.Config `yaml:"logging"`
}

func Default() Config {
	return Config{
		Addr:               ":8080",
		TickRate:           60,
		TickBudgetMillis:   int(time.Second.Milliseconds()) / 60,
		GridCellSizeMeters: 16,
		BroadcastQueueSize: 1024,
		Logging:            logging.DefaultConfig(),
	}
}

// Load reads a YAML config file. An empty path yields defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg.Normalized(), nil
}

// Normalized returns a config with defaults applied to zero values.
func (c Config) Normalized() Config {
	normalized := c
	normalized.Addr = strings.TrimSpace(normalized.Addr)
	defaults := Default()
	if normalized.Addr == "" {
		normalized.Addr = defaults.Addr
	}
	if normalized.TickRate <= 0 {
		normalized.TickRate = defaults.TickRate
	}
	if normalized.TickBudgetMillis <= 0 {
		normalized.TickBudgetMillis = int(time.Second.Milliseconds()) / normalized.TickRate
	}
	if normalized.GridCellSizeMeters <= 0 {
		normalized.GridCellSizeMeters = defaults.GridCellSizeMeters
	}
	if normalized.BroadcastQueueSize <= 0 {
		normalized.BroadcastQueueSize = defaults.BroadcastQueueSize
	}
	if len(normalized.Logging.EnabledSinks) == 0 {
		normalized.Logging.EnabledSinks = defaults.Logging.EnabledSinks
	}
	if normalized.Logging.BufferSize <= 0 {
		normalized.Logging.BufferSize = defaults.Logging.BufferSize
	}
	if normalized.Logging.DropWarnInterval <= 0 {
		normalized.Logging.DropWarnInterval = defaults.Logging.DropWarnInterval
	}
	return normalized
}

// TickBudget converts the configured budget to a duration.
func (c Config) TickBudget() time.Duration {
	return time.Duration(c.TickBudgetMillis) * time.Millisecond
}
