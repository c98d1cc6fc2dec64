package main

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Workload WorkloadConfig `toml:"workload"`
	Replica  ReplicaConfig  `toml:"replica"`
	Logging  LoggingConfig  `toml:"logging"`
	Report   ReportConfig   `toml:"report"`
}

type WorkloadConfig struct {
	Duration    time.Duration `toml:"duration"`
	Seed        uint64        `toml:"seed"`
	Capacity    int           `toml:"capacity"`
	GrowStep    int           `toml:"grow_step"`
	OpsPerTick  int           `toml:"ops_per_tick"`
	EraseRatio  float64       `toml:"erase_ratio"`  // chance an op erases instead of inserting (0.0-1.0)
	UpdateRatio float64       `toml:"update_ratio"` // chance an op updates a live value (0.0-1.0)
	CheckEvery  int           `toml:"check_every"`  // ticks between invariant checks, 0 disables
}

type ReplicaConfig struct {
	Enabled       bool    `toml:"enabled"`
	ShuffleWindow int     `toml:"shuffle_window"` // events reordered within windows of this size
	DuplicateRate float64 `toml:"duplicate_rate"` // chance an event is delivered twice (0.0-1.0)
	GrowStep      int     `toml:"grow_step"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // console or json
}

type ReportConfig struct {
	Format         string `toml:"format"` // markdown or yaml
	GCPauseMetrics bool   `toml:"gc_pause_metrics"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Workload.Capacity < 1:
		return fmt.Errorf("workload.capacity must be positive, got %d", c.Workload.Capacity)
	case c.Workload.OpsPerTick < 1:
		return fmt.Errorf("workload.ops_per_tick must be positive, got %d", c.Workload.OpsPerTick)
	case c.Workload.EraseRatio < 0 || c.Workload.EraseRatio > 1:
		return fmt.Errorf("workload.erase_ratio out of range: %v", c.Workload.EraseRatio)
	case c.Workload.UpdateRatio < 0 || c.Workload.UpdateRatio > 1:
		return fmt.Errorf("workload.update_ratio out of range: %v", c.Workload.UpdateRatio)
	case c.Replica.DuplicateRate < 0 || c.Replica.DuplicateRate > 1:
		return fmt.Errorf("replica.duplicate_rate out of range: %v", c.Replica.DuplicateRate)
	case c.Report.Format != "markdown" && c.Report.Format != "yaml":
		return fmt.Errorf("report.format must be markdown or yaml, got %q", c.Report.Format)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Workload: WorkloadConfig{
			Duration:    10 * time.Second,
			Seed:        1,
			Capacity:    1024,
			GrowStep:    1024,
			OpsPerTick:  256,
			EraseRatio:  0.45,
			UpdateRatio: 0.2,
			CheckEvery:  64,
		},
		Replica: ReplicaConfig{
			Enabled:       true,
			ShuffleWindow: 8,
			DuplicateRate: 0.05,
			GrowStep:      256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Report: ReportConfig{
			Format: "markdown",
		},
	}
}
