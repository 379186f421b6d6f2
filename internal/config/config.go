package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Dispatcher DispatcherConfig `toml:"dispatcher"`
	Logging    LoggingConfig    `toml:"logging"`
	Demo       DemoConfig       `toml:"demo"`
}

type DispatcherConfig struct {
	Workers    int  `toml:"workers"`    // 0 = GOMAXPROCS
	Sequential bool `toml:"sequential"` // run batch members one by one
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type DemoConfig struct {
	TickRate     time.Duration `toml:"tick_rate"`
	Ticks        int           `toml:"ticks"`      // 0 = run until signalled
	DeltaTime    float32       `toml:"delta_time"` // seconds; 0 = measured wall time
	EntitiesFile string        `toml:"entities_file"`
	ScriptsDir   string        `toml:"scripts_dir"` // empty = Go integrator
	DumpPlan     bool          `toml:"dump_plan"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse overlays TOML data on the defaults. name is used in errors only.
func Parse(data []byte, name string) (*Config, error) {
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", name, err)
	}
	if cfg.Dispatcher.Workers < 0 {
		return nil, fmt.Errorf("parse config %s: dispatcher.workers must be >= 0", name)
	}
	return cfg, nil
}

func Default() *Config { return defaults() }

func defaults() *Config {
	return &Config{
		Dispatcher: DispatcherConfig{
			Workers: 0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Demo: DemoConfig{
			TickRate:     200 * time.Millisecond,
			Ticks:        1,
			DeltaTime:    0.05,
			EntitiesFile: "data/yaml/entities.yaml",
		},
	}
}
