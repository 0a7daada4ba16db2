package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultDelay is how long the worker pretends to work on every call.
const DefaultDelay = 5000 * time.Millisecond

// Config is the optional config.yaml in the home directory.
type Config struct {
	Worker  WorkerConfig  `yaml:"worker"`
	Client  ClientConfig  `yaml:"client"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type WorkerConfig struct {
	Delay time.Duration `yaml:"delay"`
}

type ClientConfig struct {
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	CallTimeout  time.Duration `yaml:"call_timeout"` // 0 表示不限制
	ConnectRetry time.Duration `yaml:"connect_retry"`
}

type MetricsConfig struct {
	// Listen 为空时不开启 /metrics
	Listen string `yaml:"listen"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Worker: WorkerConfig{Delay: DefaultDelay},
		Client: ClientConfig{
			DialTimeout:  2 * time.Second,
			ConnectRetry: time.Second,
		},
	}
}

// Load reads path on top of Default. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects negative durations.
func (c Config) Validate() error {
	switch {
	case c.Worker.Delay < 0:
		return errors.New("worker.delay must not be negative")
	case c.Client.DialTimeout < 0:
		return errors.New("client.dial_timeout must not be negative")
	case c.Client.CallTimeout < 0:
		return errors.New("client.call_timeout must not be negative")
	case c.Client.ConnectRetry <= 0:
		return errors.New("client.connect_retry must be positive")
	}
	return nil
}
