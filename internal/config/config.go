// Package config loads the server configuration from an optional YAML file
// with environment-variable overrides on top, so a container deployment can
// tune a checked-in base file without editing it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	// Listen is the TCP address the server binds, e.g. ":11211".
	Listen string `yaml:"listen"`

	// MaxItemBytes bounds a single stored payload. Zero selects the
	// protocol default (1 MiB).
	MaxItemBytes int `yaml:"max_item_bytes"`

	Cache CacheConfig `yaml:"cache"`
	Pool  PoolConfig  `yaml:"pool"`
}

// CacheConfig sizes the storage engine.
type CacheConfig struct {
	// MaxBytes is the total byte budget, split evenly across shards.
	MaxBytes int `yaml:"max_bytes"`

	// Shards is the stripe count. More shards, less lock contention,
	// smaller per-shard budget.
	Shards int `yaml:"shards"`
}

// PoolConfig sizes the connection worker pool.
type PoolConfig struct {
	QueueCap      int `yaml:"queue_cap"`
	LowWatermark  int `yaml:"low_watermark"`
	HighWatermark int `yaml:"high_watermark"`
	IdleTimeMS    int `yaml:"idle_time_ms"`
}

// IdleTime returns the worker idle timeout as a duration.
func (p PoolConfig) IdleTime() time.Duration {
	return time.Duration(p.IdleTimeMS) * time.Millisecond
}

// Default returns the configuration used when no file and no environment
// overrides are present: a 64 MiB cache over 8 shards on the conventional
// memcached port.
func Default() Config {
	return Config{
		Listen:       ":11211",
		MaxItemBytes: 1 << 20,
		Cache: CacheConfig{
			MaxBytes: 64 << 20,
			Shards:   8,
		},
		Pool: PoolConfig{
			QueueCap:      128,
			LowWatermark:  4,
			HighWatermark: 16,
			IdleTimeMS:    100,
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped when path is empty), then environment overrides, then
// validation.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays MNEMO_* environment variables onto cfg.
func (c *Config) applyEnv() error {
	c.Listen = getenv("MNEMO_LISTEN", c.Listen)

	for _, v := range []struct {
		name string
		dst  *int
	}{
		{"MNEMO_MAX_ITEM_BYTES", &c.MaxItemBytes},
		{"MNEMO_CACHE_BYTES", &c.Cache.MaxBytes},
		{"MNEMO_CACHE_SHARDS", &c.Cache.Shards},
		{"MNEMO_POOL_QUEUE_CAP", &c.Pool.QueueCap},
		{"MNEMO_POOL_LOW_WATERMARK", &c.Pool.LowWatermark},
		{"MNEMO_POOL_HIGH_WATERMARK", &c.Pool.HighWatermark},
		{"MNEMO_POOL_IDLE_TIME_MS", &c.Pool.IdleTimeMS},
	} {
		raw := os.Getenv(v.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("config: %s=%q is not an integer", v.name, raw)
		}
		*v.dst = n
	}
	return nil
}

// Validate rejects configurations the engine or pool constructors would
// refuse, so misconfiguration fails at startup with one clear error.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("config: listen address must not be empty")
	}
	if c.MaxItemBytes < 0 {
		return fmt.Errorf("config: max_item_bytes must not be negative, got %d", c.MaxItemBytes)
	}
	if c.Cache.MaxBytes <= 0 {
		return fmt.Errorf("config: cache.max_bytes must be positive, got %d", c.Cache.MaxBytes)
	}
	if c.Cache.Shards <= 0 {
		return fmt.Errorf("config: cache.shards must be positive, got %d", c.Cache.Shards)
	}
	if c.Cache.MaxBytes/c.Cache.Shards == 0 {
		return fmt.Errorf("config: cache.max_bytes %d over %d shards leaves no room per shard", c.Cache.MaxBytes, c.Cache.Shards)
	}
	if c.Cache.MaxBytes/c.Cache.Shards > 1<<30 {
		return fmt.Errorf("config: cache.max_bytes %d over %d shards exceeds the 1 GiB per-shard limit", c.Cache.MaxBytes, c.Cache.Shards)
	}
	if c.Pool.QueueCap < 1 {
		return fmt.Errorf("config: pool.queue_cap must be at least 1, got %d", c.Pool.QueueCap)
	}
	if c.Pool.LowWatermark < 1 {
		return fmt.Errorf("config: pool.low_watermark must be at least 1, got %d", c.Pool.LowWatermark)
	}
	if c.Pool.HighWatermark < c.Pool.LowWatermark {
		return fmt.Errorf("config: pool.high_watermark %d below pool.low_watermark %d", c.Pool.HighWatermark, c.Pool.LowWatermark)
	}
	if c.Pool.IdleTimeMS <= 0 {
		return fmt.Errorf("config: pool.idle_time_ms must be positive, got %d", c.Pool.IdleTimeMS)
	}
	return nil
}

// getenv retrieves an environment variable with a default fallback value.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
