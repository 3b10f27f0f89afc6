package core

import (
	"fmt"
	"strings"
)

type CacheConfig struct {
	// Disabled turns every rule lookup into a rule store read.
	Disabled bool `koanf:"disabled" mapstructure:"disabled"`
}

type EngineConfig struct {
	// MaxBatchSize bounds MapMany; negative disables the bound, 0 keeps the default.
	MaxBatchSize int `koanf:"max_batch_size" mapstructure:"max_batch_size"`
}

type Config struct {
	ServiceName string       `koanf:"service_name" mapstructure:"service_name"`
	Cache       CacheConfig  `koanf:"cache" mapstructure:"cache"`
	Engine      EngineConfig `koanf:"engine" mapstructure:"engine"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "mapping",
		Engine:      EngineConfig{MaxBatchSize: DefaultMaxBatchSize},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	return nil
}

func (c Config) maxBatchSize() int {
	switch {
	case c.Engine.MaxBatchSize < 0:
		return 0
	case c.Engine.MaxBatchSize == 0:
		return DefaultMaxBatchSize
	default:
		return c.Engine.MaxBatchSize
	}
}
