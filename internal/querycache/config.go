package querycache

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config tunes the cache's staleness and retry behavior.
type Config struct {
	// DefaultStaleTime is the freshness window used when a Get passes none.
	DefaultStaleTime time.Duration `envconfig:"DEFAULT_STALE_TIME" default:"30s"`

	// MaxRetries is the retry ceiling per fetch chain, beyond the initial
	// attempt. Applies only to retryable failures.
	MaxRetries int `envconfig:"MAX_RETRIES" default:"2"`

	// BaseBackoff is the first retry delay.
	BaseBackoff time.Duration `envconfig:"BASE_BACKOFF" default:"100ms"`

	// MaxInterval caps the backoff growth.
	MaxInterval time.Duration `envconfig:"MAX_INTERVAL" default:"2s"`
}

// LoadConfig reads Config from QC_* environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("QC", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DefaultStaleTime <= 0 {
		c.DefaultStaleTime = 30 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 100 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 2 * time.Second
	}
}
