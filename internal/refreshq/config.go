package refreshq

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config tunes the executor. Zero values fall back to defaults in
// NewExecutor.
type Config struct {
	// Shards is the number of worker goroutines / queues.
	Shards int `envconfig:"SHARDS" default:"4"`

	// QueueSize is the per-shard buffered channel capacity.
	QueueSize int `envconfig:"QUEUE_SIZE" default:"128"`

	// EnqueueTimeout bounds how long Submit waits for queue space before
	// reporting backpressure.
	EnqueueTimeout time.Duration `envconfig:"ENQUEUE_TIMEOUT" default:"100ms"`

	// ErrorHandler, if set, receives errors from failed refresh jobs.
	ErrorHandler func(error) `ignored:"true"`
}

// LoadConfig reads Config from RQ_* environment variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("RQ", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
