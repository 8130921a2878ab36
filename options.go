package chatclient

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/lihochat/chatclient/internal/session"
)

// Option customises Client construction.
type Option func(*Client) error

// WithHTTPTimeout overrides the default per-request timeout.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be positive, got %v", d)
		}
		c.http.Timeout = d
		return nil
	}
}

// WithTokenStore replaces the default file-backed token store. Useful for
// tests and for hosts that keep credentials elsewhere.
func WithTokenStore(store session.TokenStore) Option {
	return func(c *Client) error {
		if store == nil {
			return fmt.Errorf("token store cannot be nil")
		}
		c.store = store
		return nil
	}
}

// WithLogger supplies a zerolog logger for client internals. The default
// logger discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) error {
		c.log = log
		return nil
	}
}

// WithDebugLogging dumps every request and response to stderr. Also enabled
// by LIHO_DEBUG=true or DEBUG=true.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) error {
		if !enabled {
			return nil
		}
		c.http.Transport = &debugTransport{base: baseTransport(c.http.Transport)}
		return nil
	}
}

func debugLoggingRequested() bool {
	return os.Getenv("LIHO_DEBUG") == "true" || os.Getenv("DEBUG") == "true"
}
