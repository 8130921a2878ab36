package chatclient

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lihochat/chatclient/internal/session"
)

// FileConfig represents client configuration loaded from YAML.
type FileConfig struct {
	BaseURL     string `yaml:"baseURL"`
	HTTPTimeout string `yaml:"httpTimeout"` // Go duration string, e.g. "30s"
	TokenPath   string `yaml:"tokenPath"`   // empty means the platform default
	Debug       bool   `yaml:"debug"`
}

// LoadConfig reads client config from path. Environment variables override
// file values: LIHO_BASE_URL, LIHO_HTTP_TIMEOUT, LIHO_TOKEN_PATH,
// LIHO_DEBUG.
func LoadConfig(path string) (FileConfig, error) {
	cfg := FileConfig{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("LIHO_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("LIHO_HTTP_TIMEOUT"); v != "" {
		cfg.HTTPTimeout = v
	}
	if v := os.Getenv("LIHO_TOKEN_PATH"); v != "" {
		cfg.TokenPath = v
	}
	if v := os.Getenv("LIHO_DEBUG"); v == "true" {
		cfg.Debug = true
	}
	if cfg.BaseURL == "" {
		return cfg, errors.New("config: baseURL is required (set in the config file or LIHO_BASE_URL)")
	}
	return cfg, nil
}

// NewFromConfig builds a Client from a FileConfig, translating its fields
// into the equivalent construction options.
func NewFromConfig(cfg FileConfig, opts ...Option) (*Client, error) {
	var fromFile []Option
	if cfg.HTTPTimeout != "" {
		d, err := time.ParseDuration(cfg.HTTPTimeout)
		if err != nil {
			return nil, fmt.Errorf("config: invalid httpTimeout: %w", err)
		}
		fromFile = append(fromFile, WithHTTPTimeout(d))
	}
	if cfg.TokenPath != "" {
		store, err := session.NewFileTokenStore(cfg.TokenPath)
		if err != nil {
			return nil, err
		}
		fromFile = append(fromFile, WithTokenStore(store))
	}
	if cfg.Debug {
		fromFile = append(fromFile, WithDebugLogging(true))
	}
	return New(cfg.BaseURL, append(fromFile, opts...)...)
}
