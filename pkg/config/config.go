// Package config loads FastTQ service configuration from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "FASTTQ"

// Config holds the dispatch service configuration. All values come from
// FASTTQ_-prefixed environment variables.
type Config struct {
	// BrokerAddr is the message broker address (amqp:// or amqps://).
	BrokerAddr string
	// DatabaseReaderURL is the Postgres DSN used for reads.
	DatabaseReaderURL string
	// DatabaseWriterURL is the Postgres DSN used for writes.
	DatabaseWriterURL string
	// ListenAddr is the HTTP bind address.
	ListenAddr string
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// LogFormat is "console" or "json".
	LogFormat string
}

// Load reads configuration from FASTTQ_* environment variables and applies
// defaults for the optional keys.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":3000")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	cfg := &Config{
		BrokerAddr:        v.GetString("broker_addr"),
		DatabaseReaderURL: v.GetString("database_reader_url"),
		DatabaseWriterURL: v.GetString("database_writer_url"),
		ListenAddr:        v.GetString("listen_addr"),
		LogLevel:          v.GetString("log_level"),
		LogFormat:         v.GetString("log_format"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the required settings are present.
func (c *Config) Validate() error {
	if c.BrokerAddr == "" {
		return fmt.Errorf("FASTTQ_BROKER_ADDR is required")
	}
	if c.DatabaseReaderURL == "" {
		return fmt.Errorf("FASTTQ_DATABASE_READER_URL is required")
	}
	if c.DatabaseWriterURL == "" {
		return fmt.Errorf("FASTTQ_DATABASE_WRITER_URL is required")
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q, expected console or json", c.LogFormat)
	}
	return nil
}
