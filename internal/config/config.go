// Package config loads process configuration from the environment. The
// teacher hardcodes listen address/port/audit path as constants; a
// deployable instance of this engine needs them externalized, in the idiom
// most of the pack's service-shaped repos reach for: a small env-driven
// struct rather than a full configuration framework.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the complete set of process-level settings for cmd/server.
type Config struct {
	// ListenAddress is the TCP bind address for the order-entry transport.
	ListenAddress string `envconfig:"LISTEN_ADDRESS" default:"0.0.0.0"`
	// ListenPort is the TCP bind port for the order-entry transport.
	ListenPort int `envconfig:"LISTEN_PORT" default:"9001"`

	// AuditLogPath is where the audit sink appends its KEY=VALUE lines.
	AuditLogPath string `envconfig:"AUDIT_LOG_PATH" default:"audit.log"`
	// AuditFlushInterval bounds how long an idle audit consumer waits
	// before flushing anyway.
	AuditFlushInterval time.Duration `envconfig:"AUDIT_FLUSH_INTERVAL" default:"500ms"`

	// MetricsAddress is where cmd/server exposes the Prometheus /metrics
	// endpoint.
	MetricsAddress string `envconfig:"METRICS_ADDRESS" default:"0.0.0.0:2112"`
}

// Load reads configuration from the environment, prefixed HFT_EXCHANGE_,
// e.g. HFT_EXCHANGE_LISTEN_PORT.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("hft_exchange", &c); err != nil {
		return Config{}, err
	}
	return c, nil
}
