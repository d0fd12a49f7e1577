package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Gateway         GatewayConfig     `yaml:"gateway"`
	MQTT            MQTTConfig        `yaml:"mqtt"`
	Bridge          BridgeConfig      `yaml:"bridge"`
	Database        DatabaseConfig    `yaml:"database"`
	Log             LogConfig         `yaml:"log"`
	Healthcheck     HealthcheckConfig `yaml:"healthcheck"`
	EventBus        EventBusConfig    `yaml:"eventbus"`
	ShutdownTimeout Duration          `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// GatewayConfig contains Tradfri gateway connection settings
type GatewayConfig struct {
	Host             string   `yaml:"host"`              // Gateway address; empty = discover via mDNS
	Port             int      `yaml:"port"`              // CoAP/DTLS port (default: 5684)
	SecurityCode     string   `yaml:"security_code"`     // Code printed under the gateway, used once to provision a PSK
	Identity         string   `yaml:"identity"`          // Pre-provisioned DTLS identity (optional)
	PSK              string   `yaml:"psk"`               // Pre-provisioned DTLS key (optional)
	Timeout          Duration `yaml:"timeout"`           // Per-request CoAP timeout
	Groups           bool     `yaml:"groups"`            // Bridge gateway groups as entities
	RescanInterval   Duration `yaml:"rescan_interval"`   // Device list rescan period (0 = no rescan)
	DiscoveryTimeout Duration `yaml:"discovery_timeout"` // mDNS browse timeout when host is unset

	// Observation reconnect settings
	MinRetryBackoff Duration `yaml:"min_retry_backoff"` // Minimum backoff between re-subscriptions (default: 1s)
	MaxRetryBackoff Duration `yaml:"max_retry_backoff"` // Maximum backoff between re-subscriptions (default: 2m)
	RetryMultiplier float64  `yaml:"retry_multiplier"`  // Backoff multiplier (default: 2.0)
	MaxReconnects   int      `yaml:"max_reconnects"`    // Max re-subscription attempts, 0 = infinite (default: 0)
}

// MQTTConfig contains MQTT broker connection settings
type MQTTConfig struct {
	Broker   string `yaml:"broker"` // e.g. tcp://127.0.0.1:1883
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// BridgeConfig contains the Home Assistant MQTT bridge settings
type BridgeConfig struct {
	BaseTopic        string   `yaml:"base_topic"`        // Root of state/set/availability topics (default: tradfri)
	DiscoveryPrefix  string   `yaml:"discovery_prefix"`  // Home Assistant discovery prefix (default: homeassistant)
	CoalesceInterval Duration `yaml:"coalesce_interval"` // Fold rapid updates into one publish (0 = publish immediately)
	CommandTimeout   Duration `yaml:"command_timeout"`   // Deadline for commands triggered from set topics
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	JSON   bool   `yaml:"json"`
	Colors bool   `yaml:"colors"`
}

// GetLevel returns the configured level with default
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

// HealthcheckConfig contains health check server settings
type HealthcheckConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// GetHost returns the host with default
func (c *HealthcheckConfig) GetHost() string {
	if c.Host == "" {
		return "0.0.0.0"
	}
	return c.Host
}

// GetPort returns the port with default
func (c *HealthcheckConfig) GetPort() int {
	if c.Port == 0 {
		return 9090
	}
	return c.Port
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 4)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 4
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 100
	}
	return c.QueueSize
}

// GetShutdownTimeout returns the shutdown timeout with default
func (c *Config) GetShutdownTimeout() time.Duration {
	if c.ShutdownTimeout == 0 {
		return 5 * time.Second
	}
	return c.ShutdownTimeout.Duration()
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./tradfrid.sqlite"
	}

	// Gateway defaults
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 5684
	}
	if cfg.Gateway.Timeout == 0 {
		cfg.Gateway.Timeout = Duration(10 * time.Second)
	}
	if cfg.Gateway.RescanInterval == 0 {
		cfg.Gateway.RescanInterval = Duration(10 * time.Minute)
	}
	if cfg.Gateway.DiscoveryTimeout == 0 {
		cfg.Gateway.DiscoveryTimeout = Duration(30 * time.Second)
	}
	if cfg.Gateway.MinRetryBackoff == 0 {
		cfg.Gateway.MinRetryBackoff = Duration(1 * time.Second)
	}
	if cfg.Gateway.MaxRetryBackoff == 0 {
		cfg.Gateway.MaxRetryBackoff = Duration(2 * time.Minute)
	}
	if cfg.Gateway.RetryMultiplier == 0 {
		cfg.Gateway.RetryMultiplier = 2.0
	}
	// MaxReconnects defaults to 0 (infinite), no need to set

	// MQTT defaults
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "tradfrid"
	}

	// Bridge defaults - coalescing is OFF by default (publish every update)
	if cfg.Bridge.BaseTopic == "" {
		cfg.Bridge.BaseTopic = "tradfri"
	}
	if cfg.Bridge.DiscoveryPrefix == "" {
		cfg.Bridge.DiscoveryPrefix = "homeassistant"
	}
	if cfg.Bridge.CommandTimeout == 0 {
		cfg.Bridge.CommandTimeout = Duration(10 * time.Second)
	}

	// Healthcheck defaults
	if cfg.Healthcheck.Port == 0 {
		cfg.Healthcheck.Port = 9090
	}
	if cfg.Healthcheck.Host == "" {
		cfg.Healthcheck.Host = "0.0.0.0"
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate checks settings that would otherwise fail with obscure errors later
func (c *Config) validate() error {
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if c.Gateway.RetryMultiplier < 1.0 {
		return fmt.Errorf("gateway.retry_multiplier must be >= 1.0, got %v", c.Gateway.RetryMultiplier)
	}
	if (c.Gateway.Identity == "") != (c.Gateway.PSK == "") {
		return fmt.Errorf("gateway.identity and gateway.psk must be set together")
	}
	return nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}

// ExpandEnvString expands a single string with environment variables
func ExpandEnvString(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return expandEnvVars(s)
	}
	return s
}
