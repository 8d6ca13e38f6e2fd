// Package config loads the encoder daemon configuration.
//
// Values come from, in increasing priority: built-in defaults, a YAML file,
// EQEP_* environment variables, and command-line flags (applied by the caller).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/eqep-encoder/internal/eqep"
	"github.com/sweeney/eqep-encoder/internal/gpio"
	"github.com/sweeney/eqep-encoder/internal/mqtt"
)

// Config is the root configuration structure.
type Config struct {
	Channel   string        `yaml:"channel"`
	Mode      string        `yaml:"mode"`      // "absolute", "relative" or empty to leave unchanged
	Frequency float64       `yaml:"frequency"` // Hz, 0 to leave unchanged
	SysfsRoot string        `yaml:"sysfs_root"`
	ConfigPin string        `yaml:"config_pin"`
	Poll      time.Duration `yaml:"poll"`
	Debounce  time.Duration `yaml:"debounce"`
	Deadband  int64         `yaml:"deadband"`
	Heartbeat time.Duration `yaml:"heartbeat"`
	HTTP      string        `yaml:"http"`
	WSBroker  string        `yaml:"ws_broker"`
	MQTT      MQTTConfig    `yaml:"mqtt"`
	Index     IndexConfig   `yaml:"index"`
	Logging   LoggingConfig `yaml:"logging"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// IndexConfig describes the optional index (home) switch.
type IndexConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Chip        string `yaml:"chip"`
	Line        int    `yaml:"line"`
	ActiveLow   bool   `yaml:"active_low"`
	ZeroOnIndex bool   `yaml:"zero_on_index"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Channel:   "eQEP0",
		ConfigPin: eqep.DefaultConfigPinPath,
		Poll:      100 * time.Millisecond,
		Debounce:  50 * time.Millisecond,
		Heartbeat: 15 * time.Minute,
		HTTP:      ":8080",
		WSBroker:  "=broker",
		MQTT: MQTTConfig{
			Broker:      "tcp://localhost:1883",
			ClientID:    "eqep-encoder",
			TopicPrefix: mqtt.DefaultTopicPrefix,
		},
		Index: IndexConfig{
			Chip:      gpio.DefaultChip,
			Line:      gpio.DefaultLine,
			ActiveLow: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides applies EQEP_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EQEP_CHANNEL"); v != "" {
		cfg.Channel = v
	}
	if v := os.Getenv("EQEP_SYSFS_ROOT"); v != "" {
		cfg.SysfsRoot = v
	}
	if v := os.Getenv("EQEP_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("EQEP_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// ChannelID parses the configured channel.
func (c *Config) ChannelID() (eqep.Channel, error) {
	return eqep.ParseChannel(c.Channel)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if _, err := c.ChannelID(); err != nil {
		errs = append(errs, fmt.Sprintf("channel: %v", err))
	}
	if c.Mode != "" {
		if _, err := eqep.ParseMode(c.Mode); err != nil {
			errs = append(errs, "mode must be absolute or relative")
		}
	}
	if c.Frequency < 0 {
		errs = append(errs, "frequency must not be negative")
	} else if c.Frequency > 0 {
		if _, err := eqep.PeriodForFrequency(c.Frequency); err != nil {
			errs = append(errs, fmt.Sprintf("frequency: %v", err))
		}
	}
	if c.Poll <= 0 {
		errs = append(errs, "poll must be positive")
	}
	if c.Debounce < 0 {
		errs = append(errs, "debounce must not be negative")
	}
	if c.Deadband < 0 {
		errs = append(errs, "deadband must not be negative")
	}
	if c.Heartbeat < 0 {
		errs = append(errs, "heartbeat must not be negative")
	}
	if c.MQTT.Broker == "" {
		errs = append(errs, "mqtt.broker is required")
	}
	if c.Index.Enabled && c.Index.Line < 0 {
		errs = append(errs, "index.line must not be negative")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, "logging.level must be debug, info, warn or error")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, "logging.format must be text or json")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
