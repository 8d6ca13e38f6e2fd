package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/eqep-encoder/internal/eqep"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eqep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	ch, err := cfg.ChannelID()
	require.NoError(t, err)
	assert.Equal(t, eqep.EQEP0, ch)
	assert.Equal(t, 100*time.Millisecond, cfg.Poll)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
channel: eqep2b
mode: relative
frequency: 50
poll: 20ms
deadband: 4
heartbeat: 1m
mqtt:
  broker: tcp://192.168.7.1:1883
  topic_prefix: lab/spindle
index:
  enabled: true
  line: 17
  zero_on_index: true
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	ch, _ := cfg.ChannelID()
	assert.Equal(t, eqep.EQEP2b, ch)
	assert.Equal(t, "relative", cfg.Mode)
	assert.Equal(t, 50.0, cfg.Frequency)
	assert.Equal(t, 20*time.Millisecond, cfg.Poll)
	assert.Equal(t, int64(4), cfg.Deadband)
	assert.Equal(t, time.Minute, cfg.Heartbeat)
	assert.Equal(t, "tcp://192.168.7.1:1883", cfg.MQTT.Broker)
	assert.Equal(t, "lab/spindle", cfg.MQTT.TopicPrefix)
	assert.True(t, cfg.Index.Enabled)
	assert.Equal(t, 17, cfg.Index.Line)
	assert.True(t, cfg.Index.ZeroOnIndex)

	// Untouched keys keep their defaults.
	assert.Equal(t, "eqep-encoder", cfg.MQTT.ClientID)
	assert.Equal(t, eqep.DefaultConfigPinPath, cfg.ConfigPin)
	assert.True(t, cfg.Index.ActiveLow)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	_, err := Load(writeConfig(t, "poll: [not a duration\n"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("EQEP_CHANNEL", "1")
	t.Setenv("EQEP_MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("EQEP_SYSFS_ROOT", "/tmp/fake")
	t.Setenv("EQEP_LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, "channel: eqep2\n"))
	require.NoError(t, err)

	ch, _ := cfg.ChannelID()
	assert.Equal(t, eqep.EQEP1, ch)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "/tmp/fake", cfg.SysfsRoot)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad channel", func(c *Config) { c.Channel = "eqep9" }, "channel"},
		{"bad mode", func(c *Config) { c.Mode = "sideways" }, "mode"},
		{"negative frequency", func(c *Config) { c.Frequency = -1 }, "frequency"},
		{"frequency too high", func(c *Config) { c.Frequency = 5e9 }, "frequency"},
		{"frequency too low", func(c *Config) { c.Frequency = 1e-10 }, "frequency"},
		{"zero poll", func(c *Config) { c.Poll = 0 }, "poll"},
		{"negative deadband", func(c *Config) { c.Deadband = -1 }, "deadband"},
		{"negative heartbeat", func(c *Config) { c.Heartbeat = -time.Second }, "heartbeat"},
		{"no broker", func(c *Config) { c.MQTT.Broker = "" }, "mqtt.broker"},
		{"bad level", func(c *Config) { c.Logging.Level = "chatty" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
