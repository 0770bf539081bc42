package bridge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xi784/ha-blnet/internal/entity"
)

const testConfigTOML = `
listen-port = 9090
poll-interval = "30s"
driver = "mqtt"

[mqtt]
server = "mqtt://broker:1883"
topic-prefix = "heating/blnet"

[hass]
enabled = true
node-id = "cellar"

[[outputs]]
id = "3"
name = "Pump"

[[outputs]]
id = "7"
name = "Heater"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blnet.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func loadConfig(t *testing.T, args ...string) (*Config, error) {
	t.Helper()

	cfg := NewConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.AddFlags(fs)
	require.NoError(t, fs.Parse(args))
	return cfg, cfg.LoadConfigWithFlagSet(fs)
}

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, DriverCache, cfg.Driver)
	assert.Equal(t, 8080, cfg.ListenPort)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.True(t, strings.HasPrefix(cfg.MQTT.ClientID, "blnet-bridge-"))
	assert.NotEqual(t, cfg.MQTT.ClientID, NewConfig().MQTT.ClientID)
	assert.Equal(t, "homeassistant", cfg.Hass.DiscoveryPrefix)
	assert.False(t, cfg.NeedsMQTT())
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, testConfigTOML)

	cfg, err := loadConfig(t, "--config", path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.ListenPort)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, DriverMQTT, cfg.Driver)
	assert.Equal(t, "mqtt://broker:1883", cfg.MQTT.Server)
	assert.Equal(t, "heating/blnet", cfg.MQTT.TopicPrefix)
	assert.True(t, strings.HasPrefix(cfg.MQTT.ClientID, "blnet-bridge-"))
	assert.True(t, cfg.Hass.Enabled)
	assert.Equal(t, "cellar", cfg.Hass.NodeID)
	assert.Equal(t, "homeassistant", cfg.Hass.DiscoveryPrefix)
	assert.Equal(t, []entity.Discovery{
		{ChannelID: "3", DeviceLabel: "Pump"},
		{ChannelID: "7", DeviceLabel: "Heater"},
	}, cfg.Outputs)
	assert.Equal(t, path, cfg.ConfigFile)
	assert.True(t, cfg.NeedsMQTT())
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, testConfigTOML)

	cfg, err := loadConfig(t, "--config", path, "--listen-port", "7070", "--hass.node-id", "attic", "-i", "5s")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.ListenPort)
	assert.Equal(t, "attic", cfg.Hass.NodeID)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, "heating/blnet", cfg.MQTT.TopicPrefix)
}

func TestLoadConfigWithoutFile(t *testing.T) {
	cfg, err := loadConfig(t, "--driver", "cache")
	require.NoError(t, err)

	assert.Equal(t, DriverCache, cfg.Driver)
	assert.Empty(t, cfg.Outputs)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := loadConfig(t, "--config", filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{name: "defaults", modify: func(c *Config) {}},
		{name: "unknown driver", modify: func(c *Config) { c.Driver = "serial" }, wantErr: ErrInvalidDriver},
		{name: "zero interval", modify: func(c *Config) { c.PollInterval = 0 }, wantErr: ErrInvalidConfig},
		{name: "bad port", modify: func(c *Config) { c.ListenPort = 70000 }, wantErr: ErrInvalidConfig},
		{
			name: "bad mqtt url",
			modify: func(c *Config) {
				c.Driver = DriverMQTT
				c.MQTT.Server = "http://broker"
			},
			wantErr: ErrInvalidConfig,
		},
		{
			name: "hass needs client id",
			modify: func(c *Config) {
				c.Hass.Enabled = true
				c.MQTT.ClientID = ""
			},
			wantErr: ErrInvalidConfig,
		},
		{
			name:   "bad mqtt url unused",
			modify: func(c *Config) { c.MQTT.Server = "http://broker" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
