package bridge

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/xi784/ha-blnet/internal/config"
	"github.com/xi784/ha-blnet/internal/entity"
	"github.com/xi784/ha-blnet/internal/mqtt"
)

// Drivers select the Communication implementation. The cache driver is a
// dry run: nothing feeds it data, so outputs stay unknown until their first
// command.
const (
	DriverCache = "cache"
	DriverMQTT  = "mqtt"
)

const (
	defaultListenAddress   = ""
	defaultListenPort      = 8080
	defaultPollInterval    = 10 * time.Second
	defaultMQTTServer      = "mqtt://localhost:1883"
	defaultTopicPrefix     = "blnet"
	defaultDiscoveryPrefix = "homeassistant"
	defaultNodeID          = "blnet"
)

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Server      string `mapstructure:"server"`
	ClientID    string `mapstructure:"client-id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic-prefix"`
}

// HassConfig configures Home Assistant MQTT discovery.
type HassConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	DiscoveryPrefix string `mapstructure:"discovery-prefix"`
	NodeID          string `mapstructure:"node-id"`
	DeviceName      string `mapstructure:"device-name"`
}

// Config holds the blnet-bridge configuration
type Config struct {
	ConfigFile     string             `mapstructure:"config-file"`
	ListenAddress  string             `mapstructure:"listen-address"`
	ListenPort     int                `mapstructure:"listen-port"`
	PollInterval   time.Duration      `mapstructure:"poll-interval"`
	Driver         string             `mapstructure:"driver"`
	CORSOrigins    []string           `mapstructure:"cors-origins"`
	RequestLogging bool               `mapstructure:"request-logging"`
	MQTT           MQTTConfig         `mapstructure:"mqtt"`
	Hass           HassConfig         `mapstructure:"hass"`
	Outputs        []entity.Discovery `mapstructure:"outputs"`
}

func getDefaultConfigFile() string {
	return filepath.Join(xdg.ConfigHome, "blnet", "blnet.toml")
}

func defaultClientID() string {
	return fmt.Sprintf("blnet-bridge-%s", uuid.NewString())
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		ListenAddress: defaultListenAddress,
		ListenPort:    defaultListenPort,
		PollInterval:  defaultPollInterval,
		Driver:        DriverCache,
		MQTT: MQTTConfig{
			Server:      defaultMQTTServer,
			ClientID:    defaultClientID(),
			TopicPrefix: defaultTopicPrefix,
		},
		Hass: HassConfig{
			DiscoveryPrefix: defaultDiscoveryPrefix,
			NodeID:          defaultNodeID,
		},
	}
}

// AddFlags adds command-line flags for all configuration options
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", getDefaultConfigFile(), "Config file to use")
	fs.StringVar(&c.ListenAddress, "listen-address", c.ListenAddress, "Listen address for the HTTP API")
	fs.IntVar(&c.ListenPort, "listen-port", c.ListenPort, "Listen port for the HTTP API")
	fs.DurationVarP(&c.PollInterval, "poll-interval", "i", c.PollInterval, "Interval between entity polls")
	fs.StringVar(&c.Driver, "driver", c.Driver, "BL-NET driver (cache or mqtt)")
	fs.StringSliceVar(&c.CORSOrigins, "cors-origins", c.CORSOrigins, "Origins allowed to call the HTTP API")
	fs.BoolVar(&c.RequestLogging, "request-logging", c.RequestLogging, "Log every HTTP request")
	fs.StringVar(&c.MQTT.Server, "mqtt.server", c.MQTT.Server, "MQTT server URL")
	fs.StringVar(&c.MQTT.ClientID, "mqtt.client-id", c.MQTT.ClientID, "MQTT client id")
	fs.StringVar(&c.MQTT.Username, "mqtt.username", c.MQTT.Username, "MQTT username")
	fs.StringVar(&c.MQTT.Password, "mqtt.password", c.MQTT.Password, "MQTT password")
	fs.StringVar(&c.MQTT.TopicPrefix, "mqtt.topic-prefix", c.MQTT.TopicPrefix, "Topic prefix used by the BL-NET poller")
	fs.BoolVar(&c.Hass.Enabled, "hass.enabled", c.Hass.Enabled, "Publish entities to Home Assistant")
	fs.StringVar(&c.Hass.DiscoveryPrefix, "hass.discovery-prefix", c.Hass.DiscoveryPrefix, "Home Assistant discovery prefix")
	fs.StringVar(&c.Hass.NodeID, "hass.node-id", c.Hass.NodeID, "Home Assistant node id")
}

// LoadConfigWithFlagSet loads configuration with proper precedence using a custom flag set
func (c *Config) LoadConfigWithFlagSet(fs *pflag.FlagSet) error {
	configFile := c.ConfigFile
	if configFile == getDefaultConfigFile() {
		// A missing default config file is fine
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			configFile = ""
		}
	} else if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, configFile)
		}
	}

	loader := config.NewConfigLoader()
	loader.SetConfigFile(configFile)
	loader.SetDefaults(map[string]any{
		"listen-address":        defaultListenAddress,
		"listen-port":           defaultListenPort,
		"poll-interval":         defaultPollInterval,
		"driver":                DriverCache,
		"request-logging":       false,
		"mqtt.server":           defaultMQTTServer,
		"mqtt.client-id":        c.MQTT.ClientID,
		"mqtt.topic-prefix":     defaultTopicPrefix,
		"hass.enabled":          false,
		"hass.discovery-prefix": defaultDiscoveryPrefix,
		"hass.node-id":          defaultNodeID,
	})

	if err := loader.LoadConfigWithFlagSet(c, fs); err != nil {
		return err
	}

	return c.Validate()
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverCache, DriverMQTT:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDriver, c.Driver)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll-interval must be positive, got %s", ErrInvalidConfig, c.PollInterval)
	}

	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return fmt.Errorf("%w: listen-port %d out of range", ErrInvalidConfig, c.ListenPort)
	}

	if c.NeedsMQTT() {
		if err := mqtt.ValidateServerURL(c.MQTT.Server); err != nil {
			return fmt.Errorf("%w: mqtt.server: %w", ErrInvalidConfig, err)
		}
		if c.MQTT.ClientID == "" {
			return fmt.Errorf("%w: mqtt.client-id is required", ErrInvalidConfig)
		}
	}

	return nil
}

// NeedsMQTT reports whether a broker connection is required.
func (c *Config) NeedsMQTT() bool {
	return c.Driver == DriverMQTT || c.Hass.Enabled
}

// GetListenAddress implements httpserver.Config
func (c *Config) GetListenAddress() string {
	return c.ListenAddress
}

// GetListenPort implements httpserver.Config
func (c *Config) GetListenPort() int {
	return c.ListenPort
}
