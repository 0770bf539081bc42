package blnetctl

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"

	"github.com/xi784/ha-blnet/internal/config"
)

const defaultServerURL = "http://localhost:8080"

// Config holds the blnetctl configuration
type Config struct {
	ServerURL  string `mapstructure:"server-url"`
	ConfigFile string `mapstructure:"config-file"`
}

func getDefaultServerURL() string {
	if url := os.Getenv("BLNET_SERVER_URL"); url != "" {
		return url
	}
	return defaultServerURL
}

func getDefaultConfigFile() string {
	return filepath.Join(xdg.ConfigHome, "blnet", "blnetctl.toml")
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		ServerURL: getDefaultServerURL(),
	}
}

// AddFlags adds command-line flags for all configuration options
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", getDefaultConfigFile(), "Config file to use")
	fs.StringVarP(&c.ServerURL, "server-url", "s", c.ServerURL, "blnet-bridge API URL")
}

// LoadConfigWithFlagSet loads configuration with proper precedence using a custom flag set
func (c *Config) LoadConfigWithFlagSet(fs *pflag.FlagSet) error {
	configFile := c.ConfigFile
	if configFile == getDefaultConfigFile() {
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
		"server-url": getDefaultServerURL(),
	})

	return loader.LoadConfigWithFlagSet(c, fs)
}
