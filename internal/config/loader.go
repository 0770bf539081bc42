package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ConfigLoader loads a configuration struct with the precedence
// defaults < config file < explicitly set flags.
type ConfigLoader struct {
	configFile string
	defaults   map[string]any
	strictMode bool
}

// NewConfigLoader creates a new ConfigLoader instance.
func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{
		defaults: make(map[string]any),
	}
}

// SetConfigFile sets the configuration file path. An empty path skips
// reading a file.
func (cl *ConfigLoader) SetConfigFile(configFile string) {
	cl.configFile = configFile
}

// SetDefault sets a default value for a configuration key.
func (cl *ConfigLoader) SetDefault(key string, value any) {
	cl.defaults[key] = value
}

// SetDefaults sets multiple default values at once.
func (cl *ConfigLoader) SetDefaults(defaults map[string]any) {
	for key, value := range defaults {
		cl.defaults[key] = value
	}
}

// SetStrictMode enables or disables strict mode. In strict mode, unknown
// configuration keys cause an error.
func (cl *ConfigLoader) SetStrictMode(strict bool) {
	cl.strictMode = strict
}

// LoadConfigWithFlagSet populates config, which must be a pointer to a
// struct, from defaults, the config file and the flags of fs that were set
// on the command line. Flag names are used as keys, so --mqtt.server
// overrides the server key of the [mqtt] table.
func (cl *ConfigLoader) LoadConfigWithFlagSet(config any, fs *pflag.FlagSet) error {
	if err := checkPointer(config); err != nil {
		return err
	}

	v := viper.New()

	for key, value := range cl.defaults {
		v.SetDefault(key, value)
	}

	if cl.configFile != "" {
		v.SetConfigFile(cl.configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("%w %s: %w", ErrConfigFileRead, cl.configFile, err)
		}
	}

	if fs != nil {
		fs.Visit(func(flag *pflag.Flag) {
			if flag.Name == "config" {
				return
			}
			v.Set(flag.Name, flagValue(flag))
		})
	}

	decoderConfig := &mapstructure.DecoderConfig{
		Result:           config,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      cl.strictMode,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}

	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return fmt.Errorf("%w: failed to create decoder: %w", ErrConfigUnmarshal, err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		if cl.configFile != "" {
			return fmt.Errorf("%w: %s: %w", ErrConfigUnmarshal, cl.configFile, err)
		}
		return fmt.Errorf("%w: %w", ErrConfigUnmarshal, err)
	}

	return nil
}

// LoadConfig loads config using flags from pflag.CommandLine.
func (cl *ConfigLoader) LoadConfig(config any) error {
	return cl.LoadConfigWithFlagSet(config, pflag.CommandLine)
}

// flagValue returns the typed value of a flag. Slice flags return their
// elements rather than the "[a b]" string form.
func flagValue(flag *pflag.Flag) any {
	if sliceFlag, ok := flag.Value.(pflag.SliceValue); ok {
		return sliceFlag.GetSlice()
	}

	switch flag.Value.Type() {
	case "bool", "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64",
		"float32", "float64", "duration":
		// WeaklyTypedInput converts these from their string form.
		return flag.Value.String()
	default:
		return strings.TrimSpace(flag.Value.String())
	}
}

func checkPointer(config any) error {
	v := reflect.ValueOf(config)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("%w: got %T", ErrConfigNotPointer, config)
	}
	if v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: got %s", ErrConfigNotStruct, v.Elem().Kind())
	}
	return nil
}
