package device

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigName is the base name of the config file searched for.
	ConfigName = "ddcheck-config"

	// EnvPrefix is the prefix for environment variables, e.g. DDCHECK_OUTPUT_FORMAT.
	EnvPrefix = "DDCHECK"
)

// CheckConfig holds the settings that are not exposed as command-line flags
type CheckConfig struct {
	OutputFormat    string `mapstructure:"output_format"`
	Verbose         bool   `mapstructure:"verbose"`
	Debug           bool   `mapstructure:"debug"`
	LogFormat       string `mapstructure:"log_format"`
	LogFile         string `mapstructure:"log_file"`
	PreferJoliet    bool   `mapstructure:"prefer_joliet"`
	WalkConcurrency int    `mapstructure:"walk_concurrency"`
	MaxMapfileSize  int64  `mapstructure:"max_mapfile_size"`
}

// LoadCheckConfig loads configuration using Viper. Extra search paths are
// tried before the standard locations.
func LoadCheckConfig(searchPaths ...string) (*CheckConfig, error) {
	v := viper.New()
	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.ddcheck")
	v.AddConfigPath("/etc/ddcheck")

	// Set defaults
	v.SetDefault("output_format", "table")
	v.SetDefault("verbose", false)
	v.SetDefault("debug", false)
	v.SetDefault("log_format", "human")
	v.SetDefault("log_file", "")
	v.SetDefault("prefer_joliet", true)
	v.SetDefault("walk_concurrency", 4)
	v.SetDefault("max_mapfile_size", 64<<20)

	// Allow environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	var config CheckConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.WalkConcurrency < 1 {
		config.WalkConcurrency = 1
	}
	return &config, nil
}
