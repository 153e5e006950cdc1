package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".polynote"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for polynote settings.
const envPrefix = "POLYNOTE"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Default session settings.
const (
	DefaultSessionResolver          = ResolverSource
	DefaultSessionImplicitCacheSize = 256
	DefaultSessionPrune             = true
)

// Default observability settings.
const (
	DefaultServiceName        = "polynote"
	DefaultLogLevel           = "info"
	DefaultShutdownTimeoutSec = 10
)

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("session.resolver", DefaultSessionResolver)
	viperCfg.SetDefault("session.implicit_cache_size", DefaultSessionImplicitCacheSize)
	viperCfg.SetDefault("session.prune", DefaultSessionPrune)

	viperCfg.SetDefault("observability.service_name", DefaultServiceName)
	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.otlp_insecure", true)
	viperCfg.SetDefault("observability.log_level", DefaultLogLevel)
	viperCfg.SetDefault("observability.log_json", false)
	viperCfg.SetDefault("observability.metrics_addr", "")
	viperCfg.SetDefault("observability.shutdown_timeout_sec", DefaultShutdownTimeoutSec)
}
