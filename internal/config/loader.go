package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// LoadConfig loads and validates configuration from:
// 1. Default values
// 2. The config file at configPath (optional)
// 3. REPLYDESK_* environment variables (plus META_ACCESS_TOKEN)
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("REPLYDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The fallback token variable is part of the deployment contract and is
	// not namespaced under the app prefix.
	if err := v.BindEnv("meta.access_token", "META_ACCESS_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind access token env var: %w", err)
	}

	// Missing config file is fine, defaults and env cover everything.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %q: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", DefaultLogJSON)

	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.read_timeout", DefaultServerReadTimeout)
	v.SetDefault("server.write_timeout", DefaultServerWriteTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultServerShutdownTimeout)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("meta.base_url", DefaultMetaBaseURL)
	v.SetDefault("meta.api_version", DefaultMetaAPIVersion)
	v.SetDefault("meta.request_timeout", DefaultMetaRequestTimeout)

	v.SetDefault("scheduler.tasks", map[string]TaskConfig{
		"db_maintenance": {Enabled: true, Schedule: DefaultMaintenanceSchedule},
	})
}
