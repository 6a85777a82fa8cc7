// Package config manages application configuration from config.yaml,
// environment variables, and default values.
package config

import (
	"time"
)

// Config defines the application configuration. Values can be set via
// config.yaml or environment variables prefixed with REPLYDESK_
// (e.g. REPLYDESK_SERVER_ADDR). The Meta access token additionally honors
// the plain META_ACCESS_TOKEN variable.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Meta      MetaConfig      `mapstructure:"meta"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LoggerConfig contains logging settings.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"             validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    validate:"required,min=1s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,min=1s"`
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// MetaConfig contains Meta Graph API settings. AccessToken is the fallback
// token used when a respond request does not carry its own; when both are
// empty dispatches are forced into dry-run mode.
type MetaConfig struct {
	BaseURL        string        `mapstructure:"base_url"        validate:"required,url"`
	APIVersion     string        `mapstructure:"api_version"     validate:"required"`
	AccessToken    string        `mapstructure:"access_token"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"required,min=1s,max=5m"`
}

// SchedulerConfig contains the scheduled task definitions keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig defines one scheduled task entry.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}
