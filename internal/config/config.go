// Package config provides Viper-based configuration loading for the
// chat server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/chatserver/internal/proto"
)

// ServerConfig holds the TCP listener settings.
type ServerConfig struct {
	// Host is the bind address for the TCP listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the listener.
	Port int `mapstructure:"port"`
	// ReadTimeout is the per-read deadline for client connections.
	// Zero disables it.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-write deadline for client connections.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout disconnects clients silent for this long. Zero
	// disables idle reaping.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// PingInterval is how often a keep-alive system line is sent to
	// connected clients. Zero disables pings.
	PingInterval time.Duration `mapstructure:"ping_interval"`
	// AnnounceJoins toggles the "* user joined/left" notices.
	AnnounceJoins bool `mapstructure:"announce_joins"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LimitsConfig holds the protocol sizing constants.
type LimitsConfig struct {
	// NameLen is the nickname capacity (longest name is NameLen-1).
	NameLen int `mapstructure:"name_len"`
	// MaxMessageLen is the message payload capacity.
	MaxMessageLen int `mapstructure:"max_message_len"`
	// BufSize is the socket I/O buffer size.
	BufSize int `mapstructure:"buf_size"`
	// MaxClients caps concurrent connections.
	MaxClients int `mapstructure:"max_clients"`
}

// Proto converts the configured limits into the protocol's Limits value.
func (l LimitsConfig) Proto() proto.Limits {
	return proto.Limits{
		NameLen:       l.NameLen,
		MaxMessageLen: l.MaxMessageLen,
		BufSize:       l.BufSize,
		MaxClients:    l.MaxClients,
	}
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// MotdConfig holds the optional message-of-the-day banner settings.
type MotdConfig struct {
	// Path is a YAML banner file; empty uses the built-in greeting.
	Path string `mapstructure:"path"`
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Limits  LimitsConfig  `mapstructure:"limits"`
	Logging LoggingConfig `mapstructure:"logging"`
	Motd    MotdConfig    `mapstructure:"motd"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error
// describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.Limits.Proto().Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", s.Port))
	}
	if s.ReadTimeout < 0 {
		errs = append(errs, "server.read_timeout must not be negative")
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, "server.write_timeout must not be negative")
	}
	if s.IdleTimeout < 0 {
		errs = append(errs, "server.idle_timeout must not be negative")
	}
	if s.PingInterval < 0 {
		errs = append(errs, "server.ping_interval must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies
// environment variable overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with CHAT_ prefix
	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5555)
	v.SetDefault("server.read_timeout", "0")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "0")
	v.SetDefault("server.ping_interval", "0")
	v.SetDefault("server.announce_joins", true)

	v.SetDefault("limits.name_len", proto.DefaultLimits.NameLen)
	v.SetDefault("limits.max_message_len", proto.DefaultLimits.MaxMessageLen)
	v.SetDefault("limits.buf_size", proto.DefaultLimits.BufSize)
	v.SetDefault("limits.max_clients", proto.DefaultLimits.MaxClients)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("motd.path", "")
}
