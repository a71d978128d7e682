// Package config loads and validates the daemon configuration.
package config

import "fmt"

// Config is the root daemon configuration.
type Config struct {
	ServerName string          `yaml:"serverName,omitempty"`
	Logging    LoggingConfig   `yaml:"logging,omitempty"`
	Modules    ModulesConfig   `yaml:"modules,omitempty"`
	ChannelDB  ChannelDBConfig `yaml:"channeldb,omitempty"`
	OperFeed   OperFeedConfig  `yaml:"operfeed,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
}

// ModulesConfig selects which modules load at startup and on rehash.
type ModulesConfig struct {
	Enabled []string `yaml:"enabled,omitempty"`
}

// ChannelDBConfig configures the persistent channel database module.
type ChannelDBConfig struct {
	Database  string `yaml:"database,omitempty"`
	SaveEvery int    `yaml:"saveEvery,omitempty"` // seconds
}

// OperFeedConfig configures the operator notice websocket feed.
type OperFeedConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Listen  string `yaml:"listen,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		ServerName: "irc.localhost",
		Logging: LoggingConfig{
			Level: "info",
		},
		Modules: ModulesConfig{
			Enabled: []string{"msgid", "account-tag", "channeldb"},
		},
		ChannelDB: ChannelDBConfig{
			Database:  "data/channel.db",
			SaveEvery: 300,
		},
		OperFeed: OperFeedConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8600",
			Path:    "/operfeed",
		},
	}
}
