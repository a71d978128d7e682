package config

import (
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// Load reads the config file and returns a merged Config. A missing file
// produces defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	cfg.ChannelDB.Database = expandEnvVars(cfg.ChannelDB.Database)
	return cfg, nil
}

// applyDefaults fills fields the file left empty.
func applyDefaults(cfg *Config) {
	def := Defaults()
	if cfg.ServerName == "" {
		cfg.ServerName = def.ServerName
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Modules.Enabled == nil {
		cfg.Modules.Enabled = def.Modules.Enabled
	}
	if cfg.ChannelDB.Database == "" {
		cfg.ChannelDB.Database = def.ChannelDB.Database
	}
	if cfg.ChannelDB.SaveEvery == 0 {
		cfg.ChannelDB.SaveEvery = def.ChannelDB.SaveEvery
	}
	if cfg.OperFeed.Listen == "" {
		cfg.OperFeed.Listen = def.OperFeed.Listen
	}
	if cfg.OperFeed.Path == "" {
		cfg.OperFeed.Path = def.OperFeed.Path
	}
}
