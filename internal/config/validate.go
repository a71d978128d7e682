package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// KnownModules lists the built-in modules selectable in modules.enabled.
var KnownModules = []string{"msgid", "account-tag", "channeldb"}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	for _, m := range cfg.Modules.Enabled {
		if !slices.Contains(KnownModules, m) {
			issues = append(issues, ValidationIssue{
				Path:    "modules.enabled",
				Message: fmt.Sprintf("unknown module %q (known: %v)", m, KnownModules),
			})
		}
	}

	if slices.Contains(cfg.Modules.Enabled, "channeldb") {
		if cfg.ChannelDB.Database == "" {
			issues = append(issues, ValidationIssue{
				Path:    "channeldb.database",
				Message: "must not be empty when the channeldb module is enabled",
			})
		}
		if cfg.ChannelDB.SaveEvery < 1 {
			issues = append(issues, ValidationIssue{
				Path:    "channeldb.saveEvery",
				Message: fmt.Sprintf("must be at least 1 second, got %d", cfg.ChannelDB.SaveEvery),
			})
		}
	}

	if cfg.OperFeed.Enabled {
		if cfg.OperFeed.Listen == "" {
			issues = append(issues, ValidationIssue{
				Path:    "operfeed.listen",
				Message: "must not be empty when the feed is enabled",
			})
		}
		if !strings.HasPrefix(cfg.OperFeed.Path, "/") {
			issues = append(issues, ValidationIssue{
				Path:    "operfeed.path",
				Message: fmt.Sprintf("must start with '/', got %q", cfg.OperFeed.Path),
			})
		}
	}

	return issues
}
