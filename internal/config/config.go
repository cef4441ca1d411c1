// Package config loads the Syncer's CLI configuration: connection DSNs,
// the analyze toggle, and the log level, from a TOML file with environment
// variable and flag overrides, the way untoldecay-BeadsLog's
// internal/config wraps spf13/viper for its own CLI.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved, fully-overridden configuration for one run.
type Config struct {
	// DSN is the database/sql data source name the Driver connects with.
	DSN string
	// FullSync toggles whether a sync run performs C2's sampling stages
	// (no-preview, category/refresh, JSON) and the row-count refresh. When
	// false, schema reconciliation, special-type inference, the driver
	// hook, the URL marker and nested-field recursion still run.
	FullSync bool
	// LogLevel is one of zap's level names ("debug", "info", "error", ...).
	LogLevel string
}

// Load reads configPath (a TOML file; empty path skips reading one) and
// layers environment variables (prefixed SYNCER_) and defaults on top,
// following viper's standard precedence: flag > env > config file > default.
// Flag values are applied by the caller afterward via Config's exported
// fields, the same division of labor cmd/smf/main.go uses between cobra
// flags and the values they feed into a runX function.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	v.SetDefault("dsn", "")
	v.SetDefault("full_sync", true)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("SYNCER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	return &Config{
		DSN:      v.GetString("dsn"),
		FullSync: v.GetBool("full_sync"),
		LogLevel: v.GetString("log_level"),
	}, nil
}

// ApplyFlagOverrides overwrites c's fields with any non-zero values passed
// explicitly on the command line, giving flags the final say over the
// config file and environment.
func (c *Config) ApplyFlagOverrides(dsn string, fullSyncSet bool, fullSync bool, logLevel string) {
	if dsn != "" {
		c.DSN = dsn
	}
	if fullSyncSet {
		c.FullSync = fullSync
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}
