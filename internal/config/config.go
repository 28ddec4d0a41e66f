// Package config loads service configuration from an optional YAML file with
// environment variable overrides (CARBONFOCUS_ prefix, double underscore as
// the section separator, e.g. CARBONFOCUS_SERVER__ADDR).
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/opencarbon/carbonfocus/internal/logging"
)

const envPrefix = "CARBONFOCUS_"

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Logging  LoggingConfig  `koanf:"logging"`

	// Seed controls whether the embedded starter emission factors are
	// upserted when the server starts.
	Seed bool `koanf:"seed"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type AuthConfig struct {
	// BootstrapAdminPassword is used to create the initial admin user when
	// the users table is empty.
	BootstrapAdminPassword string `koanf:"bootstrap_admin_password"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
	Caller bool   `koanf:"caller"`
}

// Load reads path (when it exists) and applies environment overrides. An
// empty path falls back to "config.yaml" in the working directory.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = "config.yaml"
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	applyDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"server.addr":    ":8080",
		"database.path":  "carbonfocus.db",
		"logging.level":  "info",
		"logging.format": "console",
		"seed":           true,
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}
}

// LoggingSetup converts the logging section into the logger constructor's
// config.
func (c *Config) LoggingSetup() logging.Config {
	lc := logging.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		File:   c.Logging.File,
		Caller: c.Logging.Caller,
	}
	if lc.File != "" {
		lc.Output = "file"
	}
	return lc
}
