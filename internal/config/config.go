// Package config provides Viper-based configuration loading for the KNW actor server.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides: KNW_TELNET_PORT sets telnet.port.
const EnvPrefix = "KNW"

var (
	sslModes   = []string{"disable", "require", "verify-ca", "verify-full"}
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"json", "console"}
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the postgres:// connection URL.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// TelnetConfig holds Telnet acceptor settings.
type TelnetConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// ReadTimeout bounds each read; an idle client is dropped after it.
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// MaxConnections caps concurrent clients. 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections"`
}

// Addr returns the "host:port" listen address.
func (t TelnetConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Format is json or console.
	Format string `mapstructure:"format"`
}

// ServerConfig holds process lifecycle settings.
type ServerConfig struct {
	// ShutdownTimeout bounds how long services get to stop after a signal.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ContentConfig locates the static rules content loaded at startup.
type ContentConfig struct {
	// Ruleset is the YAML file overriding the built-in ruleset. Empty uses the defaults.
	Ruleset string `mapstructure:"ruleset"`
	// StatusesDir holds one YAML file per status effect.
	StatusesDir string `mapstructure:"statuses_dir"`
	// ScriptsDir holds Lua hook scripts. Empty disables scripting.
	ScriptsDir string `mapstructure:"scripts_dir"`
	// Locale selects the message catalog used for chat and notifications.
	Locale string `mapstructure:"locale"`
	// ScriptInstructionLimit caps Lua opcodes per hook call; 0 uses the scripting default.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Telnet   TelnetConfig   `mapstructure:"telnet"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`
	Content  ContentConfig  `mapstructure:"content"`
}

// problems collects every violation so one run reports them all.
type problems []string

func (p *problems) require(ok bool, format string, args ...any) {
	if !ok {
		*p = append(*p, fmt.Sprintf(format, args...))
	}
}

func (p *problems) oneOf(key, value string, allowed []string) {
	p.require(slices.Contains(allowed, value),
		"%s must be one of [%s], got %q", key, strings.Join(allowed, ", "), value)
}

func (p *problems) port(key string, port int) {
	p.require(port >= 1 && port <= 65535, "%s must be 1-65535, got %d", key, port)
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var p problems

	d := c.Database
	p.require(d.Host != "", "database.host must not be empty")
	p.port("database.port", d.Port)
	p.require(d.User != "", "database.user must not be empty")
	p.require(d.Name != "", "database.name must not be empty")
	p.oneOf("database.sslmode", d.SSLMode, sslModes)
	p.require(d.MaxConns >= 1, "database.max_conns must be >= 1, got %d", d.MaxConns)
	p.require(d.MinConns >= 0, "database.min_conns must be >= 0, got %d", d.MinConns)
	p.require(d.MinConns <= d.MaxConns, "database.min_conns must not exceed database.max_conns")

	t := c.Telnet
	p.port("telnet.port", t.Port)
	p.require(t.ReadTimeout >= 0, "telnet.read_timeout must not be negative")
	p.require(t.WriteTimeout >= 0, "telnet.write_timeout must not be negative")
	p.require(t.MaxConnections >= 0, "telnet.max_connections must be >= 0, got %d", t.MaxConnections)

	p.oneOf("logging.level", c.Logging.Level, logLevels)
	p.oneOf("logging.format", c.Logging.Format, logFormats)

	p.require(c.Server.ShutdownTimeout > 0, "server.shutdown_timeout must be positive")

	p.require(c.Content.StatusesDir != "", "content.statuses_dir must not be empty")
	p.require(c.Content.Locale != "", "content.locale must not be empty")
	p.require(c.Content.ScriptInstructionLimit >= 0,
		"content.script_instruction_limit must be >= 0, got %d", c.Content.ScriptInstructionLimit)

	if len(p) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(p, "; "))
	}
	return nil
}

// Load reads the YAML file at path, applies KNW_ environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	v := NewViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return LoadFromViper(v)
}

// NewViper returns a Viper instance carrying the defaults and the KNW_
// environment binding. Commands that bind flags start from it.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// LoadFromViper decodes and validates an already-configured Viper instance.
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

var defaults = map[string]any{
	"database.host":              "localhost",
	"database.port":              5432,
	"database.user":              "knw",
	"database.password":          "knw",
	"database.name":              "knw",
	"database.sslmode":           "disable",
	"database.max_conns":         10,
	"database.min_conns":         2,
	"database.max_conn_lifetime": "1h",

	"telnet.host":            "0.0.0.0",
	"telnet.port":            4000,
	"telnet.read_timeout":    "30m",
	"telnet.write_timeout":   "30s",
	"telnet.max_connections": 0,

	"logging.level":  "info",
	"logging.format": "json",

	"server.shutdown_timeout": "10s",

	"content.ruleset":                  "",
	"content.statuses_dir":             "content/statuses",
	"content.scripts_dir":              "content/scripts",
	"content.locale":                   "en-US",
	"content.script_instruction_limit": 0,
}
