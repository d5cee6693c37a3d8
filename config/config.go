// Package config loads settings from an optional YAML file, TEXTILE_*
// environment variables and built-in defaults, in that order of
// precedence (environment wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TEXTILE_SERVER_PORT.
const EnvPrefix = "TEXTILE"

// DefaultManifestURL is where releases publish their version manifest.
const DefaultManifestURL = "https://raw.githubusercontent.com/andyyuzy-76/textile-accounting/main/version.json"

// Default ledger locations per backend.
const (
	DefaultJSONPath   = "~/.accounting-tool/records.json"
	DefaultSQLitePath = "~/.accounting-tool/records.db"
)

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LedgerConfig struct {
	// Backend is json, sqlite or memory.
	Backend    string `mapstructure:"backend"`
	Path       string `mapstructure:"path"`
	StrictLoad bool   `mapstructure:"strict_load"`
}

type ReceiptConfig struct {
	ShopName    string `mapstructure:"shop_name"`
	ShopAddress string `mapstructure:"shop_address"`
	ShopPhone   string `mapstructure:"shop_phone"`
	Footer      string `mapstructure:"footer"`
	Compact     bool   `mapstructure:"compact"`
	Width       int    `mapstructure:"width"`
}

type UpdatesConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	URL            string        `mapstructure:"url"`
	CurrentVersion string        `mapstructure:"current_version"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Receipt ReceiptConfig `mapstructure:"receipt"`
	Updates UpdatesConfig `mapstructure:"updates"`
	Log     LogConfig     `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*", "http://127.0.0.1:*"})

	v.SetDefault("ledger.backend", "json")
	v.SetDefault("ledger.path", DefaultJSONPath)
	v.SetDefault("ledger.strict_load", false)

	v.SetDefault("receipt.shop_name", "家纺四件套")
	v.SetDefault("receipt.shop_address", "")
	v.SetDefault("receipt.shop_phone", "")
	v.SetDefault("receipt.footer", "谢谢惠顾，欢迎下次光临！")
	v.SetDefault("receipt.compact", true)
	v.SetDefault("receipt.width", 32)

	v.SetDefault("updates.enabled", true)
	v.SetDefault("updates.url", DefaultManifestURL)
	v.SetDefault("updates.current_version", "1.0.0")
	v.SetDefault("updates.timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration. An empty path looks for config.yaml in the
// working directory and tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	// environment overrides, e.g. TEXTILE_LEDGER_PATH=/data/records.json
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	c.Ledger.Path = ExpandHome(c.Ledger.Path)
	c.UseBackend(c.Ledger.Backend)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// UseBackend selects the ledger backend. A path still at the JSON default
// moves to the SQLite default when switching to sqlite.
func (c *Config) UseBackend(backend string) {
	c.Ledger.Backend = backend
	if backend == "sqlite" && c.Ledger.Path == ExpandHome(DefaultJSONPath) {
		c.Ledger.Path = ExpandHome(DefaultSQLitePath)
	}
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Ledger.Backend {
	case "json", "sqlite", "memory":
	default:
		return fmt.Errorf("ledger.backend %q: want json, sqlite or memory", c.Ledger.Backend)
	}
	if c.Ledger.Backend != "memory" && c.Ledger.Path == "" {
		return errors.New("ledger.path is required")
	}
	if c.Ledger.Backend == "sqlite" && strings.EqualFold(filepath.Ext(c.Ledger.Path), ".json") {
		return fmt.Errorf("ledger.path %q is a JSON ledger; the sqlite backend needs a database file such as %s", c.Ledger.Path, DefaultSQLitePath)
	}
	if c.Receipt.Width < 16 {
		return fmt.Errorf("receipt.width %d is too narrow", c.Receipt.Width)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q: want text or json", c.Log.Format)
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
