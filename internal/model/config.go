package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override (e.g. TRACKER_HTTP_ADDR).
const EnvPrefix = "TRACKER"

// DatabaseConfig locates the SQLite entity store.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// HTTPConfig holds settings for the API server.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`

	// AllowOrigins feeds the CORS middleware.
	AllowOrigins []string `mapstructure:"allow_origins" yaml:"allow_origins"`
}

// AuthConfig selects how bearer tokens are verified.
type AuthConfig struct {
	// Mode is "hs256" (shared secret) or "jwks" (RS256 keys from Domain).
	Mode     string `mapstructure:"mode" yaml:"mode"`
	Secret   string `mapstructure:"secret" yaml:"secret"`
	Audience string `mapstructure:"audience" yaml:"audience"`
	Domain   string `mapstructure:"domain" yaml:"domain"`

	// TokenTTLMin is the lifetime of locally issued tokens.
	TokenTTLMin int `mapstructure:"token_ttl_min" yaml:"token_ttl_min"`
}

// RedisConfig enables the cross-instance change feed when URL is set.
type RedisConfig struct {
	URL     string `mapstructure:"url" yaml:"url"`
	Channel string `mapstructure:"channel" yaml:"channel"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// DisplayConfig holds terminal board preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
	Auth     AuthConfig     `mapstructure:"auth" yaml:"auth"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/company-tasks/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "company-tasks", "config.yaml")
}

// DefaultDatabasePath returns the default SQLite file location next to the config.
func DefaultDatabasePath() string {
	return filepath.Join(filepath.Dir(DefaultConfigPath()), "tasks.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Database: DatabaseConfig{Path: DefaultDatabasePath()},
		HTTP: HTTPConfig{
			Addr:         ":8080",
			AllowOrigins: []string{"*"},
		},
		Auth: AuthConfig{
			Mode:        "hs256",
			TokenTTLMin: 12 * 60,
		},
		Redis: RedisConfig{Channel: "tasks-changes"},
		Log:   LogConfig{Level: "info"},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

// NewViper returns a Viper instance with every default registered and
// environment overrides enabled, so flags can be bound before loading.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	d := defaultAppConfig()
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.allow_origins", d.HTTP.AllowOrigins)
	v.SetDefault("auth.mode", d.Auth.Mode)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.domain", "")
	v.SetDefault("auth.token_ttl_min", d.Auth.TokenTTLMin)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.channel", d.Redis.Channel)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("display.theme", d.Display.Theme)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads configuration from the given YAML file path using v.
// If the file does not exist, defaults and environment overrides still apply.
func LoadConfig(v *viper.Viper, path string) (*AppConfig, error) {
	if v == nil {
		v = NewViper()
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.Auth.Mode = strings.ToLower(strings.TrimSpace(cfg.Auth.Mode))
	switch cfg.Auth.Mode {
	case "hs256", "jwks":
	default:
		return nil, fmt.Errorf("unsupported auth.mode %q", cfg.Auth.Mode)
	}
	if cfg.Auth.TokenTTLMin <= 0 {
		cfg.Auth.TokenTTLMin = defaultAppConfig().Auth.TokenTTLMin
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed. The signing secret is never written.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	auth := cfg.Auth
	auth.Secret = ""

	v.Set("database", cfg.Database)
	v.Set("http", cfg.HTTP)
	v.Set("auth", auth)
	v.Set("redis", cfg.Redis)
	v.Set("log", cfg.Log)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
