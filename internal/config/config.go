package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all client configuration
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Session SessionConfig `mapstructure:"session"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Report  ReportConfig  `mapstructure:"report"`
	Logger  LoggerConfig  `mapstructure:"logger"`
}

// APIConfig holds ApprovalHub backend settings
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// SessionConfig selects where the session token is kept
type SessionConfig struct {
	Backend string `mapstructure:"backend"` // file or sqlite
	Path    string `mapstructure:"path"`
}

// UploadConfig holds attachment upload limits
type UploadConfig struct {
	MaxSizeMB int    `mapstructure:"max_size_mb"`
	Accept    string `mapstructure:"accept"`
}

// ReportConfig holds report center settings
type ReportConfig struct {
	ExportDir    string `mapstructure:"export_dir"`
	DefaultMonth string `mapstructure:"default_month"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

const (
	SessionBackendFile   = "file"
	SessionBackendSQLite = "sqlite"
)

// flagKeys maps command-line flags to the config keys they override
var flagKeys = map[string]string{
	"base-url":        "api.base_url",
	"timeout":         "api.timeout",
	"session-backend": "session.backend",
	"session-path":    "session.path",
	"export-dir":      "report.export_dir",
	"log-level":       "logger.level",
}

// Load loads configuration from file and environment variables.
// A missing config file is not an error; defaults and env apply.
func Load(configPath string) (*Config, error) {
	return LoadWithFlags(configPath, nil)
}

// LoadWithFlags is Load with command-line overrides. Flags named in
// flagKeys take precedence over env and file when set; flags may be nil.
func LoadWithFlags(configPath string, flags *pflag.FlagSet) (*Config, error) {
	// .env is optional
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)
	bindEnvVars(v)
	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Session.Path = expandHome(cfg.Session.Path)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080/api")
	v.SetDefault("api.timeout", 10*time.Second)
	v.SetDefault("api.user_agent", "approvalctl/1.0")

	v.SetDefault("session.backend", SessionBackendFile)
	v.SetDefault("session.path", "~/.approvalhub/session.json")

	v.SetDefault("upload.max_size_mb", 10)
	v.SetDefault("upload.accept", "image/*,.pdf")

	v.SetDefault("report.export_dir", "exports")
	v.SetDefault("report.default_month", "")

	v.SetDefault("logger.level", "warn")
	v.SetDefault("logger.output_path", "stderr")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.max_size_mb", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age_days", 14)
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("api.base_url", "APPROVALHUB_API_BASE_URL")
	_ = v.BindEnv("api.timeout", "APPROVALHUB_API_TIMEOUT")
	_ = v.BindEnv("session.backend", "APPROVALHUB_SESSION_BACKEND")
	_ = v.BindEnv("session.path", "APPROVALHUB_SESSION_PATH")
	_ = v.BindEnv("upload.max_size_mb", "APPROVALHUB_UPLOAD_MAX_SIZE_MB")
	_ = v.BindEnv("report.export_dir", "APPROVALHUB_EXPORT_DIR")
	_ = v.BindEnv("logger.level", "APPROVALHUB_LOG_LEVEL")
	_ = v.BindEnv("logger.output_path", "APPROVALHUB_LOG_OUTPUT")
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL: %s", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}

	switch c.Session.Backend {
	case SessionBackendFile, SessionBackendSQLite:
	default:
		return fmt.Errorf("session.backend must be %q or %q, got %q",
			SessionBackendFile, SessionBackendSQLite, c.Session.Backend)
	}
	if c.Session.Path == "" {
		return fmt.Errorf("session.path is required")
	}

	if c.Upload.MaxSizeMB <= 0 {
		return fmt.Errorf("upload.max_size_mb must be positive")
	}

	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
