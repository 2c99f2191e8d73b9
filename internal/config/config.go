// Package config loads minecraftd's daemon configuration from config.toml,
// falling back to built-in defaults for anything missing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/oriku/minecraftd/internal/lock"
)

type Config struct {
	Daemon      DaemonConfig      `mapstructure:"daemon" json:"daemon"`
	Port        PortConfig        `mapstructure:"port" json:"port"`
	ProxyServer ProxyServerConfig `mapstructure:"proxy_server" json:"proxy_server"`
	Logging     LoggingConfig     `mapstructure:"logging" json:"logging"`
}

// DaemonConfig overrides the XDG directory resolution the daemon otherwise
// performs automatically.
type DaemonConfig struct {
	RuntimeDir string `mapstructure:"runtime_dir" json:"runtime_dir"`
	DataDir    string `mapstructure:"data_dir" json:"data_dir"`
}

// PortConfig is the range the port pool allocates child servers' game ports
// and rcon ports from.
type PortConfig struct {
	Min int `mapstructure:"min" json:"min"`
	Max int `mapstructure:"max" json:"max"`
}

type ProxyServerConfig struct {
	BindAddress string `mapstructure:"bind_address" json:"bind_address"`
}

type LoggingConfig struct {
	FilePath   string `mapstructure:"file_path" json:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" json:"max_age_days"`
	Compress   bool   `mapstructure:"compress" json:"compress"`
}

// Load reads config.toml from configPath (if non-empty) and the working
// directory, falling back to defaults for anything missing. A missing file
// is never fatal; it just means every key falls back to its default.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/minecraftd")

	setDefaults(v)

	v.SetEnvPrefix("MINECRAFTD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var warning error
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
		warning = fmt.Errorf("config: no config.toml found, using defaults: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := resolveDirs(&cfg); err != nil {
		return nil, fmt.Errorf("config: resolve directories: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	// A missing config file is reported to the caller so it can be logged as
	// a warning, never treated as a fatal Load error.
	return &cfg, warning
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("daemon.runtime_dir", "")
	v.SetDefault("daemon.data_dir", "")

	v.SetDefault("port.min", 30001)
	v.SetDefault("port.max", 30100)

	v.SetDefault("proxy_server.bind_address", "0.0.0.0:25565")

	v.SetDefault("logging.file_path", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)
}

// resolveDirs fills in RuntimeDir/DataDir from the XDG environment when the
// config leaves them blank.
func resolveDirs(cfg *Config) error {
	if cfg.Daemon.RuntimeDir == "" {
		dir, err := lock.RuntimeDir()
		if err != nil {
			return err
		}
		cfg.Daemon.RuntimeDir = dir
	}

	if cfg.Daemon.DataDir == "" {
		cfg.Daemon.DataDir = defaultDataDir()
	}

	var err error
	cfg.Daemon.DataDir, err = filepath.Abs(cfg.Daemon.DataDir)
	if err != nil {
		return fmt.Errorf("invalid data directory: %w", err)
	}

	return nil
}

// defaultDataDir follows the XDG base directory spec: $XDG_DATA_HOME if set,
// otherwise ~/.local/share, with a minecraftd subdirectory either way.
func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "minecraftd")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "minecraftd")
	}
	return filepath.Join(home, ".local", "share", "minecraftd")
}

func validateConfig(cfg *Config) error {
	if cfg.Port.Min >= cfg.Port.Max {
		return fmt.Errorf("port.min must be less than port.max")
	}
	if cfg.Port.Min <= 0 || cfg.Port.Max > 65535 {
		return fmt.Errorf("port range must fall within 1-65535")
	}
	if cfg.ProxyServer.BindAddress == "" {
		return fmt.Errorf("proxy_server.bind_address must not be empty")
	}
	return nil
}
