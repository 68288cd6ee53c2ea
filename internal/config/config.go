package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Storage    StorageConfig    `yaml:"storage"`
	Remote     RemoteConfig     `yaml:"remote"`
	Auth       AuthConfig       `yaml:"auth"`
	Sync       SyncConfig       `yaml:"sync"`
	Reminders  ReminderConfig   `yaml:"reminders"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type StorageConfig struct {
	Path  string      `yaml:"path"` // sqlite database file
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type RemoteConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type AuthConfig struct {
	TokenURL     string   `yaml:"token_url"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`
}

type SyncConfig struct {
	RetryCeiling           int     `yaml:"retry_ceiling"`
	DispatchTimeoutSeconds int     `yaml:"dispatch_timeout_seconds"`
	InitialBackoff         string  `yaml:"initial_backoff"`
	MaxBackoff             string  `yaml:"max_backoff"`
	BackoffFactor          float64 `yaml:"backoff_factor"`
	ProbeIntervalSeconds   int     `yaml:"probe_interval_seconds"`
}

type ReminderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Time    string `yaml:"time"` // "HH:MM" local time
}

type BackupConfig struct {
	StoragePath   string `yaml:"storage_path"`
	RetentionDays int    `yaml:"retention_days"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	HTTPPort          int  `yaml:"http_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// Load reads the YAML config with environment substitution. A .env file
// next to the binary is honored when present.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return errors.New("storage path is required")
	}
	if c.Remote.BaseURL != "" && !strings.HasPrefix(c.Remote.BaseURL, "http") {
		return fmt.Errorf("remote base_url must be an http(s) URL, got %q", c.Remote.BaseURL)
	}
	if c.Reminders.Enabled {
		if err := ValidateClockTime(c.Reminders.Time); err != nil {
			return fmt.Errorf("reminders.time: %w", err)
		}
	}
	if c.Sync.RetryCeiling < 1 {
		return fmt.Errorf("sync.retry_ceiling must be at least 1, got %d", c.Sync.RetryCeiling)
	}
	return nil
}

// ValidateClockTime checks an "HH:MM" wall-clock string.
func ValidateClockTime(s string) error {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return fmt.Errorf("expected HH:MM, got %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid minute in %q", s)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "obsessless"
	}
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.Remote.TimeoutSeconds == 0 {
		c.Remote.TimeoutSeconds = 30
	}
	if c.Sync.RetryCeiling == 0 {
		c.Sync.RetryCeiling = 3
	}
	if c.Sync.DispatchTimeoutSeconds == 0 {
		c.Sync.DispatchTimeoutSeconds = 15
	}
	if c.Sync.InitialBackoff == "" {
		c.Sync.InitialBackoff = "2s"
	}
	if c.Sync.MaxBackoff == "" {
		c.Sync.MaxBackoff = "1m"
	}
	if c.Sync.BackoffFactor == 0 {
		c.Sync.BackoffFactor = 2
	}
	if c.Sync.ProbeIntervalSeconds == 0 {
		c.Sync.ProbeIntervalSeconds = 15
	}
	if c.Reminders.Time == "" {
		c.Reminders.Time = "09:00"
	}
	if c.Backup.RetentionDays == 0 {
		c.Backup.RetentionDays = 30
	}
	if c.Monitoring.HTTPPort == 0 {
		c.Monitoring.HTTPPort = 8080
	}
	if c.Storage.Redis.PoolSize == 0 {
		c.Storage.Redis.PoolSize = 10
	}
}

// SyncDurations resolves the backoff strings with safe fallbacks.
func (c *Config) SyncDurations() (initial, max time.Duration) {
	initial = 2 * time.Second
	max = time.Minute
	if d, err := time.ParseDuration(c.Sync.InitialBackoff); err == nil && d >= 0 {
		initial = d
	}
	if d, err := time.ParseDuration(c.Sync.MaxBackoff); err == nil && d > 0 {
		max = d
	}
	return initial, max
}
