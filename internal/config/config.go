package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"
	_ "time/tzdata" // timezone database for hosts without zoneinfo

	"consultly/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	BookingAPI UpstreamConfig   `yaml:"booking_api"`
	PaymentAPI PaymentAPIConfig `yaml:"payment_api"`
	Policy     PolicyConfig     `yaml:"policy"`
	Cache      CacheConfig      `yaml:"cache"`
	Session    SessionConfig    `yaml:"session"`
	Jobs       JobsConfig       `yaml:"jobs"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	Timezone    string `yaml:"timezone"`
}

// Location resolves the configured timezone every session time is read in.
func (c AppConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

type APIConfig struct {
	HTTP          APIHTTPConfig      `yaml:"http"`
	SessionHeader string             `yaml:"session_header"`
	RateLimit     APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
	// SignInLimit caps sign-in attempts per client address per SignInWindow.
	SignInLimit  int           `yaml:"sign_in_limit"`
	SignInWindow time.Duration `yaml:"sign_in_window"`
}

// UpstreamConfig points at one of the external REST services.
type UpstreamConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type PaymentAPIConfig struct {
	UpstreamConfig `yaml:",inline"`
	// KeyID is the public gateway key handed to the checkout widget.
	KeyID string `yaml:"key_id"`
}

type PolicyConfig struct {
	CancelWindow time.Duration `yaml:"cancel_window"`
}

type CacheConfig struct {
	// BookingTTL covers availability and consultant reads.
	BookingTTL time.Duration `yaml:"booking_ttl"`
	MethodsTTL time.Duration `yaml:"methods_ttl"`
}

type SessionConfig struct {
	TTL     time.Duration `yaml:"ttl"`
	LockTTL time.Duration `yaml:"lock_ttl"`
}

type JobsConfig struct {
	AttemptJanitorSchedule string        `yaml:"attempt_janitor_schedule"`
	AttemptTTL             time.Duration `yaml:"attempt_ttl"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; variables already in the environment win
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
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
	if err := validateBaseURL("booking_api", c.BookingAPI.BaseURL); err != nil {
		return err
	}
	if err := validateBaseURL("payment_api", c.PaymentAPI.BaseURL); err != nil {
		return err
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if _, err := c.App.Location(); err != nil {
		return fmt.Errorf("invalid app timezone %q: %w", c.App.Timezone, err)
	}

	if c.Policy.CancelWindow < 0 {
		return errors.New("policy cancel_window must not be negative")
	}

	if c.Backup.Enabled && c.Backup.StoragePath == "" {
		return errors.New("backup storage_path is required when backups are enabled")
	}

	return nil
}

func validateBaseURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s base_url is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s base_url %q is not an absolute URL", name, raw)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "consultly"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.SessionHeader == "" {
		c.API.SessionHeader = "x-session-id"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 10
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 20
	}
	if c.API.RateLimit.SignInLimit == 0 {
		c.API.RateLimit.SignInLimit = 10
	}
	if c.API.RateLimit.SignInWindow == 0 {
		c.API.RateLimit.SignInWindow = time.Minute
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.BookingAPI.Timeout == 0 {
		c.BookingAPI.Timeout = 10 * time.Second
	}
	if c.PaymentAPI.Timeout == 0 {
		c.PaymentAPI.Timeout = 15 * time.Second
	}

	if c.Policy.CancelWindow == 0 {
		c.Policy.CancelWindow = models.DefaultCancelWindow
	}

	if c.Cache.BookingTTL == 0 {
		c.Cache.BookingTTL = models.DefaultAvailabilityCacheTTL
	}
	if c.Cache.MethodsTTL == 0 {
		c.Cache.MethodsTTL = time.Hour
	}

	if c.Session.TTL == 0 {
		c.Session.TTL = models.DefaultSessionTTL
	}
	if c.Session.LockTTL == 0 {
		c.Session.LockTTL = models.DefaultMutationLockTTL
	}

	if c.Jobs.AttemptJanitorSchedule == "" {
		c.Jobs.AttemptJanitorSchedule = "@every 10m"
	}
	if c.Jobs.AttemptTTL == 0 {
		c.Jobs.AttemptTTL = models.DefaultAttemptTTL
	}

	if c.Backup.Schedule == "" {
		c.Backup.Schedule = "@daily"
	}
}
