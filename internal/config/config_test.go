package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"consultly/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("PAYMENT_KEY_ID", "rzp_test_123")

	yamlContent := `
app:
  timezone: "Asia/Kolkata"
database:
  path: "test.db"
booking_api:
  base_url: "https://api.example.com/api"
  timeout: 5s
payment_api:
  base_url: "https://api.example.com/api"
  key_id: "${PAYMENT_KEY_ID}"
policy:
  cancel_window: 12h
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "rzp_test_123", cfg.PaymentAPI.KeyID)
	assert.Equal(t, 5*time.Second, cfg.BookingAPI.Timeout)
	assert.Equal(t, 15*time.Second, cfg.PaymentAPI.Timeout)
	assert.Equal(t, 12*time.Hour, cfg.Policy.CancelWindow)

	loc, err := cfg.App.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	valid := func() Config {
		return Config{
			Database:   DatabaseConfig{Path: "path"},
			BookingAPI: UpstreamConfig{BaseURL: "http://localhost:5000/api"},
			PaymentAPI: PaymentAPIConfig{UpstreamConfig: UpstreamConfig{BaseURL: "http://localhost:5000/api"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing booking api", mutate: func(c *Config) { c.BookingAPI.BaseURL = "" }, wantErr: true},
		{name: "relative payment api", mutate: func(c *Config) { c.PaymentAPI.BaseURL = "/api" }, wantErr: true},
		{name: "missing database", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "bad timezone", mutate: func(c *Config) { c.App.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "negative window", mutate: func(c *Config) { c.Policy.CancelWindow = -time.Hour }, wantErr: true},
		{name: "backup without path", mutate: func(c *Config) { c.Backup.Enabled = true }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, "x-session-id", cfg.API.SessionHeader)
	assert.Equal(t, models.DefaultCancelWindow, cfg.Policy.CancelWindow)
	assert.Equal(t, models.DefaultSessionTTL, cfg.Session.TTL)
	assert.Equal(t, models.DefaultAttemptTTL, cfg.Jobs.AttemptTTL)
	assert.Equal(t, "@every 10m", cfg.Jobs.AttemptJanitorSchedule)
	assert.Equal(t, 0, cfg.Monitoring.PrometheusPort)

	loc, err := cfg.App.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}
