package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mjolnir.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "AUD", cfg.DisplayCurrency)
	assert.Equal(t, 15*time.Minute, cfg.Valuation.PriceCacheTTL())
	assert.Equal(t, 60*24*time.Hour, cfg.Valuation.SnapshotStaleAfter())
	assert.Equal(t, 5*time.Second, cfg.Valuation.GetGatewayTimeout())
	assert.Equal(t, 5, cfg.Valuation.TopPerformersLimit)
	assert.Equal(t, 12, cfg.Valuation.HistoryMonths)
	assert.Equal(t, ":8080", cfg.Server.Port)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
display_currency = "usd"

[valuation]
price_cache_ttl_minutes = 30
gateway_timeout = "2s"
concurrency = 4

[rates]
"AUD/USD" = "0.66"

[database]
conn_str = "postgres://localhost/mjolnir"
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "USD", cfg.DisplayCurrency)
	assert.Equal(t, 30*time.Minute, cfg.Valuation.PriceCacheTTL())
	assert.Equal(t, 2*time.Second, cfg.Valuation.GetGatewayTimeout())
	assert.Equal(t, 4, cfg.Valuation.Concurrency)
	// Unset keys keep their defaults
	assert.Equal(t, 60, cfg.Valuation.SnapshotStaleDays)
	assert.Equal(t, "postgres://localhost/mjolnir", cfg.Database.ConnString())

	rates, err := cfg.RateTable()
	require.NoError(t, err)
	assert.True(t, rates["AUD/USD"].Equal(decimal.RequireFromString("0.66")))
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[valuation]
price_cache_ttl_minutes = 30
`)
	t.Setenv("DEFAULT_PRICE_CACHE_TTL_MINUTES", "45")
	t.Setenv("API_TOKEN", "secret")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, cfg.Valuation.PriceCacheTTL())
	assert.Equal(t, "secret", cfg.Server.APIToken)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		errMsg  string
	}{
		{
			name:    "Unknown display currency",
			content: `display_currency = "DOGE"`,
			errMsg:  "invalid display_currency",
		},
		{
			name: "Zero TTL",
			content: `
[valuation]
price_cache_ttl_minutes = 0`,
			errMsg: "price_cache_ttl_minutes must be positive",
		},
		{
			name: "Bad timeout",
			content: `
[valuation]
gateway_timeout = "soon"`,
			errMsg: "invalid gateway_timeout",
		},
		{
			name: "Bad rate pair",
			content: `
[rates]
"USDAUD" = "1.5"`,
			errMsg: "invalid rate pair",
		},
		{
			name: "Negative rate",
			content: `
[rates]
"USD/AUD" = "-1"`,
			errMsg: "invalid rate",
		},
		{
			name:    "Non-numeric env",
			content: ``,
			env:     map[string]string{"VALUATION_CONCURRENCY": "many"},
			errMsg:  "invalid VALUATION_CONCURRENCY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestDatabaseConfig_ConnString(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: "5433", User: "u", Password: "p", Name: "n"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=disable", cfg.ConnString())
}
