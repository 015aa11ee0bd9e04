package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "s.xlsx", cfg.Output.Path)
	assert.Equal(t, "BN", cfg.Output.StartColumn)
	assert.Equal(t, 2, cfg.Output.HeaderRow)
	assert.Equal(t, "desc", cfg.Output.Order)
	assert.Equal(t, 30, cfg.Fetch.LookbackDays)
	assert.Equal(t, 15*time.Second, cfg.Fetch.WaitTimeout)
	assert.Equal(t, DriverChrome, cfg.Fetch.Driver)
	assert.Len(t, cfg.Series, 4)
	assert.Equal(t, "S&P", cfg.Series[0].Name)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	yaml := `
series:
  - name: DowJones
    source: https://example.com/dji
  - name: S&P500
    source: https://example.com/spx
output:
  path: out/latest.xlsx
  order: asc
fetch:
  driver: http
  lookback_days: 10
  wait_timeout: 5s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	require.Len(t, cfg.Series, 2)
	assert.Equal(t, SeriesConfig{Name: "DowJones", Source: "https://example.com/dji"}, cfg.Series[0])
	assert.Equal(t, "S&P500", cfg.Series[1].Name)
	assert.Equal(t, "out/latest.xlsx", cfg.Output.Path)
	assert.Equal(t, "asc", cfg.Output.Order)
	assert.Equal(t, DriverHTTP, cfg.Fetch.Driver)
	assert.Equal(t, 10, cfg.Fetch.LookbackDays)
	assert.Equal(t, 5*time.Second, cfg.Fetch.WaitTimeout)
	assert.Equal(t, "BN", cfg.Output.StartColumn)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("INDEXSYNC_OUTPUT_PATH", "env.xlsx")
	t.Setenv("INDEXSYNC_FETCH_LOOKBACK_DAYS", "7")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "env.xlsx", cfg.Output.Path)
	assert.Equal(t, 7, cfg.Fetch.LookbackDays)
}

func TestLoadConfig_Malformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("series: [unclosed"), 0o644))

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Series: DefaultSeries(),
		Output: OutputConfig{Path: "s.xlsx", StartColumn: "BN", HeaderRow: 2, Order: "desc", DateFormat: "2006/01/02"},
		Fetch: FetchConfig{
			Driver:         DriverChrome,
			LookbackDays:   30,
			WaitTimeout:    15 * time.Second,
			PageDelayMin:   time.Second,
			PageDelayMax:   2 * time.Second,
			SeriesDelayMin: time.Second,
			SeriesDelayMax: 2 * time.Second,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no series", func(c *Config) { c.Series = nil }},
		{"blank name", func(c *Config) { c.Series[0].Name = " " }},
		{"duplicate name", func(c *Config) { c.Series[1].Name = c.Series[0].Name }},
		{"blank source", func(c *Config) { c.Series[2].Source = "" }},
		{"bad column", func(c *Config) { c.Output.StartColumn = "1A" }},
		{"header row zero", func(c *Config) { c.Output.HeaderRow = 0 }},
		{"bad order", func(c *Config) { c.Output.Order = "random" }},
		{"bad driver", func(c *Config) { c.Fetch.Driver = "selenium" }},
		{"zero lookback", func(c *Config) { c.Fetch.LookbackDays = 0 }},
		{"zero timeout", func(c *Config) { c.Fetch.WaitTimeout = 0 }},
		{"inverted delays", func(c *Config) { c.Fetch.PageDelayMin = 10 * time.Second }},
	}

	assert.NoError(t, validConfig().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
