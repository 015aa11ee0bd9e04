package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/xuri/excelize/v2"
)

// SeriesConfig maps a sheet/display name to the page the rows are scraped from
type SeriesConfig struct {
	Name   string `mapstructure:"name" json:"name"`
	Source string `mapstructure:"source" json:"source"`
}

// OutputConfig describes the workbook and the column band written per sheet
type OutputConfig struct {
	Path        string `mapstructure:"path"`
	StartColumn string `mapstructure:"start_column"`
	HeaderRow   int    `mapstructure:"header_row"`
	Order       string `mapstructure:"order"`
	DateFormat  string `mapstructure:"date_format"`
}

// FetchConfig holds scraper configuration
type FetchConfig struct {
	Driver         string        `mapstructure:"driver"`
	LookbackDays   int           `mapstructure:"lookback_days"`
	Headless       bool          `mapstructure:"headless"`
	WaitTimeout    time.Duration `mapstructure:"wait_timeout"`
	PageDelayMin   time.Duration `mapstructure:"page_delay_min"`
	PageDelayMax   time.Duration `mapstructure:"page_delay_max"`
	SeriesDelayMin time.Duration `mapstructure:"series_delay_min"`
	SeriesDelayMax time.Duration `mapstructure:"series_delay_max"`
	UserAgent      string        `mapstructure:"user_agent"`
	TableSelector  string        `mapstructure:"table_selector"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type ScheduleConfig struct {
	Cron       string `mapstructure:"cron"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

type HistoryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config holds all configuration
type Config struct {
	Series   []SeriesConfig `mapstructure:"series"`
	Output   OutputConfig   `mapstructure:"output"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Server   ServerConfig   `mapstructure:"server"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	History  HistoryConfig  `mapstructure:"history"`
	Log      LogConfig      `mapstructure:"log"`
}

const (
	DriverChrome = "chrome"
	DriverHTTP   = "http"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// DefaultSeries returns the indices tracked when the config file names none.
func DefaultSeries() []SeriesConfig {
	return []SeriesConfig{
		{Name: "S&P", Source: "https://finance.yahoo.com/quote/%5EGSPC/history?p=%5EGSPC"},
		{Name: "DJI", Source: "https://finance.yahoo.com/quote/%5EDJI/history?p=%5EDJI"},
		{Name: "NAS", Source: "https://finance.yahoo.com/quote/%5EIXIC/history?p=%5EIXIC"},
		{Name: "RUT", Source: "https://finance.yahoo.com/quote/%5ERUT/history?p=%5ERUT"},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output.path", "s.xlsx")
	v.SetDefault("output.start_column", "BN")
	v.SetDefault("output.header_row", 2)
	v.SetDefault("output.order", "desc")
	v.SetDefault("output.date_format", "2006/01/02")

	v.SetDefault("fetch.driver", DriverChrome)
	v.SetDefault("fetch.lookback_days", 30)
	v.SetDefault("fetch.headless", true)
	v.SetDefault("fetch.wait_timeout", 15*time.Second)
	v.SetDefault("fetch.page_delay_min", 2*time.Second)
	v.SetDefault("fetch.page_delay_max", 5*time.Second)
	v.SetDefault("fetch.series_delay_min", 2*time.Second)
	v.SetDefault("fetch.series_delay_max", 5*time.Second)
	v.SetDefault("fetch.user_agent", defaultUserAgent)
	v.SetDefault("fetch.table_selector", "table")

	v.SetDefault("server.port", "8080")
	v.SetDefault("schedule.cron", "")
	v.SetDefault("schedule.run_on_start", false)
	v.SetDefault("history.dsn", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadConfig reads config.yaml from dir (or the working directory), then
// applies INDEXSYNC_* environment overrides. A missing file is not an error.
func LoadConfig(dir string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("INDEXSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if len(config.Series) == 0 {
		config.Series = DefaultSeries()
	}

	return &config, nil
}

// Validate checks the options the run cannot work without.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("configuration is nil")
	}
	if len(c.Series) == 0 {
		return fmt.Errorf("at least one series is required")
	}
	seen := make(map[string]bool, len(c.Series))
	for i, s := range c.Series {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("series[%d]: name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("series %q is listed twice", s.Name)
		}
		seen[s.Name] = true
		if strings.TrimSpace(s.Source) == "" {
			return fmt.Errorf("series %q: source is required", s.Name)
		}
	}

	if c.Output.Path == "" {
		return fmt.Errorf("output.path is required")
	}
	if _, err := excelize.ColumnNameToNumber(c.Output.StartColumn); err != nil {
		return fmt.Errorf("output.start_column: %w", err)
	}
	if c.Output.HeaderRow < 1 {
		return fmt.Errorf("output.header_row must be at least 1")
	}
	switch strings.ToLower(c.Output.Order) {
	case "asc", "desc":
	default:
		return fmt.Errorf("output.order must be asc or desc, got %q", c.Output.Order)
	}
	if c.Output.DateFormat == "" {
		return fmt.Errorf("output.date_format is required")
	}

	switch c.Fetch.Driver {
	case DriverChrome, DriverHTTP:
	default:
		return fmt.Errorf("fetch.driver must be %q or %q, got %q", DriverChrome, DriverHTTP, c.Fetch.Driver)
	}
	if c.Fetch.LookbackDays < 1 {
		return fmt.Errorf("fetch.lookback_days must be at least 1")
	}
	if c.Fetch.WaitTimeout <= 0 {
		return fmt.Errorf("invalid timeout value")
	}
	if c.Fetch.PageDelayMin > c.Fetch.PageDelayMax {
		return fmt.Errorf("fetch.page_delay_min exceeds fetch.page_delay_max")
	}
	if c.Fetch.SeriesDelayMin > c.Fetch.SeriesDelayMax {
		return fmt.Errorf("fetch.series_delay_min exceeds fetch.series_delay_max")
	}
	return nil
}
