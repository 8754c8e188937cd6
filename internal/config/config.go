package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Providers ProvidersConfig `mapstructure:"providers"`
	ETL       ETLConfig       `mapstructure:"etl"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type ProvidersConfig struct {
	AlphaVantage AlphaVantageConfig `mapstructure:"alpha_vantage"`
	Marketaux    MarketauxConfig    `mapstructure:"marketaux"`
	RSS          RSSConfig          `mapstructure:"rss"`
}

type AlphaVantageConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MarketauxConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIToken string        `mapstructure:"api_token"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Language string        `mapstructure:"language"`
	PageSize int           `mapstructure:"page_size"`
}

type RSSConfig struct {
	Enabled bool            `mapstructure:"enabled"`
	Feeds   []RSSFeedConfig `mapstructure:"feeds"`
	Timeout time.Duration   `mapstructure:"timeout"`
}

type RSSFeedConfig struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

type ETLConfig struct {
	PriceWindowDays int           `mapstructure:"price_window_days"`
	SymbolDelay     time.Duration `mapstructure:"symbol_delay"`
	NewsSymbolDelay time.Duration `mapstructure:"news_symbol_delay"`
	DefaultSymbols  []string      `mapstructure:"default_symbols"`
}

type SchedulerConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	StockInterval time.Duration `mapstructure:"stock_interval"`
	NewsInterval  time.Duration `mapstructure:"news_interval"`
	FullAt        string        `mapstructure:"full_at"`
	InitialFull   bool          `mapstructure:"initial_full"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	SymbolDelay   time.Duration `mapstructure:"symbol_delay"`
}

type MonitorConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	TickInterval    time.Duration `mapstructure:"tick_interval"`
	ChangeThreshold float64       `mapstructure:"change_threshold"`
	Workers         int           `mapstructure:"workers"`
	TriggerBuffer   int           `mapstructure:"trigger_buffer"`
	Symbols         []string      `mapstructure:"symbols"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("providers.alpha_vantage.base_url", "https://www.alphavantage.co")
	v.SetDefault("providers.alpha_vantage.timeout", "15s")
	v.SetDefault("providers.marketaux.base_url", "https://api.marketaux.com")
	v.SetDefault("providers.marketaux.timeout", "30s")
	v.SetDefault("providers.marketaux.language", "en")
	v.SetDefault("providers.marketaux.page_size", 50)
	v.SetDefault("providers.rss.enabled", false)
	v.SetDefault("providers.rss.timeout", "15s")
	v.SetDefault("etl.price_window_days", 5)
	v.SetDefault("etl.symbol_delay", "12s")
	v.SetDefault("etl.news_symbol_delay", "1s")
	v.SetDefault("etl.default_symbols", []string{"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA", "NVDA", "META", "NFLX"})
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.stock_interval", "30m")
	v.SetDefault("scheduler.news_interval", "15m")
	v.SetDefault("scheduler.full_at", "16:30")
	v.SetDefault("scheduler.initial_full", true)
	v.SetDefault("scheduler.max_attempts", 3)
	v.SetDefault("scheduler.symbol_delay", "12s")
	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.tick_interval", "5s")
	v.SetDefault("monitor.change_threshold", 0.02)
	v.SetDefault("monitor.workers", 2)
	v.SetDefault("monitor.trigger_buffer", 16)
	v.SetDefault("monitor.symbols", []string{"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA"})

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate is the single fatal checkpoint: a bad configuration stops the
// process before anything is scheduled, never mid-run.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DB.DSN) == "" {
		return fmt.Errorf("config: db.dsn is required")
	}
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported db.driver %q", c.DB.Driver)
	}
	if _, _, err := ParseWallClock(c.Scheduler.FullAt); err != nil {
		return fmt.Errorf("config: scheduler.full_at: %w", err)
	}
	if c.Scheduler.StockInterval <= 0 || c.Scheduler.NewsInterval <= 0 {
		return fmt.Errorf("config: scheduler intervals must be positive")
	}
	if c.Monitor.ChangeThreshold <= 0 {
		return fmt.Errorf("config: monitor.change_threshold must be positive")
	}
	if c.Monitor.TickInterval <= 0 {
		return fmt.Errorf("config: monitor.tick_interval must be positive")
	}
	return nil
}

// ParseWallClock parses "HH:MM" into an hour and minute pair.
func ParseWallClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	return t.Hour(), t.Minute(), nil
}
