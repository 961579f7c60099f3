package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"set-index-snapshots/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
	Source    SourceConfig    `mapstructure:"source"`
	Clock     ClockConfig     `mapstructure:"clock"`
	Windows   WindowsConfig   `mapstructure:"windows"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig governs the HTTP serving layer.
type ServerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// SourceConfig describes the scraped market overview page.
type SourceConfig struct {
	URL            string        `mapstructure:"url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	TableIndex     int           `mapstructure:"table_index"`
	SetDivIndex    int           `mapstructure:"set_div_index"`
	ValueDivIndex  int           `mapstructure:"value_div_index"`
}

// ClockConfig pins the civil timezone used for all timestamps.
type ClockConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// WindowsConfig holds the two daily recording triggers.
type WindowsConfig struct {
	AM    string        `mapstructure:"am"`
	PM    string        `mapstructure:"pm"`
	Grace time.Duration `mapstructure:"grace"`
}

// SchedulerConfig governs the in-process trigger loop.
type SchedulerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Mode         string        `mapstructure:"mode"`
	Interval     time.Duration `mapstructure:"interval"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

// StorageConfig selects and parameterises the snapshot store backend.
type StorageConfig struct {
	Backend  string         `mapstructure:"backend"`
	Dir      string         `mapstructure:"dir"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig encapsulates PostgreSQL connectivity.
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// NotifyConfig defines window announcement routing.
type NotifyConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 推送参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TWODWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "twodwatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("source.url", "https://www.set.or.th/en/market/product/stock/overview")
	v.SetDefault("source.request_timeout", "10s")
	v.SetDefault("source.user_agent", "twodwatcher/1.0")
	v.SetDefault("source.table_index", 1)
	v.SetDefault("source.set_div_index", 4)
	v.SetDefault("source.value_div_index", 6)

	v.SetDefault("clock.timezone", "Asia/Yangon")

	v.SetDefault("windows.am", "12:01:00")
	v.SetDefault("windows.pm", "16:30:00")
	v.SetDefault("windows.grace", "2m")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.mode", "windows")
	v.SetDefault("scheduler.interval", "1m")
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.dir", "data")
	v.SetDefault("storage.postgres.max_open_conns", 5)
	v.SetDefault("storage.postgres.max_idle_conns", 2)
	v.SetDefault("storage.postgres.conn_max_lifetime", "30m")

	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.telegram.enabled", false)
	v.SetDefault("notify.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 10000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Source.URL == "" {
		return fmt.Errorf("source.url is required")
	}
	if c.Source.RequestTimeout <= 0 {
		return fmt.Errorf("source.request_timeout must be greater than zero")
	}
	if c.Source.TableIndex < 0 || c.Source.SetDivIndex < 0 || c.Source.ValueDivIndex < 0 {
		return fmt.Errorf("source element indices cannot be negative")
	}
	if _, err := time.LoadLocation(c.Clock.Timezone); err != nil {
		return fmt.Errorf("clock.timezone %q is not a valid tz name: %w", c.Clock.Timezone, err)
	}
	for _, w := range []struct{ key, val string }{{"windows.am", c.Windows.AM}, {"windows.pm", c.Windows.PM}} {
		if _, err := time.Parse("15:04:05", w.val); err != nil {
			return fmt.Errorf("%s must be HH:MM:SS: %w", w.key, err)
		}
	}
	if c.Windows.Grace < 0 {
		return fmt.Errorf("windows.grace cannot be negative")
	}
	switch c.Scheduler.Mode {
	case "windows", "interval":
	default:
		return fmt.Errorf("scheduler.mode must be windows or interval")
	}
	if c.Scheduler.Mode == "interval" && c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	switch c.Storage.Backend {
	case "file", "postgres":
	default:
		return fmt.Errorf("storage.backend must be file or postgres")
	}
	if c.Storage.Backend == "file" && c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required for the file backend")
	}
	if c.Storage.Backend == "postgres" && c.Storage.Postgres.DSN == "" {
		return fmt.Errorf("storage.postgres.dsn is required for the postgres backend")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Notify.Telegram.Enabled {
		if c.Notify.Telegram.BotToken == "" {
			return fmt.Errorf("notify.telegram.bot_token 必须配置")
		}
		if c.Notify.Telegram.ChatID == "" {
			return fmt.Errorf("notify.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
