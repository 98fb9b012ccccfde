package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"room-diff-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	API       APIConfig       `mapstructure:"api"`
	Files     FilesConfig     `mapstructure:"files"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// APIConfig covers access to the upstream inventory API.
type APIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Property       string        `mapstructure:"property"`
	RateCode       string        `mapstructure:"rate_code"`
	MaxChunkDays   int           `mapstructure:"max_chunk_days"`
	RequestDelay   time.Duration `mapstructure:"request_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// FilesConfig locates the durable stores on disk.
type FilesConfig struct {
	TitlesPath   string `mapstructure:"titles_path"`
	SnapshotPath string `mapstructure:"snapshot_path"`
	HistoryPath  string `mapstructure:"history_path"`
}

// WatchConfig names the watch-list input and the polled date window.
type WatchConfig struct {
	Path     string `mapstructure:"path"`
	DateFrom string `mapstructure:"date_from"`
	DateTo   string `mapstructure:"date_to"`
}

// SchedulerConfig governs polling cadence.
type SchedulerConfig struct {
	CronSpec   string `mapstructure:"cron_spec"`
	RunAtStart bool   `mapstructure:"run_at_start"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled        bool       `mapstructure:"enabled"`
	Recipients     []string   `mapstructure:"recipients"`
	BookingBaseURL string     `mapstructure:"booking_base_url"`
	SMTP           SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig 描述邮件投递参数。
type SMTPConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// DateLayout is the wire format for watch.date_from / watch.date_to.
const DateLayout = "2006-01-02"

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ROOMWATCHER")
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
	v.SetDefault("app.name", "roomwatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("api.base_url", "https://webapi.xanterra.net/v1/api")
	v.SetDefault("api.property", "glaciernationalparklodges")
	v.SetDefault("api.rate_code", "INTERNET")
	v.SetDefault("api.max_chunk_days", 31)
	v.SetDefault("api.request_delay", "10ms")
	v.SetDefault("api.request_timeout", "10s")
	v.SetDefault("api.user_agent", "roomwatcher/1.0")

	v.SetDefault("files.titles_path", "titles.csv")
	v.SetDefault("files.snapshot_path", "last.csv")
	v.SetDefault("files.history_path", "saved.csv")

	v.SetDefault("watch.path", "alerts.json")

	// Upstream refreshes inventory four times an hour; the exact marks are
	// a tuning parameter, not a correctness requirement.
	v.SetDefault("scheduler.cron_spec", "0,15,30,45 * * * *")
	v.SetDefault("scheduler.run_at_start", true)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.booking_base_url", "https://secure.glaciernationalparklodges.com/booking/lodging-select")
	v.SetDefault("alerting.smtp.host", "smtp.gmail.com")
	v.SetDefault("alerting.smtp.port", 587)
	v.SetDefault("alerting.smtp.timeout", "15s")

	v.SetDefault("export.max_data_points", 100000)
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
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Property == "" {
		return fmt.Errorf("api.property is required")
	}
	if c.API.MaxChunkDays <= 0 {
		return fmt.Errorf("api.max_chunk_days must be greater than zero")
	}
	if c.API.RequestDelay < 0 {
		return fmt.Errorf("api.request_delay cannot be negative")
	}
	if c.Scheduler.CronSpec == "" {
		return fmt.Errorf("scheduler.cron_spec is required")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if _, _, err := c.DateWindow(); err != nil {
		return err
	}
	if c.Alerting.Enabled {
		if c.Alerting.SMTP.Host == "" {
			return fmt.Errorf("alerting.smtp.host 必须配置")
		}
		if c.Alerting.SMTP.From == "" {
			return fmt.Errorf("alerting.smtp.from 必须配置")
		}
	}
	return nil
}

// DateWindow parses the configured polling window. Both bounds empty is
// valid; the caller decides whether a window is required.
func (c *Config) DateWindow() (time.Time, time.Time, error) {
	if c.Watch.DateFrom == "" && c.Watch.DateTo == "" {
		return time.Time{}, time.Time{}, nil
	}

	from, err := time.Parse(DateLayout, c.Watch.DateFrom)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid watch.date_from: %w", err)
	}
	to, err := time.Parse(DateLayout, c.Watch.DateTo)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid watch.date_to: %w", err)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("watch.date_to must not precede watch.date_from")
	}
	return from, to, nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
