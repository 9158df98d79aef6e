package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Proxy  ProxyConfig  `yaml:"proxy" mapstructure:"proxy"`
	Search SearchConfig `yaml:"search" mapstructure:"search"`
	USPS   USPSConfig   `yaml:"usps" mapstructure:"usps"`
	Retry  RetryConfig  `yaml:"retry" mapstructure:"retry"`
	Match  MatchConfig  `yaml:"match" mapstructure:"match"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// ProxyConfig holds the scraping proxy credentials.
type ProxyConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	Country           string  `yaml:"country" mapstructure:"country"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// SearchConfig configures the people-search site.
type SearchConfig struct {
	BaseURL        string   `yaml:"base_url" mapstructure:"base_url"`
	AllowedDomains []string `yaml:"allowed_domains" mapstructure:"allowed_domains"`
}

// USPSConfig configures the ZIP to city lookup.
type USPSConfig struct {
	LookupURL        string `yaml:"lookup_url" mapstructure:"lookup_url"`
	PanelTimeoutSecs int    `yaml:"panel_timeout_secs" mapstructure:"panel_timeout_secs"`
	Headless         bool   `yaml:"headless" mapstructure:"headless"`
	ExecPath         string `yaml:"exec_path" mapstructure:"exec_path"`
	CacheTTLHours    int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// RetryConfig configures the fixed-interval retry policy.
type RetryConfig struct {
	MaxAttempts  int `yaml:"max_attempts" mapstructure:"max_attempts"`
	IntervalSecs int `yaml:"interval_secs" mapstructure:"interval_secs"`
}

// MatchConfig configures address matching.
type MatchConfig struct {
	Threshold int `yaml:"threshold" mapstructure:"threshold"`
}

// OutputConfig configures the output workbook.
type OutputConfig struct {
	DefaultName string `yaml:"default_name" mapstructure:"default_name"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	File   string `yaml:"file" mapstructure:"file"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("proxy.key", "")
	v.SetDefault("proxy.base_url", "https://proxy.scrapeops.io/v1/")
	v.SetDefault("proxy.country", "us")
	v.SetDefault("proxy.timeout_secs", 60)
	v.SetDefault("proxy.requests_per_second", 0)
	v.SetDefault("search.base_url", "https://www.truepeoplesearch.com")
	v.SetDefault("search.allowed_domains", []string{
		"yahoo.com", "hotmail.com", "gmail.com", "aol.com", "msn.com", "outlook.com", "live.com",
	})
	v.SetDefault("usps.lookup_url", "https://tools.usps.com/zip-code-lookup.htm?citybyzipcode")
	v.SetDefault("usps.panel_timeout_secs", 20)
	v.SetDefault("usps.headless", true)
	v.SetDefault("usps.exec_path", "")
	v.SetDefault("usps.cache_ttl_hours", 24)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.interval_secs", 5)
	v.SetDefault("match.threshold", 90)
	v.SetDefault("output.default_name", "email_list.xlsx")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "enrich.db")
	v.SetDefault("store.max_conns", 0)
	v.SetDefault("store.min_conns", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "logs.log")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs before it starts work.
// Mode "enrich" requires the proxy key unless dryRun is set.
func (c *Config) Validate(mode string, dryRun bool) error {
	var problems []string

	if c.Match.Threshold < 0 || c.Match.Threshold > 100 {
		problems = append(problems, "match.threshold must be between 0 and 100")
	}
	if c.Retry.MaxAttempts < 0 {
		problems = append(problems, "retry.max_attempts must not be negative")
	}
	if c.Retry.IntervalSecs < 0 {
		problems = append(problems, "retry.interval_secs must not be negative")
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	switch mode {
	case "enrich":
		if !dryRun && c.Proxy.Key == "" {
			problems = append(problems, "proxy.key is required (set ENRICH_PROXY_KEY)")
		}
		if c.Search.BaseURL == "" {
			problems = append(problems, "search.base_url is required")
		}
	case "zip", "runs", "config":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	if c.Proxy.Key != "" {
		c.Proxy.Key = "****"
	}
	if strings.Contains(c.Store.DatabaseURL, "@") {
		c.Store.DatabaseURL = "****"
	}
	c.Search.AllowedDomains = append([]string(nil), c.Search.AllowedDomains...)
	return c
}

// NewLogger builds the process logger. Output goes to cfg.File when set,
// otherwise to stderr.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	zapCfg, err := loggerConfig(cfg)
	if err != nil {
		return nil, err
	}
	logger, err := zapCfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "config: build logger")
	}
	return logger, nil
}

func loggerConfig(cfg LogConfig) (zap.Config, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return zapCfg, eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	if cfg.File != "" {
		zapCfg.OutputPaths = []string{cfg.File}
		zapCfg.ErrorOutputPaths = []string{cfg.File}
	}
	return zapCfg, nil
}
