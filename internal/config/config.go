package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ValuationSentinel/internal/calculator"
	"ValuationSentinel/internal/collector"
	"ValuationSentinel/internal/strategy"
)

// DefaultWatchlist is the B3 basket tracked when no watchlist is configured.
var DefaultWatchlist = []string{
	"ALLD3.SA", "ALOS3.SA", "BBAS3.SA", "BHIA3.SA", "CMIG4.SA",
	"EMBJ3.SA", "FLRY3.SA", "GMAT3.SA", "GUAR3.SA", "HAPV3.SA",
	"ISAE4.SA", "ITSA4.SA", "ITUB4.SA", "IVVB11.SA", "KLBN4.SA",
	"MBRF3.SA", "MTRE3.SA", "PETR4.SA", "RAIL3.SA",
	"RDOR3.SA", "SANB4.SA", "UGPA3.SA", "VALE3.SA", "VULC3.SA",
	"WEGE3.SA",
}

// Config holds all application configuration.
type Config struct {
	Watchlist  []string `yaml:"watchlist"`
	DataSource struct {
		Provider     string        `yaml:"provider"`
		BaseURL      string        `yaml:"base_url"`
		APIKey       string        `yaml:"api_key"`
		Proxy        string        `yaml:"proxy"`
		LookbackDays int           `yaml:"lookback_days"`
		Timeout      time.Duration `yaml:"timeout"`
		MinInterval  time.Duration `yaml:"min_interval"`
		YieldScale   string        `yaml:"yield_scale"`
	} `yaml:"data_source"`
	Cache struct {
		TTL           time.Duration `yaml:"ttl"`
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db"`
	} `yaml:"cache"`
	Engine struct {
		RSIMethod   string `yaml:"rsi_method"`
		RSIPeriod   int    `yaml:"rsi_period"`
		TrendWindow int    `yaml:"trend_window"`
		Workers     int    `yaml:"workers"`
	} `yaml:"engine"`
	Classifier struct {
		Policy              string  `yaml:"policy"`
		BazinTargetYield    float64 `yaml:"bazin_target_yield"`
		strategy.Thresholds `yaml:",inline"`
	} `yaml:"classifier"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	HTTP struct {
		Listen string `yaml:"listen"`
	} `yaml:"http"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides and finally fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := newConfig()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[WARN] load .env: %v", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// newConfig seeds the classifier thresholds before decoding, so an explicit
// 0 in the file is kept rather than replaced by the default.
func newConfig() *Config {
	cfg := &Config{}
	cfg.Classifier.Thresholds = strategy.DefaultThresholds()
	return cfg
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("WATCHLIST"); v != "" {
		c.Watchlist = splitList(v)
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("MARKET_API_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("MARKET_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.DataSource.Proxy = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.RedisPassword = v
	}
	if v := os.Getenv("RSI_METHOD"); v != "" {
		c.Engine.RSIMethod = v
	}
	if v := os.Getenv("CLASSIFIER_POLICY"); v != "" {
		c.Classifier.Policy = v
	}
	if v := os.Getenv("CRON_REFRESH"); v != "" {
		c.Schedule.RefreshCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTP_LISTEN"); v != "" {
		c.HTTP.Listen = v
	}
	if v := os.Getenv("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse WORKERS: %w", err)
		}
		c.Engine.Workers = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if len(c.Watchlist) == 0 {
		c.Watchlist = append([]string(nil), DefaultWatchlist...)
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.LookbackDays == 0 {
		c.DataSource.LookbackDays = 180
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 20 * time.Second
	}
	if c.DataSource.MinInterval == 0 {
		c.DataSource.MinInterval = 500 * time.Millisecond
	}
	if c.DataSource.YieldScale == "" {
		c.DataSource.YieldScale = string(collector.ScaleAuto)
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 30 * time.Minute
	}
	if c.Engine.RSIMethod == "" {
		c.Engine.RSIMethod = string(calculator.RSIWilder)
	}
	if c.Engine.RSIPeriod == 0 {
		c.Engine.RSIPeriod = 14
	}
	if c.Engine.TrendWindow == 0 {
		c.Engine.TrendWindow = 50
	}
	if c.Engine.Workers == 0 {
		c.Engine.Workers = 4
	}
	if c.Classifier.Policy == "" {
		c.Classifier.Policy = strategy.PolicyOrdered
	}
	if c.Classifier.BazinTargetYield == 0 {
		c.Classifier.BazinTargetYield = calculator.DefaultBazinYield
	}
	if c.Schedule.RefreshCron == "" {
		// every 30 minutes, 10:00-17:30 on B3 trading days
		c.Schedule.RefreshCron = "0 */30 10-17 * * 1-5"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/valuation_sentinel.db"
	}
	if c.HTTP.Listen == "" {
		c.HTTP.Listen = ":8080"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if len(c.Watchlist) == 0 {
		return fmt.Errorf("watchlist must not be empty")
	}
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("unknown data_source.provider %q", c.DataSource.Provider)
	}
	if c.DataSource.LookbackDays <= c.Engine.TrendWindow {
		return fmt.Errorf("data_source.lookback_days (%d) must exceed engine.trend_window (%d)",
			c.DataSource.LookbackDays, c.Engine.TrendWindow)
	}
	if _, err := collector.ParseRatioScale(c.DataSource.YieldScale); err != nil {
		return fmt.Errorf("data_source.yield_scale: %w", err)
	}
	if _, err := calculator.ParseRSIMethod(c.Engine.RSIMethod); err != nil {
		return fmt.Errorf("engine.rsi_method: %w", err)
	}
	if c.Engine.RSIPeriod < 2 {
		return fmt.Errorf("engine.rsi_period must be at least 2")
	}
	if c.Engine.Workers < 1 {
		return fmt.Errorf("engine.workers must be positive")
	}
	if _, err := strategy.NewPolicy(c.Classifier.Policy, c.Classifier.Thresholds); err != nil {
		return fmt.Errorf("classifier.policy: %w", err)
	}
	th := c.Classifier.Thresholds
	if th.RSIOversold >= th.RSIOverbought {
		return fmt.Errorf("classifier.rsi_oversold (%.0f) must be below rsi_overbought (%.0f)",
			th.RSIOversold, th.RSIOverbought)
	}
	if c.Classifier.BazinTargetYield <= 0 || c.Classifier.BazinTargetYield >= 1 {
		return fmt.Errorf("classifier.bazin_target_yield must be a fraction in (0, 1)")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}
