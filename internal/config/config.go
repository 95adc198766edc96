package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries everything outside the hot-reloaded credential set. It
// is resolved once at startup from the process environment, with an
// optional config.yaml overlay for the knobs people tune most.
type Config struct {
	Environment string
	LogLevel    string

	Exchange struct {
		BaseURL string
		Timeout time.Duration
	}

	Trading struct {
		EnvFile           string
		StateDir          string
		TradeLogPath      string
		CycleInterval     time.Duration
		BuyAmountQuote    float64
		AutoSellTargetPct float64
		MonitorInterval   time.Duration
	}

	Webhook struct {
		Enabled bool
		Port    int
		// QuotePriority orders the quote currencies tried when a signal
		// names a bare asset. Empty means the built-in default order.
		QuotePriority []string
	}

	Monitoring struct {
		PrometheusPort int
		HealthPort     int
	}

	Notifications struct {
		TelegramToken  string
		TelegramChatID string
	}
}

// fileOverlay is the optional config.yaml shape. Only fields present in
// the file override the environment-resolved values.
type fileOverlay struct {
	LogLevel string `yaml:"log_level"`
	Trading  struct {
		CycleInterval     string  `yaml:"cycle_interval"`
		BuyAmountQuote    float64 `yaml:"buy_amount"`
		AutoSellTargetPct float64 `yaml:"auto_sell_target_pct"`
		MonitorInterval   string  `yaml:"monitor_interval"`
	} `yaml:"trading"`
	Webhook struct {
		Enabled       *bool    `yaml:"enabled"`
		Port          int      `yaml:"port"`
		QuotePriority []string `yaml:"quote_priority"`
	} `yaml:"webhook"`
	Monitoring struct {
		PrometheusPort int `yaml:"prometheus_port"`
		HealthPort     int `yaml:"health_port"`
	} `yaml:"monitoring"`
}

// Load resolves configuration from the environment and, when present,
// the overlay file. A missing overlay is fine; a malformed one is an
// error rather than a silent fallback.
func Load(overlayPath string) (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	cfg.Exchange.BaseURL = getEnv("LUNO_BASE_URL", "")
	cfg.Exchange.Timeout = getEnvDuration("LUNO_TIMEOUT", 15*time.Second)

	cfg.Trading.EnvFile = getEnv("ENV_FILE", ".env")
	cfg.Trading.StateDir = getEnv("STATE_DIR", ".")
	cfg.Trading.TradeLogPath = getEnv("TRADE_LOG", "trade_log.csv")
	cfg.Trading.CycleInterval = getEnvDuration("CYCLE_INTERVAL", time.Minute)
	cfg.Trading.BuyAmountQuote = getEnvFloat("BUY_AMOUNT", 0)
	cfg.Trading.AutoSellTargetPct = getEnvFloat("AUTO_SELL_TARGET_PCT", 10.0)
	cfg.Trading.MonitorInterval = getEnvDuration("MONITOR_INTERVAL", 30*time.Second)

	cfg.Webhook.Enabled = getEnvBool("WEBHOOK_ENABLED", false)
	cfg.Webhook.Port = getEnvInt("WEBHOOK_PORT", 8090)
	cfg.Webhook.QuotePriority = getEnvList("QUOTE_PRIORITY", nil)

	cfg.Monitoring.PrometheusPort = getEnvInt("PROMETHEUS_PORT", 8080)
	cfg.Monitoring.HealthPort = getEnvInt("HEALTH_PORT", 8081)

	cfg.Notifications.TelegramToken = getEnv("TELEGRAM_TOKEN", "")
	cfg.Notifications.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", "")

	if overlayPath != "" {
		if err := cfg.applyOverlay(overlayPath); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (c *Config) applyOverlay(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config overlay: %w", err)
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse config overlay %s: %w", path, err)
	}

	if overlay.LogLevel != "" {
		c.LogLevel = overlay.LogLevel
	}
	if overlay.Trading.CycleInterval != "" {
		d, err := time.ParseDuration(overlay.Trading.CycleInterval)
		if err != nil {
			return fmt.Errorf("invalid cycle_interval in %s: %w", path, err)
		}
		c.Trading.CycleInterval = d
	}
	if overlay.Trading.BuyAmountQuote > 0 {
		c.Trading.BuyAmountQuote = overlay.Trading.BuyAmountQuote
	}
	if overlay.Trading.AutoSellTargetPct > 0 {
		c.Trading.AutoSellTargetPct = overlay.Trading.AutoSellTargetPct
	}
	if overlay.Trading.MonitorInterval != "" {
		d, err := time.ParseDuration(overlay.Trading.MonitorInterval)
		if err != nil {
			return fmt.Errorf("invalid monitor_interval in %s: %w", path, err)
		}
		c.Trading.MonitorInterval = d
	}
	if overlay.Webhook.Enabled != nil {
		c.Webhook.Enabled = *overlay.Webhook.Enabled
	}
	if overlay.Webhook.Port > 0 {
		c.Webhook.Port = overlay.Webhook.Port
	}
	if list := normalizeList(overlay.Webhook.QuotePriority); len(list) > 0 {
		c.Webhook.QuotePriority = list
	}
	if overlay.Monitoring.PrometheusPort > 0 {
		c.Monitoring.PrometheusPort = overlay.Monitoring.PrometheusPort
	}
	if overlay.Monitoring.HealthPort > 0 {
		c.Monitoring.HealthPort = overlay.Monitoring.HealthPort
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		if list := normalizeList(strings.Split(val, ",")); len(list) > 0 {
			return list
		}
	}
	return defaultVal
}

// normalizeList trims and uppercases currency codes, dropping empties.
func normalizeList(items []string) []string {
	var list []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, strings.ToUpper(item))
		}
	}
	return list
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
