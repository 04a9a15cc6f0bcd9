package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configFilePathENV = "CONFIG_FILE"
	databaseDSN       = "DATABASE_DSN"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
)

const (
	ScopeSystem = "system" // только built-in трейдеры
	ScopeUser   = "user"   // выделенный инстанс одного владельца
)

// Config ...
type Config struct {
	DB string

	// Скоуп владения: system — общий инстанс с built-in трейдерами,
	// user — выделенный инстанс одного юзера (нужен OwnerID).
	Scope   string
	OwnerID int64

	Symbols   []string
	Intervals []string

	// Сколько закрытых свечей держим на (symbol, interval)
	CacheWindow int
	// Сколько свечей триггерного интервала кладём в сигнал для графика
	SnapshotKlines int
	// REST-прогрев при старте
	BackfillLimit int

	SandboxTimeout  time.Duration
	RegistryRefresh time.Duration
	WorkerLimit     int

	SignalRetries      int
	SignalRetryBackoff time.Duration

	BuiltinTradersFile string

	Telegram struct {
		Token  string
		ChatID int64
	}
	Jaeger struct {
		Host string
		Port int
	}
	MetricsAddr string
}

func NewConfig() (*Config, error) {
	v := viper.New()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	v.SetConfigFile("configs/" + configFileName)
	v.SetConfigType("yaml")

	v.SetDefault("scope", ScopeSystem)
	v.SetDefault("symbols", []string{"BTCUSDT"})
	v.SetDefault("intervals", []string{"1m", "5m", "15m", "1h", "4h", "1d"})
	v.SetDefault("cache_window", 1200)
	v.SetDefault("snapshot_klines", 120)
	v.SetDefault("backfill_limit", 300)
	v.SetDefault("sandbox_timeout", "2s")
	v.SetDefault("registry_refresh", "15s")
	v.SetDefault("worker_limit", 8)
	v.SetDefault("signal_retries", 3)
	v.SetDefault("signal_retry_backoff", "500ms")
	v.SetDefault("builtin_traders_file", "configs/builtin_traders.yaml")
	v.SetDefault("metrics_addr", ":9100")
	v.SetDefault("jaeger.host", "localhost")
	v.SetDefault("jaeger.port", 6831)

	if err := v.ReadInConfig(); err != nil {
		// конфиг-файл опционален, всё можно задать через env
		if _, statErr := os.Stat("configs/" + configFileName); statErr == nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		DB:                 v.GetString("db_dsn"),
		Scope:              v.GetString("scope"),
		OwnerID:            v.GetInt64("owner_id"),
		Symbols:            v.GetStringSlice("symbols"),
		Intervals:          v.GetStringSlice("intervals"),
		CacheWindow:        v.GetInt("cache_window"),
		SnapshotKlines:     v.GetInt("snapshot_klines"),
		BackfillLimit:      v.GetInt("backfill_limit"),
		SandboxTimeout:     v.GetDuration("sandbox_timeout"),
		RegistryRefresh:    v.GetDuration("registry_refresh"),
		WorkerLimit:        v.GetInt("worker_limit"),
		SignalRetries:      v.GetInt("signal_retries"),
		SignalRetryBackoff: v.GetDuration("signal_retry_backoff"),
		BuiltinTradersFile: v.GetString("builtin_traders_file"),
		MetricsAddr:        v.GetString("metrics_addr"),
	}
	cfg.Telegram.Token = v.GetString("telegram.token")
	cfg.Telegram.ChatID = v.GetInt64("telegram.chat_id")
	cfg.Jaeger.Host = v.GetString("jaeger.host")
	cfg.Jaeger.Port = v.GetInt("jaeger.port")

	// env поверх файла
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		cfg.DB = dsn
	}
	if token := os.Getenv(tokenTelegramENV); token != "" {
		cfg.Telegram.Token = token
	}
	cfg.Scope = getenvDefault("SCOPE", cfg.Scope)
	if raw := os.Getenv("OWNER_ID"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			cfg.OwnerID = id
		}
	}
	if raw := os.Getenv("SYMBOLS"); raw != "" {
		cfg.Symbols = splitList(raw)
	}
	if raw := os.Getenv("INTERVALS"); raw != "" {
		cfg.Intervals = splitList(raw)
	}
	cfg.SandboxTimeout = durationFromEnv("SANDBOX_TIMEOUT", cfg.SandboxTimeout)
	cfg.RegistryRefresh = durationFromEnv("REGISTRY_REFRESH", cfg.RegistryRefresh)
	cfg.WorkerLimit = intFromEnv("WORKER_LIMIT", cfg.WorkerLimit)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Scope {
	case ScopeSystem:
	case ScopeUser:
		if c.OwnerID == 0 {
			return fmt.Errorf("scope=user requires owner_id")
		}
	default:
		return fmt.Errorf("unknown scope %q", c.Scope)
	}
	if len(c.Intervals) == 0 {
		return fmt.Errorf("intervals must not be empty")
	}
	if c.CacheWindow <= 0 {
		return fmt.Errorf("cache_window must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
