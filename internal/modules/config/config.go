package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDirENV      = "CONFIG_DIR"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"

	envPrefix = "SMC"
)

type Service struct {
	Name       string `mapstructure:"name"`
	Host       string `mapstructure:"host"`
	PublicPort int    `mapstructure:"public_port"`
	AdminPort  int    `mapstructure:"admin_port"`
	// UserID owns every signal; there is a single operator per deployment.
	UserID string `mapstructure:"user_id"`
}

type Log struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type Firebase struct {
	DatabaseURL     string `mapstructure:"database_url"`
	CredentialsFile string `mapstructure:"credentials_file"`
	Path            string `mapstructure:"path"`
}

type Storage struct {
	// Backend is one of postgres, firebase, memory.
	Backend  string   `mapstructure:"backend"`
	DB       string   `mapstructure:"db_dsn"`
	Migrate  bool     `mapstructure:"migrate"`
	Firebase Firebase `mapstructure:"firebase"`
}

type Telegram struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

type Deriv struct {
	URL          string        `mapstructure:"url"`
	AppID        string        `mapstructure:"app_id"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
	ReconnectMin time.Duration `mapstructure:"reconnect_min"`
	ReconnectMax time.Duration `mapstructure:"reconnect_max"`
	MaxCandles   int           `mapstructure:"max_candles"`
}

type Analysis struct {
	SettingsFile string        `mapstructure:"settings_file"`
	Timeframe    string        `mapstructure:"timeframe"`
	CandleCount  int           `mapstructure:"candle_count"`
	CandleWait   time.Duration `mapstructure:"candle_wait"`
	Symbols      []string      `mapstructure:"symbols"`
	ScanInterval time.Duration `mapstructure:"scan_interval"`
	ScanSpacing  time.Duration `mapstructure:"scan_spacing"`
}

type Tracker struct {
	PersistRetries int           `mapstructure:"persist_retries"`
	PersistBackoff time.Duration `mapstructure:"persist_backoff"`
	ResyncInterval time.Duration `mapstructure:"resync_interval"`
}

type News struct {
	URL      string        `mapstructure:"url"`
	APIKey   string        `mapstructure:"api_key"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type Tracing struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// Config ...
type Config struct {
	Service  Service  `mapstructure:"service"`
	Log      Log      `mapstructure:"log"`
	Storage  Storage  `mapstructure:"storage"`
	Telegram Telegram `mapstructure:"telegram"`
	Deriv    Deriv    `mapstructure:"deriv"`
	Analysis Analysis `mapstructure:"analysis"`
	Tracker  Tracker  `mapstructure:"tracker"`
	News     News     `mapstructure:"news"`
	Tracing  Tracing  `mapstructure:"tracing"`
}

// NewConfig reads configs/<CONFIG_FILE> (values_local.yaml by default) on top
// of built-in defaults. .env is loaded first; SMC_* variables override any
// key, e.g. SMC_STORAGE_BACKEND=memory.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	dir := os.Getenv(configDirENV)
	if dir == "" {
		dir = "configs"
	}
	v.SetConfigFile(filepath.Join(dir, configFileName))
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", configFileName, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if token := os.Getenv(tokenTelegramENV); token != "" {
		config.Telegram.Token = token
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		config.Storage.DB = dsn
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "smc_bot")
	v.SetDefault("service.host", "0.0.0.0")
	v.SetDefault("service.public_port", 8080)
	v.SetDefault("service.admin_port", 8081)
	v.SetDefault("service.user_id", "operator")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.migrate", true)
	v.SetDefault("storage.db_dsn", "")
	v.SetDefault("storage.firebase.database_url", "")
	v.SetDefault("storage.firebase.credentials_file", "")
	v.SetDefault("storage.firebase.path", "signals")

	// keys without a default are invisible to AutomaticEnv
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)

	v.SetDefault("deriv.url", "wss://ws.binaryws.com/websockets/v3")
	v.SetDefault("deriv.app_id", "1089")
	v.SetDefault("deriv.ping_interval", "30s")
	v.SetDefault("deriv.reconnect_min", "1s")
	v.SetDefault("deriv.reconnect_max", "30s")
	v.SetDefault("deriv.max_candles", 500)

	v.SetDefault("analysis.settings_file", "configs/settings.yaml")
	v.SetDefault("analysis.timeframe", "M15")
	v.SetDefault("analysis.candle_count", 200)
	v.SetDefault("analysis.candle_wait", "10s")
	v.SetDefault("analysis.symbols", []string{"XAUUSD", "EURUSD", "GBPUSD", "BTCUSD"})
	v.SetDefault("analysis.scan_interval", "5m")
	v.SetDefault("analysis.scan_spacing", "1s")

	v.SetDefault("tracker.persist_retries", 3)
	v.SetDefault("tracker.persist_backoff", "200ms")
	v.SetDefault("tracker.resync_interval", "5m")

	v.SetDefault("news.url", "https://finnhub.io/api/v1/news")
	v.SetDefault("news.api_key", "")
	v.SetDefault("news.cache_ttl", "5m")
	v.SetDefault("news.timeout", "10s")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.host", "localhost")
	v.SetDefault("tracing.port", 6831)
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.Storage.DB == "" {
			return fmt.Errorf("storage.db_dsn is required for the postgres backend")
		}
	case "firebase":
		if c.Storage.Firebase.DatabaseURL == "" {
			return fmt.Errorf("storage.firebase.database_url is required for the firebase backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Service.UserID == "" {
		return fmt.Errorf("service.user_id is required")
	}
	return nil
}
