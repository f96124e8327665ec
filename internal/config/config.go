package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// PlaceholderAPIKey is the value shipped in .env.example. It counts as unset.
const PlaceholderAPIKey = "your_browser_use_api_key_here"

// ErrMissingCredential is returned when the provider API key is absent or still the placeholder.
var ErrMissingCredential = errors.New("browser use api key is not configured")

// Store drivers.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Provider ProviderConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Sync     SyncConfig
}

type ServerConfig struct {
	Port int
	Env  string // "development", "production"
}

type LogConfig struct {
	Level string
}

type ProviderConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	RetryWait  time.Duration // first backoff between read retries, capped at 5x
	RateLimit  float64 // requests per second, 0 disables limiting
	RateBurst  int
}

type StoreConfig struct {
	Driver         string
	IdempotencyTTL time.Duration
}

type DatabaseConfig struct {
	Host       string
	Port       string
	Name       string
	User       string
	Pass       string
	Charset    string
	SQLitePath string
}

type RedisConfig struct {
	Addr string
	Pass string
	DB   int
}

type SyncConfig struct {
	Enabled  bool
	Schedule string
	PageSize int
}

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	// Load .env file (ignore error if missing)
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("PROVIDER_BASE_URL", "https://api.browser-use.com/api/v1")
	viper.SetDefault("PROVIDER_TIMEOUT", "30s")
	viper.SetDefault("PROVIDER_RETRY_COUNT", 2)
	viper.SetDefault("PROVIDER_RETRY_WAIT", "1s")
	viper.SetDefault("PROVIDER_RATE_LIMIT", 5.0)
	viper.SetDefault("PROVIDER_RATE_BURST", 10)
	viper.SetDefault("STORE_DRIVER", DriverSQLite)
	viper.SetDefault("IDEMPOTENCY_TTL", "10m")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("SQLITE_PATH", "scheduled_tasks.db")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SYNC_ENABLED", true)
	viper.SetDefault("SYNC_SCHEDULE", "0 */15 * * * *")
	viper.SetDefault("SYNC_PAGE_SIZE", 50)

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		Provider: ProviderConfig{
			APIKey:     strings.TrimSpace(viper.GetString("BROWSER_USE_API_KEY")),
			BaseURL:    strings.TrimRight(viper.GetString("PROVIDER_BASE_URL"), "/"),
			Timeout:    duration("PROVIDER_TIMEOUT", 30*time.Second),
			RetryCount: viper.GetInt("PROVIDER_RETRY_COUNT"),
			RetryWait:  duration("PROVIDER_RETRY_WAIT", time.Second),
			RateLimit:  viper.GetFloat64("PROVIDER_RATE_LIMIT"),
			RateBurst:  viper.GetInt("PROVIDER_RATE_BURST"),
		},
		Store: StoreConfig{
			Driver:         strings.ToLower(viper.GetString("STORE_DRIVER")),
			IdempotencyTTL: duration("IDEMPOTENCY_TTL", 10*time.Minute),
		},
		Database: DatabaseConfig{
			Host:       viper.GetString("DB_HOST"),
			Port:       viper.GetString("DB_PORT"),
			Name:       viper.GetString("DB_NAME"),
			User:       viper.GetString("DB_USER"),
			Pass:       viper.GetString("DB_PASS"),
			Charset:    viper.GetString("DB_CHARSET"),
			SQLitePath: viper.GetString("SQLITE_PATH"),
		},
		Redis: RedisConfig{
			Addr: viper.GetString("REDIS_ADDR"),
			Pass: viper.GetString("REDIS_PASS"),
			DB:   viper.GetInt("REDIS_DB"),
		},
		Sync: SyncConfig{
			Enabled:  viper.GetBool("SYNC_ENABLED"),
			Schedule: viper.GetString("SYNC_SCHEDULE"),
			PageSize: viper.GetInt("SYNC_PAGE_SIZE"),
		},
	}

	switch cfg.Store.Driver {
	case DriverMySQL, DriverSQLite, DriverRedis, DriverMemory:
	default:
		return nil, errors.New("unsupported STORE_DRIVER: " + cfg.Store.Driver)
	}
	if cfg.Sync.PageSize < 1 || cfg.Sync.PageSize > 100 {
		cfg.Sync.PageSize = 50
	}

	return cfg, nil
}

// Credential returns the API key, or ErrMissingCredential when it is unset or the placeholder.
func (p *ProviderConfig) Credential() (string, error) {
	if p.APIKey == "" || p.APIKey == PlaceholderAPIKey {
		return "", ErrMissingCredential
	}
	return p.APIKey, nil
}

// IsDevelopment reports whether the service runs with development defaults.
func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

// DSN returns the MySQL DSN string for GORM.
func (d *DatabaseConfig) DSN() string {
	return d.User + ":" + d.Pass + "@tcp(" + d.Host + ":" + d.Port + ")/" + d.Name + "?charset=" + d.Charset + "&parseTime=True&loc=UTC"
}

func duration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
