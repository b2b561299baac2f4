// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lib/pq"
	"github.com/spf13/viper"
)

// Config holds all configuration of the service
type Config struct {
	Database DatabaseConfig `mapstructure:"database" json:"database"`
	Server   ServerConfig   `mapstructure:"server" json:"server"`
	Security SecurityConfig `mapstructure:"security" json:"security"`
	Auth     AuthConfig     `mapstructure:"auth" json:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging" json:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics" json:"metrics"`
	Cache    CacheConfig    `mapstructure:"cache" json:"cache"`
	Export   ExportConfig   `mapstructure:"export" json:"export"`

	Maintenance MaintenanceConfig `mapstructure:"maintenance" json:"maintenance"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" json:"driver"` // sqlite, postgres
	Path            string        `mapstructure:"path" json:"path"`     // sqlite file
	URL             string        `mapstructure:"url" json:"url"`       // postgres://... takes precedence over the parts below
	Host            string        `mapstructure:"host" json:"host"`
	Port            int           `mapstructure:"port" json:"port"`
	Name            string        `mapstructure:"name" json:"name"`
	User            string        `mapstructure:"user" json:"user"`
	Password        string        `mapstructure:"password" json:"password"`
	SSLMode         string        `mapstructure:"ssl_mode" json:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" json:"conn_max_idle_time"`
	SlowQueryLog    bool          `mapstructure:"slow_query_log" json:"slow_query_log"`
	SlowQueryTime   time.Duration `mapstructure:"slow_query_time" json:"slow_query_time"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host" json:"host"`
	Port              int           `mapstructure:"port" json:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" json:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout"`
	BodyLimit         int           `mapstructure:"body_limit" json:"body_limit"`
	TrustedProxies    []string      `mapstructure:"trusted_proxies" json:"trusted_proxies"`
	ProxyHeader       string        `mapstructure:"proxy_header" json:"proxy_header"`
	EnableCompression bool          `mapstructure:"enable_compression" json:"enable_compression"`
	EnableDocs        bool          `mapstructure:"enable_docs" json:"enable_docs"`
}

type SecurityConfig struct {
	AllowedOrigins   []string      `mapstructure:"allowed_origins" json:"allowed_origins"`
	AllowedMethods   []string      `mapstructure:"allowed_methods" json:"allowed_methods"`
	AllowedHeaders   []string      `mapstructure:"allowed_headers" json:"allowed_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials" json:"allow_credentials"`
	CORSMaxAge       int           `mapstructure:"cors_max_age" json:"cors_max_age"`
	GlobalRateLimit  int           `mapstructure:"global_rate_limit" json:"global_rate_limit"` // requests per window
	RateLimitWindow  time.Duration `mapstructure:"rate_limit_window" json:"rate_limit_window"`
}

type AuthConfig struct {
	Enabled   bool          `mapstructure:"enabled" json:"enabled"`
	SecretKey string        `mapstructure:"secret_key" json:"-"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" json:"token_ttl"`
	Issuer    string        `mapstructure:"issuer" json:"issuer"`
	Audience  string        `mapstructure:"audience" json:"audience"`
}

type LoggingConfig struct {
	Level            string `mapstructure:"level" json:"level"`   // debug, info, warn, error
	Format           string `mapstructure:"format" json:"format"` // json, text
	Output           string `mapstructure:"output" json:"output"` // stdout, file, both
	FilePath         string `mapstructure:"file_path" json:"file_path"`
	MaxSize          int    `mapstructure:"max_size" json:"max_size"` // MB
	MaxBackups       int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAge           int    `mapstructure:"max_age" json:"max_age"` // days
	Compress         bool   `mapstructure:"compress" json:"compress"`
	EnableCaller     bool   `mapstructure:"enable_caller" json:"enable_caller"`
	EnableStacktrace bool   `mapstructure:"enable_stacktrace" json:"enable_stacktrace"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Path    string `mapstructure:"path" json:"path"`
}

type CacheConfig struct {
	Enabled             bool          `mapstructure:"enabled" json:"enabled"`
	Provider            string        `mapstructure:"provider" json:"provider"` // redis, memory
	RedisURL            string        `mapstructure:"redis_url" json:"redis_url"`
	RedisDB             int           `mapstructure:"redis_db" json:"redis_db"`
	RedisPrefix         string        `mapstructure:"redis_prefix" json:"redis_prefix"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval" json:"health_check_interval"`
}

type ExportConfig struct {
	Directory     string `mapstructure:"directory" json:"directory"`
	DefaultFormat string `mapstructure:"default_format" json:"default_format"` // json, yaml, xlsx
}

// MaintenanceConfig drives the background order audit
type MaintenanceConfig struct {
	Enabled           bool          `mapstructure:"enabled" json:"enabled"`
	Interval          time.Duration `mapstructure:"interval" json:"interval"`
	AutoNormalize     bool          `mapstructure:"auto_normalize" json:"auto_normalize"`
	PruneCategoryTags bool          `mapstructure:"prune_category_tags" json:"prune_category_tags"`
}

type setting struct {
	key string
	env string
	def any
}

var settings = []setting{
	{"database.driver", "DB_DRIVER", "sqlite"},
	{"database.path", "DB_PATH", "widget_sidebar.db"},
	{"database.url", "DATABASE_URL", ""},
	{"database.host", "DB_HOST", "localhost"},
	{"database.port", "DB_PORT", 5432},
	{"database.name", "DB_NAME", "widget_sidebar"},
	{"database.user", "DB_USER", "postgres"},
	{"database.password", "DB_PASSWORD", ""},
	{"database.ssl_mode", "DB_SSL_MODE", "disable"},
	{"database.max_open_conns", "DB_MAX_OPEN_CONNS", 25},
	{"database.max_idle_conns", "DB_MAX_IDLE_CONNS", 5},
	{"database.conn_max_lifetime", "DB_CONN_MAX_LIFETIME", 30 * time.Minute},
	{"database.conn_max_idle_time", "DB_CONN_MAX_IDLE_TIME", 15 * time.Minute},
	{"database.slow_query_log", "DB_SLOW_QUERY_LOG", true},
	{"database.slow_query_time", "DB_SLOW_QUERY_TIME", 500 * time.Millisecond},

	{"server.host", "SERVER_HOST", "127.0.0.1"},
	{"server.port", "SERVER_PORT", 8080},
	{"server.read_timeout", "SERVER_READ_TIMEOUT", 30 * time.Second},
	{"server.write_timeout", "SERVER_WRITE_TIMEOUT", 30 * time.Second},
	{"server.idle_timeout", "SERVER_IDLE_TIMEOUT", 120 * time.Second},
	{"server.shutdown_timeout", "SERVER_SHUTDOWN_TIMEOUT", 15 * time.Second},
	{"server.body_limit", "SERVER_BODY_LIMIT", 4 * 1024 * 1024},
	{"server.trusted_proxies", "SERVER_TRUSTED_PROXIES", []string{"127.0.0.1"}},
	{"server.proxy_header", "SERVER_PROXY_HEADER", "X-Real-IP"},
	{"server.enable_compression", "SERVER_ENABLE_COMPRESSION", true},
	{"server.enable_docs", "SERVER_ENABLE_DOCS", true},

	{"security.allowed_origins", "CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}},
	{"security.allowed_methods", "CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}},
	{"security.allowed_headers", "CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}},
	{"security.allow_credentials", "CORS_ALLOW_CREDENTIALS", false},
	{"security.cors_max_age", "CORS_MAX_AGE", 86400},
	{"security.global_rate_limit", "GLOBAL_RATE_LIMIT", 600},
	{"security.rate_limit_window", "RATE_LIMIT_WINDOW", time.Minute},

	{"auth.enabled", "AUTH_ENABLED", false},
	{"auth.secret_key", "AUTH_SECRET_KEY", ""},
	{"auth.token_ttl", "AUTH_TOKEN_TTL", 24 * time.Hour},
	{"auth.issuer", "AUTH_ISSUER", "widget-sidebar"},
	{"auth.audience", "AUTH_AUDIENCE", "widget-sidebar-api"},

	{"logging.level", "LOG_LEVEL", "info"},
	{"logging.format", "LOG_FORMAT", "json"},
	{"logging.output", "LOG_OUTPUT", "stdout"},
	{"logging.file_path", "LOG_FILE_PATH", "logs/widget-sidebar.log"},
	{"logging.max_size", "LOG_MAX_SIZE", 50},
	{"logging.max_backups", "LOG_MAX_BACKUPS", 5},
	{"logging.max_age", "LOG_MAX_AGE", 30},
	{"logging.compress", "LOG_COMPRESS", true},
	{"logging.enable_caller", "LOG_ENABLE_CALLER", true},
	{"logging.enable_stacktrace", "LOG_ENABLE_STACKTRACE", false},

	{"metrics.enabled", "METRICS_ENABLED", true},
	{"metrics.path", "METRICS_PATH", "/metrics"},

	{"cache.enabled", "CACHE_ENABLED", true},
	{"cache.provider", "CACHE_PROVIDER", "memory"},
	{"cache.redis_url", "CACHE_REDIS_URL", "redis://localhost:6379"},
	{"cache.redis_db", "CACHE_REDIS_DB", 0},
	{"cache.redis_prefix", "CACHE_REDIS_PREFIX", "widget-sidebar:"},
	{"cache.health_check_interval", "CACHE_HEALTH_CHECK_INTERVAL", 30 * time.Second},

	{"export.directory", "EXPORT_DIRECTORY", "."},
	{"export.default_format", "EXPORT_DEFAULT_FORMAT", "json"},

	{"maintenance.enabled", "MAINTENANCE_ENABLED", true},
	{"maintenance.interval", "MAINTENANCE_INTERVAL", time.Hour},
	{"maintenance.auto_normalize", "MAINTENANCE_AUTO_NORMALIZE", false},
	{"maintenance.prune_category_tags", "MAINTENANCE_PRUNE_CATEGORY_TAGS", false},
}

// Load reads .env, an optional config.yaml and the environment, in increasing
// order of precedence, then validates the result. configFile may be empty.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	for _, s := range settings {
		v.SetDefault(s.key, s.def)
		if err := v.BindEnv(s.key, s.env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", s.env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PostgresDSN returns a key/value connection string for the postgres driver
func (c DatabaseConfig) PostgresDSN() (string, error) {
	if c.URL != "" {
		dsn, err := pq.ParseURL(c.URL)
		if err != nil {
			return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		return dsn, nil
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode), nil
}

// Validate validates the configuration, reporting every problem at once
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.Database.Driver {
	case "sqlite":
		if cfg.Database.Path == "" {
			errs = append(errs, "DB_PATH is required for the sqlite driver")
		}
	case "postgres":
		if cfg.Database.URL != "" {
			if u, err := url.Parse(cfg.Database.URL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
				errs = append(errs, "DATABASE_URL must be a postgres:// URL")
			}
		} else {
			if cfg.Database.Host == "" {
				errs = append(errs, "DB_HOST is required")
			}
			if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
				errs = append(errs, "DB_PORT must be between 1 and 65535")
			}
			if cfg.Database.Name == "" {
				errs = append(errs, "DB_NAME is required")
			}
			if cfg.Database.User == "" {
				errs = append(errs, "DB_USER is required")
			}
		}
	default:
		errs = append(errs, "DB_DRIVER must be one of: sqlite, postgres")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errs = append(errs, "SERVER_WRITE_TIMEOUT must be positive")
	}

	if cfg.Auth.Enabled {
		if len(cfg.Auth.SecretKey) < 32 {
			errs = append(errs, "AUTH_SECRET_KEY must be at least 32 characters long when auth is enabled")
		}
		if cfg.Auth.TokenTTL <= 0 {
			errs = append(errs, "AUTH_TOKEN_TTL must be positive")
		}
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if cfg.Logging.Level != "" && !slices.Contains(validLevels, cfg.Logging.Level) {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
	}
	if cfg.Logging.Output != "stdout" && cfg.Logging.FilePath == "" {
		errs = append(errs, "LOG_FILE_PATH is required when logging to a file")
	}

	if cfg.Cache.Enabled {
		switch cfg.Cache.Provider {
		case "memory":
		case "redis":
			if cfg.Cache.RedisURL == "" {
				errs = append(errs, "CACHE_REDIS_URL is required when cache is enabled with redis provider")
			}
		default:
			errs = append(errs, "CACHE_PROVIDER must be one of: memory, redis")
		}
	}

	if cfg.Maintenance.Enabled && cfg.Maintenance.Interval < time.Minute {
		errs = append(errs, "MAINTENANCE_INTERVAL must be at least one minute")
	}

	switch strings.ToLower(cfg.Export.DefaultFormat) {
	case "json", "yaml", "xlsx":
	default:
		errs = append(errs, "EXPORT_DEFAULT_FORMAT must be one of: json, yaml, xlsx")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
