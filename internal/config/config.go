package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	AuthSQL     = "sql"
	AuthWindows = "windows"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Log        LogConfig        `mapstructure:"log"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Cache      CacheConfig      `mapstructure:"cache"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host                   string        `mapstructure:"host"`
	Port                   int           `mapstructure:"port"`
	Instance               string        `mapstructure:"instance"`
	User                   string        `mapstructure:"user"`
	Password               string        `mapstructure:"password"`
	Name                   string        `mapstructure:"name"`
	Auth                   string        `mapstructure:"auth"`
	Encrypt                bool          `mapstructure:"encrypt"`
	TrustServerCertificate bool          `mapstructure:"trust_server_certificate"`
	MaxOpenConns           int           `mapstructure:"max_open_conns"`
	MaxIdleConns           int           `mapstructure:"max_idle_conns"`
	ConnMaxIdleTime        time.Duration `mapstructure:"conn_max_idle_time"`
	ConnectTimeout         time.Duration `mapstructure:"connect_timeout"`
	StatsInterval          time.Duration `mapstructure:"stats_interval"`
}

// ResolvedAuth returns the effective authentication mode. Without an explicit
// mode, a domain-qualified user with no password selects windows auth.
func (d DatabaseConfig) ResolvedAuth() string {
	switch strings.ToLower(d.Auth) {
	case AuthWindows:
		return AuthWindows
	case AuthSQL:
		return AuthSQL
	}
	if d.Password == "" && strings.ContainsAny(d.User, `\/`) {
		return AuthWindows
	}
	return AuthSQL
}

type AuthConfig struct {
	APIToken string `mapstructure:"api_token"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool   `mapstructure:"prometheus_enabled"`
	MetricsPath       string `mapstructure:"metrics_path"`
	Namespace         string `mapstructure:"namespace"`
}

type CacheConfig struct {
	StatisticsTTL time.Duration `mapstructure:"statistics_ttl"`
}

// env maps configuration keys to the environment variables the deployed
// services already use.
var env = map[string]string{
	"server.host":                       "HOST",
	"server.port":                       "PORT",
	"auth.api_token":                    "API_TOKEN",
	"database.host":                     "SQLSERVER_HOST",
	"database.port":                     "SQLSERVER_PORT",
	"database.instance":                 "SQLSERVER_INSTANCE",
	"database.user":                     "SQLSERVER_USER",
	"database.password":                 "SQLSERVER_PASSWORD",
	"database.name":                     "SQLSERVER_DB",
	"database.auth":                     "SQLSERVER_AUTH",
	"database.encrypt":                  "SQLSERVER_ENCRYPT",
	"database.trust_server_certificate": "SQLSERVER_TRUST_CERT",
	"log.level":                         "LOG_LEVEL",
	"log.format":                        "LOG_FORMAT",
	"rate_limit.enabled":                "RATE_LIMIT_ENABLED",
	"monitoring.prometheus_enabled":     "PROMETHEUS_ENABLED",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5001)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("database.port", 1433)
	v.SetDefault("database.name", "dfMed")
	v.SetDefault("database.encrypt", false)
	v.SetDefault("database.trust_server_certificate", true)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_idle_time", 30*time.Second)
	v.SetDefault("database.connect_timeout", 15*time.Second)
	v.SetDefault("database.stats_interval", 15*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("cors.allow_origins", []string{"*"})

	v.SetDefault("monitoring.prometheus_enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.namespace", "intranet")

	v.SetDefault("cache.statistics_ttl", 60*time.Second)
}

// LoadConfig reads configuration from path (or config.yaml in . and ./config when
// path is empty), then overlays environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", name, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Database.Host == "" {
		return errors.New("database host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port %d", c.Database.Port)
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("invalid max open connections %d", c.Database.MaxOpenConns)
	}
	if c.Database.ResolvedAuth() == AuthSQL && c.Database.User == "" {
		return errors.New("database user is required for sql authentication")
	}
	return nil
}
