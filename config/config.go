package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Fanout   FanoutConfig   `mapstructure:"fanout"`
	Limit    LimitConfig    `mapstructure:"limit"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"` // development, production
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
}

// StorageConfig 选择记录存储后端：memory, sqlite, postgres, redis
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	LogLevel     string `mapstructure:"log_level"` // silent, error, warn, info
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// FanoutConfig 通知投递方式：local, redis, poll
type FanoutConfig struct {
	Transport    string        `mapstructure:"transport"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// LimitConfig 认领/取消接口的每用户限流
type LimitConfig struct {
	ClaimsPerSecond float64 `mapstructure:"claims_per_second"`
	Burst           int     `mapstructure:"burst"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"` // host:port of an OTLP/HTTP collector, empty disables
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

var (
	validDrivers    = map[string]bool{"memory": true, "sqlite": true, "postgres": true, "redis": true}
	validTransports = map[string]bool{"local": true, "redis": true, "poll": true}
)

// Load 读取 config.yaml（可选）与 FOODSHARE_* 环境变量
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("FOODSHARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "food-share")
	v.SetDefault("app.env", "development")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 0) // SSE 长连接不设写超时
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("database.dsn", "file:foodshare.db?_busy_timeout=5000")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("fanout.transport", "local")
	v.SetDefault("fanout.poll_interval", 3*time.Second)
	v.SetDefault("limit.claims_per_second", 2.0)
	v.SetDefault("limit.burst", 5)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

func (c *Config) validate() error {
	if !validDrivers[c.Storage.Driver] {
		return fmt.Errorf("unsupported storage.driver %q", c.Storage.Driver)
	}
	if !validTransports[c.Fanout.Transport] {
		return fmt.Errorf("unsupported fanout.transport %q", c.Fanout.Transport)
	}
	if c.Fanout.Transport == "poll" && c.Fanout.PollInterval <= 0 {
		return fmt.Errorf("fanout.poll_interval must be positive")
	}
	return nil
}

// IsDevelopment 开发环境
func (c *Config) IsDevelopment() bool { return c.App.Env == "development" }
