package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ipsentry/internal/retry"
	"ipsentry/internal/types"
	"ipsentry/internal/validator"

	"github.com/spf13/viper"
)

// DefaultProviders are queried in order until one answers
var DefaultProviders = []string{
	"https://api.ipify.org",
	"https://ipapi.co/ip",
}

// Config represents the daemon configuration
type Config struct {
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Store    StoreConfig    `mapstructure:"store"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Log      LogConfig      `mapstructure:"log"`
}

// MonitorConfig represents the polling loop configuration
type MonitorConfig struct {
	// Label names the monitored host in messages
	Label          string        `mapstructure:"label"`
	Interval       time.Duration `mapstructure:"interval"`
	BaseThreshold  time.Duration `mapstructure:"base_threshold"`
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout"`
	NotifyTimeout  time.Duration `mapstructure:"notify_timeout"`
	SaveTimeout    time.Duration `mapstructure:"save_timeout"`
}

// ResolverConfig represents the address provider configuration
type ResolverConfig struct {
	Providers []string `mapstructure:"providers" validate:"dive,notify_url"`
	// MaxBodySize caps a provider response in bytes
	MaxBodySize int64 `mapstructure:"max_body_size" validate:"min=0"`
	// ProviderTimeout caps each provider in the chain; 0 leaves only the even split of resolve_timeout
	ProviderTimeout time.Duration `mapstructure:"provider_timeout" validate:"min=0"`
}

// StoreConfig represents the state store configuration
type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=file sqlite mysql postgres pgx redis mongodb"`
	// Path is the state file for the file driver
	Path string `mapstructure:"path"`
	// DSN is the connection string for the sql drivers
	DSN string `mapstructure:"dsn"`
	// History records every address change when the backend supports it
	History bool `mapstructure:"history"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`

	// ConnectRetry applies when opening a networked backend at startup
	ConnectRetry retry.Config `mapstructure:"connect_retry"`

	Redis   RedisConfig   `mapstructure:"redis"`
	MongoDB MongoDBConfig `mapstructure:"mongodb"`
}

// RedisConfig represents the redis store configuration
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0"`
	Key      string `mapstructure:"key"`
}

// MongoDBConfig represents the mongodb store configuration
type MongoDBConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
	Key        string `mapstructure:"key"`
}

// LoadConfig loads the configuration from path, the search paths and the environment.
// An empty path makes the config file optional.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(AppName)
		v.AddConfigPath(InDot)
		v.AddConfigPath(InHome)
		v.AddConfigPath(InHomeDot)
		v.AddConfigPath(InEtc)
		if ex, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Dir(ex))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: failed to read config file: %w", types.ErrStartupConfig, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal config: %w", types.ErrStartupConfig, err)
	}

	// BOT_TOKEN alone is enough to turn telegram on
	if !v.IsSet("notify.telegram.enabled") && cfg.Notify.Telegram.BotToken != "" {
		cfg.Notify.Telegram.Enabled = true
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrStartupConfig, err)
	}

	return &cfg, nil
}

// setDefaults registers every default with viper so env overrides resolve
func setDefaults(v *viper.Viper) {
	v.SetDefault("monitor.label", "")
	v.SetDefault("monitor.interval", 60*time.Second)
	v.SetDefault("monitor.base_threshold", time.Hour)
	v.SetDefault("monitor.resolve_timeout", 15*time.Second)
	v.SetDefault("monitor.notify_timeout", 15*time.Second)
	v.SetDefault("monitor.save_timeout", 5*time.Second)

	v.SetDefault("resolver.providers", DefaultProviders)
	v.SetDefault("resolver.max_body_size", 1024)
	v.SetDefault("resolver.provider_timeout", 5*time.Second)

	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", filepath.Join(os.TempDir(), AppName, "state.json"))
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.history", true)
	v.SetDefault("store.max_open_conns", 2)
	v.SetDefault("store.max_idle_conns", 1)
	v.SetDefault("store.conn_max_lifetime", time.Hour)
	v.SetDefault("store.connect_retry.enabled", true)
	v.SetDefault("store.connect_retry.initial_attempts", 3)
	v.SetDefault("store.connect_retry.initial_interval", time.Second)
	v.SetDefault("store.connect_retry.slow_attempts", 5)
	v.SetDefault("store.connect_retry.slow_interval", 10*time.Second)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.username", "")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.key", AppName+":state")
	v.SetDefault("store.mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongodb.database", AppName)
	v.SetDefault("store.mongodb.collection", "monitoring_state")
	v.SetDefault("store.mongodb.key", "state")

	v.SetDefault("notify.language", "en")
	v.SetDefault("notify.telegram.bot_token", "")
	v.SetDefault("notify.telegram.chat_ids", []string{})
	v.SetDefault("notify.telegram.format", "text")
	v.SetDefault("notify.telegram.api_url", "https://api.telegram.org")
	v.SetDefault("notify.slack.webhook_url", "")
	v.SetDefault("notify.discord.webhook_url", "")
	v.SetDefault("notify.webhook.url", "")
	v.SetDefault("notify.webhook.secret", "")
	v.SetDefault("notify.webhook.method", "POST")
	v.SetDefault("notify.email.smtp_server", "")
	v.SetDefault("notify.email.smtp_port", 587)
	v.SetDefault("notify.email.username", "")
	v.SetDefault("notify.email.password", "")
	v.SetDefault("notify.email.from", "")
	v.SetDefault("notify.email.to", []string{})
	v.SetDefault("notify.email.use_tls", false)
	v.SetDefault("notify.kafka.brokers", []string{})
	v.SetDefault("notify.kafka.topic", AppName+".events")
	v.SetDefault("notify.kafka.write_timeout", 10*time.Second)
	v.SetDefault("notify.amqp.url", "")
	v.SetDefault("notify.amqp.exchange", "")
	v.SetDefault("notify.amqp.routing_key", AppName+".events")
	v.SetDefault("notify.elasticsearch.addresses", []string{})
	v.SetDefault("notify.elasticsearch.username", "")
	v.SetDefault("notify.elasticsearch.password", "")
	v.SetDefault("notify.elasticsearch.index", AppName+"-events")

	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", false)
	v.SetDefault("log.console", true)
}

// bindEnv maps IPSENTRY_* variables plus the legacy names onto config keys
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("notify.telegram.bot_token", EnvPrefix+"_NOTIFY_TELEGRAM_BOT_TOKEN", "BOT_TOKEN")
	_ = v.BindEnv("notify.telegram.chat_ids", EnvPrefix+"_NOTIFY_TELEGRAM_CHAT_IDS", "CHAT_ID")
	_ = v.BindEnv("monitor.label", EnvPrefix+"_MONITOR_LABEL", "LOCATION")

	// enabled flags have no default, so IsSet reports only explicit choices
	for _, ch := range []string{"telegram", "slack", "discord", "webhook", "email", "kafka", "amqp", "elasticsearch"} {
		key := "notify." + ch + ".enabled"
		_ = v.BindEnv(key, EnvPrefix+"_NOTIFY_"+strings.ToUpper(ch)+"_ENABLED")
	}
}

// applyDefaults fills values that depend on the host
func (cfg *Config) applyDefaults() {
	if cfg.Monitor.Label == "" {
		hostname, err := os.Hostname()
		if err != nil || hostname == "" {
			hostname = "localhost"
		}
		cfg.Monitor.Label = hostname
	}

	if cfg.Monitor.SaveTimeout <= 0 {
		cfg.Monitor.SaveTimeout = 5 * time.Second
	}

	if len(cfg.Resolver.Providers) == 0 {
		cfg.Resolver.Providers = DefaultProviders
	}

	cfg.Notify.Telegram.ChatIDs = splitList(cfg.Notify.Telegram.ChatIDs)
	cfg.Notify.Email.To = splitList(cfg.Notify.Email.To)
	cfg.Notify.Kafka.Brokers = splitList(cfg.Notify.Kafka.Brokers)
	cfg.Notify.Elasticsearch.Addresses = splitList(cfg.Notify.Elasticsearch.Addresses)
	cfg.Resolver.Providers = splitList(cfg.Resolver.Providers)

	logCfg := cfg.Log.SetDefaults()
	cfg.Log = *logCfg
}

// Validate validates the configuration
func (cfg *Config) Validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}

	if err := cfg.Monitor.Validate(); err != nil {
		return fmt.Errorf("invalid monitor config: %w", err)
	}

	if err := cfg.Store.Validate(); err != nil {
		return fmt.Errorf("invalid store config: %w", err)
	}

	if err := cfg.Notify.Validate(); err != nil {
		return fmt.Errorf("invalid notify config: %w", err)
	}

	if err := cfg.Log.Validate(); err != nil {
		return fmt.Errorf("invalid log config: %w", err)
	}

	return nil
}

// Validate validates monitor configuration
func (cfg *MonitorConfig) Validate() error {
	if cfg.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if cfg.BaseThreshold <= 0 {
		return fmt.Errorf("base_threshold must be positive")
	}
	if cfg.BaseThreshold < cfg.Interval {
		return fmt.Errorf("base_threshold must not be shorter than interval")
	}
	if cfg.ResolveTimeout <= 0 || cfg.NotifyTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// Validate validates store configuration
func (cfg *StoreConfig) Validate() error {
	switch cfg.Driver {
	case "file":
		if cfg.Path == "" {
			return fmt.Errorf("path is required for the file driver")
		}
	case "sqlite", "mysql", "postgres", "pgx":
		if cfg.DSN == "" {
			return fmt.Errorf("dsn is required for the %s driver", cfg.Driver)
		}
	case "redis":
		if cfg.Redis.Addr == "" || cfg.Redis.Key == "" {
			return fmt.Errorf("redis addr and key are required")
		}
	case "mongodb":
		if cfg.MongoDB.URI == "" || cfg.MongoDB.Collection == "" {
			return fmt.Errorf("mongodb uri and collection are required")
		}
	default:
		return fmt.Errorf("%w: %s", types.ErrInvalidDriver, cfg.Driver)
	}
	if err := cfg.ConnectRetry.Validate(); err != nil {
		return fmt.Errorf("connect_retry: %w", err)
	}
	return nil
}

// splitList flattens comma separated entries, env values arrive as one string
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
