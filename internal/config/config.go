package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Icons    IconsConfig    `mapstructure:"icons"`
	TTL      TTLConfig      `mapstructure:"ttl"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
	// JWTSecret signs device bearer tokens (HS256). Empty disables authentication.
	JWTSecret string `mapstructure:"jwt_secret"`
}

type StorageConfig struct {
	// Driver is "sqlite" (default, local file) or "postgres".
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type KafkaConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	Brokers         []string `mapstructure:"brokers"`
	ConsumerGroupID string   `mapstructure:"consumer_group_id"`
	Topics          []string `mapstructure:"topics"`
}

type WebhookConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond int           `mapstructure:"rate_per_second"`
}

type IconsConfig struct {
	Dir string `mapstructure:"dir"`
}

type TTLConfig struct {
	RetentionDays int    `mapstructure:"retention_days"` // 0 disables purging
	Schedule      string `mapstructure:"schedule"`       // cron spec
}

// Load reads configuration from environment variables and config files.
// Environment variables override file values. Prefix: NOTIFRELAY_
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", "8090")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite_path", "./data/notifications.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "notifrelay")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer_group_id", "notifrelay-group")
	v.SetDefault("kafka.topics", []string{"android-notifications", "capture-events"})
	v.SetDefault("webhook.timeout", 10*time.Second)
	v.SetDefault("webhook.rate_per_second", 5)
	v.SetDefault("icons.dir", "./data/notification_icons")
	v.SetDefault("ttl.retention_days", 0)
	v.SetDefault("ttl.schedule", "@daily")

	// Environment variables (e.g. NOTIFRELAY_STORAGE_DRIVER -> storage.driver)
	v.SetEnvPrefix("NOTIFRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Also support simple env vars without prefix for Docker Compose convenience.
	// Explicit bindings replace the automatic name, so the prefixed one is listed first.
	aliases := map[string]string{
		"database.host":     "DB_HOST",
		"database.port":     "DB_PORT",
		"database.name":     "DB_NAME",
		"database.user":     "DB_USER",
		"database.password": "DB_PASSWORD",
		"kafka.brokers":     "KAFKA_BROKERS",
		"server.port":       "PORT",
	}
	for key, alias := range aliases {
		prefixed := "NOTIFRELAY_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			return nil, err
		}
	}

	// Try loading config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // Not required

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" dbname=" + d.Name +
		" user=" + d.User +
		" password=" + d.Password +
		" sslmode=disable"
}
