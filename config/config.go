package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Outbox   OutboxConfig   `mapstructure:"outbox"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // postgres, memory
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LockTimeout     time.Duration `mapstructure:"lock_timeout"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type KafkaConfig struct {
	Brokers       []string     `mapstructure:"brokers"` // empty = log sink
	ClientID      string       `mapstructure:"client_id"`
	ConsumerGroup string       `mapstructure:"consumer_group"`
	Topics        TopicsConfig `mapstructure:"topics"`
}

// Enabled reports whether at least one broker is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type TopicsConfig struct {
	InventoryUpdates    string `mapstructure:"inventory_updates"`
	SellerNotifications string `mapstructure:"seller_notifications"`
	WalletNotifications string `mapstructure:"wallet_notifications"`
	TransactionAudit    string `mapstructure:"transaction_audit"`
}

// All returns every configured topic.
func (t TopicsConfig) All() []string {
	return []string{t.InventoryUpdates, t.SellerNotifications, t.WalletNotifications, t.TransactionAudit}
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type OutboxConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	Lease        time.Duration `mapstructure:"lease"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	DedupeTTL    time.Duration `mapstructure:"dedupe_ttl"`
}

// WalletConfig tunes Argon2id for PIN hashing.
type WalletConfig struct {
	ArgonMemoryKB   uint32 `mapstructure:"argon_memory_kb"`
	ArgonIterations uint32 `mapstructure:"argon_iterations"`
	ArgonThreads    uint8  `mapstructure:"argon_threads"`
}

type PaymentConfig struct {
	Mode         string `mapstructure:"mode"` // approve, decline, limit
	ApproveLimit string `mapstructure:"approve_limit"`
}

// Limit parses ApproveLimit; an empty value means zero.
func (p PaymentConfig) Limit() (decimal.Decimal, error) {
	if p.ApproveLimit == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(p.ApproveLimit)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing payment.approve_limit: %w", err)
	}
	return d, nil
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: MKT_.
// Nested keys use underscore: MKT_DATABASE_HOST, MKT_KAFKA_BROKERS, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("storage.driver", StoragePostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "marketplace")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.lock_timeout", "5s")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.client_id", "marketplace-settlement")
	v.SetDefault("kafka.consumer_group", "marketplace-consumers")
	v.SetDefault("kafka.topics.inventory_updates", "inventory-updates")
	v.SetDefault("kafka.topics.seller_notifications", "seller-notifications")
	v.SetDefault("kafka.topics.wallet_notifications", "wallet-notifications")
	v.SetDefault("kafka.topics.transaction_audit", "transaction-audit")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "marketplace-settlement")
	v.SetDefault("outbox.poll_interval", "2s")
	v.SetDefault("outbox.batch_size", 50)
	v.SetDefault("outbox.lease", "30s")
	v.SetDefault("outbox.max_attempts", 10)
	v.SetDefault("outbox.dedupe_ttl", "72h")
	v.SetDefault("wallet.argon_memory_kb", 64*1024)
	v.SetDefault("wallet.argon_iterations", 1)
	v.SetDefault("wallet.argon_threads", 4)
	v.SetDefault("payment.mode", "approve")
	v.SetDefault("payment.approve_limit", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// MKT_DATABASE_HOST -> database.host
	v.SetEnvPrefix("MKT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing file is fine; env vars can suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Payment.Mode {
	case "approve", "decline", "limit":
	default:
		return fmt.Errorf("unknown payment.mode %q", c.Payment.Mode)
	}
	if _, err := c.Payment.Limit(); err != nil {
		return err
	}
	if c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("outbox.batch_size must be positive")
	}
	return nil
}
