package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Security SecurityConfig `mapstructure:"security"`
	Fee      FeeConfig      `mapstructure:"fee"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
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

type JWTConfig struct {
	Secret       string        `mapstructure:"secret"`
	Expiry       time.Duration `mapstructure:"expiry"`
	StepUpExpiry time.Duration `mapstructure:"step_up_expiry"` // Withdrawal step-up token lifetime
	Issuer       string        `mapstructure:"issuer"`
}

// SecurityConfig tunes the PIN/OTP verification gates.
type SecurityConfig struct {
	LockoutMaxAttempts int           `mapstructure:"lockout_max_attempts"`
	LockoutWindow      time.Duration `mapstructure:"lockout_window"`
	OTPTTL             time.Duration `mapstructure:"otp_ttl"`
	OTPResendCooldown  time.Duration `mapstructure:"otp_resend_cooldown"`
	OTPMaxAttempts     int           `mapstructure:"otp_max_attempts"`
	OTPProofWindow     time.Duration `mapstructure:"otp_proof_window"` // Validity of a verified OTP for PIN recovery
	HashConcurrency    int           `mapstructure:"hash_concurrency"` // Max concurrent argon2 computations
}

// FeeConfig is the platform fee model applied before withdrawal.
// Mode "fixed" charges Amount; mode "percent" charges
// max(Floor, round(total_received * Rate)).
type FeeConfig struct {
	Mode   string  `mapstructure:"mode"` // fixed, percent
	Amount int64   `mapstructure:"amount"`
	Rate   float64 `mapstructure:"rate"`
	Floor  int64   `mapstructure:"floor"`
}

type NotifyConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CPS_ (Creator Payout Service).
// Nested keys use underscore: CPS_DATABASE_HOST, CPS_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "creator_payouts")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.step_up_expiry", "10m")
	v.SetDefault("jwt.issuer", "creator-payout-service")
	v.SetDefault("security.lockout_max_attempts", 5)
	v.SetDefault("security.lockout_window", "1h")
	v.SetDefault("security.otp_ttl", "10m")
	v.SetDefault("security.otp_resend_cooldown", "60s")
	v.SetDefault("security.otp_max_attempts", 3)
	v.SetDefault("security.otp_proof_window", "10m")
	v.SetDefault("security.hash_concurrency", 4)
	v.SetDefault("fee.mode", "fixed")
	v.SetDefault("fee.amount", 0)
	v.SetDefault("fee.rate", 0)
	v.SetDefault("fee.floor", 0)
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: CPS_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
