package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	OTP      OTPConfig      `yaml:"otp"`
	Mail     MailConfig     `yaml:"mail"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// DSN is the pgx connection URL. Credentials are escaped, so passwords may
// contain spaces or quotes.
func (d DatabaseConfig) DSN() string {
	return d.url("postgres")
}

// MigrateURL is the connection URL understood by the golang-migrate pgx/v5 driver.
func (d DatabaseConfig) MigrateURL() string {
	return d.url("pgx5")
}

func (d DatabaseConfig) url(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingTopic       string   `yaml:"booking_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	Timezone            string `yaml:"timezone"`
	CatalogCacheTTLSecs int    `yaml:"catalog_cache_ttl_seconds"`
	BookingMadeSubject  string `yaml:"booking_made_subject"`
	NotificationRetries int    `yaml:"notification_retries"`
}

// Location resolves Timezone, falling back to UTC when it is empty.
func (b BookingConfig) Location() (*time.Location, error) {
	if b.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(b.Timezone)
}

type OTPConfig struct {
	TTLMinutes      int    `yaml:"ttl_minutes"`
	CooldownSeconds int    `yaml:"cooldown_seconds"`
	MaxAttempts     int    `yaml:"max_attempts"`
	Subject         string `yaml:"subject"`
}

type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	Issuer        string `yaml:"issuer"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the settings used for anything the config file leaves out.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{Address: ":8080"},
		GRPC: GRPCConfig{Address: ":9090"},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Kafka: KafkaConfig{
			BookingTopic:       "labers.bookings",
			NotificationsTopic: "labers.notifications",
			GroupID:            "labers-worker",
		},
		Booking: BookingConfig{
			CatalogCacheTTLSecs: 60,
			BookingMadeSubject:  "Your LABERS Booking",
			NotificationRetries: 3,
		},
		OTP: OTPConfig{
			TTLMinutes:      10,
			CooldownSeconds: 60,
			MaxAttempts:     3,
			Subject:         "Your LABERS Registration Verification Code",
		},
		Mail: MailConfig{Port: 587},
		Auth: AuthConfig{
			Issuer:        "labers",
			TokenTTLHours: 12,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

func (c *Config) applyEnv() {
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Mail.Password = getEnv("SMTP_PASSWORD", c.Mail.Password)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.HTTP.Address = getEnv("HTTP_ADDRESS", c.HTTP.Address)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = splitCSV(brokers)
	}
}

func (c *Config) Validate() error {
	var errs []string
	if c.Database.Name == "" {
		errs = append(errs, "database.name is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, "auth.jwt_secret must be at least 32 chars")
	}
	if c.OTP.TTLMinutes <= 0 {
		errs = append(errs, "otp.ttl_minutes must be > 0")
	}
	if c.OTP.CooldownSeconds <= 0 {
		errs = append(errs, "otp.cooldown_seconds must be > 0")
	}
	if c.OTP.MaxAttempts <= 0 {
		errs = append(errs, "otp.max_attempts must be > 0")
	}
	if _, err := c.Booking.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("booking.timezone: %v", err))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (o OTPConfig) TTL() time.Duration {
	return time.Duration(o.TTLMinutes) * time.Minute
}

func (o OTPConfig) Cooldown() time.Duration {
	return time.Duration(o.CooldownSeconds) * time.Second
}

func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLHours) * time.Hour
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trim := strings.TrimSpace(p)
		if trim != "" {
			out = append(out, trim)
		}
	}
	return out
}
