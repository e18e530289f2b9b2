package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_DefaultsAndOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  user: labers
  name: labers
auth:
  jwt_secret: "0123456789abcdef0123456789abcdef"
otp:
  cooldown_seconds: 30
`)
	t.Setenv("DB_PASSWORD", "from-env")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 10*time.Minute, cfg.OTP.TTL())
	assert.Equal(t, 30*time.Second, cfg.OTP.Cooldown())
	assert.Equal(t, 3, cfg.OTP.MaxAttempts)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
}

func TestLoadConfig_ValidationErrors(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: short
booking:
  timezone: Nowhere/Invalid
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.name is required")
	assert.Contains(t, err.Error(), "auth.jwt_secret must be at least 32 chars")
	assert.Contains(t, err.Error(), "booking.timezone")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestDatabaseConfig_MigrateURL(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", Name: "labers", SSLMode: "disable"}
	assert.Equal(t, "pgx5://u:p%40ss@db:5432/labers?sslmode=disable", d.MigrateURL())
}

func TestDatabaseConfig_DSNEscapesCredentials(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "lab user", Password: `p a'ss"word=1`, Name: "labers", SSLMode: "disable"}

	parsed, err := pgx.ParseConfig(d.DSN())
	require.NoError(t, err)
	assert.Equal(t, "db", parsed.Host)
	assert.Equal(t, uint16(5432), parsed.Port)
	assert.Equal(t, "lab user", parsed.User)
	assert.Equal(t, `p a'ss"word=1`, parsed.Password)
	assert.Equal(t, "labers", parsed.Database)
}
