package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T, env string) {
	t.Helper()
	t.Setenv("APP_ENV", env)
	t.Setenv("SECRET_KEY", "my_precious")
	t.Setenv("DATABASE_URL", "postgres://users:pw@db:5432/users_dev?sslmode=disable")
	t.Setenv("DATABASE_TEST_URL", "postgres://users:pw@db:5432/users_test?sslmode=disable")
}

func TestLoadConfig_Development(t *testing.T) {
	setBaseEnv(t, EnvDevelopment)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "my_precious", cfg.SecretKey)
	assert.Equal(t, "postgres://users:pw@db:5432/users_dev?sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, 4, cfg.Auth.BcryptRounds)
	assert.Equal(t, 30, cfg.Auth.TokenExpirationDays)
	assert.Equal(t, 0, cfg.Auth.TokenExpirationSeconds)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.TokenTTL())
}

func TestLoadConfig_Testing(t *testing.T) {
	setBaseEnv(t, EnvTesting)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres://users:pw@db:5432/users_test?sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, 4, cfg.Auth.BcryptRounds)
	assert.Equal(t, 0, cfg.Auth.TokenExpirationDays)
	assert.Equal(t, 3, cfg.Auth.TokenExpirationSeconds)
	assert.Equal(t, 3*time.Second, cfg.Auth.TokenTTL())
}

func TestLoadConfig_Production(t *testing.T) {
	setBaseEnv(t, EnvProduction)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 13, cfg.Auth.BcryptRounds)
	assert.Equal(t, 30, cfg.Auth.TokenExpirationDays)
	assert.Equal(t, 0, cfg.Auth.TokenExpirationSeconds)
}

func TestLoadConfig_Overrides(t *testing.T) {
	setBaseEnv(t, EnvProduction)
	t.Setenv("BCRYPT_LOG_ROUNDS", "6")
	t.Setenv("TOKEN_EXPIRATION_DAYS", "1")
	t.Setenv("TOKEN_EXPIRATION_SECONDS", "30")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Auth.BcryptRounds)
	assert.Equal(t, 24*time.Hour+30*time.Second, cfg.Auth.TokenTTL())
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"missing secret", "SECRET_KEY", ""},
		{"bad integer", "SERVER_PORT", "eighty"},
		{"cost too low", "BCRYPT_LOG_ROUNDS", "2"},
		{"cost too high", "BCRYPT_LOG_ROUNDS", "40"},
		{"negative ttl", "TOKEN_EXPIRATION_SECONDS", "-1"},
		{"bad bool", "DB_SSL", "maybe"},
		{"unknown mq", "MQ_BACKEND", "kafka"},
		{"unknown storage", "STORAGE_BACKEND", "ftp"},
		{"unknown env", "APP_ENV", "staging"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t, EnvTesting)
			t.Setenv(tc.key, tc.val)

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestDatabaseConfig_DSNFromParts(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "users",
		Password: "p@ss",
		DBName:   "users_db",
		UseSSL:   true,
	}

	assert.Equal(t, "postgres://users:p%40ss@db:5433/users_db?sslmode=require", d.DSN())
}
