package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	EnvDevelopment = "development"
	EnvTesting     = "testing"
	EnvProduction  = "production"
)

type Config struct {
	Env        string
	ServerPort int
	LogLevel   string
	SecretKey  string
	Auth       AuthConfig
	Database   DatabaseConfig
	MQ         MQConfig
	Storage    StorageConfig
}

// AuthConfig holds the credential settings. Token lifetime is the sum of
// TokenExpirationDays and TokenExpirationSeconds.
type AuthConfig struct {
	BcryptRounds           int
	TokenExpirationDays    int
	TokenExpirationSeconds int
}

// TokenTTL returns the configured token lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenExpirationDays)*24*time.Hour +
		time.Duration(a.TokenExpirationSeconds)*time.Second
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

// DSN returns URL when set, otherwise a postgres URL built from the parts.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}

	sslmode := "disable"
	if d.UseSSL {
		sslmode = "require"
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		User:   url.UserPassword(d.User, d.Password),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}

type MQConfig struct {
	// Backend is "rabbitmq", "pubsub" or empty to disable account events.
	Backend  string
	Channel  string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	PrefetchCount   int
	QueueDurable    bool
	QueueAutoDelete bool
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

type StorageConfig struct {
	// Backend is "minio", "gcs" or empty when exports are disabled.
	Backend string
	Minio   MinioConfig
	GCS     GCSConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

type profile struct {
	bcryptRounds           int
	tokenExpirationDays    int
	tokenExpirationSeconds int
}

var profiles = map[string]profile{
	EnvDevelopment: {bcryptRounds: 4, tokenExpirationDays: 30},
	EnvTesting:     {bcryptRounds: 4, tokenExpirationSeconds: 3},
	EnvProduction:  {bcryptRounds: 13, tokenExpirationDays: 30},
}

// LoadConfig reads the process configuration from the environment. It is
// called once at startup; the result is treated as immutable.
func LoadConfig() (Config, error) {
	env := strings.ToLower(getEnv("APP_ENV", EnvDevelopment))
	if env == EnvDevelopment {
		_ = godotenv.Load()
	}

	p, ok := profiles[env]
	if !ok {
		return Config{}, fmt.Errorf("unknown APP_ENV %q", env)
	}

	var errs []error
	intVar := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	boolVar := func(key string, def bool) bool {
		v, err := getEnvBool(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	dbURL := getEnv("DATABASE_URL", "")
	if env == EnvTesting {
		dbURL = getEnv("DATABASE_TEST_URL", dbURL)
	}

	cfg := Config{
		Env:        env,
		ServerPort: intVar("SERVER_PORT", 8080),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		SecretKey:  strings.TrimSpace(getEnv("SECRET_KEY", "")),
		Auth: AuthConfig{
			BcryptRounds:           intVar("BCRYPT_LOG_ROUNDS", p.bcryptRounds),
			TokenExpirationDays:    intVar("TOKEN_EXPIRATION_DAYS", p.tokenExpirationDays),
			TokenExpirationSeconds: intVar("TOKEN_EXPIRATION_SECONDS", p.tokenExpirationSeconds),
		},
		Database: DatabaseConfig{
			URL:      dbURL,
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     intVar("DB_PORT", 5432),
			User:     getEnv("DB_USER", "users"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "users_db"),
			UseSSL:   boolVar("DB_SSL", false),
		},
		MQ: MQConfig{
			Backend: strings.ToLower(getEnv("MQ_BACKEND", "")),
			Channel: getEnv("MQ_CHANNEL", "account-events"),
			RabbitMQ: RabbitMQConfig{
				URL:             getEnv("RABBITMQ_URL", ""),
				PrefetchCount:   intVar("RABBITMQ_PREFETCH", 10),
				QueueDurable:    boolVar("RABBITMQ_DURABLE", true),
				QueueAutoDelete: boolVar("RABBITMQ_AUTO_DELETE", false),
			},
			PubSub: PubSubConfig{
				ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
				CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
				SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
			},
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(getEnv("STORAGE_BACKEND", "")),
			Minio: MinioConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", "users-exports"),
				UseSSL:    boolVar("MINIO_USE_SSL", false),
			},
			GCS: GCSConfig{
				Bucket:          getEnv("GCS_BUCKET", ""),
				ProjectID:       getEnv("GCS_PROJECT_ID", ""),
				CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
			},
		},
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks invariants that LoadConfig cannot express through defaults.
func (c Config) Validate() error {
	if c.SecretKey == "" {
		return errors.New("SECRET_KEY is required")
	}
	if c.Auth.BcryptRounds < bcrypt.MinCost || c.Auth.BcryptRounds > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_LOG_ROUNDS must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Auth.TokenExpirationDays < 0 || c.Auth.TokenExpirationSeconds < 0 {
		return errors.New("token expiration must not be negative")
	}
	switch c.MQ.Backend {
	case "", "rabbitmq", "pubsub":
	default:
		return fmt.Errorf("unknown MQ_BACKEND %q", c.MQ.Backend)
	}
	switch c.Storage.Backend {
	case "", "minio", "gcs":
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		return defaultValue, fmt.Errorf("%s: invalid integer %q", key, valueStr)
	}
	return value, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
	if err != nil {
		return defaultValue, fmt.Errorf("%s: invalid boolean %q", key, valueStr)
	}
	return value, nil
}
