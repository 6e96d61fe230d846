package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends understood by STORAGE_TYPE.
const (
	StorageLocal    = "localstorage"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Storage  StorageConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	SiteName              string
	RequestTimeoutSeconds int
}

// StorageConfig selects the user persistence backend.
type StorageConfig struct {
	Type string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
//
// OwnerUsername/OwnerPassword are the site owner's credentials; in local mode only the
// password is used. JWTSecret falls back to OwnerPassword and an empty secret means the
// deployment is insecure.
type AuthConfig struct {
	OwnerUsername            string
	OwnerPassword            string
	JWTSecret                string
	AccessTokenTTLMinutes    int
	RefreshTokenTTLHours     int
	RefreshRotateBeforeHours int
	RegistrySweepMinutes     int
	BcryptCost               int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	storageType := strings.ToLower(getEnv("STORAGE_TYPE", StorageLocal))
	switch storageType {
	case StorageLocal, StorageRedis, StoragePostgres:
	default:
		return nil, fmt.Errorf("invalid STORAGE_TYPE %q", storageType)
	}

	ownerPassword := os.Getenv("PASSWORD")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "vodhub"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			SiteName:              getEnv("SITE_NAME", "VodHub"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Storage: StorageConfig{
			Type: storageType,
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			OwnerUsername:            os.Getenv("USERNAME"),
			OwnerPassword:            ownerPassword,
			JWTSecret:                getEnv("AUTH_JWT_SECRET", ownerPassword),
			AccessTokenTTLMinutes:    getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			RefreshTokenTTLHours:     getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_HOURS", 30*24),
			RefreshRotateBeforeHours: getEnvAsInt("AUTH_REFRESH_ROTATE_BEFORE_HOURS", 7*24),
			RegistrySweepMinutes:     getEnvAsInt("AUTH_REGISTRY_SWEEP_MINUTES", 60),
			BcryptCost:               getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// LocalMode reports whether the deployment uses single-password login.
func (s StorageConfig) LocalMode() bool {
	return s.Type == StorageLocal
}

// AccessTTL returns the access token lifetime.
func (a AuthConfig) AccessTTL() time.Duration {
	return durationOr(a.AccessTokenTTLMinutes, time.Minute, time.Hour)
}

// RefreshTTL returns the refresh token lifetime.
func (a AuthConfig) RefreshTTL() time.Duration {
	return durationOr(a.RefreshTokenTTLHours, time.Hour, 30*24*time.Hour)
}

// RotateBefore returns the remaining-lifetime threshold under which refresh tokens rotate.
func (a AuthConfig) RotateBefore() time.Duration {
	return durationOr(a.RefreshRotateBeforeHours, time.Hour, 7*24*time.Hour)
}

// SweepInterval returns how often the refresh registry drops expired records.
func (a AuthConfig) SweepInterval() time.Duration {
	return durationOr(a.RegistrySweepMinutes, time.Minute, time.Hour)
}

// Secured reports whether a signing secret is configured.
func (a AuthConfig) Secured() bool {
	return a.JWTSecret != ""
}

func durationOr(n int, unit, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * unit
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
