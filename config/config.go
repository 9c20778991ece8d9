// Package config loads service settings from the environment and optional .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/soundtech/meeting-backend/internal/token"
	"github.com/soundtech/meeting-backend/pkg/storage"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Token    TokenConfig
	Media    MediaConfig
	AWS      AWSConfig
	Redis    RedisConfig
	Worker   WorkerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	MaxUploadMB        int
}

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	URL  string // postgres://... or sqlite://path; takes precedence over Path
	Path string // SQLite file used when URL is empty
}

// TokenConfig holds the access token issuer credentials. There are no defaults.
type TokenConfig struct {
	Provider  string // zego or jwt
	AppID     string
	AppSecret string
}

// MediaConfig selects where recording blobs live.
type MediaConfig struct {
	Backend           string // local or s3
	Dir               string
	AllowedContainers string // comma-separated extensions
}

// AWSConfig holds AWS credentials and the recordings bucket.
type AWSConfig struct {
	Region           string
	AccessKeyID      string
	SecretAccessKey  string
	RecordingsBucket string
	KeyPrefix        string
}

// RedisConfig holds Redis connection settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	// DeadLetterRequeue is a cron spec for moving dead jobs back to the queue. Empty disables it.
	DeadLetterRequeue string
}

// DSN returns the store location passed to store.Open.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return c.Path
}

// MaxUploadBytes returns the upload body limit in bytes.
func (c ServerConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Origins returns the allowed CORS origins as a list.
func (c ServerConfig) Origins() []string {
	return splitTrim(c.CORSAllowedOrigins, ",")
}

// S3 returns the media store settings for the s3 backend.
func (c *Config) S3() storage.S3Config {
	return storage.S3Config{
		Region:          c.AWS.Region,
		AccessKeyID:     c.AWS.AccessKeyID,
		SecretAccessKey: c.AWS.SecretAccessKey,
		Bucket:          c.AWS.RecordingsBucket,
		Prefix:          c.AWS.KeyPrefix,
	}
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 300),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001"),
			MaxUploadMB:        getEnvInt("MAX_UPLOAD_MB", 500),
		},
		Database: DatabaseConfig{
			URL:  getEnv("DATABASE_URL", ""),
			Path: getEnv("DATABASE_PATH", "data/meeting.db"),
		},
		Token: TokenConfig{
			Provider:  getEnv("TOKEN_PROVIDER", token.ProviderZego),
			AppID:     getEnv("TOKEN_APP_ID", ""),
			AppSecret: getEnv("TOKEN_APP_SECRET", ""),
		},
		Media: MediaConfig{
			Backend:           getEnv("MEDIA_BACKEND", "local"),
			Dir:               getEnv("MEDIA_DIR", "recordings"),
			AllowedContainers: getEnv("ALLOWED_CONTAINERS", storage.DefaultContainers),
		},
		AWS: AWSConfig{
			Region:           getEnv("AWS_REGION", ""),
			AccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
			RecordingsBucket: getEnv("AWS_S3_RECORDINGS_BUCKET", ""),
			KeyPrefix:        getEnv("AWS_S3_KEY_PREFIX", "recordings"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Worker: WorkerConfig{
			DeadLetterRequeue: getEnv("WORKER_DLQ_REQUEUE", "@every 1h"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or malformed setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Token.AppID == "" {
		errs = append(errs, errors.New("TOKEN_APP_ID is required"))
	}
	if c.Token.AppSecret == "" {
		errs = append(errs, errors.New("TOKEN_APP_SECRET is required"))
	}
	switch c.Token.Provider {
	case token.ProviderZego, token.ProviderJWT:
	default:
		errs = append(errs, fmt.Errorf("TOKEN_PROVIDER %q is not one of zego, jwt", c.Token.Provider))
	}
	if c.Database.DSN() == "" {
		errs = append(errs, errors.New("DATABASE_URL or DATABASE_PATH is required"))
	}
	switch c.Media.Backend {
	case "local":
		if c.Media.Dir == "" {
			errs = append(errs, errors.New("MEDIA_DIR is required for the local media backend"))
		}
	case "s3":
		if c.AWS.Region == "" || c.AWS.RecordingsBucket == "" {
			errs = append(errs, errors.New("AWS_REGION and AWS_S3_RECORDINGS_BUCKET are required for the s3 media backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("MEDIA_BACKEND %q is not one of local, s3", c.Media.Backend))
	}
	if _, err := storage.ParseContainers(c.Media.AllowedContainers); err != nil {
		errs = append(errs, fmt.Errorf("ALLOWED_CONTAINERS: %w", err))
	}
	if c.Server.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}
	return errors.Join(errs...)
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
