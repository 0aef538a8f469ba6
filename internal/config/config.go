package config

import (
	"NYCU-SDC/survey-backend/internal/auth/oauthprovider"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const DefaultSecret = "default-secret"

const (
	StorageTypeDatabase = "database"
	StorageTypeLocal    = "local"
	StorageTypeMinIO    = "minio"
)

var (
	ErrDatabaseURLRequired = errors.New("database_url is required")
	ErrUnknownStorageType  = errors.New("unknown storage type")
)

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"   envconfig:"MINIO_ENDPOINT"`
	AccessKey string `yaml:"access_key" envconfig:"MINIO_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" envconfig:"MINIO_SECRET_KEY"`
	Bucket    string `yaml:"bucket"     envconfig:"MINIO_BUCKET"`
	UseSSL    bool   `yaml:"use_ssl"    envconfig:"MINIO_USE_SSL"`
	PublicURL string `yaml:"public_url" envconfig:"MINIO_PUBLIC_URL"`
}

type StorageConfig struct {
	Type     string      `yaml:"type"      envconfig:"STORAGE_TYPE"`
	LocalDir string      `yaml:"local_dir" envconfig:"LOCAL_STORAGE_DIR"`
	MinIO    MinIOConfig `yaml:"minio"`
}

type Config struct {
	Debug                  bool          `yaml:"debug"                    envconfig:"DEBUG"`
	Dev                    bool          `yaml:"dev"                      envconfig:"DEV"`
	Host                   string        `yaml:"host"                     envconfig:"HOST"`
	Port                   string        `yaml:"port"                     envconfig:"PORT"`
	BaseURL                string        `yaml:"base_url"                 envconfig:"BASE_URL"`
	Secret                 string        `yaml:"secret"                   envconfig:"SECRET"`
	DatabaseURL            string        `yaml:"database_url"             envconfig:"DATABASE_URL"`
	MigrationSource        string        `yaml:"migration_source"         envconfig:"MIGRATION_SOURCE"`
	OtelCollectorUrl       string        `yaml:"otel_collector_url"       envconfig:"OTEL_COLLECTOR_URL"`
	RedisURL               string        `yaml:"redis_url"                envconfig:"REDIS_URL"`
	AllowOrigins           []string      `yaml:"allow_origins"            envconfig:"CORS_ALLOWED_ORIGINS"`
	AccessTokenExpiration  time.Duration `yaml:"access_token_expiration"  envconfig:"ACCESS_TOKEN_EXPIRATION"`
	RefreshTokenExpiration time.Duration `yaml:"refresh_token_expiration" envconfig:"REFRESH_TOKEN_EXPIRATION"`
	DefaultVotingPeriod    time.Duration `yaml:"default_voting_period"    envconfig:"DEFAULT_VOTING_PERIOD"`
	MaxImageSize           int64         `yaml:"max_image_size"           envconfig:"MAX_IMAGE_SIZE"`
	ThumbnailCacheTTL      time.Duration `yaml:"thumbnail_cache_ttl"      envconfig:"THUMBNAIL_CACHE_TTL"`

	Storage StorageConfig `yaml:"storage"`

	GoogleOauth  oauthprovider.GoogleOauth  `yaml:"google_oauth"`
	GitHubOauth  oauthprovider.GitHubOauth  `yaml:"github_oauth"`
	TwitterOauth oauthprovider.TwitterOauth `yaml:"twitter_oauth"`
}

// LogBuffer keeps messages emitted while loading config, before the logger exists
type LogBuffer struct {
	entries []logEntry
}

type logEntry struct {
	level  string
	msg    string
	fields []zap.Field
}

func NewConfigLogger() *LogBuffer {
	return &LogBuffer{}
}

func (b *LogBuffer) Info(msg string, fields ...zap.Field) {
	b.entries = append(b.entries, logEntry{level: "info", msg: msg, fields: fields})
}

func (b *LogBuffer) Warn(msg string, fields ...zap.Field) {
	b.entries = append(b.entries, logEntry{level: "warn", msg: msg, fields: fields})
}

func (b *LogBuffer) FlushToZap(logger *zap.Logger) {
	for _, e := range b.entries {
		switch e.level {
		case "warn":
			logger.Warn(e.msg, e.fields...)
		default:
			logger.Info(e.msg, e.fields...)
		}
	}
	b.entries = nil
}

func defaultConfig() Config {
	return Config{
		Debug:                  false,
		Host:                   "localhost",
		Port:                   "8080",
		BaseURL:                "http://localhost:8080",
		Secret:                 DefaultSecret,
		MigrationSource:        "file://internal/database/migrations",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 720 * time.Hour,
		DefaultVotingPeriod:    24 * time.Hour,
		MaxImageSize:           5 << 20,
		ThumbnailCacheTTL:      7 * 24 * time.Hour,
		Storage: StorageConfig{
			Type:     StorageTypeDatabase,
			LocalDir: "uploads",
			MinIO: MinIOConfig{
				Bucket: "survey-images",
			},
		},
	}
}

// Load builds the config from defaults, an optional yaml file, .env, environment variables and flags,
// each layer overriding the previous one
func Load() (Config, *LogBuffer) {
	logger := NewConfigLogger()
	config := defaultConfig()

	configFilePath := os.Getenv("CONFIG_FILE")
	if configFilePath == "" {
		configFilePath = "config.yaml"
	}

	var err error
	config, err = FromFile(configFilePath, config, logger)
	if err != nil {
		logger.Warn("Failed to load config from file", zap.Error(err), zap.String("path", configFilePath))
	}

	err = godotenv.Load()
	if err != nil {
		logger.Info("No .env file loaded", zap.String("reason", err.Error()))
	}

	config, err = FromEnv(config, logger)
	if err != nil {
		logger.Warn("Failed to load config from env", zap.Error(err))
	}

	config = FromFlags(config, os.Args[1:], logger)

	return config, logger
}

func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrDatabaseURLRequired
	}

	switch c.Storage.Type {
	case StorageTypeDatabase, StorageTypeLocal, StorageTypeMinIO:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorageType, c.Storage.Type)
	}

	return nil
}

func FromFile(filePath string, config Config, logger *LogBuffer) (Config, error) {
	if _, err := os.Stat(filePath); err != nil {
		logger.Info("Config file not found, skipping", zap.String("path", filePath))
		return config, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return config, err
	}

	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}

	logger.Info("Loaded config from file", zap.String("path", filePath))
	return config, nil
}

func FromEnv(config Config, logger *LogBuffer) (Config, error) {
	var errs []error

	setString(&config.Host, "HOST")
	setString(&config.Port, "PORT")
	setString(&config.BaseURL, "BASE_URL")
	setString(&config.Secret, "SECRET")
	setString(&config.DatabaseURL, "DATABASE_URL")
	setString(&config.MigrationSource, "MIGRATION_SOURCE")
	setString(&config.OtelCollectorUrl, "OTEL_COLLECTOR_URL")
	setString(&config.RedisURL, "REDIS_URL")

	setString(&config.Storage.Type, "STORAGE_TYPE")
	setString(&config.Storage.LocalDir, "LOCAL_STORAGE_DIR")
	setString(&config.Storage.MinIO.Endpoint, "MINIO_ENDPOINT")
	setString(&config.Storage.MinIO.AccessKey, "MINIO_ACCESS_KEY")
	setString(&config.Storage.MinIO.SecretKey, "MINIO_SECRET_KEY")
	setString(&config.Storage.MinIO.Bucket, "MINIO_BUCKET")
	setString(&config.Storage.MinIO.PublicURL, "MINIO_PUBLIC_URL")

	setString(&config.GoogleOauth.ClientID, "GOOGLE_OAUTH_CLIENT_ID")
	setString(&config.GoogleOauth.ClientSecret, "GOOGLE_OAUTH_CLIENT_SECRET")
	setString(&config.GitHubOauth.ClientID, "GITHUB_OAUTH_CLIENT_ID")
	setString(&config.GitHubOauth.ClientSecret, "GITHUB_OAUTH_CLIENT_SECRET")
	setString(&config.TwitterOauth.ClientID, "TWITTER_OAUTH_CLIENT_ID")
	setString(&config.TwitterOauth.ClientSecret, "TWITTER_OAUTH_CLIENT_SECRET")

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		config.AllowOrigins = splitAndTrim(origins)
	}

	errs = append(errs,
		setBool(&config.Debug, "DEBUG"),
		setBool(&config.Dev, "DEV"),
		setBool(&config.Storage.MinIO.UseSSL, "MINIO_USE_SSL"),
		setDuration(&config.AccessTokenExpiration, "ACCESS_TOKEN_EXPIRATION"),
		setDuration(&config.RefreshTokenExpiration, "REFRESH_TOKEN_EXPIRATION"),
		setDuration(&config.DefaultVotingPeriod, "DEFAULT_VOTING_PERIOD"),
		setInt64(&config.MaxImageSize, "MAX_IMAGE_SIZE"),
		setDuration(&config.ThumbnailCacheTTL, "THUMBNAIL_CACHE_TTL"),
	)

	err := errors.Join(errs...)
	if err == nil {
		logger.Info("Loaded config from environment")
	}
	return config, err
}

func FromFlags(config Config, args []string, logger *LogBuffer) Config {
	flagSet := flag.NewFlagSet("survey-backend", flag.ContinueOnError)

	host := flagSet.String("host", config.Host, "host to listen on")
	port := flagSet.String("port", config.Port, "port to listen on")
	debug := flagSet.Bool("debug", config.Debug, "enable debug logging")
	databaseURL := flagSet.String("database_url", config.DatabaseURL, "postgres connection url")

	err := flagSet.Parse(args)
	if err != nil {
		logger.Warn("Failed to parse flags, ignoring them", zap.Error(err))
		return config
	}

	config.Host = *host
	config.Port = *port
	config.Debug = *debug
	config.DatabaseURL = *databaseURL

	return config
}

func setString(target *string, key string) {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		*target = value
	}
}

func setBool(target *bool, key string) error {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*target = parsed
	return nil
}

func setDuration(target *time.Duration, key string) error {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*target = parsed
	return nil
}

func setInt64(target *int64, key string) error {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return nil
	}

	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*target = parsed
	return nil
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
