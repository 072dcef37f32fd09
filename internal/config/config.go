package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port        string `yaml:"port" env:"SERVER_PORT"`
		Mode        string `yaml:"mode" env:"SERVER_MODE"`
		PublicURL   string `yaml:"public_url" env:"SERVER_PUBLIC_URL"`
		FrontendURL string `yaml:"frontend_url" env:"SERVER_FRONTEND_URL"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MigrationsDir   string `yaml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`
	} `yaml:"database"`

	JWT struct {
		Secret                 string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration  string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		RefreshTokenExpiration string `yaml:"refresh_token_expiration" env:"JWT_REFRESH_TOKEN_EXPIRATION"`
		Issuer                 string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
	} `yaml:"redis"`

	Storage struct {
		Path          string        `yaml:"path" env:"STORAGE_PATH"`
		Bucket        string        `yaml:"bucket" env:"STORAGE_BUCKET"`
		SignedURLTTL  time.Duration `yaml:"signed_url_ttl" env:"STORAGE_SIGNED_URL_TTL"`
		MaxUploadSize int64         `yaml:"max_upload_size" env:"STORAGE_MAX_UPLOAD_SIZE"`
	} `yaml:"storage"`

	Casdoor struct {
		Endpoint     string `yaml:"endpoint" env:"CASDOOR_ENDPOINT"`
		ClientID     string `yaml:"client_id" env:"CASDOOR_CLIENT_ID"`
		ClientSecret string `yaml:"client_secret" env:"CASDOOR_CLIENT_SECRET"`
		Certificate  string `yaml:"certificate" env:"CASDOOR_CERTIFICATE"`
		Organization string `yaml:"organization" env:"CASDOOR_ORGANIZATION"`
		Application  string `yaml:"application" env:"CASDOOR_APPLICATION"`
		RedirectURL  string `yaml:"redirect_url" env:"CASDOOR_REDIRECT_URL"`
	} `yaml:"casdoor"`

	Kafka struct {
		Brokers       []string `yaml:"brokers" env:"KAFKA_BROKERS"`
		ConsumerGroup string   `yaml:"consumer_group" env:"KAFKA_CONSUMER_GROUP"`
	} `yaml:"kafka"`

	Sentry struct {
		DSN              string  `yaml:"dsn" env:"SENTRY_DSN"`
		Environment      string  `yaml:"environment" env:"SENTRY_ENVIRONMENT"`
		TracesSampleRate float64 `yaml:"traces_sample_rate" env:"SENTRY_TRACES_SAMPLE_RATE"`
	} `yaml:"sentry"`

	App struct {
		PublicPaths         []string      `yaml:"public_paths" env:"APP_PUBLIC_PATHS"`
		RoleCacheTTL        time.Duration `yaml:"role_cache_ttl" env:"APP_ROLE_CACHE_TTL"`
		WatermarkURL        string        `yaml:"watermark_url" env:"APP_WATERMARK_URL"`
		WatermarkTimeout    time.Duration `yaml:"watermark_timeout" env:"APP_WATERMARK_TIMEOUT"`
		AdminEmail          string        `yaml:"admin_email" env:"APP_ADMIN_EMAIL"`
		AdminPassword       string        `yaml:"admin_password" env:"APP_ADMIN_PASSWORD"`
		ConversationPageMax int           `yaml:"conversation_page_max" env:"APP_CONVERSATION_PAGE_MAX"`
	} `yaml:"app"`
}

// LoadConfig loads configuration from defaults, an optional YAML file, an optional
// .env file and finally the process environment, in that order of precedence.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// .env only fills variables that are not already exported.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.PublicURL = "http://localhost:8080"
	config.Server.FrontendURL = "http://localhost:5173"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "univgates"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MigrationsDir = "migrations"

	config.JWT.AccessTokenExpiration = "1h"
	config.JWT.RefreshTokenExpiration = "720h"
	config.JWT.Issuer = "univgates.app"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Redis.Addr = "localhost:6379"

	config.Storage.Path = "./uploads"
	config.Storage.Bucket = "chat-attachments"
	config.Storage.SignedURLTTL = 15 * time.Minute
	config.Storage.MaxUploadSize = 20 << 20

	config.Kafka.ConsumerGroup = "univgates-api"

	config.Sentry.Environment = "development"
	config.Sentry.TracesSampleRate = 0.1

	config.App.PublicPaths = []string{"/", "/auth", "/auth/*", "/privacy", "/terms", "/coming-soon"}
	config.App.RoleCacheTTL = 5 * time.Minute
	config.App.WatermarkTimeout = 30 * time.Second
	config.App.ConversationPageMax = 200
}

func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if _, err := time.ParseDuration(config.JWT.AccessTokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT access token expiration format: %w", err)
	}

	if _, err := time.ParseDuration(config.JWT.RefreshTokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT refresh token expiration format: %w", err)
	}

	if config.Storage.SignedURLTTL <= 0 {
		return fmt.Errorf("storage signed url ttl must be positive")
	}

	if config.Storage.MaxUploadSize <= 0 {
		return fmt.Errorf("storage max upload size must be positive")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// AccessTokenTTL returns the parsed access token lifetime. LoadConfig has already validated it.
func (c *Config) AccessTokenTTL() time.Duration {
	d, err := time.ParseDuration(c.JWT.AccessTokenExpiration)
	if err != nil {
		return time.Hour
	}
	return d
}

// RefreshTokenTTL returns the parsed refresh token lifetime.
func (c *Config) RefreshTokenTTL() time.Duration {
	d, err := time.ParseDuration(c.JWT.RefreshTokenExpiration)
	if err != nil {
		return 720 * time.Hour
	}
	return d
}

// CasdoorEnabled reports whether OAuth sign-in is configured.
func (c *Config) CasdoorEnabled() bool {
	return c.Casdoor.Endpoint != "" && c.Casdoor.ClientID != ""
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Mode == "production"
}
