// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`

	JWTSecret    string `mapstructure:"JWT_SECRET"`
	JWTExpiresIn string `mapstructure:"JWT_EXPIRES_IN"`

	DBHost           string        `mapstructure:"DB_HOST"`
	DBPort           string        `mapstructure:"DB_PORT"`
	DBUser           string        `mapstructure:"DB_USER"`
	DBPassword       string        `mapstructure:"DB_PASSWORD"`
	DBName           string        `mapstructure:"DB_NAME"`
	DBSSLMode        string        `mapstructure:"DB_SSLMODE"`
	DBReadHost       string        `mapstructure:"DB_READ_HOST"`
	DBReadPort       string        `mapstructure:"DB_READ_PORT"`
	DBReadUser       string        `mapstructure:"DB_READ_USER"`
	DBReadPassword   string        `mapstructure:"DB_READ_PASSWORD"`
	DBConnectTimeout time.Duration `mapstructure:"DB_CONNECT_TIMEOUT"`

	RedisURL string `mapstructure:"REDIS_URL"`

	StorageDefault  string `mapstructure:"STORAGE_DEFAULT"`
	FileURLExpires  string `mapstructure:"FILE_URL_EXPIRES"`
	UploadMaxSizeMB int    `mapstructure:"UPLOAD_MAX_SIZE_MB"`

	OSSEndpoint        string `mapstructure:"OSS_ENDPOINT"`
	OSSAccessKeyID     string `mapstructure:"OSS_ACCESS_KEY_ID"`
	OSSAccessKeySecret string `mapstructure:"OSS_ACCESS_KEY_SECRET"`
	OSSBucket          string `mapstructure:"OSS_BUCKET"`
	OSSKeyPrefix       string `mapstructure:"OSS_KEY_PREFIX"`

	COSSecretID  string `mapstructure:"COS_SECRET_ID"`
	COSSecretKey string `mapstructure:"COS_SECRET_KEY"`
	COSBucket    string `mapstructure:"COS_BUCKET"`
	COSRegion    string `mapstructure:"COS_REGION"`
	COSKeyPrefix string `mapstructure:"COS_KEY_PREFIX"`

	RabbitMQURL      string `mapstructure:"RABBITMQ_URL"`
	RabbitMQExchange string `mapstructure:"RABBITMQ_EXCHANGE"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	TracingOTLPEndpoint string  `mapstructure:"TRACING_OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`

	DevBootstrapRoot        bool   `mapstructure:"DEV_BOOTSTRAP_ROOT"`
	DevRootUsername         string `mapstructure:"DEV_ROOT_USERNAME"`
	DevRootEmail            string `mapstructure:"DEV_ROOT_EMAIL"`
	DevRootPassword         string `mapstructure:"DEV_ROOT_PASSWORD"`
	DevRootForceCredentials bool   `mapstructure:"DEV_ROOT_FORCE_CREDENTIALS"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "3000")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("FEATURE_FLAGS", "")

	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("JWT_EXPIRES_IN", "7d")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "forum")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_READ_HOST", "")
	viper.SetDefault("DB_READ_PORT", "5432")
	viper.SetDefault("DB_READ_USER", "user")
	viper.SetDefault("DB_READ_PASSWORD", "password")
	viper.SetDefault("DB_CONNECT_TIMEOUT", "5s")

	viper.SetDefault("REDIS_URL", "localhost:6379")

	viper.SetDefault("STORAGE_DEFAULT", "oss")
	viper.SetDefault("FILE_URL_EXPIRES", "7d")
	viper.SetDefault("UPLOAD_MAX_SIZE_MB", 5)

	viper.SetDefault("OSS_ENDPOINT", "")
	viper.SetDefault("OSS_ACCESS_KEY_ID", "")
	viper.SetDefault("OSS_ACCESS_KEY_SECRET", "")
	viper.SetDefault("OSS_BUCKET", "")
	viper.SetDefault("OSS_KEY_PREFIX", "")

	viper.SetDefault("COS_SECRET_ID", "")
	viper.SetDefault("COS_SECRET_KEY", "")
	viper.SetDefault("COS_BUCKET", "")
	viper.SetDefault("COS_REGION", "")
	viper.SetDefault("COS_KEY_PREFIX", "uploads/")

	viper.SetDefault("RABBITMQ_URL", "")
	viper.SetDefault("RABBITMQ_EXCHANGE", "forum_events")

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("TRACING_OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)

	viper.SetDefault("DEV_BOOTSTRAP_ROOT", false)
	viper.SetDefault("DEV_ROOT_USERNAME", "forum_root")
	viper.SetDefault("DEV_ROOT_EMAIL", "root@forum.local")
	viper.SetDefault("DEV_ROOT_PASSWORD", "")
	viper.SetDefault("DEV_ROOT_FORCE_CREDENTIALS", false)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.StorageDefault = strings.ToLower(strings.TrimSpace(c.StorageDefault))
	if c.DBConnectTimeout <= 0 {
		c.DBConnectTimeout = 5 * time.Second
	}
}

// IsProduction reports whether the config targets a production profile.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// OSSConfigured reports whether OSS credentials and bucket are present.
func (c *Config) OSSConfigured() bool {
	return c.OSSEndpoint != "" && c.OSSAccessKeyID != "" && c.OSSAccessKeySecret != "" && c.OSSBucket != ""
}

// COSConfigured reports whether COS credentials and bucket are present.
func (c *Config) COSConfigured() bool {
	return c.COSSecretID != "" && c.COSSecretKey != "" && c.COSBucket != "" && c.COSRegion != ""
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.UploadMaxSizeMB <= 0 {
		return errors.New("UPLOAD_MAX_SIZE_MB must be positive")
	}
	switch c.StorageDefault {
	case "oss", "cos":
	default:
		return fmt.Errorf("STORAGE_DEFAULT must be oss or cos, got %q", c.StorageDefault)
	}

	// Strict checks for production
	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable TLS in production")
		}
		if c.StorageDefault == "oss" && !c.OSSConfigured() {
			return errors.New("OSS_* settings are required when STORAGE_DEFAULT=oss in production")
		}
		if c.StorageDefault == "cos" && !c.COSConfigured() {
			return errors.New("COS_* settings are required when STORAGE_DEFAULT=cos in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
