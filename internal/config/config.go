package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Auth     AuthConfig     `json:"auth"`
	Storage  StorageConfig  `json:"storage"`
	Precheck PrecheckConfig `json:"precheck"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	CORSOrigin   string        `json:"cors_origin"`
}

// DatabaseConfig represents PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

// AuthConfig represents session and password-reset settings
type AuthConfig struct {
	JWTSecret     string        `json:"jwt_secret"`
	TokenTTL      time.Duration `json:"token_ttl"`
	ResetTokenTTL time.Duration `json:"reset_token_ttl"`
}

// StorageConfig represents the S3 bucket holding listing files
type StorageConfig struct {
	Region     string        `json:"region"`
	Bucket     string        `json:"bucket"`
	PresignTTL time.Duration `json:"presign_ttl"`
}

// PrecheckConfig represents the upstream pre-check integration.
// SharedSecret authenticates the pre-check callback endpoint.
type PrecheckConfig struct {
	SharedSecret string `json:"shared_secret"`
}

// LoggingConfig represents logging settings
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    os.Getenv("USER"),
			DBName:  "havenhomes",
			SSLMode: "disable",
		},
		Auth: AuthConfig{
			TokenTTL:      24 * time.Hour,
			ResetTokenTTL: 30 * time.Minute,
		},
		Storage: StorageConfig{
			Region:     "eu-west-1",
			Bucket:     "havenhomes-listing-files",
			PresignTTL: 15 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info"},
	}

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	overrideWithEnv(config)

	if config.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required (set JWT_SECRET)")
	}

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if origin := os.Getenv("CORS_ORIGIN"); origin != "" {
		config.Server.CORSOrigin = origin
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DATABASE_PORT"); dbPort != "" {
		if p, err := strconv.Atoi(dbPort); err == nil {
			config.Database.Port = p
		}
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if region := os.Getenv("STORAGE_REGION"); region != "" {
		config.Storage.Region = region
	}
	if bucket := os.Getenv("STORAGE_BUCKET"); bucket != "" {
		config.Storage.Bucket = bucket
	}
	if secret := os.Getenv("PRECHECK_SHARED_SECRET"); secret != "" {
		config.Precheck.SharedSecret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
