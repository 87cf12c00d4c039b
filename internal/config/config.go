// Package config loads the daemon settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Security SecurityConfig
	CORS     CORSConfig
	Logging  LoggingConfig
	Storage  StorageConfig
	Sync     SyncConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port int
	Host string
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds database connection settings. An empty URL selects
// the file store.
type DatabaseConfig struct {
	URL         string
	AutoMigrate bool
}

// SecurityConfig holds the control API credentials
type SecurityConfig struct {
	JWTSecret         string
	AdminPasswordHash string
	TokenTTL          time.Duration
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// StorageConfig locates downloaded assets and file-store documents
type StorageConfig struct {
	DataDir string
}

// SyncConfig seeds the sync params until they are saved through the API
type SyncConfig struct {
	RepoURL      string
	Token        string
	Transport    string // github, git
	Interval     time.Duration
	GitBranch    string
	GitHost      string
	GitHubAPIURL string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	if err := cfg.loadServer(); err != nil {
		return nil, fmt.Errorf("load server config: %w", err)
	}
	if err := cfg.loadDatabase(); err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}
	if err := cfg.loadSecurity(); err != nil {
		return nil, fmt.Errorf("load security config: %w", err)
	}
	cfg.loadCORS()
	cfg.loadLogging()
	cfg.loadStorage()
	if err := cfg.loadSync(); err != nil {
		return nil, fmt.Errorf("load sync config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadServer() error {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	c.Server.Port = port
	c.Server.Host = getEnvOrDefault("HOST", "127.0.0.1")
	return nil
}

func (c *Config) loadDatabase() error {
	c.Database.URL = os.Getenv("DATABASE_URL")
	auto, err := strconv.ParseBool(getEnvOrDefault("DB_AUTO_MIGRATE", "true"))
	if err != nil {
		return fmt.Errorf("invalid DB_AUTO_MIGRATE: %w", err)
	}
	c.Database.AutoMigrate = auto
	return nil
}

func (c *Config) loadSecurity() error {
	c.Security.JWTSecret = os.Getenv("JWT_SECRET")
	c.Security.AdminPasswordHash = os.Getenv("ADMIN_PASSWORD_HASH")
	ttl, err := time.ParseDuration(getEnvOrDefault("TOKEN_TTL", "24h"))
	if err != nil {
		return fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	c.Security.TokenTTL = ttl
	return nil
}

func (c *Config) loadCORS() {
	originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	if originsEnv == "" {
		c.CORS.AllowedOrigins = []string{"http://localhost:5173", "tauri://localhost"}
		return
	}
	for _, origin := range strings.Split(originsEnv, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			c.CORS.AllowedOrigins = append(c.CORS.AllowedOrigins, trimmed)
		}
	}
}

func (c *Config) loadLogging() {
	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", "info")
	c.Logging.Format = getEnvOrDefault("LOG_FORMAT", "json")
}

func (c *Config) loadStorage() {
	c.Storage.DataDir = getEnvOrDefault("MUSICFREE_DATA_DIR", filepath.Join(xdg.DataHome, "musicfree"))
}

func (c *Config) loadSync() error {
	c.Sync.RepoURL = os.Getenv("SYNC_REPO_URL")
	c.Sync.Token = os.Getenv("GITHUB_TOKEN")
	c.Sync.Transport = getEnvOrDefault("SYNC_TRANSPORT", "github")
	c.Sync.GitBranch = getEnvOrDefault("SYNC_GIT_BRANCH", "main")
	c.Sync.GitHost = getEnvOrDefault("SYNC_GIT_HOST", "github.com")
	c.Sync.GitHubAPIURL = getEnvOrDefault("GITHUB_API_URL", "https://api.github.com")

	interval, err := time.ParseDuration(getEnvOrDefault("SYNC_INTERVAL", "5m"))
	if err != nil {
		return fmt.Errorf("invalid SYNC_INTERVAL: %w", err)
	}
	c.Sync.Interval = interval
	return nil
}

// Validate checks that all required configuration is present and valid
func (c *Config) Validate() error {
	var errors []string

	if c.Security.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET is required")
	} else if len(c.Security.JWTSecret) < 16 {
		errors = append(errors, "JWT_SECRET must be at least 16 characters")
	}
	if c.Security.AdminPasswordHash == "" {
		errors = append(errors, "ADMIN_PASSWORD_HASH is required (bcrypt hash)")
	}
	if c.Security.TokenTTL <= 0 {
		errors = append(errors, "TOKEN_TTL must be positive")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "PORT must be between 1 and 65535")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		errors = append(errors, "LOG_LEVEL must be one of: debug, info, warn, error")
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		errors = append(errors, "LOG_FORMAT must be one of: json, text")
	}

	if c.Storage.DataDir == "" {
		errors = append(errors, "MUSICFREE_DATA_DIR must not be empty")
	}

	validTransports := map[string]bool{"github": true, "git": true}
	if !validTransports[c.Sync.Transport] {
		errors = append(errors, "SYNC_TRANSPORT must be one of: github, git")
	}
	if c.Sync.Interval < 10*time.Second {
		errors = append(errors, "SYNC_INTERVAL must be at least 10s")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
