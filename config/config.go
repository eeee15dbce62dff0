package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Cognito   CognitoConfig
	Approvals ApprovalLimitConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// JWTConfig holds local HS256 signing settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// CognitoConfig holds the external issuer settings. Leave UserPoolID empty
// to disable the external verification path entirely.
type CognitoConfig struct {
	Region         string
	UserPoolID     string
	ClientID       string
	JWKSTTLSeconds int
	GroupsClaim    string
}

// ApprovalLimitConfig throttles admin approve/reject actions.
type ApprovalLimitConfig struct {
	MaxActions    int
	WindowSeconds int
}

// Enabled reports whether the external issuer path is configured.
func (c CognitoConfig) Enabled() bool {
	return c.UserPoolID != "" && c.Region != ""
}

// IssuerURL returns the expected token issuer, or "" when disabled.
func (c CognitoConfig) IssuerURL() string {
	if !c.Enabled() {
		return ""
	}
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.Region, c.UserPoolID)
}

// JWKSURL returns the public key set location, or "" when disabled.
func (c CognitoConfig) JWKSURL() string {
	if !c.Enabled() {
		return ""
	}
	return c.IssuerURL() + "/.well-known/jwks.json"
}

// DSN returns the PostgreSQL connection string. If DatabaseConfig.URL is set
// (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "eventmaster"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		Cognito: CognitoConfig{
			Region:         getEnv("COGNITO_REGION", ""),
			UserPoolID:     getEnv("COGNITO_USER_POOL_ID", ""),
			ClientID:       getEnv("COGNITO_CLIENT_ID", ""),
			JWKSTTLSeconds: getEnvInt("COGNITO_JWKS_TTL_SEC", 3600),
			GroupsClaim:    getEnv("COGNITO_GROUPS_CLAIM", "cognito:groups"),
		},
		Approvals: ApprovalLimitConfig{
			MaxActions:    getEnvInt("APPROVAL_MAX_ACTIONS", 30),
			WindowSeconds: getEnvInt("APPROVAL_WINDOW_SEC", 60),
		},
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
