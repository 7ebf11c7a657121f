// Package config loads identity service configuration from environment
// variables, with an optional .env file for development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// AppConfig is the main application configuration. Getter methods satisfy the
// identity.Config interface so the struct can be handed straight to the auth
// stack.
type AppConfig struct {
	// IsDev controls development mode behavior.
	IsDev bool `env:"DEV" envDefault:"false"`

	// ServerAddress is the HTTP listen address.
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:":8978"`

	// Database configuration.
	Database DBConfig `envPrefix:"DB_"`

	// Auth holds token issuing and middleware configuration.
	Auth AuthConfig `envPrefix:"AUTH_"`

	// Store points the session at a Profile Store.
	Store StoreConfig `envPrefix:"STORE_"`

	// Google holds federated login credentials.
	Google GoogleConfig `envPrefix:"GOOGLE_"`

	// Federated holds OAuth state encryption settings.
	Federated FederatedConfig `envPrefix:"FEDERATED_"`
}

// DBConfig holds database connection settings. The getters satisfy the
// persistence client's config interface.
type DBConfig struct {
	// Driver selects the SQL driver ("sqlite" or "postgres").
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	// DSN is the connection string.
	DSN string `env:"DSN" envDefault:"file::memory:?cache=shared"`

	Debug       bool          `env:"DEBUG" envDefault:"false"`
	Server      string        `env:"SERVER"`
	Database    string        `env:"DATABASE"`
	PingTimeout time.Duration `env:"PING_TIMEOUT" envDefault:"5s"`
}

func (d DBConfig) GetDriver() string { return d.Driver }

func (d DBConfig) GetDSN() string { return d.DSN }

func (d DBConfig) GetDebug() bool { return d.Debug }

func (d DBConfig) GetServer() string { return d.Server }

func (d DBConfig) GetDatabase() string { return d.Database }

func (d DBConfig) GetPingTimeout() time.Duration { return d.PingTimeout }

func (d DBConfig) GetOtelIdentifier() string { return "" }

// AuthConfig holds token issuing and validation settings.
type AuthConfig struct {
	SigningKey      string   `env:"SIGNING_KEY"`
	SigningMethod   string   `env:"SIGNING_METHOD" envDefault:"HS256"`
	ContextKey      string   `env:"CONTEXT_KEY" envDefault:"session"`
	TokenExpiration int      `env:"TOKEN_EXPIRATION" envDefault:"168"`
	TokenLookup     string   `env:"TOKEN_LOOKUP" envDefault:"header:Authorization,cookie:jwt"`
	AuthScheme      string   `env:"SCHEME" envDefault:"Bearer"`
	Issuer          string   `env:"ISSUER" envDefault:"identity"`
	Audience        []string `env:"AUDIENCE" envSeparator:","`

	RejectedRouteKey     string `env:"REJECTED_ROUTE_KEY" envDefault:"jwt_rejected_route"`
	RejectedRouteDefault string `env:"REJECTED_ROUTE_DEFAULT" envDefault:"/"`
}

// StoreConfig points the session at a Profile Store endpoint. An empty base
// URL means the store runs in-process.
type StoreConfig struct {
	BaseURL string `env:"BASE_URL"`
}

// GoogleConfig holds Google OAuth credentials.
type GoogleConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	CallbackURL  string `env:"CALLBACK_URL"`
}

// FederatedConfig holds OAuth flow state settings.
type FederatedConfig struct {
	StateEncryptionKey string `env:"STATE_ENCRYPTION_KEY"`
	StateHMACKey       string `env:"STATE_HMAC_KEY"`
	BaseURL            string `env:"BASE_URL"`
	CallbackPath       string `env:"CALLBACK_PATH" envDefault:"/auth/callback"`
	AllowSignup        bool   `env:"ALLOW_SIGNUP" envDefault:"true"`
	RequireVerified    bool   `env:"REQUIRE_VERIFIED_EMAIL" envDefault:"true"`
}

// Load reads configuration from the environment, with an optional .env file
// for development.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}

	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()

	return cfg, cfg.Validate()
}

// Sanitize applies guardrails to values loaded from env.
func (c *AppConfig) Sanitize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Store.BaseURL = strings.TrimRight(strings.TrimSpace(c.Store.BaseURL), "/")

	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// Validate checks the settings a running service cannot do without.
func (c *AppConfig) Validate() error {
	if c.Auth.SigningKey == "" {
		return errors.New("AUTH_SIGNING_KEY is required")
	}
	if c.Database.DSN == "" {
		return errors.New("DB_DSN is required")
	}
	return nil
}

// GetPersistence returns the database settings.
func (c *AppConfig) GetPersistence() DBConfig {
	return c.Database
}

// GetSigningKey implements identity.Config.
func (c *AppConfig) GetSigningKey() string {
	return c.Auth.SigningKey
}

// GetSigningMethod implements identity.Config.
func (c *AppConfig) GetSigningMethod() string {
	return c.Auth.SigningMethod
}

// GetContextKey implements identity.Config.
func (c *AppConfig) GetContextKey() string {
	return c.Auth.ContextKey
}

// GetTokenExpiration implements identity.Config. The value is in hours.
func (c *AppConfig) GetTokenExpiration() int {
	return c.Auth.TokenExpiration
}

// GetTokenLookup implements identity.Config.
func (c *AppConfig) GetTokenLookup() string {
	return c.Auth.TokenLookup
}

// GetAuthScheme implements identity.Config.
func (c *AppConfig) GetAuthScheme() string {
	return c.Auth.AuthScheme
}

// GetIssuer implements identity.Config.
func (c *AppConfig) GetIssuer() string {
	return c.Auth.Issuer
}

// GetAudience implements identity.Config.
func (c *AppConfig) GetAudience() []string {
	return c.Auth.Audience
}

// GetRejectedRouteKey implements identity.Config.
func (c *AppConfig) GetRejectedRouteKey() string {
	return c.Auth.RejectedRouteKey
}

// GetRejectedRouteDefault implements identity.Config.
func (c *AppConfig) GetRejectedRouteDefault() string {
	return c.Auth.RejectedRouteDefault
}

// GetStoreBaseURL implements identity.Config.
func (c *AppConfig) GetStoreBaseURL() string {
	return c.Store.BaseURL
}
