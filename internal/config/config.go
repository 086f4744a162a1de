// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string

	// RoomTTL is how long an inert room survives before archival.
	RoomTTL time.Duration
	// ArtworkWait bounds how long the reveal waits for the couple portrait.
	ArtworkWait time.Duration

	ResponderAddr string
	OpenAIAPIKey  string

	OAuth OAuthConfig
	// MCPEndpoints maps an action category to its provider's MCP endpoint.
	MCPEndpoints map[string]string
}

// OAuthConfig holds the external provider's OAuth client settings.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURL  string
	Scopes       []string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		FrontendURL:   getEnv("FRONTEND_URL", ""),
		DBPath:        getEnv("DB_PATH", "./data/pairup.db"),
		RoomTTL:       getEnvDuration("ROOM_TTL", 60*time.Minute),
		ArtworkWait:   getEnvDuration("ARTWORK_WAIT", 5*time.Second),
		ResponderAddr: getEnv("RESPONDER_ADDR", ""),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OAuth: OAuthConfig{
			ClientID:     getEnv("OAUTH_CLIENT_ID", ""),
			ClientSecret: getEnv("OAUTH_CLIENT_SECRET", ""),
			AuthURL:      getEnv("OAUTH_AUTH_URL", ""),
			TokenURL:     getEnv("OAUTH_TOKEN_URL", ""),
			RedirectURL:  getEnv("OAUTH_REDIRECT_URL", ""),
			Scopes:       getEnvList("OAUTH_SCOPES", nil),
		},
		MCPEndpoints: map[string]string{
			"order_in": getEnv("MCP_ORDER_IN_URL", ""),
			"dine_out": getEnv("MCP_DINE_OUT_URL", ""),
		},
	}
	for cat, url := range cfg.MCPEndpoints {
		if url == "" {
			delete(cfg.MCPEndpoints, cat)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.RoomTTL <= 0 {
		return fmt.Errorf("ROOM_TTL must be > 0")
	}
	if c.ArtworkWait <= 0 {
		return fmt.Errorf("ARTWORK_WAIT must be > 0")
	}
	return nil
}

// OAuthEnabled reports whether the deferred authorization flow can run.
func (c *Config) OAuthEnabled() bool {
	return c.OAuth.ClientID != "" && c.OAuth.AuthURL != "" && c.OAuth.TokenURL != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
