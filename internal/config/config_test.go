package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %s, want 8080", cfg.Port)
	}
	if cfg.RoomTTL != 60*time.Minute {
		t.Errorf("RoomTTL = %v, want 60m", cfg.RoomTTL)
	}
	if cfg.ArtworkWait != 5*time.Second {
		t.Errorf("ArtworkWait = %v, want 5s", cfg.ArtworkWait)
	}
	if len(cfg.MCPEndpoints) != 0 {
		t.Errorf("MCPEndpoints = %v, want empty without env", cfg.MCPEndpoints)
	}
	if cfg.OAuthEnabled() {
		t.Error("OAuth must be disabled without client settings")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ROOM_TTL", "30m")
	t.Setenv("ARTWORK_WAIT", "2s")
	t.Setenv("MCP_ORDER_IN_URL", "https://mcp.delivery.example/v1")
	t.Setenv("OAUTH_SCOPES", "orders.read, orders.write")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %s", cfg.Port)
	}
	if cfg.RoomTTL != 30*time.Minute {
		t.Errorf("RoomTTL = %v", cfg.RoomTTL)
	}
	if cfg.MCPEndpoints["order_in"] != "https://mcp.delivery.example/v1" {
		t.Errorf("MCPEndpoints = %v", cfg.MCPEndpoints)
	}
	if got := cfg.OAuth.Scopes; len(got) != 2 || got[0] != "orders.read" || got[1] != "orders.write" {
		t.Errorf("Scopes = %v", got)
	}
}

func TestLoad_BadDurationFallsBack(t *testing.T) {
	t.Setenv("ROOM_TTL", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RoomTTL != 60*time.Minute {
		t.Errorf("RoomTTL = %v, want default on parse failure", cfg.RoomTTL)
	}
}

func TestIsDevelopment(t *testing.T) {
	tests := []struct {
		frontendURL string
		want        bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:5173", true},
		{"https://pairup.example.com", false},
	}
	for _, tt := range tests {
		c := &Config{FrontendURL: tt.frontendURL}
		if got := c.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment(%q) = %v, want %v", tt.frontendURL, got, tt.want)
		}
	}
}
