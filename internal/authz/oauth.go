package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNotConfigured indicates the OAuth provider settings are missing.
var ErrNotConfigured = errors.New("authorization provider not configured")

// OAuthConfig holds the external provider's OAuth settings.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURL  string
	Scopes       []string
}

// Configured reports whether the minimum settings are present.
func (c OAuthConfig) Configured() bool {
	return c.ClientID != "" && c.AuthURL != "" && c.TokenURL != ""
}

// OAuthProvider implements Provider with a standard authorization-code flow.
// Credentials are held in memory per room; the provider outlives rooms.
type OAuthProvider struct {
	conf *oauth2.Config

	mu    sync.RWMutex
	creds map[string]Credentials
}

// NewOAuthProvider builds a provider from config.
func NewOAuthProvider(cfg OAuthConfig) (*OAuthProvider, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	return &OAuthProvider{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		creds: make(map[string]Credentials),
	}, nil
}

// AuthorizationURL returns the provider consent URL. The room ID rides in the
// OAuth state parameter so the callback can route back to the room.
func (p *OAuthProvider) AuthorizationURL(_ context.Context, roomID string) (string, error) {
	if roomID == "" {
		return "", fmt.Errorf("authorization url: empty room id")
	}
	return p.conf.AuthCodeURL(roomID, oauth2.AccessTypeOffline), nil
}

// Exchange trades the callback code for tokens and stores them for the room.
func (p *OAuthProvider) Exchange(ctx context.Context, code, roomID string) (Credentials, error) {
	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return Credentials{}, fmt.Errorf("exchange authorization code: %w", err)
	}
	creds := Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	p.mu.Lock()
	p.creds[roomID] = creds
	p.mu.Unlock()
	slog.Info("Authorization credentials stored", "room_id", roomID)
	return creds, nil
}

// HasCredentials reports whether the room holds credentials.
func (p *OAuthProvider) HasCredentials(roomID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.creds[roomID]
	return ok
}

// CredentialsFor returns the stored credentials for a room.
func (p *OAuthProvider) CredentialsFor(roomID string) (Credentials, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.creds[roomID]
	return c, ok
}
