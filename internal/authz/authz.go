// Package authz is the boundary to the external authorization provider. The
// orchestrator only needs three things from it: an authorization URL for a
// room, a code-for-credentials exchange, and a per-room credential check.
package authz

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// Credentials are the tokens obtained for one room's authorization.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// TokenSource adapts the credentials for HTTP clients that attach bearer
// tokens.
func (c Credentials) TokenSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	})
}

// Provider abstracts the external authorization service.
type Provider interface {
	// AuthorizationURL returns the URL a participant must visit to authorize
	// the room.
	AuthorizationURL(ctx context.Context, roomID string) (string, error)

	// Exchange trades an authorization code for credentials and stores them
	// for the room.
	Exchange(ctx context.Context, code, roomID string) (Credentials, error)

	// HasCredentials reports whether the room already holds credentials.
	HasCredentials(roomID string) bool

	// CredentialsFor returns the stored credentials for a room.
	CredentialsFor(roomID string) (Credentials, bool)
}
