// Package provider defines the contract between the session store and OAuth
// providers: per-provider token verification plus optional extra routes for
// non-standard flows.
package provider

import (
	"context"
	"net/http"
	"strings"

	"github.com/goliatone/go-router"
)

// Profile is the normalized identity a provider vouches for after verifying
// a token credential. Username feeds identity reconciliation.
type Profile struct {
	Provider string         `json:"provider"`
	Username string         `json:"username"`
	Name     string         `json:"name"`
	ImageURL string         `json:"image_url"`
	Raw      map[string]any `json:"-"`
}

// TokenCredential is the provider-issued material presented by a client.
type TokenCredential struct {
	Token    string
	Secret   string
	Verifier string
}

// Config holds per-provider application credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
}

// Provider verifies a token credential against the upstream service.
// Verification failures come back as errors, never panics.
type Provider interface {
	Name() string
	VerifyToken(ctx context.Context, cred TokenCredential, cfg Config) (*Profile, error)
}

// SessionIssueFunc turns a verified profile into a persisted session and
// writes the response. The session controller injects it so extra routes
// never touch the store directly.
type SessionIssueFunc func(ctx router.Context, profile *Profile, cred TokenCredential) error

// ExtraRoute describes a provider-specific endpoint mounted next to the
// standard session lifecycle routes.
type ExtraRoute struct {
	Method  string
	Path    string
	Handler router.HandlerFunc
}

// ExtraRouteProvider is an optional capability for providers with
// non-standard flows, like the Twitter application-only session.
type ExtraRouteProvider interface {
	ExtraRoutes(cfg Config, issue SessionIssueFunc) []ExtraRoute
}

// ParseOAuthHeader parses an application-only authorization header of the
// form "OAuth token=YOUR_TOKEN secret=YOUR_SECRET".
func ParseOAuthHeader(header string) (TokenCredential, error) {
	cred := TokenCredential{}

	parts := strings.Fields(header)
	if len(parts) < 2 || !strings.EqualFold(parts[0], "oauth") {
		return cred, ErrBadOAuthHeader
	}

	for _, part := range parts[1:] {
		key, value, found := strings.Cut(part, "=")
		if !found || value == "" {
			return TokenCredential{}, ErrBadOAuthHeader
		}

		switch key {
		case "token":
			cred.Token = value
		case "secret":
			cred.Secret = value
		}
	}

	if cred.Token == "" || cred.Secret == "" {
		return TokenCredential{}, ErrBadOAuthHeader
	}

	return cred, nil
}
