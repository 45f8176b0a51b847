// Package facebook verifies Facebook token credentials against the Graph API
// debug_token endpoint and loads the owning profile.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goliatone/go-session-store/provider"
)

const (
	defaultDebugTokenURL = "https://graph.facebook.com/debug_token"
	defaultProfileURL    = "https://graph.facebook.com/me"
)

// Provider implements provider.Provider for Facebook.
type Provider struct {
	debugTokenURL string
	profileURL    string
	httpClient    *http.Client
}

type Option func(*Provider)

// New creates a Facebook provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		debugTokenURL: defaultDebugTokenURL,
		profileURL:    defaultProfileURL,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// WithEndpoints overrides the Graph API endpoints.
func WithEndpoints(debugTokenURL, profileURL string) Option {
	return func(p *Provider) {
		if debugTokenURL != "" {
			p.debugTokenURL = debugTokenURL
		}
		if profileURL != "" {
			p.profileURL = profileURL
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// Name implements provider.Provider.
func (p *Provider) Name() string {
	return "facebook"
}

// VerifyToken implements provider.Provider. The token is introspected with
// the app access token first; only tokens issued to this app are accepted.
func (p *Provider) VerifyToken(ctx context.Context, cred provider.TokenCredential, cfg provider.Config) (*provider.Profile, error) {
	if err := p.introspect(ctx, cred, cfg); err != nil {
		return nil, err
	}

	return p.fetchProfile(ctx, cred, cfg)
}

func (p *Provider) introspect(ctx context.Context, cred provider.TokenCredential, cfg provider.Config) error {
	params := url.Values{
		"input_token":  {cred.Token},
		"access_token": {cfg.ClientID + "|" + cfg.ClientSecret},
	}

	body, status, err := p.get(ctx, cfg, p.debugTokenURL+"?"+params.Encode())
	if err != nil {
		return err
	}

	if status != http.StatusOK {
		return provider.ErrVerificationFailed.Clone().WithMetadata(map[string]any{
			"provider": "facebook",
			"status":   status,
		})
	}

	var introspection debugTokenResponse
	if err := json.Unmarshal(body, &introspection); err != nil {
		return fmt.Errorf("facebook: failed to decode debug_token response: %w", err)
	}

	if !introspection.Data.IsValid || introspection.Data.AppID != cfg.ClientID {
		return provider.ErrVerificationFailed.Clone().WithMetadata(map[string]any{
			"provider": "facebook",
			"app_id":   introspection.Data.AppID,
		})
	}

	return nil
}

func (p *Provider) fetchProfile(ctx context.Context, cred provider.TokenCredential, cfg provider.Config) (*provider.Profile, error) {
	params := url.Values{
		"fields":       {"id,name,picture"},
		"access_token": {cred.Token},
	}

	body, status, err := p.get(ctx, cfg, p.profileURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, provider.ErrVerificationFailed.Clone().WithMetadata(map[string]any{
			"provider": "facebook",
			"status":   status,
		})
	}

	var me facebookUser
	if err := json.Unmarshal(body, &me); err != nil {
		return nil, fmt.Errorf("facebook: failed to decode profile response: %w", err)
	}

	var raw map[string]any
	_ = json.Unmarshal(body, &raw)

	// facebook has no public username, the stable app-scoped id stands in
	return &provider.Profile{
		Provider: "facebook",
		Username: me.ID,
		Name:     me.Name,
		ImageURL: me.Picture.Data.URL,
		Raw:      raw,
	}, nil
}

func (p *Provider) get(ctx context.Context, cfg provider.Config, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}

	client := p.httpClient
	if cfg.HTTPClient != nil {
		client = cfg.HTTPClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("facebook: graph request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}

	return body, resp.StatusCode, nil
}

type debugTokenResponse struct {
	Data struct {
		AppID   string `json:"app_id"`
		IsValid bool   `json:"is_valid"`
		UserID  string `json:"user_id"`
	} `json:"data"`
}

type facebookUser struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}
