// Package twitter verifies Twitter token credentials against the
// verify_credentials endpoint using OAuth1 signed requests, and exposes the
// application-only session route.
package twitter

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-session-store/provider"
)

const defaultVerifyURL = "https://api.twitter.com/1.1/account/verify_credentials.json"

// Provider implements provider.Provider for Twitter.
type Provider struct {
	verifyURL  string
	httpClient *http.Client
}

type Option func(*Provider)

// New creates a Twitter provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		verifyURL:  defaultVerifyURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// WithVerifyURL overrides the verification endpoint.
func WithVerifyURL(rawURL string) Option {
	return func(p *Provider) {
		if rawURL != "" {
			p.verifyURL = rawURL
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
	return "twitter"
}

// VerifyToken implements provider.Provider. It calls verify_credentials with
// an OAuth1 signed request; a rejected credential maps to an auth error.
func (p *Provider) VerifyToken(ctx context.Context, cred provider.TokenCredential, cfg provider.Config) (*provider.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.verifyURL, nil)
	if err != nil {
		return nil, err
	}

	header, err := signedAuthorizationHeader(http.MethodGet, p.verifyURL, cfg, cred)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", header)

	resp, err := p.client(cfg).Do(req)
	if err != nil {
		return nil, fmt.Errorf("twitter: verify_credentials request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, provider.ErrVerificationFailed.Clone().WithMetadata(map[string]any{
			"provider": "twitter",
			"status":   resp.StatusCode,
		})
	}

	var user twitterUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("twitter: failed to decode verify_credentials response: %w", err)
	}

	var raw map[string]any
	_ = json.Unmarshal(body, &raw)

	return &provider.Profile{
		Provider: "twitter",
		Username: user.ScreenName,
		Name:     user.Name,
		ImageURL: normalizeImageURL(user.ProfileImageURLHTTPS),
		Raw:      raw,
	}, nil
}

// ExtraRoutes implements provider.ExtraRouteProvider: the application-only
// session flow, which authenticates with an "OAuth token=... secret=..."
// header instead of the redirect handshake.
func (p *Provider) ExtraRoutes(cfg provider.Config, issue provider.SessionIssueFunc) []provider.ExtraRoute {
	return []provider.ExtraRoute{
		{
			Method: http.MethodGet,
			Path:   "/session/twitter/app",
			Handler: func(ctx router.Context) error {
				cred, err := provider.ParseOAuthHeader(ctx.GetString(router.HeaderAuthorization, ""))
				if err != nil {
					return err
				}

				profile, err := p.VerifyToken(ctx.Context(), cred, cfg)
				if err != nil {
					return err
				}

				return issue(ctx, profile, cred)
			},
		},
	}
}

func (p *Provider) client(cfg provider.Config) *http.Client {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}
	return p.httpClient
}

// normalizeImageURL strips the "_normal" size suffix so we store the
// full-resolution avatar.
func normalizeImageURL(rawURL string) string {
	return strings.Replace(rawURL, "_normal", "", 1)
}

type twitterUser struct {
	IDStr                string `json:"id_str"`
	ScreenName           string `json:"screen_name"`
	Name                 string `json:"name"`
	ProfileImageURLHTTPS string `json:"profile_image_url_https"`
}

// signedAuthorizationHeader builds an OAuth1 HMAC-SHA1 Authorization header
// for the request, per RFC 5849.
func signedAuthorizationHeader(method, rawURL string, cfg provider.Config, cred provider.TokenCredential) (string, error) {
	nonce, err := newNonce()
	if err != nil {
		return "", err
	}

	params := map[string]string{
		"oauth_consumer_key":     cfg.ClientID,
		"oauth_nonce":            nonce,
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(time.Now().Unix(), 10),
		"oauth_token":            cred.Token,
		"oauth_version":          "1.0",
	}

	params["oauth_signature"] = sign(method, rawURL, params, cfg.ClientSecret, cred.Secret)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%q", percentEncode(k), percentEncode(params[k])))
	}

	return "OAuth " + strings.Join(pairs, ", "), nil
}

func sign(method, rawURL string, params map[string]string, consumerSecret, tokenSecret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	encoded := make([]string, 0, len(keys))
	for _, k := range keys {
		encoded = append(encoded, percentEncode(k)+"="+percentEncode(params[k]))
	}

	base := strings.Join([]string{
		strings.ToUpper(method),
		percentEncode(baseURL(rawURL)),
		percentEncode(strings.Join(encoded, "&")),
	}, "&")

	key := percentEncode(consumerSecret) + "&" + percentEncode(tokenSecret)

	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// baseURL strips the query and fragment; the base string only covers the
// scheme, host, and path.
func baseURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}

// percentEncode implements the RFC 3986 encoding OAuth1 requires; it differs
// from url.QueryEscape on spaces and tildes.
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '.' || c == '_' || c == '~' {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func newNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
