package sessionstore

import (
	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-session-store/provider"
)

// envConfig is loaded from the environment. Variable names match the tunables
// the store has historically honored.
type envConfig struct {
	SessionSecret string `env:"AUTH_SESSION_SECRET"`
	RedirectURL   string `env:"AUTH_REDIRECT_URL"`

	SaltStrength   int    `env:"SALT_GEN_PRIME_LENGTH" envDefault:"400"`
	HashIterations int    `env:"PW_GEN_PW_ITERS" envDefault:"4096"`
	HashKeyLength  int    `env:"PW_GEN_PW_LENGTH" envDefault:"512"`
	HashDigest     string `env:"PW_GEN_PW_ALG" envDefault:"sha256"`

	TwitterConsumerKey    string `env:"TWITTER_CONSUMER_KEY"`
	TwitterConsumerSecret string `env:"TWITTER_CONSUMER_SECRET"`
	FacebookClientID      string `env:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret  string `env:"FACEBOOK_CLIENT_SECRET"`
}

// NewConfigFromEnv loads the store configuration from the environment.
func NewConfigFromEnv() (Config, error) {
	cfg := &envConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to parse environment config")
	}
	return cfg, nil
}

func (c *envConfig) GetSessionSecret() string {
	return c.SessionSecret
}

func (c *envConfig) GetRedirectURL() string {
	return c.RedirectURL
}

func (c *envConfig) GetSaltStrength() int {
	return c.SaltStrength
}

func (c *envConfig) GetHashIterations() int {
	return c.HashIterations
}

func (c *envConfig) GetHashKeyLength() int {
	return c.HashKeyLength
}

func (c *envConfig) GetHashDigest() string {
	return c.HashDigest
}

func (c *envConfig) GetProviderCredentials(name string) provider.Config {
	switch name {
	case "twitter":
		return provider.Config{
			ClientID:     c.TwitterConsumerKey,
			ClientSecret: c.TwitterConsumerSecret,
		}
	case "facebook":
		return provider.Config{
			ClientID:     c.FacebookClientID,
			ClientSecret: c.FacebookClientSecret,
		}
	default:
		return provider.Config{}
	}
}
