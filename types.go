package sessionstore

import (
	"fmt"

	"github.com/goliatone/go-session-store/provider"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// TokenSource mints opaque session tokens. Implementations must be unique
// process-wide; the store enforces global uniqueness with a constraint.
type TokenSource interface {
	NewToken() string
}

// Credentials is the request-scoped result of a successful bearer
// authentication. Scope is copied from the user's role at validation time and
// is never cached across requests.
type Credentials struct {
	Session *Session `json:"session"`
	User    *User    `json:"user"`
	Scope   string   `json:"scope"`
}

// Config holds session store options
type Config interface {
	GetRedirectURL() string
	GetSessionSecret() string
	GetSaltStrength() int
	GetHashIterations() int
	GetHashKeyLength() int
	GetHashDigest() string
	GetProviderCredentials(name string) provider.Config
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
