package sessionstore

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
)

// CredentialsContextKey is the router locals key holding request Credentials.
const CredentialsContextKey = "session_credentials"

// TokenScheme authenticates requests by resolving the Authorization bearer
// token against the session store. It is the only component that interprets
// the header.
type TokenScheme struct {
	repo   RepositoryManager
	Logger Logger
}

type TokenSchemeOption func(*TokenScheme)

func NewTokenScheme(repo RepositoryManager, opts ...TokenSchemeOption) *TokenScheme {
	s := &TokenScheme{
		repo:   repo,
		Logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

func WithSchemeLogger(logger Logger) TokenSchemeOption {
	return func(s *TokenScheme) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

// Authenticate applies the header outcomes in fixed order: missing header,
// malformed header, wrong scheme, then store lookup.
func (s *TokenScheme) Authenticate(ctx context.Context, header string) (*Credentials, error) {
	if header == "" {
		return nil, ErrMissingAuthHeader
	}

	parts := strings.Fields(header)
	if len(parts) != 2 {
		return nil, ErrBadHeaderFormat
	}

	if !strings.EqualFold(parts[0], "bearer") {
		return nil, ErrWrongAuthScheme
	}

	session, err := s.repo.Sessions().GetByToken(ctx, parts[1])
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUnknownToken
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "session lookup failed").
			WithCode(goerrors.CodeInternal)
	}

	if !session.HasUser() {
		s.Logger.Error("invariant violation: session %s exists without a valid user", session.ID)
		return nil, ErrOrphanSession
	}

	return &Credentials{
		Session: session,
		User:    session.User,
		Scope:   session.User.Role,
	}, nil
}

// ProtectedRoute guards a route with bearer authentication, storing the
// resolved Credentials in the request locals.
func (s *TokenScheme) ProtectedRoute(errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			header := ctx.GetString(router.HeaderAuthorization, "")

			creds, err := s.Authenticate(ctx.Context(), header)
			if err != nil {
				return errorHandler(ctx, err)
			}

			ctx.Locals(CredentialsContextKey, creds)
			return hf(ctx)
		}
	}
}

// CredentialsFromContext retrieves the Credentials a ProtectedRoute stored.
func CredentialsFromContext(ctx router.Context) (*Credentials, error) {
	val := ctx.Locals(CredentialsContextKey)
	if val == nil {
		return nil, ErrMissingAuthHeader
	}

	creds, ok := val.(*Credentials)
	if !ok || creds == nil {
		return nil, ErrUnknownToken
	}

	return creds, nil
}
