package sessionstore

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-session-store/provider"
	"github.com/goliatone/hashid/pkg/hashid"
)

// SessionManager reconciles verified identities with local user and session
// records. Find-or-create never holds in-process locks; the database unique
// constraints arbitrate concurrent identical logins and a lost insert race is
// retried as a find exactly once.
type SessionManager struct {
	repo   RepositoryManager
	tokens TokenSource
	Logger Logger
}

type SessionManagerOption func(*SessionManager)

func NewSessionManager(repo RepositoryManager, opts ...SessionManagerOption) *SessionManager {
	m := &SessionManager{
		repo:   repo,
		tokens: NewUUIDTokenSource(),
		Logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

func WithLogger(logger Logger) SessionManagerOption {
	return func(m *SessionManager) {
		if logger != nil {
			m.Logger = logger
		}
	}
}

func WithTokenSource(source TokenSource) SessionManagerOption {
	return func(m *SessionManager) {
		if source != nil {
			m.tokens = source
		}
	}
}

// UserFromProfile builds a user candidate from a verified provider profile.
func UserFromProfile(profile *provider.Profile) *User {
	if profile == nil {
		return nil
	}

	return &User{
		Username:        profile.Username,
		Name:            profile.Name,
		Source:          profile.Provider,
		ProfileImageURL: profile.ImageURL,
	}
}

// FindOrCreateUser looks the candidate up by username and creates it when
// missing. Creation applies non-overridable defaults: callers cannot smuggle
// in an elevated role or pre-settled credential flags.
func (m *SessionManager) FindOrCreateUser(ctx context.Context, candidate *User) (*User, error) {
	if candidate == nil || candidate.Username == "" {
		return nil, goerrors.New("user candidate requires a username", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	user, err := m.repo.Users().GetByUsername(ctx, candidate.Username)
	if err == nil {
		return m.checkActive(user)
	}

	if !repository.IsRecordNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user lookup failed").
			WithCode(goerrors.CodeInternal)
	}

	record := m.applyUserDefaults(candidate)

	created, err := m.repo.Users().Create(ctx, record)
	if err == nil {
		return created, nil
	}

	if !IsUniqueViolation(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user create failed").
			WithCode(goerrors.CodeInternal)
	}

	// lost the insert race, the winner's record must be there now
	m.Logger.Debug("user create conflict, retrying find: %s", candidate.Username)

	user, err = m.repo.Users().GetByUsername(ctx, candidate.Username)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user conflict retry failed").
			WithCode(goerrors.CodeInternal).
			WithMetadata(map[string]any{
				"username": candidate.Username,
			})
	}

	return m.checkActive(user)
}

// FindOrCreateSession resolves the session for (user, provider), minting a
// fresh token only when no session exists. The returned session always has
// the user relation resolved.
func (m *SessionManager) FindOrCreateSession(ctx context.Context, user *User, providerName string) (*Session, error) {
	if user == nil {
		return nil, goerrors.New("session requires a user", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	existing, err := m.repo.Sessions().GetByUserAndProvider(ctx, user.ID, providerName)
	if err == nil {
		return existing, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "session lookup failed").
			WithCode(goerrors.CodeInternal)
	}

	userID := user.ID
	candidate := &Session{
		Token:    m.tokens.NewToken(),
		Provider: providerName,
		UserID:   &userID,
	}

	return m.createOrRefind(ctx, candidate, user, providerName)
}

// CreateOAuthSession persists the session candidate produced by an OAuth
// callback: the provider-issued token and verifier, scoped to the provider.
func (m *SessionManager) CreateOAuthSession(ctx context.Context, user *User, candidate *Session) (*Session, error) {
	if user == nil || candidate == nil || candidate.Token == "" {
		return nil, goerrors.New("oauth session requires a user and a token", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	userID := user.ID
	candidate.UserID = &userID

	return m.createOrRefind(ctx, candidate, user, candidate.Provider)
}

// CreateLoginSession always mints a fresh session for a password login.
// Tokens are never reused; each login gets its own session record.
func (m *SessionManager) CreateLoginSession(ctx context.Context, user *User) (*Session, error) {
	if user == nil {
		return nil, goerrors.New("session requires a user", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	userID := user.ID
	record := &Session{
		Token:  m.tokens.NewToken(),
		UserID: &userID,
	}

	created, err := m.repo.Sessions().Create(ctx, record)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "session create failed").
			WithCode(goerrors.CodeInternal)
	}

	return m.repo.Sessions().GetByToken(ctx, created.Token)
}

func (m *SessionManager) createOrRefind(ctx context.Context, candidate *Session, user *User, providerName string) (*Session, error) {
	created, err := m.repo.Sessions().Create(ctx, candidate)
	if err == nil {
		return m.repo.Sessions().GetByToken(ctx, created.Token)
	}

	if !IsUniqueViolation(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "session create failed").
			WithCode(goerrors.CodeInternal)
	}

	m.Logger.Debug("session create conflict, retrying find: user=%s provider=%s", user.ID, providerName)

	existing, err := m.repo.Sessions().GetByUserAndProvider(ctx, user.ID, providerName)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "session conflict retry failed").
			WithCode(goerrors.CodeInternal).
			WithMetadata(map[string]any{
				"user_id":  user.ID.String(),
				"provider": providerName,
			})
	}

	return existing, nil
}

func (m *SessionManager) checkActive(user *User) (*User, error) {
	if !user.IsActive() {
		return nil, ErrAccountInactive.Clone().WithMetadata(map[string]any{
			"username": user.Username,
		})
	}
	return user, nil
}

func (m *SessionManager) applyUserDefaults(candidate *User) *User {
	record := &User{
		Username:        candidate.Username,
		Email:           candidate.Email,
		Name:            candidate.Name,
		Source:          candidate.Source,
		ProfileImageURL: candidate.ProfileImageURL,

		// non-overridable: new accounts always start here
		Role:             RoleUser,
		Status:           UserStatusActive,
		RequiresEmail:    true,
		RequiresPassword: true,
	}

	// deterministic ID from the canonical identifier: a duplicate create
	// also collides on the primary key, not just the username constraint
	if id, err := hashid.NewUUID(candidate.Username); err == nil {
		record.ID = id
	}

	return record
}
