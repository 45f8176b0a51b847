package sessionstore

import (
	"context"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-session-store/provider"
	"github.com/goliatone/go-session-store/provider/twitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	redirectURL string
}

func (c testConfig) GetRedirectURL() string   { return c.redirectURL }
func (c testConfig) GetSessionSecret() string { return "" }
func (c testConfig) GetSaltStrength() int     { return 0 }
func (c testConfig) GetHashIterations() int   { return 0 }
func (c testConfig) GetHashKeyLength() int    { return 0 }
func (c testConfig) GetHashDigest() string    { return "" }
func (c testConfig) GetProviderCredentials(name string) provider.Config {
	return provider.Config{}
}

func newTestController(t *testing.T, repo RepositoryManager, opts ...SessionControllerOption) *SessionController {
	t.Helper()

	registry := provider.NewRegistry()
	registry.Register(twitter.New(), provider.Config{})

	options := append([]SessionControllerOption{
		WithRepositoryManager(repo),
		WithProviderRegistry(registry),
	}, opts...)

	return NewSessionController(options...)
}

func seedPasswordUser(t *testing.T, repo RepositoryManager, username, password string) *User {
	t.Helper()

	user := mustCreateUser(t, repo, username, func(u *User) {
		u.RequiresPassword = true
	})

	hasher := NewHasher()
	salt, err := GenerateSalt(64)
	require.NoError(t, err)

	err = repo.Users().SetPassword(context.Background(), user.ID, salt, hasher.HashPassword(password, salt))
	require.NoError(t, err)

	return user
}

func TestLoginPostCreatesSession(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	user := seedPasswordUser(t, repo, "goliatone", "hunter2")
	controller := newTestController(t, repo)

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*LoginRequest)
		payload.Username = "goliatone"
		payload.Password = "hunter2"
	}).Return(nil)

	var session *Session
	ctx.On("JSON", router.StatusCreated, mock.Anything).Run(func(args mock.Arguments) {
		session = args.Get(1).(*Session)
	}).Return(nil)

	err := controller.LoginPost(ctx)
	require.NoError(t, err)

	require.NotNil(t, session)
	assert.NotEmpty(t, session.Token)
	assert.Empty(t, session.Provider)
	require.True(t, session.HasUser())
	assert.Equal(t, user.ID, session.User.ID)
	ctx.AssertExpectations(t)
}

func TestLoginPostWrongPassword(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	seedPasswordUser(t, repo, "goliatone", "hunter2")
	controller := newTestController(t, repo)

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*LoginRequest)
		payload.Username = "goliatone"
		payload.Password = "wrong"
	}).Return(nil)

	var body map[string]string
	ctx.On("JSON", router.StatusUnauthorized, mock.Anything).Run(func(args mock.Arguments) {
		body = args.Get(1).(map[string]string)
	}).Return(nil)

	err := controller.LoginPost(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Incorrect username or password.", body["error"])
	assert.Equal(t, TextCodeBadCredentials, body["code"])
}

func TestLoginPostUnknownUserMatchesWrongPassword(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	controller := newTestController(t, repo)

	// the response must not reveal whether the username exists
	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*LoginRequest)
		payload.Username = "nobody"
		payload.Password = "whatever"
	}).Return(nil)

	var body map[string]string
	ctx.On("JSON", router.StatusUnauthorized, mock.Anything).Run(func(args mock.Arguments) {
		body = args.Get(1).(map[string]string)
	}).Return(nil)

	err := controller.LoginPost(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Incorrect username or password.", body["error"])
	assert.Equal(t, TextCodeBadCredentials, body["code"])
}

func TestLoginPostRejectsEmptyPayload(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	controller := newTestController(t, repo)

	ctx := router.NewMockContext()
	ctx.On("Bind", mock.Anything).Return(nil)

	var status int
	ctx.On("JSON", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		status = args.Int(0)
	}).Return(nil)

	err := controller.LoginPost(ctx)
	require.NoError(t, err)
	assert.Equal(t, router.StatusBadRequest, status)
}

func TestDestroyDeletesOwnSession(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	user := mustCreateUser(t, repo, "goliatone")
	session := mustCreateSession(t, repo, user, "token-1", "twitter")

	controller := newTestController(t, repo)

	ctx := router.NewMockContext()
	ctx.LocalsMock[CredentialsContextKey] = &Credentials{
		Session: session,
		User:    user,
		Scope:   user.Role,
	}
	ctx.On("Context").Return(context.Background())
	ctx.On("NoContent", router.StatusNoContent).Return(nil)

	err := controller.Destroy(ctx)
	require.NoError(t, err)

	_, err = repo.Sessions().GetByToken(context.Background(), "token-1")
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
	ctx.AssertExpectations(t)
}

func TestDestroyWithoutCredentials(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	controller := newTestController(t, repo)

	ctx := router.NewMockContext()
	ctx.On("SetHeader", "WWW-Authenticate", SchemeSessionStore).Return(ctx)

	var status int
	ctx.On("JSON", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		status = args.Int(0)
	}).Return(nil)

	err := controller.Destroy(ctx)
	require.NoError(t, err)
	assert.Equal(t, router.StatusUnauthorized, status)
	ctx.AssertExpectations(t)
}

func TestCallbackRequiresOAuthResult(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	controller := newTestController(t, repo)

	ctx := router.NewMockContext()
	ctx.ParamsM["provider"] = "twitter"

	var body map[string]string
	var status int
	ctx.On("JSON", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		status = args.Int(0)
		body = args.Get(1).(map[string]string)
	}).Return(nil)

	err := controller.Callback(ctx)
	require.NoError(t, err)
	assert.Equal(t, router.StatusUnauthorized, status)
	assert.Equal(t, TextCodeOAuthRequired, body["code"])
}

func TestCallbackUnknownProvider(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	controller := newTestController(t, repo)

	ctx := router.NewMockContext()
	ctx.ParamsM["provider"] = "myspace"

	var status int
	ctx.On("JSON", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		status = args.Int(0)
	}).Return(nil)

	err := controller.Callback(ctx)
	require.NoError(t, err)
	assert.Equal(t, router.StatusNotFound, status)
}

func TestCallbackCreatesUserAndSession(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	controller := newTestController(t, repo)

	ctx := router.NewMockContext()
	ctx.ParamsM["provider"] = "twitter"
	ctx.QueriesM["oauth_token"] = "oauth-token"
	ctx.QueriesM["oauth_verifier"] = "oauth-verifier"
	ctx.LocalsMock[OAuthProfileContextKey] = &provider.Profile{
		Provider: "twitter",
		Username: "goliatone",
		Name:     "Goliat One",
		ImageURL: "https://example.com/avatar.png",
	}
	ctx.On("Context").Return(context.Background())

	var session *Session
	ctx.On("JSON", router.StatusCreated, mock.Anything).Run(func(args mock.Arguments) {
		session = args.Get(1).(*Session)
	}).Return(nil)

	err := controller.Callback(ctx)
	require.NoError(t, err)

	require.NotNil(t, session)
	assert.Equal(t, "oauth-token", session.Token)
	assert.Equal(t, "oauth-verifier", session.Verifier)
	require.True(t, session.HasUser())
	assert.Equal(t, "goliatone", session.User.Username)
	assert.Equal(t, RoleUser, session.User.Role)

	// the minted token resolves through the bearer scheme afterwards
	scheme := NewTokenScheme(repo)
	creds, err := scheme.Authenticate(context.Background(), "Bearer oauth-token")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, creds.User.ID)
}

func TestCallbackRedirectsWhenConfigured(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	controller := newTestController(t, repo, WithControllerConfig(testConfig{
		redirectURL: "/welcome",
	}))

	ctx := router.NewMockContext()
	ctx.ParamsM["provider"] = "twitter"
	ctx.QueriesM["oauth_token"] = "oauth-token"
	ctx.LocalsMock[OAuthProfileContextKey] = &provider.Profile{
		Provider: "twitter",
		Username: "goliatone",
	}
	ctx.On("Context").Return(context.Background())
	ctx.On("Redirect", "/welcome", []int{fiber.StatusFound}).Return(nil)

	err := controller.Callback(ctx)
	require.NoError(t, err)
	ctx.AssertExpectations(t)
}

func TestCallbackMissingOAuthToken(t *testing.T) {
	repo, _, cleanup := setupTestRepo(t)
	defer cleanup()

	controller := newTestController(t, repo)

	ctx := router.NewMockContext()
	ctx.ParamsM["provider"] = "twitter"
	ctx.LocalsMock[OAuthProfileContextKey] = &provider.Profile{
		Provider: "twitter",
		Username: "goliatone",
	}

	var status int
	ctx.On("JSON", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		status = args.Int(0)
	}).Return(nil)

	err := controller.Callback(ctx)
	require.NoError(t, err)
	assert.Equal(t, router.StatusBadRequest, status)
}
