package sessionstore

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-session-store/provider"
)

// OAuthProfileContextKey is the router locals key where the framework's OAuth
// handshake leaves the verified provider profile for the callback.
const OAuthProfileContextKey = "oauth_profile"

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

type SessionControllerRoutes struct {
	Login   string
	Session string
}

// SessionController handles the session lifecycle routes: password login,
// OAuth callback create, and scoped destroy.
type SessionController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Manager      *SessionManager
	Hasher       *Hasher
	Providers    *provider.Registry
	Config       Config
	Routes       *SessionControllerRoutes
	ErrorHandler func(router.Context, error) error
}

type SessionControllerOption func(*SessionController) *SessionController

func NewSessionController(opts ...SessionControllerOption) *SessionController {
	c := &SessionController{
		Logger:    defLogger{},
		Hasher:    NewHasher(),
		Providers: provider.NewRegistry(),
		Routes: &SessionControllerRoutes{
			Login:   "/session/login",
			Session: "/session",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in session controller...")
	}

	if c.Manager == nil {
		c.Manager = NewSessionManager(c.Repo, WithLogger(c.Logger))
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.respondError
	}

	return c
}

func WithControllerLogger(logger Logger) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithRepositoryManager(repo RepositoryManager) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		c.Repo = repo
		return c
	}
}

func WithSessionManager(manager *SessionManager) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		c.Manager = manager
		return c
	}
}

func WithHasher(hasher *Hasher) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		if hasher != nil {
			c.Hasher = hasher
		}
		return c
	}
}

func WithProviderRegistry(registry *provider.Registry) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		if registry != nil {
			c.Providers = registry
		}
		return c
	}
}

func WithControllerConfig(cfg Config) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		c.Config = cfg
		return c
	}
}

// RegisterRoutes mounts the lifecycle routes plus any provider extra routes.
// Destroy is guarded by the token scheme; login and the callback are not.
func (c *SessionController) RegisterRoutes(group RouteRegistrar, scheme *TokenScheme) {
	for _, name := range c.Providers.Names() {
		reg, err := c.Providers.Lookup(name)
		if err != nil {
			continue
		}

		extra, ok := reg.Provider.(provider.ExtraRouteProvider)
		if !ok {
			continue
		}

		for _, route := range extra.ExtraRoutes(reg.Config, c.issueSession) {
			handler := c.wrapErrors(route.Handler)
			switch route.Method {
			case http.MethodPost:
				group.Post(route.Path, handler)
			case http.MethodDelete:
				group.Delete(route.Path, handler)
			default:
				group.Get(route.Path, handler)
			}
		}
	}

	group.Post(c.Routes.Login, c.LoginPost)
	group.Get(c.Routes.Session+"/:provider", c.Callback)
	group.Delete(c.Routes.Session, c.Destroy, scheme.ProtectedRoute(c.ErrorHandler))
}

// LoginRequest payload
type LoginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Username,
			validation.Required,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// LoginPost creates a session from a username and password. Unknown username
// and wrong password are indistinguishable in the response.
func (c *SessionController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse login payload").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid login payload").
			WithCode(goerrors.CodeBadRequest))
	}

	if c.Debug {
		c.Logger.Debug("session login: %s", print.MaybePrettyJSON(map[string]any{
			"username": payload.Username,
		}))
	}

	candidate, err := c.Repo.Users().GetLoginCandidate(ctx.Context(), payload.Username)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return c.ErrorHandler(ctx, ErrBadCredentials)
		}
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "login candidate lookup failed").
			WithCode(goerrors.CodeInternal))
	}

	hash := c.Hasher.HashPassword(payload.Password, candidate.Salt)

	user, err := c.Repo.Users().VerifyPasswordLogin(ctx.Context(), payload.Username, hash)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return c.ErrorHandler(ctx, ErrBadCredentials)
		}
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "password verification failed").
			WithCode(goerrors.CodeInternal))
	}

	session, err := c.Manager.CreateLoginSession(ctx.Context(), user)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, session)
}

// Callback finishes an OAuth login. The framework handshake must have left a
// verified profile in the locals; the session candidate is built from the
// oauth_token and oauth_verifier query params.
func (c *SessionController) Callback(ctx router.Context) error {
	providerName := ctx.Param("provider")

	if _, err := c.Providers.Lookup(providerName); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	profile := profileFromContext(ctx)
	if profile == nil {
		return c.ErrorHandler(ctx, ErrOAuthRequired)
	}

	token := ctx.Query("oauth_token")
	if token == "" {
		return c.ErrorHandler(ctx, goerrors.New("missing oauth_token query parameter", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest))
	}

	user, err := c.Manager.FindOrCreateUser(ctx.Context(), UserFromProfile(profile))
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	session, err := c.Manager.CreateOAuthSession(ctx.Context(), user, &Session{
		Token:    token,
		Verifier: ctx.Query("oauth_verifier"),
		Provider: providerName,
	})
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	if redirect := c.redirectURL(); redirect != "" {
		return ctx.Redirect(redirect, fiber.StatusFound)
	}

	return ctx.JSON(router.StatusCreated, session)
}

// Destroy deletes the authenticated session. The match is always on the
// (user, token) pair taken from the bearer credentials.
func (c *SessionController) Destroy(ctx router.Context) error {
	creds, err := CredentialsFromContext(ctx)
	if err != nil {
		return c.ErrorHandler(ctx, err)
	}

	if _, err := c.Repo.Sessions().DeleteByUserAndToken(ctx.Context(), creds.User.ID, creds.Session.Token); err != nil {
		return c.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryInternal, "session destroy failed").
			WithCode(goerrors.CodeInternal))
	}

	return ctx.NoContent(router.StatusNoContent)
}

// issueSession is the SessionIssueFunc handed to provider extra routes: it
// reconciles the verified profile and replies with the populated session.
func (c *SessionController) issueSession(ctx router.Context, profile *provider.Profile, cred provider.TokenCredential) error {
	user, err := c.Manager.FindOrCreateUser(ctx.Context(), UserFromProfile(profile))
	if err != nil {
		return err
	}

	session, err := c.Manager.FindOrCreateSession(ctx.Context(), user, profile.Provider)
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusCreated, session)
}

func (c *SessionController) wrapErrors(h router.HandlerFunc) router.HandlerFunc {
	return func(ctx router.Context) error {
		if err := h(ctx); err != nil {
			return c.ErrorHandler(ctx, err)
		}
		return nil
	}
}

func (c *SessionController) redirectURL() string {
	if c.Config == nil {
		return ""
	}
	return c.Config.GetRedirectURL()
}

func (c *SessionController) respondError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	if scheme, ok := richErr.Metadata[MetadataSchemeKey].(string); ok && scheme != "" {
		ctx.SetHeader("WWW-Authenticate", scheme)
	}

	if richErr.Category == goerrors.CategoryInternal {
		c.Logger.Error(
			"session controller error: %s %s",
			richErr.Message,
			print.MaybePrettyJSON(richErr.Metadata),
		)
		return ctx.JSON(router.StatusInternalServerError, map[string]string{
			"error": "Internal Server Error",
		})
	}

	code := richErr.Code
	if code == 0 {
		code = router.StatusInternalServerError
	}

	return ctx.JSON(code, map[string]string{
		"error": richErr.Message,
		"code":  richErr.TextCode,
	})
}

func profileFromContext(ctx router.Context) *provider.Profile {
	val := ctx.Locals(OAuthProfileContextKey)
	if val == nil {
		return nil
	}

	profile, ok := val.(*provider.Profile)
	if !ok {
		return nil
	}

	return profile
}
