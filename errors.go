package sessionstore

import (
	stderrors "errors"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeMissingAuthorization = "missing_authorization"
	TextCodeBadHeaderFormat      = "bad_header_format"
	TextCodeWrongScheme          = "wrong_auth_scheme"
	TextCodeNotAuthorised        = "not_authorised"
	TextCodeOrphanSession        = "orphan_session"
	TextCodeAccountInactive      = "account_inactive"
	TextCodeBadCredentials       = "bad_credentials"
	TextCodeOAuthRequired        = "oauth_required"
)

// Authentication scheme hints surfaced in the WWW-Authenticate header.
const (
	SchemeSessionStore = "session_store"
	SchemeBearer       = "Bearer"
)

// MetadataSchemeKey carries the scheme hint inside error metadata.
const MetadataSchemeKey = "scheme"

// ErrMissingAuthHeader is returned when the Authorization header is absent.
var ErrMissingAuthHeader = errors.New("Not authorised to perform this action.", errors.CategoryAuth).
	WithTextCode(TextCodeMissingAuthorization).
	WithCode(errors.CodeUnauthorized).
	WithMetadata(map[string]any{
		MetadataSchemeKey: SchemeSessionStore,
	})

// ErrBadHeaderFormat is returned when the header does not split into exactly
// a scheme and a token.
var ErrBadHeaderFormat = errors.New("Bad HTTP authentication header format", errors.CategoryBadInput).
	WithTextCode(TextCodeBadHeaderFormat).
	WithCode(errors.CodeBadRequest)

// ErrWrongAuthScheme is returned when the scheme part is not bearer.
var ErrWrongAuthScheme = errors.New("Not authorised to perform this action.", errors.CategoryAuth).
	WithTextCode(TextCodeWrongScheme).
	WithCode(errors.CodeUnauthorized).
	WithMetadata(map[string]any{
		MetadataSchemeKey: SchemeBearer,
	})

// ErrUnknownToken is returned when no session matches the presented token.
var ErrUnknownToken = errors.New("Not authorised to perform this action.", errors.CategoryAuth).
	WithTextCode(TextCodeNotAuthorised).
	WithCode(errors.CodeUnauthorized)

// ErrOrphanSession is returned for a session with no resolvable user. The
// record should not exist; the scheme logs it as an invariant violation.
var ErrOrphanSession = errors.New("Session exists without valid user", errors.CategoryAuth).
	WithTextCode(TextCodeOrphanSession).
	WithCode(errors.CodeUnauthorized)

// ErrAccountInactive is returned when reconciliation resolves to a user that
// is not active.
var ErrAccountInactive = errors.New("account is not active", errors.CategoryAuth).
	WithTextCode(TextCodeAccountInactive).
	WithCode(errors.CodeUnauthorized)

// ErrBadCredentials is the uniform response for unknown username or wrong
// password.
var ErrBadCredentials = errors.New("Incorrect username or password.", errors.CategoryAuth).
	WithTextCode(TextCodeBadCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrOAuthRequired is returned when the OAuth callback fires without an
// authenticated provider result in the request locals.
var ErrOAuthRequired = errors.New("Not authorised to perform this action.", errors.CategoryAuth).
	WithTextCode(TextCodeOAuthRequired).
	WithCode(errors.CodeUnauthorized)

// IsUniqueViolation checks for unique constraint errors across the drivers we
// run against (sqlite in tests, postgres in production). The repository layer
// wraps driver errors behind its own message, so the driver text only shows up
// somewhere down the unwrap chain.
func IsUniqueViolation(err error) bool {
	for err != nil {
		msg := err.Error()
		if strings.Contains(msg, "UNIQUE constraint failed") ||
			strings.Contains(msg, "duplicate key value") {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}
