package provider

import "github.com/goliatone/go-errors"

const (
	TextCodeProviderNotFound   = "provider_not_found"
	TextCodeBadOAuthHeader     = "bad_oauth_header"
	TextCodeVerificationFailed = "provider_verification_failed"
)

// ErrProviderNotFound is returned when a requested provider is not registered.
var ErrProviderNotFound = errors.New("provider not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProviderNotFound).
	WithCode(errors.CodeNotFound)

// ErrBadOAuthHeader is returned for malformed application-only headers.
var ErrBadOAuthHeader = errors.New("Authorization header incorrect format, 'OAuth token=YOUR_TOKEN secret=YOUR_SECRET'", errors.CategoryBadInput).
	WithTextCode(TextCodeBadOAuthHeader).
	WithCode(errors.CodeBadRequest)

// ErrVerificationFailed is returned when the upstream service rejects the
// presented credential.
var ErrVerificationFailed = errors.New("provider rejected the token credential", errors.CategoryAuth).
	WithTextCode(TextCodeVerificationFailed).
	WithCode(errors.CodeUnauthorized)
