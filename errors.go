package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeUnknownUser        = "AUTH_UNKNOWN_USER"
	TextCodeBadCredentials     = "AUTH_BAD_CREDENTIALS"
	TextCodeAuthFailed         = "AUTH_FAILED"
	TextCodeSignatureInvalid   = "TOKEN_SIGNATURE_INVALID"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeUnauthenticated    = "UNAUTHENTICATED"
	TextCodeInsufficientRole   = "INSUFFICIENT_ROLE"
	TextCodeInternalCodec      = "TOKEN_CODEC_FAILURE"
	TextCodeInternal           = "INTERNAL_ERROR"
	TextCodeIdentityNotFound   = "IDENTITY_NOT_FOUND"
	TextCodeUsernameTaken      = "USERNAME_TAKEN"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodePasswordTooLong    = "PASSWORD_TOO_LONG"
	TextCodeWeakSigningKey     = "WEAK_SIGNING_KEY"
	TextCodeDefaultPolicyUnset = "DEFAULT_POLICY_UNSET"
)

// ErrIdentityNotFound is returned by identity stores for unknown usernames
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUnknownUser is the internal login rejection reason for a username with no identity
var ErrUnknownUser = goerrors.New("unknown user", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnknownUser).
	WithCode(goerrors.CodeUnauthorized)

// ErrBadCredentials is the internal login rejection reason for a password mismatch
var ErrBadCredentials = goerrors.New("bad credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeBadCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrAuthenticationFailed is the only login failure callers ever observe
var ErrAuthenticationFailed = goerrors.New("authentication failed", goerrors.CategoryAuth).
	WithTextCode(TextCodeAuthFailed).
	WithCode(goerrors.CodeUnauthorized)

// ErrSignatureInvalid the token was not signed with our key
var ErrSignatureInvalid = goerrors.New("token signature is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeSignatureInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed the token is authentic but its claims do not decode
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired the token is authentic but stale
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnauthenticated a protected route was requested without a valid credential
var ErrUnauthenticated = goerrors.New("authentication required", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(goerrors.CodeUnauthorized)

// ErrInsufficientRole the principal lacks the roles a route requires
var ErrInsufficientRole = goerrors.New("insufficient role", goerrors.CategoryAuthz).
	WithTextCode(TextCodeInsufficientRole).
	WithCode(goerrors.CodeForbidden)

// ErrInternalCodec unexpected encode fault in the token codec
var ErrInternalCodec = goerrors.New("token codec failure", goerrors.CategoryInternal).
	WithTextCode(TextCodeInternalCodec).
	WithCode(goerrors.CodeInternal)

// ErrInternal generic server error surfaced for unexpected failures
var ErrInternal = goerrors.New("internal server error", goerrors.CategoryInternal).
	WithTextCode(TextCodeInternal).
	WithCode(goerrors.CodeInternal)

// ErrUsernameTaken registration conflict
var ErrUsernameTaken = goerrors.New("username already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeUsernameTaken).
	WithCode(goerrors.CodeConflict)

// ErrNoEmptyString we do not hash empty passwords
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrPasswordTooLong bcrypt only reads the first 72 bytes
var ErrPasswordTooLong = goerrors.New("password must not exceed 72 bytes", goerrors.CategoryValidation).
	WithTextCode(TextCodePasswordTooLong).
	WithCode(goerrors.CodeBadRequest)

// ErrWeakSigningKey the HMAC key is shorter than 256 bits
var ErrWeakSigningKey = goerrors.New("signing key must be at least 32 bytes", goerrors.CategoryValidation).
	WithTextCode(TextCodeWeakSigningKey).
	WithCode(goerrors.CodeInternal)

// ErrDefaultPolicyUnset rule tables need an explicit default policy
var ErrDefaultPolicyUnset = goerrors.New("rule table default policy must be set", goerrors.CategoryValidation).
	WithTextCode(TextCodeDefaultPolicyUnset).
	WithCode(goerrors.CodeInternal)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return goerrors.Is(err, ErrTokenExpired)
}

// IsMalformedError will check for tokens we could not authenticate or decode
func IsMalformedError(err error) bool {
	return goerrors.Is(err, ErrTokenMalformed) || goerrors.Is(err, ErrSignatureInvalid)
}

// StatusCode returns the HTTP status attached to a structured error, 500 otherwise
func StatusCode(err error) int {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Code != 0 {
		return richErr.Code
	}
	return goerrors.CodeInternal
}
