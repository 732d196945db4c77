package adminkit

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeRateLimited     = "RATE_LIMITED"
	TextCodeInvalidCreds    = "INVALID_CREDENTIALS"
	TextCodeSessionNotFound = "SESSION_NOT_FOUND"
	TextCodeTokenExpired    = "TOKEN_EXPIRED"
	TextCodeTokenMalformed  = "TOKEN_MALFORMED"
	TextCodeAccessDenied    = "ACCESS_DENIED"
	TextCodeRefreshFailed   = "REFRESH_FAILED"
	TextCodeItemNotFound    = "ITEM_NOT_FOUND"
	TextCodeItemExists      = "ITEM_EXISTS"
)

// ErrRateLimited is returned when the failed-login counter has tripped the
// lockout window. Attempts made during lockout do not extend the window.
var ErrRateLimited = goerrors.New("too many failed login attempts", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeRateLimited).
	WithCode(http.StatusTooManyRequests)

// ErrAuthenticationFailed is the uniform error for rejected credentials.
var ErrAuthenticationFailed = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToFindSession is returned when no session is persisted locally.
var ErrUnableToFindSession = goerrors.New("unable to find session", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired flags an access token past its expiry claim.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed flags a token we could not decode.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccessDenied is terminal: the user's role does not cover the route and
// there is nothing to retry.
var ErrAccessDenied = goerrors.New("access denied", goerrors.CategoryAuthz).
	WithTextCode(TextCodeAccessDenied).
	WithCode(goerrors.CodeForbidden)

// ErrRefreshFailed wraps a failed token refresh; the session is torn down.
var ErrRefreshFailed = goerrors.New("session refresh failed", goerrors.CategoryAuth).
	WithTextCode(TextCodeRefreshFailed).
	WithCode(goerrors.CodeUnauthorized)

// ErrItemNotFound is returned for carousel operations on unknown item IDs.
var ErrItemNotFound = goerrors.New("carousel item not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeItemNotFound).
	WithCode(http.StatusNotFound)

// ErrItemExists is returned when adding a carousel item whose ID is taken.
var ErrItemExists = goerrors.New("carousel item already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeItemExists).
	WithCode(goerrors.CodeConflict)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}

	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}

	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
