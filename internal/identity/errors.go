package identity

import (
	"errors"
	"strings"
)

var (
	ErrNoRefreshToken = errors.New("no refresh token stored")
	ErrTokenMismatch  = errors.New("token does not belong to user")
	// ErrProviderUnavailable is a provider failure that says nothing about
	// the credentials: 5xx answers and error bodies without a message.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// AuthError is a failure reported by the identity provider. Code is the
// provider's machine code (EMAIL_NOT_FOUND, WEAK_PASSWORD, ...), Message the
// text shown to the user.
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

var authErrorMessages = map[string]string{
	"EMAIL_NOT_FOUND":             "No account found for this email.",
	"INVALID_PASSWORD":            "Incorrect password.",
	"INVALID_LOGIN_CREDENTIALS":   "Invalid email or password.",
	"INVALID_EMAIL":               "The email address is badly formatted.",
	"MISSING_PASSWORD":            "Password is required.",
	"EMAIL_EXISTS":                "An account with this email already exists.",
	"WEAK_PASSWORD":               "Password should be at least 6 characters.",
	"USER_DISABLED":               "This account has been disabled.",
	"TOO_MANY_ATTEMPTS_TRY_LATER": "Too many attempts. Try again later.",
	"OPERATION_NOT_ALLOWED":       "Password sign-in is disabled for this project.",
	"TOKEN_EXPIRED":               "Your session has expired. Please sign in again.",
	"INVALID_REFRESH_TOKEN":       "Your session has expired. Please sign in again.",
	"USER_NOT_FOUND":              "Your session has expired. Please sign in again.",
}

// newAuthError parses a provider message like
// "WEAK_PASSWORD : Password should be at least 6 characters".
func newAuthError(providerMessage string) *AuthError {
	code, detail, _ := strings.Cut(providerMessage, " : ")
	code = strings.TrimSpace(code)

	if msg, ok := authErrorMessages[code]; ok {
		return &AuthError{Code: code, Message: msg}
	}
	if detail != "" {
		return &AuthError{Code: code, Message: detail}
	}
	return &AuthError{Code: code, Message: code}
}
