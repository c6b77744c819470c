package auth

import (
	"net/http"
	"strings"
)

const (
	CookieToken = "fb_token"
	CookieUID   = "uid"

	DefaultCookieMaxAge = 3600
)

// CookieSettings controls the cookies handed out on sign-in.
type CookieSettings struct {
	MaxAge int
	Secure bool
}

func (c CookieSettings) Set(w http.ResponseWriter, uid, token string) {
	maxAge := c.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultCookieMaxAge
	}
	http.SetCookie(w, c.cookie(CookieToken, token, maxAge))
	http.SetCookie(w, c.cookie(CookieUID, uid, maxAge))
}

func (c CookieSettings) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(CookieToken, "", -1))
	http.SetCookie(w, c.cookie(CookieUID, "", -1))
}

func (c CookieSettings) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// CredentialsFromRequest reads the uid and ID token from the session
// cookies, falling back to the X-User-Id and Authorization headers.
func CredentialsFromRequest(r *http.Request) (uid, token string) {
	if c, err := r.Cookie(CookieToken); err == nil {
		token = c.Value
	}
	if token == "" {
		if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
			token = strings.TrimSpace(bearer)
		}
	}

	if c, err := r.Cookie(CookieUID); err == nil {
		uid = c.Value
	}
	if uid == "" {
		uid = strings.TrimSpace(r.Header.Get("X-User-Id"))
	}
	return uid, token
}
