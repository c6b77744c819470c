package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/2beens/fitlog/internal/auth"
	"github.com/2beens/fitlog/internal/identity"
	"github.com/2beens/fitlog/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var DefaultProtectedPrefixes = []string{
	"/sessions",
	"/profile",
	"/api/sessions",
	"/api/profile",
}

//go:generate mockgen -source=$GOFILE -destination=session_gate_mocks_test.go -package=middleware_test

type credentialResolver interface {
	Resolve(ctx context.Context, uid, token string) (identity.Credentials, error)
}

// SessionGate keeps anonymous visitors out of the protected paths. HTML
// visitors are sent to the login page, API callers get a 401.
type SessionGate struct {
	resolver          credentialResolver
	cookies           auth.CookieSettings
	protectedPrefixes []string
}

func NewSessionGate(resolver credentialResolver, cookies auth.CookieSettings, protectedPrefixes ...string) *SessionGate {
	if len(protectedPrefixes) == 0 {
		protectedPrefixes = DefaultProtectedPrefixes
	}
	return &SessionGate{
		resolver:          resolver,
		cookies:           cookies,
		protectedPrefixes: protectedPrefixes,
	}
}

func (g *SessionGate) isProtected(path string) bool {
	for _, prefix := range g.protectedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func wantsHTML(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		return true
	}
	return !strings.HasPrefix(r.URL.Path, "/api/")
}

func (g *SessionGate) Handler() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || !g.isProtected(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.sessionGate")
			defer span.End()

			uid, token := auth.CredentialsFromRequest(r)
			if uid == "" || token == "" {
				log.Tracef("[missing credentials] [session gate] => %s", r.URL.Path)
				span.SetStatus(codes.Error, "missing-credentials")
				g.deny(w, r)
				return
			}

			creds, err := g.resolver.Resolve(ctx, uid, token)
			if err != nil {
				span.RecordError(err)
				if !isCredentialError(err) {
					log.Errorf("[session gate] resolve credentials for [%s]: %s", uid, err)
					span.SetStatus(codes.Error, "resolve-failed")
					http.Error(w, "auth check failed", http.StatusInternalServerError)
					return
				}
				log.Tracef("[invalid credentials] [session gate] %s => %s: %s", uid, r.URL.Path, err)
				span.SetStatus(codes.Error, "invalid-credentials")
				g.cookies.Clear(w)
				g.deny(w, r)
				return
			}

			if creds.Token != token {
				span.SetAttributes(attribute.Bool("token.refreshed", true))
				g.cookies.Set(w, creds.UID, creds.Token)
			}

			span.SetAttributes(attribute.String("user.id", creds.UID))
			span.SetStatus(codes.Ok, "ok")
			ctx = identity.WithCredentials(ctx, creds.UID, creds.Token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (g *SessionGate) deny(w http.ResponseWriter, r *http.Request) {
	if wantsHTML(r) {
		http.Redirect(w, r, auth.LoginPath, http.StatusFound)
		return
	}
	http.Error(w, "no can do", http.StatusUnauthorized)
}

func isCredentialError(err error) bool {
	var authErr *identity.AuthError
	return errors.As(err, &authErr) ||
		errors.Is(err, auth.ErrInvalidToken) ||
		errors.Is(err, identity.ErrTokenMismatch) ||
		errors.Is(err, identity.ErrNoRefreshToken)
}
