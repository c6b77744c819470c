package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/fitlog/internal/identity"
	"github.com/2beens/fitlog/internal/telemetry/metrics"
	"github.com/2beens/fitlog/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var ErrInvalidToken = errors.New("invalid id token")

const (
	eventSignIn  = "signin"
	eventSignUp  = "signup"
	eventSignOut = "signout"
	eventRefresh = "refresh"

	outcomeOK    = "ok"
	outcomeError = "error"
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=auth_test

type identityProvider interface {
	SignIn(ctx context.Context, email, password string) (*identity.User, error)
	SignUp(ctx context.Context, email, password string) (*identity.User, error)
	Refresh(ctx context.Context, refreshToken string) (*identity.User, error)
}

type tokenVerifier interface {
	VerifyIgnoringExpiry(token string) (*identity.Claims, error)
}

type refreshStore interface {
	Save(ctx context.Context, uid, refreshToken string) error
	Get(ctx context.Context, uid string) (string, error)
	Delete(ctx context.Context, uid string) error
}

// Service signs users in and out against the identity provider and keeps
// their ID tokens usable past expiry through stored refresh tokens.
type Service struct {
	provider       identityProvider
	verifier       tokenVerifier
	refreshStore   refreshStore
	tokenCache     *identity.TokenCache
	metricsManager *metrics.Manager
	now            func() time.Time
}

func NewService(
	provider identityProvider,
	verifier tokenVerifier,
	refreshStore refreshStore,
	tokenCache *identity.TokenCache,
	metricsManager *metrics.Manager,
) *Service {
	return &Service{
		provider:       provider,
		verifier:       verifier,
		refreshStore:   refreshStore,
		tokenCache:     tokenCache,
		metricsManager: metricsManager,
		now:            time.Now,
	}
}

func (s *Service) SignIn(ctx context.Context, email, password string) (_ *identity.User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "authService.signIn")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
		s.recordEvent(eventSignIn, err)
	}()

	user, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, user)
	span.SetAttributes(attribute.String("user.id", user.UID))
	return user, nil
}

func (s *Service) SignUp(ctx context.Context, email, password string) (_ *identity.User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "authService.signUp")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
		s.recordEvent(eventSignUp, err)
	}()

	user, err := s.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, user)
	span.SetAttributes(attribute.String("user.id", user.UID))
	return user, nil
}

// SignOut forgets the stored refresh token and any cached ID token of uid.
func (s *Service) SignOut(ctx context.Context, uid string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "authService.signOut")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
		s.recordEvent(eventSignOut, err)
	}()

	s.tokenCache.Delete(uid)
	return s.refreshStore.Delete(ctx, uid)
}

// Resolve turns the credentials a request carries into ones the
// persistence backend accepts. The token must verify and belong to uid;
// only then is an expired one swapped for a cached or refreshed one.
func (s *Service) Resolve(ctx context.Context, uid, token string) (_ identity.Credentials, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "authService.resolve")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	claims, err := s.verifier.VerifyIgnoringExpiry(token)
	if err != nil {
		return identity.Credentials{}, fmt.Errorf("%w: %s", ErrInvalidToken, err)
	}
	if claims.UserID != uid {
		return identity.Credentials{}, identity.ErrTokenMismatch
	}

	current := &identity.User{
		UID:       uid,
		Email:     claims.Email,
		IDToken:   token,
		ExpiresAt: claims.Expiry(),
	}
	now := s.now()
	if current.Valid(now) {
		return identity.Credentials{UID: uid, Token: token}, nil
	}

	if cached, ok := s.tokenCache.Get(uid); ok {
		span.SetAttributes(attribute.Bool("token.cached", true))
		return identity.Credentials{UID: uid, Token: cached}, nil
	}

	current.RefreshToken, err = s.refreshStore.Get(ctx, uid)
	if err != nil {
		return identity.Credentials{}, err
	}

	fresh, err := current.Fresh(ctx, s.provider, now)
	s.recordEvent(eventRefresh, err)
	if err != nil {
		return identity.Credentials{}, err
	}
	s.remember(ctx, fresh)

	return identity.Credentials{UID: fresh.UID, Token: fresh.IDToken}, nil
}

// remember stores what is needed to refresh the user later. Failures only
// cost a later re-login, so they are logged and not returned.
func (s *Service) remember(ctx context.Context, user *identity.User) {
	if user.RefreshToken != "" {
		if err := s.refreshStore.Save(ctx, user.UID, user.RefreshToken); err != nil {
			log.Errorf("save refresh token for [%s]: %s", user.UID, err)
		}
	}
	if err := s.tokenCache.Put(user.UID, user.IDToken, user.ExpiresAt); err != nil {
		log.Warnf("cache id token for [%s]: %s", user.UID, err)
	}
}

func (s *Service) recordEvent(event string, err error) {
	if s.metricsManager == nil {
		return
	}
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}
	s.metricsManager.CounterAuthEvents.WithLabelValues(event, outcome).Inc()
}
