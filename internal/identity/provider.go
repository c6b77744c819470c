package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/fitlog/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultIdentityToolkitURL = "https://identitytoolkit.googleapis.com/v1"
	DefaultSecureTokenURL     = "https://securetoken.googleapis.com/v1"
)

// Provider talks to the Firebase Authentication REST API.
type Provider struct {
	identityToolkitURL string
	secureTokenURL     string
	apiKey             string
	httpClient         *http.Client
	now                func() time.Time
}

func NewProvider(identityToolkitURL, secureTokenURL, apiKey string, httpClient *http.Client) *Provider {
	return &Provider{
		identityToolkitURL: strings.TrimRight(identityToolkitURL, "/"),
		secureTokenURL:     strings.TrimRight(secureTokenURL, "/"),
		apiKey:             apiKey,
		httpClient:         httpClient,
		now:                time.Now,
	}
}

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type passwordResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type refreshResponse struct {
	UserID       string `json:"user_id"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "identity.signIn")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	return p.passwordCall(ctx, "accounts:signInWithPassword", email, password)
}

func (p *Provider) SignUp(ctx context.Context, email, password string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "identity.signUp")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	return p.passwordCall(ctx, "accounts:signUp", email, password)
}

func (p *Provider) passwordCall(ctx context.Context, method, email, password string) (*User, error) {
	reqBody, err := json.Marshal(passwordRequest{
		Email:             strings.TrimSpace(email),
		Password:          password,
		ReturnSecureToken: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/%s?key=%s", p.identityToolkitURL, method, url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp passwordResponse
	if err := p.do(req, &resp); err != nil {
		return nil, err
	}

	return p.newUser(resp.LocalID, resp.Email, resp.IDToken, resp.RefreshToken, resp.ExpiresIn), nil
}

func (p *Provider) Refresh(ctx context.Context, refreshToken string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "identity.refresh")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	endpoint := fmt.Sprintf("%s/token?key=%s", p.secureTokenURL, url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp refreshResponse
	if err := p.do(req, &resp); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("user.id", resp.UserID))
	return p.newUser(resp.UserID, "", resp.IDToken, resp.RefreshToken, resp.ExpiresIn), nil
}

func (p *Provider) do(req *http.Request, target any) error {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read identity response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// only a provider verdict on the credentials is an AuthError
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
		}
		var errResp errorResponse
		if err := json.Unmarshal(respBytes, &errResp); err != nil || errResp.Error.Message == "" {
			log.Debugf("identity error body without message [%d]: %s", resp.StatusCode, respBytes)
			return fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
		}
		return newAuthError(errResp.Error.Message)
	}

	if err := json.Unmarshal(respBytes, target); err != nil {
		return fmt.Errorf("unmarshal identity response: %w", err)
	}
	return nil
}

// newUser prefers the token's own claims for uid and expiry, and falls
// back to the response fields.
func (p *Provider) newUser(uid, email, idToken, refreshToken, expiresIn string) *User {
	u := &User{
		UID:          uid,
		Email:        email,
		IDToken:      idToken,
		RefreshToken: refreshToken,
	}
	if seconds, err := strconv.Atoi(expiresIn); err == nil {
		u.ExpiresAt = p.now().Add(time.Duration(seconds) * time.Second)
	}

	if claims, err := ParseIDToken(idToken); err == nil {
		if u.UID == "" {
			u.UID = claims.UserID
		}
		if u.Email == "" {
			u.Email = claims.Email
		}
		if exp := claims.Expiry(); !exp.IsZero() {
			u.ExpiresAt = exp
		}
	} else {
		log.Tracef("id token claims not readable: %s", err)
	}

	return u
}
