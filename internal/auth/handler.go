package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/2beens/fitlog/internal/identity"
	"github.com/2beens/fitlog/internal/telemetry/tracing"
	"github.com/2beens/fitlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=auth_test

type authService interface {
	SignIn(ctx context.Context, email, password string) (*identity.User, error)
	SignUp(ctx context.Context, email, password string) (*identity.User, error)
	SignOut(ctx context.Context, uid string) error
}

const (
	// LoginPath serves the sign-in form; failed form submissions return
	// there with an error query parameter.
	LoginPath = "/login"
	// AfterSignInPath is where a browser lands after signing in with the
	// login page form.
	AfterSignInPath = "/sessions"
)

type Handler struct {
	service authService
	cookies CookieSettings
}

func NewHandler(service authService, cookies CookieSettings) *Handler {
	return &Handler{
		service: service,
		cookies: cookies,
	}
}

// SetupRoutes registers sign-in, sign-up and sign-out on a router mounted
// under /a. Rate limiting is left to the caller's middleware.
func (h *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/signin", h.handleSignIn).Methods("POST", "OPTIONS").Name("signin")
	router.HandleFunc("/signup", h.handleSignUp).Methods("POST", "OPTIONS").Name("signup")
	router.HandleFunc("/signout", h.handleSignOut).Methods("GET", "POST", "OPTIONS").Name("signout")
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// readCredentialsRequest accepts JSON or a posted HTML form. fromForm
// tells the caller to answer with a redirect.
func readCredentialsRequest(r *http.Request) (_ credentialsRequest, fromForm bool, _ error) {
	var req credentialsRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, false, err
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return req, true, err
		}
		req = credentialsRequest{
			Email:    r.Form.Get("email"),
			Password: r.Form.Get("password"),
		}
		fromForm = true
	}
	req.Email = strings.TrimSpace(req.Email)
	return req, fromForm, nil
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	h.handlePasswordCall(w, r, "authHandler.signIn", http.StatusOK, h.service.SignIn)
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	h.handlePasswordCall(w, r, "authHandler.signUp", http.StatusCreated, h.service.SignUp)
}

func (h *Handler) handlePasswordCall(
	w http.ResponseWriter,
	r *http.Request,
	spanName string,
	successStatus int,
	call func(ctx context.Context, email, password string) (*identity.User, error),
) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), spanName)
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	req, fromForm, err := readCredentialsRequest(r)
	if err != nil {
		log.Errorf("%s, read request: %s", spanName, err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		http.Error(w, "error, email empty", http.StatusBadRequest)
		return
	}
	if req.Password == "" {
		http.Error(w, "error, password empty", http.StatusBadRequest)
		return
	}

	user, err := call(ctx, req.Email, req.Password)
	if err != nil {
		span.RecordError(err)
		var authErr *identity.AuthError
		if errors.As(err, &authErr) {
			log.Tracef("%s rejected [%s]: %s", spanName, authErr.Code, req.Email)
			span.SetStatus(codes.Error, authErr.Code)
			if fromForm {
				http.Redirect(w, r, LoginPath+"?error="+url.QueryEscape(authErr.Message), http.StatusSeeOther)
				return
			}
			http.Error(w, authErr.Message, http.StatusUnauthorized)
			return
		}
		log.Errorf("%s failed: %s", spanName, err)
		span.SetStatus(codes.Error, "internal")
		http.Error(w, "authentication unavailable", http.StatusInternalServerError)
		return
	}

	span.SetAttributes(attribute.String("user.id", user.UID))
	h.cookies.Set(w, user.UID, user.IDToken)

	if fromForm {
		http.Redirect(w, r, AfterSignInPath, http.StatusSeeOther)
		return
	}

	respBytes, err := json.Marshal(user)
	if err != nil {
		log.Errorf("marshal user: %s", err)
		http.Error(w, "marshal user error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respBytes, successStatus)
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "authHandler.signOut")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	// cookies are cleared even if the refresh token could not be removed
	if uid, _ := CredentialsFromRequest(r); uid != "" {
		span.SetAttributes(attribute.String("user.id", uid))
		if err := h.service.SignOut(ctx, uid); err != nil {
			span.RecordError(err)
			log.Errorf("sign out [%s]: %s", uid, err)
		}
	}

	h.cookies.Clear(w)
	pkg.WriteTextResponseOK(w, "signed-out")
}
