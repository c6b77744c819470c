package pages

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/fitlog/internal/apierr"
	"github.com/2beens/fitlog/internal/auth"
	"github.com/2beens/fitlog/internal/fitness"
	"github.com/2beens/fitlog/internal/forms"
	"github.com/2beens/fitlog/internal/identity"
	"github.com/2beens/fitlog/internal/telemetry/tracing"
	"github.com/2beens/fitlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:generate mockgen -source=$GOFILE -destination=pages_mocks_test.go -package=pages_test

type sessionsLister interface {
	ListSessions(ctx context.Context, uid string) ([]fitness.Session, error)
}

type profileLoader interface {
	GetProfile(ctx context.Context, uid string) (*fitness.Profile, error)
}

// Handler renders the browser pages. Editing goes through the JSON API;
// these pages only read.
type Handler struct {
	sessions  sessionsLister
	profiles  profileLoader
	templates *template.Template
	now       func() time.Time
}

func NewHandler(sessions sessionsLister, profiles profileLoader) (*Handler, error) {
	tpl, err := template.New("pages").Funcs(template.FuncMap{
		"optional": optionalText,
		"calories": caloriesText,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Handler{
		sessions:  sessions,
		profiles:  profiles,
		templates: tpl,
		now:       time.Now,
	}, nil
}

func (h *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/login", h.HandleLogin).Methods("GET").Name("login-page")
	router.HandleFunc("/sessions", h.HandleSessions).Methods("GET").Name("sessions-page")
	router.HandleFunc("/profile", h.HandleProfile).Methods("GET").Name("profile-page")
}

type loginPage struct {
	Error string
}

type sessionsPage struct {
	Sessions []fitness.Session
	Stats    fitness.Stats
	Presets  []fitness.SessionPreset
}

type profilePage struct {
	Form  forms.ProfileForm
	BMI   *fitness.BMI
	Goals []string
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login", loginPage{Error: r.URL.Query().Get("error")})
}

func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "pages.sessions")
	defer span.End()

	creds, ok := identity.CredentialsFromContext(ctx)
	if !ok {
		http.Redirect(w, r, auth.LoginPath, http.StatusFound)
		return
	}

	list, err := h.sessions.ListSessions(ctx, creds.UID)
	if err != nil {
		span.RecordError(err)
		apierr.Write(w, "sessions page", err)
		return
	}

	span.SetAttributes(attribute.Int("sessions.count", len(list)))
	h.render(w, "sessions", sessionsPage{
		Sessions: list,
		Stats:    fitness.ComputeStats(list, h.now()),
		Presets:  fitness.Presets(),
	})
}

func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "pages.profile")
	defer span.End()

	creds, ok := identity.CredentialsFromContext(ctx)
	if !ok {
		http.Redirect(w, r, auth.LoginPath, http.StatusFound)
		return
	}

	p, err := h.profiles.GetProfile(ctx, creds.UID)
	if err != nil {
		span.RecordError(err)
		apierr.Write(w, "profile page", err)
		return
	}

	page := profilePage{
		Form:  forms.ProfileFormFromRecord(p),
		Goals: fitness.GoalOptions(),
	}
	if bmi, ok := page.Form.BMI(); ok {
		page.BMI = &bmi
	}
	h.render(w, "profile", page)
}

// render executes into a buffer first so a template error never leaves a
// half written page behind.
func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Errorf("render page [%s]: %s", name, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.HTML, buf.Bytes(), http.StatusOK)
}

func optionalText(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func caloriesText(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
