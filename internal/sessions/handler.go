package sessions

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/2beens/fitlog/internal/apierr"
	"github.com/2beens/fitlog/internal/fitness"
	"github.com/2beens/fitlog/internal/forms"
	"github.com/2beens/fitlog/internal/identity"
	"github.com/2beens/fitlog/internal/telemetry/metrics"
	"github.com/2beens/fitlog/internal/telemetry/tracing"
	"github.com/2beens/fitlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=sessions_test

type sessionsRepo interface {
	ListSessions(ctx context.Context, uid string) ([]fitness.Session, error)
	GetSession(ctx context.Context, uid, id string) (*fitness.Session, error)
	CreateSession(ctx context.Context, uid string, in fitness.SessionInput) (*fitness.Session, error)
	UpdateSession(ctx context.Context, uid, id string, in fitness.SessionInput) (*fitness.Session, error)
	DeleteSession(ctx context.Context, uid, id string) error
}

const noPresetLabel = "none"

type ListResponse struct {
	Sessions []fitness.Session `json:"sessions"`
	Stats    fitness.Stats     `json:"stats"`
}

type DeleteSessionResponse struct {
	DeletedID string `json:"deletedId"`
}

type PresetsResponse struct {
	Presets            []fitness.SessionPreset `json:"presets"`
	CustomPreset       string                  `json:"customPreset"`
	Intensities        []fitness.Intensity     `json:"intensities"`
	Sources            []string                `json:"sources"`
	Goals              []string                `json:"goals"`
	DurationQuickPicks []int                   `json:"durationQuickPicks"`
	CalorieQuickPicks  []int                   `json:"calorieQuickPicks"`
}

type Handler struct {
	repo           sessionsRepo
	metricsManager *metrics.Manager
	now            func() time.Time
}

func NewHandler(repo sessionsRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:           repo,
		metricsManager: metricsManager,
		now:            time.Now,
	}
}

func (h *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/api/presets", h.HandlePresets).Methods("GET").Name("presets")

	router.HandleFunc("/api/sessions", h.HandleList).Methods("GET").Name("sessions-list")
	router.HandleFunc("/api/sessions", h.HandleCreate).Methods("POST").Name("sessions-create")
	router.HandleFunc("/api/sessions/stats", h.HandleStats).Methods("GET").Name("sessions-stats")
	router.HandleFunc("/api/sessions/new/form", h.HandleNewForm).Methods("GET").Name("sessions-new-form")
	router.HandleFunc("/api/sessions/{id}/form", h.HandleEditForm).Methods("GET").Name("sessions-edit-form")
	router.HandleFunc("/api/sessions/{id}", h.HandleGet).Methods("GET").Name("sessions-get")
	router.HandleFunc("/api/sessions/{id}", h.HandleUpdate).Methods("PUT").Name("sessions-update")
	router.HandleFunc("/api/sessions/{id}", h.HandleDelete).Methods("DELETE").Name("sessions-delete")
}

func ownerFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	creds, ok := identity.CredentialsFromContext(r.Context())
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return "", false
	}
	return creds.UID, true
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.list")
	defer span.End()

	uid, ok := ownerFrom(w, r)
	if !ok {
		return
	}

	sessions, err := h.repo.ListSessions(ctx, uid)
	if err != nil {
		span.RecordError(err)
		apierr.Write(w, "list sessions", err)
		return
	}

	span.SetAttributes(attribute.Int("sessions.count", len(sessions)))
	pkg.WriteJSON(w, ListResponse{
		Sessions: sessions,
		Stats:    fitness.ComputeStats(sessions, h.now()),
	}, http.StatusOK)
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.stats")
	defer span.End()

	uid, ok := ownerFrom(w, r)
	if !ok {
		return
	}

	sessions, err := h.repo.ListSessions(ctx, uid)
	if err != nil {
		span.RecordError(err)
		apierr.Write(w, "sessions stats", err)
		return
	}

	pkg.WriteJSON(w, fitness.ComputeStats(sessions, h.now()), http.StatusOK)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.get")
	defer span.End()

	uid, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("session.id", id))

	session, err := h.repo.GetSession(ctx, uid, id)
	if err != nil {
		span.RecordError(err)
		apierr.Write(w, "get session", err)
		return
	}
	if session == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	pkg.WriteJSON(w, session, http.StatusOK)
}

// HandleNewForm returns the state of an empty form, or of one pre-filled
// from ?preset=<id>.
func (h *Handler) HandleNewForm(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.newForm")
	defer span.End()

	form := forms.NewSessionForm(h.now())
	if preset := strings.TrimSpace(r.URL.Query().Get("preset")); preset != "" {
		span.SetAttributes(attribute.String("session.preset", preset))
		if !form.SelectPreset(preset) {
			log.Debugf("new session form, unknown preset [%s]", preset)
		}
	}

	pkg.WriteJSON(w, form, http.StatusOK)
}

func (h *Handler) HandleEditForm(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.editForm")
	defer span.End()

	uid, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("session.id", id))

	session, err := h.repo.GetSession(ctx, uid, id)
	if err != nil {
		span.RecordError(err)
		apierr.Write(w, "edit session form", err)
		return
	}
	if session == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	pkg.WriteJSON(w, forms.SessionFormFromRecord(*session), http.StatusOK)
}

func readSessionForm(w http.ResponseWriter, r *http.Request) (forms.SessionForm, fitness.SessionInput, bool) {
	var form forms.SessionForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		log.Tracef("session form, unmarshal json: %s", err)
		http.Error(w, "invalid session form", http.StatusBadRequest)
		return form, fitness.SessionInput{}, false
	}

	in, err := form.ToInput()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return form, fitness.SessionInput{}, false
	}
	return form, in, true
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.create")
	defer span.End()

	uid, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	form, in, ok := readSessionForm(w, r)
	if !ok {
		return
	}

	created, err := h.repo.CreateSession(ctx, uid, in)
	if err != nil {
		span.RecordError(err)
		apierr.Write(w, "create session", err)
		return
	}

	span.SetAttributes(attribute.String("session.id", created.ID))
	h.countSaved("create", form.SelectedPreset)
	log.Debugf("session [%s] created for [%s]", created.ID, uid)
	pkg.WriteJSON(w, created, http.StatusCreated)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.update")
	defer span.End()

	uid, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("session.id", id))

	form, in, ok := readSessionForm(w, r)
	if !ok {
		return
	}

	updated, err := h.repo.UpdateSession(ctx, uid, id, in)
	if err != nil {
		span.RecordError(err)
		apierr.Write(w, "update session", err)
		return
	}

	h.countSaved("update", form.SelectedPreset)
	pkg.WriteJSON(w, updated, http.StatusOK)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.delete")
	defer span.End()

	uid, ok := ownerFrom(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("session.id", id))

	if err := h.repo.DeleteSession(ctx, uid, id); err != nil {
		span.RecordError(err)
		apierr.Write(w, "delete session", err)
		return
	}

	pkg.WriteJSON(w, DeleteSessionResponse{DeletedID: id}, http.StatusOK)
}

func (h *Handler) HandlePresets(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.presets")
	defer span.End()

	pkg.WriteJSON(w, PresetsResponse{
		Presets:            fitness.Presets(),
		CustomPreset:       forms.CustomPreset,
		Intensities:        fitness.Intensities(),
		Sources:            fitness.SourceOptions(),
		Goals:              fitness.GoalOptions(),
		DurationQuickPicks: fitness.DurationQuickPicks(),
		CalorieQuickPicks:  fitness.CalorieQuickPicks(),
	}, http.StatusOK)
}

// countSaved labels by preset only for catalog ids, keeping the label set
// bounded.
func (h *Handler) countSaved(op, preset string) {
	if h.metricsManager == nil {
		return
	}
	if preset == forms.NoPreset {
		preset = noPresetLabel
	} else if _, found := fitness.FindPreset(preset); !found {
		preset = forms.CustomPreset
	}
	h.metricsManager.CounterSessionsSaved.WithLabelValues(op, preset).Inc()
}
