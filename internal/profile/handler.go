package profile

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/2beens/fitlog/internal/apierr"
	"github.com/2beens/fitlog/internal/fitness"
	"github.com/2beens/fitlog/internal/forms"
	"github.com/2beens/fitlog/internal/identity"
	"github.com/2beens/fitlog/internal/telemetry/tracing"
	"github.com/2beens/fitlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=profile_test

type profileRepo interface {
	GetProfile(ctx context.Context, uid string) (*fitness.Profile, error)
	UpsertProfile(ctx context.Context, uid string, in fitness.ProfileInput) (*fitness.Profile, error)
}

// Response carries the form state and the BMI derived from it. BMI is null
// when height or weight is missing.
type Response struct {
	Form forms.ProfileForm `json:"form"`
	BMI  *fitness.BMI      `json:"bmi"`
}

type BMIResponse struct {
	BMI *fitness.BMI `json:"bmi"`
}

type Handler struct {
	repo profileRepo
}

func NewHandler(repo profileRepo) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/api/profile", h.HandleGet).Methods("GET").Name("profile-get")
	router.HandleFunc("/api/profile", h.HandleSave).Methods("PUT").Name("profile-save")
	router.HandleFunc("/api/bmi", h.HandleBMI).Methods("GET").Name("bmi")
}

func newResponse(form forms.ProfileForm) Response {
	resp := Response{Form: form}
	if bmi, ok := form.BMI(); ok {
		resp.BMI = &bmi
	}
	return resp
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.profile.get")
	defer span.End()

	creds, ok := identity.CredentialsFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	p, err := h.repo.GetProfile(ctx, creds.UID)
	if err != nil {
		span.RecordError(err)
		apierr.Write(w, "load profile", err)
		return
	}

	span.SetAttributes(attribute.Bool("profile.exists", p != nil))
	pkg.WriteJSON(w, newResponse(forms.ProfileFormFromRecord(p)), http.StatusOK)
}

func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.profile.save")
	defer span.End()

	creds, ok := identity.CredentialsFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var form forms.ProfileForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		log.Tracef("profile form, unmarshal json: %s", err)
		http.Error(w, "invalid profile form", http.StatusBadRequest)
		return
	}
	in, err := form.ToInput()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	saved, err := h.repo.UpsertProfile(ctx, creds.UID, in)
	if err != nil {
		span.RecordError(err)
		apierr.Write(w, "save profile", err)
		return
	}

	pkg.WriteJSON(w, newResponse(forms.ProfileFormFromRecord(saved)), http.StatusOK)
}

// HandleBMI is the stateless calculator behind the live preview.
func (h *Handler) HandleBMI(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.profile.bmi")
	defer span.End()

	var resp BMIResponse
	query := r.URL.Query()
	if bmi, ok := fitness.ComputeBMIFromStrings(query.Get("height"), query.Get("weight")); ok {
		resp.BMI = &bmi
		span.SetAttributes(attribute.String("bmi.category", string(bmi.Category)))
	}
	pkg.WriteJSON(w, resp, http.StatusOK)
}
