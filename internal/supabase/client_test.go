package supabase_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/2beens/fitlog/internal/fitness"
	"github.com/2beens/fitlog/internal/identity"
	"github.com/2beens/fitlog/internal/supabase"
	"github.com/2beens/fitlog/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAnonKey = "anon-key"

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Header http.Header
	Body   map[string]any
}

type requestRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (r *requestRecorder) add(req recordedRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
}

func (r *requestRecorder) at(i int) recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[i]
}

func (r *requestRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func newTestClient(t *testing.T, status int, respBody string, opts ...supabase.Option) (*supabase.Client, *requestRecorder, *metrics.Manager) {
	t.Helper()

	recorded := &requestRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  map[string]string{},
			Header: r.Header.Clone(),
		}
		for k := range r.URL.Query() {
			rec.Query[k] = r.URL.Query().Get(k)
		}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			assert.NoError(t, json.Unmarshal(b, &rec.Body))
		}
		recorded.add(rec)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, respBody)
	}))

	httpClient := &http.Client{Transport: &http.Transport{}}
	t.Cleanup(func() {
		httpClient.CloseIdleConnections()
		srv.Close()
	})

	metricsManager := metrics.NewTestManager()
	return supabase.NewClient(srv.URL+"/", testAnonKey, httpClient, metricsManager, opts...), recorded, metricsManager
}

func TestClient_ListSessions(t *testing.T) {
	client, recorded, metricsManager := newTestClient(t, http.StatusOK, `[
		{"id":"s1","user_id":"u1","title":"Run","date":"2024-05-05","duration":30,"calories_burned":250,"intensity":"Light","source":null,"created_at":"2024-05-05T08:00:00+00:00"},
		{"id":"s2","user_id":"u1","title":"Lift","date":"2024-05-04","duration":45}
	]`)

	ctx := identity.WithCredentials(context.Background(), "u1", "id-token")
	sessions, err := client.ListSessions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s1", sessions[0].ID)
	require.NotNil(t, sessions[0].CaloriesBurned)
	assert.Equal(t, 250.0, *sessions[0].CaloriesBurned)
	assert.Nil(t, sessions[0].Source)
	assert.Nil(t, sessions[1].Intensity)

	require.Equal(t, 1, recorded.count())
	req := recorded.at(0)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/rest/v1/sessions", req.Path)
	assert.Equal(t, map[string]string{"user_id": "eq.u1", "select": "*"}, req.Query)
	assert.Equal(t, testAnonKey, req.Header.Get("apikey"))
	assert.Equal(t, "Bearer id-token", req.Header.Get("Authorization"))
	assert.Equal(t, "u1", req.Header.Get("X-User-Id"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	assert.Equal(t, 1.0, testutil.ToFloat64(
		metricsManager.CounterPersistenceRequests.WithLabelValues("sessions", "List", "200"),
	))
}

func TestClient_ListSessions_EmptyAndAnon(t *testing.T) {
	client, recorded, _ := newTestClient(t, http.StatusOK, `[]`)

	sessions, err := client.ListSessions(context.Background(), "a&b=c")
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)

	req := recorded.at(0)
	assert.Equal(t, "eq.a&b=c", req.Query["user_id"])
	assert.Equal(t, "Bearer "+testAnonKey, req.Header.Get("Authorization"))
}

func TestClient_AnonKeyBearer(t *testing.T) {
	client, recorded, _ := newTestClient(t, http.StatusOK, `[]`, supabase.WithAnonKeyBearer())

	ctx := identity.WithCredentials(context.Background(), "u1", "id-token")
	_, err := client.ListSessions(ctx, "u1")
	require.NoError(t, err)

	req := recorded.at(0)
	assert.Equal(t, "Bearer "+testAnonKey, req.Header.Get("Authorization"))
	assert.Equal(t, testAnonKey, req.Header.Get("apikey"))
	assert.Equal(t, "eq.u1", req.Query["user_id"])
	assert.Equal(t, "u1", req.Header.Get("X-User-Id"))
}

func TestClient_GetSession(t *testing.T) {
	client, recorded, _ := newTestClient(t, http.StatusOK, `[{"id":"s1","user_id":"u1","title":"Run","date":"2024-05-05","duration":30}]`)

	s, err := client.GetSession(context.Background(), "u1", "s1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "Run", s.Title)
	assert.Equal(t, map[string]string{"id": "eq.s1", "user_id": "eq.u1", "select": "*"}, recorded.at(0).Query)

	client, _, _ = newTestClient(t, http.StatusOK, `[]`)
	s, err = client.GetSession(context.Background(), "u1", "missing")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestClient_CreateSession(t *testing.T) {
	client, recorded, _ := newTestClient(t, http.StatusCreated, `[{"id":"new-id","user_id":"u1","title":"Run","date":"2024-05-05","duration":30,"intensity":"Moderate"}]`)

	kcal := 0.0
	created, err := client.CreateSession(context.Background(), "u1", fitness.SessionInput{
		Title:          "Run",
		Date:           "2024-05-05",
		Duration:       30,
		CaloriesBurned: &kcal,
	})
	require.NoError(t, err)
	assert.Equal(t, "new-id", created.ID)

	req := recorded.at(0)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/rest/v1/sessions", req.Path)
	assert.Empty(t, req.Query)
	assert.Equal(t, "return=representation", req.Header.Get("Prefer"))
	assert.Equal(t, map[string]any{
		"user_id":         "u1",
		"title":           "Run",
		"date":            "2024-05-05",
		"duration":        30.0,
		"description":     "",
		"calories_burned": 0.0,
		"intensity":       nil,
		"source":          nil,
	}, req.Body)
}

func TestClient_CreateSession_EmptyEcho(t *testing.T) {
	client, _, _ := newTestClient(t, http.StatusCreated, ``)
	_, err := client.CreateSession(context.Background(), "u1", fitness.SessionInput{Title: "x", Date: "2024-05-05", Duration: 1})
	assert.ErrorIs(t, err, supabase.ErrEmptyRepresentation)
}

func TestClient_UpdateSession(t *testing.T) {
	client, recorded, _ := newTestClient(t, http.StatusOK, `[{"id":"s1","user_id":"u1","title":"Ride","date":"2024-05-05","duration":90}]`)

	updated, err := client.UpdateSession(context.Background(), "u1", "s1", fitness.SessionInput{Title: "Ride", Date: "2024-05-05", Duration: 90})
	require.NoError(t, err)
	assert.Equal(t, 90, updated.Duration)

	req := recorded.at(0)
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, map[string]string{"id": "eq.s1", "user_id": "eq.u1"}, req.Query)
	assert.NotContains(t, req.Body, "user_id")

	client, _, _ = newTestClient(t, http.StatusOK, `[]`)
	_, err = client.UpdateSession(context.Background(), "u1", "gone", fitness.SessionInput{Title: "Ride", Date: "2024-05-05", Duration: 90})
	assert.ErrorIs(t, err, fitness.ErrSessionNotFound)
}

func TestClient_DeleteSession(t *testing.T) {
	client, recorded, _ := newTestClient(t, http.StatusNoContent, ``)

	require.NoError(t, client.DeleteSession(context.Background(), "u1", "s1"))
	req := recorded.at(0)
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, map[string]string{"id": "eq.s1", "user_id": "eq.u1"}, req.Query)
}

func TestClient_RequestErrors(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name     string
		status   int
		call     func(c *supabase.Client) error
		expected string
	}{
		{
			name:   "list",
			status: http.StatusInternalServerError,
			call: func(c *supabase.Client) error {
				_, err := c.ListSessions(ctx, "u1")
				return err
			},
			expected: "List failed (500)",
		},
		{
			name:   "get",
			status: http.StatusUnauthorized,
			call: func(c *supabase.Client) error {
				_, err := c.GetSession(ctx, "u1", "s1")
				return err
			},
			expected: "Get failed (401)",
		},
		{
			name:   "create",
			status: http.StatusBadRequest,
			call: func(c *supabase.Client) error {
				_, err := c.CreateSession(ctx, "u1", fitness.SessionInput{})
				return err
			},
			expected: "Create failed (400)",
		},
		{
			name:   "update",
			status: http.StatusForbidden,
			call: func(c *supabase.Client) error {
				_, err := c.UpdateSession(ctx, "u1", "s1", fitness.SessionInput{})
				return err
			},
			expected: "Update failed (403)",
		},
		{
			name:   "delete",
			status: http.StatusNotFound,
			call: func(c *supabase.Client) error {
				return c.DeleteSession(ctx, "u1", "s1")
			},
			expected: "Delete failed (404)",
		},
		{
			name:   "profile load",
			status: http.StatusServiceUnavailable,
			call: func(c *supabase.Client) error {
				_, err := c.GetProfile(ctx, "u1")
				return err
			},
			expected: "Profile load failed (503)",
		},
		{
			name:   "profile save",
			status: http.StatusConflict,
			call: func(c *supabase.Client) error {
				_, err := c.UpsertProfile(ctx, "u1", fitness.ProfileInput{})
				return err
			},
			expected: "Profile save failed (409)",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client, _, _ := newTestClient(t, tc.status, `{"message":"nope"}`)
			err := tc.call(client)
			require.Error(t, err)

			var reqErr *supabase.RequestError
			require.True(t, errors.As(err, &reqErr))
			assert.Equal(t, tc.status, reqErr.Status)
			assert.EqualError(t, err, tc.expected)
		})
	}
}

func TestClient_Profile(t *testing.T) {
	client, _, _ := newTestClient(t, http.StatusOK, `[]`)
	p, err := client.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, p)

	client, recorded, _ := newTestClient(t, http.StatusCreated, `[{"user_id":"u1","height_cm":180,"weight_kg":null,"goal":"Build muscle"}]`)
	height := 180.0
	goal := "Build muscle"
	p, err = client.UpsertProfile(context.Background(), "u1", fitness.ProfileInput{HeightCM: &height, Goal: &goal})
	require.NoError(t, err)
	require.NotNil(t, p.HeightCM)
	assert.Equal(t, 180.0, *p.HeightCM)
	assert.Nil(t, p.WeightKG)

	req := recorded.at(0)
	assert.Equal(t, "/rest/v1/profiles", req.Path)
	assert.Equal(t, "return=representation,resolution=merge-duplicates", req.Header.Get("Prefer"))
	assert.Equal(t, "u1", req.Body["user_id"])
	assert.Equal(t, 180.0, req.Body["height_cm"])
	assert.Contains(t, req.Body, "weight_kg")
	assert.Nil(t, req.Body["weight_kg"])
	assert.Contains(t, req.Body, "updated_at")
}
