package supabase

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

	"github.com/2beens/fitlog/internal/fitness"
	"github.com/2beens/fitlog/internal/identity"
	"github.com/2beens/fitlog/internal/telemetry/metrics"
	"github.com/2beens/fitlog/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	tableSessions = "sessions"
	tableProfiles = "profiles"

	opList        = "List"
	opGet         = "Get"
	opCreate      = "Create"
	opUpdate      = "Update"
	opDelete      = "Delete"
	opProfileLoad = "Profile load"
	opProfileSave = "Profile save"
)

// Client is a typed PostgREST client over the sessions and profiles tables
// of a Supabase project. Rows are always scoped to the owner passed in.
//
// By default the caller's Firebase ID token is the bearer, so the project
// must accept Firebase as a third-party auth provider for row level
// security to see the user.
type Client struct {
	restURL        string
	apiKey         string
	anonBearer     bool
	httpClient     *http.Client
	metricsManager *metrics.Manager
}

type Option func(c *Client)

// WithAnonKeyBearer sends the anon key as the bearer on every request.
// Ownership then rests on the user_id filters alone.
func WithAnonKeyBearer() Option {
	return func(c *Client) {
		c.anonBearer = true
	}
}

func NewClient(baseURL, apiKey string, httpClient *http.Client, metricsManager *metrics.Manager, opts ...Option) *Client {
	c := &Client{
		restURL:        strings.TrimRight(baseURL, "/") + "/rest/v1",
		apiKey:         apiKey,
		httpClient:     httpClient,
		metricsManager: metricsManager,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ListSessions(ctx context.Context, uid string) (_ []fitness.Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "supabase.listSessions")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	query := url.Values{}
	query.Set("user_id", "eq."+uid)
	query.Set("select", "*")

	var sessions []fitness.Session
	if err := c.call(ctx, tableSessions, opList, http.MethodGet, uid, query, nil, "", &sessions); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("sessions.count", len(sessions)))
	if sessions == nil {
		sessions = []fitness.Session{}
	}
	return sessions, nil
}

// GetSession returns nil, nil when the owner has no such session.
func (c *Client) GetSession(ctx context.Context, uid, id string) (_ *fitness.Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "supabase.getSession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", id))

	var rows []fitness.Session
	if err := c.call(ctx, tableSessions, opGet, http.MethodGet, uid, ownedRow(uid, id, true), nil, "", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

type sessionRow struct {
	UserID string `json:"user_id"`
	fitness.SessionInput
}

func (c *Client) CreateSession(ctx context.Context, uid string, in fitness.SessionInput) (_ *fitness.Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "supabase.createSession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var rows []fitness.Session
	body := sessionRow{UserID: uid, SessionInput: in}
	if err := c.call(ctx, tableSessions, opCreate, http.MethodPost, uid, nil, body, "return=representation", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyRepresentation
	}

	span.SetAttributes(attribute.String("session.id", rows[0].ID))
	return &rows[0], nil
}

// UpdateSession overwrites every writable field. An update that matched no
// row of the owner returns fitness.ErrSessionNotFound.
func (c *Client) UpdateSession(ctx context.Context, uid, id string, in fitness.SessionInput) (_ *fitness.Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "supabase.updateSession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", id))

	var rows []fitness.Session
	if err := c.call(ctx, tableSessions, opUpdate, http.MethodPatch, uid, ownedRow(uid, id, false), in, "return=representation", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fitness.ErrSessionNotFound
	}
	return &rows[0], nil
}

// DeleteSession succeeds even when nothing matched.
func (c *Client) DeleteSession(ctx context.Context, uid, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "supabase.deleteSession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", id))

	return c.call(ctx, tableSessions, opDelete, http.MethodDelete, uid, ownedRow(uid, id, false), nil, "", nil)
}

// GetProfile returns nil, nil when the owner has not saved a profile yet.
func (c *Client) GetProfile(ctx context.Context, uid string) (_ *fitness.Profile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "supabase.getProfile")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	query := url.Values{}
	query.Set("user_id", "eq."+uid)
	query.Set("select", "*")

	var rows []fitness.Profile
	if err := c.call(ctx, tableProfiles, opProfileLoad, http.MethodGet, uid, query, nil, "", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

type profileRow struct {
	UserID    string    `json:"user_id"`
	UpdatedAt time.Time `json:"updated_at"`
	fitness.ProfileInput
}

func (c *Client) UpsertProfile(ctx context.Context, uid string, in fitness.ProfileInput) (_ *fitness.Profile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "supabase.upsertProfile")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var rows []fitness.Profile
	body := profileRow{UserID: uid, UpdatedAt: time.Now().UTC(), ProfileInput: in}
	prefer := "return=representation,resolution=merge-duplicates"
	if err := c.call(ctx, tableProfiles, opProfileSave, http.MethodPost, uid, nil, body, prefer, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyRepresentation
	}
	return &rows[0], nil
}

func ownedRow(uid, id string, selectAll bool) url.Values {
	query := url.Values{}
	query.Set("id", "eq."+id)
	query.Set("user_id", "eq."+uid)
	if selectAll {
		query.Set("select", "*")
	}
	return query
}

// call performs one round trip. A non-nil target receives the decoded body.
func (c *Client) call(
	ctx context.Context,
	table, op, method, uid string,
	query url.Values,
	body any,
	prefer string,
	target any,
) error {
	status := 0
	defer func(begin time.Time) {
		if c.metricsManager == nil {
			return
		}
		c.metricsManager.CounterPersistenceRequests.WithLabelValues(table, op, strconv.Itoa(status)).Inc()
		c.metricsManager.HistogramPersistenceDuration.WithLabelValues(table, op).Observe(time.Since(begin).Seconds())
	}(time.Now())

	endpoint := c.restURL + "/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", strings.ToLower(op), err)
		}
		reqBody = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return err
	}
	c.setHeaders(ctx, req, uid)
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", strings.ToLower(op), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debugf("supabase %s %s -> %d: %s", method, table, resp.StatusCode, respBytes)
		return &RequestError{Op: op, Status: resp.StatusCode}
	}

	if target == nil || len(bytes.TrimSpace(respBytes)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBytes, target); err != nil {
		return fmt.Errorf("unmarshal %s response: %w", strings.ToLower(op), err)
	}
	return nil
}

// setHeaders authenticates as the caller when its ID token is in the
// context, as the anonymous project key otherwise.
func (c *Client) setHeaders(ctx context.Context, req *http.Request, uid string) {
	bearer := c.apiKey
	if creds, ok := identity.CredentialsFromContext(ctx); ok && creds.Token != "" && !c.anonBearer {
		bearer = creds.Token
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("X-User-Id", uid)
}
