package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/fitlog/internal/fitness"
	"github.com/2beens/fitlog/internal/telemetry/metrics"
	"github.com/2beens/fitlog/internal/telemetry/tracing"
	"github.com/2beens/fitlog/pkg"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

//go:embed schema.sql
var schemaSQL string

const (
	tableSessions = "sessions"
	tableProfiles = "profiles"

	statusOK    = "ok"
	statusError = "error"
)

const sessionColumns = `id::text, user_id, title, to_char(date, 'YYYY-MM-DD'), duration,
	description, calories_burned, intensity, source, created_at`

// Store keeps sessions and profiles in a self-hosted postgres database.
// It has the same method set as the supabase client.
type Store struct {
	db             *pgxpool.Pool
	metricsManager *metrics.Manager
}

func NewStore(db *pgxpool.Pool, metricsManager *metrics.Manager) *Store {
	return &Store{
		db:             db,
		metricsManager: metricsManager,
	}
}

// Migrate creates the tables if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) ListSessions(ctx context.Context, uid string) (_ []fitness.Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postgres.listSessions")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	defer s.observe(tableSessions, "List", time.Now(), &err)

	rows, err := s.db.Query(
		ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 ORDER BY date DESC, created_at DESC;`,
		uid,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []fitness.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("sessions.count", len(sessions)))
	return sessions, nil
}

// GetSession returns nil, nil when the owner has no such session.
func (s *Store) GetSession(ctx context.Context, uid, id string) (_ *fitness.Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postgres.getSession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	defer s.observe(tableSessions, "Get", time.Now(), &err)
	span.SetAttributes(attribute.String("session.id", id))

	// ids that are not uuids can never match a row
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	row := s.db.QueryRow(
		ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1 AND user_id = $2;`,
		id, uid,
	)
	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Store) CreateSession(ctx context.Context, uid string, in fitness.SessionInput) (_ *fitness.Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postgres.createSession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	defer s.observe(tableSessions, "Create", time.Now(), &err)

	insert := func(id string) (*fitness.Session, error) {
		row := s.db.QueryRow(
			ctx,
			`INSERT INTO sessions (id, user_id, title, date, duration, description, calories_burned, intensity, source)
			VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9)
			RETURNING `+sessionColumns+`;`,
			id, uid, in.Title, in.Date, in.Duration, in.Description, in.CaloriesBurned, in.Intensity, in.Source,
		)
		return scanSession(row)
	}

	session, err := insert(uuid.NewString())
	if pkg.IsUniqueViolationError(err) {
		session, err = insert(uuid.NewString())
	}
	if err != nil {
		return nil, mapWriteError(err)
	}

	span.SetAttributes(attribute.String("session.id", session.ID))
	return session, nil
}

// UpdateSession overwrites every writable field. An update that matched no
// row of the owner returns fitness.ErrSessionNotFound.
func (s *Store) UpdateSession(ctx context.Context, uid, id string, in fitness.SessionInput) (_ *fitness.Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postgres.updateSession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	defer s.observe(tableSessions, "Update", time.Now(), &err)
	span.SetAttributes(attribute.String("session.id", id))

	if _, err := uuid.Parse(id); err != nil {
		return nil, fitness.ErrSessionNotFound
	}

	row := s.db.QueryRow(
		ctx,
		`UPDATE sessions
		SET title = $3, date = $4::date, duration = $5, description = $6,
			calories_burned = $7, intensity = $8, source = $9
		WHERE id = $1 AND user_id = $2
		RETURNING `+sessionColumns+`;`,
		id, uid, in.Title, in.Date, in.Duration, in.Description, in.CaloriesBurned, in.Intensity, in.Source,
	)
	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fitness.ErrSessionNotFound
	}
	if err != nil {
		return nil, mapWriteError(err)
	}
	return session, nil
}

// DeleteSession succeeds even when nothing matched.
func (s *Store) DeleteSession(ctx context.Context, uid, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postgres.deleteSession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	defer s.observe(tableSessions, "Delete", time.Now(), &err)
	span.SetAttributes(attribute.String("session.id", id))

	if _, err := uuid.Parse(id); err != nil {
		return nil
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1 AND user_id = $2;`, id, uid)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int64("rows.affected", tag.RowsAffected()))
	return nil
}

// GetProfile returns nil, nil when the owner has not saved a profile yet.
func (s *Store) GetProfile(ctx context.Context, uid string) (_ *fitness.Profile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postgres.getProfile")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	defer s.observe(tableProfiles, "Profile load", time.Now(), &err)

	row := s.db.QueryRow(
		ctx,
		`SELECT user_id, height_cm, weight_kg, goal, updated_at FROM profiles WHERE user_id = $1;`,
		uid,
	)
	profile, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *Store) UpsertProfile(ctx context.Context, uid string, in fitness.ProfileInput) (_ *fitness.Profile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postgres.upsertProfile")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	defer s.observe(tableProfiles, "Profile save", time.Now(), &err)

	row := s.db.QueryRow(
		ctx,
		`INSERT INTO profiles (user_id, height_cm, weight_kg, goal, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id) DO UPDATE
		SET height_cm = EXCLUDED.height_cm, weight_kg = EXCLUDED.weight_kg,
			goal = EXCLUDED.goal, updated_at = EXCLUDED.updated_at
		RETURNING user_id, height_cm, weight_kg, goal, updated_at;`,
		uid, in.HeightCM, in.WeightKG, in.Goal,
	)
	profile, err := scanProfile(row)
	if err != nil {
		if pkg.IsCheckViolationError(err) {
			return nil, fmt.Errorf("%w: %s", fitness.ErrInvalidProfile, err)
		}
		return nil, err
	}
	return profile, nil
}

func (s *Store) observe(table, op string, begin time.Time, err *error) {
	if s.metricsManager == nil {
		return
	}
	status := statusOK
	if *err != nil {
		status = statusError
	}
	s.metricsManager.CounterPersistenceRequests.WithLabelValues(table, op, status).Inc()
	s.metricsManager.HistogramPersistenceDuration.WithLabelValues(table, op).Observe(time.Since(begin).Seconds())
}

func mapWriteError(err error) error {
	if pkg.IsCheckViolationError(err) {
		return fmt.Errorf("%w: %s", fitness.ErrInvalidSession, err)
	}
	return err
}

func scanSession(row pgx.Row) (*fitness.Session, error) {
	var session fitness.Session
	var createdAt time.Time
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Title,
		&session.Date,
		&session.Duration,
		&session.Description,
		&session.CaloriesBurned,
		&session.Intensity,
		&session.Source,
		&createdAt,
	); err != nil {
		return nil, err
	}
	session.CreatedAt = &createdAt
	return &session, nil
}

func scanProfile(row pgx.Row) (*fitness.Profile, error) {
	var profile fitness.Profile
	var updatedAt time.Time
	if err := row.Scan(
		&profile.UserID,
		&profile.HeightCM,
		&profile.WeightKG,
		&profile.Goal,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	profile.UpdatedAt = &updatedAt
	return &profile, nil
}
