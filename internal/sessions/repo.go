package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/edgetrack/internal/telemetry/tracing"
	"github.com/2beens/edgetrack/pkg"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

const defaultListLimit = 100

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) CreateSession(ctx context.Context, session Session) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := session.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = session.StartTime
	}

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO session
				(id, user_id, start_time, end_time, active_duration, edge_duration, total_duration, finished_during_edge, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id::text, created_at;`,
		id, session.UserID, session.StartTime, session.EndTime,
		session.ActiveDuration, session.EdgeDuration, session.TotalDuration,
		session.FinishedDuringEdge, session.CreatedAt,
	).Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	span.SetAttributes(attribute.String("session.id", session.ID))
	session.EdgeEvents = []EdgeEvent{}
	return &session, nil
}

func (r *Repo) UpdateSession(ctx context.Context, id string, update SessionUpdate) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", id))

	if err := update.Validate(); err != nil {
		return err
	}
	sessionID, err := uuid.Parse(id)
	if err != nil {
		return ErrSessionNotFound
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE session SET
				end_time = COALESCE($2, end_time),
				active_duration = COALESCE($3, active_duration),
				edge_duration = COALESCE($4, edge_duration),
				total_duration = COALESCE($5, total_duration),
				finished_during_edge = COALESCE($6, finished_during_edge)
			WHERE id = $1;`,
		sessionID, update.EndTime,
		update.ActiveDuration, update.EdgeDuration, update.TotalDuration,
		update.FinishedDuringEdge,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// DeleteSession removes the user's session. Edge events go with it (FK cascade).
func (r *Repo) DeleteSession(ctx context.Context, userID, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", id))

	sessionID, err := uuid.Parse(id)
	if err != nil {
		return ErrSessionNotFound
	}

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM session WHERE id = $1 AND user_id = $2`,
		sessionID, userID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func (r *Repo) CreateEdgeEvent(ctx context.Context, sessionID string, startTime time.Time) (_ *EdgeEvent, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.edge.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", sessionID))

	sid, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	edge := &EdgeEvent{
		SessionID: sessionID,
		StartTime: startTime,
	}
	err = r.db.QueryRow(
		ctx,
		`INSERT INTO edge_event (session_id, start_time) VALUES ($1, $2) RETURNING id;`,
		sid, startTime,
	).Scan(&edge.ID)
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			return nil, ErrSessionNotFound
		}
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrEdgeAlreadyOpen
		}
		return nil, fmt.Errorf("insert edge event: %w", err)
	}

	span.SetAttributes(attribute.Int("edge.id", edge.ID))
	return edge, nil
}

// CloseOpenEdgeEvent closes the single open edge event of the session.
func (r *Repo) CloseOpenEdgeEvent(ctx context.Context, sessionID string, endTime time.Time, duration int64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.edge.close")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", sessionID))

	if duration < 0 {
		return fmt.Errorf("%w: negative edge duration", ErrValidation)
	}
	sid, err := uuid.Parse(sessionID)
	if err != nil {
		return ErrNoOpenEdge
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE edge_event SET end_time = $2, duration = $3 WHERE session_id = $1 AND end_time IS NULL;`,
		sid, endTime, duration,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrNoOpenEdge
	}

	return nil
}

// ListSessions returns the user's sessions newest first (by created_at), each
// with its edge events ordered by start time.
func (r *Repo) ListSessions(ctx context.Context, params ListParams) (_ []Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	span.SetAttributes(
		attribute.String("user.id", params.UserID),
		attribute.Int("limit", limit),
	)

	rows, err := r.db.Query(ctx, `
		SELECT id::text, user_id, start_time, end_time, active_duration, edge_duration, total_duration, finished_during_edge, created_at
		FROM session
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2;
	`, params.UserID, limit)
	if err != nil {
		return nil, err
	}

	sessions, err := rows2sessions(rows)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return sessions, nil
	}

	ids := make([]uuid.UUID, 0, len(sessions))
	byID := make(map[string]int, len(sessions))
	for i, s := range sessions {
		byID[s.ID] = i
		parsed, err := uuid.Parse(s.ID)
		if err != nil {
			return nil, fmt.Errorf("parse stored session id %q: %w", s.ID, err)
		}
		ids = append(ids, parsed)
	}

	edgeRows, err := r.db.Query(ctx, `
		SELECT id, session_id::text, start_time, end_time, duration
		FROM edge_event
		WHERE session_id = ANY($1)
		ORDER BY start_time ASC, id ASC;
	`, ids)
	if err != nil {
		return nil, err
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var e EdgeEvent
		if err := edgeRows.Scan(&e.ID, &e.SessionID, &e.StartTime, &e.EndTime, &e.Duration); err != nil {
			return nil, fmt.Errorf("scan edge event: %w", err)
		}
		if i, ok := byID[e.SessionID]; ok {
			sessions[i].EdgeEvents = append(sessions[i].EdgeEvents, e)
		}
	}
	if err := edgeRows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("sessions.count", len(sessions)))
	return sessions, nil
}

func rows2sessions(rows pgx.Rows) ([]Session, error) {
	defer rows.Close()

	sessions := make([]Session, 0)
	for rows.Next() {
		var s Session
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.StartTime, &s.EndTime,
			&s.ActiveDuration, &s.EdgeDuration, &s.TotalDuration,
			&s.FinishedDuringEdge, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.EdgeEvents = []EdgeEvent{}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// IsNotFound reports whether err means the session does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}
