package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jonathan/health-assessment/internal/types"
)

const sessionColumns = `id, user_id, assessment_type, current_stage, completed_stages, answers,
		        status, started_at, updated_at, completed_at, version`

// uniqueViolation is the Postgres SQLSTATE raised when a second active
// session would break idx_assessment_sessions_one_active.
const uniqueViolation = "23505"

// SessionStore keeps intake sessions in assessment_sessions.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a session store over db.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Load returns nil, nil when the session does not exist.
func (s *SessionStore) Load(ctx context.Context, id uuid.UUID) (*types.Session, error) {
	row := s.db.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM assessment_sessions WHERE id = $1`,
		id,
	)
	session, err := scanSession(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// Save inserts a new session (Version 0) or updates the row whose version
// still equals session.Version. Either way the stored version becomes
// session.Version+1 and session.Version is advanced to match.
func (s *SessionStore) Save(ctx context.Context, session *types.Session) error {
	r, err := newSessionRow(session)
	if err != nil {
		return err
	}

	var tag pgconn.CommandTag
	if r.Version == 0 {
		tag, err = s.db.pool.Exec(ctx,
			`INSERT INTO assessment_sessions (`+sessionColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
			 ON CONFLICT (id) DO NOTHING`,
			r.ID, r.UserID, r.AssessmentType, r.CurrentStage, r.CompletedStages, r.Answers,
			r.Status, r.StartedAt, r.UpdatedAt, r.CompletedAt,
		)
	} else {
		tag, err = s.db.pool.Exec(ctx,
			`UPDATE assessment_sessions SET
			     current_stage = $2,
			     completed_stages = $3,
			     answers = $4,
			     status = $5,
			     updated_at = $6,
			     completed_at = $7,
			     version = version + 1
			 WHERE id = $1 AND version = $8`,
			r.ID, r.CurrentStage, r.CompletedStages, r.Answers,
			r.Status, r.UpdatedAt, r.CompletedAt, r.Version,
		)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("failed to save session %s: another session is active: %w", r.ID, types.ErrSessionConflict)
		}
		return fmt.Errorf("failed to save session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to save session %s: version %d is stale: %w", r.ID, r.Version, types.ErrSessionConflict)
	}
	session.Version = r.Version + 1
	return nil
}

// ActiveFor returns the user's active session of assessmentType, or nil, nil.
func (s *SessionStore) ActiveFor(ctx context.Context, userID, assessmentType string) (*types.Session, error) {
	row := s.db.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM assessment_sessions
		 WHERE user_id = $1 AND assessment_type = $2 AND status = $3
		 ORDER BY started_at LIMIT 1`,
		userID, assessmentType, string(types.SessionActive),
	)
	session, err := scanSession(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return session, nil
}

// ListActive returns active sessions, oldest first.
func (s *SessionStore) ListActive(ctx context.Context) ([]*types.Session, error) {
	rows, err := s.db.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM assessment_sessions WHERE status = $1 ORDER BY started_at`,
		string(types.SessionActive),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*types.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return sessions, nil
}

func scanSession(row pgx.Row) (*types.Session, error) {
	var r sessionRow
	if err := row.Scan(
		&r.ID, &r.UserID, &r.AssessmentType, &r.CurrentStage, &r.CompletedStages, &r.Answers,
		&r.Status, &r.StartedAt, &r.UpdatedAt, &r.CompletedAt, &r.Version,
	); err != nil {
		return nil, err
	}
	return r.session()
}
