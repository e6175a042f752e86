package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/health-assessment/internal/types"
)

// ExpireSessions marks every active session whose age since start exceeds
// idleThreshold as expired and returns how many were transitioned. Each
// session is re-read under its lock and saved against the version it read,
// so a concurrent completion wins.
func (m *Manager) ExpireSessions(ctx context.Context, idleThreshold time.Duration) (int, error) {
	active, err := m.store.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active sessions: %w", err)
	}

	expired := 0
	var errs []error
	for _, candidate := range active {
		if !m.idle(candidate, idleThreshold) {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		ok, err := m.expireIfIdle(ctx, candidate, idleThreshold)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			expired++
		}
	}

	if expired > 0 {
		m.log.Info("sessions expired", "count", expired, "idle_threshold", idleThreshold.String())
	}
	return expired, errors.Join(errs...)
}

func (m *Manager) expireIfIdle(ctx context.Context, candidate *types.Session, idleThreshold time.Duration) (bool, error) {
	unlock := m.locks.lock(candidate.ID)
	defer unlock()

	session, err := m.store.Load(ctx, candidate.ID)
	if err != nil {
		return false, fmt.Errorf("failed to reload session %s: %w", candidate.ID, err)
	}
	if session == nil || session.Status != types.SessionActive || !m.idle(session, idleThreshold) {
		return false, nil
	}
	if err := m.expire(ctx, session); err != nil {
		var conflict *SessionConflictError
		if errors.As(err, &conflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RunExpiry sweeps expired sessions every interval until ctx is cancelled.
func (m *Manager) RunExpiry(ctx context.Context, interval, idleThreshold time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.ExpireSessions(ctx, idleThreshold); err != nil && ctx.Err() == nil {
				m.log.Error("expiry sweep failed", "error", err)
			}
		}
	}
}

// idle reports whether an active session has outlived threshold. A session
// already claimed for finalization is measured from its last update instead
// of its start.
func (m *Manager) idle(session *types.Session, threshold time.Duration) bool {
	if session.Status != types.SessionActive {
		return false
	}
	since := session.StartedAt
	if def, err := m.definitions.Definition(session.AssessmentType); err == nil && isComplete(def, session) {
		since = session.UpdatedAt
	}
	return m.now().Sub(since) > threshold
}

func (m *Manager) expire(ctx context.Context, session *types.Session) error {
	session.Status = types.SessionExpired
	session.UpdatedAt = m.now().UTC()
	if err := m.save(ctx, session, fmt.Sprintf("expire session %s", session.ID)); err != nil {
		return err
	}
	m.log.Debug("session expired", "session_id", session.ID, "user_id", session.UserID)
	return nil
}
