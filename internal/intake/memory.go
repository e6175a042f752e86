package intake

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/health-assessment/internal/logger"
	"github.com/jonathan/health-assessment/internal/types"
)

// MemoryStore is an in-process SessionStore. Sessions are deep-copied on the
// way in and out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*types.Session
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID]*types.Session)}
}

func (s *MemoryStore) Load(_ context.Context, id uuid.UUID) (*types.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return session.Clone()
}

func (s *MemoryStore) Save(_ context.Context, session *types.Session) error {
	if session == nil || session.ID == uuid.Nil {
		return fmt.Errorf("failed to save session: missing id")
	}
	clone, err := session.Clone()
	if err != nil {
		return err
	}
	clone.Version++

	s.mu.Lock()
	defer s.mu.Unlock()

	var stored int64
	if current, ok := s.sessions[session.ID]; ok {
		stored = current.Version
	}
	if stored != session.Version {
		return fmt.Errorf("failed to save session %s: version %d, stored %d: %w",
			session.ID, session.Version, stored, types.ErrSessionConflict)
	}
	if clone.Status == types.SessionActive {
		if other := s.activeFor(clone.UserID, clone.AssessmentType); other != nil && other.ID != clone.ID {
			return fmt.Errorf("failed to save session %s: %s already active: %w",
				session.ID, other.ID, types.ErrSessionConflict)
		}
	}

	s.sessions[session.ID] = clone
	session.Version = clone.Version
	return nil
}

func (s *MemoryStore) ListActive(_ context.Context) ([]*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		if session.Status != types.SessionActive {
			continue
		}
		clone, err := session.Clone()
		if err != nil {
			return nil, err
		}
		out = append(out, clone)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

func (s *MemoryStore) ActiveFor(_ context.Context, userID, assessmentType string) (*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session := s.activeFor(userID, assessmentType)
	if session == nil {
		return nil, nil
	}
	return session.Clone()
}

// activeFor must be called with mu held.
func (s *MemoryStore) activeFor(userID, assessmentType string) *types.Session {
	for _, session := range s.sessions {
		if session.Status == types.SessionActive && session.UserID == userID && session.AssessmentType == assessmentType {
			return session
		}
	}
	return nil
}

// Len returns the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// PersistedScore is one record captured by MemorySink.
type PersistedScore struct {
	UserID         string
	AssessmentType string
	Result         types.ScoreResult
}

// MemorySink records persisted scores in memory. Err, when set, is returned
// from every Persist call instead of recording.
type MemorySink struct {
	mu      sync.Mutex
	records []PersistedScore
	Err     error
}

func (s *MemorySink) Persist(_ context.Context, userID, assessmentType string, result types.ScoreResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.records = append(s.records, PersistedScore{UserID: userID, AssessmentType: assessmentType, Result: result})
	return nil
}

// Records returns a copy of everything persisted so far.
func (s *MemorySink) Records() []PersistedScore {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PersistedScore, len(s.records))
	copy(out, s.records)
	return out
}

// LogSink writes completed scores to the structured log.
type LogSink struct {
	Logger *logger.Logger
}

func (s LogSink) Persist(_ context.Context, userID, assessmentType string, result types.ScoreResult) error {
	log := s.Logger
	if log == nil {
		log = logger.Nop()
	}
	log.Info("score persisted",
		"user_id", userID,
		"assessment_type", assessmentType,
		"overall_score", result.OverallScore,
		"pillar_scores", result.PillarScores,
	)
	return nil
}

// StaticEvidence serves evidence from a map keyed by user ID. Users without
// an entry get empty evidence.
type StaticEvidence map[string]Evidence

func (e StaticEvidence) Evidence(_ context.Context, userID, _ string) (Evidence, error) {
	return e[userID], nil
}
