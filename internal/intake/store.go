// Package intake runs progressive multi-stage assessment sessions and hands
// the merged answers to the scoring pipeline once enough stages are collected.
package intake

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonathan/health-assessment/internal/types"
)

// DefinitionSource resolves assessment definitions by type.
type DefinitionSource interface {
	Definition(assessmentType string) (*types.AssessmentDefinition, error)
}

// SessionStore persists sessions. Load returns nil, nil when the session does
// not exist. ListActive returns every session whose status is active.
// ActiveFor returns the user's active session of the type, or nil, nil.
//
// Save is a compare-and-set: it succeeds only when session.Version equals the
// stored version (zero for a new session), then increments session.Version.
// A stale save, or a second active session for the same user and type, fails
// with an error wrapping types.ErrSessionConflict.
type SessionStore interface {
	Load(ctx context.Context, id uuid.UUID) (*types.Session, error)
	Save(ctx context.Context, session *types.Session) error
	ListActive(ctx context.Context) ([]*types.Session, error)
	ActiveFor(ctx context.Context, userID, assessmentType string) (*types.Session, error)
}

// ScoreSink receives the score of a completed session exactly once.
type ScoreSink interface {
	Persist(ctx context.Context, userID, assessmentType string, result types.ScoreResult) error
}

// Evidence is the non-answer input gathered for a user at completion time.
type Evidence struct {
	Symptoms   []types.Symptom          `json:"symptoms,omitempty"`
	Biomarkers []types.BiomarkerReading `json:"biomarkers,omitempty"`
	Goals      []string                 `json:"goals,omitempty"`
}

// EvidenceSource supplies symptoms, biomarkers and goals for a user.
type EvidenceSource interface {
	Evidence(ctx context.Context, userID, assessmentType string) (Evidence, error)
}
