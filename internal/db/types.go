package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/health-assessment/internal/types"
)

// sessionRow is the column layout of assessment_sessions.
type sessionRow struct {
	ID              uuid.UUID
	UserID          string
	AssessmentType  string
	CurrentStage    int32
	CompletedStages []int32
	Answers         []byte
	Status          string
	StartedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
	Version         int64
}

func newSessionRow(s *types.Session) (sessionRow, error) {
	answers := s.Answers
	if answers == nil {
		answers = map[string]any{}
	}
	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return sessionRow{}, fmt.Errorf("failed to marshal answers: %w", err)
	}

	completed := make([]int32, len(s.CompletedStages))
	for i, idx := range s.CompletedStages {
		completed[i] = int32(idx)
	}

	return sessionRow{
		ID:              s.ID,
		UserID:          s.UserID,
		AssessmentType:  s.AssessmentType,
		CurrentStage:    int32(s.CurrentStage),
		CompletedStages: completed,
		Answers:         answersJSON,
		Status:          string(s.Status),
		StartedAt:       s.StartedAt,
		UpdatedAt:       s.UpdatedAt,
		CompletedAt:     s.CompletedAt,
		Version:         s.Version,
	}, nil
}

func (r sessionRow) session() (*types.Session, error) {
	answers := map[string]any{}
	if len(r.Answers) > 0 {
		if err := json.Unmarshal(r.Answers, &answers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
		}
	}

	completed := make([]int, len(r.CompletedStages))
	for i, idx := range r.CompletedStages {
		completed[i] = int(idx)
	}

	return &types.Session{
		ID:              r.ID,
		UserID:          r.UserID,
		AssessmentType:  r.AssessmentType,
		CurrentStage:    int(r.CurrentStage),
		CompletedStages: completed,
		Answers:         answers,
		Status:          types.SessionStatus(r.Status),
		StartedAt:       r.StartedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
		CompletedAt:     r.CompletedAt,
		Version:         r.Version,
	}, nil
}

// ScoreRecord is a persisted score result.
type ScoreRecord struct {
	ID             uuid.UUID         `json:"id"`
	UserID         string            `json:"user_id"`
	AssessmentType string            `json:"assessment_type"`
	OverallScore   float64           `json:"overall_score"`
	Result         types.ScoreResult `json:"result"`
	ScoredAt       time.Time         `json:"scored_at"`
	CreatedAt      time.Time         `json:"created_at"`
}
