package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/health-assessment/internal/types"
)

// ScoreSink persists completed score results to score_results.
type ScoreSink struct {
	db *DB
}

// NewScoreSink creates a score sink over db.
func NewScoreSink(db *DB) *ScoreSink {
	return &ScoreSink{db: db}
}

// Persist stores one score result.
func (s *ScoreSink) Persist(ctx context.Context, userID, assessmentType string, result types.ScoreResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal score result: %w", err)
	}

	_, err = s.db.pool.Exec(ctx,
		`INSERT INTO score_results (id, user_id, assessment_type, overall_score, result, scored_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), userID, assessmentType, result.OverallScore, resultJSON, result.ScoredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to persist score result: %w", err)
	}
	return nil
}

// ListScores returns a user's score history for an assessment type, newest first.
func (s *ScoreSink) ListScores(ctx context.Context, userID, assessmentType string) ([]ScoreRecord, error) {
	rows, err := s.db.pool.Query(ctx,
		`SELECT id, user_id, assessment_type, overall_score, result, scored_at, created_at
		 FROM score_results
		 WHERE user_id = $1 AND assessment_type = $2
		 ORDER BY scored_at DESC`,
		userID, assessmentType,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list score results: %w", err)
	}
	defer rows.Close()

	var records []ScoreRecord
	for rows.Next() {
		var rec ScoreRecord
		var resultJSON []byte
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.AssessmentType, &rec.OverallScore,
			&resultJSON, &rec.ScoredAt, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan score result: %w", err)
		}
		if err := json.Unmarshal(resultJSON, &rec.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal score result: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate score results: %w", err)
	}
	return records, nil
}
