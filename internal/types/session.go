// Package types provides type definitions for structured data used throughout the health assessment system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a collection session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionExpired   SessionStatus = "expired"
)

// ErrSessionConflict is returned by a store when a save was based on a stale
// version of the session, or would give a user a second active session of
// the same assessment type.
var ErrSessionConflict = errors.New("session was modified concurrently")

// Terminal reports whether no further transition is allowed.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionExpired
}

// Session is a progressive intake in flight for one user and assessment type.
type Session struct {
	ID              uuid.UUID      `json:"id"`
	UserID          string         `json:"user_id"`
	AssessmentType  string         `json:"assessment_type"`
	CurrentStage    int            `json:"current_stage"`
	CompletedStages []int          `json:"completed_stages"`
	Answers         map[string]any `json:"answers"`
	Status          SessionStatus  `json:"status"`
	StartedAt       time.Time      `json:"started_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	// Version counts successful saves. A store only accepts a save whose
	// Version matches the stored one and bumps it on success.
	Version         int64          `json:"version"`
}

// StageCompleted reports whether the stage at index has been submitted.
func (s *Session) StageCompleted(index int) bool {
	return slices.Contains(s.CompletedStages, index)
}

// Clone returns a deep copy. Answer values are copied through JSON so nested
// lists are not shared between copies.
func (s *Session) Clone() (*Session, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	var out Session
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if out.Answers == nil {
		out.Answers = map[string]any{}
	}
	if out.CompletedStages == nil {
		out.CompletedStages = []int{}
	}
	return &out, nil
}

// StageDescriptor describes the stage a caller should present next.
type StageDescriptor struct {
	SessionID       uuid.UUID  `json:"session_id"`
	Index           int        `json:"index"`
	Stage           Stage      `json:"stage"`
	Questions       []Question `json:"questions"`
	CompletedStages int        `json:"completed_stages"`
	MinStages       int        `json:"min_stages"`
	TotalStages     int        `json:"total_stages"`
}
