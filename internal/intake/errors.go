package intake

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/health-assessment/internal/types"
)

// SessionNotFoundError indicates no session exists for the ID.
type SessionNotFoundError struct {
	ID uuid.UUID
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session not found: %s", e.ID)
}

// SessionCompletedError indicates the session already produced a score.
type SessionCompletedError struct {
	ID uuid.UUID
}

func (e *SessionCompletedError) Error() string {
	return fmt.Sprintf("session already completed: %s", e.ID)
}

// SessionExpiredError indicates the session was abandoned and expired.
type SessionExpiredError struct {
	ID uuid.UUID
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("session expired: %s", e.ID)
}

// SessionConflictError indicates another writer changed the session first,
// or the session is already being finalized. The caller should reload it.
type SessionConflictError struct {
	ID uuid.UUID
}

func (e *SessionConflictError) Error() string {
	return fmt.Sprintf("session modified concurrently: %s", e.ID)
}

func (e *SessionConflictError) Unwrap() error {
	return types.ErrSessionConflict
}

// FieldError is a single field-level rejection of a stage payload.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// StageValidationError is returned when a stage payload is rejected. The
// session is left unchanged and the caller may resubmit the same stage.
type StageValidationError struct {
	SessionID uuid.UUID
	Stage     string
	Errors    []FieldError
}

func (e *StageValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("stage %q validation failed:", e.Stage))
	for _, fe := range e.Errors {
		sb.WriteString(fmt.Sprintf(" %s: %s;", fe.Field, fe.Message))
	}
	return strings.TrimSuffix(sb.String(), ";")
}
