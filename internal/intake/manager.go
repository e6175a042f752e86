package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/health-assessment/internal/logger"
	"github.com/jonathan/health-assessment/internal/scoring"
	"github.com/jonathan/health-assessment/internal/types"
)

// Manager drives collection sessions from start to completion. Within one
// Manager, submissions and expiry are serialized per session ID. Across
// processes the store's versioned saves decide which writer wins.
type Manager struct {
	definitions DefinitionSource
	store       SessionStore
	sink        ScoreSink
	pipeline    *scoring.Pipeline
	evidence    EvidenceSource
	log         *logger.Logger
	now         func() time.Time
	idleTimeout time.Duration
	validate    *validator.Validate
	locks       *keyedMutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithEvidence sets the source of symptoms, biomarkers and goals used at completion.
func WithEvidence(source EvidenceSource) Option {
	return func(m *Manager) {
		m.evidence = source
	}
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithIdleTimeout makes SubmitStage and Resume expire a session on access
// once its age exceeds timeout, without waiting for the next sweep.
func WithIdleTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		m.idleTimeout = timeout
	}
}

// NewManager creates a Manager.
func NewManager(definitions DefinitionSource, store SessionStore, sink ScoreSink, pipeline *scoring.Pipeline, opts ...Option) *Manager {
	m := &Manager{
		definitions: definitions,
		store:       store,
		sink:        sink,
		pipeline:    pipeline,
		log:         logger.Nop(),
		now:         time.Now,
		validate:    validator.New(),
		locks:       newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StageOutcome is the result of a successful submission: either the session
// advanced to Next, or it completed and Result holds the score.
type StageOutcome struct {
	Session   *types.Session     `json:"session"`
	Completed bool               `json:"completed"`
	Next      *types.Stage       `json:"next,omitempty"`
	Result    *types.ScoreResult `json:"result,omitempty"`
}

// Start returns the user's active session of assessmentType, creating one
// when none exists. Unknown assessment types fail and no session is created.
// A session that has outlived the idle timeout is expired and replaced.
func (m *Manager) Start(ctx context.Context, assessmentType, userID string) (*types.Session, error) {
	def, err := m.definitions.Definition(assessmentType)
	if err != nil {
		return nil, err
	}

	unlock := m.locks.lock(ownerLockKey(userID, assessmentType))
	defer unlock()

	existing, err := m.store.ActiveFor(ctx, userID, assessmentType)
	if err != nil {
		return nil, fmt.Errorf("failed to look up active session: %w", err)
	}
	if existing != nil {
		switch {
		case m.idleTimeout > 0 && m.idle(existing, m.idleTimeout):
			if _, err := m.expireIfIdle(ctx, existing, m.idleTimeout); err != nil {
				return nil, err
			}
		case isComplete(def, existing):
			return nil, &SessionConflictError{ID: existing.ID}
		default:
			m.log.Info("session resumed", "session_id", existing.ID, "user_id", userID, "assessment_type", assessmentType)
			return existing, nil
		}
	}

	now := m.now().UTC()
	session := &types.Session{
		ID:              uuid.New(),
		UserID:          userID,
		AssessmentType:  assessmentType,
		CurrentStage:    0,
		CompletedStages: []int{},
		Answers:         map[string]any{},
		Status:          types.SessionActive,
		StartedAt:       now,
		UpdatedAt:       now,
	}
	if err := m.store.Save(ctx, session); err != nil {
		if !errors.Is(err, types.ErrSessionConflict) {
			return nil, fmt.Errorf("failed to save new session: %w", err)
		}
		// Another process created the session between lookup and save.
		winner, lookupErr := m.store.ActiveFor(ctx, userID, assessmentType)
		if lookupErr != nil || winner == nil {
			return nil, fmt.Errorf("failed to save new session: %w", err)
		}
		return winner, nil
	}

	m.log.Info("session started", "session_id", session.ID, "user_id", userID, "assessment_type", assessmentType)
	return session, nil
}

// Session returns the stored session.
func (m *Manager) Session(ctx context.Context, id uuid.UUID) (*types.Session, error) {
	session, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, &SessionNotFoundError{ID: id}
	}
	return session, nil
}

// SubmitStage validates payload against the current stage and, on success,
// merges it and advances. A rejected payload leaves the session untouched.
// Once enough stages are collected the merged answers are scored, the result
// is handed to the sink and the session is marked completed.
func (m *Manager) SubmitStage(ctx context.Context, id uuid.UUID, payload map[string]any) (*StageOutcome, error) {
	unlock := m.locks.lock(id)
	defer unlock()

	session, def, err := m.activeSession(ctx, id)
	if err != nil {
		return nil, err
	}

	stage := def.Stages[session.CurrentStage]
	answers, fieldErrs := validateStage(m.validate, def, stage, payload)
	if len(fieldErrs) > 0 {
		m.log.Warn("stage rejected",
			"session_id", id,
			"stage", stage.Name,
			"errors", len(fieldErrs),
		)
		return nil, &StageValidationError{SessionID: id, Stage: stage.Name, Errors: fieldErrs}
	}

	original, err := session.Clone()
	if err != nil {
		return nil, err
	}

	// session is a private copy from the store, so mutating it is safe until saved.
	for key, value := range answers {
		session.Answers[key] = value
	}
	if !session.StageCompleted(session.CurrentStage) {
		session.CompletedStages = append(session.CompletedStages, session.CurrentStage)
	}
	session.CurrentStage++
	session.UpdatedAt = m.now().UTC()

	m.log.Debug("stage accepted",
		"session_id", id,
		"stage", stage.Name,
		"completed_stages", len(session.CompletedStages),
	)

	if !isComplete(def, session) {
		if err := m.save(ctx, session, "save session"); err != nil {
			return nil, err
		}
		next := def.Stages[session.CurrentStage]
		return &StageOutcome{Session: session, Next: &next}, nil
	}

	result, err := m.finalize(ctx, original, session, def)
	if err != nil {
		return nil, err
	}
	return &StageOutcome{Session: session, Completed: true, Result: &result}, nil
}

// Resume returns the stage the caller should present next.
func (m *Manager) Resume(ctx context.Context, id uuid.UUID) (*types.StageDescriptor, error) {
	unlock := m.locks.lock(id)
	defer unlock()

	session, def, err := m.activeSession(ctx, id)
	if err != nil {
		return nil, err
	}

	stage := def.Stages[session.CurrentStage]
	questions := make([]types.Question, 0, len(stage.Questions))
	for _, key := range stage.Questions {
		if q, ok := def.Question(key); ok {
			questions = append(questions, *q)
		}
	}

	return &types.StageDescriptor{
		SessionID:       session.ID,
		Index:           session.CurrentStage,
		Stage:           stage,
		Questions:       questions,
		CompletedStages: len(session.CompletedStages),
		MinStages:       def.MinStages,
		TotalStages:     def.TotalStages(),
	}, nil
}

// activeSession loads a session that may still accept submissions. Must be
// called with the session lock held.
func (m *Manager) activeSession(ctx context.Context, id uuid.UUID) (*types.Session, *types.AssessmentDefinition, error) {
	session, err := m.Session(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if session.Status.Terminal() {
		if session.Status == types.SessionCompleted {
			return nil, nil, &SessionCompletedError{ID: id}
		}
		return nil, nil, &SessionExpiredError{ID: id}
	}

	def, err := m.definitions.Definition(session.AssessmentType)
	if err != nil {
		return nil, nil, err
	}
	// Enough stages but still active: another writer holds the finalization.
	if isComplete(def, session) {
		return nil, nil, &SessionConflictError{ID: id}
	}

	if m.idleTimeout > 0 && m.idle(session, m.idleTimeout) {
		if err := m.expire(ctx, session); err != nil {
			return nil, nil, err
		}
		return nil, nil, &SessionExpiredError{ID: id}
	}

	if session.CurrentStage < 0 || session.CurrentStage >= def.TotalStages() {
		return nil, nil, fmt.Errorf("session %s has stage index %d outside %d stages", id, session.CurrentStage, def.TotalStages())
	}
	return session, def, nil
}

// finalize scores the session and claims it by saving the advanced, still
// active copy. Only the writer whose claim lands persists the score; the
// session is marked completed afterwards. A failed persist puts original back.
func (m *Manager) finalize(ctx context.Context, original, session *types.Session, def *types.AssessmentDefinition) (types.ScoreResult, error) {
	var evidence Evidence
	if m.evidence != nil {
		var err error
		evidence, err = m.evidence.Evidence(ctx, session.UserID, session.AssessmentType)
		if err != nil {
			return types.ScoreResult{}, fmt.Errorf("failed to gather evidence: %w", err)
		}
	}

	result := m.pipeline.Score(def, types.ScoreInput{
		AssessmentType: session.AssessmentType,
		Answers:        session.Answers,
		Symptoms:       evidence.Symptoms,
		Biomarkers:     evidence.Biomarkers,
		Goals:          evidence.Goals,
	})

	if err := m.save(ctx, session, "claim session"); err != nil {
		return types.ScoreResult{}, err
	}

	if err := m.sink.Persist(ctx, session.UserID, session.AssessmentType, result); err != nil {
		original.Version = session.Version
		if restoreErr := m.store.Save(ctx, original); restoreErr != nil {
			m.log.Error("failed to release session after persist failure",
				"session_id", session.ID,
				"error", restoreErr,
			)
		}
		return types.ScoreResult{}, fmt.Errorf("failed to persist score: %w", err)
	}

	completedAt := m.now().UTC()
	session.Status = types.SessionCompleted
	session.CompletedAt = &completedAt
	session.UpdatedAt = completedAt
	if err := m.save(ctx, session, "save completed session"); err != nil {
		return types.ScoreResult{}, err
	}

	m.log.Info("session completed",
		"session_id", session.ID,
		"user_id", session.UserID,
		"assessment_type", session.AssessmentType,
		"overall_score", result.OverallScore,
	)
	return result, nil
}

// save writes session and reports a lost compare-and-set as a
// SessionConflictError.
func (m *Manager) save(ctx context.Context, session *types.Session, action string) error {
	err := m.store.Save(ctx, session)
	if err == nil {
		return nil
	}
	if errors.Is(err, types.ErrSessionConflict) {
		m.log.Warn("session conflict", "session_id", session.ID, "action", action)
		return &SessionConflictError{ID: session.ID}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// ownerLockKey maps a user and assessment type onto the lock namespace so
// concurrent Start calls for the same pair serialize.
func ownerLockKey(userID, assessmentType string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(userID+"\x00"+assessmentType))
}

// isComplete applies the completion policy: enough stages for the threshold,
// or every stage, whichever comes first.
func isComplete(def *types.AssessmentDefinition, session *types.Session) bool {
	done := len(session.CompletedStages)
	return done >= def.MinStages || done >= def.TotalStages()
}
