package intake

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/health-assessment/internal/logger"
	"github.com/jonathan/health-assessment/internal/types"
)

func TestMemoryStore_CopiesOnLoadAndSave(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	session := &types.Session{
		ID:             uuid.New(),
		AssessmentType: "hair",
		Answers:        map[string]any{"hair_q1": "male"},
		Status:         types.SessionActive,
	}
	require.NoError(t, store.Save(ctx, session))

	session.Answers["hair_q2"] = "receding"
	loaded, err := store.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.NotContains(t, loaded.Answers, "hair_q2")

	loaded.Answers["x"] = 1
	again, err := store.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.NotContains(t, again.Answers, "x")

	missing, err := store.Load(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Error(t, store.Save(ctx, &types.Session{}))
}

func TestMemoryStore_ListActive(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	statuses := []types.SessionStatus{types.SessionActive, types.SessionCompleted, types.SessionActive, types.SessionExpired}
	for i, status := range statuses {
		require.NoError(t, store.Save(ctx, &types.Session{
			ID:        uuid.New(),
			UserID:    fmt.Sprintf("user-%d", i),
			Status:    status,
			StartedAt: base.Add(time.Duration(len(statuses)-i) * time.Minute),
		}))
	}

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.True(t, active[0].StartedAt.Before(active[1].StartedAt))
}

func TestMemoryStore_VersionedSave(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	session := &types.Session{
		ID:             uuid.New(),
		UserID:         "user-1",
		AssessmentType: "hair",
		Answers:        map[string]any{},
		Status:         types.SessionActive,
	}
	require.NoError(t, store.Save(ctx, session))
	assert.Equal(t, int64(1), session.Version)

	first, err := store.Load(ctx, session.ID)
	require.NoError(t, err)
	stale, err := store.Load(ctx, session.ID)
	require.NoError(t, err)

	first.Status = types.SessionCompleted
	require.NoError(t, store.Save(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	stale.Status = types.SessionExpired
	err = store.Save(ctx, stale)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrSessionConflict))
	assert.Equal(t, int64(1), stale.Version, "a rejected save leaves the version alone")

	loaded, err := store.Load(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SessionCompleted, loaded.Status)
	assert.Equal(t, int64(2), loaded.Version)

	unknown := &types.Session{ID: uuid.New(), Status: types.SessionActive, Version: 3}
	assert.True(t, errors.Is(store.Save(ctx, unknown), types.ErrSessionConflict))
}

func TestMemoryStore_OneActivePerUserAndType(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	newSession := func(user, assessmentType string) *types.Session {
		return &types.Session{ID: uuid.New(), UserID: user, AssessmentType: assessmentType, Status: types.SessionActive}
	}

	hair := newSession("user-1", "hair")
	require.NoError(t, store.Save(ctx, hair))
	require.NoError(t, store.Save(ctx, newSession("user-1", "skin")))
	require.NoError(t, store.Save(ctx, newSession("user-2", "hair")))

	err := store.Save(ctx, newSession("user-1", "hair"))
	assert.True(t, errors.Is(err, types.ErrSessionConflict))

	found, err := store.ActiveFor(ctx, "user-1", "hair")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, hair.ID, found.ID)

	hair.Status = types.SessionExpired
	require.NoError(t, store.Save(ctx, hair))

	found, err = store.ActiveFor(ctx, "user-1", "hair")
	require.NoError(t, err)
	assert.Nil(t, found)
	require.NoError(t, store.Save(ctx, newSession("user-1", "hair")))
}

func TestStaticEvidence(t *testing.T) {
	source := StaticEvidence{"u1": {Goals: []string{"sleep"}}}

	ev, err := source.Evidence(context.Background(), "u1", "hair")
	require.NoError(t, err)
	assert.Equal(t, []string{"sleep"}, ev.Goals)

	ev, err = source.Evidence(context.Background(), "u2", "hair")
	require.NoError(t, err)
	assert.Empty(t, ev.Goals)
}

func TestLogSink_Persist(t *testing.T) {
	sink := LogSink{Logger: logger.Nop()}
	assert.NoError(t, sink.Persist(context.Background(), "u1", "hair", types.ScoreResult{OverallScore: 2.5}))
	assert.NoError(t, LogSink{}.Persist(context.Background(), "u1", "hair", types.ScoreResult{}))
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	id := uuid.New()

	unlock := k.lock(id)
	assert.Equal(t, 1, k.size())
	unlock()
	assert.Equal(t, 0, k.size())
}
