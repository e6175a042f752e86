package intake

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/health-assessment/internal/types"
)

// gatedStore parks the next held reads until open is called, so several
// managers can read the same version before any of them writes.
type gatedStore struct {
	*MemoryStore
	pending atomic.Int32
	read    chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		MemoryStore: NewMemoryStore(),
		read:        make(chan struct{}, 8),
		release:     make(chan struct{}),
	}
}

// hold parks the next n reads.
func (s *gatedStore) hold(n int) {
	s.pending.Store(int32(n))
}

func (s *gatedStore) waitReads(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.read:
		case <-time.After(time.Second):
			t.Fatalf("only %d of %d reads arrived", i, n)
		}
	}
}

func (s *gatedStore) open() {
	close(s.release)
}

func (s *gatedStore) park() {
	if s.pending.Add(-1) >= 0 {
		s.read <- struct{}{}
		<-s.release
	}
}

func (s *gatedStore) Load(ctx context.Context, id uuid.UUID) (*types.Session, error) {
	session, err := s.MemoryStore.Load(ctx, id)
	s.park()
	return session, err
}

func (s *gatedStore) ActiveFor(ctx context.Context, userID, assessmentType string) (*types.Session, error) {
	session, err := s.MemoryStore.ActiveFor(ctx, userID, assessmentType)
	s.park()
	return session, err
}

func TestSubmitStage_ConcurrentManagersPersistOnce(t *testing.T) {
	store := newGatedStore()
	sink := &MemorySink{}
	clock := newTestClock()
	managers := []*Manager{
		newTestManager(t, store, sink, clock),
		newTestManager(t, store, sink, clock),
	}
	ctx := context.Background()

	session, err := managers[0].Start(ctx, "hair", "user-1")
	require.NoError(t, err)
	_, err = managers[0].SubmitStage(ctx, session.ID, map[string]any{"hair_q1": "male"})
	require.NoError(t, err)

	store.hold(len(managers))
	errs := make([]error, len(managers))
	var wg sync.WaitGroup
	for i, m := range managers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = m.SubmitStage(ctx, session.ID, map[string]any{"hair_q2": "receding"})
		}()
	}
	store.waitReads(t, len(managers))
	store.open()
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range errs {
		var conflict *SessionConflictError
		switch {
		case err == nil:
			succeeded++
		case errors.As(err, &conflict):
			conflicted++
			assert.Equal(t, session.ID, conflict.ID)
			assert.ErrorIs(t, err, types.ErrSessionConflict)
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)
	assert.Len(t, sink.Records(), 1, "the score is persisted exactly once")

	stored, err := managers[1].Session(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SessionCompleted, stored.Status)

	_, err = managers[1].SubmitStage(ctx, session.ID, map[string]any{"hair_q2": "receding"})
	var completed *SessionCompletedError
	assert.True(t, errors.As(err, &completed))
}

func TestExpireSessions_StaleReadCannotOverwriteCompletion(t *testing.T) {
	store := newGatedStore()
	sink := &MemorySink{}
	clock := newTestClock()
	submitter := newTestManager(t, store, sink, clock)
	sweeper := newTestManager(t, store, sink, clock)
	ctx := context.Background()

	session, err := submitter.Start(ctx, "hair", "user-1")
	require.NoError(t, err)
	_, err = submitter.SubmitStage(ctx, session.ID, map[string]any{"hair_q1": "male"})
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)

	store.hold(1)
	type sweep struct {
		count int
		err   error
	}
	swept := make(chan sweep, 1)
	go func() {
		count, err := sweeper.ExpireSessions(ctx, time.Hour)
		swept <- sweep{count: count, err: err}
	}()
	store.waitReads(t, 1)

	outcome, err := submitter.SubmitStage(ctx, session.ID, map[string]any{"hair_q2": "receding"})
	require.NoError(t, err)
	assert.True(t, outcome.Completed)

	store.open()
	result := <-swept
	require.NoError(t, result.err)
	assert.Equal(t, 0, result.count)

	stored, err := submitter.Session(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SessionCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
	assert.Len(t, sink.Records(), 1)
}

func TestSubmitStage_PendingFinalizationIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.manager.Start(ctx, "hair", "user-1")
	require.NoError(t, err)
	f.clock.Advance(2 * time.Hour)

	// Another process claimed the session: every stage is in but it is not
	// completed yet.
	claimed, err := f.store.Load(ctx, session.ID)
	require.NoError(t, err)
	claimed.Answers["hair_q1"] = "male"
	claimed.Answers["hair_q2"] = "receding"
	claimed.CompletedStages = []int{0, 1}
	claimed.CurrentStage = 2
	claimed.UpdatedAt = f.clock.Now()
	require.NoError(t, f.store.Save(ctx, claimed))

	var conflict *SessionConflictError
	_, err = f.manager.SubmitStage(ctx, session.ID, map[string]any{"hair_q2": "receding"})
	assert.True(t, errors.As(err, &conflict))
	_, err = f.manager.Resume(ctx, session.ID)
	assert.True(t, errors.As(err, &conflict))
	_, err = f.manager.Start(ctx, "hair", "user-1")
	assert.True(t, errors.As(err, &conflict))
	assert.Empty(t, f.sink.Records())

	// The claim is measured from its last update, not from the start.
	count, err := f.manager.ExpireSessions(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	f.clock.Advance(61 * time.Minute)
	count, err = f.manager.ExpireSessions(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	fresh, err := f.manager.Start(ctx, "hair", "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, session.ID, fresh.ID)
}

func TestStart_ContinuesActiveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.manager.Start(ctx, "hair", "user-1")
	require.NoError(t, err)
	_, err = f.manager.SubmitStage(ctx, first.ID, map[string]any{"hair_q1": "male"})
	require.NoError(t, err)

	again, err := f.manager.Start(ctx, "hair", "user-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, again.CurrentStage)
	assert.Equal(t, "male", again.Answers["hair_q1"])

	other, err := f.manager.Start(ctx, "skin", "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	_, err = f.manager.SubmitStage(ctx, first.ID, map[string]any{"hair_q2": "receding"})
	require.NoError(t, err)

	next, err := f.manager.Start(ctx, "hair", "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, next.ID)
	assert.Equal(t, 0, next.CurrentStage)
	assert.Equal(t, 3, f.store.Len())
}

func TestStart_ReplacesIdleSession(t *testing.T) {
	f := newFixture(t, WithIdleTimeout(30*time.Minute))
	ctx := context.Background()

	first, err := f.manager.Start(ctx, "hair", "user-1")
	require.NoError(t, err)

	f.clock.Advance(31 * time.Minute)
	next, err := f.manager.Start(ctx, "hair", "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, next.ID)

	stored, err := f.manager.Session(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SessionExpired, stored.Status)
}

func TestStart_ConcurrentManagersShareSession(t *testing.T) {
	store := newGatedStore()
	sink := &MemorySink{}
	clock := newTestClock()
	managers := []*Manager{
		newTestManager(t, store, sink, clock),
		newTestManager(t, store, sink, clock),
	}
	ctx := context.Background()

	store.hold(len(managers))
	ids := make([]uuid.UUID, len(managers))
	errs := make([]error, len(managers))
	var wg sync.WaitGroup
	for i, m := range managers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, err := m.Start(ctx, "hair", "user-1")
			errs[i] = err
			if err == nil {
				ids[i] = session.ID
			}
		}()
	}
	store.waitReads(t, len(managers))
	store.open()
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, ids[0], ids[1])
	assert.Equal(t, 1, store.Len())
}
