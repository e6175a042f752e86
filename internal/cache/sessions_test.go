package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/health-assessment/internal/types"
)

func deadRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         "localhost:1",
		DialTimeout:  10 * time.Millisecond,
		ReadTimeout:  10 * time.Millisecond,
		WriteTimeout: 10 * time.Millisecond,
		MaxRetries:   -1,
	})
}

func TestSessionStore_Keys(t *testing.T) {
	id := uuid.MustParse("6f1c2b4e-9a2d-4c1e-8f00-3b7a5d2c9e11")

	tests := []struct {
		name       string
		opts       []Option
		wantKey    string
		wantActive string
		wantOwner  string
	}{
		{
			name:       "default prefix",
			wantKey:    "assessment:session:6f1c2b4e-9a2d-4c1e-8f00-3b7a5d2c9e11",
			wantActive: "assessment:sessions:active",
			wantOwner:  "assessment:owner:hair:user-1",
		},
		{
			name:       "custom prefix gets separator",
			opts:       []Option{WithPrefix("staging")},
			wantKey:    "staging:session:6f1c2b4e-9a2d-4c1e-8f00-3b7a5d2c9e11",
			wantActive: "staging:sessions:active",
			wantOwner:  "staging:owner:hair:user-1",
		},
		{
			name:       "prefix with separator kept",
			opts:       []Option{WithPrefix("qa:")},
			wantKey:    "qa:session:6f1c2b4e-9a2d-4c1e-8f00-3b7a5d2c9e11",
			wantActive: "qa:sessions:active",
			wantOwner:  "qa:owner:hair:user-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSessionStore(nil, tt.opts...)
			assert.Equal(t, tt.wantKey, s.sessionKey(id))
			assert.Equal(t, tt.wantActive, s.activeKey())
			assert.Equal(t, tt.wantOwner, s.ownerKey("user-1", "hair"))
		})
	}
}

func TestDecodeSession(t *testing.T) {
	session, err := decodeSession([]byte(`{"id":"6f1c2b4e-9a2d-4c1e-8f00-3b7a5d2c9e11","status":"active","current_stage":1}`))
	require.NoError(t, err)
	assert.Equal(t, types.SessionActive, session.Status)
	assert.Equal(t, 1, session.CurrentStage)
	assert.NotNil(t, session.Answers)
	assert.NotNil(t, session.CompletedStages)

	_, err = decodeSession([]byte("nope"))
	assert.Error(t, err)
}

func TestSessionStore_UnreachableRedis(t *testing.T) {
	client := deadRedis()
	defer client.Close()
	s := NewSessionStore(client, WithRetention(time.Hour))
	ctx := context.Background()

	_, err := s.Load(ctx, uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get session")

	err = s.Save(ctx, &types.Session{ID: uuid.New(), Status: types.SessionActive})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save session")

	_, err = s.ListActive(ctx)
	require.Error(t, err)

	_, err = s.ActiveFor(ctx, "user-1", "hair")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get session owner")

	_, err = Connect(ctx, "localhost:1")
	assert.Error(t, err)
}
