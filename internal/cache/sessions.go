// Package cache keeps intake sessions in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jonathan/health-assessment/internal/types"
)

// DefaultPrefix namespaces every key written by SessionStore.
const DefaultPrefix = "assessment:"

// SessionStore stores each session as a JSON string and tracks active
// session IDs in a set so expiry sweeps do not need to scan the keyspace.
type SessionStore struct {
	client *redis.Client
	prefix string
	// retention bounds how long terminal sessions are kept. Zero keeps them forever.
	retention time.Duration
}

// Option configures a SessionStore.
type Option func(*SessionStore)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *SessionStore) {
		if prefix != "" && !strings.HasSuffix(prefix, ":") {
			prefix += ":"
		}
		s.prefix = prefix
	}
}

// WithRetention expires completed and expired sessions after d.
func WithRetention(d time.Duration) Option {
	return func(s *SessionStore) {
		s.retention = d
	}
}

// NewSessionStore creates a Redis-backed session store.
func NewSessionStore(client *redis.Client, opts ...Option) *SessionStore {
	s := &SessionStore{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect creates a client for addr and verifies it answers PING.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return client, nil
}

func (s *SessionStore) sessionKey(id uuid.UUID) string {
	return s.prefix + "session:" + id.String()
}

func (s *SessionStore) activeKey() string {
	return s.prefix + "sessions:active"
}

// ownerKey names the active session of one user and assessment type.
func (s *SessionStore) ownerKey(userID, assessmentType string) string {
	return s.prefix + "owner:" + assessmentType + ":" + userID
}

// Load returns nil, nil when the session does not exist.
func (s *SessionStore) Load(ctx context.Context, id uuid.UUID) (*types.Session, error) {
	data, err := s.client.Get(ctx, s.sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return decodeSession(data)
}

// Save writes the session, the active index and the owner key in one
// transaction. The session key and owner key are watched, so the write only
// lands when the stored version still equals session.Version and no other
// active session owns the user and assessment type.
func (s *SessionStore) Save(ctx context.Context, session *types.Session) error {
	next := *session
	next.Version = session.Version + 1
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	id := session.ID.String()
	key := s.sessionKey(session.ID)
	owner := s.ownerKey(session.UserID, session.AssessmentType)

	txf := func(tx *redis.Tx) error {
		stored, err := s.storedVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if stored != session.Version {
			return fmt.Errorf("version %d, stored %d: %w", session.Version, stored, types.ErrSessionConflict)
		}

		holder, err := tx.Get(ctx, owner).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		active := session.Status == types.SessionActive
		if active && holder != "" && holder != id {
			held, err := s.holderActive(ctx, tx, holder)
			if err != nil {
				return err
			}
			if held {
				return fmt.Errorf("session %s already active: %w", holder, types.ErrSessionConflict)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if active {
				pipe.Set(ctx, key, data, 0)
				pipe.SAdd(ctx, s.activeKey(), id)
				pipe.Set(ctx, owner, id, 0)
				return nil
			}
			pipe.Set(ctx, key, data, s.retention)
			pipe.SRem(ctx, s.activeKey(), id)
			if holder == id {
				pipe.Del(ctx, owner)
			}
			return nil
		})
		return err
	}

	if err := s.client.Watch(ctx, txf, key, owner); err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return fmt.Errorf("failed to save session %s: %w", id, types.ErrSessionConflict)
		}
		return fmt.Errorf("failed to save session %s: %w", id, err)
	}
	session.Version = next.Version
	return nil
}

func (s *SessionStore) storedVersion(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	stored, err := decodeSession(data)
	if err != nil {
		return 0, err
	}
	return stored.Version, nil
}

// holderActive reports whether the session named by the owner key is still
// active. Its key joins the watch so a concurrent change aborts the write.
func (s *SessionStore) holderActive(ctx context.Context, tx *redis.Tx, holder string) (bool, error) {
	holderID, err := uuid.Parse(holder)
	if err != nil {
		return false, nil
	}
	holderKey := s.sessionKey(holderID)
	if err := tx.Watch(ctx, holderKey).Err(); err != nil {
		return false, err
	}
	data, err := tx.Get(ctx, holderKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	held, err := decodeSession(data)
	if err != nil {
		return false, err
	}
	return held.Status == types.SessionActive, nil
}

// ActiveFor returns the session named by the owner key when it is still active.
func (s *SessionStore) ActiveFor(ctx context.Context, userID, assessmentType string) (*types.Session, error) {
	holder, err := s.client.Get(ctx, s.ownerKey(userID, assessmentType)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session owner: %w", err)
	}
	id, err := uuid.Parse(holder)
	if err != nil {
		return nil, nil
	}
	session, err := s.Load(ctx, id)
	if err != nil || session == nil || session.Status != types.SessionActive {
		return nil, err
	}
	return session, nil
}

// ListActive returns active sessions, oldest first. IDs left in the index
// without a session body are pruned.
func (s *SessionStore) ListActive(ctx context.Context) ([]*types.Session, error) {
	ids, err := s.client.SMembers(ctx, s.activeKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.prefix+"session:"+id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load active sessions: %w", err)
	}

	sessions := make([]*types.Session, 0, len(values))
	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		session, err := decodeSession([]byte(raw))
		if err != nil {
			return nil, err
		}
		if session.Status != types.SessionActive {
			stale = append(stale, ids[i])
			continue
		}
		sessions = append(sessions, session)
	}

	if len(stale) > 0 {
		if err := s.client.SRem(ctx, s.activeKey(), stale...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune active index: %w", err)
		}
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.Before(sessions[j].StartedAt)
	})
	return sessions, nil
}

func decodeSession(data []byte) (*types.Session, error) {
	var session types.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if session.Answers == nil {
		session.Answers = map[string]any{}
	}
	if session.CompletedStages == nil {
		session.CompletedStages = []int{}
	}
	return &session, nil
}
