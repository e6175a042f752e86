package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeKVs_HashesUserIDs(t *testing.T) {
	out := sanitizeKVs([]interface{}{"user_id", "alice", "assessment_type", "hair"})
	require.Len(t, out, 4)

	assert.Equal(t, "user_id", out[0])
	hashed, ok := out[1].(string)
	require.True(t, ok)
	assert.Contains(t, hashed, "hash:")
	assert.NotContains(t, hashed, "alice")
	assert.Equal(t, "hair", out[3])
}

func TestSanitizeKVs_StableHash(t *testing.T) {
	a := sanitizeKVs([]interface{}{"user_id", "alice"})
	b := sanitizeKVs([]interface{}{"user_id", "alice"})
	assert.Equal(t, a[1], b[1])
}

func TestSanitizeKVs_OddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"count", 3, "dangling"})
	assert.Equal(t, []interface{}{"count", 3, "dangling"}, out)
}

func TestLogger_WritesStructuredFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := &Logger{SugaredLogger: zap.New(core).Sugar()}

	log.With("component", "intake").Info("session started", "user_id", "bob", "stage", 0)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "session started", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "intake", fields["component"])
	assert.NotEqual(t, "bob", fields["user_id"])
	assert.EqualValues(t, 0, fields["stage"])
}

func TestNew_Modes(t *testing.T) {
	for _, mode := range []string{"dev", "prod"} {
		log, err := New(mode)
		require.NoError(t, err)
		require.NotNil(t, log)
	}
	Nop().Info("discarded")
}
