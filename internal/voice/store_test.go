package voice

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewStore(rdb, time.Hour), mr
}

func TestStoreSessionRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	sess := NewSession("user_1", "asst_1")
	require.NoError(t, sess.Apply(Event{Type: EventCallStart}))
	require.NoError(t, store.SaveSession(ctx, sess))

	got, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, PhaseActive, got.Phase)
	assert.Equal(t, "user_1", got.ExternalID)
}

func TestStoreGetSessionMissing(t *testing.T) {
	store, _ := newTestStore(t)

	got, err := store.GetSession(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreSessionExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	sess := NewSession("user_1", "asst_1")
	require.NoError(t, store.SaveSession(ctx, sess))

	mr.FastForward(2 * time.Hour)

	got, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreTranscriptOrder(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, store.AppendTranscript(ctx, "sess_1", TranscriptEntry{Role: "user", Text: "I have a toothache", Timestamp: now}))
	require.NoError(t, store.AppendTranscript(ctx, "sess_1", TranscriptEntry{Role: "assistant", Text: "Let me find a slot", Timestamp: now.Add(time.Second)}))

	entries, err := store.GetTranscript(ctx, "sess_1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "user", entries[0].Role)
	assert.Equal(t, "assistant", entries[1].Role)
}

func TestStoreRejectsSessionWithoutID(t *testing.T) {
	store, _ := newTestStore(t)
	assert.Error(t, store.SaveSession(context.Background(), &Session{}))
	assert.Error(t, store.SaveSession(context.Background(), nil))
}
