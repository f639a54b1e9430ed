package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix    = "voice:session:"
	transcriptKeyPrefix = "voice:transcript:"
	defaultSessionTTL   = 24 * time.Hour
)

// Store persists voice session state and transcripts in Redis.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore creates a session store backed by Redis. ttl <= 0 uses the
// 24h default.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func transcriptKey(id string) string {
	return transcriptKeyPrefix + id
}

// SaveSession persists or refreshes a session, resetting its TTL.
func (s *Store) SaveSession(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return fmt.Errorf("voice: session id required")
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("voice: marshal session: %w", err)
	}
	return s.rdb.Set(ctx, sessionKey(sess.ID), data, s.ttl).Err()
}

// GetSession retrieves a session. A missing key yields (nil, nil).
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	data, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("voice: get session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("voice: unmarshal session: %w", err)
	}
	return &sess, nil
}

// AppendTranscript adds a finalized utterance to the session transcript
// and refreshes the transcript TTL.
func (s *Store) AppendTranscript(ctx context.Context, sessionID string, entry TranscriptEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("voice: marshal transcript entry: %w", err)
	}
	pipe := s.rdb.Pipeline()
	pipe.RPush(ctx, transcriptKey(sessionID), data)
	pipe.Expire(ctx, transcriptKey(sessionID), s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// GetTranscript retrieves the full session transcript in order.
func (s *Store) GetTranscript(ctx context.Context, sessionID string) ([]TranscriptEntry, error) {
	data, err := s.rdb.LRange(ctx, transcriptKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("voice: get transcript: %w", err)
	}
	entries := make([]TranscriptEntry, 0, len(data))
	for _, d := range data {
		var entry TranscriptEntry
		if err := json.Unmarshal([]byte(d), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
