package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/brightsmile/dental-ai-platform/pkg/logging"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// TranscriptEntry is a single finalized utterance from a voice session.
type TranscriptEntry struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// TranscriptRecord is the archived form of a completed voice session.
type TranscriptRecord struct {
	SessionID  string            `json:"session_id"`
	ExternalID string            `json:"external_id"`
	StartedAt  time.Time         `json:"started_at"`
	EndedAt    time.Time         `json:"ended_at"`
	Entries    []TranscriptEntry `json:"entries"`
	ArchivedAt time.Time         `json:"archived_at"`
}

// Store archives voice session transcripts to S3.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
}

// NewStore creates an archive Store. If bucket is empty, all operations
// are no-ops.
func NewStore(s3Client S3API, bucket string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger}
}

// Enabled returns true if archival is configured (bucket is set).
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// ArchiveTranscript writes a TranscriptRecord as JSON to S3, keyed by
// the session's end date.
func (s *Store) ArchiveTranscript(ctx context.Context, record *TranscriptRecord) error {
	if !s.Enabled() {
		return nil
	}

	if record.ArchivedAt.IsZero() {
		record.ArchivedAt = time.Now().UTC()
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("archive: marshal record: %w", err)
	}

	day := record.EndedAt
	if day.IsZero() {
		day = record.ArchivedAt
	}
	s3Key := fmt.Sprintf("voice-transcripts/v1/by-date/%d/%02d/%02d/%s.json",
		day.Year(), day.Month(), day.Day(), record.SessionID)

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s3Key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put %s: %w", s3Key, err)
	}

	s.logger.Info("archived voice transcript to S3",
		"session_id", record.SessionID,
		"s3_key", s3Key,
		"entry_count", len(record.Entries),
	)
	return nil
}
