package archive

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	puts []*s3.PutObjectInput
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, params)
	return &s3.PutObjectOutput{}, nil
}

func TestStoreDisabledWithoutBucket(t *testing.T) {
	store := NewStore(&fakeS3{}, "", nil)
	if store.Enabled() {
		t.Error("store with empty bucket should be disabled")
	}
	if err := store.ArchiveTranscript(context.Background(), &TranscriptRecord{SessionID: "s1"}); err != nil {
		t.Errorf("disabled store should no-op, got %v", err)
	}
}

func TestArchiveTranscriptKeyAndBody(t *testing.T) {
	client := &fakeS3{}
	store := NewStore(client, "transcripts-bucket", nil)

	ended := time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)
	record := &TranscriptRecord{
		SessionID:  "sess_1",
		ExternalID: "user_1",
		StartedAt:  ended.Add(-5 * time.Minute),
		EndedAt:    ended,
		Entries: []TranscriptEntry{
			{Role: "user", Text: "I have a toothache", Timestamp: ended.Add(-4 * time.Minute)},
			{Role: "assistant", Text: "Let me help you book a visit", Timestamp: ended.Add(-3 * time.Minute)},
		},
	}
	if err := store.ArchiveTranscript(context.Background(), record); err != nil {
		t.Fatalf("ArchiveTranscript: %v", err)
	}

	if len(client.puts) != 1 {
		t.Fatalf("put %d objects, want 1", len(client.puts))
	}
	put := client.puts[0]
	if aws.ToString(put.Bucket) != "transcripts-bucket" {
		t.Errorf("Bucket = %q", aws.ToString(put.Bucket))
	}
	key := aws.ToString(put.Key)
	if !strings.HasPrefix(key, "voice-transcripts/v1/by-date/2026/09/01/") || !strings.HasSuffix(key, "sess_1.json") {
		t.Errorf("Key = %q", key)
	}

	body, err := io.ReadAll(put.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var stored TranscriptRecord
	if err := json.Unmarshal(body, &stored); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if len(stored.Entries) != 2 || stored.ExternalID != "user_1" {
		t.Errorf("stored = %+v", stored)
	}
	if stored.ArchivedAt.IsZero() {
		t.Error("ArchivedAt should default to now")
	}
}
