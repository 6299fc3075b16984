package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"peerprep/interview/internal/models"

	"go.uber.org/zap"
)

func seedTranscript(t *testing.T, a *TranscriptArchive, id string, available bool, completedAt time.Time) models.TranscriptRecord {
	t.Helper()
	tech := 7
	rec := models.TranscriptRecord{
		ConversationID: id,
		CandidateID:    "cand-1",
		InterviewType:  "backend",
		SkillLevel:     5,
		NumQuestions:   3,
		Transcript:     "# Interview Transcript\n\n[09:00:00] **Interviewer:** Hi?\n\n",
		Feedback:       "## TECHNICAL SKILLS ASSESSMENT\nScore: 7/10",
		TechnicalScore: &tech,
		Available:      available,
		CompletedAt:    completedAt,
	}
	if err := a.Save(context.Background(), &rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return rec
}

func TestArchiveSaveAndGet(t *testing.T) {
	a := NewTranscriptArchive(setupTestDB(t), zap.NewNop())
	now := time.Now().UTC()
	seedTranscript(t, a, "conv-1", true, now)

	got, err := a.Get(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.InterviewType != "backend" || got.TechnicalScore == nil || *got.TechnicalScore != 7 {
		t.Fatalf("unexpected record %+v", got)
	}

	if _, err := a.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestArchiveSaveTwiceUpdates(t *testing.T) {
	a := NewTranscriptArchive(setupTestDB(t), zap.NewNop())
	now := time.Now().UTC()
	first := seedTranscript(t, a, "conv-1", false, now)

	updated := first
	updated.ID = 0
	updated.Feedback = "retry succeeded"
	updated.Available = true
	if err := a.Save(context.Background(), &updated); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if updated.ID != first.ID {
		t.Fatalf("expected same row, got %d vs %d", updated.ID, first.ID)
	}

	got, err := a.Get(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Feedback != "retry succeeded" || !got.Available {
		t.Fatalf("unexpected record %+v", got)
	}
}

func TestArchiveUnexportedAndMark(t *testing.T) {
	a := NewTranscriptArchive(setupTestDB(t), zap.NewNop())
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)
	r1 := seedTranscript(t, a, "conv-1", true, base)
	r2 := seedTranscript(t, a, "conv-2", false, base.Add(time.Minute))

	recs, err := a.Unexported(ctx, 0)
	if err != nil {
		t.Fatalf("Unexported: %v", err)
	}
	if len(recs) != 2 || recs[0].ConversationID != "conv-1" {
		t.Fatalf("unexpected records %+v", recs)
	}

	limited, err := a.Unexported(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limit ignored: %d %v", len(limited), err)
	}

	if err := a.MarkExported(ctx, []uint{r1.ID, r2.ID}); err != nil {
		t.Fatalf("MarkExported: %v", err)
	}
	recs, err = a.Unexported(ctx, 0)
	if err != nil || len(recs) != 0 {
		t.Fatalf("expected none unexported, got %d %v", len(recs), err)
	}

	stats, err := a.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["total_count"] != 2 || stats["evaluated_count"] != 1 || stats["unexported_count"] != 0 {
		t.Fatalf("unexpected stats %v", stats)
	}
}

func TestArchiveListByCandidate(t *testing.T) {
	a := NewTranscriptArchive(setupTestDB(t), zap.NewNop())
	base := time.Now().UTC().Add(-time.Hour)
	seedTranscript(t, a, "old", true, base)
	seedTranscript(t, a, "new", true, base.Add(time.Minute))

	recs, err := a.ListByCandidate(context.Background(), "cand-1", 10)
	if err != nil {
		t.Fatalf("ListByCandidate: %v", err)
	}
	if len(recs) != 2 || recs[0].ConversationID != "new" {
		t.Fatalf("unexpected order %+v", recs)
	}
}

func TestExportToJSONLSkipsUnavailable(t *testing.T) {
	recs := []models.TranscriptRecord{
		{ConversationID: "a", Transcript: "t1", Feedback: "f1", Available: true},
		{ConversationID: "b", Transcript: "t2", Feedback: models.EvaluationUnavailableMessage, Available: false},
		{ConversationID: "c", Transcript: "t3", Feedback: "f3", Available: true},
	}

	data, n, err := ExportToJSONL(recs)
	if err != nil {
		t.Fatalf("ExportToJSONL: %v", err)
	}
	if n != 2 {
		t.Fatalf("exported %d lines, want 2", n)
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) != 2 {
		t.Fatalf("unexpected output %q", data)
	}

	var point models.TrainingDataPoint
	if err := json.Unmarshal([]byte(lines[1]), &point); err != nil {
		t.Fatalf("invalid line: %v", err)
	}
	if point.Contents[0].Role != "user" || point.Contents[0].Parts[0].Text != "t3" {
		t.Fatalf("unexpected user turn %+v", point.Contents[0])
	}
	if point.Contents[1].Role != "model" || point.Contents[1].Parts[0].Text != "f3" {
		t.Fatalf("unexpected model turn %+v", point.Contents[1])
	}
}

func TestExportToJSONLEmpty(t *testing.T) {
	data, n, err := ExportToJSONL(nil)
	if err != nil || n != 0 || len(data) != 0 {
		t.Fatalf("unexpected %q %d %v", data, n, err)
	}
}
