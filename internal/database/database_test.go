package database

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"legalsum/internal/domain"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()

	db, err := New(context.Background(), filepath.Join(t.TempDir(), "test.sqlite"), slog.Default())
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	})

	return db
}

func TestNewIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sqlite")
	ctx := context.Background()

	for range 2 {
		db, err := New(ctx, path, slog.Default())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		if err = db.Close(); err != nil {
			t.Fatalf("failed to close database: %v", err)
		}
	}
}

func TestSummariesRoundTripAndPrune(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		err := db.AddSummary(ctx, domain.SummaryRecord{
			ID:             id,
			TextHash:       "hash-" + id,
			TextPreview:    "preview " + id,
			Summary:        "summary " + id,
			ProcessingTime: 1500 * time.Millisecond,
			CreatedAt:      base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("failed to add summary: %v", err)
		}
	}

	records, err := db.GetRecentSummaries(ctx, 2)
	if err != nil {
		t.Fatalf("failed to get summaries: %v", err)
	}

	if len(records) != 2 || records[0].ID != "new" || records[1].ID != "mid" {
		t.Fatalf("unexpected records: %+v", records)
	}

	if records[0].ProcessingTime != 1500*time.Millisecond {
		t.Fatalf("unexpected processing time: %v", records[0].ProcessingTime)
	}

	deleted, err := db.DeleteSummariesBefore(ctx, base.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("failed to prune: %v", err)
	}

	if deleted != 2 {
		t.Fatalf("expected two pruned summaries, got %d", deleted)
	}
}

func TestAddSummaryRejectsEmptySummary(t *testing.T) {
	db := newTestDatabase(t)

	err := db.AddSummary(context.Background(), domain.SummaryRecord{ID: "x", Summary: "  "})
	if err == nil {
		t.Fatalf("expected error for empty summary")
	}
}

func TestJudgmentsDeduplicateByURL(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	url := "https://judgments.example/sc/2023/123"
	now := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

	exists, err := db.HasJudgment(ctx, url)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Fatalf("expected judgment to be unknown")
	}

	for range 2 {
		err = db.AddJudgment(ctx, domain.Judgment{
			FeedURL:   "https://judgments.example/rss",
			URL:       url,
			Summary:   "Appeal allowed.",
			CreatedAt: now,
		})
		if err != nil {
			t.Fatalf("failed to add judgment: %v", err)
		}
	}

	exists, err = db.HasJudgment(ctx, " "+url+" ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Fatalf("expected judgment to be known")
	}

	judgments, err := db.GetRecentJudgments(ctx, 10)
	if err != nil {
		t.Fatalf("failed to list judgments: %v", err)
	}

	if len(judgments) != 1 {
		t.Fatalf("expected one judgment, got %d", len(judgments))
	}

	if judgments[0].Title != url {
		t.Fatalf("expected URL to be used as title, got %q", judgments[0].Title)
	}

	if !judgments[0].PublishedAt.IsZero() {
		t.Fatalf("expected missing publish time, got %v", judgments[0].PublishedAt)
	}
}

func TestCheckpointsUpsert(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()
	now := time.Now().UTC()

	checkpoints := []domain.Checkpoint{
		{Path: "legal_led_model/checkpoint-50", Step: 50, CreatedAt: now},
		{Path: "legal_led_model/checkpoint-25", Step: 25, CreatedAt: now},
		{Path: "legal_led_final", Final: true, CreatedAt: now},
		{Path: "legal_led_model/checkpoint-50", Step: 50, CreatedAt: now.Add(time.Minute)},
	}
	for _, c := range checkpoints {
		if err := db.UpsertCheckpoint(ctx, c); err != nil {
			t.Fatalf("failed to upsert checkpoint: %v", err)
		}
	}

	got, err := db.GetCheckpoints(ctx)
	if err != nil {
		t.Fatalf("failed to list checkpoints: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected three checkpoints, got %d", len(got))
	}

	if got[0].Step != 25 || got[1].Step != 50 || !got[2].Final {
		t.Fatalf("unexpected checkpoint order: %+v", got)
	}
}
