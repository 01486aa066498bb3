package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ESOAnnouncements/internal/domain"
)

func openTestHistory(t *testing.T) *SQLiteHistory {
	t.Helper()

	h, err := OpenSQLiteHistory(filepath.Join(t.TempDir(), "data", "history.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteHistory error: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestRecordAndListRuns(t *testing.T) {
	t.Parallel()

	h := openTestHistory(t)
	ctx := context.Background()
	base := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

	first := domain.Run{
		ID:         "run-1",
		StartedAt:  base,
		FinishedAt: base.Add(3 * time.Second),
		Status:     domain.RunSucceeded,
		ItemCount:  2,
		Items: []domain.Announcement{
			{Source: domain.SourceBlog, Title: "Patch Notes", Link: "https://blog.example/1", Date: base.Add(-time.Hour)},
			{Source: domain.SourceForum, Title: "Downtime", Link: "https://forums.example/2", Date: base.Add(-2 * time.Hour)},
		},
	}
	second := domain.Run{
		ID:         "run-2",
		StartedAt:  base.Add(time.Hour),
		FinishedAt: base.Add(time.Hour + time.Second),
		Status:     domain.RunFailed,
		Error:      "aggregate: scan forum: transport failure",
	}

	for _, run := range []domain.Run{first, second} {
		if err := h.RecordRun(ctx, run); err != nil {
			t.Fatalf("RecordRun(%s) error: %v", run.ID, err)
		}
	}

	runs, err := h.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-2" || runs[0].Status != domain.RunFailed || runs[0].Error == "" {
		t.Fatalf("unexpected newest run: %+v", runs[0])
	}
	if len(runs[0].Items) != 0 {
		t.Fatalf("failed run should have no items, got %d", len(runs[0].Items))
	}

	got := runs[1]
	if got.ID != "run-1" || got.ItemCount != 2 || !got.StartedAt.Equal(first.StartedAt) || !got.FinishedAt.Equal(first.FinishedAt) {
		t.Fatalf("unexpected run: %+v", got)
	}
	if len(got.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got.Items))
	}
	if got.Items[0].Title != "Patch Notes" || got.Items[1].Source != domain.SourceForum {
		t.Fatalf("items out of order: %+v", got.Items)
	}
	if !got.Items[0].Date.Equal(first.Items[0].Date) {
		t.Fatalf("unexpected item date: %v", got.Items[0].Date)
	}

	limited, err := h.RecentRuns(ctx, 1)
	if err != nil {
		t.Fatalf("RecentRuns error: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "run-2" {
		t.Fatalf("unexpected limited runs: %+v", limited)
	}
}

func TestRecordRunDuplicateID(t *testing.T) {
	t.Parallel()

	h := openTestHistory(t)
	ctx := context.Background()
	run := domain.Run{ID: "dup", StartedAt: time.Now(), FinishedAt: time.Now(), Status: domain.RunSucceeded}

	if err := h.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun error: %v", err)
	}
	if err := h.RecordRun(ctx, run); err == nil {
		t.Fatal("expected primary key violation")
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.db")
	for i := 0; i < 2; i++ {
		h, err := OpenSQLiteHistory(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		_ = h.Close()
	}
}

func TestFilePath(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"data/history.db":                "data/history.db",
		"file:data/history.db?_pragma=x": "data/history.db",
		":memory:":                       "",
		"file::memory:?cache=shared":     "",
	}
	for dsn, want := range cases {
		if got := filePath(dsn); got != want {
			t.Fatalf("filePath(%q) = %q, want %q", dsn, got, want)
		}
	}
}
