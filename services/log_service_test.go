package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mailstash/mailstash/models"
)

func TestRecordMatchedSetsStatus(t *testing.T) {
	db := newTestDB(t)
	svc := NewLogService(db)
	ctx := context.Background()

	entries := []models.DownloadLog{
		{UserEmail: "a@test.com", FileName: "one.pdf", FileType: "pdf"},
		{UserEmail: "a@test.com", FileName: "two.pdf", FileType: "pdf"},
	}
	if err := svc.RecordMatched(ctx, entries); err != nil {
		t.Fatalf("RecordMatched: %v", err)
	}

	var rows []models.DownloadLog
	if err := db.Find(&rows).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.Status != models.LogStatusMatched {
			t.Errorf("row %s status = %q, want %q", row.FileName, row.Status, models.LogStatusMatched)
		}
	}
}

func TestRecordMatchedEmptyBatchIsNoop(t *testing.T) {
	db := newTestDB(t)
	svc := NewLogService(db)

	if err := svc.RecordMatched(context.Background(), nil); err != nil {
		t.Fatalf("RecordMatched(nil): %v", err)
	}

	var count int64
	db.Model(&models.DownloadLog{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no rows, got %d", count)
	}
}

func TestRecordFailureTruncatesError(t *testing.T) {
	db := newTestDB(t)
	svc := NewLogService(db)

	longMsg := strings.Repeat("x", 600)
	entry := models.DownloadLog{UserEmail: "a@test.com", FileName: "big.pdf"}
	if err := svc.RecordFailure(context.Background(), entry, errors.New(longMsg)); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}

	var row models.DownloadLog
	if err := db.First(&row).Error; err != nil {
		t.Fatalf("first: %v", err)
	}
	if row.Status != models.LogStatusFailed {
		t.Errorf("status = %q, want %q", row.Status, models.LogStatusFailed)
	}
	if len(row.Error) != 512 {
		t.Errorf("error length = %d, want 512", len(row.Error))
	}
}

func TestRecentNewestFirstAndScopedToUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewLogService(db)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []models.DownloadLog{
		{UserEmail: "a@test.com", FileName: "oldest.pdf", Status: models.LogStatusSuccess, CreatedAt: base},
		{UserEmail: "a@test.com", FileName: "middle.pdf", Status: models.LogStatusFailed, CreatedAt: base.Add(time.Minute)},
		{UserEmail: "a@test.com", FileName: "newest.pdf", Status: models.LogStatusSuccess, CreatedAt: base.Add(2 * time.Minute)},
		{UserEmail: "b@test.com", FileName: "other-user.pdf", Status: models.LogStatusSuccess, CreatedAt: base.Add(3 * time.Minute)},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, err := svc.Recent(ctx, "a@test.com", 50)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	wantOrder := []string{"newest.pdf", "middle.pdf", "oldest.pdf"}
	for i, want := range wantOrder {
		if got[i].FileName != want {
			t.Errorf("position %d: got %s, want %s", i, got[i].FileName, want)
		}
	}
}

func TestRecentAppliesLimit(t *testing.T) {
	db := newTestDB(t)
	svc := NewLogService(db)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		row := models.DownloadLog{
			UserEmail: "a@test.com",
			FileName:  "file.pdf",
			Status:    models.LogStatusSuccess,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, err := svc.Recent(ctx, "a@test.com", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
}
