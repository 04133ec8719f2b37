package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/mailstash/mailstash/models"
)

// LogService appends and reads the per-attachment audit trail.
type LogService struct {
	db *gorm.DB
}

// NewLogService creates a new service instance.
func NewLogService(db *gorm.DB) *LogService {
	return &LogService{db: db}
}

// RecordMatched appends a batch of "matched" rows. The orchestrator fires one
// batch per message, after that message's part loop.
func (s *LogService) RecordMatched(ctx context.Context, entries []models.DownloadLog) error {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		entries[i].Status = models.LogStatusMatched
	}
	return s.db.WithContext(ctx).CreateInBatches(entries, 100).Error
}

// RecordSuccess appends a "success" row carrying the Drive file id and link.
func (s *LogService) RecordSuccess(ctx context.Context, entry models.DownloadLog) error {
	entry.Status = models.LogStatusSuccess
	return s.db.WithContext(ctx).Create(&entry).Error
}

// RecordFailure appends a "failed" row with the upstream error message.
func (s *LogService) RecordFailure(ctx context.Context, entry models.DownloadLog, cause error) error {
	entry.Status = models.LogStatusFailed
	if cause != nil {
		msg := cause.Error()
		if len(msg) > 512 {
			msg = msg[:512]
		}
		entry.Error = msg
	}
	return s.db.WithContext(ctx).Create(&entry).Error
}

// Recent returns the newest rows for a user, newest first.
func (s *LogService) Recent(ctx context.Context, email string, limit int) ([]models.DownloadLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []models.DownloadLog
	err := s.db.WithContext(ctx).
		Where("user_email = ?", email).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
