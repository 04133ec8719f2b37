package models

import "time"

// Download log statuses.
const (
	LogStatusSuccess = "success"
	LogStatusFailed  = "failed"
	LogStatusMatched = "matched"
)

// DownloadLog is an append-only audit row, one per attachment attempt.
// It references a user by email without a foreign key; orphaned rows are
// tolerated.
type DownloadLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserEmail   string    `gorm:"size:255;index;not null" json:"user_email"`
	FileName    string    `gorm:"size:512" json:"file_name"`
	FileType    string    `gorm:"size:32" json:"file_type"`
	Status      string    `gorm:"size:16;not null" json:"status"`
	DriveFileID string    `gorm:"size:128" json:"drive_file_id,omitempty"`
	DriveLink   string    `gorm:"size:512" json:"drive_link,omitempty"`
	SearchQuery string    `gorm:"size:512" json:"search_query,omitempty"`
	GmailFolder string    `gorm:"size:128" json:"gmail_folder,omitempty"`
	Error       string    `gorm:"size:512" json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
