package models

import (
	"time"

	"gorm.io/gorm"
)

// User holds a Google account's stored credentials and sync preferences.
// There is at most one row per email; rows are upserted on sign-in and
// updated on every token refresh and preference save, never deleted.
type User struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Email string `gorm:"size:255;uniqueIndex;not null" json:"email"`

	// Sync preferences
	FileType       string `gorm:"size:32" json:"file_type"`
	FileNameFilter string `gorm:"size:255" json:"file_name_filter"`
	DateFrom       string `gorm:"size:10" json:"date_from"` // YYYY-MM-DD
	GmailFolder    string `gorm:"size:128" json:"gmail_folder"`

	// OAuth credentials mirrored from Google
	AccessToken    string     `gorm:"size:2048" json:"-"`
	RefreshToken   string     `gorm:"size:512" json:"-"`
	TokenExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}

// TokenExpired reports whether the stored access token has passed its expiry.
// A missing expiry counts as expired.
func (u *User) TokenExpired(now time.Time) bool {
	return u.TokenExpiresAt == nil || !u.TokenExpiresAt.After(now)
}
