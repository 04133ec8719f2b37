package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mailstash/mailstash/drive"
	"github.com/mailstash/mailstash/gmail"
	"github.com/mailstash/mailstash/models"
	"github.com/mailstash/mailstash/utils"
)

const (
	// listMessagesMax bounds the search result set.
	listMessagesMax = 100
	// processMessagesCap bounds per-invocation latency; only the first 50
	// listed messages are opened for attachment extraction.
	processMessagesCap = 50
)

// Mailbox is the slice of the mail provider the orchestrator needs.
type Mailbox interface {
	Profile(ctx context.Context) (string, error)
	Labels(ctx context.Context) ([]gmail.Folder, error)
	LabelName(ctx context.Context, labelID string) (string, error)
	ListMessageIDs(ctx context.Context, query string, max int64) ([]string, error)
	MessageParts(ctx context.Context, messageID string) ([]gmail.Part, error)
	Attachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// Storage is the slice of the cloud storage provider the orchestrator needs.
// The gmail and drive clients satisfy these interfaces directly.
type Storage interface {
	CreateFolder(ctx context.Context, name string) (*drive.FileRef, error)
	Upload(ctx context.Context, folderID, name string, data []byte) (*drive.FileRef, error)
}

// MailboxFactory builds a Mailbox for an access token.
type MailboxFactory func(ctx context.Context, accessToken string) (Mailbox, error)

// StorageFactory builds a Storage for an access token.
type StorageFactory func(ctx context.Context, accessToken string) (Storage, error)

// DownloadResult is the per-attachment outcome reported to the caller.
type DownloadResult struct {
	Filename  string `json:"filename"`
	Size      int64  `json:"size,omitempty"`
	Status    string `json:"status"`
	DriveLink string `json:"driveLink,omitempty"`
}

// Summary is the consolidated result of one sync invocation.
type Summary struct {
	Success                  bool             `json:"success"`
	EmailCount               int              `json:"emailCount"`
	AttachmentCount          int              `json:"attachmentCount"`
	Downloads                []DownloadResult `json:"downloads"`
	FolderName               string           `json:"folderName"`
	MailboxFolderDisplayName string           `json:"mailboxFolderDisplayName"`
	SearchQuery              string           `json:"searchQuery"`
	DateRange                string           `json:"dateRange"`
	NameFilter               string           `json:"nameFilter"`
}

// SyncService runs the credential-refresh-and-sync workflow: ensure a valid
// token, read preferences, scan the mailbox, upload matches to Drive and
// audit every attempt. Everything is sequential; failures inside the message
// loop are isolated, failures before it abort the invocation.
type SyncService struct {
	db         *gorm.DB
	tokens     *TokenService
	logs       *LogService
	newMailbox MailboxFactory
	newStorage StorageFactory
	now        func() time.Time
}

// NewSyncService creates a new orchestrator instance.
func NewSyncService(db *gorm.DB, tokens *TokenService, logs *LogService, newMailbox MailboxFactory, newStorage StorageFactory) *SyncService {
	return &SyncService{
		db:         db,
		tokens:     tokens,
		logs:       logs,
		newMailbox: newMailbox,
		newStorage: newStorage,
		now:        time.Now,
	}
}

// Run executes one full sync invocation for the given user email.
func (s *SyncService) Run(ctx context.Context, email string) (*Summary, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, badRequest(40010, "User not found. Please sign in again.", err)
		}
		return nil, internal(50010, "Failed to load user.", err)
	}

	accessToken, err := s.checkAuth(ctx, &user)
	if err != nil {
		return nil, err
	}

	if err := validatePreferences(&user); err != nil {
		return nil, err
	}

	mbox, err := s.newMailbox(ctx, accessToken)
	if err != nil {
		return nil, internal(50011, "Failed to connect to Gmail. Please try again.", err)
	}

	// A lightweight call proving the token is actually usable; covers
	// revocation without expiry.
	if _, err := mbox.Profile(ctx); err != nil {
		return nil, unauthorized(40113, "Gmail API access failed. Please sign out and sign in again.", err)
	}

	displayName, err := mbox.LabelName(ctx, user.GmailFolder)
	if err != nil {
		// Non-fatal: fall back to the raw id for display purposes
		utils.Sugar.Warnf("failed to resolve folder name for %s: %v", user.GmailFolder, err)
		displayName = user.GmailFolder
	}

	query := gmail.BuildQuery(user.DateFrom, user.GmailFolder, user.FileNameFilter)

	ids, err := mbox.ListMessageIDs(ctx, query, listMessagesMax)
	if err != nil {
		return nil, internal(50012, "Failed to search mailbox. Please try again.", err)
	}

	storage, err := s.newStorage(ctx, accessToken)
	if err != nil {
		return nil, internal(50013, "Failed to connect to Google Drive. Please try again.", err)
	}

	now := s.now()
	folderName := destinationFolderName(displayName, now, user.FileType, user.FileNameFilter)
	folder, err := storage.CreateFolder(ctx, folderName)
	if err != nil {
		return nil, internal(50014, "Failed to create the Drive folder. Please try again.", err)
	}

	summary := &Summary{
		Success:                  true,
		EmailCount:               len(ids),
		Downloads:                []DownloadResult{},
		FolderName:               folderName,
		MailboxFolderDisplayName: displayName,
		SearchQuery:              query,
		DateRange:                fmt.Sprintf("%s to %s", user.DateFrom, now.Format("2006-01-02")),
		NameFilter:               user.FileNameFilter,
	}

	process := ids
	if len(process) > processMessagesCap {
		process = process[:processMessagesCap]
	}

	for _, messageID := range process {
		parts, err := mbox.MessageParts(ctx, messageID)
		if err != nil {
			// Isolated failure: skip this message, keep the run going
			utils.Sugar.Warnf("failed to fetch message %s: %v", messageID, err)
			continue
		}

		var matched []models.DownloadLog
		for _, part := range parts {
			ext := gmail.Extension(part.Filename)
			if !gmail.MatchesFileType(ext, user.FileType) {
				continue
			}
			if !gmail.MatchesNameFilter(part.Filename, user.FileNameFilter) {
				continue
			}

			summary.AttachmentCount++
			matched = append(matched, models.DownloadLog{
				UserEmail:   user.Email,
				FileName:    part.Filename,
				FileType:    ext,
				SearchQuery: query,
				GmailFolder: user.GmailFolder,
			})

			entry := models.DownloadLog{
				UserEmail:   user.Email,
				FileName:    part.Filename,
				FileType:    ext,
				SearchQuery: query,
				GmailFolder: user.GmailFolder,
			}

			data, err := mbox.Attachment(ctx, messageID, part.AttachmentID)
			if err != nil {
				utils.Sugar.Warnf("failed to fetch attachment %s from message %s: %v", part.Filename, messageID, err)
				s.recordFailure(ctx, entry, err)
				summary.Downloads = append(summary.Downloads, DownloadResult{
					Filename: part.Filename,
					Status:   models.LogStatusFailed,
				})
				continue
			}

			uploaded, err := storage.Upload(ctx, folder.ID, part.Filename, data)
			if err != nil {
				utils.Sugar.Warnf("failed to upload attachment %s: %v", part.Filename, err)
				s.recordFailure(ctx, entry, err)
				summary.Downloads = append(summary.Downloads, DownloadResult{
					Filename: part.Filename,
					Status:   models.LogStatusFailed,
				})
				continue
			}

			entry.DriveFileID = uploaded.ID
			entry.DriveLink = uploaded.WebViewLink
			if err := s.logs.RecordSuccess(ctx, entry); err != nil {
				utils.Sugar.Warnf("failed to record success log for %s: %v", part.Filename, err)
			}
			summary.Downloads = append(summary.Downloads, DownloadResult{
				Filename:  part.Filename,
				Size:      part.Size,
				Status:    models.LogStatusSuccess,
				DriveLink: uploaded.WebViewLink,
			})
		}

		// Matched rows are batched per message, after its part loop
		if err := s.logs.RecordMatched(ctx, matched); err != nil {
			utils.Sugar.Warnf("failed to record matched logs for message %s: %v", messageID, err)
		}
	}

	return summary, nil
}

// checkAuth resolves a usable access token, refreshing an expired one when a
// refresh token exists. All failures here are auth errors.
func (s *SyncService) checkAuth(ctx context.Context, user *models.User) (string, error) {
	accessToken, err := s.tokens.EnsureAccessToken(ctx, user)
	if err == nil {
		return accessToken, nil
	}

	switch {
	case errors.Is(err, ErrNoAccessToken):
		return "", unauthorized(40110, "No access token found. Please sign out and sign in again to reconnect your Gmail account.", err)
	case errors.Is(err, ErrNoRefreshToken):
		return "", unauthorized(40111, "Access token expired and no refresh token is available. Please sign out and sign in again.", err)
	case errors.Is(err, ErrRefreshFailed):
		return "", unauthorized(40112, "Token expired and refresh failed. Please sign out and sign in again.", err)
	default:
		return "", internal(50015, "Failed to validate credentials.", err)
	}
}

func validatePreferences(user *models.User) error {
	if user.FileType == "" {
		return badRequest(40011, "Please set your file type preference first.", nil)
	}
	if user.DateFrom == "" {
		return badRequest(40012, "Please set your start date preference first.", nil)
	}
	if user.GmailFolder == "" {
		return badRequest(40013, "Please select a Gmail folder first.", nil)
	}
	return nil
}

func (s *SyncService) recordFailure(ctx context.Context, entry models.DownloadLog, cause error) {
	if err := s.logs.RecordFailure(ctx, entry, cause); err != nil {
		utils.Sugar.Warnf("failed to record failure log for %s: %v", entry.FileName, err)
	}
}

// destinationFolderName builds the per-run Drive folder name so every sync
// lands in its own folder rather than merging into a prior run's.
func destinationFolderName(folderDisplayName string, now time.Time, fileType, nameFilter string) string {
	name := fmt.Sprintf("Gmail Attachments - %s - %s - %s", folderDisplayName, now.Format("2006-01-02"), fileType)
	if nameFilter != "" {
		name += " - " + nameFilter
	}
	return name
}
