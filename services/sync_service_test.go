package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/mailstash/mailstash/drive"
	"github.com/mailstash/mailstash/gmail"
	"github.com/mailstash/mailstash/models"
)

type fakeMailbox struct {
	profileErr  error
	labelNames  map[string]string
	ids         []string
	gotQuery    string
	gotMax      int64
	parts       map[string][]gmail.Part
	partsErr    map[string]error
	attachments map[string][]byte
	attachErr   map[string]error
	partsCalls  int
}

func (f *fakeMailbox) Profile(ctx context.Context) (string, error) {
	if f.profileErr != nil {
		return "", f.profileErr
	}
	return "a@test.com", nil
}

func (f *fakeMailbox) Labels(ctx context.Context) ([]gmail.Folder, error) {
	var folders []gmail.Folder
	for id, name := range f.labelNames {
		folders = append(folders, gmail.Folder{ID: id, Name: name})
	}
	return folders, nil
}

func (f *fakeMailbox) LabelName(ctx context.Context, labelID string) (string, error) {
	if name, ok := f.labelNames[labelID]; ok {
		return name, nil
	}
	return "", errors.New("label not found")
}

func (f *fakeMailbox) ListMessageIDs(ctx context.Context, query string, max int64) ([]string, error) {
	f.gotQuery = query
	f.gotMax = max
	return f.ids, nil
}

func (f *fakeMailbox) MessageParts(ctx context.Context, messageID string) ([]gmail.Part, error) {
	f.partsCalls++
	if err, ok := f.partsErr[messageID]; ok {
		return nil, err
	}
	return f.parts[messageID], nil
}

func (f *fakeMailbox) Attachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	if err, ok := f.attachErr[attachmentID]; ok {
		return nil, err
	}
	if data, ok := f.attachments[attachmentID]; ok {
		return data, nil
	}
	return nil, errors.New("attachment not found")
}

type fakeStorage struct {
	createdFolders []string
	createErr      error
	uploads        map[string][]byte
	uploadErr      map[string]error
}

func (f *fakeStorage) CreateFolder(ctx context.Context, name string) (*drive.FileRef, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.createdFolders = append(f.createdFolders, name)
	return &drive.FileRef{ID: "folder-1", Name: name, WebViewLink: "https://drive.test/folder-1"}, nil
}

func (f *fakeStorage) Upload(ctx context.Context, folderID, name string, data []byte) (*drive.FileRef, error) {
	if err, ok := f.uploadErr[name]; ok {
		return nil, err
	}
	if f.uploads == nil {
		f.uploads = map[string][]byte{}
	}
	f.uploads[name] = data
	return &drive.FileRef{ID: "file-" + name, Name: name, WebViewLink: "https://drive.test/" + name}, nil
}

type syncFixture struct {
	svc     *SyncService
	mbox    *fakeMailbox
	storage *fakeStorage

	mailboxBuilt bool
	storageBuilt bool
}

func TestRunHappyPath(t *testing.T) {
	db := newTestDB(t)
	seedUserRow(t, db, models.User{
		Email:          "a@test.com",
		FileType:       "pdf",
		FileNameFilter: "",
		DateFrom:       "2025-01-01",
		GmailFolder:    "INBOX",
		AccessToken:    "valid-access",
		TokenExpiresAt: timePtr(time.Now().Add(time.Hour)),
	})

	mbox := &fakeMailbox{
		labelNames: map[string]string{"INBOX": "Inbox"},
		ids:        []string{"msg-1", "msg-2"},
		parts: map[string][]gmail.Part{
			"msg-1": {
				{Filename: "invoice.pdf", AttachmentID: "att-1", Size: 1024},
				{Filename: "photo.jpg", AttachmentID: "att-2", Size: 2048},
			},
			"msg-2": {},
		},
		attachments: map[string][]byte{"att-1": []byte("pdf-bytes")},
	}
	storage := &fakeStorage{}
	fix := buildSyncFixture(t, db, mbox, storage)
	fix.svc.now = func() time.Time {
		return time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	}

	summary, err := fix.svc.Run(context.Background(), "a@test.com")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !summary.Success {
		t.Error("expected success")
	}
	if summary.EmailCount != 2 {
		t.Errorf("EmailCount = %d, want 2", summary.EmailCount)
	}
	if summary.AttachmentCount != 1 {
		t.Errorf("AttachmentCount = %d, want 1", summary.AttachmentCount)
	}
	if len(summary.Downloads) != 1 {
		t.Fatalf("Downloads = %d, want 1", len(summary.Downloads))
	}
	dl := summary.Downloads[0]
	if dl.Filename != "invoice.pdf" || dl.Status != models.LogStatusSuccess || dl.DriveLink == "" {
		t.Errorf("unexpected download result: %+v", dl)
	}
	if summary.MailboxFolderDisplayName != "Inbox" {
		t.Errorf("display name = %q, want Inbox", summary.MailboxFolderDisplayName)
	}
	wantQuery := "has:attachment after:2025/01/01 label:INBOX"
	if mbox.gotQuery != wantQuery {
		t.Errorf("query = %q, want %q", mbox.gotQuery, wantQuery)
	}
	if mbox.gotMax != 100 {
		t.Errorf("list max = %d, want 100", mbox.gotMax)
	}
	wantFolder := "Gmail Attachments - Inbox - 2025-03-15 - pdf"
	if summary.FolderName != wantFolder {
		t.Errorf("folder name = %q, want %q", summary.FolderName, wantFolder)
	}
	if summary.DateRange != "2025-01-01 to 2025-03-15" {
		t.Errorf("date range = %q", summary.DateRange)
	}
	if _, ok := storage.uploads["invoice.pdf"]; !ok {
		t.Error("invoice.pdf was not uploaded")
	}

	var logs []models.DownloadLog
	if err := db.Order("id").Find(&logs).Error; err != nil {
		t.Fatalf("find logs: %v", err)
	}
	statuses := map[string]int{}
	for _, row := range logs {
		statuses[row.Status]++
	}
	if statuses[models.LogStatusSuccess] != 1 || statuses[models.LogStatusMatched] != 1 {
		t.Errorf("log statuses = %v, want 1 success and 1 matched", statuses)
	}
}

func TestRunFolderNameIncludesFilter(t *testing.T) {
	db := newTestDB(t)
	seedUserRow(t, db, models.User{
		Email:          "a@test.com",
		FileType:       "all",
		FileNameFilter: "invoice",
		DateFrom:       "2025-01-01",
		GmailFolder:    "Label_7",
		AccessToken:    "valid-access",
		TokenExpiresAt: timePtr(time.Now().Add(time.Hour)),
	})

	mbox := &fakeMailbox{labelNames: map[string]string{"Label_7": "Receipts"}}
	storage := &fakeStorage{}
	fix := buildSyncFixture(t, db, mbox, storage)
	fix.svc.now = func() time.Time {
		return time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	}

	summary, err := fix.svc.Run(context.Background(), "a@test.com")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "Gmail Attachments - Receipts - 2025-03-15 - all - invoice"
	if summary.FolderName != want {
		t.Errorf("folder name = %q, want %q", summary.FolderName, want)
	}
	if !strings.Contains(mbox.gotQuery, "(filename:invoice)") {
		t.Errorf("query missing filename clause: %q", mbox.gotQuery)
	}
}

func TestRunUserNotFound(t *testing.T) {
	db := newTestDB(t)
	fix := buildSyncFixture(t, db, &fakeMailbox{}, &fakeStorage{})

	_, err := fix.svc.Run(context.Background(), "missing@test.com")
	assertAPIError(t, err, 400, 40010)
	if fix.mailboxBuilt {
		t.Error("mailbox must not be built for an unknown user")
	}
}

func TestRunMissingPreferences(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*models.User)
		wantCode int
	}{
		{"no file type", func(u *models.User) { u.FileType = "" }, 40011},
		{"no start date", func(u *models.User) { u.DateFrom = "" }, 40012},
		{"no folder", func(u *models.User) { u.GmailFolder = "" }, 40013},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			user := models.User{
				Email:          "a@test.com",
				FileType:       "pdf",
				DateFrom:       "2025-01-01",
				GmailFolder:    "INBOX",
				AccessToken:    "valid-access",
				TokenExpiresAt: timePtr(time.Now().Add(time.Hour)),
			}
			tt.mutate(&user)
			seedUserRow(t, db, user)

			fix := buildSyncFixture(t, db, &fakeMailbox{}, &fakeStorage{})
			_, err := fix.svc.Run(context.Background(), "a@test.com")
			assertAPIError(t, err, 400, tt.wantCode)
			if fix.mailboxBuilt {
				t.Error("mailbox must not be built when preferences are incomplete")
			}
		})
	}
}

func TestRunExpiredTokenWithoutRefreshToken(t *testing.T) {
	db := newTestDB(t)
	seedUserRow(t, db, models.User{
		Email:          "a@test.com",
		FileType:       "pdf",
		DateFrom:       "2025-01-01",
		GmailFolder:    "INBOX",
		AccessToken:    "expired-access",
		TokenExpiresAt: timePtr(time.Now().Add(-time.Hour)),
	})

	fix := buildSyncFixture(t, db, &fakeMailbox{}, &fakeStorage{})
	_, err := fix.svc.Run(context.Background(), "a@test.com")
	assertAPIError(t, err, 401, 40111)
	if fix.mailboxBuilt {
		t.Error("mailbox must not be built when credentials are unusable")
	}
}

func TestRunProfileFailure(t *testing.T) {
	db := newTestDB(t)
	seedUserRow(t, db, models.User{
		Email:          "a@test.com",
		FileType:       "pdf",
		DateFrom:       "2025-01-01",
		GmailFolder:    "INBOX",
		AccessToken:    "revoked-access",
		TokenExpiresAt: timePtr(time.Now().Add(time.Hour)),
	})

	mbox := &fakeMailbox{profileErr: errors.New("401 unauthorized")}
	fix := buildSyncFixture(t, db, mbox, &fakeStorage{})
	_, err := fix.svc.Run(context.Background(), "a@test.com")
	assertAPIError(t, err, 401, 40113)
	if fix.storageBuilt {
		t.Error("storage must not be built when the mailbox probe fails")
	}
}

func TestRunAttachmentFailureIsIsolated(t *testing.T) {
	db := newTestDB(t)
	seedUserRow(t, db, models.User{
		Email:          "a@test.com",
		FileType:       "pdf",
		DateFrom:       "2025-01-01",
		GmailFolder:    "INBOX",
		AccessToken:    "valid-access",
		TokenExpiresAt: timePtr(time.Now().Add(time.Hour)),
	})

	mbox := &fakeMailbox{
		labelNames: map[string]string{"INBOX": "Inbox"},
		ids:        []string{"msg-1"},
		parts: map[string][]gmail.Part{
			"msg-1": {
				{Filename: "broken.pdf", AttachmentID: "att-bad", Size: 10},
				{Filename: "good.pdf", AttachmentID: "att-good", Size: 20},
			},
		},
		attachments: map[string][]byte{"att-good": []byte("ok")},
		attachErr:   map[string]error{"att-bad": errors.New("fetch failed")},
	}
	storage := &fakeStorage{}
	fix := buildSyncFixture(t, db, mbox, storage)

	summary, err := fix.svc.Run(context.Background(), "a@test.com")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.AttachmentCount != 2 {
		t.Errorf("AttachmentCount = %d, want 2", summary.AttachmentCount)
	}
	if len(summary.Downloads) != 2 {
		t.Fatalf("Downloads = %d, want 2", len(summary.Downloads))
	}
	byName := map[string]DownloadResult{}
	for _, dl := range summary.Downloads {
		byName[dl.Filename] = dl
	}
	if byName["broken.pdf"].Status != models.LogStatusFailed {
		t.Errorf("broken.pdf status = %q, want failed", byName["broken.pdf"].Status)
	}
	if byName["good.pdf"].Status != models.LogStatusSuccess {
		t.Errorf("good.pdf status = %q, want success", byName["good.pdf"].Status)
	}

	var failedRow models.DownloadLog
	if err := db.Where("status = ?", models.LogStatusFailed).First(&failedRow).Error; err != nil {
		t.Fatalf("expected a failed log row: %v", err)
	}
	if failedRow.Error == "" {
		t.Error("failed row carries no error message")
	}
}

func TestRunMessageFetchFailureSkipsMessage(t *testing.T) {
	db := newTestDB(t)
	seedUserRow(t, db, models.User{
		Email:          "a@test.com",
		FileType:       "all",
		DateFrom:       "2025-01-01",
		GmailFolder:    "INBOX",
		AccessToken:    "valid-access",
		TokenExpiresAt: timePtr(time.Now().Add(time.Hour)),
	})

	mbox := &fakeMailbox{
		labelNames: map[string]string{"INBOX": "Inbox"},
		ids:        []string{"msg-bad", "msg-good"},
		partsErr:   map[string]error{"msg-bad": errors.New("500 backend error")},
		parts: map[string][]gmail.Part{
			"msg-good": {{Filename: "a.txt", AttachmentID: "att-1", Size: 5}},
		},
		attachments: map[string][]byte{"att-1": []byte("hello")},
	}
	fix := buildSyncFixture(t, db, mbox, &fakeStorage{})

	summary, err := fix.svc.Run(context.Background(), "a@test.com")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.EmailCount != 2 {
		t.Errorf("EmailCount = %d, want 2", summary.EmailCount)
	}
	if summary.AttachmentCount != 1 {
		t.Errorf("AttachmentCount = %d, want 1", summary.AttachmentCount)
	}
}

func TestRunCapsProcessedMessages(t *testing.T) {
	db := newTestDB(t)
	seedUserRow(t, db, models.User{
		Email:          "a@test.com",
		FileType:       "all",
		DateFrom:       "2025-01-01",
		GmailFolder:    "INBOX",
		AccessToken:    "valid-access",
		TokenExpiresAt: timePtr(time.Now().Add(time.Hour)),
	})

	ids := make([]string, 80)
	for i := range ids {
		ids[i] = "msg"
	}
	mbox := &fakeMailbox{
		labelNames: map[string]string{"INBOX": "Inbox"},
		ids:        ids,
	}
	fix := buildSyncFixture(t, db, mbox, &fakeStorage{})

	summary, err := fix.svc.Run(context.Background(), "a@test.com")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.EmailCount != 80 {
		t.Errorf("EmailCount = %d, want 80", summary.EmailCount)
	}
	if mbox.partsCalls != 50 {
		t.Errorf("processed %d messages, want 50", mbox.partsCalls)
	}
}

// buildSyncFixture wires a SyncService against the sqlite test database with
// fake Gmail and Drive factories that record whether they were invoked.
func buildSyncFixture(t *testing.T, db *gorm.DB, mbox *fakeMailbox, storage *fakeStorage) *syncFixture {
	t.Helper()
	fix := &syncFixture{mbox: mbox, storage: storage}

	newMailbox := func(ctx context.Context, accessToken string) (Mailbox, error) {
		fix.mailboxBuilt = true
		return mbox, nil
	}
	newStorage := func(ctx context.Context, accessToken string) (Storage, error) {
		fix.storageBuilt = true
		return storage, nil
	}

	tokens := NewTokenService(db, "client", "secret", oauth2.Endpoint{})
	logs := NewLogService(db)
	fix.svc = NewSyncService(db, tokens, logs, newMailbox, newStorage)
	return fix
}

func seedUserRow(t *testing.T, db *gorm.DB, user models.User) {
	t.Helper()
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func assertAPIError(t *testing.T, err error, wantStatus, wantCode int) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Status != wantStatus || apiErr.Code != wantCode {
		t.Errorf("got status=%d code=%d, want status=%d code=%d", apiErr.Status, apiErr.Code, wantStatus, wantCode)
	}
}
