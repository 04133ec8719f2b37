package drive

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/oauth2"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	// FolderMimeType is the MIME type for Google Drive folders
	FolderMimeType = "application/vnd.google-apps.folder"
)

// FileRef identifies an uploaded file or created folder.
type FileRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WebViewLink string `json:"webViewLink,omitempty"`
}

// Client wraps the Google Drive API service for a single access token.
type Client struct {
	svc *drive.Service
}

// NewClient creates a Drive client authenticated with the given access token.
func NewClient(ctx context.Context, accessToken string) (*Client, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return &Client{svc: svc}, nil
}

// CreateFolder creates a new folder at the Drive root.
func (c *Client) CreateFolder(ctx context.Context, name string) (*FileRef, error) {
	if name == "" {
		return nil, fmt.Errorf("folder name is required")
	}

	file := &drive.File{
		Name:     name,
		MimeType: FolderMimeType,
	}

	created, err := c.svc.Files.Create(file).
		Context(ctx).
		Fields("id, name, webViewLink").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}

	return &FileRef{ID: created.Id, Name: created.Name, WebViewLink: created.WebViewLink}, nil
}

// Upload stores an attachment's bytes inside the given folder and returns its
// id and shareable link.
func (c *Client) Upload(ctx context.Context, folderID, name string, data []byte) (*FileRef, error) {
	if name == "" {
		return nil, fmt.Errorf("file name is required")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file content is required")
	}

	file := &drive.File{
		Name: name,
	}
	if folderID != "" {
		file.Parents = []string{folderID}
	}

	uploaded, err := c.svc.Files.Create(file).
		Context(ctx).
		Media(bytes.NewReader(data), googleapi.ContentType("application/octet-stream")).
		Fields("id, name, webViewLink").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to upload file %s: %w", name, err)
	}
	if uploaded.Id == "" {
		return nil, fmt.Errorf("upload of %s returned no file id", name)
	}

	return &FileRef{ID: uploaded.Id, Name: uploaded.Name, WebViewLink: uploaded.WebViewLink}, nil
}
