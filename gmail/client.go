package gmail

import (
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	// MaxAttachmentSize caps fetched attachments at 25MB
	MaxAttachmentSize = 25 * 1024 * 1024
)

// Client wraps the Gmail Users service for a single access token.
type Client struct {
	svc *gmail.UsersService
}

// NewClient creates a Gmail client authenticated with the given access token.
// The token is used as-is; refreshing it is the caller's responsibility.
func NewClient(ctx context.Context, accessToken string) (*Client, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{svc: svc.Users}, nil
}

// Profile confirms the access token is usable and returns the account email.
// A failure here is treated by callers as a revoked or invalid token.
func (c *Client) Profile(ctx context.Context) (string, error) {
	profile, err := c.svc.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get profile: %w", err)
	}
	return profile.EmailAddress, nil
}

// Labels lists the account's labels as normalized folders.
func (c *Client) Labels(ctx context.Context) ([]Folder, error) {
	resp, err := c.svc.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	return NormalizeFolders(resp.Labels), nil
}

// LabelName resolves the display name of a label id.
func (c *Client) LabelName(ctx context.Context, labelID string) (string, error) {
	if labelID == "" {
		return "", fmt.Errorf("labelID is required")
	}
	label, err := c.svc.Labels.Get("me", labelID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get label %s: %w", labelID, err)
	}
	return FriendlyLabelName(label.Name, label.Id), nil
}

// ListMessageIDs returns up to max message ids matching the query.
func (c *Client) ListMessageIDs(ctx context.Context, query string, max int64) ([]string, error) {
	resp, err := c.svc.Messages.List("me").Q(query).MaxResults(max).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

// MessageParts fetches a full message and returns its attachment candidates.
func (c *Client) MessageParts(ctx context.Context, messageID string) ([]Part, error) {
	msg, err := c.svc.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return CandidateParts(msg.Payload), nil
}

// Attachment retrieves and decodes the content of an attachment.
func (c *Client) Attachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}
	if attachmentID == "" {
		return nil, fmt.Errorf("attachmentID is required")
	}

	attachment, err := c.svc.Messages.Attachments.Get("me", messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment %s: %w", attachmentID, err)
	}

	if attachment.Size > MaxAttachmentSize {
		return nil, fmt.Errorf("attachment size %d exceeds maximum size %d", attachment.Size, MaxAttachmentSize)
	}

	// Gmail returns RFC 4648 base64url data; fall back to standard base64
	data, err := base64.URLEncoding.DecodeString(attachment.Data)
	if err != nil {
		data, err = base64.StdEncoding.DecodeString(attachment.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode attachment data: %w", err)
		}
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("attachment %s is empty", attachmentID)
	}

	return data, nil
}
