package gmail

import (
	"sort"

	gmail "google.golang.org/api/gmail/v1"
)

// Folder is a user-facing view of a Gmail label.
type Folder struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	MessagesTotal  int64  `json:"messagesTotal"`
	MessagesUnread int64  `json:"messagesUnread"`
	ThreadsTotal   int64  `json:"threadsTotal"`
	ThreadsUnread  int64  `json:"threadsUnread"`
}

// System categories that make no sense as attachment sources.
var excludedLabels = map[string]bool{
	"DRAFT":               true,
	"SPAM":                true,
	"TRASH":               true,
	"CHAT":                true,
	"CATEGORY_PERSONAL":   true,
	"CATEGORY_SOCIAL":     true,
	"CATEGORY_PROMOTIONS": true,
	"CATEGORY_UPDATES":    true,
	"CATEGORY_FORUMS":     true,
}

var friendlyLabelNames = map[string]string{
	"INBOX":     "Inbox",
	"SENT":      "Sent",
	"IMPORTANT": "Important",
	"STARRED":   "Starred",
	"UNREAD":    "Unread",
}

// FriendlyLabelName maps a system label id to a display name; user-created
// labels keep their own name.
func FriendlyLabelName(name, id string) string {
	if friendly, ok := friendlyLabelNames[id]; ok {
		return friendly
	}
	return name
}

// NormalizeFolders converts raw labels into the folder list exposed to the
// caller: the denylisted system categories are dropped and the rest sorted
// with the primary inbox first, then by message count descending, then
// alphabetically.
func NormalizeFolders(labels []*gmail.Label) []Folder {
	folders := make([]Folder, 0, len(labels))
	for _, label := range labels {
		if label == nil || label.Id == "" || label.Name == "" {
			continue
		}
		if excludedLabels[label.Id] {
			continue
		}
		folders = append(folders, Folder{
			ID:             label.Id,
			Name:           FriendlyLabelName(label.Name, label.Id),
			MessagesTotal:  label.MessagesTotal,
			MessagesUnread: label.MessagesUnread,
			ThreadsTotal:   label.ThreadsTotal,
			ThreadsUnread:  label.ThreadsUnread,
		})
	}

	sort.SliceStable(folders, func(i, j int) bool {
		a, b := folders[i], folders[j]
		if a.ID == "INBOX" {
			return true
		}
		if b.ID == "INBOX" {
			return false
		}
		if a.MessagesTotal != b.MessagesTotal {
			return a.MessagesTotal > b.MessagesTotal
		}
		return a.Name < b.Name
	})

	return folders
}
