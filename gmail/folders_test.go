package gmail

import (
	"testing"

	gmail "google.golang.org/api/gmail/v1"
)

func TestNormalizeFoldersDropsExcludedLabels(t *testing.T) {
	labels := []*gmail.Label{
		{Id: "INBOX", Name: "INBOX", MessagesTotal: 100},
		{Id: "SPAM", Name: "SPAM", MessagesTotal: 500},
		{Id: "TRASH", Name: "TRASH"},
		{Id: "DRAFT", Name: "DRAFT"},
		{Id: "CATEGORY_PROMOTIONS", Name: "CATEGORY_PROMOTIONS"},
		{Id: "Label_1", Name: "Receipts", MessagesTotal: 12},
	}

	folders := NormalizeFolders(labels)
	if len(folders) != 2 {
		t.Fatalf("expected 2 folders, got %d: %+v", len(folders), folders)
	}
	for _, f := range folders {
		if excludedLabels[f.ID] {
			t.Errorf("excluded label %s survived normalization", f.ID)
		}
	}
}

func TestNormalizeFoldersOrder(t *testing.T) {
	labels := []*gmail.Label{
		{Id: "Label_b", Name: "Beta", MessagesTotal: 10},
		{Id: "Label_a", Name: "Alpha", MessagesTotal: 10},
		{Id: "SENT", Name: "SENT", MessagesTotal: 999},
		{Id: "INBOX", Name: "INBOX", MessagesTotal: 5},
	}

	folders := NormalizeFolders(labels)
	wantIDs := []string{"INBOX", "SENT", "Label_a", "Label_b"}
	if len(folders) != len(wantIDs) {
		t.Fatalf("expected %d folders, got %d", len(wantIDs), len(folders))
	}
	for i, want := range wantIDs {
		if folders[i].ID != want {
			t.Errorf("position %d: got %s, want %s", i, folders[i].ID, want)
		}
	}
}

func TestNormalizeFoldersFriendlyNames(t *testing.T) {
	labels := []*gmail.Label{
		{Id: "INBOX", Name: "INBOX"},
		{Id: "SENT", Name: "SENT"},
		{Id: "STARRED", Name: "STARRED"},
		{Id: "Label_1", Name: "My Project"},
	}

	got := map[string]string{}
	for _, f := range NormalizeFolders(labels) {
		got[f.ID] = f.Name
	}

	want := map[string]string{
		"INBOX":   "Inbox",
		"SENT":    "Sent",
		"STARRED": "Starred",
		"Label_1": "My Project",
	}
	for id, name := range want {
		if got[id] != name {
			t.Errorf("folder %s name = %q, want %q", id, got[id], name)
		}
	}
}

func TestNormalizeFoldersSkipsInvalidLabels(t *testing.T) {
	labels := []*gmail.Label{
		nil,
		{Id: "", Name: "nameless"},
		{Id: "Label_1", Name: ""},
		{Id: "Label_2", Name: "Valid"},
	}
	folders := NormalizeFolders(labels)
	if len(folders) != 1 || folders[0].ID != "Label_2" {
		t.Fatalf("expected only Label_2, got %+v", folders)
	}
}
