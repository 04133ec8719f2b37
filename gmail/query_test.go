package gmail

import "testing"

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name       string
		dateFrom   string
		folderID   string
		nameFilter string
		want       string
	}{
		{
			name:     "date and folder only",
			dateFrom: "2024-01-15",
			folderID: "INBOX",
			want:     "has:attachment after:2024/01/15 label:INBOX",
		},
		{
			name:       "single keyword",
			dateFrom:   "2024-01-15",
			folderID:   "INBOX",
			nameFilter: "invoice",
			want:       "has:attachment after:2024/01/15 label:INBOX (filename:invoice)",
		},
		{
			name:       "multiple keywords become an OR group",
			dateFrom:   "2023-06-01",
			folderID:   "Label_42",
			nameFilter: "invoice report",
			want:       "has:attachment after:2023/06/01 label:Label_42 (filename:invoice OR filename:report)",
		},
		{
			name:       "whitespace only filter is ignored",
			dateFrom:   "2024-01-15",
			folderID:   "INBOX",
			nameFilter: "   ",
			want:       "has:attachment after:2024/01/15 label:INBOX",
		},
		{
			name: "everything empty still requires an attachment",
			want: "has:attachment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildQuery(tt.dateFrom, tt.folderID, tt.nameFilter)
			if got != tt.want {
				t.Errorf("BuildQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}
