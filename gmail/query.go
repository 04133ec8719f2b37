package gmail

import "strings"

// BuildQuery composes the Gmail search expression for a sync run:
// has:attachment, a date lower bound, the configured folder label and,
// when a keyword filter is set, an OR-group of filename clauses.
//
// dateFrom is the stored YYYY-MM-DD preference; Gmail expects YYYY/MM/DD.
func BuildQuery(dateFrom, folderID, nameFilter string) string {
	var sb strings.Builder
	sb.WriteString("has:attachment")

	if dateFrom != "" {
		sb.WriteString(" after:")
		sb.WriteString(strings.ReplaceAll(dateFrom, "-", "/"))
	}
	if folderID != "" {
		sb.WriteString(" label:")
		sb.WriteString(folderID)
	}

	keywords := strings.Fields(nameFilter)
	if len(keywords) > 0 {
		sb.WriteString(" (")
		for i, kw := range keywords {
			if i > 0 {
				sb.WriteString(" OR ")
			}
			sb.WriteString("filename:")
			sb.WriteString(kw)
		}
		sb.WriteString(")")
	}

	return sb.String()
}
