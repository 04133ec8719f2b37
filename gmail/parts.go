package gmail

import (
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// Part is the validated attachment candidate extracted from a message part.
// Internal logic operates on this type only, never on raw API payloads.
type Part struct {
	Filename     string
	AttachmentID string
	MimeType     string
	Size         int64
}

// FlattenParts returns the leaf parts of a message part tree in document
// order. A part with children contributes its children's leaves; a part
// without children contributes itself. The traversal is iterative with an
// explicit stack so deeply nested payloads cannot exhaust the goroutine
// stack.
func FlattenParts(payload *gmail.MessagePart) []*gmail.MessagePart {
	if payload == nil {
		return nil
	}

	var leaves []*gmail.MessagePart
	stack := []*gmail.MessagePart{payload}
	for len(stack) > 0 {
		part := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if part == nil {
			continue
		}
		if len(part.Parts) == 0 {
			leaves = append(leaves, part)
			continue
		}
		// Push children in reverse so the leftmost child is visited first
		for i := len(part.Parts) - 1; i >= 0; i-- {
			stack = append(stack, part.Parts[i])
		}
	}
	return leaves
}

// CandidateParts filters flattened leaves down to attachment candidates:
// parts carrying both a filename and an attachment identifier.
func CandidateParts(payload *gmail.MessagePart) []Part {
	var candidates []Part
	for _, part := range FlattenParts(payload) {
		if part.Filename == "" || part.Body == nil || part.Body.AttachmentId == "" {
			continue
		}
		candidates = append(candidates, Part{
			Filename:     part.Filename,
			AttachmentID: part.Body.AttachmentId,
			MimeType:     part.MimeType,
			Size:         part.Body.Size,
		})
	}
	return candidates
}

// Extension returns the lower-cased substring after the final dot of a
// filename, or the empty string when the filename has no dot.
func Extension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

// MatchesFileType reports whether an extension satisfies the configured file
// type filter. The filter value "all" matches every candidate.
func MatchesFileType(extension, fileType string) bool {
	if fileType == "all" {
		return true
	}
	return extension == strings.ToLower(fileType)
}

// MatchesNameFilter reports whether a filename contains at least one of the
// whitespace-separated keywords, case-insensitively. An empty filter matches
// everything.
func MatchesNameFilter(filename, filter string) bool {
	keywords := strings.Fields(strings.ToLower(filter))
	if len(keywords) == 0 {
		return true
	}
	name := strings.ToLower(filename)
	for _, kw := range keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}
