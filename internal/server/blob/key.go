package blob

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// KeyPrefix is the top-level directory of every attachment key.
const KeyPrefix = "task-attachments"

const (
	maxFilenameLen  = 200
	defaultFilename = "attachment.pdf"
)

// newKeyID is a seam for tests.
var newKeyID = func() string { return uuid.NewString() }

// NewStorageKey returns a fresh key of the form
// task-attachments/YYYY/MM/DD/<uuid>/<filename>. The last segment is the
// sanitized client filename so it can be shown back to the user.
func NewStorageKey(now time.Time, filename string) string {
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s/%s",
		KeyPrefix, now.Year(), now.Month(), now.Day(), newKeyID(), SanitizeFilename(filename))
}

// SanitizeFilename strips any directory part and replaces characters that are
// unsafe in object keys or on disk. Letters and digits of any script are kept.
// The result is at most maxFilenameLen bytes, cut on a rune boundary from the
// front so the extension survives.
func SanitizeFilename(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == utf8.RuneError || unicode.IsControl(r):
			// dropped
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_' || r == ' ' || r == '(' || r == ')':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(strings.TrimSpace(b.String()), ".")
	if len(out) > maxFilenameLen {
		cut := len(out) - maxFilenameLen
		for cut < len(out) && !utf8.RuneStart(out[cut]) {
			cut++
		}
		out = strings.TrimSpace(out[cut:])
	}
	if out == "" {
		return defaultFilename
	}
	return out
}
