package model

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// Slugify turns a display name into a URL path segment.
// Non-ASCII letters are transliterated; runs of anything else collapse to one hyphen.
func Slugify(name string) string {
	ascii := strings.ToLower(unidecode.Unidecode(name))

	var b strings.Builder
	pendingDash := false
	for _, r := range ascii {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingDash = false
			continue
		}
		pendingDash = true
	}
	return b.String()
}
