package project

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// slugTransform decomposes to NFKD, strips combining marks, and
// recomposes, so "Café" and "Cafe" slug identically.
var slugTransform = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify derives a filesystem-safe directory name from a project name:
// diacritics stripped, lowercased, runs of non-alphanumerics collapsed
// to a single dash. Never returns an empty string.
func Slugify(name string) string {
	normalized, _, err := transform.String(slugTransform, name)
	if err != nil {
		normalized = name
	}

	var b strings.Builder
	dash := true
	for _, r := range strings.ToLower(normalized) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "project"
	}
	return slug
}
