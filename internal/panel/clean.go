package panel

import (
	"regexp"
	"strings"
)

// Bullet is the glyph that replaces markdown list markers.
const Bullet = "•"

var (
	boldMarker   = strings.NewReplacer("**", "")
	bulletMarker = regexp.MustCompile(`(?m)^[ \t]*[*-][ \t]+`)
)

// Clean strips markdown bold delimiters, turns leading "*" or "-" list
// markers into a bullet glyph and trims the result. It is total and
// idempotent.
func Clean(s string) string {
	s = boldMarker.Replace(s)
	// Trim before matching so the first line is seen at column zero even when
	// it was preceded by whitespace the regexp does not treat as indentation.
	s = strings.TrimSpace(s)
	s = bulletMarker.ReplaceAllString(s, Bullet+" ")
	return strings.TrimSpace(s)
}
