package analysis

import (
	"regexp"
	"strings"
)

var headerPrefix = regexp.MustCompile(`(?m)^#+\s`)

// StripMarkdown removes emphasis markers, header hashes and code ticks from
// advisory text before display.
func StripMarkdown(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "*", "")
	s = headerPrefix.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "`", "")
	s = strings.ReplaceAll(s, "__", "")
	return s
}
