package archive

import (
	"regexp"
	"strings"
)

// maxNameLen caps sanitized archive names so the .md suffix stays well
// under common filesystem limits.
const maxNameLen = 200

var (
	hostileChars = regexp.MustCompile(`[/\\:*?"<>|\x00-\x1f]`)
	nameRuns     = regexp.MustCompile(`[\s_]+`)
)

// SanitizeName derives a filesystem-safe archive name from a chat's display
// name. Hostile characters become underscores, whitespace/underscore runs
// collapse to one underscore, and leading/trailing underscores are trimmed.
func SanitizeName(name string) string {
	s := hostileChars.ReplaceAllString(name, "_")
	s = nameRuns.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > maxNameLen {
		s = s[:maxNameLen]
	}
	return s
}
