package utils

import (
	"regexp"
	"strings"
)

var (
	unsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)
	underscoreRuns      = regexp.MustCompile(`_+`)
)

const maxFilenameLength = 100

// SanitizeFilename makes a lead name or campaign ID safe to use as a
// filename component. Unsafe characters become underscores, runs collapse,
// and the result is capped at 100 bytes.
func SanitizeFilename(name string) string {
	s := unsafeFilenameChars.ReplaceAllString(name, "_")
	s = underscoreRuns.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_ ")
	if len(s) > maxFilenameLength {
		s = s[:maxFilenameLength]
		s = strings.Trim(s, "_ ")
	}
	if s == "" {
		return "untitled"
	}
	return s
}
