package content

import (
	"regexp"
	"strings"
)

// codeFenceRegex matches a markdown code fence, optionally language tagged,
// together with the line break that follows it.
var codeFenceRegex = regexp.MustCompile("```[A-Za-z0-9_+-]*[ \\t]*\\r?\\n?")

// lectureOpenRegex locates the opening tag of a lecture container.
var lectureOpenRegex = regexp.MustCompile(`<div\b[^>]*\bid="lecture_`)

const closingDiv = "</div>"

// Sanitize strips markdown fencing and stray backticks from a model reply.
// Applying it to its own output returns the output unchanged.
func Sanitize(raw string) string {
	cleaned := raw
	for {
		next := codeFenceRegex.ReplaceAllString(cleaned, "")
		next = strings.Trim(next, "` \t\r\n")
		if next == cleaned {
			return cleaned
		}
		cleaned = next
	}
}

// SanitizeStrict runs Sanitize and then discards anything before the first
// lecture container opening and after the last closing div. Each cut is
// skipped when its marker is absent.
func SanitizeStrict(raw string) string {
	cleaned := Sanitize(raw)

	if loc := lectureOpenRegex.FindStringIndex(cleaned); loc != nil {
		cleaned = cleaned[loc[0]:]
	}
	if end := strings.LastIndex(cleaned, closingDiv); end != -1 {
		cleaned = cleaned[:end+len(closingDiv)]
	}
	return cleaned
}

// HasLectureContainer reports whether html opens a lecture container.
func HasLectureContainer(html string) bool {
	return lectureOpenRegex.MatchString(html)
}
