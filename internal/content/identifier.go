package content

import (
	"regexp"
	"strings"
	"sync"
	"time"
)

// LectureIDPrefix prefixes every generated lecture identifier.
const LectureIDPrefix = "lecture_"

const lectureIDLayout = "20060102_150405"

// NewLectureID formats t as lecture_YYYYMMDD_HHMMSS.
func NewLectureID(t time.Time) string {
	return LectureIDPrefix + t.Format(lectureIDLayout)
}

// IDGenerator hands out lecture identifiers from a clock. Within one process
// it never returns the same identifier twice: when two calls land in the same
// second the later one is moved forward to the next free second.
type IDGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewIDGenerator returns a generator reading the given clock, or the wall
// clock when now is nil.
func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

// Next returns the next lecture identifier.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	t := g.now().Truncate(time.Second)
	if !g.last.IsZero() && !t.After(g.last) {
		t = g.last.Add(time.Second)
	}
	g.last = t
	return NewLectureID(t)
}

var (
	divOpenRegex  = regexp.MustCompile(`<div\b[^>]*>`)
	idAttrRegex   = regexp.MustCompile(`\sid="[^"]*"`)
	unitAttrRegex = regexp.MustCompile(`\sdata-unit="[^"]*"`)
)

// StampIdentity sets the id and data-unit attributes of the first lecture
// container in html. Models sometimes echo an id from an earlier prompt, and
// the store relies on every container carrying the id it was assigned. The
// second result reports whether the tag changed.
func StampIdentity(html, id, unit string) (string, bool) {
	for _, loc := range divOpenRegex.FindAllStringIndex(html, -1) {
		tag := html[loc[0]:loc[1]]
		if !strings.Contains(tag, "lecture-content") && !strings.Contains(tag, `id="`+LectureIDPrefix) {
			continue
		}
		stamped := setAttr(tag, idAttrRegex, "id", id)
		stamped = setAttr(stamped, unitAttrRegex, "data-unit", unit)
		if stamped == tag {
			return html, false
		}
		return html[:loc[0]] + stamped + html[loc[1]:], true
	}
	return html, false
}

// setAttr replaces the attribute matched by re in an opening tag, or adds it
// right after the tag name.
func setAttr(tag string, re *regexp.Regexp, name, value string) string {
	attr := name + `="` + value + `"`
	if loc := re.FindStringIndex(tag); loc != nil {
		// Keep the whitespace the match starts with.
		return tag[:loc[0]+1] + attr + tag[loc[1]:]
	}
	return "<div " + attr + tag[len("<div"):]
}
