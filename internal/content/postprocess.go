package content

import (
	"regexp"
	"strings"
)

// Formatter reflows generated lecture HTML before it is written to the
// store. Implementations must not change how the fragment renders.
type Formatter interface {
	Format(html string) string
}

// containerOpenRegex matches the opening tags that should always start a
// line of their own.
var containerOpenRegex = regexp.MustCompile(
	`<div class="(?:math-display|example|solution|definition|theorem|method|formula)(?:\s[^"]*)?">`,
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "source": true,
	"track": true, "wbr": true,
}

// IndentFormatter is a line based formatter driven by a tag depth counter.
// It is not an HTML parser: a line that opens one element and closes another
// is treated as balanced.
type IndentFormatter struct {
	// Indent is repeated once per nesting level. Two spaces when empty.
	Indent string
}

// Format implements Formatter. Formatting formatted output is a no-op.
func (f IndentFormatter) Format(html string) string {
	indent := f.Indent
	if indent == "" {
		indent = "  "
	}

	lines := strings.Split(breakBeforeContainers(html), "\n")
	out := make([]string, 0, len(lines))
	depth := 0
	blank := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			// Runs of blank lines collapse to a single one.
			if len(out) > 0 && !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false

		if strings.HasPrefix(trimmed, "</") {
			depth = max(0, depth-1)
		}
		out = append(out, strings.Repeat(indent, depth)+trimmed)
		if opensElement(trimmed) {
			depth++
		}
	}

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

// breakBeforeContainers inserts a line break in front of every container
// opening tag that does not already begin its line.
func breakBeforeContainers(html string) string {
	matches := containerOpenRegex.FindAllStringIndex(html, -1)
	if len(matches) == 0 {
		return html
	}

	var b strings.Builder
	b.Grow(len(html) + len(matches))
	prev := 0
	for _, m := range matches {
		start := m[0]
		lineStart := strings.LastIndexByte(html[:start], '\n') + 1
		b.WriteString(html[prev:start])
		if strings.TrimSpace(html[lineStart:start]) != "" {
			b.WriteByte('\n')
		}
		prev = start
	}
	b.WriteString(html[prev:])
	return b.String()
}

// opensElement reports whether a trimmed line leaves an element open.
func opensElement(line string) bool {
	if !strings.HasPrefix(line, "<") ||
		strings.HasPrefix(line, "</") ||
		strings.HasPrefix(line, "<!") ||
		strings.HasSuffix(line, "/>") ||
		strings.Contains(line, "</") {
		return false
	}
	return !voidElements[tagName(line)]
}

func tagName(line string) string {
	name := line[1:]
	for i, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			name = name[:i]
			break
		}
	}
	return strings.ToLower(name)
}
