package content

import (
	"regexp"
	"strings"
)

const (
	// DefaultUnit is used whenever a fragment or request carries no unit.
	DefaultUnit = "unit1"
	// UntitledLecture is the title reported for fragments without an <h1>.
	UntitledLecture = "Untitled Lecture"
)

var (
	metaIDRegex    = regexp.MustCompile(`id="(lecture_\d{8}_\d{6})"`)
	metaUnitRegex  = regexp.MustCompile(`data-unit="([^"]+)"`)
	metaTitleRegex = regexp.MustCompile(`<h1[^>]*>([^<]+)</h1>`)
	metaH2Regex    = regexp.MustCompile(`<h2[\s>]`)
)

// Metadata summarises a finished lecture fragment.
type Metadata struct {
	ID             string `json:"id"`
	Unit           string `json:"unit"`
	Title          string `json:"title"`
	SectionCount   int    `json:"sectionCount"`
	HasExamples    bool   `json:"hasExamples"`
	HasSolutions   bool   `json:"hasSolutions"`
	HasDefinitions bool   `json:"hasDefinitions"`
	HasTheorems    bool   `json:"hasTheorems"`
	HasMathDisplay bool   `json:"hasMathDisplay"`
}

// ExtractMetadata pulls the identifying fields and content-type flags out of
// a fragment. Missing fields fall back to an empty id, DefaultUnit and
// UntitledLecture.
func ExtractMetadata(html string) Metadata {
	md := Metadata{
		Unit:  DefaultUnit,
		Title: UntitledLecture,
	}
	if m := metaIDRegex.FindStringSubmatch(html); m != nil {
		md.ID = m[1]
	}
	if m := metaUnitRegex.FindStringSubmatch(html); m != nil {
		md.Unit = m[1]
	}
	if m := metaTitleRegex.FindStringSubmatch(html); m != nil {
		if title := strings.TrimSpace(m[1]); title != "" {
			md.Title = title
		}
	}
	md.SectionCount = len(metaH2Regex.FindAllStringIndex(html, -1))

	md.HasExamples = strings.Contains(html, `class="example"`)
	md.HasSolutions = strings.Contains(html, `class="solution"`)
	md.HasDefinitions = strings.Contains(html, `class="definition"`)
	md.HasTheorems = strings.Contains(html, `class="theorem"`)
	md.HasMathDisplay = strings.Contains(html, `class="math-display`)
	return md
}
