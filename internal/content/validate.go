package content

import (
	"regexp"
	"strings"
)

// ContainerClass is the class attribute every lecture fragment carries.
const ContainerClass = `class="lecture-content"`

var (
	lectureIDAttrRegex = regexp.MustCompile(`id="lecture_\d{8}_\d{6}"`)
	h1OpenRegex        = regexp.MustCompile(`<h1[\s>]`)
)

// ValidationReport is the advisory result of Validate. It never blocks the
// pipeline; callers log the issues and move on.
type ValidationReport struct {
	IsValid bool     `json:"isValid"`
	Issues  []string `json:"issues"`
}

// Validate runs the structural heuristics over a lecture fragment.
func Validate(html string) ValidationReport {
	issues := []string{}

	if !strings.Contains(html, ContainerClass) {
		issues = append(issues, "Missing lecture-content container")
	}
	if !lectureIDAttrRegex.MatchString(html) {
		issues = append(issues, "Missing or invalid lecture ID format")
	}
	if !h1OpenRegex.MatchString(html) {
		issues = append(issues, "Missing main title (h1)")
	}

	hasInlineMath := strings.Contains(html, `\(`) && strings.Contains(html, `\)`)
	hasBlockMath := strings.Contains(html, `\[`) && strings.Contains(html, `\]`)
	if !hasInlineMath && !hasBlockMath {
		issues = append(issues, "No mathematical content detected - might be missing LaTeX formatting")
	}

	return ValidationReport{
		IsValid: len(issues) == 0,
		Issues:  issues,
	}
}
