package services

import (
	"fmt"
	"strings"
)

// stage1PromptTemplate asks for a complete transcription. Arguments: id, unit,
// title, id.
const stage1PromptTemplate = `Convert the attached PDF lecture into well-structured HTML while keeping full academic rigor.

**PRIMARY OBJECTIVES:**
1. **Complete Fidelity**: Transcribe ALL content without omission or paraphrasing
2. **Mathematical Accuracy**: Convert all mathematical notation to proper LaTeX
3. **Educational Structure**: Organize content for optimal student comprehension
4. **Logical Flow**: Ensure concepts build systematically

**TRANSCRIPTION STANDARDS:**
- Inline math: \(expression\) for variables and short formulas
- Block equations: \[expression\] for major equations and derivations
- Main topics: <h2>; subtopics: <h3>
- Definitions: <div class="definition">
- Theorems: <div class="theorem">
- Examples: <div class="example">
- Solutions: <div class="solution"> with every working step
- Key formulas: <div class="formula">
- Methods and procedures: <div class="method">
- Keep the instructor's teaching sequence and original problem numbering

**HTML OUTPUT STRUCTURE:**
<div id="%s" class="lecture-content" data-unit="%s">
   <h1>%s</h1>
   [SYSTEMATICALLY ORGANIZED CONTENT]
</div>

**CRITICAL REQUIREMENTS:**
- Output ONLY the HTML container with content
- NO explanatory text, commentary or markdown fences
- Use the exact ID provided: %s
`

// stage2PromptTemplate asks for a pedagogical restructuring of the stage-1
// output. Arguments: id, unit, id, stage-1 HTML.
const stage2PromptTemplate = `Transform the provided lecture HTML into a pedagogically superior format that improves comprehension and retention.

**FORMATTING SPECIFICATIONS:**
- <h1>: lecture title; <h2>: major topics; <h3>: key concepts; <h4>: supporting details
- Containers: <div class="definition">, <div class="theorem">, <div class="formula">, <div class="example">, <div class="solution">, <div class="method">
- Inline math stays \(expression\); block equations go in <div class="math-display">\[expression\]</div>
- Use <div class="math-display numbered"> for equations referenced later
- Use <div class="step"> for solution steps and <div class="highlight"> for key takeaways
- Separate major topics with <hr class="section-divider">

**CONTENT PRESERVATION RULES:**
- Do NOT remove, summarize or shorten any content
- Maintain ALL mathematical content exactly as transcribed
- Preserve the instructor's teaching sequence, numerical examples and their solutions

**OUTPUT REQUIREMENTS:**
<div id="%s" class="lecture-content" data-unit="%s">
   [PEDAGOGICALLY ENHANCED CONTENT]
</div>

**CONSTRAINTS:**
- Use the exact ID provided: %s
- Output ONLY the enhanced HTML container
- NO additional explanations, meta-commentary or markdown fences

CONTENT TO ENHANCE:
%s
`

// buildStage1Prompt returns the caller's prompt verbatim when one was given,
// and the default transcription directive otherwise.
func buildStage1Prompt(custom, lectureID, unit, title string) string {
	if strings.TrimSpace(custom) != "" {
		return custom
	}
	return fmt.Sprintf(stage1PromptTemplate, lectureID, unit, title, lectureID)
}

func buildStage2Prompt(lectureID, unit, stage1HTML string) string {
	return fmt.Sprintf(stage2PromptTemplate, lectureID, unit, lectureID, stage1HTML)
}
