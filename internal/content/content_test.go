package content

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormedLecture = `<div id="lecture_20240101_120000" class="lecture-content" data-unit="unit1">
<h1>Separable Equations</h1>
<p>Solve \( y' = xy \).</p>
</div>`

func TestSanitizeStripsFencedBlock(t *testing.T) {
	assert.Equal(t, "<div>A</div>", Sanitize("```html\n<div>A</div>\n```"))
	assert.Equal(t, "<div>A</div>", Sanitize("  ```\n<div>A</div>```  "))
	assert.Equal(t, "<p>x</p>", Sanitize("`<p>x</p>`"))
}

func TestSanitizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain text",
		"```html\n<div>A</div>\n```",
		"``````html\n<div>B</div>\n`````` ` ",
		"Here you go:\n```html\n" + wellFormedLecture + "\n```\nLet me know!",
		"`` ` ``",
		wellFormedLecture,
	}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)

		strict := SanitizeStrict(in)
		assert.Equal(t, strict, SanitizeStrict(strict), "strict input %q", in)
	}
}

func TestSanitizeStrictDropsPreambleAndEpilogue(t *testing.T) {
	raw := "Sure! Here is the lecture:\n```html\n" + wellFormedLecture + "\n```\nI hope this helps."
	assert.Equal(t, wellFormedLecture, SanitizeStrict(raw))
}

func TestSanitizeStrictWithoutContainerKeepsText(t *testing.T) {
	assert.Equal(t, "<p>no container</p>", SanitizeStrict("```\n<p>no container</p>\n```"))
}

func TestSanitizeStrictWithoutContainerDropsEpilogue(t *testing.T) {
	raw := "```html\n<div class=\"notes\"><p>custom</p></div>\n```\nHope this helps!"
	assert.Equal(t, `<div class="notes"><p>custom</p></div>`, SanitizeStrict(raw))
	assert.False(t, HasLectureContainer(SanitizeStrict(raw)))
	assert.True(t, HasLectureContainer(wellFormedLecture))
}

func TestValidateFlagsMissingContainer(t *testing.T) {
	report := Validate("<h1>T</h1>")
	assert.False(t, report.IsValid)
	assert.Contains(t, report.Issues, "Missing lecture-content container")
	assert.Contains(t, report.Issues, "No mathematical content detected - might be missing LaTeX formatting")
	assert.NotContains(t, report.Issues, "Missing main title (h1)")
}

func TestValidateAcceptsWellFormedFragment(t *testing.T) {
	report := Validate(wellFormedLecture)
	assert.True(t, report.IsValid)
	assert.Empty(t, report.Issues)
}

func TestValidateRejectsMalformedID(t *testing.T) {
	report := Validate(`<div id="lecture_2024_12" class="lecture-content"><h1>T</h1>\[ x \]</div>`)
	assert.Equal(t, []string{"Missing or invalid lecture ID format"}, report.Issues)
}

func TestLectureIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^lecture_\d{8}_\d{6}$`)

	gen := NewIDGenerator(nil)
	for i := 0; i < 3; i++ {
		assert.Regexp(t, pattern, gen.Next())
	}
	assert.Equal(t, "lecture_20240305_070809",
		NewLectureID(time.Date(2024, 3, 5, 7, 8, 9, 500, time.UTC)))
}

func TestIDGeneratorNeverRepeats(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	gen := NewIDGenerator(func() time.Time { return fixed })

	assert.Equal(t, "lecture_20240101_120000", gen.Next())
	assert.Equal(t, "lecture_20240101_120001", gen.Next())
	assert.Equal(t, "lecture_20240101_120002", gen.Next())
}

func TestStampIdentityRewritesContainer(t *testing.T) {
	stamped, changed := StampIdentity(wellFormedLecture, "lecture_20240301_100001", "unit3")
	assert.True(t, changed)
	md := ExtractMetadata(stamped)
	assert.Equal(t, "lecture_20240301_100001", md.ID)
	assert.Equal(t, "unit3", md.Unit)
	assert.Contains(t, stamped, `<div id="lecture_20240301_100001" class="lecture-content" data-unit="unit3">`)
	assert.Contains(t, stamped, "<h1>Separable Equations</h1>")

	same, changed := StampIdentity(stamped, "lecture_20240301_100001", "unit3")
	assert.False(t, changed)
	assert.Equal(t, stamped, same)
}

func TestStampIdentityAddsMissingAttributes(t *testing.T) {
	in := "<section><div data-id=\"x\"></div></section>\n<div class=\"lecture-content\"><h1>T</h1></div>"
	stamped, changed := StampIdentity(in, "lecture_20240301_100000", "unit2")
	require.True(t, changed)
	assert.Contains(t, stamped, `<div data-id="x"></div>`, "only the lecture container is touched")
	assert.Contains(t, stamped, `<div data-unit="unit2" id="lecture_20240301_100000" class="lecture-content">`)
	assert.NotContains(t, Validate(stamped).Issues, "Missing or invalid lecture ID format")
}

func TestStampIdentityWithoutContainer(t *testing.T) {
	stamped, changed := StampIdentity("<p>plain</p>", "lecture_20240301_100000", "unit1")
	assert.False(t, changed)
	assert.Equal(t, "<p>plain</p>", stamped)
}

func TestExtractMetadata(t *testing.T) {
	md := ExtractMetadata(`<div id="lecture_20240101_120000" class="lecture-content" data-unit="unit2"><h1>Title</h1><h2>A</h2><h2>B</h2></div>`)
	assert.Equal(t, Metadata{
		ID:           "lecture_20240101_120000",
		Unit:         "unit2",
		Title:        "Title",
		SectionCount: 2,
	}, md)
}

func TestExtractMetadataDefaultsAndFlags(t *testing.T) {
	md := ExtractMetadata(`<div class="lecture-content">
<div class="example">e</div><div class="solution">s</div>
<div class="definition">d</div><div class="theorem">t</div>
<div class="math-display numbered">\[ x \]</div></div>`)

	assert.Equal(t, "", md.ID)
	assert.Equal(t, DefaultUnit, md.Unit)
	assert.Equal(t, UntitledLecture, md.Title)
	assert.Zero(t, md.SectionCount)
	assert.True(t, md.HasExamples)
	assert.True(t, md.HasSolutions)
	assert.True(t, md.HasDefinitions)
	assert.True(t, md.HasTheorems)
	assert.True(t, md.HasMathDisplay)
}

func TestIndentFormatter(t *testing.T) {
	in := `<div id="lecture_20240101_120000" class="lecture-content" data-unit="unit1">
<h1>Title</h1>
<p>Intro</p> <div class="example">
<p>Example body</p>



</div><div class="math-display">
\[ x^2 \]
</div>
<hr class="section-divider">
<p>After</p>
</div>`

	want := `<div id="lecture_20240101_120000" class="lecture-content" data-unit="unit1">
  <h1>Title</h1>
  <p>Intro</p>
  <div class="example">
    <p>Example body</p>

  </div>
  <div class="math-display">
    \[ x^2 \]
  </div>
  <hr class="section-divider">
  <p>After</p>
</div>`

	f := IndentFormatter{}
	got := f.Format(in)
	assert.Equal(t, want, got)
	assert.Equal(t, got, f.Format(got), "formatting must be idempotent")
}

func TestIndentFormatterNeverGoesNegative(t *testing.T) {
	got := IndentFormatter{Indent: "\t"}.Format("</div>\n</div>\n<p>x</p>")
	assert.Equal(t, "</div>\n</div>\n<p>x</p>", got)
}

func TestDefaultUnits(t *testing.T) {
	units := DefaultUnits()
	require.Len(t, units, 6)
	assert.Equal(t, "unit1", units[0].ID)
	assert.True(t, units.Contains("unit6"))
	assert.False(t, units.Contains("unit7"))
}

func TestParseUnitsRejectsDuplicates(t *testing.T) {
	_, err := ParseUnits([]byte("units:\n  - id: a\n  - id: a\n"))
	assert.Error(t, err)

	_, err = ParseUnits([]byte("units: []\n"))
	assert.Error(t, err)
}

func TestParseCatalog(t *testing.T) {
	store := `<div id="lecture_20240101_120000" class="lecture-content" data-unit="unit2">
  <h1>Euler's Method</h1>
  <h2>Step size</h2>
</div>

<!-- =============== NEW LECTURE =============== -->

<div id="lecture_20240102_120000" class="lecture-content">
  <h2>Only <em>subtitle</em></h2>
</div>
<div id="lecture_20240103_120000" class="lecture-content" data-unit="unit9"></div>`

	catalog, err := ParseCatalog(store, DefaultUnits())
	require.NoError(t, err)

	assert.Equal(t, []LectureSummary{
		{ID: "lecture_20240101_120000", Title: "Euler's Method", Unit: "unit2"},
		{ID: "lecture_20240102_120000", Title: "Only subtitle", Unit: "unit1"},
		{ID: "lecture_20240103_120000", Title: "lecture_20240103_120000", Unit: "unit9"},
	}, catalog.Lectures)

	require.Len(t, catalog.Units, 6)
	assert.Len(t, catalog.Units[0].Lectures, 1)
	assert.Len(t, catalog.Units[1].Lectures, 1)
	assert.Empty(t, catalog.Units[2].Lectures)
}

func TestFindLecture(t *testing.T) {
	store := wellFormedLecture + "\n<!-- sep -->\n" +
		`<div id="lecture_20240102_090000" class="lecture-content"><h1>Second</h1></div>`

	body, ok, err := FindLecture(store, "lecture_20240102_090000")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "<h1>Second</h1>", body)

	_, ok, err = FindLecture(store, "lecture_19990101_000000")
	require.NoError(t, err)
	assert.False(t, ok)
}
