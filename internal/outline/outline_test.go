package outline

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/toolshed/internal/errors"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Hello, World!":              "hello-world",
		"  Crème brûlée   recipes ":  "creme-brulee-recipes",
		"Go 1.24 -- what's new?":     "go-1-24-what-s-new",
		"日本語":                        "",
		"already-a-slug":             "already-a-slug",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))

	out := Truncate("The quick brown fox jumps over the lazy dog", 20)
	assert.Equal(t, "The quick brown fox…", out)
	assert.LessOrEqual(t, utf8.RuneCountInString(out), 20)

	out = Truncate(strings.Repeat("a", 30), 10)
	assert.Equal(t, strings.Repeat("a", 9)+"…", out)
}

func TestBuildDefaults(t *testing.T) {
	o, err := Build(Request{
		Title:    "  Getting Started   with Test Card Numbers ",
		Keywords: []string{"Luhn Algorithm", "luhn algorithm", " test cards "},
	})
	require.NoError(t, err)

	assert.Equal(t, "Getting Started with Test Card Numbers", o.Title)
	assert.Equal(t, "getting-started-with-test-card-numbers", o.Slug)
	assert.Equal(t, []string{"luhn algorithm", "test cards"}, o.Keywords)
	assert.Equal(t, "beginners", o.Audience)
	assert.LessOrEqual(t, utf8.RuneCountInString(o.MetaTitle), MetaTitleLimit)
	assert.LessOrEqual(t, utf8.RuneCountInString(o.MetaDescription), MetaDescriptionLimit)
	assert.Contains(t, o.MetaDescription, "luhn algorithm, test cards")

	require.Len(t, o.Sections, 6)
	assert.Equal(t, "Introduction", o.Sections[0].Heading)
	assert.Equal(t, "What is luhn algorithm?", o.Sections[1].Heading)
	assert.Equal(t, "Conclusion", o.Sections[5].Heading)
	for _, s := range o.Sections {
		assert.NotEmpty(t, s.Prompts)
	}
}

func TestBuildCustomSections(t *testing.T) {
	o, err := Build(Request{Title: "Tips", Sections: []string{"One", " ", "Two"}, Audience: "developers"})
	require.NoError(t, err)

	require.Len(t, o.Sections, 2)
	assert.Contains(t, o.Sections[0].Prompts[0], "developers")
	assert.Contains(t, o.MetaDescription, "developers")
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(Request{Title: "   "})
	assert.True(t, errors.IsValidation(err))

	_, err = Build(Request{Title: "!!!"})
	assert.True(t, errors.IsValidation(err))

	_, err = Build(Request{Title: strings.Repeat("x", 201)})
	assert.True(t, errors.IsValidation(err))

	_, err = Build(Request{Title: "ok", Sections: make([]string, 21)})
	assert.True(t, errors.IsValidation(err))
}

func TestLongMetaDescription(t *testing.T) {
	o, err := Build(Request{
		Title:    strings.Repeat("Extremely long headline words ", 6),
		Keywords: []string{"first keyword", "second keyword", "third keyword"},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(o.MetaDescription, "…"))
	assert.LessOrEqual(t, utf8.RuneCountInString(o.MetaDescription), MetaDescriptionLimit)
	assert.LessOrEqual(t, utf8.RuneCountInString(o.MetaTitle), MetaTitleLimit)
}

func TestMarkdown(t *testing.T) {
	o, err := Build(Request{Title: "Word counts", Keywords: []string{"readability"}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, o.Markdown(&buf))

	out := buf.String()
	assert.Contains(t, out, "# Word counts")
	assert.Contains(t, out, "## Introduction")
	assert.Contains(t, out, "`word-counts`")
	assert.Contains(t, out, "- Summarise the key takeaways")
}
