// Package outline builds blog post scaffolds: a URL slug, search snippet
// metadata and a sectioned outline with writing prompts, rendered as
// Markdown.
package outline

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/nao1215/markdown"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/conneroisu/toolshed/internal/errors"
)

const (
	MetaTitleLimit       = 60
	MetaDescriptionLimit = 160
	maxTitleRunes        = 200
	maxSections          = 20
	maxKeywords          = 10
)

// Request is the input of the outline tool.
type Request struct {
	Title    string   `json:"title" yaml:"title"`
	Keywords []string `json:"keywords" yaml:"keywords"`
	Sections []string `json:"sections" yaml:"sections"`
	Audience string   `json:"audience" yaml:"audience"`
}

// Section is one H2 of the outline.
type Section struct {
	Heading string   `json:"heading" yaml:"heading"`
	Prompts []string `json:"prompts" yaml:"prompts"`
}

// Outline is a generated post scaffold.
type Outline struct {
	Title           string    `json:"title" yaml:"title"`
	Slug            string    `json:"slug" yaml:"slug"`
	MetaTitle       string    `json:"meta_title" yaml:"meta_title"`
	MetaDescription string    `json:"meta_description" yaml:"meta_description"`
	Keywords        []string  `json:"keywords" yaml:"keywords"`
	Audience        string    `json:"audience" yaml:"audience"`
	Sections        []Section `json:"sections" yaml:"sections"`
}

// Build validates req and produces an outline.
func Build(req Request) (*Outline, error) {
	title := strings.Join(strings.Fields(req.Title), " ")
	if title == "" {
		return nil, errors.Invalid("title is required").WithTool("outline")
	}
	if len([]rune(title)) > maxTitleRunes {
		return nil, errors.Invalid("title must be at most %d characters", maxTitleRunes).WithTool("outline")
	}
	if len(req.Sections) > maxSections {
		return nil, errors.Invalid("at most %d sections are allowed", maxSections).WithTool("outline")
	}

	slug := Slugify(title)
	if slug == "" {
		return nil, errors.Invalid("title must contain letters or digits").WithTool("outline")
	}

	keywords := normalizeKeywords(req.Keywords)
	audience := strings.TrimSpace(req.Audience)
	if audience == "" {
		audience = "beginners"
	}

	o := &Outline{
		Title:     title,
		Slug:      slug,
		MetaTitle: Truncate(title, MetaTitleLimit),
		Keywords:  keywords,
		Audience:  audience,
	}
	o.MetaDescription = Truncate(description(title, keywords, audience), MetaDescriptionLimit)
	o.Sections = sections(req.Sections, primaryTopic(title, keywords), audience)

	return o, nil
}

func normalizeKeywords(in []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, k := range in {
		k = strings.ToLower(strings.Join(strings.Fields(k), " "))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

func primaryTopic(title string, keywords []string) string {
	if len(keywords) > 0 {
		return keywords[0]
	}
	return strings.ToLower(title)
}

func description(title string, keywords []string, audience string) string {
	d := title + "."
	if len(keywords) > 0 {
		d += " Covers " + strings.Join(keywords, ", ") + "."
	}
	return d + " A practical guide for " + audience + "."
}

func sections(headings []string, topic, audience string) []Section {
	var cleaned []string
	for _, h := range headings {
		if h = strings.TrimSpace(h); h != "" {
			cleaned = append(cleaned, h)
		}
	}
	if len(cleaned) == 0 {
		cleaned = []string{
			"Introduction",
			"What is " + topic + "?",
			"Why " + topic + " matters",
			"Getting started",
			"Common mistakes",
			"Conclusion",
		}
	}

	out := make([]Section, len(cleaned))
	for i, h := range cleaned {
		out[i] = Section{Heading: h, Prompts: prompts(i, len(cleaned), topic, audience)}
	}
	return out
}

func prompts(i, n int, topic, audience string) []string {
	switch {
	case i == 0:
		return []string{
			fmt.Sprintf("Open with the problem %s face that %s solves.", audience, topic),
			"State what the reader will be able to do by the end.",
		}
	case i == n-1:
		return []string{
			"Summarise the key takeaways in two or three sentences.",
			"End with one concrete next step.",
		}
	default:
		return []string{
			fmt.Sprintf("Explain this part of %s in plain terms.", topic),
			"Add one example or screenshot.",
		}
	}
}

// Slugify lowercases s, strips accents and joins alphanumeric runs with
// hyphens.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingHyphen = false
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// Truncate shortens s to at most limit runes, cutting at a word boundary
// and appending an ellipsis when anything was removed.
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}

	cut := string(r[:limit-1])
	if r[limit-1] != ' ' {
		if i := strings.LastIndexByte(cut, ' '); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimRight(cut, " ,.;:-") + "…"
}

// Markdown renders the outline as a Markdown document.
func (o *Outline) Markdown(w io.Writer) error {
	md := markdown.NewMarkdown(w)

	md.H1(o.Title)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Field", "Value"},
		Rows: [][]string{
			{"Slug", "`" + o.Slug + "`"},
			{"Meta title", o.MetaTitle},
			{"Meta description", o.MetaDescription},
			{"Keywords", strings.Join(o.Keywords, ", ")},
			{"Audience", o.Audience},
		},
	})
	md.PlainText("")

	for _, s := range o.Sections {
		md.H2(s.Heading)
		md.BulletList(s.Prompts...)
		md.PlainText("")
	}

	return md.Build()
}
