package generator

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/toolshed/internal/errors"
)

// Unit selects what Lorem counts.
type Unit string

const (
	UnitWords      Unit = "words"
	UnitSentences  Unit = "sentences"
	UnitParagraphs Unit = "paragraphs"
)

const loremOpening = "lorem ipsum dolor sit amet"

var loremWords = strings.Fields(`
	lorem ipsum dolor sit amet consectetur adipiscing elit sed do eiusmod
	tempor incididunt ut labore et dolore magna aliqua enim ad minim veniam
	quis nostrud exercitation ullamco laboris nisi aliquip ex ea commodo
	consequat duis aute irure in reprehenderit voluptate velit esse cillum
	eu fugiat nulla pariatur excepteur sint occaecat cupidatat non proident
	sunt culpa qui officia deserunt mollit anim id est laborum curabitur
	pretium tincidunt lacus nunc pulvinar sapien ligula vitae mauris
	integer posuere erat a ante venenatis dapibus rutrum`)

var titleCaser = cases.Title(language.Und)

// LoremOptions configures Lorem.
type LoremOptions struct {
	Unit Unit
	// Count of units to produce.
	Count int
	// StartWithLorem begins the text with the classic opening words.
	StartWithLorem bool
}

// Lorem produces placeholder text.
func (g *Generator) Lorem(opts LoremOptions) (string, error) {
	if err := checkCount(opts.Count); err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	switch opts.Unit {
	case UnitWords, "":
		words := g.words(opts.Count)
		if opts.StartWithLorem {
			words = withOpening(words)
		}
		return strings.Join(words, " "), nil
	case UnitSentences:
		sentences := make([]string, opts.Count)
		for i := range sentences {
			sentences[i] = g.sentence(i == 0 && opts.StartWithLorem)
		}
		return strings.Join(sentences, " "), nil
	case UnitParagraphs:
		paragraphs := make([]string, opts.Count)
		for i := range paragraphs {
			paragraphs[i] = g.paragraph(i == 0 && opts.StartWithLorem)
		}
		return strings.Join(paragraphs, "\n\n"), nil
	default:
		return "", errors.Invalid("unit must be words, sentences or paragraphs")
	}
}

func withOpening(words []string) []string {
	opening := strings.Fields(loremOpening)
	if len(words) <= len(opening) {
		return opening[:len(words)]
	}
	return append(opening, words[len(opening):]...)
}

func (g *Generator) words(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = g.pick(loremWords)
	}
	return out
}

// sentence has 4-12 words, a capitalised first word and a period.
func (g *Generator) sentence(opening bool) string {
	words := g.words(4 + g.intn(9))
	if opening {
		words = withOpening(words)
	}
	if len(words) > 6 && g.intn(3) == 0 {
		words[len(words)/2] += ","
	}
	words[0] = titleCaser.String(words[0])
	return strings.Join(words, " ") + "."
}

// paragraph has 3-6 sentences.
func (g *Generator) paragraph(opening bool) string {
	sentences := make([]string, 3+g.intn(4))
	for i := range sentences {
		sentences[i] = g.sentence(opening && i == 0)
	}
	return strings.Join(sentences, " ")
}
