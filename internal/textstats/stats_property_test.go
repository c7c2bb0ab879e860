//go:build property
// +build property

package textstats

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestFleschProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("longer sentences never read easier", prop.ForAll(
		func(asl, extra, asw float64) bool {
			return Flesch(asl+extra, asw) <= Flesch(asl, asw)
		},
		gen.Float64Range(1, 60),
		gen.Float64Range(0, 30),
		gen.Float64Range(1, 4),
	))

	properties.Property("more syllables per word never read easier", prop.ForAll(
		func(asl, asw, extra float64) bool {
			return Flesch(asl, asw+extra) <= Flesch(asl, asw)
		},
		gen.Float64Range(1, 60),
		gen.Float64Range(1, 4),
		gen.Float64Range(0, 2),
	))

	properties.Property("score stays within bounds", prop.ForAll(
		func(asl, asw float64) bool {
			s := Flesch(asl, asw)
			return s >= 0 && s <= 100
		},
		gen.Float64Range(0, 200),
		gen.Float64Range(0, 10),
	))

	properties.TestingRun(t)
}

func TestAnalyzeProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("word count matches joined words", prop.ForAll(
		func(words []string) bool {
			return Analyze(strings.Join(words, " ")).Words == len(words)
		},
		gen.SliceOf(gen.RegexMatch(`^[a-z]{1,10}$`)),
	))

	properties.Property("every word has at least one syllable", prop.ForAll(
		func(word string) bool {
			return CountSyllables(word) >= 1
		},
		gen.RegexMatch(`^[a-z]{1,15}$`),
	))

	properties.TestingRun(t)
}
