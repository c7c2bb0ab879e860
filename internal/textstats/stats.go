// Package textstats implements the word counter: character, word, sentence
// and paragraph counts, syllable estimates, Flesch reading ease, reading
// time and keyword density.
package textstats

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
)

const (
	readingWPM  = 200
	speakingWPM = 130
	maxKeywords = 10
)

// Stats is the result of analysing a piece of text.
type Stats struct {
	Characters          int           `json:"characters" yaml:"characters"`
	CharactersNoSpaces  int           `json:"characters_no_spaces" yaml:"characters_no_spaces"`
	Words               int           `json:"words" yaml:"words"`
	UniqueWords         int           `json:"unique_words" yaml:"unique_words"`
	Sentences           int           `json:"sentences" yaml:"sentences"`
	Paragraphs          int           `json:"paragraphs" yaml:"paragraphs"`
	Syllables           int           `json:"syllables" yaml:"syllables"`
	AvgWordsPerSentence float64       `json:"avg_words_per_sentence" yaml:"avg_words_per_sentence"`
	AvgSyllablesPerWord float64       `json:"avg_syllables_per_word" yaml:"avg_syllables_per_word"`
	ReadingEase         float64       `json:"reading_ease" yaml:"reading_ease"`
	ReadingLevel        string        `json:"reading_level" yaml:"reading_level"`
	ReadingTime         time.Duration `json:"reading_time" yaml:"reading_time"`
	SpeakingTime        time.Duration `json:"speaking_time" yaml:"speaking_time"`
	Keywords            []Keyword     `json:"keywords" yaml:"keywords"`
}

// Keyword is a frequent non stop-word.
type Keyword struct {
	Word    string  `json:"word" yaml:"word"`
	Count   int     `json:"count" yaml:"count"`
	Density float64 `json:"density" yaml:"density"`
}

// Analyze computes Stats for text.
func Analyze(text string) Stats {
	var s Stats

	for _, r := range text {
		s.Characters++
		if !unicode.IsSpace(r) {
			s.CharactersNoSpaces++
		}
	}

	words := Words(text)
	s.Words = len(words)
	if s.Words == 0 {
		s.ReadingLevel = ReadingLevel(0)
		return s
	}

	s.Sentences = CountSentences(text)
	s.Paragraphs = CountParagraphs(text)

	freq := make(map[string]int, len(words))
	for _, w := range words {
		lower := strings.ToLower(w)
		freq[lower]++
		s.Syllables += CountSyllables(lower)
	}
	s.UniqueWords = len(freq)

	s.AvgWordsPerSentence = float64(s.Words) / float64(s.Sentences)
	s.AvgSyllablesPerWord = float64(s.Syllables) / float64(s.Words)
	s.ReadingEase = round1(Flesch(s.AvgWordsPerSentence, s.AvgSyllablesPerWord))
	s.ReadingLevel = ReadingLevel(s.ReadingEase)
	s.ReadingTime = minutes(s.Words, readingWPM)
	s.SpeakingTime = minutes(s.Words, speakingWPM)
	s.Keywords = keywords(freq, s.Words)

	return s
}

// Words splits text into words: runs of letters, digits, apostrophes and
// inner hyphens.
func Words(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '’' || r == '-')
	})

	words := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, "-'’"); f != "" {
			words = append(words, f)
		}
	}
	return words
}

// CountSentences counts runs of terminal punctuation. Text without any
// terminator still counts as one sentence.
func CountSentences(text string) int {
	count := 0
	inTerminator := false
	sawContent := false

	for _, r := range text {
		switch r {
		case '.', '!', '?':
			if sawContent && !inTerminator {
				count++
			}
			inTerminator = true
			sawContent = false
		default:
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				sawContent = true
				inTerminator = false
			}
		}
	}

	if sawContent {
		count++
	}
	if count == 0 && strings.TrimSpace(text) != "" {
		count = 1
	}
	return count
}

// CountParagraphs counts blocks separated by blank lines.
func CountParagraphs(text string) int {
	count := 0
	for _, block := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if strings.TrimSpace(block) != "" {
			count++
		}
	}
	return count
}

// CountSyllables estimates syllables by counting vowel groups, dropping a
// silent trailing "e". Every word has at least one syllable.
func CountSyllables(word string) int {
	word = strings.ToLower(strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) }))
	if word == "" {
		return 0
	}

	count := 0
	prevVowel := false
	for _, r := range word {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}

	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") && count > 1 {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

// Flesch returns the Flesch reading ease for an average sentence length
// (words per sentence) and average syllables per word, clamped to [0, 100].
func Flesch(wordsPerSentence, syllablesPerWord float64) float64 {
	score := 206.835 - 1.015*wordsPerSentence - 84.6*syllablesPerWord
	return math.Max(0, math.Min(100, score))
}

// ReadingLevel names the band a Flesch score falls in.
func ReadingLevel(score float64) string {
	switch {
	case score >= 90:
		return "very easy"
	case score >= 80:
		return "easy"
	case score >= 70:
		return "fairly easy"
	case score >= 60:
		return "standard"
	case score >= 50:
		return "fairly difficult"
	case score >= 30:
		return "difficult"
	default:
		return "very difficult"
	}
}

func minutes(words, wpm int) time.Duration {
	return time.Duration(math.Ceil(float64(words)/float64(wpm)*60)) * time.Second
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func keywords(freq map[string]int, total int) []Keyword {
	out := make([]Keyword, 0, len(freq))
	for word, count := range freq {
		if len([]rune(word)) < 3 || isStopWord(word) {
			continue
		}
		out = append(out, Keyword{
			Word:    word,
			Count:   count,
			Density: round1(float64(count) / float64(total) * 100),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})

	if len(out) > maxKeywords {
		out = out[:maxKeywords]
	}
	return out
}

var stopWords = func() map[string]struct{} {
	m := make(map[string]struct{})
	for _, w := range strings.Fields(`a about above after again all also am an and any are as at be
		because been before being below between both but by can could did do does doing down
		during each few for from further had has have having he her here hers him his how i if
		in into is it its itself just me more most my no nor not now of off on once only or
		other our ours out over own same she should so some such than that the their theirs
		them then there these they this those through to too under until up very was we were
		what when where which while who whom why will with would you your yours`) {
		m[w] = struct{}{}
	}
	return m
}()

func isStopWord(w string) bool {
	_, ok := stopWords[w]
	return ok
}
