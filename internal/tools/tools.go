// Package tools puts every micro-tool behind one request/response API so
// the HTTP handlers, the pages and the CLI share defaults and validation.
package tools

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/conneroisu/toolshed/internal/calc"
	"github.com/conneroisu/toolshed/internal/errors"
	"github.com/conneroisu/toolshed/internal/generator"
	"github.com/conneroisu/toolshed/internal/outline"
	"github.com/conneroisu/toolshed/internal/textstats"
)

// Tool slugs.
const (
	Luhn      = "luhn"
	Dates     = "dates"
	Lorem     = "lorem"
	Plates    = "plates"
	Numbers   = "numbers"
	WordCount = "wordcount"
	Outline   = "outline"
	Calc      = "calc"
)

// Info describes a tool for listings.
type Info struct {
	Slug        string `json:"slug" yaml:"slug"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Catalog lists the tools in display order.
var Catalog = []Info{
	{Luhn, "Credit card generator", "Luhn-valid test card numbers for common brands."},
	{Dates, "Date generator", "Random dates in a range, in several formats."},
	{Lorem, "Lorem ipsum", "Placeholder words, sentences or paragraphs."},
	{Plates, "Number plates", "Random UK, US or EU style registration plates."},
	{Numbers, "Random numbers", "Integers in a range, optionally unique and sorted."},
	{WordCount, "Word counter", "Counts, reading time and Flesch reading ease."},
	{Outline, "Blog outline", "Slug, meta tags and a section outline for a post."},
	{Calc, "Calculators", "BMI, percentages, loans, interest, tips and age."},
}

// Lookup returns the catalog entry for slug.
func Lookup(slug string) (Info, error) {
	for _, t := range Catalog {
		if t.Slug == slug {
			return t, nil
		}
	}
	return Info{}, errors.ErrUnknownTool(slug)
}

// Service runs tools.
type Service struct {
	gen   *generator.Generator
	calcs *calc.Registry
	now   func() time.Time
}

// NewService returns a service over the given generator and calculators.
func NewService(gen *generator.Generator, calcs *calc.Registry) *Service {
	if gen == nil {
		gen = generator.New(0)
	}
	if calcs == nil {
		calcs = calc.NewRegistry()
	}
	return &Service{gen: gen, calcs: calcs, now: time.Now}
}

// Calculators exposes the registry.
func (s *Service) Calculators() *calc.Registry {
	return s.calcs
}

func defaultCount(n int) int {
	if n == 0 {
		return 1
	}
	return n
}

// LuhnRequest asks for test card numbers.
type LuhnRequest struct {
	Brand string `json:"brand" yaml:"brand"`
	Count int    `json:"count" yaml:"count"`
}

// LuhnResponse holds generated cards.
type LuhnResponse struct {
	Cards []generator.Card `json:"cards" yaml:"cards"`
}

// Lines renders the cards one per line.
func (r *LuhnResponse) Lines() []string {
	out := make([]string, len(r.Cards))
	for i, c := range r.Cards {
		out[i] = fmt.Sprintf("%s  %s  exp %s  cvv %s", c.Brand, c.Formatted, c.Expiry, c.CVV)
	}
	return out
}

// Luhn generates card numbers; brand defaults to visa.
func (s *Service) Luhn(req LuhnRequest) (*LuhnResponse, error) {
	if req.Brand == "" {
		req.Brand = "visa"
	}
	cards, err := s.gen.Cards(req.Brand, defaultCount(req.Count))
	if err != nil {
		return nil, tag(err, Luhn)
	}
	return &LuhnResponse{Cards: cards}, nil
}

// DatesRequest asks for random dates between From and To (YYYY-MM-DD).
type DatesRequest struct {
	From   string `json:"from" yaml:"from"`
	To     string `json:"to" yaml:"to"`
	Count  int    `json:"count" yaml:"count"`
	Format string `json:"format" yaml:"format"`
	Sorted bool   `json:"sorted" yaml:"sorted"`
}

// DatesResponse holds formatted dates.
type DatesResponse struct {
	Dates []string `json:"dates" yaml:"dates"`
}

// Lines returns the dates.
func (r *DatesResponse) Lines() []string { return r.Dates }

const dayLayout = "2006-01-02"

// Dates samples dates; the range defaults to 2000-01-01 through today.
func (s *Service) Dates(req DatesRequest) (*DatesResponse, error) {
	from, err := parseDay(req.From, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), "from")
	if err != nil {
		return nil, tag(err, Dates)
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	to, err := parseDay(req.To, today, "to")
	if err != nil {
		return nil, tag(err, Dates)
	}
	// inclusive of the whole end day
	to = to.Add(24*time.Hour - time.Second)

	dates, err := s.gen.Dates(generator.DateOptions{
		From:   from,
		To:     to,
		Count:  defaultCount(req.Count),
		Layout: req.Format,
		Sorted: req.Sorted,
	})
	if err != nil {
		return nil, tag(err, Dates)
	}
	return &DatesResponse{Dates: dates}, nil
}

func parseDay(value string, fallback time.Time, field string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	t, err := time.Parse(dayLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, errors.Invalid("%s must be a date like 2024-01-31", field)
	}
	return t, nil
}

// LoremRequest asks for placeholder text.
type LoremRequest struct {
	Unit           string `json:"unit" yaml:"unit"`
	Count          int    `json:"count" yaml:"count"`
	StartWithLorem bool   `json:"start_with_lorem" yaml:"start_with_lorem"`
}

// LoremResponse holds the text.
type LoremResponse struct {
	Text string `json:"text" yaml:"text"`
}

// Lines splits the text into paragraphs.
func (r *LoremResponse) Lines() []string { return strings.Split(r.Text, "\n\n") }

// Lorem produces text; unit defaults to paragraphs.
func (s *Service) Lorem(req LoremRequest) (*LoremResponse, error) {
	unit := generator.Unit(strings.ToLower(req.Unit))
	if unit == "" {
		unit = generator.UnitParagraphs
	}
	text, err := s.gen.Lorem(generator.LoremOptions{
		Unit:           unit,
		Count:          defaultCount(req.Count),
		StartWithLorem: req.StartWithLorem,
	})
	if err != nil {
		return nil, tag(err, Lorem)
	}
	return &LoremResponse{Text: text}, nil
}

// PlatesRequest asks for registration plates.
type PlatesRequest struct {
	Region string `json:"region" yaml:"region"`
	Count  int    `json:"count" yaml:"count"`
}

// PlatesResponse holds plates.
type PlatesResponse struct {
	Plates []string `json:"plates" yaml:"plates"`
}

// Lines returns the plates.
func (r *PlatesResponse) Lines() []string { return r.Plates }

// Plates generates plates; region defaults to uk.
func (s *Service) Plates(req PlatesRequest) (*PlatesResponse, error) {
	if req.Region == "" {
		req.Region = "uk"
	}
	plates, err := s.gen.Plates(req.Region, defaultCount(req.Count))
	if err != nil {
		return nil, tag(err, Plates)
	}
	return &PlatesResponse{Plates: plates}, nil
}

// NumbersRequest asks for random integers.
type NumbersRequest struct {
	Min    int64 `json:"min" yaml:"min"`
	Max    int64 `json:"max" yaml:"max"`
	Count  int   `json:"count" yaml:"count"`
	Unique bool  `json:"unique" yaml:"unique"`
	Sorted bool  `json:"sorted" yaml:"sorted"`
}

// NumbersResponse holds the numbers.
type NumbersResponse struct {
	Numbers []int64 `json:"numbers" yaml:"numbers"`
}

// Lines renders the numbers comma separated.
func (r *NumbersResponse) Lines() []string {
	parts := make([]string, len(r.Numbers))
	for i, n := range r.Numbers {
		parts[i] = strconv.FormatInt(n, 10)
	}
	return []string{strings.Join(parts, ", ")}
}

// Numbers draws integers; an unset range means 1..100.
func (s *Service) Numbers(req NumbersRequest) (*NumbersResponse, error) {
	if req.Min == 0 && req.Max == 0 {
		req.Min, req.Max = 1, 100
	}
	nums, err := s.gen.Numbers(generator.NumberOptions{
		Min:    req.Min,
		Max:    req.Max,
		Count:  defaultCount(req.Count),
		Unique: req.Unique,
		Sorted: req.Sorted,
	})
	if err != nil {
		return nil, tag(err, Numbers)
	}
	return &NumbersResponse{Numbers: nums}, nil
}

// WordCountRequest asks for text statistics.
type WordCountRequest struct {
	Text string `json:"text" yaml:"text"`
	HTML bool   `json:"html" yaml:"html"`
}

// MaxTextBytes bounds word counter input.
const MaxTextBytes = 1 << 20

// WordCount analyses text, stripping markup first when HTML is set.
func (s *Service) WordCount(req WordCountRequest) (*textstats.Stats, error) {
	if len(req.Text) > MaxTextBytes {
		return nil, tag(errors.Invalid("text must be at most %d bytes", MaxTextBytes), WordCount)
	}
	if req.HTML {
		stats, err := textstats.AnalyzeHTML(strings.NewReader(req.Text))
		if err != nil {
			return nil, tag(errors.Invalid("could not parse HTML: %v", err), WordCount)
		}
		return &stats, nil
	}
	stats := textstats.Analyze(req.Text)
	return &stats, nil
}

// StatsLines renders word counter output.
func StatsLines(st *textstats.Stats) []string {
	lines := []string{
		fmt.Sprintf("Words: %d (%d unique)", st.Words, st.UniqueWords),
		fmt.Sprintf("Characters: %d (%d without spaces)", st.Characters, st.CharactersNoSpaces),
		fmt.Sprintf("Sentences: %d, paragraphs: %d", st.Sentences, st.Paragraphs),
		fmt.Sprintf("Reading ease: %.1f (%s)", st.ReadingEase, st.ReadingLevel),
		fmt.Sprintf("Reading time: %s, speaking time: %s", st.ReadingTime, st.SpeakingTime),
	}
	if len(st.Keywords) > 0 {
		words := make([]string, len(st.Keywords))
		for i, k := range st.Keywords {
			words[i] = fmt.Sprintf("%s (%d)", k.Word, k.Count)
		}
		lines = append(lines, "Keywords: "+strings.Join(words, ", "))
	}
	return lines
}

// OutlineResponse carries the outline and its Markdown rendering.
type OutlineResponse struct {
	Outline  *outline.Outline `json:"outline" yaml:"outline"`
	Markdown string           `json:"markdown" yaml:"markdown"`
}

// Lines returns the Markdown lines.
func (r *OutlineResponse) Lines() []string { return strings.Split(strings.TrimRight(r.Markdown, "\n"), "\n") }

// Outline builds a blog outline.
func (s *Service) Outline(req outline.Request) (*OutlineResponse, error) {
	o, err := outline.Build(req)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := o.Markdown(&buf); err != nil {
		return nil, errors.NewInternalError("failed to render outline", err)
	}
	return &OutlineResponse{Outline: o, Markdown: buf.String()}, nil
}

// Calculate runs calculator id.
func (s *Service) Calculate(id string, inputs map[string]float64) (calc.Result, error) {
	return s.calcs.Compute(id, inputs)
}

// ResultLines renders a calculator result.
func ResultLines(res calc.Result) []string {
	lines := []string{res.Summary}
	for _, d := range res.Details {
		lines = append(lines, d.Label+": "+d.Value)
	}
	return lines
}

func tag(err error, tool string) error {
	if te, ok := errors.As(err); ok && te.Tool == "" {
		return te.WithTool(tool)
	}
	return err
}
