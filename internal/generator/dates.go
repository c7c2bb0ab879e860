package generator

import (
	"sort"
	"strings"
	"time"

	"github.com/conneroisu/toolshed/internal/errors"
)

var dateLayouts = map[string]string{
	"iso":  "2006-01-02",
	"us":   "01/02/2006",
	"eu":   "02/01/2006",
	"long": "January 2, 2006",
	"rfc":  time.RFC3339,
}

// ResolveLayout maps a layout name to a Go time layout. Anything that is not
// a known name is treated as a Go layout itself.
func ResolveLayout(name string) string {
	if name == "" {
		return dateLayouts["iso"]
	}
	if layout, ok := dateLayouts[strings.ToLower(name)]; ok {
		return layout
	}
	return name
}

// DateOptions configures Dates.
type DateOptions struct {
	From   time.Time
	To     time.Time
	Count  int
	Layout string
	Sorted bool
}

// Dates samples Count instants uniformly in [From, To] and formats them.
func (g *Generator) Dates(opts DateOptions) ([]string, error) {
	if err := checkCount(opts.Count); err != nil {
		return nil, err
	}
	if opts.From.After(opts.To) {
		return nil, errors.Invalid("start date must not be after end date")
	}

	g.mu.Lock()
	instants := make([]time.Time, opts.Count)
	for i := range instants {
		sec := g.between(opts.From.Unix(), opts.To.Unix())
		instants[i] = time.Unix(sec, 0).In(opts.From.Location())
	}
	g.mu.Unlock()

	if opts.Sorted {
		sort.Slice(instants, func(i, j int) bool { return instants[i].Before(instants[j]) })
	}

	layout := ResolveLayout(opts.Layout)
	out := make([]string, len(instants))
	for i, t := range instants {
		out[i] = t.Format(layout)
	}
	return out, nil
}
