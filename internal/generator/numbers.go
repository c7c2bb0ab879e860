package generator

import (
	"sort"

	"github.com/conneroisu/toolshed/internal/errors"
)

// NumberOptions configures Numbers.
type NumberOptions struct {
	Min    int64
	Max    int64
	Count  int
	Unique bool
	Sorted bool
}

// Numbers draws Count integers uniformly from [Min, Max].
func (g *Generator) Numbers(opts NumberOptions) ([]int64, error) {
	if err := checkCount(opts.Count); err != nil {
		return nil, err
	}
	if opts.Min > opts.Max {
		return nil, errors.Invalid("min must not exceed max")
	}

	span := uint64(opts.Max-opts.Min) + 1
	if opts.Unique && span != 0 && span < uint64(opts.Count) {
		return nil, errors.Invalid("range %d..%d holds only %d unique values", opts.Min, opts.Max, span)
	}

	g.mu.Lock()
	out := make([]int64, 0, opts.Count)
	seen := make(map[int64]struct{}, opts.Count)
	for len(out) < opts.Count {
		v := g.between(opts.Min, opts.Max)
		if opts.Unique {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
		}
		out = append(out, v)
	}
	g.mu.Unlock()

	if opts.Sorted {
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	}
	return out, nil
}
