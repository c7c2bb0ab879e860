// Package generator implements the random data tools: Luhn-valid card
// numbers, dates, lorem ipsum, number plates and random numbers.
//
// A Generator is safe for concurrent use. Seeding it makes every tool
// deterministic, which the tests and the CLI --seed flag rely on.
package generator

import (
	"math/rand"
	"sync"
	"time"

	"github.com/conneroisu/toolshed/internal/errors"
)

// MaxCount bounds how many values a single call may produce.
const MaxCount = 1000

// Generator produces random tool output from a single source.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// New creates a generator. A zero seed uses the current time.
func New(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

func checkCount(n int) error {
	if n < 1 || n > MaxCount {
		return errors.NewValidationError(errors.ErrCodeOutOfRange, "count must be between 1 and 1000")
	}
	return nil
}

// intn must be called with g.mu held.
func (g *Generator) intn(n int) int {
	return g.rng.Intn(n)
}

// between returns a uniform value in [lo, hi]. Callers hold g.mu.
func (g *Generator) between(lo, hi int64) int64 {
	span := uint64(hi-lo) + 1
	if span == 0 {
		return int64(g.rng.Uint64())
	}
	return lo + int64(g.rng.Uint64()%span)
}

func (g *Generator) pick(options []string) string {
	return options[g.intn(len(options))]
}
