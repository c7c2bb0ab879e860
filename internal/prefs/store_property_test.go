//go:build property

package prefs

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestHistoryCapProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("history never exceeds the limit and is newest first", prop.ForAll(
		func(limit, inserts int) bool {
			s, err := Open(MemoryPath, Options{HistoryLimit: limit})
			if err != nil {
				return false
			}
			defer s.Close()

			ctx := context.Background()
			for i := 0; i < inserts; i++ {
				if _, err := s.RecordHistory(ctx, "client", "tool", i, fmt.Sprint(i)); err != nil {
					return false
				}
			}

			entries, err := s.History(ctx, "client", "tool", 0)
			if err != nil {
				return false
			}

			want := inserts
			if want > limit {
				want = limit
			}
			if len(entries) != want {
				return false
			}
			for i, e := range entries {
				if e.Output != fmt.Sprint(inserts-1-i) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 10),
		gen.IntRange(0, 25),
	))

	properties.TestingRun(t)
}
