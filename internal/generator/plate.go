package generator

import (
	"sort"
	"strings"

	"github.com/conneroisu/toolshed/internal/errors"
)

// plateFormats use 'A' for a letter and '0' for a digit; any other byte is
// copied as is.
var plateFormats = map[string]struct {
	pattern string
	letters string
}{
	"uk": {pattern: "AA00 AAA", letters: "ABCDEFGHJKLMNPRSTUVWXYZ"},
	"us": {pattern: "0AAA000", letters: "ABCDEFGHJKLMNPRSTUVWXYZ"},
	"eu": {pattern: "AA-000-AA", letters: "ABCDEFGHJKLMNPQRSTVWXYZ"},
}

// PlateRegions returns the supported plate regions in sorted order.
func PlateRegions() []string {
	regions := make([]string, 0, len(plateFormats))
	for region := range plateFormats {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}

// Plates generates n number plates for a region.
func (g *Generator) Plates(region string, n int) ([]string, error) {
	format, ok := plateFormats[strings.ToLower(region)]
	if !ok {
		return nil, errors.Invalid("unknown plate region %q (supported: %s)", region, strings.Join(PlateRegions(), ", "))
	}
	if err := checkCount(n); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	plates := make([]string, n)
	for i := range plates {
		b := []byte(format.pattern)
		for j, c := range b {
			switch c {
			case 'A':
				b[j] = format.letters[g.intn(len(format.letters))]
			case '0':
				b[j] = byte('0' + g.intn(10))
			}
		}
		plates[i] = string(b)
	}
	return plates, nil
}
