package generator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/conneroisu/toolshed/internal/errors"
)

// Brand describes the issuer rules for a test card number.
type Brand struct {
	Name      string   `json:"name" yaml:"name"`
	Prefixes  []string `json:"prefixes" yaml:"prefixes"`
	Length    int      `json:"length" yaml:"length"`
	CVVLength int      `json:"cvv_length" yaml:"cvv_length"`
}

var brands = map[string]Brand{
	"visa":       {Name: "visa", Prefixes: []string{"4"}, Length: 16, CVVLength: 3},
	"mastercard": {Name: "mastercard", Prefixes: []string{"51", "52", "53", "54", "55"}, Length: 16, CVVLength: 3},
	"amex":       {Name: "amex", Prefixes: []string{"34", "37"}, Length: 15, CVVLength: 4},
	"discover":   {Name: "discover", Prefixes: []string{"6011", "65"}, Length: 16, CVVLength: 3},
}

// Brands returns the supported brand names in sorted order.
func Brands() []string {
	names := make([]string, 0, len(brands))
	for name := range brands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupBrand resolves a brand name case-insensitively.
func LookupBrand(name string) (Brand, error) {
	brand, ok := brands[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Brand{}, errors.NewValidationError(errors.ErrCodeUnknownBrand,
			fmt.Sprintf("unknown card brand %q (supported: %s)", name, strings.Join(Brands(), ", ")))
	}
	return brand, nil
}

// Card is a generated test card.
type Card struct {
	Brand     string `json:"brand" yaml:"brand"`
	Number    string `json:"number" yaml:"number"`
	Formatted string `json:"formatted" yaml:"formatted"`
	Expiry    string `json:"expiry" yaml:"expiry"`
	CVV       string `json:"cvv" yaml:"cvv"`
}

// LuhnCheckDigit computes the digit that makes payload+digit Luhn valid.
func LuhnCheckDigit(payload string) (int, error) {
	if payload == "" {
		return 0, errors.Invalid("payload must not be empty")
	}

	sum := 0
	double := true
	for i := len(payload) - 1; i >= 0; i-- {
		c := payload[i]
		if c < '0' || c > '9' {
			return 0, errors.Invalid("payload must contain only digits")
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}

	return (10 - sum%10) % 10, nil
}

// LuhnValid reports whether number passes the Luhn checksum. Spaces and
// dashes are ignored.
func LuhnValid(number string) bool {
	digits := stripSeparators(number)
	if len(digits) < 2 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}

	return sum%10 == 0
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, s)
}

// CardNumber generates one Luhn-valid number for the brand.
func (g *Generator) CardNumber(brandName string) (string, error) {
	brand, err := LookupBrand(brandName)
	if err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cardNumber(brand), nil
}

func (g *Generator) cardNumber(brand Brand) string {
	var b strings.Builder
	b.Grow(brand.Length)
	b.WriteString(g.pick(brand.Prefixes))
	for b.Len() < brand.Length-1 {
		b.WriteByte(byte('0' + g.intn(10)))
	}

	payload := b.String()
	// payload is all digits, so the error is impossible.
	check, _ := LuhnCheckDigit(payload)
	return fmt.Sprintf("%s%d", payload, check)
}

// Cards generates n complete test cards.
func (g *Generator) Cards(brandName string, n int) ([]Card, error) {
	brand, err := LookupBrand(brandName)
	if err != nil {
		return nil, err
	}
	if err := checkCount(n); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	cards := make([]Card, 0, n)
	for i := 0; i < n; i++ {
		number := g.cardNumber(brand)
		expiry := now.AddDate(1+g.intn(5), 0, 0)
		month := 1 + g.intn(12)

		cvv := make([]byte, brand.CVVLength)
		for j := range cvv {
			cvv[j] = byte('0' + g.intn(10))
		}

		cards = append(cards, Card{
			Brand:     brand.Name,
			Number:    number,
			Formatted: FormatCardNumber(number),
			Expiry:    fmt.Sprintf("%02d/%02d", month, expiry.Year()%100),
			CVV:       string(cvv),
		})
	}

	return cards, nil
}

// FormatCardNumber groups digits the way they are printed on the card:
// 4-6-5 for 15 digit numbers and blocks of four otherwise.
func FormatCardNumber(number string) string {
	digits := stripSeparators(number)
	groups := []int{4, 4, 4, 4, 3}
	if len(digits) == 15 {
		groups = []int{4, 6, 5}
	}

	var parts []string
	for _, size := range groups {
		if len(digits) == 0 {
			break
		}
		if size > len(digits) {
			size = len(digits)
		}
		parts = append(parts, digits[:size])
		digits = digits[size:]
	}
	if len(digits) > 0 {
		parts = append(parts, digits)
	}

	return strings.Join(parts, " ")
}
