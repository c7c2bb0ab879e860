// Package calc holds the calculator tools. Each calculator declares its
// input fields so the server can render a form for it and validate
// submissions before computing.
package calc

import (
	"math"
	"sort"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/conneroisu/toolshed/internal/errors"
)

// Field describes one numeric input of a calculator.
type Field struct {
	Name     string  `json:"name" yaml:"name"`
	Label    string  `json:"label" yaml:"label"`
	Unit     string  `json:"unit,omitempty" yaml:"unit,omitempty"`
	Min      float64 `json:"min" yaml:"min"`
	Max      float64 `json:"max" yaml:"max"`
	Default  float64 `json:"default,omitempty" yaml:"default,omitempty"`
	Optional bool    `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// Detail is a labelled, formatted secondary figure.
type Detail struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Result is what a calculator produces.
type Result struct {
	Value   float64  `json:"value" yaml:"value"`
	Unit    string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	Summary string   `json:"summary" yaml:"summary"`
	Details []Detail `json:"details,omitempty" yaml:"details,omitempty"`
}

// Inputs are validated calculator inputs keyed by field name.
type Inputs map[string]float64

type computeFunc func(env *env, in Inputs) (Result, error)

// Calculator is a single calculator tool.
type Calculator struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Fields      []Field `json:"fields" yaml:"fields"`

	compute computeFunc
}

type env struct {
	p   *message.Printer
	now time.Time
}

// Registry looks calculators up by id.
type Registry struct {
	calculators map[string]*Calculator
	printer     *message.Printer
	now         func() time.Time
}

// NewRegistry returns a registry holding every built-in calculator.
func NewRegistry() *Registry {
	r := &Registry{
		calculators: make(map[string]*Calculator),
		printer:     message.NewPrinter(language.English),
		now:         time.Now,
	}
	for _, c := range builtins() {
		r.calculators[c.ID] = c
	}
	return r
}

// Get returns the calculator with the given id.
func (r *Registry) Get(id string) (*Calculator, error) {
	c, ok := r.calculators[id]
	if !ok {
		return nil, errors.ErrUnknownTool(id)
	}
	return c, nil
}

// Has reports whether id names a calculator.
func (r *Registry) Has(id string) bool {
	_, ok := r.calculators[id]
	return ok
}

// List returns every calculator sorted by id.
func (r *Registry) List() []*Calculator {
	out := make([]*Calculator, 0, len(r.calculators))
	for _, c := range r.calculators {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Compute validates raw inputs against the calculator's fields and runs it.
func (r *Registry) Compute(id string, raw map[string]float64) (Result, error) {
	c, err := r.Get(id)
	if err != nil {
		return Result{}, err
	}

	in, err := c.Validate(raw)
	if err != nil {
		return Result{}, err
	}

	res, err := c.compute(&env{p: r.printer, now: r.now()}, in)
	if err != nil {
		if te, ok := err.(*errors.ToolError); ok {
			return Result{}, te.WithTool(id)
		}
		return Result{}, err
	}
	return res, nil
}

// Validate applies defaults and bounds to raw inputs.
func (c *Calculator) Validate(raw map[string]float64) (Inputs, error) {
	in := make(Inputs, len(c.Fields))
	for _, f := range c.Fields {
		v, ok := raw[f.Name]
		if !ok {
			if !f.Optional {
				return nil, errors.Invalid("%s is required", f.Label).WithTool(c.ID).WithContext("field", f.Name)
			}
			v = f.Default
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.Invalid("%s must be a number", f.Label).WithTool(c.ID).WithContext("field", f.Name)
		}
		if f.Max > f.Min && (v < f.Min || v > f.Max) {
			return nil, errors.NewValidationError(errors.ErrCodeOutOfRange,
				c.ID+": "+f.Label+" is out of range").WithTool(c.ID).WithContext("field", f.Name)
		}
		in[f.Name] = v
	}
	return in, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
