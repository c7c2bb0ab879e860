package server

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/conneroisu/toolshed/internal/calc"
	"github.com/conneroisu/toolshed/internal/errors"
	"github.com/conneroisu/toolshed/internal/generator"
	"github.com/conneroisu/toolshed/internal/outline"
	"github.com/conneroisu/toolshed/internal/tools"
)

const historyOnPage = 5

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "All tools", indexView(tools.Catalog))
}

func (s *Server) handleCalcIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "Calculators", calcIndexView(s.tools.Calculators().List()))
}

// pageRun executes a tool from form values and returns the result lines.
type pageRun func(form url.Values) ([]string, error)

func (s *Server) handleToolPage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "tool")
	info, err := tools.Lookup(slug)
	if err != nil || slug == tools.Calc {
		s.renderError(w, r, errors.ErrUnknownTool(slug))
		return
	}

	form := url.Values{}
	if r.Method == http.MethodPost {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			s.renderError(w, r, errors.Invalid("could not read form"))
			return
		}
		form = r.PostForm
	}

	fields, run := s.toolForm(slug, form)
	page := toolPage{
		Title:       info.Name,
		Description: info.Description,
		Action:      "/tools/" + slug,
		Fields:      fields,
	}
	if slug == tools.WordCount {
		page.Script = staticPrefix + "/wordcount.js"
	}

	status := http.StatusOK
	if r.Method == http.MethodPost {
		lines, err := run(form)
		if err != nil {
			s.errs.Handle(r.Context(), err)
			status = errors.HTTPStatus(err)
			page.Error = errors.UserMessage(err)
		} else {
			page.Result = lines
			s.record(r, slug, pageInput(slug, form), lines)
		}
		page.History = s.recentHistory(r, slug)
	}
	s.render(w, r, status, info.Name, toolView(page))
}

func (s *Server) handleCalcPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := s.tools.Calculators().Get(id)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	form := url.Values{}
	if r.Method == http.MethodPost {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			s.renderError(w, r, errors.Invalid("could not read form"))
			return
		}
		form = r.PostForm
	}

	page := toolPage{
		Title:       c.Name,
		Description: c.Description,
		Action:      "/tools/calc/" + c.ID,
	}
	for _, f := range c.Fields {
		label := f.Label
		if f.Unit != "" {
			label += " (" + f.Unit + ")"
		}
		value := form.Get(f.Name)
		if value == "" && f.Optional {
			value = strconv.FormatFloat(f.Default, 'f', -1, 64)
		}
		page.Fields = append(page.Fields, formField{Name: f.Name, Label: label, Kind: "number", Value: value})
	}

	status := http.StatusOK
	if r.Method == http.MethodPost {
		result, err := s.calculate(r, c, form)
		if err != nil {
			s.errs.Handle(r.Context(), err)
			status = errors.HTTPStatus(err)
			page.Error = errors.UserMessage(err)
		} else {
			page.Result = tools.ResultLines(result)
		}
		page.History = s.recentHistory(r, c.ID)
	}
	s.render(w, r, status, c.Name, toolView(page))
}

func (s *Server) calculate(r *http.Request, c *calc.Calculator, form url.Values) (calc.Result, error) {
	inputs := make(map[string]float64, len(c.Fields))
	for _, f := range c.Fields {
		raw := strings.TrimSpace(form.Get(f.Name))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return calc.Result{}, errors.Invalid("%s must be a number", f.Label).WithTool(c.ID)
		}
		inputs[f.Name] = v
	}
	return s.runCalculator(r, c.ID, inputs)
}

func (s *Server) recentHistory(r *http.Request, tool string) []string {
	entries, err := s.prefs.History(r.Context(), ClientID(r.Context()), tool, historyOnPage)
	if err != nil {
		s.errs.Handle(r.Context(), err)
		return nil
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.CreatedAt.Local().Format("Jan 2 15:04") + "  " + e.Output
	}
	return lines
}

// pageInput is the form as stored in history. Word counter text is
// reduced to its size.
func pageInput(slug string, form url.Values) map[string]string {
	in := make(map[string]string, len(form))
	for k := range form {
		in[k] = form.Get(k)
	}
	if slug == tools.WordCount {
		in["text"] = strconv.Itoa(len(in["text"])) + " bytes"
	}
	return in
}

func formInt(form url.Values, name string) (int, error) {
	raw := strings.TrimSpace(form.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Invalid("%s must be a whole number", name)
	}
	return n, nil
}

func formInt64(form url.Values, name string) (int64, error) {
	raw := strings.TrimSpace(form.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Invalid("%s must be a whole number", name)
	}
	return n, nil
}

func formBool(form url.Values, name string) bool {
	v := form.Get(name)
	return v == "on" || v == "true" || v == "1"
}

func valueOr(form url.Values, name, fallback string) string {
	if v := form.Get(name); v != "" {
		return v
	}
	return fallback
}

// toolForm returns the form fields for slug, prefilled from form, and the
// function that runs the tool.
func (s *Server) toolForm(slug string, form url.Values) ([]formField, pageRun) {
	switch slug {
	case tools.Luhn:
		return []formField{
				{Name: "brand", Label: "Brand", Kind: "select", Options: generator.Brands(), Value: valueOr(form, "brand", "visa")},
				{Name: "count", Label: "How many", Kind: "number", Value: valueOr(form, "count", "5")},
			}, func(form url.Values) ([]string, error) {
				count, err := formInt(form, "count")
				if err != nil {
					return nil, err
				}
				res, err := s.tools.Luhn(tools.LuhnRequest{Brand: form.Get("brand"), Count: count})
				if err != nil {
					return nil, err
				}
				return res.Lines(), nil
			}
	case tools.Dates:
		return []formField{
				{Name: "from", Label: "From", Kind: "date", Value: form.Get("from")},
				{Name: "to", Label: "To", Kind: "date", Value: form.Get("to")},
				{Name: "count", Label: "How many", Kind: "number", Value: valueOr(form, "count", "5")},
				{Name: "format", Label: "Format", Kind: "select", Options: []string{"iso", "us", "eu", "long", "rfc"}, Value: valueOr(form, "format", "iso")},
				{Name: "sorted", Label: "Sort ascending", Kind: "checkbox", Checked: formBool(form, "sorted")},
			}, func(form url.Values) ([]string, error) {
				count, err := formInt(form, "count")
				if err != nil {
					return nil, err
				}
				res, err := s.tools.Dates(tools.DatesRequest{
					From:   form.Get("from"),
					To:     form.Get("to"),
					Count:  count,
					Format: form.Get("format"),
					Sorted: formBool(form, "sorted"),
				})
				if err != nil {
					return nil, err
				}
				return res.Lines(), nil
			}
	case tools.Lorem:
		return []formField{
				{Name: "unit", Label: "Unit", Kind: "select", Options: []string{"paragraphs", "sentences", "words"}, Value: valueOr(form, "unit", "paragraphs")},
				{Name: "count", Label: "How many", Kind: "number", Value: valueOr(form, "count", "3")},
				{Name: "start_with_lorem", Label: "Start with \"Lorem ipsum\"", Kind: "checkbox", Checked: formBool(form, "start_with_lorem")},
			}, func(form url.Values) ([]string, error) {
				count, err := formInt(form, "count")
				if err != nil {
					return nil, err
				}
				res, err := s.tools.Lorem(tools.LoremRequest{
					Unit:           form.Get("unit"),
					Count:          count,
					StartWithLorem: formBool(form, "start_with_lorem"),
				})
				if err != nil {
					return nil, err
				}
				return res.Lines(), nil
			}
	case tools.Plates:
		return []formField{
				{Name: "region", Label: "Region", Kind: "select", Options: generator.PlateRegions(), Value: valueOr(form, "region", "uk")},
				{Name: "count", Label: "How many", Kind: "number", Value: valueOr(form, "count", "5")},
			}, func(form url.Values) ([]string, error) {
				count, err := formInt(form, "count")
				if err != nil {
					return nil, err
				}
				res, err := s.tools.Plates(tools.PlatesRequest{Region: form.Get("region"), Count: count})
				if err != nil {
					return nil, err
				}
				return res.Lines(), nil
			}
	case tools.Numbers:
		return []formField{
				{Name: "min", Label: "Minimum", Kind: "number", Value: valueOr(form, "min", "1")},
				{Name: "max", Label: "Maximum", Kind: "number", Value: valueOr(form, "max", "100")},
				{Name: "count", Label: "How many", Kind: "number", Value: valueOr(form, "count", "10")},
				{Name: "unique", Label: "No repeats", Kind: "checkbox", Checked: formBool(form, "unique")},
				{Name: "sorted", Label: "Sort ascending", Kind: "checkbox", Checked: formBool(form, "sorted")},
			}, func(form url.Values) ([]string, error) {
				lo, err := formInt64(form, "min")
				if err != nil {
					return nil, err
				}
				hi, err := formInt64(form, "max")
				if err != nil {
					return nil, err
				}
				count, err := formInt(form, "count")
				if err != nil {
					return nil, err
				}
				res, err := s.tools.Numbers(tools.NumbersRequest{
					Min: lo, Max: hi, Count: count,
					Unique: formBool(form, "unique"),
					Sorted: formBool(form, "sorted"),
				})
				if err != nil {
					return nil, err
				}
				return res.Lines(), nil
			}
	case tools.WordCount:
		return []formField{
				{Name: "text", Label: "Text", Kind: "textarea", Value: form.Get("text")},
				{Name: "html", Label: "Input is HTML", Kind: "checkbox", Checked: formBool(form, "html")},
			}, func(form url.Values) ([]string, error) {
				st, err := s.tools.WordCount(tools.WordCountRequest{Text: form.Get("text"), HTML: formBool(form, "html")})
				if err != nil {
					return nil, err
				}
				return tools.StatsLines(st), nil
			}
	default: // tools.Outline
		return []formField{
				{Name: "title", Label: "Post title", Value: form.Get("title")},
				{Name: "keywords", Label: "Keywords (comma separated)", Value: form.Get("keywords")},
				{Name: "sections", Label: "Sections (one per line, optional)", Kind: "textarea", Value: form.Get("sections")},
				{Name: "audience", Label: "Audience", Value: form.Get("audience")},
			}, func(form url.Values) ([]string, error) {
				res, err := s.tools.Outline(outline.Request{
					Title:    form.Get("title"),
					Keywords: strings.Split(form.Get("keywords"), ","),
					Sections: strings.Split(form.Get("sections"), "\n"),
					Audience: form.Get("audience"),
				})
				if err != nil {
					return nil, err
				}
				return res.Lines(), nil
			}
	}
}
