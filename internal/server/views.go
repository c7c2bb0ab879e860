package server

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/conneroisu/toolshed/internal/calc"
	"github.com/conneroisu/toolshed/internal/tools"
)

// htmlWriter remembers the first write error so components can write
// unconditionally and report once.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) rawf(format string, args ...interface{}) {
	if h.err == nil {
		_, h.err = fmt.Fprintf(h.w, format, args...)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func esc(s string) string {
	return templ.EscapeString(s)
}

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw("<!doctype html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
		h.raw("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
		h.rawf("<title>%s · Toolshed</title>\n", esc(title))
		h.raw("<link rel=\"manifest\" href=\"/manifest.json\">\n<link rel=\"stylesheet\" href=\"/static/app.css\">\n")
		h.raw("</head>\n<body>\n<header class=\"site-header\"><a class=\"brand\" href=\"/\">Toolshed</a>")
		h.raw("<a href=\"/tools/calc\">Calculators</a><a href=\"/tools/wordcount\">Word counter</a></header>\n<main>\n")
		if h.err != nil {
			return h.err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		h.raw("</main>\n</body>\n</html>\n")
		return h.err
	})
}

func indexView(catalog []tools.Info) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw("<h1>Toolshed</h1>\n<ul class=\"tools\">\n")
		for _, t := range catalog {
			h.rawf("<li><a href=\"/tools/%s\"><strong>%s</strong></a><p>%s</p></li>\n",
				esc(t.Slug), esc(t.Name), esc(t.Description))
		}
		h.raw("</ul>\n")
		return h.err
	})
}

func calcIndexView(calcs []*calc.Calculator) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw("<h1>Calculators</h1>\n<ul class=\"tools\">\n")
		for _, c := range calcs {
			h.rawf("<li><a href=\"/tools/calc/%s\"><strong>%s</strong></a><p>%s</p></li>\n",
				esc(c.ID), esc(c.Name), esc(c.Description))
		}
		h.raw("</ul>\n")
		return h.err
	})
}

// formField is one input of a tool form.
type formField struct {
	Name    string
	Label   string
	Kind    string // text, number, date, select, textarea, checkbox
	Value   string
	Options []string
	Checked bool
}

// toolPage is a tool form plus its outcome.
type toolPage struct {
	Title       string
	Description string
	Action      string
	Fields      []formField
	Result      []string
	Error       string
	History     []string
	Script      string
}

func toolView(p toolPage) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.rawf("<h1>%s</h1>\n<p>%s</p>\n", esc(p.Title), esc(p.Description))
		h.rawf("<form method=\"post\" action=\"%s\">\n", esc(p.Action))
		for _, f := range p.Fields {
			writeField(h, f)
		}
		h.raw("<button type=\"submit\">Run</button>\n</form>\n")

		if p.Error != "" {
			h.rawf("<div class=\"toast\" role=\"alert\">%s</div>\n", esc(p.Error))
		}
		if len(p.Result) > 0 {
			h.raw("<section class=\"result\"><h2>Result</h2><pre>")
			for i, line := range p.Result {
				if i > 0 {
					h.raw("\n")
				}
				h.text(line)
			}
			h.raw("</pre></section>\n")
		}
		if len(p.History) > 0 {
			h.raw("<section class=\"result\"><h2>Recent</h2><ol>\n")
			for _, line := range p.History {
				h.rawf("<li>%s</li>\n", esc(line))
			}
			h.raw("</ol></section>\n")
		}
		if p.Script != "" {
			h.rawf("<script src=\"%s\" defer></script>\n", esc(p.Script))
		}
		return h.err
	})
}

func writeField(h *htmlWriter, f formField) {
	id := "f-" + f.Name
	switch f.Kind {
	case "checkbox":
		checked := ""
		if f.Checked {
			checked = " checked"
		}
		h.rawf("<label class=\"check\" for=\"%s\"><input type=\"checkbox\" id=\"%s\" name=\"%s\" value=\"on\"%s> %s</label>\n",
			id, id, esc(f.Name), checked, esc(f.Label))
	case "select":
		h.rawf("<label for=\"%s\">%s<select id=\"%s\" name=\"%s\">", id, esc(f.Label), id, esc(f.Name))
		for _, opt := range f.Options {
			selected := ""
			if opt == f.Value {
				selected = " selected"
			}
			h.rawf("<option value=\"%s\"%s>%s</option>", esc(opt), selected, esc(opt))
		}
		h.raw("</select></label>\n")
	case "textarea":
		h.rawf("<label for=\"%s\">%s<textarea id=\"%s\" name=\"%s\">%s</textarea></label>\n",
			id, esc(f.Label), id, esc(f.Name), esc(f.Value))
	default:
		kind := f.Kind
		if kind == "" {
			kind = "text"
		}
		extra := ""
		if kind == "number" {
			extra = " step=\"any\""
		}
		h.rawf("<label for=\"%s\">%s<input type=\"%s\" id=\"%s\" name=\"%s\" value=\"%s\"%s></label>\n",
			id, esc(f.Label), kind, id, esc(f.Name), esc(f.Value), extra)
	}
}

func errorView(status int, message string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.rawf("<h1>%s</h1>\n<div class=\"toast\" role=\"alert\">%s</div>\n<p><a href=\"/\">Back to all tools</a></p>\n",
			strconv.Itoa(status), esc(message))
		return h.err
	})
}
