package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/conneroisu/toolshed/internal/calc"
	"github.com/conneroisu/toolshed/internal/errors"
	"github.com/conneroisu/toolshed/internal/outline"
	"github.com/conneroisu/toolshed/internal/tools"
	"github.com/conneroisu/toolshed/internal/version"
)

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"tools": tools.Catalog})
}

func (s *Server) handleListCalculators(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"calculators": s.tools.Calculators().List()})
}

func (s *Server) handleRunTool(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "tool")
	if _, err := tools.Lookup(slug); err != nil || slug == tools.Calc {
		s.apiError(w, r, errors.ErrUnknownTool(slug))
		return
	}

	var (
		input  interface{}
		result interface{}
		lines  []string
		err    error
	)
	switch slug {
	case tools.Luhn:
		var req tools.LuhnRequest
		if err = decodeJSON(w, r, &req); err == nil {
			var res *tools.LuhnResponse
			if res, err = s.tools.Luhn(req); err == nil {
				input, result, lines = req, res, res.Lines()
			}
		}
	case tools.Dates:
		var req tools.DatesRequest
		if err = decodeJSON(w, r, &req); err == nil {
			var res *tools.DatesResponse
			if res, err = s.tools.Dates(req); err == nil {
				input, result, lines = req, res, res.Lines()
			}
		}
	case tools.Lorem:
		var req tools.LoremRequest
		if err = decodeJSON(w, r, &req); err == nil {
			var res *tools.LoremResponse
			if res, err = s.tools.Lorem(req); err == nil {
				input, result, lines = req, res, res.Lines()
			}
		}
	case tools.Plates:
		var req tools.PlatesRequest
		if err = decodeJSON(w, r, &req); err == nil {
			var res *tools.PlatesResponse
			if res, err = s.tools.Plates(req); err == nil {
				input, result, lines = req, res, res.Lines()
			}
		}
	case tools.Numbers:
		var req tools.NumbersRequest
		if err = decodeJSON(w, r, &req); err == nil {
			var res *tools.NumbersResponse
			if res, err = s.tools.Numbers(req); err == nil {
				input, result, lines = req, res, res.Lines()
			}
		}
	case tools.WordCount:
		var req tools.WordCountRequest
		if err = decodeJSON(w, r, &req); err == nil {
			if st, serr := s.tools.WordCount(req); serr == nil {
				// The text itself can be large; history keeps only its size.
				input = map[string]interface{}{"bytes": len(req.Text), "html": req.HTML}
				result, lines = st, tools.StatsLines(st)
			} else {
				err = serr
			}
		}
	case tools.Outline:
		var req outline.Request
		if err = decodeJSON(w, r, &req); err == nil {
			var res *tools.OutlineResponse
			if res, err = s.tools.Outline(req); err == nil {
				input, result, lines = req, res, []string{res.Outline.Slug}
			}
		}
	}
	if err != nil {
		s.apiError(w, r, err)
		return
	}

	s.record(r, slug, input, lines)
	writePrivateJSON(w, http.StatusOK, result)
}

func (s *Server) handleRunCalculator(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var inputs map[string]float64
	if err := decodeJSON(w, r, &inputs); err != nil {
		s.apiError(w, r, err)
		return
	}
	result, err := s.runCalculator(r, id, inputs)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writePrivateJSON(w, http.StatusOK, result)
}

// runCalculator computes and records one calculator invocation.
func (s *Server) runCalculator(r *http.Request, id string, inputs map[string]float64) (calc.Result, error) {
	result, err := s.tools.Calculate(id, inputs)
	if err != nil {
		return calc.Result{}, err
	}
	s.record(r, id, inputs, []string{result.Summary})
	return result, nil
}

// record stores a history entry. Failures are logged and never fail the
// request that produced the result.
func (s *Server) record(r *http.Request, tool string, input interface{}, lines []string) {
	output := strings.Join(lines, "\n")
	if len(output) > 500 {
		output = output[:500]
	}
	if _, err := s.prefs.RecordHistory(r.Context(), ClientID(r.Context()), tool, input, output); err != nil {
		s.errs.Handle(r.Context(), err)
	}
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writePrivateJSON(w, http.StatusOK, map[string]interface{}{"enabled": false})
		return
	}
	writePrivateJSON(w, http.StatusOK, map[string]interface{}{
		"enabled": true,
		"version": s.cache.Config().Version,
		"buckets": s.cache.Stats(),
	})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writePrivateJSON(w, http.StatusOK, map[string]interface{}{"cleared": 0})
		return
	}
	if path := r.URL.Query().Get("path"); path != "" {
		writePrivateJSON(w, http.StatusOK, map[string]interface{}{"cleared": s.cache.Invalidate(path)})
		return
	}
	writePrivateJSON(w, http.StatusOK, map[string]interface{}{"cleared": s.cache.Storage().Clear()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]interface{}{
		"server": map[string]interface{}{"status": "healthy"},
	}
	status := "healthy"
	if err := s.prefs.Ping(r.Context()); err != nil {
		s.errs.Handle(r.Context(), err)
		status = "degraded"
		checks["prefs"] = map[string]interface{}{"status": "unhealthy", "message": errors.UserMessage(err)}
	} else {
		checks["prefs"] = map[string]interface{}{"status": "healthy"}
	}
	if s.cache != nil {
		checks["cache"] = map[string]interface{}{"status": "healthy", "buckets": len(s.cache.Storage().Names())}
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writePrivateJSON(w, code, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"version":   version.GetShortVersion(),
		"checks":    checks,
	})
}

func (s *Server) apiError(w http.ResponseWriter, r *http.Request, err error) {
	s.errs.Handle(r.Context(), err)
	writeError(w, err)
}
