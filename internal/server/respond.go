package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/a-h/templ"

	"github.com/conneroisu/toolshed/internal/errors"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 2 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writePrivateJSON writes a per-client response that shared caches must
// not keep.
func writePrivateJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, status, v)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, errors.HTTPStatus(err), errors.NewPayload(err))
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return nil
		}
		return errors.Invalid("invalid JSON body: %v", err)
	}
	return nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, title string, body templ.Component) {
	templ.Handler(layout(title, body),
		templ.WithStatus(status),
		templ.WithErrorHandler(func(r *http.Request, err error) http.Handler {
			s.logger.Error(r.Context(), err, "Failed to render page", "path", r.URL.Path)
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "render failed", http.StatusInternalServerError)
			})
		}),
	).ServeHTTP(w, r)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	s.errs.Handle(r.Context(), err)
	status := errors.HTTPStatus(err)
	w.Header().Set("Cache-Control", "no-store")
	s.render(w, r, status, "Error", errorView(status, errors.UserMessage(err)))
}
