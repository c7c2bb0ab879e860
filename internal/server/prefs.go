package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/conneroisu/toolshed/internal/errors"
	"github.com/conneroisu/toolshed/internal/prefs"
)

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	tool := chi.URLParam(r, "tool")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.apiError(w, r, errors.Invalid("limit must be a non-negative whole number"))
			return
		}
		limit = n
	}

	entries, err := s.prefs.History(r.Context(), ClientID(r.Context()), tool, limit)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	if entries == nil {
		entries = []prefs.HistoryEntry{}
	}
	writePrivateJSON(w, http.StatusOK, map[string]interface{}{"tool": tool, "entries": entries})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	tool := chi.URLParam(r, "tool")
	n, err := s.prefs.ClearHistory(r.Context(), ClientID(r.Context()), tool)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writePrivateJSON(w, http.StatusOK, map[string]interface{}{"tool": tool, "deleted": n})
}

func (s *Server) handleGetFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := s.prefs.Favorites(r.Context(), ClientID(r.Context()))
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	if favs == nil {
		favs = []prefs.Favorite{}
	}
	writePrivateJSON(w, http.StatusOK, map[string]interface{}{"favorites": favs})
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	on, err := s.prefs.ToggleFavorite(r.Context(), ClientID(r.Context()), id)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writePrivateJSON(w, http.StatusOK, map[string]interface{}{"id": id, "favorite": on})
}

func (s *Server) handleGetBookmarks(w http.ResponseWriter, r *http.Request) {
	marks, err := s.prefs.Bookmarks(r.Context(), ClientID(r.Context()))
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	if marks == nil {
		marks = []prefs.Bookmark{}
	}
	writePrivateJSON(w, http.StatusOK, map[string]interface{}{"bookmarks": marks})
}

type bookmarkRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleToggleBookmark(w http.ResponseWriter, r *http.Request) {
	var req bookmarkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.apiError(w, r, err)
		return
	}
	on, err := s.prefs.ToggleBookmark(r.Context(), ClientID(r.Context()), req.Path)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writePrivateJSON(w, http.StatusOK, map[string]interface{}{"path": req.Path, "bookmarked": on})
}
