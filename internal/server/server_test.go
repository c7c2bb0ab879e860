package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/toolshed/internal/cachetier"
	"github.com/conneroisu/toolshed/internal/calc"
	"github.com/conneroisu/toolshed/internal/config"
	"github.com/conneroisu/toolshed/internal/generator"
	"github.com/conneroisu/toolshed/internal/prefs"
	"github.com/conneroisu/toolshed/internal/tools"
)

const testClient = "6f1c7a52-3d2b-4c1e-9a55-0d6b8f1e2a44"

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()

	calcs := calc.NewRegistry()
	opts := prefs.DefaultOptions()
	opts.ValidCalculator = calcs.Has
	store, err := prefs.Open(prefs.MemoryPath, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	s, err := New(cfg, Options{
		Tools: tools.NewService(generator.New(7), calcs),
		Prefs: store,
	})
	require.NoError(t, err)
	return s
}

func do(t *testing.T, h http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(ClientHeader, testClient)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestNewRequiresPrefs(t *testing.T) {
	_, err := New(config.Default(), Options{})
	assert.Error(t, err)
}

func TestIndexIsCachedAfterFirstFetch(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	first := do(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), "Credit card generator")
	assert.Equal(t, cachetier.StatusMiss, first.Header().Get(cachetier.HeaderXCache))

	second := do(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, cachetier.StatusHit, second.Header().Get(cachetier.HeaderXCache))
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestPrepareInstallsShell(t *testing.T) {
	s := newTestServer(t, nil)
	require.NoError(t, s.Prepare(context.Background()))

	precache := s.Cache().BucketName(cachetier.TierPrecache)
	var found bool
	for _, st := range s.Cache().Stats() {
		if st.Name == precache {
			found = true
			assert.Equal(t, len(config.DefaultPrecache), st.Entries)
		}
	}
	assert.True(t, found, "precache bucket missing")

	rec := do(t, s.Handler(), http.MethodGet, "/index.html", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, cachetier.StatusHit, rec.Header().Get(cachetier.HeaderXCache))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	rec = do(t, s.Handler(), http.MethodGet, "/manifest.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Toolshed")
}

func TestCacheDisabled(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Cache.Enabled = false })
	assert.Nil(t, s.Cache())
	require.NoError(t, s.Prepare(context.Background()))

	rec := do(t, s.Handler(), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(cachetier.HeaderXCache))
}

func TestRunToolRecordsHistory(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/tools/luhn", `{"brand":"amex","count":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, cachetier.StatusBypass, rec.Header().Get(cachetier.HeaderXCache))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var res tools.LuhnResponse
	decode(t, rec, &res)
	require.Len(t, res.Cards, 3)
	for _, c := range res.Cards {
		assert.True(t, generator.LuhnValid(c.Number))
		assert.Len(t, c.Number, 15)
	}

	rec = do(t, h, http.MethodGet, "/api/prefs/history/luhn", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	var hist struct {
		Entries []prefs.HistoryEntry `json:"entries"`
	}
	decode(t, rec, &hist)
	require.Len(t, hist.Entries, 1)
	assert.JSONEq(t, `{"brand":"amex","count":3}`, string(hist.Entries[0].Input))

	rec = do(t, h, http.MethodDelete, "/api/prefs/history/luhn", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deleted":1`)
}

func TestRunToolErrors(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	tests := []struct {
		name   string
		target string
		body   string
		status int
		code   string
	}{
		{"unknown tool", "/api/tools/pdf", `{}`, http.StatusNotFound, "ERR_UNKNOWN_TOOL"},
		{"bad json", "/api/tools/numbers", `{"min":`, http.StatusBadRequest, "ERR_INVALID_INPUT"},
		{"unknown field", "/api/tools/numbers", `{"minimum":1}`, http.StatusBadRequest, "ERR_INVALID_INPUT"},
		{"min above max", "/api/tools/numbers", `{"min":10,"max":1,"count":1}`, http.StatusBadRequest, ""},
		{"unknown calculator", "/api/calc/warp-drive", `{}`, http.StatusNotFound, "ERR_UNKNOWN_TOOL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			var body errorBody
			decode(t, rec, &body)
			assert.NotEmpty(t, body.Error.Message)
			if tt.code != "" {
				assert.Equal(t, tt.code, body.Error.Code)
			}
		})
	}
}

func TestOutlineAndWordCountAPI(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/tools/outline", `{"title":"Sourdough for Beginners","keywords":["sourdough"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out tools.OutlineResponse
	decode(t, rec, &out)
	assert.Equal(t, "sourdough-for-beginners", out.Outline.Slug)
	assert.Contains(t, out.Markdown, "# Sourdough for Beginners")

	rec = do(t, h, http.MethodPost, "/api/tools/wordcount", `{"text":"One two three. Four five."}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var st struct {
		Words     int `json:"words"`
		Sentences int `json:"sentences"`
	}
	decode(t, rec, &st)
	assert.Equal(t, 5, st.Words)
	assert.Equal(t, 2, st.Sentences)
}

func TestCalculatorAPI(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/calc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"bmi"`)

	rec = do(t, h, http.MethodPost, "/api/calc/bmi", `{"weight_kg":70,"height_cm":175}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res calc.Result
	decode(t, rec, &res)
	assert.InDelta(t, 22.86, res.Value, 0.01)

	rec = do(t, h, http.MethodGet, "/api/prefs/history/bmi", "")
	assert.Contains(t, rec.Body.String(), `"tool":"bmi"`)
	assert.Contains(t, rec.Body.String(), `"weight_kg":70`)
}

func TestFavoritesAndBookmarks(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/prefs/favorites/bmi", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"favorite":true`)

	rec = do(t, h, http.MethodGet, "/api/prefs/favorites", "")
	assert.Contains(t, rec.Body.String(), `"calculator_id":"bmi"`)

	rec = do(t, h, http.MethodPost, "/api/prefs/favorites/bmi", "")
	assert.Contains(t, rec.Body.String(), `"favorite":false`)

	rec = do(t, h, http.MethodPost, "/api/prefs/favorites/teleport", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/prefs/bookmarks", `{"path":"/tools/lorem"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"bookmarked":true`)

	rec = do(t, h, http.MethodGet, "/api/prefs/bookmarks", "")
	assert.Contains(t, rec.Body.String(), `"path":"/tools/lorem"`)

	rec = do(t, h, http.MethodPost, "/api/prefs/bookmarks", `{"path":"https://example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPrefsAreScopedToClient(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	do(t, h, http.MethodPost, "/api/prefs/favorites/tip", "")

	rec := do(t, h, http.MethodGet, "/api/prefs/favorites", "", ClientHeader, "0d9a3bbd-4a53-4c8e-8f77-2a3c1c9e5b10")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"favorites":[]}`, rec.Body.String())
}

func TestCacheEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	do(t, h, http.MethodGet, "/placeholder.svg", "", "Sec-Fetch-Dest", "image")

	rec := do(t, h, http.MethodGet, "/api/cache", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), s.Cache().BucketName(cachetier.TierImages))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec = do(t, h, http.MethodDelete, "/api/cache?path=/placeholder.svg", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cleared":1`)

	do(t, h, http.MethodGet, "/", "")
	rec = do(t, h, http.MethodDelete, "/api/cache", "")
	assert.Contains(t, rec.Body.String(), `"cleared":1`)
	assert.Empty(t, s.Cache().Storage().Names())
}

func TestToolPages(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/tools/numbers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<form method="post" action="/tools/numbers">`)

	form := url.Values{"min": {"1"}, "max": {"3"}, "count": {"3"}, "unique": {"on"}, "sorted": {"on"}}
	req := httptest.NewRequest(http.MethodPost, "/tools/numbers", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(ClientHeader, testClient)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<pre>1, 2, 3</pre>")
	assert.Contains(t, rec.Body.String(), "Recent")

	form = url.Values{"min": {"9"}, "max": {"1"}, "count": {"2"}}
	req = httptest.NewRequest(http.MethodPost, "/tools/numbers", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `role="alert"`)

	rec = do(t, h, http.MethodGet, "/tools/wordcount", "")
	assert.Contains(t, rec.Body.String(), "/static/wordcount.js")

	rec = do(t, h, http.MethodGet, "/tools/teleporter", "", "Sec-Fetch-Mode", "navigate")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestCalculatorPage(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/tools/calc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/tools/calc/loan"`)

	form := url.Values{"weight_kg": {"70"}, "height_cm": {"175"}}
	req := httptest.NewRequest(http.MethodPost, "/tools/calc/bmi", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(ClientHeader, testClient)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Result")

	form = url.Values{"weight_kg": {"heavy"}, "height_cm": {"175"}}
	req = httptest.NewRequest(http.MethodPost, "/tools/calc/bmi", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "must be a number")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string                 `json:"status"`
		Checks map[string]interface{} `json:"checks"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "healthy", body.Status)
	assert.Contains(t, body.Checks, "prefs")
	assert.Contains(t, body.Checks, "cache")
}

func TestHealthDegraded(t *testing.T) {
	s := newTestServer(t, nil)
	require.NoError(t, s.prefs.Close())

	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, cachetier.StatusMiss, rec.Header().Get(cachetier.HeaderXCache))

	var body struct {
		Status string `json:"status"`
		Checks map[string]struct {
			Status string `json:"status"`
		} `json:"checks"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "unhealthy", body.Checks["prefs"].Status)
	assert.Equal(t, "healthy", body.Checks["server"].Status)
}

func TestUnknownAPIRoute(t *testing.T) {
	s := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/api/nothing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestServeAndShutdown(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Server.Port = 0
		c.Server.ShutdownTimeout = time.Second
	})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
