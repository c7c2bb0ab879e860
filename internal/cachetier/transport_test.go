package cachetier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportFetcher(t *testing.T) {
	o := newOrigin()
	upstream := httptest.NewServer(o)

	u, err := url.Parse(upstream.URL)
	require.NoError(t, err)
	c := New(NewStorage(), TransportFetcher(u, upstream.Client()), DefaultConfig(), nil)

	rec := do(c, http.MethodGet, "/api/calc?x=1")
	assert.Equal(t, StatusMiss, rec.Header().Get(HeaderXCache))
	assert.Equal(t, "GET /api/calc #1", rec.Body.String())

	rec = do(c, http.MethodGet, "/static/app.css")
	assert.Equal(t, StatusMiss, rec.Header().Get(HeaderXCache))

	rec = do(c, http.MethodPost, "/api/tools/luhn")
	assert.Equal(t, StatusBypass, rec.Header().Get(HeaderXCache))
	assert.Equal(t, "POST /api/tools/luhn #1", rec.Body.String())

	// Upstream error statuses are answers, not failures.
	o.setFail(true)
	rec = do(c, http.MethodGet, "/api/calc?x=1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	o.setFail(false)

	upstream.Close()

	rec = do(c, http.MethodGet, "/api/calc?x=1")
	assert.Equal(t, StatusFallback, rec.Header().Get(HeaderXCache))
	assert.Equal(t, "GET /api/calc #1", rec.Body.String())

	rec = do(c, http.MethodGet, "/static/app.css")
	assert.Equal(t, StatusHit, rec.Header().Get(HeaderXCache))

	rec = do(c, http.MethodGet, "/api/never")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, StatusMiss, rec.Header().Get(HeaderXCache))

	rec = do(c, http.MethodPost, "/api/tools/luhn")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ERR_NETWORK_FAILED"))
}

func TestTransportFetcherBasePath(t *testing.T) {
	var seen string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.RequestURI()
		w.Header().Set("Connection", "close")
		_, _ = w.Write([]byte("ok"))
	}))
	defer upstream.Close()

	u, err := url.Parse(upstream.URL + "/site")
	require.NoError(t, err)

	resp, err := TransportFetcher(u, upstream.Client()).Fetch(
		context.Background(),
		httptest.NewRequest(http.MethodGet, "/tools/?q=a%20b", nil),
	)
	require.NoError(t, err)
	assert.Equal(t, "/site/tools/?q=a%20b", seen)
	assert.Equal(t, "ok", string(resp.Body))
	assert.Empty(t, resp.Header.Get("Connection"))
}

func TestTransportFetcherKeepsPerUserResponsesPrivate(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/account":
			sid, _ := r.Cookie("sid")
			w.Header().Set("Cache-Control", "private")
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: sid.Value})
			_, _ = w.Write([]byte("account page for " + sid.Value))
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "fresh"})
			_, _ = w.Write([]byte("welcome"))
		default:
			_, _ = w.Write([]byte("shared for " + r.Header.Get("Authorization")))
		}
	}))
	defer upstream.Close()

	u, err := url.Parse(upstream.URL)
	require.NoError(t, err)
	c := New(NewStorage(), TransportFetcher(u, upstream.Client()), DefaultConfig(), nil)

	withSession := func(sid string) requestOpt {
		return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "sid", Value: sid}) }
	}
	withAuth := func(token string) requestOpt {
		return func(r *http.Request) { r.Header.Set("Authorization", token) }
	}

	rec := do(c, http.MethodGet, "/account", withSession("alice"))
	assert.Equal(t, "account page for alice", rec.Body.String())

	rec = do(c, http.MethodGet, "/account", withSession("bob"))
	assert.Equal(t, StatusMiss, rec.Header().Get(HeaderXCache))
	assert.Equal(t, "account page for bob", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "sid=bob")

	do(c, http.MethodGet, "/login")
	rec = do(c, http.MethodGet, "/login")
	assert.Equal(t, StatusMiss, rec.Header().Get(HeaderXCache))

	rec = do(c, http.MethodGet, "/report", withAuth("Bearer alice"))
	assert.Equal(t, "shared for Bearer alice", rec.Body.String())
	rec = do(c, http.MethodGet, "/report")
	assert.Equal(t, StatusMiss, rec.Header().Get(HeaderXCache))
	assert.Equal(t, "shared for ", rec.Body.String())

	assert.Zero(t, c.Storage().Open(c.BucketName(TierRuntime)).Len())
}
