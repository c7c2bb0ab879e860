package cachetier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"path"
	"strings"

	"github.com/conneroisu/toolshed/internal/errors"
)

// MaxBodySize bounds responses buffered for caching.
const MaxBodySize = 16 << 20

// Fetcher is the network side of the cache.
type Fetcher interface {
	// Fetch performs a GET for r and buffers the response. A non-nil
	// error means the network failed and the cache may fall back; the
	// response may still be set when the network answered with an error.
	Fetch(ctx context.Context, r *http.Request) (*Response, error)
	// Forward streams r to the network without caching.
	Forward(w http.ResponseWriter, r *http.Request)
}

type handlerFetcher struct {
	next http.Handler
}

// HandlerFetcher treats an in-process handler as the network. A 5xx
// answer counts as a network failure, but the response is still returned
// alongside the error so it can be served when nothing is cached.
func HandlerFetcher(next http.Handler) Fetcher {
	return &handlerFetcher{next: next}
}

func (f *handlerFetcher) Fetch(ctx context.Context, r *http.Request) (*Response, error) {
	req := r.Clone(ctx)
	req.Method = http.MethodGet
	req.Body = http.NoBody

	rec := newBufferedWriter()
	f.next.ServeHTTP(rec, req)

	resp := rec.response()
	if resp.StatusCode >= http.StatusInternalServerError {
		return resp, errors.NewNetworkError(errors.ErrCodeNetworkFailed,
			fmt.Sprintf("handler answered %d for %s", resp.StatusCode, r.URL.Path), nil)
	}
	return resp, nil
}

func (f *handlerFetcher) Forward(w http.ResponseWriter, r *http.Request) {
	f.next.ServeHTTP(w, r)
}

type transportFetcher struct {
	upstream *url.URL
	client   *http.Client
	proxy    *httputil.ReverseProxy
}

// TransportFetcher uses an upstream origin as the network. Only transport
// errors count as failures; upstream error statuses are passed through.
func TransportFetcher(upstream *url.URL, client *http.Client) Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		writeError(w, errors.NewNetworkError(errors.ErrCodeNetworkFailed, "upstream unreachable", err))
	}
	return &transportFetcher{upstream: upstream, client: client, proxy: proxy}
}

func (f *transportFetcher) target(r *http.Request) string {
	u := *f.upstream
	u.Path = path.Join("/", f.upstream.Path, r.URL.Path)
	if strings.HasSuffix(r.URL.Path, "/") && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawPath = ""
	u.RawQuery = r.URL.RawQuery
	return u.String()
}

func (f *transportFetcher) Fetch(ctx context.Context, r *http.Request) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.target(r), nil)
	if err != nil {
		return nil, errors.NewInternalError("failed to build upstream request", err)
	}
	for k, vv := range r.Header {
		if isHopHeader(k) {
			continue
		}
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}

	res, err := f.client.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeNetworkFailed, "upstream unreachable", err)
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(res.Body, MaxBodySize+1))
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeNetworkFailed, "failed to read upstream response", err)
	}
	if len(body) > MaxBodySize {
		return nil, errors.NewNetworkError(errors.ErrCodeNetworkFailed,
			fmt.Sprintf("upstream response for %s exceeds %d bytes", r.URL.Path, MaxBodySize), nil)
	}

	header := res.Header.Clone()
	for k := range header {
		if isHopHeader(k) {
			header.Del(k)
		}
	}
	return &Response{StatusCode: res.StatusCode, Header: header, Body: body}, nil
}

func (f *transportFetcher) Forward(w http.ResponseWriter, r *http.Request) {
	f.proxy.ServeHTTP(w, r)
}

var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

func isHopHeader(name string) bool {
	for _, h := range hopHeaders {
		if strings.EqualFold(h, name) {
			return true
		}
	}
	return false
}

// bufferedWriter collects a handler's response in memory.
type bufferedWriter struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: make(http.Header)}
}

func (w *bufferedWriter) Header() http.Header {
	return w.header
}

func (w *bufferedWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
}

func (w *bufferedWriter) Write(p []byte) (int, error) {
	w.WriteHeader(http.StatusOK)
	return w.body.Write(p)
}

func (w *bufferedWriter) response() *Response {
	status := w.status
	if !w.wroteHeader {
		status = http.StatusOK
	}
	return &Response{StatusCode: status, Header: w.header.Clone(), Body: w.body.Bytes()}
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(errors.HTTPStatus(err))
	_ = json.NewEncoder(w).Encode(errors.NewPayload(err))
}
