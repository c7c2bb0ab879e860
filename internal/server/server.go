// Package server is the toolshed HTTP front end: server-rendered tool
// pages, a JSON API, the live word counter websocket and the static shell,
// all served through the tiered response cache.
package server

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"mime"
	"net"
	"net/http"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/conneroisu/toolshed/internal/cachetier"
	"github.com/conneroisu/toolshed/internal/config"
	"github.com/conneroisu/toolshed/internal/errors"
	"github.com/conneroisu/toolshed/internal/logging"
	mw "github.com/conneroisu/toolshed/internal/middleware"
	"github.com/conneroisu/toolshed/internal/prefs"
	"github.com/conneroisu/toolshed/internal/tools"
	"github.com/conneroisu/toolshed/internal/watcher"
)

//go:embed static
var embedded embed.FS

// staticPrefix is the URL prefix of the asset directory.
const staticPrefix = "/static"

// watchDelay is the quiet period before asset changes are applied.
const watchDelay = 200 * time.Millisecond

// Options carries the dependencies of a Server. Zero fields get defaults.
type Options struct {
	Logger  logging.Logger
	Tools   *tools.Service
	Prefs   *prefs.Store
	Storage *cachetier.Storage
	// Fetcher replaces the application as the cache's network, which
	// turns the server into a caching proxy.
	Fetcher cachetier.Fetcher
}

// Server serves toolshed.
type Server struct {
	config  *config.Config
	logger  logging.Logger
	errs    *errors.ErrorHandler
	tools   *tools.Service
	prefs   *prefs.Store
	cache   *cachetier.Cache
	router  chi.Router
	handler http.Handler
	static  fs.FS
	started time.Time

	mu           sync.Mutex
	httpServer   *http.Server
	watcher      *watcher.FileWatcher
	shutdownOnce sync.Once
}

// New wires the router, middleware and cache. The preference store is
// required unless a Fetcher replaces the application.
func New(cfg *config.Config, opts Options) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.Prefs == nil && opts.Fetcher == nil {
		return nil, errors.NewConfigError("server needs a preference store")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithComponent("server")

	static, err := fs.Sub(embedded, "static")
	if err != nil {
		return nil, fmt.Errorf("embedded assets: %w", err)
	}

	s := &Server{
		config:  cfg,
		logger:  logger,
		errs:    errors.NewErrorHandler(logger),
		tools:   opts.Tools,
		prefs:   opts.Prefs,
		static:  static,
		started: time.Now(),
	}
	if s.tools == nil {
		s.tools = tools.NewService(nil, nil)
	}

	s.router = s.routes()

	var inner http.Handler = s.router
	if cfg.Cache.Enabled {
		cacheConfig := cachetier.Config{
			Version:    cfg.Cache.Version,
			ImageCap:   cfg.Cache.ImageCap,
			RuntimeCap: cfg.Cache.RuntimeCap,
			Precache:   cfg.Cache.Precache,
		}
		if opts.Fetcher != nil {
			s.cache = cachetier.New(opts.Storage, opts.Fetcher, cacheConfig, logger)
		} else {
			s.cache = cachetier.Middleware(s.router, opts.Storage, cacheConfig, logger)
		}
		inner = s.cache
	} else if opts.Fetcher != nil {
		inner = http.HandlerFunc(opts.Fetcher.Forward)
	}

	production := cfg.Server.Environment == "production"
	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 && !production {
		origins = []string{"*"}
	}

	// Outermost first. The client id cookie is set outside the cache so it
	// never ends up in a stored response.
	chain := mw.NewChain(
		middleware.RequestID,
		requestLogger(logger),
		recoverer(logger),
		securityHeaders(production),
		cors(origins),
		clientIDMiddleware(production),
	)
	s.handler = chain.Apply(inner)

	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.handleIndex)
	r.Get("/index.html", s.serveShellFile("index.html"))
	r.Get("/placeholder.svg", s.serveShellFile("placeholder.svg"))
	r.Get("/manifest.json", s.serveShellFile("manifest.json"))
	r.Handle(staticPrefix+"/*", http.StripPrefix(staticPrefix, s.assetHandler()))

	r.Get("/tools/calc", s.handleCalcIndex)
	r.Get("/tools/calc/{id}", s.handleCalcPage)
	r.Post("/tools/calc/{id}", s.handleCalcPage)
	r.Get("/tools/{tool}", s.handleToolPage)
	r.Post("/tools/{tool}", s.handleToolPage)

	r.Get("/health", s.handleHealth)
	r.Get("/ws/wordcount", s.handleWordCountSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/tools", s.handleListTools)
		r.Post("/tools/{tool}", s.handleRunTool)
		r.Get("/calc", s.handleListCalculators)
		r.Post("/calc/{id}", s.handleRunCalculator)

		r.Route("/prefs", func(r chi.Router) {
			r.Get("/history/{tool}", s.handleGetHistory)
			r.Delete("/history/{tool}", s.handleClearHistory)
			r.Get("/favorites", s.handleGetFavorites)
			r.Post("/favorites/{id}", s.handleToggleFavorite)
			r.Get("/bookmarks", s.handleGetBookmarks)
			r.Post("/bookmarks", s.handleToggleBookmark)
		})

		r.Get("/cache", s.handleCacheStats)
		r.Delete("/cache", s.handleCacheClear)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, errors.NewNotFoundError(errors.ErrCodeUnknownTool, "no such endpoint: "+r.URL.Path))
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, errors.NewNotFoundError(errors.ErrCodeUnknownTool, "page not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusMethodNotAllowed, errors.Payload{Error: errors.PayloadError{
			Code:    errors.ErrCodeInvalidInput,
			Message: "method not allowed",
		}})
	})

	return r
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Cache returns the response cache, or nil when caching is disabled.
func (s *Server) Cache() *cachetier.Cache {
	return s.cache
}

// Prepare installs the precache and drops buckets of older versions.
func (s *Server) Prepare(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Install(ctx); err != nil {
		return fmt.Errorf("installing precache: %w", err)
	}
	s.cache.Activate(ctx)
	return nil
}

// Start prepares the cache, begins watching the asset directory and
// serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return errors.NewNetworkError(errors.ErrCodeNetworkFailed, "cannot listen on "+s.config.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if err := s.Prepare(ctx); err != nil {
		_ = ln.Close()
		return err
	}
	if err := s.startWatcher(ctx); err != nil {
		s.logger.Warn(ctx, err, "Asset watcher disabled", "dir", s.config.Server.StaticDir)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (s *Server) startWatcher(ctx context.Context) error {
	dir := s.config.Server.StaticDir
	if dir == "" || s.cache == nil {
		return nil
	}
	fw, err := watcher.NewFileWatcher(watchDelay, s.logger)
	if err != nil {
		return err
	}
	fw.AddFilter(watcher.NoHiddenFilter)
	fw.AddFilter(watcher.NoEditorTempFilter)
	fw.AddHandler(watcher.InvalidateHandler(dir, staticPrefix, s.cache, func(urlPath string, removed int) {
		s.logger.Info(ctx, "Asset changed", "path", urlPath, "evicted", removed)
	}))
	if err := fw.AddRecursive(dir); err != nil {
		_ = fw.Stop()
		return err
	}
	fw.Start(ctx)

	s.mu.Lock()
	s.watcher = fw
	s.mu.Unlock()
	return nil
}

// Shutdown stops the watcher and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		s.mu.Lock()
		fw, srv := s.watcher, s.httpServer
		s.mu.Unlock()

		var werr, serr error
		if fw != nil {
			if werr = fw.Stop(); werr != nil {
				s.logger.Warn(ctx, werr, "Failed to stop asset watcher")
			}
		}
		if srv != nil {
			serr = srv.Shutdown(ctx)
		}
		err = errors.CombineErrors(werr, serr)
	})
	return err
}

// assetHandler serves /static from the configured directory when set,
// otherwise from the embedded copy.
func (s *Server) assetHandler() http.Handler {
	if dir := s.config.Server.StaticDir; dir != "" {
		return http.FileServer(http.Dir(dir))
	}
	return http.FileServer(http.FS(s.static))
}

// serveShellFile writes one of the top-level shell files. ServeFile is
// avoided because it redirects /index.html to /.
func (s *Server) serveShellFile(name string) http.HandlerFunc {
	ctype := mime.TypeByExtension(path.Ext(name))
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(s.static, name)
		if err != nil {
			s.renderError(w, r, errors.NewInternalError("missing asset "+name, err))
			return
		}
		w.Header().Set("Content-Type", ctype)
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		_, _ = w.Write(data)
	}
}
