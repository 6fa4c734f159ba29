package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/DarkSidr/news/pkg/db"
	"github.com/DarkSidr/news/pkg/domain"
	"github.com/DarkSidr/news/pkg/filters"
)

// Server represents HTTP server instance
type Server struct {
	config     ConfigProvider
	store      Store
	reader     Reader
	trigger    Trigger
	filters    filters.Config
	cronSecret string
	version    string
	debug      bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// Store is the persisted read surface. Nil in ephemeral mode.
type Store interface {
	Ping(ctx context.Context) error
	ListPage(ctx context.Context, offset, limit int, sourceName string, filterCfg filters.Config) (*db.Page, error)
	ListRecent(ctx context.Context, limit int, since time.Time) ([]domain.NewsItem, error)
	GetStats(ctx context.Context) (*db.Stats, error)
}

// Reader serves the cache-backed live feed, the fallback when the store
// is down and the only read path in ephemeral mode
type Reader interface {
	Latest(ctx context.Context) ([]domain.NewsItem, error)
	CacheAge() time.Duration
	CacheLen() int
}

// Trigger runs a full fetch cycle on demand. Nil in ephemeral mode.
type Trigger interface {
	RunNow(ctx context.Context) ([]domain.FetchResult, error)
}

// ConfigProvider provides server configuration
type ConfigProvider interface {
	GetServerConfig() (listen string, timeout time.Duration)
}

// Opts bundles server construction parameters
type Opts struct {
	Config     ConfigProvider
	Store      Store
	Reader     Reader
	Trigger    Trigger
	Filters    filters.Config
	CronSecret string
	Version    string
	Debug      bool
}

// New initializes a new server instance
func New(opts Opts) *Server {
	s := &Server{
		config:     opts.Config,
		store:      opts.Store,
		reader:     opts.Reader,
		trigger:    opts.Trigger,
		filters:    opts.Filters,
		cronSecret: opts.CronSecret,
		version:    opts.Version,
		debug:      opts.Debug,
		router:     routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	listen, timeout := s.config.GetServerConfig()
	log.Printf("[INFO] starting server on %s", listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         listen,
		Handler:      s.router,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		log.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("news", "DarkSidr", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /news", s.newsHandler)
		r.HandleFunc("GET /articles", s.articlesHandler)
		r.HandleFunc("GET /health", s.healthHandler)
		r.HandleFunc("GET /cron/fetch", s.cronInfoHandler)
		r.HandleFunc("POST /cron/fetch", s.cronFetchHandler)
	})
}

// RenderJSON sends JSON response
func RenderJSON(w http.ResponseWriter, _ *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// RenderError sends error response as JSON
func RenderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	RenderJSON(w, r, code, map[string]string{"error": errMsg})
}
