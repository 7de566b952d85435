package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Zachdehooge/wms-animator/internal/animation"
	"github.com/Zachdehooge/wms-animator/internal/capability"
	"github.com/Zachdehooge/wms-animator/internal/events"
	"github.com/Zachdehooge/wms-animator/internal/metrics"
	"github.com/Zachdehooge/wms-animator/internal/session"
	"github.com/Zachdehooge/wms-animator/internal/wms"
)

// Source builds the capability loader and the tile URL builder for an API
// key. It is called at start and whenever new credentials are posted.
type Source func(apiKey string) (*capability.Loader, wms.Builder)

// Options configure a Server.
type Options struct {
	Source   Source
	APIKey   string
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger

	// Scheduler drives session playback. Defaults to the wall clock.
	Scheduler animation.Scheduler
}

// Server serves the map page, the session websocket and the JSON API.
type Server struct {
	source    Source
	metrics   *metrics.Metrics
	scheduler animation.Scheduler
	logger    zerolog.Logger
	router    chi.Router
	// bus carries process wide events such as capabilities.ready to every
	// connected session.
	bus *events.Bus

	mu       sync.RWMutex
	loader   *capability.Loader
	builder  wms.Builder
	sessions map[string]*session.Session

	// ctx bounds background capability loads.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs the server and its routes. Capabilities are not fetched
// until Load is called.
func New(opts Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		source:    opts.Source,
		metrics:   opts.Metrics,
		scheduler: opts.Scheduler,
		logger:    opts.Logger,
		bus:       events.NewBus(),
		sessions:  make(map[string]*session.Session),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.rekey(opts.APIKey)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(s.logger))
	router.Use(middleware.Recoverer)

	router.Get("/", s.handlePage)
	router.Get("/ws", s.handleSocket)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK")) //nolint: errcheck
	})
	if opts.Gatherer != nil {
		router.Mount("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/layers", s.handleLayers)
		r.Get("/forecasts/{bundle}", s.handleForecasts)
		r.Post("/forecast", s.handleUseForecast)
		r.Post("/credentials", s.handleCredentials)
	})
	s.router = router
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) rekey(apiKey string) *capability.Loader {
	loader, builder := s.source(apiKey)
	loader.Emitter = s.bus
	if loader.Metrics == nil {
		loader.Metrics = s.metrics
	}

	s.mu.Lock()
	s.loader = loader
	s.builder = builder
	sessions := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.SetBuilder(builder)
	}
	return loader
}

// Load fetches the capabilities of every bundle. Unauthorized bundles are
// reported to the connected sessions and can be retried by posting new
// credentials.
func (s *Server) Load(ctx context.Context) error {
	return s.currentLoader().Load(ctx)
}

func (s *Server) loadInBackground(loader *capability.Loader) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := loader.Load(s.ctx); err != nil {
			s.logger.Warn().Err(err).Msg("capabilities reload incomplete")
		}
	}()
}

func (s *Server) currentLoader() *capability.Loader {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loader
}

func (s *Server) index() *capability.Index {
	return s.currentLoader().Index
}

// Lookup implements selection.Options against the current index, so
// sessions see reloaded capabilities without reconnecting.
func (s *Server) Lookup(title string) (*capability.Layer, bool) {
	return s.index().Lookup(title)
}

func (s *Server) openSession(id string) *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := session.New(id, session.Config{
		Options:   s,
		Builder:   s.builder,
		Metrics:   s.metrics,
		Logger:    s.logger,
		Scheduler: s.scheduler,
	})
	s.sessions[id] = sess
	if s.metrics != nil {
		s.metrics.ActiveSessions.Inc()
	}
	return sess
}

func (s *Server) closeSession(sess *session.Session) {
	s.mu.Lock()
	delete(s.sessions, sess.ID)
	s.mu.Unlock()
	sess.Close()
	if s.metrics != nil {
		s.metrics.ActiveSessions.Dec()
	}
}

// Sessions returns the number of connected sessions.
func (s *Server) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := httpServer.Shutdown(shutdownCtx)
	s.Close()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close cancels background loads and closes every session.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session.Session)
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.Close()
	}
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
