package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"importrag/internal/usecase"
	applog "importrag/internal/platform/log"
)

// ServerConfig holds listener settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxUploadMB  int
	TopK         int
}

func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:         "127.0.0.1",
		Port:         8000,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		MaxUploadMB:  20,
		TopK:         5,
	}
}

// Engines bundles what the handlers call into. Dense fields may be nil when the
// dense engine is disabled.
type Engines struct {
	Knowledge      *usecase.KnowledgeBase
	Sparse         *usecase.SparseEngine
	SparseRetrieve *usecase.RetrieveUseCase
	Dense          *usecase.DenseEngine
	DenseRetrieve  *usecase.RetrieveUseCase
}

type Server struct {
	config  *ServerConfig
	engines Engines
	httpSrv *http.Server
}

func NewServer(config *ServerConfig, engines Engines) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	return &Server{
		config:  config,
		engines: engines,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	applog.Infof("importrag API listening on %s", addr)
	return s.httpSrv.ListenAndServe()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv != nil {
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

// Handler returns the router; tests use it directly.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(corsMiddleware)

	h := NewHandler(s.engines, s.config.MaxUploadMB, s.config.TopK)
	h.RegisterRoutes(r)
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		applog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"took", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
