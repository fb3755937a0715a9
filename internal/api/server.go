package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/mapsgpx/internal/config"
	"github.com/dgallion1/mapsgpx/internal/convert"
	"github.com/dgallion1/mapsgpx/internal/metrics"
	"github.com/dgallion1/mapsgpx/internal/parser"
	"github.com/dgallion1/mapsgpx/internal/pipeline"
)

// Server is the HTTP API server for mapsgpx.
type Server struct {
	router       chi.Router
	svc          *convert.Service
	orchestrator *pipeline.Orchestrator
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(svc *convert.Service, orch *pipeline.Orchestrator, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		svc:          svc,
		orchestrator: orch,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(metrics.Middleware)
	r.Use(CORS)

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	// API endpoints, authenticated when an API key is configured.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Get("/api/convert", s.handleConvertQuery)
		r.Post("/api/convert", s.handleConvert)
		r.Post("/api/convert/file", s.handleConvertFile)
		r.Post("/api/gpx", s.handleRouteToGPX)
		r.Post("/api/geojson", s.handleGeoJSON)
		r.Get("/api/formats", s.handleFormats)

		r.Post("/api/batch", s.handleBatch)
		r.Get("/api/batch/{batchID}", s.handleBatchStatus)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)
		r.Get("/api/jobs/{jobID}/gpx", s.handleJobGPX)
		r.Delete("/api/jobs/{jobID}", s.handleDeleteJob)

		r.Get("/api/stats/convert", s.handleConvertStats)

		r.Get("/api/mcp", s.handleMCPManifest)
		r.Post("/api/mcp", s.handleMCP)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"types":      []convert.Kind{convert.KindURL, convert.KindKML, convert.KindPolyline},
		"extensions": parser.Extensions(),
	})
}
