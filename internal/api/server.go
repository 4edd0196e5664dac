package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/docdeck/internal/config"
	"github.com/dgallion1/docdeck/internal/llm"
	"github.com/dgallion1/docdeck/internal/pipeline"
)

// Server is the HTTP API server for docdeck.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	llm          *llm.Client
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. client may be nil, in
// which case the stats endpoint reports unavailable.
func NewServer(orch *pipeline.Orchestrator, client *llm.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		llm:          client,
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

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Get("/api/themes", s.handleThemes)
		r.Get("/api/stats/llm", s.handleLLMStats)

		r.Post("/api/runs", s.handleCreateRun)
		r.Route("/api/runs/{runID}", func(r chi.Router) {
			r.Get("/", s.handleGetRun)
			r.Get("/log", s.handleRunLog)

			r.Put("/structured-text", s.handleEditStructuredText)
			r.Post("/structure/regenerate", s.action(s.orchestrator.RegenerateStructure))
			r.Post("/structure/confirm", s.action(s.orchestrator.ConfirmStructure))
			r.Post("/theme", s.handleSelectTheme)

			r.Put("/outline", s.handleEditOutline)
			r.Post("/outline/regenerate", s.action(s.orchestrator.RegenerateOutline))
			r.Post("/outline/approve", s.action(s.orchestrator.ApproveOutline))

			r.Post("/slides/approve", s.action(s.orchestrator.ApproveSlide))
			r.Get("/slides/{index}", s.handleSlide)
			r.Post("/return-to-outline", s.action(s.orchestrator.ReturnToOutline))

			r.Post("/retry", s.action(s.orchestrator.Retry))
			r.Post("/rollback", s.action(s.orchestrator.Rollback))
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
