package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/xi784/ha-blnet/internal/platform"
)

// Host is the platform the API reads from and sends commands to.
type Host interface {
	Entities() []platform.Snapshot
	Get(uniqueID string) (platform.Snapshot, error)
	Command(uniqueID string, on bool) (platform.Snapshot, error)
	PollAll() int
}

// Server is the HTTP API for the switch entities.
type Server struct {
	host    Host
	metrics http.Handler
	router  *chi.Mux
}

// Options controls optional parts of the API.
type Options struct {
	// Metrics, if set, is served on /metrics
	Metrics http.Handler

	// AllowedOrigins enables CORS for the given origins
	AllowedOrigins []string

	// RequestLogging adds chi's request logger
	RequestLogging bool
}

// NewServer creates a new Server instance.
func NewServer(host Host, opts Options) *Server {
	s := &Server{
		host:    host,
		metrics: opts.Metrics,
		router:  chi.NewRouter(),
	}

	if opts.RequestLogging {
		s.router.Use(middleware.Logger)
	}
	s.router.Use(middleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Get("/entities", s.listEntitiesHandler)
	s.router.Get("/entities/{id}", s.entityHandler)
	s.router.With(s.validateJSONRequest).Post("/entities/{id}", s.commandHandler)
	s.router.Post("/poll", s.pollHandler)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics)
	}
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
