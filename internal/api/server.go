package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/powerled/internal/events"
	"github.com/smazurov/powerled/internal/led"
	"github.com/smazurov/powerled/internal/logging"
	"github.com/smazurov/powerled/internal/powerled"
)

// StatusProvider returns a consistent snapshot of the tracked state.
type StatusProvider interface {
	Snapshot() (powerled.Status, error)
}

// UnitReporter reports the ActiveState of systemd units.
type UnitReporter interface {
	UnitStates(ctx context.Context, units []string) map[string]string
}

// Options configures the status API.
type Options struct {
	AuthUsername string
	AuthPassword string

	Host       int
	Status     StatusProvider
	Groups     led.Groups
	LEDBackend string

	Units     UnitReporter // optional
	UnitNames []string

	EventBus          *events.Bus  // optional, enables /api/events
	PrometheusHandler http.Handler // optional, served at /metrics
}

// Server is the read-only status API.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    *Options
	logger     *slog.Logger
}

// NewServer creates the API server on a Go 1.22+ ServeMux.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	config := huma.DefaultConfig("Power LED API", "1.0.0")
	config.Info.Description = "Host boot progress and power LED state"
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	server := &Server{
		api:     api,
		mux:     mux,
		options: opts,
		logger:  logging.GetLogger("api"),
	}

	api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()
	return server
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// GetAPI returns the Huma API instance.
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start serves HTTP on addr until Stop is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting status API", "addr", addr)
	s.logger.Debug("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the server down, waiting at most until ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("Stopping status API")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.registerSystemRoutes()
	s.registerStatusRoutes()
	s.registerEventRoutes()
}

// withAuth returns security requirement for basic auth.
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
