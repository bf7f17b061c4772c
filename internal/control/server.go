// Package control implements the REST control API (part of C6): a small
// hand-rolled HTTP dispatcher, matching the two parameterized path shapes
// with github.com/tidwall/match rather than pulling in a routing framework,
// consistent with the rest of this proxy's minimal-dependency surface for
// its own glue code.
package control

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/ably/ably-asset-tracking-test-proxy/internal/config"
	"github.com/ably/ably-asset-tracking-test-proxy/internal/simulation"
)

// Server is the control API's HTTP surface.
type Server struct {
	addr   string
	reg    *simulation.Registry
	cfg    *config.Config
	logger *slog.Logger
	srv    *http.Server
}

// New constructs a Server listening on addr, operating on reg.
func New(addr string, reg *simulation.Registry, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{addr: addr, reg: reg, cfg: cfg, logger: logger.With("in", "control")}
}

// Start binds the listener and begins serving.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.srv = &http.Server{Handler: s}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("control server stopped", "error", err)
		}
	}()
	return nil
}

// Stop closes the listener.
func (s *Server) Stop() error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/healthz":
		s.handleHealthz(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/faults":
		s.handleListFaults(w, r)
	case r.Method == http.MethodPost && matchPath("/faults/*/simulation", r.URL.Path):
		s.handleCreateSimulation(w, r)
	case r.Method == http.MethodPost && matchPath("/fault-simulations/*/enable", r.URL.Path):
		s.handleEnable(w, r)
	case r.Method == http.MethodPost && matchPath("/fault-simulations/*/resolve", r.URL.Path):
		s.handleResolve(w, r)
	case r.Method == http.MethodPost && matchPath("/fault-simulations/*/clean-up", r.URL.Path):
		s.handleCleanUp(w, r)
	default:
		http.NotFound(w, r)
	}
}
